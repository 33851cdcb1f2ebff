package polygonstore_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/forestlens/mspo-maps/internal/geometry"
	"github.com/forestlens/mspo-maps/internal/polygonstore"
	"github.com/paulmach/orb"
)

var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

// newTestStore returns a Store with a fixed clock and sequential ids.
func newTestStore(t *testing.T, opts ...polygonstore.Option) *polygonstore.Store {
	t.Helper()
	n := 0
	base := []polygonstore.Option{
		polygonstore.WithClock(func() time.Time { return fixedNow }),
		polygonstore.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("poly-%d", n)
		}),
	}
	return polygonstore.New(append(base, opts...)...)
}

func squareAt(lng, lat, half float64) orb.Ring {
	return orb.Ring{
		{lng - half, lat - half},
		{lng + half, lat - half},
		{lng + half, lat + half},
		{lng - half, lat + half},
		{lng - half, lat - half},
	}
}

func validPolygon() polygonstore.Polygon {
	area := 12.5
	return polygonstore.Polygon{
		Geometry: polygonstore.NewPolygonGeometry(squareAt(101.5, 3.1, 0.01)),
		Properties: polygonstore.Properties{
			Severity:     polygonstore.SeverityHigh,
			Cause:        polygonstore.CauseLogging,
			Area:         &area,
			DetectedDate: "2024-05-01",
		},
	}
}

func mustAdd(t *testing.T, s *polygonstore.Store, p polygonstore.Polygon) polygonstore.Polygon {
	t.Helper()
	added, err := s.Add(p)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return added
}

func hasMessage(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// TestValidate_ThreePointRing verifies that a ring with 3 points fails with the
// minimum-point message.
func TestValidate_ThreePointRing(t *testing.T) {
	p := validPolygon()
	p.Geometry = polygonstore.NewPolygonGeometry(orb.Ring{{0, 0}, {1, 0}, {0, 0}})

	res := polygonstore.Validate(p)
	if res.IsValid {
		t.Fatal("expected 3-point ring to be invalid")
	}
	if !hasMessage(res.Errors, "at least 4 coordinate points") {
		t.Errorf("expected minimum-point error, got %v", res.Errors)
	}
}

// TestValidate_InvalidSeverity verifies that an unknown severity is reported by name.
func TestValidate_InvalidSeverity(t *testing.T) {
	p := validPolygon()
	p.Properties.Severity = "extreme"

	res := polygonstore.Validate(p)
	if res.IsValid {
		t.Fatal("expected severity 'extreme' to be invalid")
	}
	if !hasMessage(res.Errors, "Invalid severity") {
		t.Errorf("expected invalid severity error, got %v", res.Errors)
	}
}

// TestValidate_CollectsAllErrors verifies that validation does not stop at the first fault.
func TestValidate_CollectsAllErrors(t *testing.T) {
	neg := -3.0
	p := polygonstore.Polygon{
		Properties: polygonstore.Properties{
			Severity:      "extreme",
			Cause:         "aliens",
			Area:          &neg,
			DetectedDate:  "yesterday",
			EstimatedDate: "not a date",
		},
	}

	res := polygonstore.Validate(p)
	want := []string{
		"Geometry is required",
		"Invalid severity level",
		"Invalid cause",
		"Invalid detection date",
		"Invalid estimated date",
		"Area must be a positive number",
	}
	if len(res.Errors) != len(want) {
		t.Fatalf("expected %d errors, got %d: %v", len(want), len(res.Errors), res.Errors)
	}
	for _, w := range want {
		if !hasMessage(res.Errors, w) {
			t.Errorf("missing error %q in %v", w, res.Errors)
		}
	}
}

func TestValidate_PointGeometryHasInvalidCoordinates(t *testing.T) {
	var p polygonstore.Polygon
	body := `{"geometry":{"type":"Point","coordinates":[101.5,3.1]},"properties":{}}`
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	res := polygonstore.Validate(p)
	if !hasMessage(res.Errors, "Invalid geometry coordinates") {
		t.Errorf("expected invalid coordinates error, got %v", res.Errors)
	}
}

// TestProperties_NonNumericArea verifies that a non-numeric area survives decoding
// as an invalid value and is counted as zero by the statistics.
func TestProperties_NonNumericArea(t *testing.T) {
	var props polygonstore.Properties
	if err := json.Unmarshal([]byte(`{"area":"lots","severity":"low"}`), &props); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	p := validPolygon()
	p.Properties = props

	if res := polygonstore.Validate(p); !hasMessage(res.Errors, "Area must be a positive number") {
		t.Errorf("expected area error, got %v", res.Errors)
	}
	if got := polygonstore.Recompute([]polygonstore.Polygon{p}).TotalArea; got != 0 {
		t.Errorf("expected non-numeric area to count as 0, got %f", got)
	}
}

// TestProperties_NonStringValuesAreInvalid verifies that numbers and objects
// in string members are reported by validation rather than dropped.
func TestProperties_NonStringValuesAreInvalid(t *testing.T) {
	var props polygonstore.Properties
	in := `{"severity":5,"cause":{"x":1},"detectedDate":{"y":2},"estimatedDate":20240101}`
	if err := json.Unmarshal([]byte(in), &props); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	p := validPolygon()
	p.Properties = props

	res := polygonstore.Validate(p)
	if res.IsValid {
		t.Fatal("expected non-string values to be invalid")
	}
	for _, want := range []string{"Invalid severity level", "Invalid cause", "Invalid detection date", "Invalid estimated date"} {
		if !hasMessage(res.Errors, want) {
			t.Errorf("expected %q, got %v", want, res.Errors)
		}
	}

	var empty polygonstore.Properties
	if err := json.Unmarshal([]byte(`{"severity":null,"cause":null}`), &empty); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if empty.Severity != "" || empty.Cause != "" {
		t.Errorf("expected nulls to leave fields unset, got %+v", empty)
	}
}

func TestProperties_ExtraRoundTrip(t *testing.T) {
	in := `{"severity":"medium","area":"4.5","license_no":"MPOB-1","tags":["a","b"]}`
	var props polygonstore.Properties
	if err := json.Unmarshal([]byte(in), &props); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if props.Severity != polygonstore.SeverityMedium || props.AreaValue() != 4.5 {
		t.Fatalf("unexpected known fields: %+v", props)
	}
	if props.Extra["license_no"] != "MPOB-1" {
		t.Errorf("expected license_no in Extra, got %v", props.Extra)
	}

	out, err := json.Marshal(props)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if back["area"] != 4.5 || back["license_no"] != "MPOB-1" || back["severity"] != "medium" {
		t.Errorf("unexpected marshalled properties: %s", out)
	}
}

// TestAdd_AssignsIDAndTimestamps verifies generated ids, timestamps and the derived centroid.
func TestAdd_AssignsIDAndTimestamps(t *testing.T) {
	s := newTestStore(t)

	p := mustAdd(t, s, validPolygon())

	if p.ID != "poly-1" {
		t.Errorf("expected generated id poly-1, got %q", p.ID)
	}
	if !p.CreatedAt.Equal(fixedNow) || !p.UpdatedAt.Equal(fixedNow) {
		t.Errorf("expected timestamps %v, got %v / %v", fixedNow, p.CreatedAt, p.UpdatedAt)
	}
	if len(p.Centroid) != 2 {
		t.Fatalf("expected derived centroid, got %v", p.Centroid)
	}
	if d := p.Centroid[0] - 3.1; d > 1e-9 || d < -1e-9 {
		t.Errorf("expected centroid lat 3.1, got %f", p.Centroid[0])
	}
	if s.Stats().TotalCount != 1 || s.Stats().TotalArea != 12.5 {
		t.Errorf("unexpected stats %+v", s.Stats())
	}
}

func TestAdd_DefaultIDsAreUnique(t *testing.T) {
	s := polygonstore.New()
	a := mustAdd(t, s, validPolygon())
	b := mustAdd(t, s, validPolygon())
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct generated ids, got %q and %q", a.ID, b.ID)
	}
}

// TestAdd_RejectsInvalid verifies that a failed add stores nothing and records the errors.
func TestAdd_RejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	p := validPolygon()
	p.ID = "bad"
	p.Properties.Severity = "extreme"

	_, err := s.Add(p)

	var verr *polygonstore.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected no polygons after rejected add, got %d", s.Len())
	}
	if len(s.ValidationErrors("bad")) == 0 {
		t.Error("expected validation errors recorded for id 'bad'")
	}
	if len(s.History()) != 0 {
		t.Errorf("expected no history entry, got %d", len(s.History()))
	}
}

func TestAdd_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	p := validPolygon()
	p.ID = "dup"
	mustAdd(t, s, p)

	if _, err := s.Add(p); !errors.Is(err, polygonstore.ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

// TestAddRemove_RoundTrip verifies that removing a polygon restores the prior count and
// clears selection, hover, analysis and validation state keyed by its id.
func TestAddRemove_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, validPolygon())
	before := s.Len()

	p := mustAdd(t, s, validPolygon())
	if err := s.Select(p.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	s.SetHovered(p.ID)
	if _, err := s.Analyze(p.ID); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	bad := validPolygon()
	bad.Geometry = nil
	_, _ = s.Update(p.ID, polygonstore.Patch{Geometry: bad.Geometry, Properties: &polygonstore.Properties{Severity: "nope"}})
	if len(s.ValidationErrors(p.ID)) == 0 {
		t.Fatal("expected a recorded validation error before removal")
	}

	removed, err := s.Remove(p.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if removed.ID != p.ID {
		t.Errorf("expected removed id %q, got %q", p.ID, removed.ID)
	}
	if s.Len() != before {
		t.Errorf("expected %d polygons, got %d", before, s.Len())
	}
	if _, ok := s.Selected(); ok {
		t.Error("expected selection cleared")
	}
	if s.Hovered() != "" {
		t.Error("expected hover cleared")
	}
	if _, ok := s.Analysis(p.ID); ok {
		t.Error("expected analysis cleared")
	}
	if len(s.ValidationErrors(p.ID)) != 0 {
		t.Error("expected validation errors cleared")
	}
	last, _ := s.LastOperation()
	if last.Operation != polygonstore.OpRemove || len(last.Snapshot) != 1 || last.Snapshot[0].ID != p.ID {
		t.Errorf("expected remove entry with snapshot, got %+v", last)
	}
}

func TestRemove_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Remove("missing"); !errors.Is(err, polygonstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestUpdate_RejectsTwoPointGeometry verifies no partial write happens on a failed update.
func TestUpdate_RejectsTwoPointGeometry(t *testing.T) {
	s := newTestStore(t)
	p := mustAdd(t, s, validPolygon())
	original, _ := p.Ring()

	_, err := s.Update(p.ID, polygonstore.Patch{
		Geometry: polygonstore.NewPolygonGeometry(orb.Ring{{0, 0}, {1, 1}}),
	})

	var verr *polygonstore.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	got, ok := s.Get(p.ID)
	if !ok {
		t.Fatal("polygon disappeared after rejected update")
	}
	ring, _ := got.Ring()
	if len(ring) != len(original) || ring[0] != original[0] {
		t.Errorf("expected original ring %v, got %v", original, ring)
	}
}

// TestUpdate_ReplacesPropertiesAndRefreshesTimestamp verifies the shallow merge.
func TestUpdate_ReplacesPropertiesAndRefreshesTimestamp(t *testing.T) {
	now := fixedNow
	s := newTestStore(t, polygonstore.WithClock(func() time.Time { return now }))
	p := mustAdd(t, s, validPolygon())

	now = fixedNow.Add(time.Hour)
	updated, err := s.Update(p.ID, polygonstore.Patch{
		Properties: &polygonstore.Properties{Severity: polygonstore.SeverityLow},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.Properties.Severity != polygonstore.SeverityLow {
		t.Errorf("expected severity low, got %q", updated.Properties.Severity)
	}
	if updated.Properties.Area != nil {
		t.Error("expected properties replaced wholesale, area still set")
	}
	if !updated.UpdatedAt.Equal(now) || !updated.CreatedAt.Equal(fixedNow) {
		t.Errorf("unexpected timestamps created=%v updated=%v", updated.CreatedAt, updated.UpdatedAt)
	}
	last, _ := s.LastOperation()
	if last.Operation != polygonstore.OpUpdate || last.Snapshot[0].Properties.Severity != polygonstore.SeverityHigh {
		t.Errorf("expected update entry with prior snapshot, got %+v", last)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Update("missing", polygonstore.Patch{}); !errors.Is(err, polygonstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestHistory_CappedAtFifty verifies that 55 adds leave the 50 most recent entries.
func TestHistory_CappedAtFifty(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 55; i++ {
		mustAdd(t, s, validPolygon())
	}

	h := s.History()
	if len(h) != 50 {
		t.Fatalf("expected 50 history entries, got %d", len(h))
	}
	if h[0].PolygonIDs[0] != "poly-55" {
		t.Errorf("expected newest entry first (poly-55), got %v", h[0].PolygonIDs)
	}
	if h[49].PolygonIDs[0] != "poly-6" {
		t.Errorf("expected oldest kept entry poly-6, got %v", h[49].PolygonIDs)
	}
}

// TestInBounds_Scenario verifies the inclusive rectangle filter on centroids.
func TestInBounds_Scenario(t *testing.T) {
	s := newTestStore(t)
	for _, c := range [][]float64{{1, 1}, {5, 5}, {10, 10}} {
		p := validPolygon()
		p.Centroid = c
		mustAdd(t, s, p)
	}

	got := s.InBounds(polygonstore.Bounds{North: 6, South: 0, East: 6, West: 0})

	if len(got) != 2 {
		t.Fatalf("expected 2 polygons in bounds, got %d", len(got))
	}
	if got[0].Centroid[0] != 1 || got[1].Centroid[0] != 5 {
		t.Errorf("unexpected polygons %v, %v", got[0].Centroid, got[1].Centroid)
	}

	edge := s.InBounds(polygonstore.Bounds{North: 10, South: 5, East: 10, West: 5})
	if len(edge) != 2 {
		t.Errorf("expected edges to be inclusive, got %d polygons", len(edge))
	}
}

func TestInDateRange(t *testing.T) {
	s := newTestStore(t)
	for _, d := range []string{"2024-01-10", "2024-02-01", "2024-03-15", ""} {
		p := validPolygon()
		p.Properties.DetectedDate = d
		mustAdd(t, s, p)
	}

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	got := s.InDateRange(start, end)

	if len(got) != 2 {
		t.Errorf("expected 2 polygons in inclusive range, got %d", len(got))
	}
}

// TestStats_Idempotent verifies that recomputing over the same collection yields
// identical snapshots, and that missing fields land under "unknown".
func TestStats_Idempotent(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, validPolygon())
	mustAdd(t, s, polygonstore.Polygon{Geometry: polygonstore.NewPolygonGeometry(squareAt(102, 4, 0.01))})

	a := polygonstore.Recompute(s.Polygons())
	b := polygonstore.Recompute(s.Polygons())

	if fmt.Sprintf("%+v", a) != fmt.Sprintf("%+v", b) {
		t.Errorf("expected identical snapshots:\n%+v\n%+v", a, b)
	}
	if a.SeverityDistribution["unknown"] != 1 || a.CauseDistribution["unknown"] != 1 {
		t.Errorf("expected unknown buckets, got %+v / %+v", a.SeverityDistribution, a.CauseDistribution)
	}
	if a.AverageArea != 6.25 {
		t.Errorf("expected average area 6.25, got %f", a.AverageArea)
	}
	if len(a.MonthlyTrends) != 1 || a.MonthlyTrends[0].Month != "2024-05" {
		t.Errorf("unexpected monthly trends %+v", a.MonthlyTrends)
	}
}

func TestStatsByTimeRange(t *testing.T) {
	s := newTestStore(t)
	for _, d := range []string{"2024-06-10", "2024-05-20", "2023-01-01"} {
		p := validPolygon()
		p.Properties.DetectedDate = d
		mustAdd(t, s, p)
	}

	if got := s.StatsByTimeRange(30).TotalCount; got != 2 {
		t.Errorf("expected 2 polygons within 30 days, got %d", got)
	}
}

// TestBulkUpdate_PartialFailure verifies that one bad id does not abort the batch.
func TestBulkUpdate_PartialFailure(t *testing.T) {
	s := newTestStore(t)
	a := mustAdd(t, s, validPolygon())
	b := mustAdd(t, s, validPolygon())

	updated, err := s.BulkUpdate([]string{a.ID, "missing", b.ID}, polygonstore.Patch{
		Properties: &polygonstore.Properties{Severity: polygonstore.SeverityCritical},
	})

	if len(updated) != 2 {
		t.Errorf("expected 2 updated polygons, got %d", len(updated))
	}
	var bulkErr *polygonstore.BulkError
	if !errors.As(err, &bulkErr) {
		t.Fatalf("expected *BulkError, got %v", err)
	}
	if len(bulkErr.Failures) != 1 || bulkErr.Failures[0].PolygonID != "missing" {
		t.Errorf("unexpected failures %+v", bulkErr.Failures)
	}
	if !errors.Is(err, polygonstore.ErrNotFound) {
		t.Error("expected BulkError to unwrap to ErrNotFound")
	}
	if got := s.Stats().SeverityDistribution["critical"]; got != 2 {
		t.Errorf("expected 2 critical polygons, got %d", got)
	}
	last, _ := s.LastOperation()
	if last.Operation != polygonstore.OpBulkUpdate {
		t.Errorf("expected bulkUpdate as last operation, got %q", last.Operation)
	}
	if s.IsAnyOperationActive() {
		t.Error("expected bulk flag reset after BulkUpdate")
	}
}

func TestBulkDelete(t *testing.T) {
	s := newTestStore(t)
	a := mustAdd(t, s, validPolygon())
	b := mustAdd(t, s, validPolygon())
	c := mustAdd(t, s, validPolygon())
	_ = s.Select(b.ID)

	removed, err := s.BulkDelete([]string{a.ID, b.ID})
	if err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}

	if len(removed) != 2 || s.Len() != 1 {
		t.Fatalf("expected 2 removed and 1 left, got %d removed and %d left", len(removed), s.Len())
	}
	if _, ok := s.Get(c.ID); !ok {
		t.Error("expected untouched polygon to remain")
	}
	if _, ok := s.Selected(); ok {
		t.Error("expected selection cleared when the selected polygon is deleted")
	}
	last, _ := s.LastOperation()
	if last.Operation != polygonstore.OpBulkDelete || len(last.Snapshot) != 2 {
		t.Errorf("expected bulkDelete entry with 2 snapshots, got %+v", last)
	}
}

// TestFinishDrawing_FailureKeepsDrawing verifies that a rejected drawing stays active
// with its geometry staged, and that a valid one ends drawing and selects the polygon.
func TestFinishDrawing_FailureKeepsDrawing(t *testing.T) {
	s := newTestStore(t)
	if err := s.StartDrawing(polygonstore.DrawPolygon); err != nil {
		t.Fatalf("StartDrawing: %v", err)
	}

	_, err := s.FinishDrawing(polygonstore.NewPolygonGeometry(orb.Ring{{0, 0}, {1, 1}, {0, 0}}), polygonstore.Properties{})
	var verr *polygonstore.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if !s.IsDrawing() {
		t.Fatal("expected drawing to remain active after a failed finish")
	}

	s.SetTempGeometry(polygonstore.NewPolygonGeometry(squareAt(101, 3, 0.01)))
	p, err := s.FinishDrawing(nil, polygonstore.Properties{Severity: polygonstore.SeverityLow})
	if err != nil {
		t.Fatalf("FinishDrawing with staged geometry: %v", err)
	}
	if s.IsDrawing() {
		t.Error("expected drawing to end after success")
	}
	if sel, ok := s.Selected(); !ok || sel.ID != p.ID {
		t.Errorf("expected new polygon %q selected", p.ID)
	}
}

func TestFinishDrawing_NotDrawing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.FinishDrawing(nil, polygonstore.Properties{}); !errors.Is(err, polygonstore.ErrNotDrawing) {
		t.Errorf("expected ErrNotDrawing, got %v", err)
	}
}

// TestDrawingEditing_MutuallyExclusive verifies the mode conflict in both directions.
func TestDrawingEditing_MutuallyExclusive(t *testing.T) {
	s := newTestStore(t)
	p := mustAdd(t, s, validPolygon())

	if err := s.StartEditing(p.ID); err != nil {
		t.Fatalf("StartEditing: %v", err)
	}
	if err := s.StartDrawing(polygonstore.DrawRectangle); !errors.Is(err, polygonstore.ErrModeConflict) {
		t.Errorf("expected ErrModeConflict while editing, got %v", err)
	}
	_ = s.StopEditing(false)

	if err := s.StartDrawing(polygonstore.DrawCircle); err != nil {
		t.Fatalf("StartDrawing: %v", err)
	}
	if err := s.StartEditing(p.ID); !errors.Is(err, polygonstore.ErrModeConflict) {
		t.Errorf("expected ErrModeConflict while drawing, got %v", err)
	}
}

func TestStartEditing_NotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.StartEditing("missing"); !errors.Is(err, polygonstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if s.IsEditing() {
		t.Error("expected editing to stay off")
	}
}

// TestStopEditing_SaveFailureStillExits verifies edit mode clears even when saving fails.
func TestStopEditing_SaveFailureStillExits(t *testing.T) {
	s := newTestStore(t)
	p := mustAdd(t, s, validPolygon())
	if err := s.StartEditing(p.ID); err != nil {
		t.Fatalf("StartEditing: %v", err)
	}
	if sel, _ := s.Selected(); sel.ID != p.ID {
		t.Error("expected StartEditing to select the target")
	}

	s.SetTempGeometry(polygonstore.NewPolygonGeometry(orb.Ring{{0, 0}, {1, 1}}))
	err := s.StopEditing(true)

	if err == nil {
		t.Fatal("expected save to fail on a 2-point ring")
	}
	if s.IsEditing() || s.EditingTarget() != "" {
		t.Error("expected edit mode cleared after failed save")
	}
}

func TestStopEditing_SavesGeometryOnly(t *testing.T) {
	s := newTestStore(t)
	p := mustAdd(t, s, validPolygon())
	_ = s.StartEditing(p.ID)

	next := squareAt(110, 1, 0.02)
	s.SetTempGeometry(polygonstore.NewPolygonGeometry(next))
	if err := s.StopEditing(true); err != nil {
		t.Fatalf("StopEditing: %v", err)
	}

	got, _ := s.Get(p.ID)
	ring, _ := got.Ring()
	if ring[0] != next[0] {
		t.Errorf("expected new geometry, got first point %v", ring[0])
	}
	if got.Properties.Severity != polygonstore.SeverityHigh {
		t.Errorf("expected properties preserved, got %+v", got.Properties)
	}
	if got.Centroid[1] < 109.99 {
		t.Errorf("expected centroid re-derived from new geometry, got %v", got.Centroid)
	}
}

// TestSubscribe_SelectionEvents verifies select, clear and removal notifications.
func TestSubscribe_SelectionEvents(t *testing.T) {
	s := newTestStore(t)
	p := mustAdd(t, s, validPolygon())

	var got []string
	unsubscribe := s.Subscribe(func(e polygonstore.Event) {
		if e.Kind == polygonstore.SelectionChanged {
			got = append(got, e.PolygonID)
		}
	})

	_ = s.Select(p.ID)
	s.ClearSelection()
	_ = s.Select(p.ID)
	_, _ = s.Remove(p.ID)
	unsubscribe()
	mustAdd(t, s, validPolygon())
	_ = s.Select("poly-2")

	want := []string{p.ID, "", p.ID, ""}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected events %v, got %v", want, got)
	}
}

// TestUpdateVisiblePolygons verifies the cached visible subset and its render cap.
func TestUpdateVisiblePolygons(t *testing.T) {
	s := newTestStore(t, polygonstore.WithMaxRender(2))
	for i := 0; i < 3; i++ {
		p := validPolygon()
		p.Centroid = []float64{1, float64(i)}
		mustAdd(t, s, p)
	}
	b := polygonstore.Bounds{North: 5, South: 0, East: 5, West: 0}

	visible := s.UpdateVisiblePolygons(b)

	if len(visible) != 2 {
		t.Errorf("expected render cap of 2, got %d", len(visible))
	}
	if got, ok := s.LoadedBounds(); !ok || got != b {
		t.Errorf("expected loaded bounds %+v, got %+v", b, got)
	}
	mustAdd(t, s, validPolygon())
	if len(s.VisiblePolygons()) != 2 {
		t.Error("expected visible cache to change only on explicit recompute")
	}
}

func TestFiltered(t *testing.T) {
	s := newTestStore(t)
	for _, sev := range []polygonstore.Severity{polygonstore.SeverityLow, polygonstore.SeverityHigh, polygonstore.SeverityCritical} {
		p := validPolygon()
		p.Properties.Severity = sev
		mustAdd(t, s, p)
	}
	minArea := 10.0

	f := polygonstore.Filter{
		Severities: []polygonstore.Severity{polygonstore.SeverityHigh, polygonstore.SeverityCritical},
		MinArea:    &minArea,
	}
	if got := s.FilteredStats(f).TotalCount; got != 2 {
		t.Errorf("expected 2 filtered polygons, got %d", got)
	}

	minArea = 20
	if got := len(s.Filtered(f)); got != 0 {
		t.Errorf("expected area filter to exclude all, got %d", got)
	}
}

func TestStyle(t *testing.T) {
	s := newTestStore(t)
	p := mustAdd(t, s, validPolygon())

	base := s.Style(p)
	if base.Color != "#f97316" {
		t.Errorf("expected high severity color, got %q", base.Color)
	}
	_ = s.Select(p.ID)
	if sel := s.Style(p); sel.Weight != 4 || sel.FillColor != "#f97316" {
		t.Errorf("expected selected overlay on severity style, got %+v", sel)
	}
}

func TestLoadPolygons_BackfillsIDsWithoutValidation(t *testing.T) {
	s := newTestStore(t)
	s.LoadPolygons([]polygonstore.Polygon{
		{Properties: polygonstore.Properties{Severity: "extreme"}},
		{ID: "kept"},
	})

	if s.Len() != 2 {
		t.Fatalf("expected 2 loaded polygons, got %d", s.Len())
	}
	if _, ok := s.Get("poly-1"); !ok {
		t.Error("expected backfilled id poly-1")
	}
	s.ClearAll()
	if s.Len() != 0 || s.Stats().TotalCount != 0 {
		t.Error("expected ClearAll to empty the store")
	}
}

// TestLoadPolygons_DropsStateOfVanishedIDs verifies that hover, edit and
// validation state of replaced polygons does not survive a reload.
func TestLoadPolygons_DropsStateOfVanishedIDs(t *testing.T) {
	s := newTestStore(t)
	gone := mustAdd(t, s, validPolygon())
	kept := mustAdd(t, s, validPolygon())

	bad := polygonstore.NewPolygonGeometry(orb.Ring{{0, 0}, {1, 1}})
	if _, err := s.Update(gone.ID, polygonstore.Patch{Geometry: bad}); err == nil {
		t.Fatal("expected update to be rejected")
	}
	if len(s.ValidationErrors(gone.ID)) == 0 {
		t.Fatal("expected validation errors to be recorded")
	}
	s.SetHovered(gone.ID)
	if err := s.StartEditing(gone.ID); err != nil {
		t.Fatalf("StartEditing: %v", err)
	}

	s.LoadPolygons([]polygonstore.Polygon{kept})

	if s.Hovered() != "" {
		t.Errorf("expected hover cleared, got %q", s.Hovered())
	}
	if s.IsEditing() || s.EditingTarget() != "" {
		t.Errorf("expected edit mode cleared, target %q", s.EditingTarget())
	}
	if errs := s.ValidationErrors(gone.ID); len(errs) != 0 {
		t.Errorf("expected validation errors dropped, got %v", errs)
	}
	if _, ok := s.Selected(); ok {
		t.Error("expected selection cleared")
	}
}

// TestLoadPolygons_KeepsStateOfRemainingIDs verifies that a reload containing
// the hovered and edited polygon leaves that state alone.
func TestLoadPolygons_KeepsStateOfRemainingIDs(t *testing.T) {
	s := newTestStore(t)
	p := mustAdd(t, s, validPolygon())
	s.SetHovered(p.ID)
	if err := s.StartEditing(p.ID); err != nil {
		t.Fatalf("StartEditing: %v", err)
	}

	s.LoadPolygons([]polygonstore.Polygon{p})

	if s.Hovered() != p.ID || s.EditingTarget() != p.ID {
		t.Errorf("expected state kept, hovered %q editing %q", s.Hovered(), s.EditingTarget())
	}
}

// TestStats_ReturnsCopy verifies that callers and listeners cannot modify the
// cached statistics.
func TestStats_ReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	var seen []polygonstore.Stats
	s.Subscribe(func(e polygonstore.Event) {
		if e.Kind == polygonstore.PolygonsChanged {
			e.Stats.SeverityDistribution["high"] = 99
			e.Stats.CauseDistribution["logging"] = 99
			if len(e.Stats.MonthlyTrends) > 0 {
				e.Stats.MonthlyTrends[0].Count = 99
			}
			seen = append(seen, e.Stats)
		}
	})
	mustAdd(t, s, validPolygon())
	if len(seen) != 1 {
		t.Fatalf("expected one change event, got %d", len(seen))
	}

	st := s.Stats()
	st.SeverityDistribution["low"] = 99
	st.MonthlyTrends[0].Area = -1

	again := s.Stats()
	if again.SeverityDistribution["low"] != 0 || again.SeverityDistribution["high"] != 1 {
		t.Errorf("severity distribution leaked: %v", again.SeverityDistribution)
	}
	if again.CauseDistribution["logging"] != 1 {
		t.Errorf("cause distribution leaked: %v", again.CauseDistribution)
	}
	if again.MonthlyTrends[0].Count != 1 || again.MonthlyTrends[0].Area != 12.5 {
		t.Errorf("monthly trends leaked: %+v", again.MonthlyTrends)
	}
}

// TestStatsByTimeRange_FallsBackToCreatedAt verifies that polygons without a
// usable detection date are placed by their creation time.
func TestStatsByTimeRange_FallsBackToCreatedAt(t *testing.T) {
	old := fixedNow.AddDate(-1, 0, 0)
	polygons := []polygonstore.Polygon{
		{CreatedAt: fixedNow.AddDate(0, 0, -3)},
		{CreatedAt: fixedNow.AddDate(0, 0, -2), Properties: polygonstore.Properties{DetectedDate: "soon"}},
		{CreatedAt: old},
		{CreatedAt: fixedNow, Properties: polygonstore.Properties{DetectedDate: "2020-01-01"}},
		{},
	}

	if got := polygonstore.StatsByTimeRange(polygons, 30, fixedNow).TotalCount; got != 2 {
		t.Errorf("expected 2 polygons placed by creation time, got %d", got)
	}
}

// TestAnalyze_UnknownID verifies the not-found error for an id the store lacks.
func TestAnalyze_UnknownID(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Analyze("missing"); !errors.Is(err, polygonstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestAnalyze_DegenerateRing verifies that a four point ring with only two
// distinct vertices cannot be analysed and leaves no cached result.
func TestAnalyze_DegenerateRing(t *testing.T) {
	s := newTestStore(t)
	s.LoadPolygons([]polygonstore.Polygon{{
		ID:       "flat",
		Geometry: polygonstore.NewPolygonGeometry(orb.Ring{{0, 0}, {1, 1}, {0, 0}, {0, 0}}),
	}})

	if _, err := s.Analyze("flat"); !errors.Is(err, geometry.ErrDegenerate) {
		t.Errorf("expected ErrDegenerate, got %v", err)
	}
	if _, ok := s.Analysis("flat"); ok {
		t.Error("expected no cached analysis")
	}
}

// TestAnalysis_StaleAfterUpdate verifies that the cached result is not
// recomputed when the geometry changes.
func TestAnalysis_StaleAfterUpdate(t *testing.T) {
	s := newTestStore(t)
	p := mustAdd(t, s, validPolygon())

	first, err := s.Analyze(p.ID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	bigger := polygonstore.NewPolygonGeometry(squareAt(101.5, 3.1, 0.05))
	if _, err := s.Update(p.ID, polygonstore.Patch{Geometry: bigger}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	cached, ok := s.Analysis(p.ID)
	if !ok || cached != first {
		t.Errorf("expected the earlier result to be kept, got %+v", cached)
	}
	fresh, err := s.Analyze(p.ID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if fresh.Area <= first.Area {
		t.Errorf("expected a larger area after re-analysis, got %f <= %f", fresh.Area, first.Area)
	}
}
