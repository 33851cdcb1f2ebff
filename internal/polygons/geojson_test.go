package polygons_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/forestlens/mspo-maps/internal/polygons"
)

// TestExport verifies that the caller's polygons come back as a FeatureCollection
// carrying only the fixed column properties. Stored free-form properties stay out.
func TestExport(t *testing.T) {
	p := seedPolygon("p1", "user-1", 7)
	p.Properties = []byte(`{"severity":"low","state":"stale"}`)
	store := newFakeStore(p, seedPolygon("p2", "user-2", 8))

	rec, env := do(t, newServer(store, "user-1"), http.MethodGet, "/api/polygons/export/geojson", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Type       string                 `json:"type"`
			ID         string                 `json:"id"`
			Properties map[string]interface{} `json:"properties"`
			Geometry   json.RawMessage        `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(env.Data, &fc); err != nil {
		t.Fatalf("decode collection: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 {
		t.Fatalf("expected a single-feature collection, got %s", env.Data)
	}

	f := fc.Features[0]
	if f.ID != "p1" || f.Type != "Feature" {
		t.Errorf("unexpected feature header %q %q", f.Type, f.ID)
	}
	if f.Properties["state"] != "Johor" {
		t.Errorf("unexpected state %v", f.Properties["state"])
	}
	if _, ok := f.Properties["severity"]; ok || len(f.Properties) != 9 {
		t.Errorf("expected only the column properties, got %v", f.Properties)
	}
	if f.Properties["object_id"] != float64(7) || f.Properties["created_at"] != "2024-01-02T03:04:05.000Z" {
		t.Errorf("unexpected object_id/created_at %v %v", f.Properties["object_id"], f.Properties["created_at"])
	}
	if !strings.Contains(string(f.Geometry), `"Polygon"`) {
		t.Errorf("expected verbatim geometry, got %s", f.Geometry)
	}
}

func postImport(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, polygons.ImportResult) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/polygons/import/geojson", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var res polygons.ImportResult
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	return rec, res
}

// TestImport_PartialFailure verifies per-feature processing: defaults, running
// object ids, centroid derivation and zero-based error indexes.
func TestImport_PartialFailure(t *testing.T) {
	store := newFakeStore(seedPolygon("p1", "user-1", 7))
	body := `{"geojson":{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"license_no":"A-1","severity":"high"},"geometry":{"type":"Polygon","coordinates":[[[100,0],[102,0],[102,2],[100,2],[100,0]]]}},
		{"type":"Feature","properties":{},"geometry":null},
		{"type":"Feature","properties":{"object_id":50,"longitude":500},"geometry":{"type":"Point","coordinates":[1,2]}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[101,1]}}
	]}}`

	rec, res := postImport(t, newServer(store, "user-1"), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", rec.Code, rec.Body.String())
	}
	if !res.Success || res.Imported != 2 || res.Message != "Successfully imported 2 polygon(s)" {
		t.Errorf("unexpected result %+v", res)
	}

	wantErrs := []string{
		"Feature 1: The geometry field is required.",
		"Feature 2: The longitude field must be between -180 and 180.",
	}
	if len(res.Errors) != len(wantErrs) {
		t.Fatalf("expected %d errors, got %v", len(wantErrs), res.Errors)
	}
	for i, want := range wantErrs {
		if res.Errors[i] != want {
			t.Errorf("error %d: expected %q, got %q", i, want, res.Errors[i])
		}
	}

	byObject := make(map[int64]polygons.Polygon)
	for _, p := range store.polys {
		byObject[p.ObjectID] = p
	}

	first, ok := byObject[8]
	if !ok {
		t.Fatalf("expected the first feature to take object_id 8, have %v", byObject)
	}
	if first.LicenseNo != "A-1" || first.SmallholderName != "Imported Feature" || first.State != "UNKNOWN" {
		t.Errorf("unexpected defaults %+v", first)
	}
	if string(first.Centroid) != "[1,101]" {
		t.Errorf("expected centroid [1,101], got %s", first.Centroid)
	}
	if !strings.Contains(string(first.Properties), `"severity":"high"`) {
		t.Errorf("expected extra properties kept, got %s", first.Properties)
	}

	last, ok := byObject[9]
	if !ok {
		t.Fatalf("expected the last feature to take object_id 9, have %v", byObject)
	}
	if string(last.Centroid) != "[0,0]" || last.LicenseNo != "IMPORTED" {
		t.Errorf("expected point centroid [0,0] and IMPORTED, got %s %q", last.Centroid, last.LicenseNo)
	}
}

func TestImport_InvalidCollection(t *testing.T) {
	h := newServer(newFakeStore(), "user-1")

	rec, env := do(t, h, http.MethodPost, "/api/polygons/import/geojson", `{"geojson":{"type":"Feature","features":[]}}`)
	if rec.Code != http.StatusUnprocessableEntity || env.Message != "Invalid GeoJSON format" {
		t.Fatalf("expected 422 Invalid GeoJSON format, got %d %q", rec.Code, env.Message)
	}
	if _, ok := env.Errors["geojson.type"]; !ok {
		t.Errorf("expected a geojson.type error, got %v", env.Errors)
	}

	rec, env = do(t, h, http.MethodPost, "/api/polygons/import/geojson", `{"geojson":"nope"}`)
	if rec.Code != http.StatusUnprocessableEntity || len(env.Errors["geojson"]) == 0 {
		t.Errorf("expected 422 with a geojson error, got %d %v", rec.Code, env.Errors)
	}
}

// TestImport_BareCollection verifies that an unwrapped FeatureCollection is accepted.
func TestImport_BareCollection(t *testing.T) {
	rec, res := postImport(t, newServer(newFakeStore(), "user-1"), `{"type":"FeatureCollection","features":[]}`)
	if rec.Code != http.StatusOK || res.Imported != 0 || res.Message != "Successfully imported 0 polygon(s)" {
		t.Errorf("unexpected response %d %+v", rec.Code, res)
	}
	if res.Errors == nil {
		t.Error("expected an empty errors array, not null")
	}
}
