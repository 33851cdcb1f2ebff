package polygonstore

import (
	"sort"
	"time"
)

type MonthlyTrend struct {
	Month string  `json:"month"` // YYYY-MM
	Count int     `json:"count"`
	Area  float64 `json:"area"`
}

// Stats is always rebuilt from the full collection.
type Stats struct {
	TotalCount           int            `json:"totalCount"`
	TotalArea            float64        `json:"totalArea"`
	AverageArea          float64        `json:"averageArea"`
	SeverityDistribution map[string]int `json:"severityDistribution"`
	CauseDistribution    map[string]int `json:"causeDistribution"`
	MonthlyTrends        []MonthlyTrend `json:"monthlyTrends"`
}

// Clone copies the distributions and trends so the caller may modify them.
func (st Stats) Clone() Stats {
	out := st
	out.SeverityDistribution = make(map[string]int, len(st.SeverityDistribution))
	for k, v := range st.SeverityDistribution {
		out.SeverityDistribution[k] = v
	}
	out.CauseDistribution = make(map[string]int, len(st.CauseDistribution))
	for k, v := range st.CauseDistribution {
		out.CauseDistribution[k] = v
	}
	out.MonthlyTrends = append([]MonthlyTrend{}, st.MonthlyTrends...)
	return out
}

func Recompute(polygons []Polygon) Stats {
	st := Stats{
		TotalCount:           len(polygons),
		SeverityDistribution: make(map[string]int),
		CauseDistribution:    make(map[string]int),
		MonthlyTrends:        []MonthlyTrend{},
	}
	months := make(map[string]*MonthlyTrend)

	for _, p := range polygons {
		area := p.Properties.AreaValue()
		st.TotalArea += area

		sev := string(p.Properties.Severity)
		if sev == "" {
			sev = "unknown"
		}
		st.SeverityDistribution[sev]++

		cause := string(p.Properties.Cause)
		if cause == "" {
			cause = "unknown"
		}
		st.CauseDistribution[cause]++

		if t, ok := ParseDate(p.Properties.DetectedDate); ok {
			key := t.Format("2006-01")
			m, ok := months[key]
			if !ok {
				m = &MonthlyTrend{Month: key}
				months[key] = m
			}
			m.Count++
			m.Area += area
		}
	}

	if st.TotalCount > 0 {
		st.AverageArea = st.TotalArea / float64(st.TotalCount)
	}
	for _, m := range months {
		st.MonthlyTrends = append(st.MonthlyTrends, *m)
	}
	sort.Slice(st.MonthlyTrends, func(i, j int) bool {
		return st.MonthlyTrends[i].Month < st.MonthlyTrends[j].Month
	})
	return st
}

// StatsByTimeRange aggregates the polygons detected within the last days days.
// A polygon without a usable detection date is placed by its creation time.
func StatsByTimeRange(polygons []Polygon, days int, now time.Time) Stats {
	cutoff := now.AddDate(0, 0, -days)
	recent := make([]Polygon, 0, len(polygons))
	for _, p := range polygons {
		t, ok := ParseDate(p.Properties.DetectedDate)
		if !ok {
			t, ok = p.CreatedAt, !p.CreatedAt.IsZero()
		}
		if ok && !t.Before(cutoff) && !t.After(now) {
			recent = append(recent, p)
		}
	}
	return Recompute(recent)
}
