package polygonstore

import (
	"math"
	"time"

	"github.com/paulmach/orb"
)

type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses the date formats accepted for detectedDate and estimatedDate.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validate runs every rule and collects all failures.
func Validate(p Polygon) ValidationResult {
	var errs []string

	if p.Geometry == nil {
		errs = append(errs, "Geometry is required")
	} else if poly, ok := p.Geometry.Coordinates.(orb.Polygon); !ok {
		errs = append(errs, "Invalid geometry coordinates")
	} else if len(poly) == 0 || len(poly[0]) < 4 {
		errs = append(errs, "Polygon must have at least 4 coordinate points")
	}

	props := p.Properties
	if props.Severity != "" && !props.Severity.Valid() {
		errs = append(errs, "Invalid severity level")
	}
	if props.Cause != "" && !props.Cause.Valid() {
		errs = append(errs, "Invalid cause")
	}
	if props.DetectedDate != "" {
		if _, ok := ParseDate(props.DetectedDate); !ok {
			errs = append(errs, "Invalid detection date")
		}
	}
	if props.EstimatedDate != "" {
		if _, ok := ParseDate(props.EstimatedDate); !ok {
			errs = append(errs, "Invalid estimated date")
		}
	}
	if a := props.Area; a != nil && (math.IsNaN(*a) || math.IsInf(*a, 0) || *a < 0) {
		errs = append(errs, "Area must be a positive number")
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
