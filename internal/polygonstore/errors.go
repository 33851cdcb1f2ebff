package polygonstore

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("polygon not found")
	ErrDuplicateID         = errors.New("polygon id already exists")
	ErrModeConflict        = errors.New("drawing and editing cannot be active at the same time")
	ErrNotDrawing          = errors.New("drawing is not active")
	ErrInvalidDrawMode     = errors.New("invalid drawing mode")
	ErrEmptyDrawing        = errors.New("no geometry to finish drawing with")
	ErrNoGeometry          = errors.New("polygon has no ring to analyze")
	ErrOperationInProgress = errors.New("operation already in progress")
	ErrNoGateway           = errors.New("no persistence gateway configured")
)

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// ValidationError carries every message produced by Validate.
type ValidationError struct {
	PolygonID string
	Errors    []string
}

func (e *ValidationError) Error() string {
	return "invalid polygon: " + strings.Join(e.Errors, "; ")
}

type ItemFailure struct {
	PolygonID string
	Err       error
}

// BulkError lists the ids a bulk operation could not process. The ids that
// did succeed are committed regardless.
type BulkError struct {
	Operation Operation
	Failures  []ItemFailure
}

func (e *BulkError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.PolygonID, f.Err))
	}
	return fmt.Sprintf("%s failed for %d polygon(s): %s", e.Operation, len(e.Failures), strings.Join(parts, "; "))
}

func (e *BulkError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
