package core

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySeries      = errors.New("series has no bars")
	ErrUnorderedSeries  = errors.New("series timestamps must be strictly increasing")
	ErrUnknownTransform = errors.New("unknown transform")
	ErrInvalidChartType = errors.New("invalid chart type")
	ErrTooManyPoints    = errors.New("selection holds at most two points")
	ErrBusStopped       = errors.New("sync bus stopped")
)

// RangeError reports a requested range that does not overlap the data.
type RangeError struct {
	Requested TimeRange
	Span      TimeRange
	Reason    string
}

func (e *RangeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("range %s: %s", e.Requested, e.Reason)
	}
	return fmt.Sprintf("range %s does not intersect series span %s", e.Requested, e.Span)
}

// DomainError reports a parameter value outside its declared domain.
type DomainError struct {
	Name   string
	Value  any
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("parameter %s: value %v out of domain: %s", e.Name, e.Value, e.Reason)
}

type UnknownParameterError struct {
	Name string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("unknown parameter: %s", e.Name)
}

// TransformError scopes a failed overlay computation to one transform and
// the window it ran on.
type TransformError struct {
	TransformID string
	Range       TimeRange
	Err         error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s on %s: %v", e.TransformID, e.Range, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// IncompleteSelectionError is returned when a P&L needs two points and the
// selection holds fewer. Panels show a neutral state for it.
type IncompleteSelectionError struct {
	Points int
}

func (e *IncompleteSelectionError) Error() string {
	return fmt.Sprintf("selection has %d of 2 points", e.Points)
}

type InvalidSizeError struct {
	Size float64
}

func (e *InvalidSizeError) Error() string {
	return fmt.Sprintf("position size must be positive, got %v", e.Size)
}
