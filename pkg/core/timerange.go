package core

import (
	"fmt"
	"time"
)

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewRange(start, end time.Time) TimeRange {
	return TimeRange{Start: start, End: end}
}

// Empty reports whether the range contains no instant.
func (r TimeRange) Empty() bool {
	return !r.Start.Before(r.End)
}

func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Intersect returns the overlap of r and o, and false when they do not overlap.
func (r TimeRange) Intersect(o TimeRange) (TimeRange, bool) {
	out := r
	if o.Start.After(out.Start) {
		out.Start = o.Start
	}
	if o.End.Before(out.End) {
		out.End = o.End
	}
	if out.Empty() {
		return TimeRange{}, false
	}
	return out, true
}

// Within reports whether r lies entirely inside o.
func (r TimeRange) Within(o TimeRange) bool {
	return !r.Start.Before(o.Start) && !r.End.After(o.End)
}

func (r TimeRange) Equal(o TimeRange) bool {
	return r.Start.Equal(o.Start) && r.End.Equal(o.End)
}

func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.UTC().Format(time.RFC3339), r.End.UTC().Format(time.RFC3339))
}

// Point is a chart coordinate: a timestamp and the price (or value) at it.
type Point struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}
