package core

import (
	"golang.org/x/exp/constraints"
)

// Values is an ordered column of values, typically one field of a Series.
type Values[T constraints.Ordered] []T

// Length returns the number of values.
func (v Values[T]) Length() int {
	return len(v)
}

// Last returns the value at a position from the end; 0 is the last value.
func (v Values[T]) Last(position int) T {
	return v[len(v)-1-position]
}

// LastValues returns the trailing size values, or all of them when size
// exceeds the length.
func (v Values[T]) LastValues(size int) Values[T] {
	if l := len(v); l > size {
		return v[l-size:]
	}
	return v
}

// Max returns the largest value. It panics on an empty column.
func (v Values[T]) Max() T {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// Min returns the smallest value. It panics on an empty column.
func (v Values[T]) Min() T {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
