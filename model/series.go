package model

import (
	"golang.org/x/exp/constraints"
)

// Series is an ordered sequence of observed values, oldest first.
type Series[T constraints.Ordered] []T

// Values returns the values of the series
func (s Series[T]) Values() []T {
	return s
}

// Length returns the number of values in the series
func (s Series[T]) Length() int {
	return len(s)
}

// Last returns the last value of the series given a past index position
func (s Series[T]) Last(position int) T {
	return s[len(s)-1-position]
}

// LastValues returns the last values of the series given a size
func (s Series[T]) LastValues(size int) []T {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

// Min returns the smallest value in the series. Zero value when empty.
func (s Series[T]) Min() T {
	var min T
	if len(s) == 0 {
		return min
	}
	min = s[0]
	for _, value := range s[1:] {
		if value < min {
			min = value
		}
	}
	return min
}

// Max returns the largest value in the series. Zero value when empty.
func (s Series[T]) Max() T {
	var max T
	if len(s) == 0 {
		return max
	}
	max = s[0]
	for _, value := range s[1:] {
		if value > max {
			max = value
		}
	}
	return max
}
