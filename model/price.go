package model

import (
	"fmt"
	"time"
)

// PricePoint is one observed price at a moment in time. Immutable once created.
type PricePoint struct {
	Time  time.Time
	Value float64
}

// PriceSnapshot is the complete result of one fetch cycle, keyed by canonical
// symbol ID. A symbol is either present with a fresh point or absent entirely;
// a snapshot never carries a partial overwrite from another in-flight fetch.
type PriceSnapshot map[string]PricePoint

// Filter returns a new snapshot reduced to the given canonical IDs.
func (s PriceSnapshot) Filter(ids []string) PriceSnapshot {
	out := make(PriceSnapshot, len(ids))
	for _, id := range ids {
		if point, ok := s[id]; ok {
			out[id] = point
		}
	}
	return out
}

// Timeframe selects the span of a historical series request.
type Timeframe string

const (
	TimeframeDay     Timeframe = "1d"
	TimeframeWeek    Timeframe = "7d"
	TimeframeMonth   Timeframe = "30d"
	TimeframeQuarter Timeframe = "90d"
	TimeframeYear    Timeframe = "365d"
)

// Days returns the number of days the timeframe covers.
func (t Timeframe) Days() int {
	switch t {
	case TimeframeDay:
		return 1
	case TimeframeWeek:
		return 7
	case TimeframeMonth:
		return 30
	case TimeframeQuarter:
		return 90
	case TimeframeYear:
		return 365
	}
	return 1
}

// ParseTimeframe maps a config/CLI string onto a known Timeframe.
func ParseTimeframe(value string) (Timeframe, error) {
	switch Timeframe(value) {
	case TimeframeDay, TimeframeWeek, TimeframeMonth, TimeframeQuarter, TimeframeYear:
		return Timeframe(value), nil
	}
	return "", fmt.Errorf("unknown timeframe: %s", value)
}
