package model

import (
	"fmt"
	"strings"
	"time"
)

// Period identifies a candle bucket width.
type Period string

const (
	// NoPeriod defines a missing period.
	NoPeriod Period = ""
	// Min1 is the one minute period.
	Min1 Period = "1min"
	// Min3 is the three minute period.
	Min3 Period = "3min"
	// Min5 is the five minute period.
	Min5 Period = "5min"
	// Min15 is the fifteen minute period.
	Min15 Period = "15min"
	// Min30 is the thirty minute period.
	Min30 Period = "30min"
	// Hour1 is the one hour period.
	Hour1 Period = "1h"
)

// periods is the data-driven period table.
// Bucket truncation and buffer sizing dispatch on this, not on types.
var periods = map[Period]struct {
	minutes int
}{
	Min1:  {minutes: 1},
	Min3:  {minutes: 3},
	Min5:  {minutes: 5},
	Min15: {minutes: 15},
	Min30: {minutes: 30},
	Hour1: {minutes: 60},
}

// Periods returns the supported periods ordered by width.
func Periods() []Period {
	return []Period{Min1, Min3, Min5, Min15, Min30, Hour1}
}

// ParsePeriod parses a period code, accepting both the short and the long
// minute suffix, e.g. '3m' and '3min'.
func ParsePeriod(val string) (Period, error) {
	v := strings.ToLower(strings.TrimSpace(val))
	if strings.HasSuffix(v, "m") && !strings.HasSuffix(v, "min") {
		v = v + "in"
	}
	p := Period(v)
	if _, ok := periods[p]; !ok {
		return NoPeriod, fmt.Errorf("unsupported period: %s", val)
	}
	return p, nil
}

// Minutes returns the bucket width in minutes.
func (p Period) Minutes() int {
	return periods[p].minutes
}

// Duration returns the bucket width.
func (p Period) Duration() time.Duration {
	return time.Duration(periods[p].minutes) * time.Minute
}

// TickBufferSize returns the raw tick ring capacity for the period,
// enough for several bucket widths at roughly five ticks per second.
func (p Period) TickBufferSize() int {
	return periods[p].minutes * 60 * 5
}

// Truncate floors the given time to the start of its bucket.
func (p Period) Truncate(t time.Time) time.Time {
	min := periods[p].minutes
	switch {
	case min <= 0:
		return t
	case min < 60:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()-t.Minute()%min, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	}
}

func (p Period) String() string {
	return string(p)
}
