package model

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe names one of the independently retained history granularities.
// Each series stands alone; none is a rollup of another.
type Timeframe string

const (
	TimeframeHour  Timeframe = "1H"
	TimeframeDay   Timeframe = "1D"
	TimeframeWeek  Timeframe = "7D"
	TimeframeMonth Timeframe = "30D"
)

// Timeframes returns all supported granularities in backfill order.
func Timeframes() []Timeframe {
	return []Timeframe{TimeframeHour, TimeframeDay, TimeframeWeek, TimeframeMonth}
}

// Span is the lookback window covered by one backfill of this timeframe.
func (t Timeframe) Span() time.Duration {
	switch t {
	case TimeframeHour:
		return time.Hour
	case TimeframeDay:
		return 24 * time.Hour
	case TimeframeWeek:
		return 7 * 24 * time.Hour
	case TimeframeMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// Valid reports whether t is one of the supported granularities.
func (t Timeframe) Valid() bool {
	return t.Span() > 0
}

// ParseTimeframe normalises user input ("1h", "7D") into a Timeframe.
func ParseTimeframe(raw string) (Timeframe, error) {
	t := Timeframe(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("unsupported timeframe %q", raw)
	}
	return t, nil
}
