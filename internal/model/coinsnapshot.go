package model

import "time"

// CoinSnapshot is the single current best-known quote for one instrument,
// keyed by its short code. Exactly one row exists per code; every successful
// live sync cycle overwrites all mutable fields (last-writer-wins).
type CoinSnapshot struct {
	Code              string
	Name              string
	Rate              float64
	Volume            float64
	Cap               *float64
	DeltaHour         *float64
	DeltaDay          *float64
	DeltaWeek         *float64
	DeltaMonth        *float64
	DeltaQuarter      *float64
	DeltaYear         *float64
	TotalSupply       *float64
	CirculatingSupply *float64
	MaxSupply         *float64
	LastUpdated       time.Time
}

// PricePoint is one sample of the append-only history series. The triple
// (TokenCode, Timestamp, Timeframe) is unique; inserts of an existing key are
// silent no-ops. Synthetic marks points fabricated from the live rate between
// authentic provider backfills.
type PricePoint struct {
	TokenCode string
	Timestamp int64 // epoch milliseconds
	Price     float64
	Timeframe Timeframe
	Synthetic bool
}
