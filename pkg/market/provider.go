package market

import (
	"context"
	"time"
)

// Provider exposes normalized market data from an external quote service.
type Provider interface {
	// ListQuotes returns the top-ranked coin quotes, at most limit entries.
	// Entries are returned as delivered by the provider; callers are expected
	// to drop records without a usable code or rate.
	ListQuotes(ctx context.Context, limit int) ([]Quote, error)
	// History returns the historical rate series for one coin over the
	// window [start, end].
	History(ctx context.Context, code string, start, end time.Time) ([]HistoryPoint, error)
}

// Quote is the current best-known market state for one coin.
type Quote struct {
	Code              string   // Short instrument code, e.g. "BTC"
	Name              string   // Display name; may be empty when the provider omits it
	Rate              float64  // Current unit price; zero marks an unusable record
	Volume            float64  // 24h trading volume
	Cap               *float64 // Market capitalization, if reported
	Delta             DeltaSet // Multiplicative price ratios per lookback window
	TotalSupply       *float64
	CirculatingSupply *float64
	MaxSupply         *float64
}

// DeltaSet carries per-window price ratios (new/old, not percentages).
// A nil entry means the provider did not report that window.
type DeltaSet struct {
	Hour    *float64
	Day     *float64
	Week    *float64
	Month   *float64
	Quarter *float64
	Year    *float64
}

// HistoryPoint is one sample of a coin's historical rate series.
type HistoryPoint struct {
	Date int64   // Sample time in epoch milliseconds
	Rate float64 // Unit price at that time
}
