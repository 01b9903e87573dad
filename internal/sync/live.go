package sync

import (
	"context"
	"strings"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"coinboard-api/internal/model"
	"coinboard-api/internal/repo"
	marketpkg "coinboard-api/pkg/market"
)

const defaultQuoteTimeout = 8 * time.Second

// LiveSyncer keeps the coin_snapshots table current by polling the provider's
// top-N list on a fixed cadence. Cycles never overlap: if a cycle is still in
// flight when the next tick fires, the tick is skipped rather than queued.
type LiveSyncer struct {
	provider  marketpkg.Provider
	snapshots repo.SnapshotsRepo
	interval  time.Duration
	topN      int

	busy      gosync.Mutex
	running   atomic.Bool
	lastCycle atomic.Int64 // unix ms of last completed cycle
}

func NewLiveSyncer(provider marketpkg.Provider, snapshots repo.SnapshotsRepo, interval time.Duration, topN int) *LiveSyncer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if topN <= 0 {
		topN = 100
	}
	return &LiveSyncer{
		provider:  provider,
		snapshots: snapshots,
		interval:  interval,
		topN:      topN,
	}
}

// Run blocks until the context is cancelled, executing one cycle immediately
// and then one per tick.
func (s *LiveSyncer) Run(ctx context.Context) {
	if s == nil || s.provider == nil || s.snapshots == nil {
		return
	}
	s.tick(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *LiveSyncer) tick(ctx context.Context) {
	if !s.busy.TryLock() {
		logx.WithContext(ctx).Infof("live sync: previous cycle still running, skipping tick")
		return
	}
	defer s.busy.Unlock()

	s.running.Store(true)
	defer s.running.Store(false)

	if err := s.runCycle(ctx); err != nil {
		if ctx.Err() == nil {
			logx.WithContext(ctx).Errorf("live sync: cycle failed: %v", err)
		}
		return
	}
	s.lastCycle.Store(time.Now().UnixMilli())
}

// RunCycle executes exactly one fetch-and-upsert pass, honouring the same
// busy guard as the background loop.
func (s *LiveSyncer) RunCycle(ctx context.Context) error {
	if !s.busy.TryLock() {
		return nil
	}
	defer s.busy.Unlock()

	s.running.Store(true)
	defer s.running.Store(false)

	if err := s.runCycle(ctx); err != nil {
		return err
	}
	s.lastCycle.Store(time.Now().UnixMilli())
	return nil
}

// runCycle fetches the top-N quotes and upserts one snapshot row per usable
// quote. A provider error abandons the whole cycle; a bad quote or a failed
// upsert only costs that one row.
func (s *LiveSyncer) runCycle(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, defaultQuoteTimeout)
	quotes, err := s.provider.ListQuotes(reqCtx, s.topN)
	cancel()
	if err != nil {
		return err
	}

	synced := 0
	for _, quote := range quotes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		code := strings.ToUpper(strings.TrimSpace(quote.Code))
		if code == "" || quote.Rate <= 0 {
			continue
		}
		snap := &model.CoinSnapshot{
			Code:              code,
			Name:              displayName(code, quote.Name),
			Rate:              quote.Rate,
			Volume:            quote.Volume,
			Cap:               quote.Cap,
			DeltaHour:         quote.Delta.Hour,
			DeltaDay:          quote.Delta.Day,
			DeltaWeek:         quote.Delta.Week,
			DeltaMonth:        quote.Delta.Month,
			DeltaQuarter:      quote.Delta.Quarter,
			DeltaYear:         quote.Delta.Year,
			TotalSupply:       quote.TotalSupply,
			CirculatingSupply: quote.CirculatingSupply,
			MaxSupply:         quote.MaxSupply,
		}
		if err := s.snapshots.Upsert(ctx, snap); err != nil {
			logx.WithContext(ctx).Errorf("live sync: upsert %s: %v", code, err)
			continue
		}
		synced++
	}
	logx.WithContext(ctx).Infof("live sync: cycle complete, %d/%d quotes persisted", synced, len(quotes))
	return nil
}

// IsRunning reports whether a cycle is currently in flight.
func (s *LiveSyncer) IsRunning() bool {
	return s != nil && s.running.Load()
}

// LastCycle returns the completion time of the most recent successful cycle,
// zero if none has finished yet.
func (s *LiveSyncer) LastCycle() time.Time {
	if s == nil {
		return time.Time{}
	}
	ms := s.lastCycle.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
