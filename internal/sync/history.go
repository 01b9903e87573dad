package sync

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"coinboard-api/internal/config"
	"coinboard-api/internal/model"
	"coinboard-api/internal/repo"
	marketpkg "coinboard-api/pkg/market"
)

const defaultHistoryTimeout = 20 * time.Second

// HistorySyncer maintains the append-only price_history series for the
// tracked universe. Backfill pulls authentic provider series once per empty
// (code, timeframe) pair; the update loop appends one synthetic point per
// pair from the live rate, keeping charts moving between backfills.
type HistorySyncer struct {
	provider  marketpkg.Provider
	snapshots repo.SnapshotsRepo
	history   repo.HistoryRepo
	cfg       config.SyncConf

	rng     *rand.Rand
	running atomic.Bool
}

func NewHistorySyncer(provider marketpkg.Provider, snapshots repo.SnapshotsRepo, history repo.HistoryRepo, cfg config.SyncConf) *HistorySyncer {
	if cfg.UniverseLimit <= 0 {
		cfg.UniverseLimit = 100
	}
	if cfg.BackfillBatchSize <= 0 {
		cfg.BackfillBatchSize = 10
	}
	if cfg.UpdateBatchSize <= 0 {
		cfg.UpdateBatchSize = 20
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = time.Hour
	}
	return &HistorySyncer{
		provider:  provider,
		snapshots: snapshots,
		history:   history,
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// DiscoverUniverse selects up to UniverseLimit codes by market cap descending,
// skipping snapshots with no reported cap. The fixed major-coin list stands in
// only when the query itself fails; an empty result is an empty universe, so
// history is never written for codes the snapshot store has not seen.
func (s *HistorySyncer) DiscoverUniverse(ctx context.Context) []string {
	codes, err := s.snapshots.TrackedCodes(ctx, s.cfg.UniverseLimit)
	if err != nil {
		logx.WithContext(ctx).Errorf("history sync: universe discovery failed, using fallback: %v", err)
		return append([]string(nil), fallbackUniverse...)
	}
	if len(codes) == 0 {
		logx.WithContext(ctx).Infof("history sync: no tracked snapshots yet, nothing to backfill")
		return nil
	}
	return codes
}

// Backfill fetches the provider series for every timeframe whose local series
// is still empty. Timeframes that already hold points are never re-fetched,
// so re-running backfill is free. A failure on one timeframe is logged and the
// remaining timeframes still run; the still-empty series is retried on the
// next backfill pass. Provider calls are spaced by BackfillCallDelay to stay
// inside rate limits.
func (s *HistorySyncer) Backfill(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return errors.New("history sync: backfill requires a code")
	}

	now := time.Now()
	for _, timeframe := range model.Timeframes() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		called, err := s.backfillTimeframe(ctx, code, timeframe, now)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logx.WithContext(ctx).Errorf("history sync: backfill %s %s: %v", code, timeframe, err)
		}
		if called && !sleepWithContext(ctx, s.cfg.BackfillCallDelay) {
			return ctx.Err()
		}
	}
	return nil
}

// backfillTimeframe reports whether a provider call was made, so the caller
// paces only actual calls.
func (s *HistorySyncer) backfillTimeframe(ctx context.Context, code string, timeframe model.Timeframe, now time.Time) (bool, error) {
	populated, err := s.history.HasPoints(ctx, code, timeframe)
	if err != nil {
		return false, err
	}
	if populated {
		return false, nil
	}

	start := now.Add(-timeframe.Span())
	reqCtx, cancel := context.WithTimeout(ctx, defaultHistoryTimeout)
	raw, err := s.provider.History(reqCtx, code, start, now)
	cancel()
	if err != nil {
		return true, err
	}

	points := make([]model.PricePoint, 0, len(raw))
	for _, entry := range raw {
		if entry.Date <= 0 || entry.Rate <= 0 {
			continue
		}
		points = append(points, model.PricePoint{
			TokenCode: code,
			Timestamp: entry.Date,
			Price:     entry.Rate,
			Timeframe: timeframe,
			Synthetic: false,
		})
	}
	inserted, err := s.history.InsertPoints(ctx, points)
	if err != nil {
		return true, err
	}
	logx.WithContext(ctx).Infof("history sync: backfilled %s %s, %d points", code, timeframe, inserted)
	return true, nil
}

// Update appends one synthetic point per timeframe derived from the current
// snapshot rate. Each timeframe jitters the rate within its own band so the
// coarser series do not mirror the fine one tick for tick. Codes without a
// snapshot are skipped; they gain history once the live syncer has seen them.
func (s *HistorySyncer) Update(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	snap, err := s.snapshots.Get(ctx, code)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logx.WithContext(ctx).Infof("history sync: no snapshot for %s, skipping update", code)
			return nil
		}
		return err
	}
	if snap.Rate <= 0 {
		return nil
	}

	now := time.Now().UnixMilli()
	points := make([]model.PricePoint, 0, len(model.Timeframes()))
	for _, timeframe := range model.Timeframes() {
		points = append(points, model.PricePoint{
			TokenCode: code,
			Timestamp: now,
			Price:     s.jitterRate(snap.Rate, timeframe),
			Timeframe: timeframe,
			Synthetic: true,
		})
	}
	_, err = s.history.InsertPoints(ctx, points)
	return err
}

// jitterRate nudges the live rate by a uniform factor inside the timeframe's
// band: ±0.2% hourly, ±0.5% daily, ±1% weekly, ±2% monthly.
func (s *HistorySyncer) jitterRate(rate float64, timeframe model.Timeframe) float64 {
	var band float64
	switch timeframe {
	case model.TimeframeHour:
		band = 0.002
	case model.TimeframeDay:
		band = 0.005
	case model.TimeframeWeek:
		band = 0.01
	case model.TimeframeMonth:
		band = 0.02
	}
	return rate * (1 + band*(2*s.rng.Float64()-1))
}

// SyncAll backfills the whole discovered universe, pausing BackfillBatchPause
// after every BackfillBatchSize codes. A failure on one code is logged and the
// run continues with the next.
func (s *HistorySyncer) SyncAll(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)

	codes := s.DiscoverUniverse(ctx)
	failed := 0
	for i, code := range codes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.Backfill(ctx, code); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			logx.WithContext(ctx).Errorf("history sync: backfill %s: %v", code, err)
		}
		if (i+1)%s.cfg.BackfillBatchSize == 0 && i+1 < len(codes) {
			if !sleepWithContext(ctx, s.cfg.BackfillBatchPause) {
				return ctx.Err()
			}
		}
	}
	logx.WithContext(ctx).Infof("history sync: backfill run complete, %d/%d codes ok", len(codes)-failed, len(codes))
	return nil
}

// UpdateAll appends synthetic points for the whole universe, pausing
// UpdateBatchPause after every UpdateBatchSize codes.
func (s *HistorySyncer) UpdateAll(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)

	codes := s.DiscoverUniverse(ctx)
	for i, code := range codes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.Update(ctx, code); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logx.WithContext(ctx).Errorf("history sync: update %s: %v", code, err)
		}
		if (i+1)%s.cfg.UpdateBatchSize == 0 && i+1 < len(codes) {
			if !sleepWithContext(ctx, s.cfg.UpdateBatchPause) {
				return ctx.Err()
			}
		}
	}
	return nil
}

// Run blocks until the context is cancelled: one full backfill up front, then
// a synthetic update sweep per UpdateInterval tick when EnableUpdates is set.
func (s *HistorySyncer) Run(ctx context.Context) {
	if s == nil || s.provider == nil {
		return
	}
	if err := s.SyncAll(ctx); err != nil && ctx.Err() == nil {
		logx.WithContext(ctx).Errorf("history sync: initial backfill: %v", err)
	}
	if !s.cfg.EnableUpdates {
		logx.WithContext(ctx).Infof("history sync: updates disabled, backfill only")
		return
	}
	ticker := time.NewTicker(s.cfg.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.UpdateAll(ctx); err != nil && ctx.Err() == nil {
				logx.WithContext(ctx).Errorf("history sync: update sweep: %v", err)
			}
		}
	}
}

// IsRunning reports whether a backfill or update sweep is in flight.
func (s *HistorySyncer) IsRunning() bool {
	return s != nil && s.running.Load()
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
