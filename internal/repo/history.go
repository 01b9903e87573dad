package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "coinboard-api/internal/cache"
	"coinboard-api/internal/model"
)

// HistoryRepo owns the price_history table: append-only time series keyed by
// (token_code, ts_ms, timeframe). Writers never update existing points.
type HistoryRepo interface {
	// InsertPoints appends points, silently skipping any that collide with
	// an existing (token_code, ts_ms, timeframe) key. Returns how many rows
	// were actually written.
	InsertPoints(ctx context.Context, points []model.PricePoint) (int, error)
	// HasPoints reports whether the series already holds at least one point.
	HasPoints(ctx context.Context, code string, timeframe model.Timeframe) (bool, error)
	// Series returns the full series ordered by timestamp ascending.
	Series(ctx context.Context, code string, timeframe model.Timeframe) ([]model.PricePoint, error)
}

type historyRepo struct {
	conn  sqlx.SqlConn
	cache cache.Cache
	ttl   cachekeys.TTLSet
}

func newHistoryRepo(deps Dependencies) HistoryRepo {
	return &historyRepo{
		conn:  deps.DBConn,
		cache: deps.Cache,
		ttl:   deps.TTL,
	}
}

func (r *historyRepo) InsertPoints(ctx context.Context, points []model.PricePoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	stmt := `
INSERT INTO public.price_history (token_code, ts_ms, timeframe, price, synthetic)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (token_code, ts_ms, timeframe) DO NOTHING;`

	inserted := 0
	touched := make(map[string]struct{})
	for _, point := range points {
		code := strings.ToUpper(strings.TrimSpace(point.TokenCode))
		if code == "" || !point.Timeframe.Valid() || point.Timestamp <= 0 {
			logx.WithContext(ctx).Errorf("history insert skipping malformed point %+v", point)
			continue
		}
		res, err := r.conn.ExecCtx(ctx, stmt,
			code,
			point.Timestamp,
			string(point.Timeframe),
			point.Price,
			point.Synthetic,
		)
		if err != nil {
			r.dropCache(ctx, touched)
			return inserted, fmt.Errorf("historyRepo.InsertPoints %s/%s: %w", code, point.Timeframe, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			r.dropCache(ctx, touched)
			return inserted, fmt.Errorf("historyRepo.InsertPoints rows affected: %w", err)
		}
		if affected > 0 {
			inserted += int(affected)
			touched[cachekeys.HistoryKey(code, string(point.Timeframe))] = struct{}{}
		}
	}
	r.dropCache(ctx, touched)
	return inserted, nil
}

// dropCache invalidates the series keys whose tables just gained rows, so
// facade reads see new points before the TTL would have expired them.
func (r *historyRepo) dropCache(ctx context.Context, touched map[string]struct{}) {
	if r.cache == nil || len(touched) == 0 {
		return
	}
	keys := make([]string, 0, len(touched))
	for key := range touched {
		keys = append(keys, key)
	}
	if err := r.cache.DelCtx(ctx, keys...); err != nil {
		logx.WithContext(ctx).Errorf("history cache del %v: %v", keys, err)
	}
}

func (r *historyRepo) HasPoints(ctx context.Context, code string, timeframe model.Timeframe) (bool, error) {
	query := `
SELECT 1
FROM public.price_history
WHERE token_code = $1 AND timeframe = $2
LIMIT 1`

	var one int
	err := r.conn.QueryRowCtx(ctx, &one, query,
		strings.ToUpper(strings.TrimSpace(code)), string(timeframe))
	if err != nil {
		if errors.Is(err, sqlx.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("historyRepo.HasPoints %s/%s: %w", code, timeframe, err)
	}
	return true, nil
}

func (r *historyRepo) Series(ctx context.Context, code string, timeframe model.Timeframe) ([]model.PricePoint, error) {
	normalised := strings.ToUpper(strings.TrimSpace(code))
	if normalised == "" {
		return nil, errors.New("historyRepo.Series: code is required")
	}
	if !timeframe.Valid() {
		return nil, fmt.Errorf("historyRepo.Series: unsupported timeframe %q", timeframe)
	}

	key := cachekeys.HistoryKey(normalised, string(timeframe))
	var cached []model.PricePoint
	if ok := r.getCache(ctx, key, &cached); ok {
		return cached, nil
	}

	query := `
SELECT token_code, ts_ms, timeframe, price, synthetic
FROM public.price_history
WHERE token_code = $1 AND timeframe = $2
ORDER BY ts_ms ASC`

	var rows []historyRow
	if err := r.conn.QueryRowsCtx(ctx, &rows, query, normalised, string(timeframe)); err != nil {
		return nil, fmt.Errorf("historyRepo.Series %s/%s: %w", normalised, timeframe, err)
	}

	result := make([]model.PricePoint, 0, len(rows))
	for _, row := range rows {
		result = append(result, model.PricePoint{
			TokenCode: row.TokenCode,
			Timestamp: row.TsMs,
			Price:     row.Price,
			Timeframe: model.Timeframe(row.Timeframe),
			Synthetic: row.Synthetic,
		})
	}
	r.setCache(ctx, key, cachekeys.TTLMedium, result)
	return result, nil
}

func (r *historyRepo) getCache(ctx context.Context, key string, v interface{}) bool {
	if r.cache == nil {
		return false
	}
	if err := r.cache.GetCtx(ctx, key, v); err != nil {
		if !r.cache.IsNotFound(err) {
			logx.WithContext(ctx).Errorf("history cache get %s: %v", key, err)
		}
		return false
	}
	return true
}

func (r *historyRepo) setCache(ctx context.Context, key string, class cachekeys.TTLClass, v interface{}) {
	if r.cache == nil {
		return
	}
	ttl := r.ttl.Duration(class)
	if ttl <= 0 {
		return
	}
	if err := r.cache.SetWithExpireCtx(ctx, key, v, ttl); err != nil {
		logx.WithContext(ctx).Errorf("history cache set %s: %v", key, err)
	}
}

type historyRow struct {
	TokenCode string  `db:"token_code"`
	TsMs      int64   `db:"ts_ms"`
	Timeframe string  `db:"timeframe"`
	Price     float64 `db:"price"`
	Synthetic bool    `db:"synthetic"`
}
