package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "coinboard-api/internal/cache"
	"coinboard-api/internal/model"
)

// SnapshotsRepo owns the coin_snapshots table: one row per instrument code,
// written exclusively by the live snapshot syncer.
type SnapshotsRepo interface {
	// Upsert inserts the row or overwrites every mutable column of the
	// existing one, refreshing last_updated either way.
	Upsert(ctx context.Context, snap *model.CoinSnapshot) error
	// Get returns one snapshot by code, or ErrNotFound.
	Get(ctx context.Context, code string) (*model.CoinSnapshot, error)
	// List returns all snapshots ordered by market cap descending, rows
	// without a cap last.
	List(ctx context.Context) ([]model.CoinSnapshot, error)
	// TrackedCodes projects up to limit codes ordered by cap descending,
	// excluding rows with no reported cap. Recomputed on every call; the
	// result is never cached across syncer runs.
	TrackedCodes(ctx context.Context, limit int) ([]string, error)
}

type snapshotsRepo struct {
	conn  sqlx.SqlConn
	cache cache.Cache
	ttl   cachekeys.TTLSet
}

func newSnapshotsRepo(deps Dependencies) SnapshotsRepo {
	return &snapshotsRepo{
		conn:  deps.DBConn,
		cache: deps.Cache,
		ttl:   deps.TTL,
	}
}

const snapshotColumns = `
    code,
    name,
    rate,
    volume,
    cap,
    delta_hour,
    delta_day,
    delta_week,
    delta_month,
    delta_quarter,
    delta_year,
    total_supply,
    circulating_supply,
    max_supply,
    last_updated`

func (r *snapshotsRepo) Upsert(ctx context.Context, snap *model.CoinSnapshot) error {
	if snap == nil || strings.TrimSpace(snap.Code) == "" {
		return errors.New("snapshotsRepo.Upsert: code is required")
	}
	stmt := `
INSERT INTO public.coin_snapshots (
    code, name, rate, volume, cap,
    delta_hour, delta_day, delta_week, delta_month, delta_quarter, delta_year,
    total_supply, circulating_supply, max_supply, last_updated
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW()
)
ON CONFLICT (code) DO UPDATE SET
    name = EXCLUDED.name,
    rate = EXCLUDED.rate,
    volume = EXCLUDED.volume,
    cap = EXCLUDED.cap,
    delta_hour = EXCLUDED.delta_hour,
    delta_day = EXCLUDED.delta_day,
    delta_week = EXCLUDED.delta_week,
    delta_month = EXCLUDED.delta_month,
    delta_quarter = EXCLUDED.delta_quarter,
    delta_year = EXCLUDED.delta_year,
    total_supply = EXCLUDED.total_supply,
    circulating_supply = EXCLUDED.circulating_supply,
    max_supply = EXCLUDED.max_supply,
    last_updated = NOW();`

	if _, err := r.conn.ExecCtx(ctx, stmt,
		strings.ToUpper(strings.TrimSpace(snap.Code)),
		snap.Name,
		snap.Rate,
		snap.Volume,
		nullFloat(snap.Cap),
		nullFloat(snap.DeltaHour),
		nullFloat(snap.DeltaDay),
		nullFloat(snap.DeltaWeek),
		nullFloat(snap.DeltaMonth),
		nullFloat(snap.DeltaQuarter),
		nullFloat(snap.DeltaYear),
		nullFloat(snap.TotalSupply),
		nullFloat(snap.CirculatingSupply),
		nullFloat(snap.MaxSupply),
	); err != nil {
		return fmt.Errorf("snapshotsRepo.Upsert %s: %w", snap.Code, err)
	}
	r.dropCache(ctx, cachekeys.SnapshotsKey(), cachekeys.SnapshotKey(snap.Code))
	return nil
}

func (r *snapshotsRepo) Get(ctx context.Context, code string) (*model.CoinSnapshot, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	key := cachekeys.SnapshotKey(code)
	var cached model.CoinSnapshot
	if ok := r.getCache(ctx, key, &cached); ok {
		return &cached, nil
	}

	query := `SELECT` + snapshotColumns + `
FROM public.coin_snapshots
WHERE code = $1`

	var row snapshotRow
	if err := r.conn.QueryRowCtx(ctx, &row, query, code); err != nil {
		if errors.Is(err, sqlx.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("snapshotsRepo.Get %s: %w", code, err)
	}
	snap := row.toModel()
	r.setCache(ctx, key, cachekeys.TTLShort, snap)
	return &snap, nil
}

func (r *snapshotsRepo) List(ctx context.Context) ([]model.CoinSnapshot, error) {
	key := cachekeys.SnapshotsKey()
	var cached []model.CoinSnapshot
	if ok := r.getCache(ctx, key, &cached); ok {
		return cached, nil
	}

	query := `SELECT` + snapshotColumns + `
FROM public.coin_snapshots
ORDER BY cap DESC NULLS LAST, code ASC`

	var rows []snapshotRow
	if err := r.conn.QueryRowsCtx(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("snapshotsRepo.List: %w", err)
	}

	result := make([]model.CoinSnapshot, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	r.setCache(ctx, key, cachekeys.TTLShort, result)
	return result, nil
}

func (r *snapshotsRepo) TrackedCodes(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
SELECT code
FROM public.coin_snapshots
WHERE cap IS NOT NULL
ORDER BY cap DESC
LIMIT $1`

	var codes []string
	if err := r.conn.QueryRowsCtx(ctx, &codes, query, limit); err != nil {
		return nil, fmt.Errorf("snapshotsRepo.TrackedCodes: %w", err)
	}
	return codes, nil
}

func (r *snapshotsRepo) getCache(ctx context.Context, key string, v interface{}) bool {
	if r.cache == nil {
		return false
	}
	if err := r.cache.GetCtx(ctx, key, v); err != nil {
		if !r.cache.IsNotFound(err) {
			logx.WithContext(ctx).Errorf("snapshots cache get %s: %v", key, err)
		}
		return false
	}
	return true
}

func (r *snapshotsRepo) setCache(ctx context.Context, key string, class cachekeys.TTLClass, v interface{}) {
	if r.cache == nil {
		return
	}
	ttl := r.ttl.Duration(class)
	if ttl <= 0 {
		return
	}
	if err := r.cache.SetWithExpireCtx(ctx, key, v, ttl); err != nil {
		logx.WithContext(ctx).Errorf("snapshots cache set %s: %v", key, err)
	}
}

func (r *snapshotsRepo) dropCache(ctx context.Context, keys ...string) {
	if r.cache == nil || len(keys) == 0 {
		return
	}
	if err := r.cache.DelCtx(ctx, keys...); err != nil {
		logx.WithContext(ctx).Errorf("snapshots cache del %v: %v", keys, err)
	}
}

type snapshotRow struct {
	Code              string          `db:"code"`
	Name              string          `db:"name"`
	Rate              float64         `db:"rate"`
	Volume            float64         `db:"volume"`
	Cap               sql.NullFloat64 `db:"cap"`
	DeltaHour         sql.NullFloat64 `db:"delta_hour"`
	DeltaDay          sql.NullFloat64 `db:"delta_day"`
	DeltaWeek         sql.NullFloat64 `db:"delta_week"`
	DeltaMonth        sql.NullFloat64 `db:"delta_month"`
	DeltaQuarter      sql.NullFloat64 `db:"delta_quarter"`
	DeltaYear         sql.NullFloat64 `db:"delta_year"`
	TotalSupply       sql.NullFloat64 `db:"total_supply"`
	CirculatingSupply sql.NullFloat64 `db:"circulating_supply"`
	MaxSupply         sql.NullFloat64 `db:"max_supply"`
	LastUpdated       time.Time       `db:"last_updated"`
}

func (row snapshotRow) toModel() model.CoinSnapshot {
	return model.CoinSnapshot{
		Code:              row.Code,
		Name:              row.Name,
		Rate:              row.Rate,
		Volume:            row.Volume,
		Cap:               floatPtr(row.Cap),
		DeltaHour:         floatPtr(row.DeltaHour),
		DeltaDay:          floatPtr(row.DeltaDay),
		DeltaWeek:         floatPtr(row.DeltaWeek),
		DeltaMonth:        floatPtr(row.DeltaMonth),
		DeltaQuarter:      floatPtr(row.DeltaQuarter),
		DeltaYear:         floatPtr(row.DeltaYear),
		TotalSupply:       floatPtr(row.TotalSupply),
		CirculatingSupply: floatPtr(row.CirculatingSupply),
		MaxSupply:         floatPtr(row.MaxSupply),
		LastUpdated:       row.LastUpdated,
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	value := v.Float64
	return &value
}
