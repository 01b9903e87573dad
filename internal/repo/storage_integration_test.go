//go:build integration
// +build integration

package repo_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"coinboard-api/internal/model"
	"coinboard-api/internal/repo"
)

func newIntegrationRepos(t *testing.T) (*repo.Set, sqlx.SqlConn) {
	t.Helper()
	dsn := os.Getenv("COINBOARD_PG_DSN")
	if dsn == "" {
		t.Skip("Postgres not configured (COINBOARD_PG_DSN empty)")
	}
	conn := sqlx.NewSqlConn("pgx", dsn)
	set, err := repo.New(repo.Dependencies{DBConn: conn})
	require.NoError(t, err)
	return set, conn
}

func uniqueCode(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, time.Now().UnixNano()%1_000_000)
}

func cleanupSnapshot(t *testing.T, conn sqlx.SqlConn, code string) {
	t.Helper()
	t.Cleanup(func() {
		_, _ = conn.ExecCtx(context.Background(),
			"DELETE FROM public.coin_snapshots WHERE code = $1", code)
	})
}

func cleanupHistory(t *testing.T, conn sqlx.SqlConn, code string) {
	t.Helper()
	t.Cleanup(func() {
		_, _ = conn.ExecCtx(context.Background(),
			"DELETE FROM public.price_history WHERE token_code = $1", code)
	})
}

func TestSnapshotUpsertLastWriterWins(t *testing.T) {
	repos, conn := newIntegrationRepos(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	code := uniqueCode("UPS")
	cleanupSnapshot(t, conn, code)

	cap1 := 1000.0
	require.NoError(t, repos.Snapshots.Upsert(ctx, &model.CoinSnapshot{
		Code: code, Name: "First", Rate: 10, Volume: 5, Cap: &cap1,
	}))
	require.NoError(t, repos.Snapshots.Upsert(ctx, &model.CoinSnapshot{
		Code: code, Name: "Second", Rate: 20, Volume: 6, Cap: nil,
	}))

	snap, err := repos.Snapshots.Get(ctx, code)
	require.NoError(t, err)
	require.Equal(t, "Second", snap.Name)
	require.Equal(t, 20.0, snap.Rate)
	require.Nil(t, snap.Cap, "second write must null out the cap")
	require.False(t, snap.LastUpdated.IsZero())
}

func TestHistoryInsertIsIdempotent(t *testing.T) {
	repos, conn := newIntegrationRepos(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	code := uniqueCode("HIS")
	cleanupHistory(t, conn, code)

	ts := time.Now().UnixMilli()
	point := model.PricePoint{
		TokenCode: code, Timestamp: ts, Price: 42.5,
		Timeframe: model.TimeframeDay, Synthetic: false,
	}

	inserted, err := repos.History.InsertPoints(ctx, []model.PricePoint{point})
	require.NoError(t, err)
	require.Equal(t, 1, inserted)

	// Same key, different price: the duplicate is dropped and the first
	// value survives.
	point.Price = 99.9
	inserted, err = repos.History.InsertPoints(ctx, []model.PricePoint{point})
	require.NoError(t, err)
	require.Zero(t, inserted)

	series, err := repos.History.Series(ctx, code, model.TimeframeDay)
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Equal(t, 42.5, series[0].Price)

	populated, err := repos.History.HasPoints(ctx, code, model.TimeframeDay)
	require.NoError(t, err)
	require.True(t, populated)

	populated, err = repos.History.HasPoints(ctx, code, model.TimeframeHour)
	require.NoError(t, err)
	require.False(t, populated, "other timeframes stay independent")
}

func TestTrackedCodesExcludesCapless(t *testing.T) {
	repos, conn := newIntegrationRepos(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	capless := uniqueCode("NOC")
	cleanupSnapshot(t, conn, capless)
	require.NoError(t, repos.Snapshots.Upsert(ctx, &model.CoinSnapshot{
		Code: capless, Name: "Capless", Rate: 1,
	}))

	codes, err := repos.Snapshots.TrackedCodes(ctx, 1000)
	require.NoError(t, err)
	require.NotContains(t, codes, capless)
}
