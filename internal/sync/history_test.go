package sync

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"coinboard-api/internal/config"
	"coinboard-api/internal/model"
	marketpkg "coinboard-api/pkg/market"
)

func fastSyncConf() config.SyncConf {
	return config.SyncConf{
		UniverseLimit:     100,
		BackfillBatchSize: 10,
		UpdateBatchSize:   20,
		UpdateInterval:    time.Hour,
	}
}

func TestDiscoverUniverseOrdersByCap(t *testing.T) {
	snapshots := newFakeSnapshots()
	require.NoError(t, snapshots.Upsert(context.Background(), &model.CoinSnapshot{Code: "A", Rate: 1, Cap: floatp(500)}))
	require.NoError(t, snapshots.Upsert(context.Background(), &model.CoinSnapshot{Code: "B", Rate: 1}))
	require.NoError(t, snapshots.Upsert(context.Background(), &model.CoinSnapshot{Code: "C", Rate: 1, Cap: floatp(300)}))

	syncer := NewHistorySyncer(newFakeProvider(), snapshots, newFakeHistory(), fastSyncConf())
	codes := syncer.DiscoverUniverse(context.Background())
	require.Equal(t, []string{"A", "C"}, codes, "capless snapshots are excluded, rest ordered cap desc")
}

func TestDiscoverUniverseEmptyTableYieldsEmptyUniverse(t *testing.T) {
	syncer := NewHistorySyncer(newFakeProvider(), newFakeSnapshots(), newFakeHistory(), fastSyncConf())
	codes := syncer.DiscoverUniverse(context.Background())
	require.Empty(t, codes, "an empty snapshot table is not a discovery failure")
}

func TestDiscoverUniverseFallsBackOnError(t *testing.T) {
	snapshots := newFakeSnapshots()
	snapshots.trackedErr = errors.New("db down")
	syncer := NewHistorySyncer(newFakeProvider(), snapshots, newFakeHistory(), fastSyncConf())
	codes := syncer.DiscoverUniverse(context.Background())
	require.Equal(t, fallbackUniverse, codes)
}

func TestBackfillFetchesEachTimeframeOnce(t *testing.T) {
	provider := newFakeProvider()
	history := newFakeHistory()
	syncer := NewHistorySyncer(provider, newFakeSnapshots(), history, fastSyncConf())

	require.NoError(t, syncer.Backfill(context.Background(), "BTC"))
	require.Equal(t, len(model.Timeframes()), provider.callsFor("BTC"))
	for _, timeframe := range model.Timeframes() {
		require.Equal(t, 4, history.count("BTC", timeframe))
	}

	// Second run finds every series populated and makes no provider calls.
	require.NoError(t, syncer.Backfill(context.Background(), "BTC"))
	require.Equal(t, len(model.Timeframes()), provider.callsFor("BTC"))
}

func TestBackfillOnlyFillsEmptyTimeframes(t *testing.T) {
	provider := newFakeProvider()
	history := newFakeHistory()
	_, err := history.InsertPoints(context.Background(), []model.PricePoint{
		{TokenCode: "BTC", Timestamp: 1, Price: 1, Timeframe: model.TimeframeHour},
	})
	require.NoError(t, err)

	syncer := NewHistorySyncer(provider, newFakeSnapshots(), history, fastSyncConf())
	require.NoError(t, syncer.Backfill(context.Background(), "BTC"))

	// 1H was already populated, the other three were fetched.
	require.Equal(t, len(model.Timeframes())-1, provider.callsFor("BTC"))
	require.Equal(t, 1, history.count("BTC", model.TimeframeHour))
	require.Equal(t, 4, history.count("BTC", model.TimeframeDay))
}

func TestBackfillIsolatesTimeframeFailures(t *testing.T) {
	provider := newFakeProvider()
	provider.historyErrCalls["BTC"] = []int{1} // first timeframe fetch fails

	history := newFakeHistory()
	syncer := NewHistorySyncer(provider, newFakeSnapshots(), history, fastSyncConf())
	require.NoError(t, syncer.Backfill(context.Background(), "BTC"))

	// The 1H fetch failed; the remaining three series were still fetched
	// and stored in the same run.
	require.Equal(t, len(model.Timeframes()), provider.callsFor("BTC"))
	require.Zero(t, history.count("BTC", model.TimeframeHour))
	for _, timeframe := range []model.Timeframe{model.TimeframeDay, model.TimeframeWeek, model.TimeframeMonth} {
		require.Equal(t, 4, history.count("BTC", timeframe), "%s must survive the 1H failure", timeframe)
	}

	// The next pass retries only the still-empty series.
	require.NoError(t, syncer.Backfill(context.Background(), "BTC"))
	require.Equal(t, len(model.Timeframes())+1, provider.callsFor("BTC"))
	require.Equal(t, 4, history.count("BTC", model.TimeframeHour))
}

func TestSyncAllIsolatesPerCodeFailures(t *testing.T) {
	provider := newFakeProvider()
	provider.historyErrFor["CCC"] = errors.New("upstream 500")

	snapshots := newFakeSnapshots()
	caps := map[string]float64{"AAA": 500, "BBB": 400, "CCC": 300, "DDD": 200, "EEE": 100}
	for code, marketCap := range caps {
		require.NoError(t, snapshots.Upsert(context.Background(), &model.CoinSnapshot{
			Code: code, Rate: 1, Cap: floatp(marketCap),
		}))
	}

	history := newFakeHistory()
	syncer := NewHistorySyncer(provider, snapshots, history, fastSyncConf())
	require.NoError(t, syncer.SyncAll(context.Background()))

	for _, code := range []string{"AAA", "BBB", "DDD", "EEE"} {
		require.Equal(t, 4, history.count(code, model.TimeframeHour), "code %s should be backfilled", code)
	}
	require.Zero(t, history.count("CCC", model.TimeframeHour), "failed code stays empty")
}

func TestInsertPointsKeepsFirstWriteOnCollision(t *testing.T) {
	history := newFakeHistory()
	first := model.PricePoint{TokenCode: "BTC", Timestamp: 1000, Price: 10, Timeframe: model.TimeframeDay}
	second := first
	second.Price = 99

	inserted, err := history.InsertPoints(context.Background(), []model.PricePoint{first, second})
	require.NoError(t, err)
	require.Equal(t, 1, inserted)

	series, err := history.Series(context.Background(), "BTC", model.TimeframeDay)
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Equal(t, 10.0, series[0].Price)
}

func TestUpdateAppendsSyntheticPointPerTimeframe(t *testing.T) {
	snapshots := newFakeSnapshots()
	require.NoError(t, snapshots.Upsert(context.Background(), &model.CoinSnapshot{
		Code: "BTC", Rate: 100, Cap: floatp(1e12),
	}))

	history := newFakeHistory()
	syncer := NewHistorySyncer(newFakeProvider(), snapshots, history, fastSyncConf())
	require.NoError(t, syncer.Update(context.Background(), "BTC"))

	bands := map[model.Timeframe]float64{
		model.TimeframeHour:  0.002,
		model.TimeframeDay:   0.005,
		model.TimeframeWeek:  0.01,
		model.TimeframeMonth: 0.02,
	}
	for timeframe, band := range bands {
		series, err := history.Series(context.Background(), "BTC", timeframe)
		require.NoError(t, err)
		require.Len(t, series, 1)
		point := series[0]
		require.True(t, point.Synthetic, "update points must carry the synthetic flag")
		require.LessOrEqual(t, math.Abs(point.Price-100)/100, band+1e-9,
			"%s jitter must stay inside its band", timeframe)
	}
}

func TestUpdateSkipsCodesWithoutSnapshot(t *testing.T) {
	history := newFakeHistory()
	syncer := NewHistorySyncer(newFakeProvider(), newFakeSnapshots(), history, fastSyncConf())
	require.NoError(t, syncer.Update(context.Background(), "GHOST"))
	for _, timeframe := range model.Timeframes() {
		require.Zero(t, history.count("GHOST", timeframe))
	}
}

func TestManagerStartStop(t *testing.T) {
	provider := newFakeProvider()
	provider.quotes = []marketpkg.Quote{{Code: "BTC", Name: "Bitcoin", Rate: 1, Cap: floatp(1)}}
	snapshots := newFakeSnapshots()
	history := newFakeHistory()

	live := NewLiveSyncer(provider, snapshots, time.Hour, 10)
	hist := NewHistorySyncer(provider, snapshots, history, fastSyncConf())
	manager := NewManager(live, hist)

	manager.Start(context.Background())
	manager.Start(context.Background()) // second start is a no-op

	require.Eventually(t, func() bool {
		_, ok := snapshots.snapshot("BTC")
		return ok
	}, 2*time.Second, 10*time.Millisecond, "live syncer runs an immediate cycle on start")

	manager.Stop()
	manager.Stop() // second stop is a no-op
	require.False(t, manager.IsRunning())
}
