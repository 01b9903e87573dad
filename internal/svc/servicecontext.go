package svc

import (
	"log"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "coinboard-api/internal/cache"
	"coinboard-api/internal/config"
	"coinboard-api/internal/repo"
	syncpkg "coinboard-api/internal/sync"
	marketpkg "coinboard-api/pkg/market"
	_ "coinboard-api/pkg/market/livecoinwatch"
)

type ServiceContext struct {
	Config config.Config

	DBConn sqlx.SqlConn
	Cache  cache.Cache
	TTL    cachekeys.TTLSet
	Repos  *repo.Set

	MarketConfig    *marketpkg.Config
	MarketProviders map[string]marketpkg.Provider
	DefaultMarket   marketpkg.Provider

	// SyncManager is non-nil only when both a provider and a database are
	// configured; the facade degrades to read-only otherwise.
	SyncManager *syncpkg.Manager
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{
		Config: c,
		TTL:    cachekeys.NewTTLSet(c.TTL),
	}

	if c.Postgres.DSN != "" {
		svc.DBConn = sqlx.NewSqlConn("pgx", c.Postgres.DSN)
	}

	if c.Redis.Host != "" {
		rds, err := redis.NewRedis(c.Redis)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		svc.Cache = cache.NewNode(rds, syncx.NewSingleFlight(), cache.NewStat(cachekeys.Namespace), sqlx.ErrNotFound)
	}

	if svc.DBConn != nil {
		repos, err := repo.New(repo.Dependencies{
			DBConn: svc.DBConn,
			Cache:  svc.Cache,
			TTL:    svc.TTL,
		})
		if err != nil {
			log.Fatalf("failed to build repositories: %v", err)
		}
		svc.Repos = repos
	}

	// Provider construction fails hard when an API key is missing: syncers
	// must never start against a half-configured provider.
	if c.Market.Value != nil {
		providers, err := c.Market.Value.BuildProviders()
		if err != nil {
			log.Fatalf("failed to build market providers: %v", err)
		}
		svc.MarketConfig = c.Market.Value
		svc.MarketProviders = providers
		if c.Market.Value.Default != "" {
			svc.DefaultMarket = providers[c.Market.Value.Default]
		}
	}

	if svc.DefaultMarket != nil && svc.Repos != nil {
		live := syncpkg.NewLiveSyncer(svc.DefaultMarket, svc.Repos.Snapshots, c.Sync.LiveInterval, c.Sync.TopN)
		history := syncpkg.NewHistorySyncer(svc.DefaultMarket, svc.Repos.Snapshots, svc.Repos.History, c.Sync)
		svc.SyncManager = syncpkg.NewManager(live, history)
	}

	return svc
}
