// Command backfill runs one full historical sync against the configured
// provider and exits. Useful for repairing a series gap or seeding history
// once the live syncer has populated snapshots, without restarting the API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"coinboard-api/internal/config"
	"coinboard-api/internal/svc"
	syncpkg "coinboard-api/internal/sync"
)

var (
	configFile = flag.String("f", "etc/coinboard.yaml", "the config file")
	updates    = flag.Bool("updates", false, "append one synthetic update sweep after backfill")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.MustLoad(*configFile)
	svcCtx := svc.NewServiceContext(*cfg)

	if svcCtx.DefaultMarket == nil {
		log.Fatalf("[backfill] no default market provider configured")
	}
	if svcCtx.Repos == nil {
		log.Fatalf("[backfill] postgres DSN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncer := syncpkg.NewHistorySyncer(svcCtx.DefaultMarket, svcCtx.Repos.Snapshots, svcCtx.Repos.History, cfg.Sync)

	log.Printf("[backfill] starting full backfill run...")
	if err := syncer.SyncAll(ctx); err != nil {
		log.Fatalf("[backfill] backfill failed: %v", err)
	}
	if *updates {
		log.Printf("[backfill] appending synthetic update sweep...")
		if err := syncer.UpdateAll(ctx); err != nil {
			log.Fatalf("[backfill] update sweep failed: %v", err)
		}
	}
	log.Printf("[backfill] done")
}
