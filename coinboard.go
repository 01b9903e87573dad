package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/zeromicro/go-zero/rest"

	"coinboard-api/internal/config"
	"coinboard-api/internal/handler"
	"coinboard-api/internal/svc"
)

var configFile = flag.String("f", "etc/coinboard.yaml", "the config file")

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)

	server := rest.MustNewServer(cfg.RestConf)
	defer server.Stop()

	ctx := svc.NewServiceContext(*cfg)
	handler.RegisterHandlers(server, ctx)

	if ctx.SyncManager != nil {
		ctx.SyncManager.Start(context.Background())
		defer ctx.SyncManager.Stop()
	}

	fmt.Printf("Starting server at %s:%d...\n", cfg.Host, cfg.Port)
	server.Start()
}
