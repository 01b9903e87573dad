package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"coinboard-api/internal/svc"
)

func RegisterHandlers(server *rest.Server, svcCtx *svc.ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/api/v1/coins",
				Handler: CoinsHandler(svcCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/api/v1/coins/:code/history",
				Handler: HistoryHandler(svcCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/api/v1/sync/status",
				Handler: SyncStatusHandler(svcCtx),
			},
		},
	)
}
