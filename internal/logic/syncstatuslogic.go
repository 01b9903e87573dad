package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"coinboard-api/internal/svc"
	"coinboard-api/internal/types"
)

type SyncStatusLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSyncStatusLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SyncStatusLogic {
	return &SyncStatusLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// SyncStatus reports whether any sync cycle is in flight right now, plus the
// completion time of the last live cycle.
func (l *SyncStatusLogic) SyncStatus() (*types.SyncStatusResp, error) {
	manager := l.svcCtx.SyncManager
	resp := &types.SyncStatusResp{}
	if manager == nil {
		return resp, nil
	}
	resp.Running = manager.IsRunning()
	if live := manager.Live(); live != nil {
		if last := live.LastCycle(); !last.IsZero() {
			resp.LastLiveCycle = last.UnixMilli()
		}
	}
	return resp, nil
}
