package logic

import (
	"context"
	"errors"

	"github.com/zeromicro/go-zero/core/logx"

	"coinboard-api/internal/svc"
	"coinboard-api/internal/types"
)

// ErrStorageUnavailable is returned when the API runs without a database,
// e.g. in provider-only smoke deployments.
var ErrStorageUnavailable = errors.New("storage is not configured")

type CoinsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewCoinsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *CoinsLogic {
	return &CoinsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Coins returns every tracked snapshot ordered by market cap descending.
func (l *CoinsLogic) Coins() (*types.CoinListResp, error) {
	if l.svcCtx.Repos == nil {
		return nil, ErrStorageUnavailable
	}
	snapshots, err := l.svcCtx.Repos.Snapshots.List(l.ctx)
	if err != nil {
		l.Errorf("list snapshots: %v", err)
		return nil, err
	}

	coins := make([]types.CoinResp, 0, len(snapshots))
	for _, snap := range snapshots {
		coins = append(coins, types.CoinResp{
			Code:              snap.Code,
			Name:              snap.Name,
			Rate:              snap.Rate,
			Volume:            snap.Volume,
			Cap:               snap.Cap,
			DeltaHour:         snap.DeltaHour,
			DeltaDay:          snap.DeltaDay,
			DeltaWeek:         snap.DeltaWeek,
			DeltaMonth:        snap.DeltaMonth,
			DeltaQuarter:      snap.DeltaQuarter,
			DeltaYear:         snap.DeltaYear,
			TotalSupply:       snap.TotalSupply,
			CirculatingSupply: snap.CirculatingSupply,
			MaxSupply:         snap.MaxSupply,
			LastUpdated:       snap.LastUpdated.UnixMilli(),
		})
	}
	return &types.CoinListResp{Coins: coins}, nil
}
