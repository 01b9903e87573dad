package logic

import (
	"context"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"coinboard-api/internal/model"
	"coinboard-api/internal/svc"
	"coinboard-api/internal/types"
)

type HistoryLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewHistoryLogic(ctx context.Context, svcCtx *svc.ServiceContext) *HistoryLogic {
	return &HistoryLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// History returns one coin's series for one timeframe, ordered by timestamp
// ascending. An unknown code yields an empty series, not an error.
func (l *HistoryLogic) History(req *types.HistoryReq) (*types.HistoryResp, error) {
	if l.svcCtx.Repos == nil {
		return nil, ErrStorageUnavailable
	}
	timeframe, err := model.ParseTimeframe(req.Timeframe)
	if err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))

	series, err := l.svcCtx.Repos.History.Series(l.ctx, code, timeframe)
	if err != nil {
		l.Errorf("history series %s/%s: %v", code, timeframe, err)
		return nil, err
	}

	points := make([]types.HistoryPointResp, 0, len(series))
	for _, point := range series {
		points = append(points, types.HistoryPointResp{
			Timestamp: point.Timestamp,
			Price:     point.Price,
			Synthetic: point.Synthetic,
		})
	}
	return &types.HistoryResp{
		Code:      code,
		Timeframe: string(timeframe),
		Points:    points,
	}, nil
}
