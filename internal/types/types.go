package types

// CoinResp mirrors one coin_snapshots row on the wire. Nullable columns stay
// pointers so absent values serialise as null rather than zero.
type CoinResp struct {
	Code              string   `json:"code"`
	Name              string   `json:"name"`
	Rate              float64  `json:"rate"`
	Volume            float64  `json:"volume"`
	Cap               *float64 `json:"cap"`
	DeltaHour         *float64 `json:"deltaHour"`
	DeltaDay          *float64 `json:"deltaDay"`
	DeltaWeek         *float64 `json:"deltaWeek"`
	DeltaMonth        *float64 `json:"deltaMonth"`
	DeltaQuarter      *float64 `json:"deltaQuarter"`
	DeltaYear         *float64 `json:"deltaYear"`
	TotalSupply       *float64 `json:"totalSupply"`
	CirculatingSupply *float64 `json:"circulatingSupply"`
	MaxSupply         *float64 `json:"maxSupply"`
	LastUpdated       int64    `json:"lastUpdated"` // epoch ms
}

type CoinListResp struct {
	Coins []CoinResp `json:"coins"`
}

type HistoryReq struct {
	Code      string `path:"code"`
	Timeframe string `form:"timeframe,default=1D"`
}

type HistoryPointResp struct {
	Timestamp int64   `json:"timestamp"` // epoch ms
	Price     float64 `json:"price"`
	Synthetic bool    `json:"synthetic"`
}

type HistoryResp struct {
	Code      string             `json:"code"`
	Timeframe string             `json:"timeframe"`
	Points    []HistoryPointResp `json:"points"`
}

type SyncStatusResp struct {
	Running       bool  `json:"running"`
	LastLiveCycle int64 `json:"lastLiveCycle"` // epoch ms, 0 when never
}
