package livecoinwatch

// coinsListRequest is the body of POST /coins/list.
type coinsListRequest struct {
	Currency string `json:"currency"`
	Sort     string `json:"sort"`
	Order    string `json:"order"`
	Offset   int    `json:"offset"`
	Limit    int    `json:"limit"`
	Meta     bool   `json:"meta"`
}

// coinListEntry mirrors one element of the /coins/list response. Every field
// except code is optional on the wire; pointers keep absent and zero apart.
type coinListEntry struct {
	Code              string     `json:"code"`
	Name              string     `json:"name"`
	Rate              *float64   `json:"rate"`
	Volume            *float64   `json:"volume"`
	Cap               *float64   `json:"cap"`
	Delta             deltaEntry `json:"delta"`
	TotalSupply       *float64   `json:"totalSupply"`
	CirculatingSupply *float64   `json:"circulatingSupply"`
	MaxSupply         *float64   `json:"maxSupply"`
}

// deltaEntry is the nested per-window ratio structure on a list entry.
type deltaEntry struct {
	Hour    *float64 `json:"hour"`
	Day     *float64 `json:"day"`
	Week    *float64 `json:"week"`
	Month   *float64 `json:"month"`
	Quarter *float64 `json:"quarter"`
	Year    *float64 `json:"year"`
}

// historyRequest is the body of POST /coins/single/history.
type historyRequest struct {
	Currency string `json:"currency"`
	Code     string `json:"code"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Meta     bool   `json:"meta"`
}

// historyResponse wraps the rate series for one coin.
type historyResponse struct {
	Code    string         `json:"code"`
	History []historyEntry `json:"history"`
}

type historyEntry struct {
	Date int64    `json:"date"`
	Rate *float64 `json:"rate"`
}
