package sync

import "strings"

// fallbackUniverse is the fixed set of majors the historical syncer falls
// back to when the snapshot-driven discovery query fails. An empty snapshot
// table is not a failure; it yields an empty universe instead.
var fallbackUniverse = []string{
	"BTC", "ETH", "USDT", "BNB", "SOL",
	"XRP", "USDC", "ADA", "DOGE", "TRX",
	"AVAX", "DOT", "LINK", "MATIC", "LTC",
}

// displayNames maps well-known codes to human names for providers that omit
// the name field on list responses.
var displayNames = map[string]string{
	"BTC":   "Bitcoin",
	"ETH":   "Ethereum",
	"USDT":  "Tether",
	"BNB":   "BNB",
	"SOL":   "Solana",
	"XRP":   "XRP",
	"USDC":  "USD Coin",
	"ADA":   "Cardano",
	"DOGE":  "Dogecoin",
	"TRX":   "TRON",
	"AVAX":  "Avalanche",
	"DOT":   "Polkadot",
	"LINK":  "Chainlink",
	"MATIC": "Polygon",
	"LTC":   "Litecoin",
}

// displayName prefers the provider-supplied name and falls back to the static
// table, then to the code itself.
func displayName(code, provided string) string {
	if name := strings.TrimSpace(provided); name != "" {
		return name
	}
	if name, ok := displayNames[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return name
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
