package market

import "strings"

// AssetClass partitions the scan universe for strategy applicability and
// threshold overrides.
type AssetClass string

const (
	ClassAny   AssetClass = "any"
	ClassSPX   AssetClass = "spx"
	ClassIndex AssetClass = "index"
	ClassETF   AssetClass = "etf"
	ClassStock AssetClass = "stock"
)

// Index and ETF universes are small and stable enough to keep inline.
// Anything not listed classifies as a single stock.
var (
	spxSymbols = map[string]bool{
		"SPX": true, "SPXW": true,
	}

	indexSymbols = map[string]bool{
		"SPX": true, "SPXW": true, "NDX": true, "RUT": true,
		"VIX": true, "DJX": true, "XSP": true,
	}

	etfSymbols = map[string]bool{
		"SPY": true, "QQQ": true, "IWM": true, "DIA": true,
		"TLT": true, "GLD": true, "SLV": true, "USO": true,
		"XLF": true, "XLE": true, "XLK": true, "XLV": true,
		"SMH": true, "ARKK": true, "EEM": true, "HYG": true,
	}
)

// Classify maps a symbol to its asset class.
func Classify(symbol string) AssetClass {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	switch {
	case indexSymbols[s]:
		return ClassIndex
	case etfSymbols[s]:
		return ClassETF
	default:
		return ClassStock
	}
}

// InScope reports whether a symbol is allowed under a strategy's asset-class
// scope. ClassSPX is narrower than ClassIndex: it admits only the SPX
// complex.
func InScope(symbol string, scope AssetClass) bool {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	switch scope {
	case ClassAny, "":
		return true
	case ClassSPX:
		return spxSymbols[s]
	case ClassIndex:
		return indexSymbols[s]
	case ClassETF:
		return etfSymbols[s]
	case ClassStock:
		return !indexSymbols[s] && !etfSymbols[s]
	default:
		return false
	}
}

// ParseClass normalizes a configured asset-class string, defaulting to any.
func ParseClass(s string) AssetClass {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spx", "spx_only":
		return ClassSPX
	case "index", "indexes", "indices":
		return ClassIndex
	case "etf", "etfs":
		return ClassETF
	case "stock", "stocks", "single_stock":
		return ClassStock
	default:
		return ClassAny
	}
}
