package models

import "strings"

// ExchangeID identifies a supported venue.
type ExchangeID string

const (
	ExchangeBinance     ExchangeID = "binance"
	ExchangeBybit       ExchangeID = "bybit"
	ExchangeOkx         ExchangeID = "okx"
	ExchangeHyperliquid ExchangeID = "hyperliquid"
	ExchangeDerive      ExchangeID = "derive"
	ExchangeLighter     ExchangeID = "lighter"
	// ExchangeCoinbase is a spot venue without funding; it reports a zero
	// baseline so other venues can be compared against a yield-free leg.
	ExchangeCoinbase ExchangeID = "coinbase"
)

type exchangeInfo struct {
	label string
	abbr  string
	color string
}

var exchangeOrder = []ExchangeID{
	ExchangeBinance, ExchangeBybit, ExchangeOkx, ExchangeHyperliquid,
	ExchangeDerive, ExchangeLighter, ExchangeCoinbase,
}

var exchangeInfos = map[ExchangeID]exchangeInfo{
	ExchangeBinance:     {label: "Binance", abbr: "BIN", color: "#F0B90B"},
	ExchangeBybit:       {label: "Bybit", abbr: "BYB", color: "#F7A600"},
	ExchangeOkx:         {label: "OKX", abbr: "OKX", color: "#A0A0A0"},
	ExchangeHyperliquid: {label: "Hyperliquid", abbr: "HL", color: "#50D2C1"},
	ExchangeDerive:      {label: "Derive", abbr: "DRV", color: "#6C5CE7"},
	ExchangeLighter:     {label: "Lighter", abbr: "LTR", color: "#2D9CDB"},
	ExchangeCoinbase:    {label: "Coinbase", abbr: "CB", color: "#0052FF"},
}

// Exchanges lists every supported venue in a stable order.
func Exchanges() []ExchangeID {
	out := make([]ExchangeID, len(exchangeOrder))
	copy(out, exchangeOrder)
	return out
}

// ParseExchange resolves a venue identifier case-insensitively.
func ParseExchange(s string) (ExchangeID, bool) {
	id := ExchangeID(strings.ToLower(strings.TrimSpace(s)))
	_, ok := exchangeInfos[id]
	return id, ok
}

// Label is the human readable venue name.
func (e ExchangeID) Label() string {
	if info, ok := exchangeInfos[e]; ok {
		return info.label
	}
	return string(e)
}

func (e ExchangeID) Abbreviation() string {
	if info, ok := exchangeInfos[e]; ok {
		return info.abbr
	}
	return strings.ToUpper(string(e))
}

func (e ExchangeID) Color() string {
	return exchangeInfos[e].color
}

func (e ExchangeID) String() string { return string(e) }
