package models

// FundingUpdate is one normalized funding observation emitted by a stream
// client. MarkPrice and IndexPrice are nil when the venue does not send them.
type FundingUpdate struct {
	Exchange   ExchangeID `json:"exchange"`
	Asset      Asset      `json:"asset"`
	Rate       float64    `json:"rate"`
	MarkPrice  *float64   `json:"mark_price,omitempty"`
	IndexPrice *float64   `json:"index_price,omitempty"`
	Timestamp  int64      `json:"timestamp"`
}

// Series is the bounded history of one (exchange, asset) pair. Rates and
// Timestamps always have equal length and are kept in arrival order.
type Series struct {
	Rates      []float64 `json:"rates"`
	Timestamps []int64   `json:"timestamps"`
}

// Len returns the number of samples.
func (s Series) Len() int { return len(s.Rates) }

// ArbitrageRow is one ranked cross-venue opportunity for a single asset.
type ArbitrageRow struct {
	Asset     Asset   `json:"asset"`
	LeftRate  float64 `json:"left_rate"`
	RightRate float64 `json:"right_rate"`
	Spread    float64 `json:"spread"`
	SpreadBps float64 `json:"spread_bps"`
	APY       float64 `json:"apy"`
	Strategy  string  `json:"strategy"`
}
