// Package coinbase reads spot tickers from Coinbase Exchange. Spot has no
// funding, so every tick is reported as a zero rate that serves as the
// yield-free leg of a spread.
package coinbase

import (
	"encoding/json"
	"time"

	"fundingflow/internal/metrics"
	"fundingflow/internal/models"
	"fundingflow/internal/reader"
	"fundingflow/internal/symbols"
)

const (
	DefaultURL    = "wss://ws-feed.exchange.coinbase.com"
	tickerChannel = "ticker_batch"
)

type Venue struct {
	url   string
	table *symbols.Table[string]
}

func New(url string, table *symbols.Table[string]) *Venue {
	if url == "" {
		url = DefaultURL
	}
	if table == nil {
		table = symbols.Coinbase
	}
	return &Venue{url: url, table: table}
}

func (v *Venue) Exchange() models.ExchangeID { return models.ExchangeCoinbase }

func (v *Venue) URL() string { return v.url }

func (v *Venue) Subscriptions() ([][]byte, error) {
	ids := v.table.Identifiers()
	if len(ids) == 0 {
		return nil, nil
	}
	frame, err := json.Marshal(struct {
		Type       string   `json:"type"`
		ProductIDs []string `json:"product_ids"`
		Channels   []string `json:"channels"`
	}{Type: "subscribe", ProductIDs: ids, Channels: []string{tickerChannel}})
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

type ticker struct {
	Type      string        `json:"type"`
	ProductID string        `json:"product_id"`
	Price     reader.Number `json:"price"`
	Time      string        `json:"time"`
}

func (v *Venue) Parse(raw []byte, receivedAt time.Time) reader.Batch {
	var msg ticker
	if err := json.Unmarshal(raw, &msg); err != nil {
		return reader.Malformed()
	}
	if msg.Type != "ticker" {
		return reader.Batch{}
	}

	var batch reader.Batch
	asset, ok := v.table.Asset(msg.ProductID)
	if !ok {
		batch.Drop(metrics.DropUnmapped, msg.ProductID)
		return batch
	}

	var venueMillis int64
	if ts, err := time.Parse(time.RFC3339Nano, msg.Time); err == nil {
		venueMillis = ts.UnixMilli()
	}
	batch.Add(models.FundingUpdate{
		Exchange:  models.ExchangeCoinbase,
		Asset:     asset,
		Rate:      0,
		MarkPrice: msg.Price.Ptr(),
		Timestamp: reader.Timestamp(venueMillis, receivedAt),
	})
	return batch
}
