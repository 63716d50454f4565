// Package hyperliquid reads per-coin asset contexts from Hyperliquid.
package hyperliquid

import (
	"encoding/json"
	"time"

	"fundingflow/internal/metrics"
	"fundingflow/internal/models"
	"fundingflow/internal/reader"
	"fundingflow/internal/symbols"
)

const (
	DefaultURL   = "wss://api.hyperliquid.xyz/ws"
	assetCtxType = "activeAssetCtx"
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
		table = symbols.Hyperliquid
	}
	return &Venue{url: url, table: table}
}

func (v *Venue) Exchange() models.ExchangeID { return models.ExchangeHyperliquid }

func (v *Venue) URL() string { return v.url }

type subscription struct {
	Type string `json:"type"`
	Coin string `json:"coin"`
}

// Subscriptions sends one request per coin.
func (v *Venue) Subscriptions() ([][]byte, error) {
	ids := v.table.Identifiers()
	frames := make([][]byte, 0, len(ids))
	for _, coin := range ids {
		frame, err := json.Marshal(struct {
			Method       string       `json:"method"`
			Subscription subscription `json:"subscription"`
		}{Method: "subscribe", Subscription: subscription{Type: assetCtxType, Coin: coin}})
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

func (v *Venue) Ping() []byte {
	return []byte(`{"method":"ping"}`)
}

type message struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type assetCtx struct {
	Coin string `json:"coin"`
	Ctx  struct {
		Funding  reader.Number `json:"funding"`
		MarkPx   reader.Number `json:"markPx"`
		OraclePx reader.Number `json:"oraclePx"`
	} `json:"ctx"`
}

// Parse stamps updates with the receive time; asset contexts carry no
// venue timestamp.
func (v *Venue) Parse(raw []byte, receivedAt time.Time) reader.Batch {
	var msg message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return reader.Malformed()
	}
	if msg.Channel != assetCtxType {
		return reader.Batch{}
	}

	var data assetCtx
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return reader.Malformed()
	}

	var batch reader.Batch
	asset, ok := v.table.Asset(data.Coin)
	if !ok {
		batch.Drop(metrics.DropUnmapped, data.Coin)
		return batch
	}
	rate, ok := reader.PickRate(data.Ctx.Funding)
	if !ok {
		batch.Drop(metrics.DropInvalidRate, data.Coin)
		return batch
	}
	batch.Add(models.FundingUpdate{
		Exchange:   models.ExchangeHyperliquid,
		Asset:      asset,
		Rate:       rate,
		MarkPrice:  data.Ctx.MarkPx.Ptr(),
		IndexPrice: data.Ctx.OraclePx.Ptr(),
		Timestamp:  receivedAt.UnixMilli(),
	})
	return batch
}
