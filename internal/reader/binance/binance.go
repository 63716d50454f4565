// Package binance reads the all-market mark price stream of Binance USDⓈ-M
// futures, which carries the current funding rate for every perpetual.
package binance

import (
	"bytes"
	"encoding/json"
	"sync/atomic"
	"time"

	futures "github.com/adshao/go-binance/v2/futures"

	"fundingflow/internal/metrics"
	"fundingflow/internal/models"
	"fundingflow/internal/reader"
	"fundingflow/internal/symbols"
)

const (
	DefaultURL      = "wss://fstream.binance.com/ws"
	markPriceStream = "!markPrice@arr@1s"
)

type Venue struct {
	url    string
	table  *symbols.Table[string]
	nextID atomic.Int64
}

// New returns the venue. Empty url and nil table select the defaults.
func New(url string, table *symbols.Table[string]) *Venue {
	if url == "" {
		url = DefaultURL
	}
	if table == nil {
		table = symbols.Binance
	}
	return &Venue{url: url, table: table}
}

func (v *Venue) Exchange() models.ExchangeID { return models.ExchangeBinance }

func (v *Venue) URL() string { return v.url }

// Subscriptions requests the wildcard stream; tracked symbols are filtered
// on receipt.
func (v *Venue) Subscriptions() ([][]byte, error) {
	if v.table.Len() == 0 {
		return nil, nil
	}
	req := struct {
		Method string   `json:"method"`
		Params []string `json:"params"`
		ID     int64    `json:"id"`
	}{
		Method: "SUBSCRIBE",
		Params: []string{markPriceStream},
		ID:     v.nextID.Add(1),
	}
	frame, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

type ack struct {
	ID     *int64          `json:"id"`
	Result json.RawMessage `json:"result"`
}

func (v *Venue) Parse(raw []byte, receivedAt time.Time) reader.Batch {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return reader.Malformed()
	}
	if trimmed[0] != '[' {
		var a ack
		if err := json.Unmarshal(trimmed, &a); err != nil {
			return reader.Malformed()
		}
		return reader.Batch{}
	}

	var events []futures.WsMarkPriceEvent
	if err := json.Unmarshal(trimmed, &events); err != nil {
		return reader.Malformed()
	}

	var batch reader.Batch
	for _, ev := range events {
		asset, ok := v.table.Asset(ev.Symbol)
		if !ok {
			// the wildcard stream carries every market; untracked ones are not drops
			continue
		}
		rate, ok := reader.PickRate(reader.NumberOf(ev.FundingRate))
		if !ok {
			batch.Drop(metrics.DropInvalidRate, ev.Symbol)
			continue
		}
		batch.Add(models.FundingUpdate{
			Exchange:   models.ExchangeBinance,
			Asset:      asset,
			Rate:       rate,
			MarkPrice:  reader.NumberOf(ev.MarkPrice).Ptr(),
			IndexPrice: reader.NumberOf(ev.IndexPrice).Ptr(),
			Timestamp:  reader.Timestamp(ev.Time, receivedAt),
		})
	}
	return batch
}
