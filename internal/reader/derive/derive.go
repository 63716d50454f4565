// Package derive reads perpetual tickers from Derive's JSON-RPC websocket.
package derive

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"fundingflow/internal/metrics"
	"fundingflow/internal/models"
	"fundingflow/internal/reader"
	"fundingflow/internal/symbols"
)

const (
	DefaultURL     = "wss://api.lyra.finance/ws"
	tickerPrefix   = "ticker."
	tickerInterval = "1000"
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
		table = symbols.Derive
	}
	return &Venue{url: url, table: table}
}

func (v *Venue) Exchange() models.ExchangeID { return models.ExchangeDerive }

func (v *Venue) URL() string { return v.url }

func tickerChannel(instrument string) string {
	return tickerPrefix + instrument + "." + tickerInterval
}

// instrumentFromChannel extracts "BTC-PERP" from "ticker.BTC-PERP.1000".
func instrumentFromChannel(channel string) string {
	rest := strings.TrimPrefix(channel, tickerPrefix)
	if i := strings.LastIndex(rest, "."); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func (v *Venue) Subscriptions() ([][]byte, error) {
	ids := v.table.Identifiers()
	if len(ids) == 0 {
		return nil, nil
	}
	channels := make([]string, 0, len(ids))
	for _, id := range ids {
		channels = append(channels, tickerChannel(id))
	}

	type params struct {
		Channels []string `json:"channels"`
	}
	frame, err := json.Marshal(struct {
		Method string `json:"method"`
		Params params `json:"params"`
		ID     string `json:"id"`
	}{Method: "subscribe", Params: params{Channels: channels}, ID: uuid.NewString()})
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

type instrumentTicker struct {
	InstrumentName string        `json:"instrument_name"`
	FundingRate    reader.Number `json:"funding_rate"`
	MarkPrice      reader.Number `json:"mark_price"`
	IndexPrice     reader.Number `json:"index_price"`
	PerpDetails    struct {
		FundingRate reader.Number `json:"funding_rate"`
	} `json:"perp_details"`
}

type notification struct {
	Method string `json:"method"`
	Params struct {
		Channel string `json:"channel"`
		Data    struct {
			Timestamp        reader.Number    `json:"timestamp"`
			InstrumentTicker instrumentTicker `json:"instrument_ticker"`
		} `json:"data"`
	} `json:"params"`
}

// Parse prefers instrument_ticker.funding_rate and falls back to
// perp_details.funding_rate when the first is absent.
func (v *Venue) Parse(raw []byte, receivedAt time.Time) reader.Batch {
	var msg notification
	if err := json.Unmarshal(raw, &msg); err != nil {
		return reader.Malformed()
	}
	if msg.Method != "subscription" || !strings.HasPrefix(msg.Params.Channel, tickerPrefix) {
		return reader.Batch{}
	}

	ticker := msg.Params.Data.InstrumentTicker
	name := ticker.InstrumentName
	if name == "" {
		name = instrumentFromChannel(msg.Params.Channel)
	}

	var batch reader.Batch
	asset, ok := v.table.Asset(name)
	if !ok {
		batch.Drop(metrics.DropUnmapped, name)
		return batch
	}
	rate, ok := reader.PickRate(ticker.FundingRate, ticker.PerpDetails.FundingRate)
	if !ok {
		batch.Drop(metrics.DropInvalidRate, name)
		return batch
	}
	batch.Add(models.FundingUpdate{
		Exchange:   models.ExchangeDerive,
		Asset:      asset,
		Rate:       rate,
		MarkPrice:  ticker.MarkPrice.Ptr(),
		IndexPrice: ticker.IndexPrice.Ptr(),
		Timestamp:  reader.Timestamp(msg.Params.Data.Timestamp.Int(), receivedAt),
	})
	return batch
}
