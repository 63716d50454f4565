// Package bybit reads linear perpetual tickers from Bybit's v5 public stream.
package bybit

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
	DefaultURL   = "wss://stream.bybit.com/v5/public/linear"
	topicPrefix  = "tickers."
	maxTopicArgs = 10
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
		table = symbols.Bybit
	}
	return &Venue{url: url, table: table}
}

func (v *Venue) Exchange() models.ExchangeID { return models.ExchangeBybit }

func (v *Venue) URL() string { return v.url }

// Subscriptions batches topics because Bybit limits args per request.
func (v *Venue) Subscriptions() ([][]byte, error) {
	ids := v.table.Identifiers()
	frames := make([][]byte, 0, len(ids)/maxTopicArgs+1)
	for start := 0; start < len(ids); start += maxTopicArgs {
		end := start + maxTopicArgs
		if end > len(ids) {
			end = len(ids)
		}
		args := make([]string, 0, end-start)
		for _, sym := range ids[start:end] {
			args = append(args, topicPrefix+sym)
		}
		frame, err := json.Marshal(struct {
			Op    string   `json:"op"`
			Args  []string `json:"args"`
			ReqID string   `json:"req_id"`
		}{Op: "subscribe", Args: args, ReqID: uuid.NewString()})
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// Ping is Bybit's application heartbeat.
func (v *Venue) Ping() []byte {
	return []byte(`{"op":"ping"}`)
}

type tickerData struct {
	Symbol      string        `json:"symbol"`
	FundingRate reader.Number `json:"fundingRate"`
	MarkPrice   reader.Number `json:"markPrice"`
	IndexPrice  reader.Number `json:"indexPrice"`
}

type message struct {
	Op    string          `json:"op"`
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	Ts    int64           `json:"ts"`
	Data  json.RawMessage `json:"data"`
}

func (v *Venue) Parse(raw []byte, receivedAt time.Time) reader.Batch {
	var msg message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return reader.Malformed()
	}
	if msg.Op != "" || !strings.HasPrefix(msg.Topic, topicPrefix) {
		return reader.Batch{}
	}

	var data tickerData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return reader.Malformed()
	}
	symbol := data.Symbol
	if symbol == "" {
		symbol = strings.TrimPrefix(msg.Topic, topicPrefix)
	}

	var batch reader.Batch
	asset, ok := v.table.Asset(symbol)
	if !ok {
		batch.Drop(metrics.DropUnmapped, symbol)
		return batch
	}
	if !data.FundingRate.Present() {
		// delta frames only carry changed fields
		return batch
	}
	rate, ok := reader.PickRate(data.FundingRate)
	if !ok {
		batch.Drop(metrics.DropInvalidRate, symbol)
		return batch
	}
	batch.Add(models.FundingUpdate{
		Exchange:   models.ExchangeBybit,
		Asset:      asset,
		Rate:       rate,
		MarkPrice:  data.MarkPrice.Ptr(),
		IndexPrice: data.IndexPrice.Ptr(),
		Timestamp:  reader.Timestamp(msg.Ts, receivedAt),
	})
	return batch
}
