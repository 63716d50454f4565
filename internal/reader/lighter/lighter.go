// Package lighter reads market statistics from Lighter, which identifies
// markets by numeric index rather than ticker.
package lighter

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"fundingflow/internal/metrics"
	"fundingflow/internal/models"
	"fundingflow/internal/reader"
	"fundingflow/internal/symbols"
)

const (
	DefaultURL   = "wss://mainnet.zklighter.elliot.ai/stream"
	statsChannel = "market_stats"
)

type Venue struct {
	url   string
	table *symbols.Table[int]
}

func New(url string, table *symbols.Table[int]) *Venue {
	if url == "" {
		url = DefaultURL
	}
	if table == nil {
		table = symbols.Lighter
	}
	return &Venue{url: url, table: table}
}

func (v *Venue) Exchange() models.ExchangeID { return models.ExchangeLighter }

func (v *Venue) URL() string { return v.url }

// Subscriptions sends one request per market index.
func (v *Venue) Subscriptions() ([][]byte, error) {
	ids := v.table.Identifiers()
	frames := make([][]byte, 0, len(ids))
	for _, id := range ids {
		frame, err := json.Marshal(struct {
			Type    string `json:"type"`
			Channel string `json:"channel"`
		}{Type: "subscribe", Channel: statsChannel + "/" + strconv.Itoa(id)})
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

var pingFrame = []byte(`"ping"`)

// Reply answers server pings; the connection is dropped when they go
// unanswered.
func (v *Venue) Reply(raw []byte) []byte {
	if !bytes.Contains(raw, pingFrame) {
		return nil
	}
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "ping" {
		return nil
	}
	return []byte(`{"type":"pong"}`)
}

type marketStats struct {
	MarketID           *int          `json:"market_id"`
	CurrentFundingRate reader.Number `json:"current_funding_rate"`
	FundingRate        reader.Number `json:"funding_rate"`
	MarkPrice          reader.Number `json:"mark_price"`
	IndexPrice         reader.Number `json:"index_price"`
}

type message struct {
	Type        string      `json:"type"`
	Channel     string      `json:"channel"`
	MarketStats marketStats `json:"market_stats"`
}

// marketFromChannel reads the index from "market_stats:1" or "market_stats/1".
func marketFromChannel(channel string) (int, bool) {
	i := strings.LastIndexAny(channel, ":/")
	if i < 0 {
		return 0, false
	}
	id, err := strconv.Atoi(channel[i+1:])
	return id, err == nil
}

// Parse uses current_funding_rate and falls back to funding_rate when the
// first is absent. Updates carry the receive time.
func (v *Venue) Parse(raw []byte, receivedAt time.Time) reader.Batch {
	var msg message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return reader.Malformed()
	}
	if !strings.HasPrefix(msg.Channel, statsChannel) || !strings.HasSuffix(msg.Type, statsChannel) {
		return reader.Batch{}
	}

	var batch reader.Batch
	var id int
	if msg.MarketStats.MarketID != nil {
		id = *msg.MarketStats.MarketID
	} else if parsed, ok := marketFromChannel(msg.Channel); ok {
		id = parsed
	} else {
		batch.Drop(metrics.DropMalformed, msg.Channel)
		return batch
	}

	symbol := strconv.Itoa(id)
	asset, ok := v.table.Asset(id)
	if !ok {
		batch.Drop(metrics.DropUnmapped, symbol)
		return batch
	}
	rate, ok := reader.PickRate(msg.MarketStats.CurrentFundingRate, msg.MarketStats.FundingRate)
	if !ok {
		batch.Drop(metrics.DropInvalidRate, symbol)
		return batch
	}
	batch.Add(models.FundingUpdate{
		Exchange:   models.ExchangeLighter,
		Asset:      asset,
		Rate:       rate,
		MarkPrice:  msg.MarketStats.MarkPrice.Ptr(),
		IndexPrice: msg.MarketStats.IndexPrice.Ptr(),
		Timestamp:  receivedAt.UnixMilli(),
	})
	return batch
}
