// Package okx reads the funding-rate channel of OKX perpetual swaps.
package okx

import (
	"bytes"
	"encoding/json"
	"time"

	"fundingflow/internal/metrics"
	"fundingflow/internal/models"
	"fundingflow/internal/reader"
	"fundingflow/internal/symbols"
)

const (
	DefaultURL     = "wss://ws.okx.com:8443/ws/v5/public"
	fundingChannel = "funding-rate"
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
		table = symbols.Okx
	}
	return &Venue{url: url, table: table}
}

func (v *Venue) Exchange() models.ExchangeID { return models.ExchangeOkx }

func (v *Venue) URL() string { return v.url }

type channelArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

func (v *Venue) Subscriptions() ([][]byte, error) {
	ids := v.table.Identifiers()
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]channelArg, 0, len(ids))
	for _, id := range ids {
		args = append(args, channelArg{Channel: fundingChannel, InstID: id})
	}
	frame, err := json.Marshal(struct {
		Op   string       `json:"op"`
		Args []channelArg `json:"args"`
	}{Op: "subscribe", Args: args})
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

// Ping is the plain text keepalive OKX answers with "pong".
func (v *Venue) Ping() []byte {
	return []byte("ping")
}

type fundingData struct {
	InstID          string        `json:"instId"`
	FundingRate     reader.Number `json:"fundingRate"`
	NextFundingRate reader.Number `json:"nextFundingRate"`
	Ts              reader.Number `json:"ts"`
}

type message struct {
	Event string        `json:"event"`
	Arg   channelArg    `json:"arg"`
	Data  []fundingData `json:"data"`
}

// Parse uses fundingRate and falls back to nextFundingRate only when the
// current rate is absent.
func (v *Venue) Parse(raw []byte, receivedAt time.Time) reader.Batch {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("pong")) {
		return reader.Batch{}
	}

	var msg message
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return reader.Malformed()
	}
	if msg.Event != "" || msg.Arg.Channel != fundingChannel {
		return reader.Batch{}
	}

	var batch reader.Batch
	for _, d := range msg.Data {
		instID := d.InstID
		if instID == "" {
			instID = msg.Arg.InstID
		}
		asset, ok := v.table.Asset(instID)
		if !ok {
			batch.Drop(metrics.DropUnmapped, instID)
			continue
		}
		rate, ok := reader.PickRate(d.FundingRate, d.NextFundingRate)
		if !ok {
			batch.Drop(metrics.DropInvalidRate, instID)
			continue
		}
		batch.Add(models.FundingUpdate{
			Exchange:  models.ExchangeOkx,
			Asset:     asset,
			Rate:      rate,
			Timestamp: reader.Timestamp(d.Ts.Int(), receivedAt),
		})
	}
	return batch
}
