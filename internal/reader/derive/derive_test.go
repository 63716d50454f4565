package derive

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundingflow/internal/metrics"
	"fundingflow/internal/models"
)

var now = time.UnixMilli(1700000000000)

func TestSubscriptions(t *testing.T) {
	subs, err := New("", nil).Subscriptions()
	require.NoError(t, err)
	require.Len(t, subs, 1)

	var req struct {
		Method string `json:"method"`
		Params struct {
			Channels []string `json:"channels"`
		} `json:"params"`
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(subs[0], &req))
	assert.Equal(t, "subscribe", req.Method)
	assert.Equal(t, "ticker.BTC-PERP.1000", req.Params.Channels[0])
	assert.Len(t, req.Params.Channels, 6)
	assert.NotEmpty(t, req.ID)
}

func TestParseTicker(t *testing.T) {
	raw := []byte(`{"method":"subscription","params":{"channel":"ticker.ETH-PERP.1000","data":{"timestamp":1700000004000,"instrument_ticker":{"instrument_name":"ETH-PERP","funding_rate":"0.0000321","mark_price":"2001.5","index_price":"2000.9","perp_details":{"funding_rate":"0.9"}}}}}`)

	batch := New("", nil).Parse(raw, now)
	require.Len(t, batch.Updates, 1)
	u := batch.Updates[0]
	assert.Equal(t, models.ExchangeDerive, u.Exchange)
	assert.Equal(t, models.AssetETH, u.Asset)
	assert.Equal(t, 0.0000321, u.Rate)
	assert.Equal(t, int64(1700000004000), u.Timestamp)
	require.NotNil(t, u.MarkPrice)
	assert.Equal(t, 2001.5, *u.MarkPrice)
}

func TestParsePerpDetailsFallback(t *testing.T) {
	raw := []byte(`{"method":"subscription","params":{"channel":"ticker.BTC-PERP.1000","data":{"instrument_ticker":{"perp_details":{"funding_rate":"0.00002"}}}}}`)

	batch := New("", nil).Parse(raw, now)
	require.Len(t, batch.Updates, 1)
	assert.Equal(t, models.AssetBTC, batch.Updates[0].Asset)
	assert.Equal(t, 0.00002, batch.Updates[0].Rate)
	assert.Equal(t, now.UnixMilli(), batch.Updates[0].Timestamp)
}

func TestParseRejects(t *testing.T) {
	v := New("", nil)

	nan := v.Parse([]byte(`{"method":"subscription","params":{"channel":"ticker.BTC-PERP.1000","data":{"instrument_ticker":{"instrument_name":"BTC-PERP","funding_rate":"not-a-number"}}}}`), now)
	assert.Empty(t, nan.Updates)
	assert.Equal(t, metrics.DropInvalidRate, nan.Drops[0].Reason)

	unmapped := v.Parse([]byte(`{"method":"subscription","params":{"channel":"ticker.LYRA-PERP.1000","data":{"instrument_ticker":{"funding_rate":"0.1"}}}}`), now)
	require.Len(t, unmapped.Drops, 1)
	assert.Equal(t, metrics.DropUnmapped, unmapped.Drops[0].Reason)
	assert.Equal(t, "LYRA-PERP", unmapped.Drops[0].Symbol)

	ack := v.Parse([]byte(`{"id":"abc","result":{"status":{"ticker.BTC-PERP.1000":"ok"}}}`), now)
	assert.Empty(t, ack.Updates)
	assert.Empty(t, ack.Drops)
}
