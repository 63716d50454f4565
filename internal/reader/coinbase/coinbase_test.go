package coinbase

import (
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
	assert.Contains(t, string(subs[0]), `"channels":["ticker_batch"]`)
	assert.Contains(t, string(subs[0]), `"BTC-USD"`)
}

func TestParseTickerEmitsZeroRate(t *testing.T) {
	raw := []byte(`{"type":"ticker","sequence":1,"product_id":"BTC-USD","price":"37000.01","time":"2023-11-14T22:13:20.123456Z"}`)

	batch := New("", nil).Parse(raw, now)
	require.Len(t, batch.Updates, 1)
	u := batch.Updates[0]
	assert.Equal(t, models.ExchangeCoinbase, u.Exchange)
	assert.Equal(t, models.AssetBTC, u.Asset)
	assert.Equal(t, 0.0, u.Rate)
	require.NotNil(t, u.MarkPrice)
	assert.Equal(t, 37000.01, *u.MarkPrice)
	assert.Equal(t, int64(1700000000123), u.Timestamp)
}

func TestParseMissingTimeUsesReceiveTime(t *testing.T) {
	raw := []byte(`{"type":"ticker","product_id":"ETH-USD","price":"bad"}`)
	batch := New("", nil).Parse(raw, now)
	require.Len(t, batch.Updates, 1)
	assert.Equal(t, now.UnixMilli(), batch.Updates[0].Timestamp)
	assert.Nil(t, batch.Updates[0].MarkPrice)
}

func TestParseIgnoresOtherTypes(t *testing.T) {
	v := New("", nil)

	subs := v.Parse([]byte(`{"type":"subscriptions","channels":[]}`), now)
	assert.Empty(t, subs.Updates)
	assert.Empty(t, subs.Drops)

	unmapped := v.Parse([]byte(`{"type":"ticker","product_id":"BNB-USD","price":"1"}`), now)
	require.Len(t, unmapped.Drops, 1)
	assert.Equal(t, metrics.DropUnmapped, unmapped.Drops[0].Reason)

	assert.Equal(t, metrics.DropMalformed, v.Parse([]byte(`]`), now).Drops[0].Reason)
}
