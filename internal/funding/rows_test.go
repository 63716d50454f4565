package funding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundingflow/internal/models"
	"fundingflow/internal/store"
)

func fill(s *store.Store, ex models.ExchangeID, asset models.Asset, rates ...float64) {
	for i, r := range rates {
		s.Append(ex, asset, r, int64(i))
	}
}

func TestRowsScenario(t *testing.T) {
	s := store.New(500)
	fill(s, models.ExchangeHyperliquid, models.AssetBTC, 0.0001, 0.0002, 0.0003)
	fill(s, models.ExchangeCoinbase, models.AssetBTC, 0, 0, 0)

	rows := Rows(s, models.ExchangeHyperliquid, models.ExchangeCoinbase, 3)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, models.AssetBTC, row.Asset)
	assert.InDelta(t, 0.0002, row.LeftRate, 1e-12)
	assert.Equal(t, 0.0, row.RightRate)
	assert.InDelta(t, 0.0002, row.Spread, 1e-12)
	assert.InDelta(t, 175.2, row.APY, 1e-6)
	assert.InDelta(t, 2.0, row.SpreadBps, 1e-9)
	assert.Equal(t, "Long Coinbase / Short Hyperliquid", row.Strategy)
}

func TestStrategySignConvention(t *testing.T) {
	assert.Equal(t, "Long Bybit / Short Binance", Strategy(models.ExchangeBinance, models.ExchangeBybit, 0.001))
	assert.Equal(t, "Long Binance / Short Bybit", Strategy(models.ExchangeBinance, models.ExchangeBybit, -0.001))
	assert.Equal(t, "Long Binance / Short Bybit", Strategy(models.ExchangeBinance, models.ExchangeBybit, 0))
}

func TestRowsOnlyAssetsOnBothSides(t *testing.T) {
	s := store.New(500)
	fill(s, models.ExchangeBinance, models.AssetBTC, 0.0001)
	fill(s, models.ExchangeBinance, models.AssetETH, 0.0001)
	fill(s, models.ExchangeOkx, models.AssetETH, 0.0002, 0.0003)
	fill(s, models.ExchangeOkx, models.AssetSOL, 0.0002)

	rows := Rows(s, models.ExchangeBinance, models.ExchangeOkx, 8)
	require.Len(t, rows, 1)
	assert.Equal(t, models.AssetETH, rows[0].Asset)
	// two samples on the right, averaged over min(8, 2)
	assert.InDelta(t, 0.00025, rows[0].RightRate, 1e-12)
}

func TestRowsSortedBySpreadDescending(t *testing.T) {
	s := store.New(500)
	fill(s, models.ExchangeBybit, models.AssetBTC, 0.0001)
	fill(s, models.ExchangeBybit, models.AssetETH, 0.0005)
	fill(s, models.ExchangeBybit, models.AssetSOL, -0.0002)
	fill(s, models.ExchangeBybit, models.AssetXRP, 0.0001)
	for _, a := range []models.Asset{models.AssetBTC, models.AssetETH, models.AssetSOL, models.AssetXRP} {
		fill(s, models.ExchangeDerive, a, 0)
	}

	rows := Rows(s, models.ExchangeBybit, models.ExchangeDerive, 1)
	got := make([]models.Asset, len(rows))
	for i, r := range rows {
		got[i] = r.Asset
	}
	assert.Equal(t, []models.Asset{models.AssetETH, models.AssetBTC, models.AssetXRP, models.AssetSOL}, got)
}

func TestRowsUsesTrailingWindow(t *testing.T) {
	s := store.New(500)
	fill(s, models.ExchangeLighter, models.AssetDOGE, 1, 1, 1, 0.0004, 0.0002)
	fill(s, models.ExchangeCoinbase, models.AssetDOGE, 0)

	rows := Rows(s, models.ExchangeLighter, models.ExchangeCoinbase, 2)
	require.Len(t, rows, 1)
	assert.InDelta(t, 0.0003, rows[0].LeftRate, 1e-12)
}

func TestAverageRateEmpty(t *testing.T) {
	assert.Equal(t, 0.0, AverageRate(nil, 3))
}
