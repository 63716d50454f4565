package funding

import (
	"fmt"
	"math"
	"sort"

	"fundingflow/internal/models"
)

// SeriesReader is the read side of the time-series store.
type SeriesReader interface {
	Snapshot(exchange models.ExchangeID, asset models.Asset) (models.Series, bool)
	Assets(exchange models.ExchangeID) []models.Asset
}

// AverageRate is the trailing windowed sum at the latest index divided by
// min(k, len(f)). It is zero for an empty sequence.
func AverageRate(f []float64, k int) float64 {
	if len(f) == 0 {
		return 0
	}
	k = clampWindow(k)
	sums := WindowedSum(f, k)
	denom := k
	if len(f) < denom {
		denom = len(f)
	}
	return sums[len(sums)-1] / float64(denom)
}

// Strategy labels the position pair for a spread of left minus right.
func Strategy(left, right models.ExchangeID, spread float64) string {
	if spread > 0 {
		return fmt.Sprintf("Long %s / Short %s", right.Label(), left.Label())
	}
	return fmt.Sprintf("Long %s / Short %s", left.Label(), right.Label())
}

// Row builds the arbitrage row for one asset from two aligned series.
func Row(asset models.Asset, left, right models.ExchangeID, leftRates, rightRates []float64, k int) models.ArbitrageRow {
	leftRate := AverageRate(leftRates, k)
	rightRate := AverageRate(rightRates, k)
	spread := leftRate - rightRate
	return models.ArbitrageRow{
		Asset:     asset,
		LeftRate:  leftRate,
		RightRate: rightRate,
		Spread:    spread,
		SpreadBps: ToBps(spread),
		APY:       APY(spread),
		Strategy:  Strategy(left, right, spread),
	}
}

// Rows ranks every asset that has samples on both exchanges by spread,
// highest first. Ties keep canonical asset order.
func Rows(r SeriesReader, left, right models.ExchangeID, k int) []models.ArbitrageRow {
	rightAssets := make(map[models.Asset]struct{})
	for _, a := range r.Assets(right) {
		rightAssets[a] = struct{}{}
	}

	rows := make([]models.ArbitrageRow, 0)
	for _, asset := range r.Assets(left) {
		if _, ok := rightAssets[asset]; !ok {
			continue
		}
		ls, ok := r.Snapshot(left, asset)
		if !ok || ls.Len() == 0 {
			continue
		}
		rs, ok := r.Snapshot(right, asset)
		if !ok || rs.Len() == 0 {
			continue
		}
		row := Row(asset, left, right, ls.Rates, rs.Rates, k)
		if math.IsNaN(row.Spread) || math.IsInf(row.Spread, 0) {
			continue
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Spread != rows[j].Spread {
			return rows[i].Spread > rows[j].Spread
		}
		return rows[i].Asset.Rank() < rows[j].Asset.Rank()
	})
	return rows
}
