package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundingflow/internal/models"
)

func TestAppendKeepsLengthsEqualAndBounded(t *testing.T) {
	s := New(5)
	for i := 0; i < 12; i++ {
		n := s.Append(models.ExchangeBinance, models.AssetBTC, float64(i), int64(i))
		assert.LessOrEqual(t, n, 5)
	}

	snap, ok := s.Snapshot(models.ExchangeBinance, models.AssetBTC)
	require.True(t, ok)
	assert.Equal(t, len(snap.Rates), len(snap.Timestamps))
	assert.Equal(t, 5, snap.Len())
}

func TestAppendEvictsFIFO(t *testing.T) {
	const maxPoints, extra = 4, 3
	s := New(maxPoints)
	for i := 0; i < maxPoints+extra; i++ {
		s.Append(models.ExchangeOkx, models.AssetETH, float64(i)/10, int64(1000+i))
	}

	snap, ok := s.Snapshot(models.ExchangeOkx, models.AssetETH)
	require.True(t, ok)
	assert.Equal(t, []float64{0.3, 0.4, 0.5, 0.6}, snap.Rates)
	assert.Equal(t, []int64{1003, 1004, 1005, 1006}, snap.Timestamps)
}

func TestAppendAtCapacityReusesStorage(t *testing.T) {
	const maxPoints = 8
	s := New(maxPoints)
	for i := 0; i < maxPoints; i++ {
		s.Append(models.ExchangeLighter, models.AssetBTC, float64(i), int64(i))
	}

	next := maxPoints
	allocs := testing.AllocsPerRun(100, func() {
		s.Append(models.ExchangeLighter, models.AssetBTC, float64(next), int64(next))
		next++
	})
	assert.Zero(t, allocs)

	snap, ok := s.Snapshot(models.ExchangeLighter, models.AssetBTC)
	require.True(t, ok)
	require.Equal(t, maxPoints, snap.Len())
	assert.Equal(t, int64(next-1), snap.Timestamps[maxPoints-1])
	assert.Equal(t, int64(next-maxPoints), snap.Timestamps[0])
}

func TestAppendPreservesArrivalOrder(t *testing.T) {
	s := New(10)
	s.Append(models.ExchangeBybit, models.AssetSOL, 0.1, 300)
	s.Append(models.ExchangeBybit, models.AssetSOL, 0.2, 100)
	s.Append(models.ExchangeBybit, models.AssetSOL, 0.3, 200)

	snap, _ := s.Snapshot(models.ExchangeBybit, models.AssetSOL)
	assert.Equal(t, []int64{300, 100, 200}, snap.Timestamps)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New(10)
	s.Append(models.ExchangeBinance, models.AssetBTC, 1, 1)

	snap, _ := s.Snapshot(models.ExchangeBinance, models.AssetBTC)
	snap.Rates[0] = 99

	again, _ := s.Snapshot(models.ExchangeBinance, models.AssetBTC)
	assert.Equal(t, 1.0, again.Rates[0])
}

func TestSnapshotMissing(t *testing.T) {
	s := New(0)
	_, ok := s.Snapshot(models.ExchangeLighter, models.AssetBTC)
	assert.False(t, ok)
	assert.Equal(t, DefaultMaxPoints, s.MaxPoints())
}

func TestAssetsAndLatest(t *testing.T) {
	s := New(10)
	s.Handle(models.FundingUpdate{Exchange: models.ExchangeHyperliquid, Asset: models.AssetSOL, Rate: 0.1, Timestamp: 5})
	s.Handle(models.FundingUpdate{Exchange: models.ExchangeHyperliquid, Asset: models.AssetBTC, Rate: 0.2, Timestamp: 6})
	s.Handle(models.FundingUpdate{Exchange: models.ExchangeHyperliquid, Asset: models.AssetBTC, Rate: 0.3, Timestamp: 7})
	s.Handle(models.FundingUpdate{Exchange: models.ExchangeDerive, Asset: models.AssetETH, Rate: 0.4, Timestamp: 8})

	assert.Equal(t, []models.Asset{models.AssetBTC, models.AssetSOL}, s.Assets(models.ExchangeHyperliquid))
	assert.Empty(t, s.Assets(models.ExchangeCoinbase))

	rate, ts, ok := s.Latest(models.ExchangeHyperliquid, models.AssetBTC)
	require.True(t, ok)
	assert.Equal(t, 0.3, rate)
	assert.Equal(t, int64(7), ts)
}

func TestConcurrentWritersAndReaders(t *testing.T) {
	s := New(50)
	var wg sync.WaitGroup
	for _, ex := range models.Exchanges() {
		wg.Add(2)
		go func(ex models.ExchangeID) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				s.Append(ex, models.AssetBTC, float64(i), int64(i))
			}
		}(ex)
		go func(ex models.ExchangeID) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if snap, ok := s.Snapshot(ex, models.AssetBTC); ok {
					if len(snap.Rates) != len(snap.Timestamps) {
						t.Errorf("length mismatch %d != %d", len(snap.Rates), len(snap.Timestamps))
						return
					}
				}
			}
		}(ex)
	}
	wg.Wait()

	for _, ex := range models.Exchanges() {
		snap, ok := s.Snapshot(ex, models.AssetBTC)
		require.True(t, ok)
		assert.Equal(t, 50, snap.Len())
		assert.Equal(t, 499.0, snap.Rates[49])
	}
}
