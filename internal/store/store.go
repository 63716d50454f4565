// Package store keeps the bounded recent funding history per exchange and
// asset. It is the only shared mutable state between stream clients and
// the query path.
package store

import (
	"sort"
	"sync"

	"fundingflow/internal/models"
)

// DefaultMaxPoints bounds every series when no explicit limit is given.
const DefaultMaxPoints = 500

type key struct {
	exchange models.ExchangeID
	asset    models.Asset
}

type series struct {
	rates      []float64
	timestamps []int64
}

// Store maps (exchange, asset) to a FIFO-bounded series. It is safe for
// concurrent use by any number of writers and readers.
type Store struct {
	mu     sync.RWMutex
	series map[key]*series
	limit  int
}

func New(maxPoints int) *Store {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	return &Store{
		series: make(map[key]*series),
		limit:  maxPoints,
	}
}

// MaxPoints reports the per-series bound.
func (s *Store) MaxPoints() int {
	return s.limit
}

// Append records one sample, creating the series on first use, and returns
// the resulting series length.
func (s *Store) Append(exchange models.ExchangeID, asset models.Asset, rate float64, ts int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{exchange: exchange, asset: asset}
	sr, ok := s.series[k]
	if !ok {
		sr = &series{}
		s.series[k] = sr
	}

	if sr.rates == nil {
		sr.rates = make([]float64, 0, s.limit)
		sr.timestamps = make([]int64, 0, s.limit)
	}
	if len(sr.rates) >= s.limit {
		// full: shift left in place so the backing arrays are reused
		n := copy(sr.rates, sr.rates[len(sr.rates)-s.limit+1:])
		copy(sr.timestamps, sr.timestamps[len(sr.timestamps)-s.limit+1:])
		sr.rates = sr.rates[:n]
		sr.timestamps = sr.timestamps[:n]
	}
	sr.rates = append(sr.rates, rate)
	sr.timestamps = append(sr.timestamps, ts)

	if len(sr.rates) != len(sr.timestamps) {
		panic("store: rates and timestamps diverged")
	}
	return len(sr.rates)
}

// Handle appends a normalized update.
func (s *Store) Handle(u models.FundingUpdate) {
	s.Append(u.Exchange, u.Asset, u.Rate, u.Timestamp)
}

// Snapshot returns a copy of the series so callers can compute without
// holding the lock.
func (s *Store) Snapshot(exchange models.ExchangeID, asset models.Asset) (models.Series, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sr, ok := s.series[key{exchange: exchange, asset: asset}]
	if !ok || len(sr.rates) == 0 {
		return models.Series{}, false
	}

	out := models.Series{
		Rates:      make([]float64, len(sr.rates)),
		Timestamps: make([]int64, len(sr.timestamps)),
	}
	copy(out.Rates, sr.rates)
	copy(out.Timestamps, sr.timestamps)
	return out, true
}

// Latest returns the most recent sample of a series.
func (s *Store) Latest(exchange models.ExchangeID, asset models.Asset) (rate float64, ts int64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sr, found := s.series[key{exchange: exchange, asset: asset}]
	if !found || len(sr.rates) == 0 {
		return 0, 0, false
	}
	n := len(sr.rates) - 1
	return sr.rates[n], sr.timestamps[n], true
}

// Assets lists the assets with at least one sample for the exchange, in
// canonical order.
func (s *Store) Assets(exchange models.ExchangeID) []models.Asset {
	s.mu.RLock()
	out := make([]models.Asset, 0)
	for k, sr := range s.series {
		if k.exchange == exchange && len(sr.rates) > 0 {
			out = append(out, k.asset)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Rank() < out[j].Rank() })
	return out
}
