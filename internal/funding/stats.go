package funding

import (
	"math"
	"sort"

	"fundingflow/internal/models"
)

// SpreadStats summarises the spread between two venues for one asset.
// Values are in basis points except PositiveShare, which is a percentage.
type SpreadStats struct {
	Samples        int     `json:"samples"`
	AvgLeftBps     float64 `json:"avg_left_bps"`
	AvgRightBps    float64 `json:"avg_right_bps"`
	StdLeftBps     float64 `json:"std_left_bps"`
	StdRightBps    float64 `json:"std_right_bps"`
	AvgSpreadBps   float64 `json:"avg_spread_bps"`
	MaxPositiveBps float64 `json:"max_positive_bps"`
	MaxNegativeBps float64 `json:"max_negative_bps"`
	PositiveShare  float64 `json:"positive_share"`
}

// SpreadPoint is one aligned period of two series.
type SpreadPoint struct {
	Timestamp int64   `json:"timestamp"`
	LeftBps   float64 `json:"left_bps"`
	RightBps  float64 `json:"right_bps"`
	SpreadBps float64 `json:"spread_bps"`
}

// Align pairs the most recent min(len) samples of both series, oldest first.
// Timestamps come from the left series.
func Align(left, right models.Series) []SpreadPoint {
	n := left.Len()
	if right.Len() < n {
		n = right.Len()
	}
	points := make([]SpreadPoint, n)
	lo, ro := left.Len()-n, right.Len()-n
	for i := 0; i < n; i++ {
		l := ToBps(left.Rates[lo+i])
		r := ToBps(right.Rates[ro+i])
		points[i] = SpreadPoint{
			Timestamp: left.Timestamps[lo+i],
			LeftBps:   l,
			RightBps:  r,
			SpreadBps: l - r,
		}
	}
	return points
}

// Stats computes spread statistics over aligned points.
func Stats(points []SpreadPoint) SpreadStats {
	st := SpreadStats{Samples: len(points)}
	if len(points) == 0 {
		return st
	}

	lefts := make([]float64, len(points))
	rights := make([]float64, len(points))
	positive := 0
	st.MaxPositiveBps = math.Inf(-1)
	st.MaxNegativeBps = math.Inf(1)
	var spreadSum float64
	for i, p := range points {
		lefts[i] = p.LeftBps
		rights[i] = p.RightBps
		spreadSum += p.SpreadBps
		if p.SpreadBps > 0 {
			positive++
		}
		st.MaxPositiveBps = math.Max(st.MaxPositiveBps, p.SpreadBps)
		st.MaxNegativeBps = math.Min(st.MaxNegativeBps, p.SpreadBps)
	}

	st.AvgLeftBps, st.StdLeftBps = meanStd(lefts)
	st.AvgRightBps, st.StdRightBps = meanStd(rights)
	st.AvgSpreadBps = spreadSum / float64(len(points))
	st.PositiveShare = float64(positive) / float64(len(points)) * 100
	return st
}

// TopSpreads returns up to n points with the largest absolute spread.
func TopSpreads(points []SpreadPoint, n int) []SpreadPoint {
	out := make([]SpreadPoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].SpreadBps) > math.Abs(out[j].SpreadBps)
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// meanStd returns the mean and sample standard deviation.
func meanStd(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(xs)-1))
}
