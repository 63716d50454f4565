// Package funding turns per-period funding rate sequences into payments,
// settlement schedules and cross-venue spread rows. Every function is pure;
// f[i] is the rate of period i+1.
package funding

// HoursPerYear annualizes a per-period rate under the hourly period assumption.
const HoursPerYear = 24 * 365

func clampWindow(k int) int {
	if k < 1 {
		return 1
	}
	return k
}

// Payments returns the base step payment N*f[i] for every period.
func Payments(f []float64, notional float64) []float64 {
	out := make([]float64, len(f))
	for i, r := range f {
		out[i] = notional * r
	}
	return out
}

// WindowedSum returns the trailing sum of the last k rates at every index.
// The window narrows to a prefix sum for the first k-1 indices.
func WindowedSum(f []float64, k int) []float64 {
	k = clampWindow(k)
	out := make([]float64, len(f))
	for i := range f {
		start := i - k + 1
		if start < 0 {
			start = 0
		}
		var sum float64
		for _, r := range f[start : i+1] {
			sum += r
		}
		out[i] = sum
	}
	return out
}

// PiecewiseLump pays N times the windowed sum at every k-th period and zero
// elsewhere. Each lump is summed from its own window's step payments.
func PiecewiseLump(f []float64, notional float64, k int) []float64 {
	k = clampWindow(k)
	out := make([]float64, len(f))
	for i := k - 1; i < len(f); i += k {
		var lump float64
		for j := i - k + 1; j <= i; j++ {
			lump += notional * f[j]
		}
		out[i] = lump
	}
	return out
}

// BufferLump accrues N*f[i] into a buffer and releases it every k-th period.
// It produces the same schedule as PiecewiseLump.
func BufferLump(f []float64, notional float64, k int) []float64 {
	k = clampWindow(k)
	out := make([]float64, len(f))
	var buffer float64
	for i, r := range f {
		buffer += notional * r
		if (i+1)%k == 0 {
			out[i] = buffer
			buffer = 0
		}
	}
	return out
}

// SmoothedBlock splits f into consecutive blocks of k periods (the last may be
// shorter) and spreads each block's payment evenly across its periods.
func SmoothedBlock(f []float64, notional float64, k int) []float64 {
	k = clampWindow(k)
	out := make([]float64, len(f))
	for start := 0; start < len(f); start += k {
		end := start + k
		if end > len(f) {
			end = len(f)
		}
		var sum float64
		for _, r := range f[start:end] {
			sum += r
		}
		per := notional * sum / float64(end-start)
		for i := start; i < end; i++ {
			out[i] = per
		}
	}
	return out
}

// Settlement bundles every payment view of one rate sequence.
type Settlement struct {
	Window        int       `json:"window"`
	Notional      float64   `json:"notional"`
	Rates         []float64 `json:"rates"`
	Payments      []float64 `json:"payments"`
	WindowedSum   []float64 `json:"windowed_sum"`
	PiecewiseLump []float64 `json:"piecewise_lump"`
	BufferLump    []float64 `json:"buffer_lump"`
	SmoothedBlock []float64 `json:"smoothed_block"`
}

// Combine computes all settlement views for f.
func Combine(f []float64, notional float64, k int) Settlement {
	k = clampWindow(k)
	rates := make([]float64, len(f))
	copy(rates, f)
	return Settlement{
		Window:        k,
		Notional:      notional,
		Rates:         rates,
		Payments:      Payments(f, notional),
		WindowedSum:   WindowedSum(f, k),
		PiecewiseLump: PiecewiseLump(f, notional, k),
		BufferLump:    BufferLump(f, notional, k),
		SmoothedBlock: SmoothedBlock(f, notional, k),
	}
}

// ToBps converts a rate to basis points.
func ToBps(rate float64) float64 {
	return rate * 10000
}

// APY annualizes a per-period spread as a percentage.
func APY(spread float64) float64 {
	return spread * HoursPerYear * 100
}
