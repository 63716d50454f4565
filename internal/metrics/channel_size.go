package metrics

import (
	"context"
	"time"

	"fundingflow/logger"
)

// BufferStats is a point-in-time view of a buffered channel.
type BufferStats struct {
	Length   int
	Capacity int
	Sent     int64
	Dropped  int64
}

// BufferSampler samples one buffer.
type BufferSampler func() BufferStats

// StartChannelSizeMetrics emits occupancy metrics for the named buffers every
// interval until the context is cancelled. When interval <= 0 a one-second
// cadence is used.
func StartChannelSizeMetrics(ctx context.Context, buffers map[string]BufferSampler, interval time.Duration) {
	if len(buffers) == 0 {
		return
	}
	if interval <= 0 {
		interval = time.Second
	}

	log := logger.GetLogger()
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for name, sample := range buffers {
					if sample == nil {
						continue
					}
					emitBufferStats(log, name, sample())
				}
			}
		}
	}()
}

func emitBufferStats(log *logger.Log, name string, st BufferStats) {
	Emit(log, Metric{
		Component: "channel_buffers",
		Name:      name + "_buffer_length",
		Value:     float64(st.Length),
		Kind:      KindGauge,
		Fields: logger.Fields{
			"buffer":   name,
			"capacity": st.Capacity,
			"sent":     st.Sent,
			"dropped":  st.Dropped,
		},
	})
}
