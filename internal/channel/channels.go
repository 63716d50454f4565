package channel

import (
	"context"
	"sync"

	"fundingflow/internal/models"
	"fundingflow/logger"
)

// ChannelStats tracks enqueue/dropped counters.
type ChannelStats struct {
	Sent    int64
	Dropped int64
}

// Channels carries accepted funding updates from the ingestion callback to
// downstream sinks. Sends never block the stream clients.
type Channels struct {
	Updates chan models.FundingUpdate

	stats     ChannelStats
	mu        sync.RWMutex
	closeOnce sync.Once
	log       *logger.Log
}

// NewChannels allocates the buffered update stream.
func NewChannels(bufferSize int) *Channels {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	log := logger.GetLogger()
	ch := &Channels{
		Updates: make(chan models.FundingUpdate, bufferSize),
		log:     log,
	}

	log.WithComponent("update_channels").WithField("buffer_size", bufferSize).Info("update channels initialized")
	return ch
}

// Close closes the update stream. It is safe to call more than once.
func (c *Channels) Close() {
	c.closeOnce.Do(func() {
		close(c.Updates)
		c.log.WithComponent("update_channels").Info("update channels closed")
	})
}

// SendUpdate enqueues an update, dropping it when the buffer is full.
func (c *Channels) SendUpdate(ctx context.Context, u models.FundingUpdate) bool {
	select {
	case c.Updates <- u:
		c.increment(&c.stats.Sent)
		return true
	case <-ctx.Done():
		return false
	default:
		c.increment(&c.stats.Dropped)
		return false
	}
}

// GetStats returns a snapshot of the telemetry counters.
func (c *Channels) GetStats() ChannelStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Occupancy reports the current length and capacity of the buffer.
func (c *Channels) Occupancy() (int, int) {
	return len(c.Updates), cap(c.Updates)
}

func (c *Channels) increment(counter *int64) {
	c.mu.Lock()
	*counter++
	c.mu.Unlock()
}
