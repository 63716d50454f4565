// Package reader runs one long-lived websocket connection per exchange and
// turns inbound frames into normalized funding updates.
package reader

import (
	"time"

	"fundingflow/internal/metrics"
	"fundingflow/internal/models"
)

// Venue is the wire protocol of a single exchange.
type Venue interface {
	Exchange() models.ExchangeID
	URL() string
	// Subscriptions returns the frames sent after every successful handshake.
	// An empty result marks the venue as not configured.
	Subscriptions() ([][]byte, error)
	// Parse normalizes one inbound frame. It never fails; unusable content is
	// reported as drops.
	Parse(raw []byte, receivedAt time.Time) Batch
}

// Pinger is implemented by venues that expect an application level ping
// instead of a websocket control frame.
type Pinger interface {
	Ping() []byte
}

// Replier is implemented by venues whose server sends pings that must be
// answered. A nil reply means the frame is not a ping.
type Replier interface {
	Reply(raw []byte) []byte
}

// Drop is a message, or one entry of it, that did not become an update.
type Drop struct {
	Reason metrics.DropReason
	Symbol string
}

// Batch collects the outcome of parsing one frame.
type Batch struct {
	Updates []models.FundingUpdate
	Drops   []Drop
}

func (b *Batch) Add(u models.FundingUpdate) {
	b.Updates = append(b.Updates, u)
}

func (b *Batch) Drop(reason metrics.DropReason, symbol string) {
	b.Drops = append(b.Drops, Drop{Reason: reason, Symbol: symbol})
}

// Malformed is a batch holding a single malformed drop.
func Malformed() Batch {
	return Batch{Drops: []Drop{{Reason: metrics.DropMalformed}}}
}

// Timestamp returns the venue time in milliseconds when it is positive and
// falls back to the receive time otherwise.
func Timestamp(venueMillis int64, receivedAt time.Time) int64 {
	if venueMillis > 0 {
		return venueMillis
	}
	return receivedAt.UnixMilli()
}
