package metrics

import "fundingflow/logger"

// DropReason classifies why an inbound stream message never reached the store.
type DropReason string

const (
	// DropMalformed covers frames that are not valid JSON or lack the expected shape.
	DropMalformed DropReason = "malformed"
	// DropUnmapped covers venue identifiers outside the canonical asset set.
	DropUnmapped DropReason = "unmapped"
	// DropInvalidRate covers a present rate field that is not a finite number.
	DropInvalidRate DropReason = "invalid_rate"
	// DropChannelFull covers updates discarded because a sink buffer was full.
	DropChannelFull DropReason = "channel_full"
)

// EmitDropMetric counts a dropped message on the recorder and emits a
// metric event.
func EmitDropMetric(log *logger.Log, rec *Recorder, reason DropReason, exchange, symbol string) {
	rec.RecordDrop(exchange, reason)
	Emit(log, Metric{
		Component: "stream_drops",
		Name:      "messages_dropped",
		Value:     1,
		Kind:      KindCounter,
		Exchange:  exchange,
		Symbol:    symbol,
		Reason:    reason,
	})
}
