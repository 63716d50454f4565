// Registers:
//
//	#fundingflow_updates_total{exchange,asset}
//	#fundingflow_messages_dropped_total{exchange,reason}
//	#fundingflow_reconnects_total{exchange}
//	#fundingflow_publish_errors_total{sink}
//	#go_* and process_* system metrics
//
// Exposed through Handler on the dashboard router.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the Prometheus collectors for ingestion.
type Recorder struct {
	registry      *prometheus.Registry
	updates       *prometheus.CounterVec
	drops         *prometheus.CounterVec
	reconnects    *prometheus.CounterVec
	publishErrors *prometheus.CounterVec
}

// NewRecorder registers collectors on a private registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Recorder{
		registry: reg,
		updates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundingflow_updates_total",
				Help: "Funding updates accepted into the store",
			},
			[]string{"exchange", "asset"},
		),
		drops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundingflow_messages_dropped_total",
				Help: "Inbound stream messages dropped before reaching the store",
			},
			[]string{"exchange", "reason"},
		),
		reconnects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundingflow_reconnects_total",
				Help: "Stream reconnect attempts",
			},
			[]string{"exchange"},
		),
		publishErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundingflow_publish_errors_total",
				Help: "Failed deliveries to downstream sinks",
			},
			[]string{"sink"},
		),
	}
}

var (
	defaultOnce     sync.Once
	defaultRecorder *Recorder
)

// Default returns the process wide recorder.
func Default() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewRecorder()
	})
	return defaultRecorder
}

func (r *Recorder) RecordUpdate(exchange, asset string) {
	if r == nil {
		return
	}
	r.updates.WithLabelValues(exchange, asset).Inc()
}

func (r *Recorder) RecordDrop(exchange string, reason DropReason) {
	if r == nil {
		return
	}
	r.drops.WithLabelValues(exchange, string(reason)).Inc()
}

func (r *Recorder) RecordReconnect(exchange string) {
	if r == nil {
		return
	}
	r.reconnects.WithLabelValues(exchange).Inc()
}

func (r *Recorder) RecordPublishError(sink string) {
	if r == nil {
		return
	}
	r.publishErrors.WithLabelValues(sink).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
