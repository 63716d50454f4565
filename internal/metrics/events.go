package metrics

import (
	"sync"
	"time"

	"fundingflow/logger"
)

// Kind is the aggregation a metric event represents.
type Kind string

const (
	KindCounter Kind = "counter"
	KindGauge   Kind = "gauge"
)

// Metric is one structured event about the ingestion pipeline. Exchange,
// Symbol and Reason are set for stream events; Fields carries the rest.
type Metric struct {
	Timestamp time.Time
	Component string
	Name      string
	Value     float64
	Kind      Kind
	Exchange  string
	Symbol    string
	Reason    DropReason
	Fields    logger.Fields
}

// dimensions are the labels published alongside the value.
func (m Metric) dimensions() logger.Fields {
	dims := logger.Fields{}
	if m.Exchange != "" {
		dims["exchange"] = m.Exchange
	}
	if m.Reason != "" {
		dims["reason"] = string(m.Reason)
	}
	return dims
}

// MetricHandler consumes metric events, e.g. the dashboard history.
type MetricHandler func(Metric)

// MetricHandlerID identifies a registration; zero is never issued.
type MetricHandlerID uint64

type handlerSet struct {
	mu       sync.RWMutex
	handlers map[MetricHandlerID]MetricHandler
	next     MetricHandlerID
}

var subscribers = &handlerSet{handlers: make(map[MetricHandlerID]MetricHandler)}

// RegisterMetricHandler subscribes handler to every emitted event. A nil
// handler is ignored and yields zero.
func RegisterMetricHandler(handler MetricHandler) MetricHandlerID {
	if handler == nil {
		return 0
	}
	subscribers.mu.Lock()
	defer subscribers.mu.Unlock()
	subscribers.next++
	subscribers.handlers[subscribers.next] = handler
	return subscribers.next
}

func UnregisterMetricHandler(id MetricHandlerID) {
	if id == 0 {
		return
	}
	subscribers.mu.Lock()
	delete(subscribers.handlers, id)
	subscribers.mu.Unlock()
}

func (s *handlerSet) dispatch(m Metric) {
	s.mu.RLock()
	handlers := make([]MetricHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()

	for _, h := range handlers {
		h(m)
	}
}

// Emit stamps the event, logs it at debug, hands it to registered handlers
// and queues it for CloudWatch. Nothing here waits on the network, so it is
// safe to call from a stream read loop.
func Emit(log *logger.Log, m Metric) {
	if m.Name == "" {
		return
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	if m.Kind == "" {
		m.Kind = KindCounter
	}
	if log == nil {
		log = logger.GetLogger()
	}

	entry := log.WithComponent(m.Component).WithFields(m.Fields).WithFields(m.dimensions()).WithFields(logger.Fields{
		"metric":      m.Name,
		"metric_type": string(m.Kind),
		"value":       m.Value,
	})
	if m.Symbol != "" {
		entry = entry.WithField("symbol", m.Symbol)
	}
	entry.Debug("metric")

	subscribers.dispatch(m)
	logger.PublishMetric(m.Component, m.Name, m.Value, m.dimensions())
}
