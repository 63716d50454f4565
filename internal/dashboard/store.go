package dashboard

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"fundingflow/internal/metrics"
)

// history keeps the most recent limit items. It is safe for concurrent use.
type history[T any] struct {
	mu    sync.RWMutex
	items []T
	limit int
}

func newHistory[T any](limit int) *history[T] {
	if limit <= 0 {
		limit = 200
	}
	return &history[T]{limit: limit}
}

func (h *history[T]) add(item T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items = append(h.items, item)
	if len(h.items) > h.limit {
		h.items = append([]T(nil), h.items[len(h.items)-h.limit:]...)
	}
}

func (h *history[T]) snapshot() []T {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]T, len(h.items))
	copy(out, h.items)
	return out
}

type metricRecord struct {
	Timestamp time.Time              `json:"timestamp"`
	Component string                 `json:"component"`
	Name      string                 `json:"name"`
	Value     float64                `json:"value"`
	Kind      string                 `json:"kind"`
	Exchange  string                 `json:"exchange,omitempty"`
	Symbol    string                 `json:"symbol,omitempty"`
	Reason    string                 `json:"reason,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// metricStore receives every structured metric event, mostly drop and
// channel occupancy metrics.
type metricStore struct {
	*history[metricRecord]
}

func newMetricStore(limit int) *metricStore {
	return &metricStore{history: newHistory[metricRecord](limit)}
}

func (s *metricStore) handle(m metrics.Metric) {
	s.add(metricRecord{
		Timestamp: m.Timestamp,
		Component: m.Component,
		Name:      m.Name,
		Value:     m.Value,
		Kind:      string(m.Kind),
		Exchange:  m.Exchange,
		Symbol:    m.Symbol,
		Reason:    string(m.Reason),
		Fields:    m.Fields,
	})
}

type logRecord struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Component string                 `json:"component,omitempty"`
	Exchange  string                 `json:"exchange,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// logStore is a logrus hook retaining warnings and errors, so reconnects and
// stream failures can be inspected without tailing the process output.
type logStore struct {
	*history[logRecord]
	enabled atomic.Bool
}

func newLogStore(limit int) *logStore {
	ls := &logStore{history: newHistory[logRecord](limit)}
	ls.enabled.Store(true)
	return ls
}

func (s *logStore) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func (s *logStore) Fire(entry *logrus.Entry) error {
	if !s.enabled.Load() {
		return nil
	}

	record := logRecord{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
	}
	for k, v := range entry.Data {
		switch k {
		case "component":
			record.Component, _ = v.(string)
			continue
		case "exchange":
			record.Exchange, _ = v.(string)
			continue
		}
		if record.Fields == nil {
			record.Fields = make(map[string]interface{}, len(entry.Data))
		}
		switch val := v.(type) {
		case error:
			record.Fields[k] = val.Error()
		case fmt.Stringer:
			record.Fields[k] = val.String()
		default:
			record.Fields[k] = val
		}
	}

	s.add(record)
	return nil
}

// close detaches the store; logrus has no hook removal.
func (s *logStore) close() {
	s.enabled.Store(false)
}
