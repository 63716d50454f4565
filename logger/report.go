package logger

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type streamStat struct {
	messages int64
	bytes    int64
	updates  int64
}

var (
	warnsTotal  int64
	errorsTotal int64
	reconnects  int64
	streams     sync.Map // map[string]*streamStat
)

func recordWarn(component string) {
	if component != "" {
		atomic.AddInt64(&warnsTotal, 1)
	}
}

func recordError(component string) {
	if component != "" {
		atomic.AddInt64(&errorsTotal, 1)
	}
}

func stat(exchange string) *streamStat {
	v, _ := streams.LoadOrStore(exchange, &streamStat{})
	return v.(*streamStat)
}

// RecordStreamMessage counts one inbound websocket frame for an exchange.
func RecordStreamMessage(exchange string, size int) {
	s := stat(exchange)
	atomic.AddInt64(&s.messages, 1)
	atomic.AddInt64(&s.bytes, int64(size))
}

// RecordUpdate counts one accepted funding update for an exchange.
func RecordUpdate(exchange string) {
	atomic.AddInt64(&stat(exchange).updates, 1)
}

// RecordReconnect counts a scheduled reconnect attempt.
func RecordReconnect() {
	atomic.AddInt64(&reconnects, 1)
}

// StartReport begins periodic logging of runtime and stream statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logReport(log)
			}
		}
	}()
}

func logReport(log *Log) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	names := make([]string, 0)
	streamData := map[string]map[string]int64{}
	streams.Range(func(k, v any) bool {
		name := k.(string)
		s := v.(*streamStat)
		names = append(names, name)
		streamData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&s.messages),
			"bytes":    atomic.LoadInt64(&s.bytes),
			"updates":  atomic.LoadInt64(&s.updates),
		}
		return true
	})
	sort.Strings(names)

	fields := Fields{
		"warns":      atomic.LoadInt64(&warnsTotal),
		"errors":     atomic.LoadInt64(&errorsTotal),
		"reconnects": atomic.LoadInt64(&reconnects),
		"cw_dropped": DroppedMetrics(),
		"goroutines": runtime.NumGoroutine(),
		"heap_mb":    int64(mem.HeapAlloc) / 1024 / 1024,
		"streams":    streamData,
	}
	log.WithComponent("report").WithFields(fields).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("HeapMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(mem.HeapAlloc) / 1024 / 1024)},
		{MetricName: aws.String("Goroutines"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(runtime.NumGoroutine()))},
		{MetricName: aws.String("Reconnects"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&reconnects)))},
		{MetricName: aws.String("Warnings"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&warnsTotal)))},
		{MetricName: aws.String("Errors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsTotal)))},
	}
	for _, name := range names {
		dims := []cwtypes.Dimension{{Name: aws.String("Exchange"), Value: aws.String(name)}}
		data = append(data,
			cwtypes.MetricDatum{MetricName: aws.String("StreamMessages"), Unit: cwtypes.StandardUnitCount, Dimensions: dims, Value: aws.Float64(float64(streamData[name]["messages"]))},
			cwtypes.MetricDatum{MetricName: aws.String("StreamBytes"), Unit: cwtypes.StandardUnitBytes, Dimensions: dims, Value: aws.Float64(float64(streamData[name]["bytes"]))},
			cwtypes.MetricDatum{MetricName: aws.String("FundingUpdates"), Unit: cwtypes.StandardUnitCount, Dimensions: dims, Value: aws.Float64(float64(streamData[name]["updates"]))},
		)
	}

	enqueueMetrics(data...)
}
