package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// CloudWatchOptions selects where metrics are published. Empty credentials
// fall back to the default AWS credential chain.
type CloudWatchOptions struct {
	Region          string
	Namespace       string
	Dashboard       string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the service URL, e.g. for localstack.
	Endpoint      string
	FlushInterval time.Duration
}

const (
	metricQueueSize      = 1024
	metricBatchSize      = 20
	metricFlushTimeout   = 5 * time.Second
	defaultFlushInterval = 10 * time.Second
)

var (
	cwMu        sync.RWMutex
	cwClient    *cloudwatch.Client
	cwStop      context.CancelFunc
	cwNamespace = "FundingFlow"
	cwDashboard = "FundingFlow"

	// metricQueue decouples callers from PutMetricData; a single flusher
	// goroutine owns the network calls.
	metricQueue    = make(chan cwtypes.MetricDatum, metricQueueSize)
	metricsDropped atomic.Int64
)

// InitCloudWatch initialises the CloudWatch client and starts the background
// flusher, which runs until ctx is done. When the client cannot be created a
// warning is logged and metrics publishing remains disabled.
func InitCloudWatch(ctx context.Context, opts CloudWatchOptions) {
	log := GetLogger().WithComponent("cloudwatch")

	region := opts.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	loadOpts := []func(*config.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithError(err).Warn("failed to load AWS configuration; CloudWatch metrics disabled")
		return
	}

	client := cloudwatch.NewFromConfig(cfg, func(o *cloudwatch.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	interval := opts.FlushInterval
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	flushCtx, cancel := context.WithCancel(ctx)

	cwMu.Lock()
	if cwStop != nil {
		cwStop()
	}
	cwClient = client
	cwStop = cancel
	if opts.Namespace != "" {
		cwNamespace = opts.Namespace
	}
	if opts.Dashboard != "" {
		cwDashboard = opts.Dashboard
	}
	namespace := cwNamespace
	cwMu.Unlock()

	go runMetricFlusher(flushCtx, client, interval)

	log.WithFields(Fields{"region": region, "namespace": namespace}).Info("initialized CloudWatch client")

	dashCtx, dashCancel := context.WithTimeout(ctx, metricFlushTimeout)
	defer dashCancel()
	createDefaultDashboard(dashCtx)
}

func cloudWatch() (*cloudwatch.Client, string, string) {
	cwMu.RLock()
	defer cwMu.RUnlock()
	return cwClient, cwNamespace, cwDashboard
}

// DroppedMetrics reports datums discarded because the publish queue was full.
func DroppedMetrics() int64 {
	return metricsDropped.Load()
}

// enqueueMetrics never blocks. It is a no-op until InitCloudWatch succeeded.
func enqueueMetrics(data ...cwtypes.MetricDatum) {
	if client, _, _ := cloudWatch(); client == nil {
		return
	}
	for _, datum := range data {
		select {
		case metricQueue <- datum:
		default:
			metricsDropped.Add(1)
		}
	}
}

// runMetricFlusher batches queued datums and publishes them when a batch is
// full or the interval elapses. Pending datums are flushed once more when
// ctx ends, after which the client is detached.
func runMetricFlusher(ctx context.Context, client *cloudwatch.Client, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	batch := make([]cwtypes.MetricDatum, 0, metricBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		putCtx, cancel := context.WithTimeout(context.Background(), metricFlushTimeout)
		putMetricData(putCtx, client, batch)
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
		drain:
			for {
				select {
				case datum := <-metricQueue:
					batch = append(batch, datum)
					if len(batch) >= metricBatchSize {
						flush()
					}
				default:
					break drain
				}
			}
			flush()

			cwMu.Lock()
			if cwClient == client {
				cwClient = nil
				cwStop = nil
			}
			cwMu.Unlock()
			return
		case datum := <-metricQueue:
			batch = append(batch, datum)
			if len(batch) >= metricBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func putMetricData(ctx context.Context, client *cloudwatch.Client, data []cwtypes.MetricDatum) {
	_, namespace, _ := cloudWatch()

	log := GetLogger().WithComponent("cloudwatch")
	if _, err := client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(namespace),
		MetricData: data,
	}); err != nil {
		log.WithError(err).Warn("failed to publish CloudWatch metrics")
		return
	}

	names := make([]string, 0, len(data))
	for _, datum := range data {
		if datum.MetricName != nil {
			names = append(names, *datum.MetricName)
		}
	}
	log.WithField("metrics", strings.Join(names, ",")).Debug("published metrics to CloudWatch")
}

func createDefaultDashboard(ctx context.Context) {
	client, namespace, dashboard := cloudWatch()
	if client == nil {
		return
	}

	body := fmt.Sprintf(`{
"widgets": [{
"type": "metric",
"width": 24,
"height": 6,
"properties": {
"metrics": [
    ["%[1]s","Reconnects"],
    ["%[1]s","Warnings"],
    ["%[1]s","Errors"]
],
"period": 60,
"stat": "Maximum",
"title": "FundingFlow Streams"
}
}]
}`, namespace)

	if _, err := client.PutDashboard(ctx, &cloudwatch.PutDashboardInput{
		DashboardName: aws.String(dashboard),
		DashboardBody: aws.String(body),
	}); err != nil {
		GetLogger().WithComponent("cloudwatch").WithError(err).Warn("failed to create CloudWatch dashboard")
	}
}
