// Package publisher mirrors accepted funding updates to Kafka for consumers
// outside the process.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"fundingflow/config"
	"fundingflow/internal/models"
	"fundingflow/logger"
)

// ErrDisabled is returned by NewKafka when the publisher is switched off.
var ErrDisabled = errors.New("kafka publisher disabled")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes one JSON message per update keyed by "exchange:asset", so
// every series stays on one partition in arrival order.
type Kafka struct {
	writer messageWriter
	topic  string
	log    *logger.Entry
}

func NewKafka(cfg config.KafkaConfig) (*Kafka, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  parseCompression(cfg.Compression),
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	k := newKafka(writer, cfg.Topic)
	k.log.WithFields(logger.Fields{
		"brokers": strings.Join(cfg.Brokers, ","),
		"topic":   cfg.Topic,
	}).Info("kafka publisher initialized")
	return k, nil
}

func newKafka(w messageWriter, topic string) *Kafka {
	return &Kafka{
		writer: w,
		topic:  topic,
		log:    logger.GetLogger().WithComponent("kafka_publisher"),
	}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Publish(ctx context.Context, u models.FundingUpdate) error {
	value, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(string(u.Exchange) + ":" + string(u.Asset)),
		Value: value,
		Time:  time.UnixMilli(u.Timestamp),
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to %s: %w", k.topic, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	if k == nil || k.writer == nil {
		return nil
	}
	return k.writer.Close()
}

func parseCompression(s string) kafka.Compression {
	switch strings.ToLower(s) {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Snappy
	}
}
