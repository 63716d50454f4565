package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"fundingflow/internal/models"
)

// ErrNoVenues is returned when every exchange source is disabled.
var ErrNoVenues = errors.New("at least one source must be enabled")

type Config struct {
	Fundingflow FundingflowConfig `yaml:"fundingflow"`
	Store       StoreConfig       `yaml:"store"`
	Reader      ReaderConfig      `yaml:"reader"`
	Source      SourceConfig      `yaml:"source"`
	Channels    ChannelsConfig    `yaml:"channels"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
	Publisher   PublisherConfig   `yaml:"publisher"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
	CloudWatch  CloudWatchConfig  `yaml:"cloudwatch"`
}

type FundingflowConfig struct {
	Name    string `yaml:"name" default:"fundingflow"`
	Version string `yaml:"version" default:"dev"`
}

type StoreConfig struct {
	MaxPoints int `yaml:"max_points" default:"500"`
}

// ReaderConfig holds settings shared by every stream client.
type ReaderConfig struct {
	ReconnectDelay   time.Duration `yaml:"reconnect_delay" default:"5s"`
	PingInterval     time.Duration `yaml:"ping_interval" default:"20s"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" default:"10s"`
	SubscribeRate    float64       `yaml:"subscribe_rate" default:"10"`
	SubscribeBurst   int           `yaml:"subscribe_burst" default:"5"`
	LocalIP          string        `yaml:"local_ip"`
}

// VenueConfig overrides reader settings for a single exchange.
type VenueConfig struct {
	Enabled        bool          `yaml:"enabled" default:"true"`
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

type SourceConfig struct {
	Binance     VenueConfig `yaml:"binance"`
	Bybit       VenueConfig `yaml:"bybit"`
	Okx         VenueConfig `yaml:"okx"`
	Hyperliquid VenueConfig `yaml:"hyperliquid"`
	Derive      VenueConfig `yaml:"derive"`
	Lighter     VenueConfig `yaml:"lighter"`
	Coinbase    VenueConfig `yaml:"coinbase"`
}

// Venue returns the source block for an exchange.
func (s SourceConfig) Venue(id models.ExchangeID) (VenueConfig, bool) {
	switch id {
	case models.ExchangeBinance:
		return s.Binance, true
	case models.ExchangeBybit:
		return s.Bybit, true
	case models.ExchangeOkx:
		return s.Okx, true
	case models.ExchangeHyperliquid:
		return s.Hyperliquid, true
	case models.ExchangeDerive:
		return s.Derive, true
	case models.ExchangeLighter:
		return s.Lighter, true
	case models.ExchangeCoinbase:
		return s.Coinbase, true
	default:
		return VenueConfig{}, false
	}
}

// Enabled lists every exchange whose source block is enabled.
func (s SourceConfig) Enabled() []models.ExchangeID {
	out := make([]models.ExchangeID, 0)
	for _, id := range models.Exchanges() {
		if v, ok := s.Venue(id); ok && v.Enabled {
			out = append(out, id)
		}
	}
	return out
}

type ChannelsConfig struct {
	UpdateBuffer int `yaml:"update_buffer" default:"1024"`
}

type DashboardConfig struct {
	Enabled         bool          `yaml:"enabled" default:"true"`
	Address         string        `yaml:"address" default:"0.0.0.0:8080"`
	RefreshInterval time.Duration `yaml:"refresh_interval" default:"5s"`
	MetricsHistory  int           `yaml:"metrics_history" default:"200"`
	DefaultWindow   int           `yaml:"default_window" default:"8"`
	DefaultNotional float64       `yaml:"default_notional" default:"10000"`
}

type PublisherConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic" default:"funding-updates"`
	RequiredAcks int           `yaml:"required_acks" default:"1"`
	Compression  string        `yaml:"compression" default:"snappy"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type LoggingConfig struct {
	Level          string        `yaml:"level" default:"info"`
	Format         string        `yaml:"format" default:"json"`
	Output         string        `yaml:"output" default:"stdout"`
	MaxAge         int           `yaml:"max_age"`
	ReportInterval time.Duration `yaml:"report_interval" default:"30s"`
}

type CloudWatchConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Region          string        `yaml:"region"`
	Namespace       string        `yaml:"namespace" default:"FundingFlow"`
	Dashboard       string        `yaml:"dashboard" default:"FundingFlow"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	Endpoint        string        `yaml:"endpoint"`
	FlushInterval   time.Duration `yaml:"flush_interval" default:"10s"`
}

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		// default tags are static; a failure here is a programming error
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults, applies environment overrides
// and validates the result.
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

func applyEnvOverrides(config *Config) {
	if v := strings.TrimSpace(os.Getenv("FUNDINGFLOW_MAX_POINTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Store.MaxPoints = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("FUNDINGFLOW_LISTEN")); v != "" {
		config.Dashboard.Address = v
	}
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		config.Publisher.Kafka.Brokers = strings.Split(v, ",")
	}
	if config.CloudWatch.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.CloudWatch.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.CloudWatch.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.CloudWatch.Region = strings.TrimSpace(v)
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Fundingflow.Name == "" {
		return fmt.Errorf("fundingflow.name is required")
	}

	if cfg.Store.MaxPoints <= 0 {
		return fmt.Errorf("store.max_points must be greater than 0")
	}

	if cfg.Reader.ReconnectDelay <= 0 {
		return fmt.Errorf("reader.reconnect_delay must be greater than 0")
	}
	if cfg.Reader.PingInterval <= 0 {
		return fmt.Errorf("reader.ping_interval must be greater than 0")
	}
	if cfg.Reader.SubscribeRate <= 0 {
		return fmt.Errorf("reader.subscribe_rate must be greater than 0")
	}
	if cfg.Reader.SubscribeBurst <= 0 {
		return fmt.Errorf("reader.subscribe_burst must be greater than 0")
	}
	if cfg.Reader.LocalIP != "" && net.ParseIP(cfg.Reader.LocalIP) == nil {
		return fmt.Errorf("reader.local_ip '%s' is not an IP address", cfg.Reader.LocalIP)
	}

	if len(cfg.Source.Enabled()) == 0 {
		return ErrNoVenues
	}

	if cfg.Channels.UpdateBuffer <= 0 {
		return fmt.Errorf("channels.update_buffer must be greater than 0")
	}

	if cfg.Dashboard.Enabled && cfg.Dashboard.DefaultWindow < 1 {
		return fmt.Errorf("dashboard.default_window must be at least 1")
	}

	if cfg.Publisher.Kafka.Enabled {
		if len(cfg.Publisher.Kafka.Brokers) == 0 {
			return fmt.Errorf("publisher.kafka.brokers is required when kafka is enabled")
		}
		if strings.TrimSpace(cfg.Publisher.Kafka.Topic) == "" {
			return fmt.Errorf("publisher.kafka.topic is required when kafka is enabled")
		}
	}

	if cfg.CloudWatch.Enabled && cfg.CloudWatch.Namespace == "" {
		return fmt.Errorf("cloudwatch.namespace is required when cloudwatch is enabled")
	}

	return nil
}
