// Package dashboard serves the read-only HTTP API over the funding store:
// ranked arbitrage rows, settlement views, spread statistics and process
// health.
package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fundingflow/config"
	"fundingflow/internal/funding"
	"fundingflow/internal/metrics"
	"fundingflow/internal/models"
	"fundingflow/internal/reader"
	"fundingflow/logger"
)

// StatusSource reports the connection state of every running stream client.
type StatusSource interface {
	Clients() map[models.ExchangeID]reader.State
}

type Option func(*Server)

// WithRecorder exposes the Prometheus registry at path.
func WithRecorder(rec *metrics.Recorder, path string) Option {
	return func(s *Server) {
		s.recorder = rec
		if path != "" {
			s.metricsPath = path
		}
	}
}

func WithStatus(status StatusSource) Option {
	return func(s *Server) { s.status = status }
}

// Server hosts the Gin-powered API for FundingFlow.
type Server struct {
	cfg           config.DashboardConfig
	log           *logger.Log
	series        funding.SeriesReader
	status        StatusSource
	recorder      *metrics.Recorder
	metricsPath   string
	metricStore   *metricStore
	logStore      *logStore
	metricHandler metrics.MetricHandlerID
	httpServer    *http.Server
	startedAt     time.Time
	// refreshIntervalMs is the polling cadence suggested to API consumers.
	refreshIntervalMs int64
}

// NewServer constructs a dashboard server when the dashboard feature is enabled.
// When the dashboard is disabled the returned server will be nil.
func NewServer(cfg config.DashboardConfig, log *logger.Log, series funding.SeriesReader, opts ...Option) (*Server, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if series == nil {
		return nil, errors.New("dashboard requires a series reader")
	}

	cfg.Address = normalizeAddress(cfg.Address)
	if cfg.MetricsHistory <= 0 {
		cfg.MetricsHistory = 200
	}
	if cfg.DefaultWindow <= 0 {
		cfg.DefaultWindow = 8
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Second
	}
	if cfg.DefaultNotional <= 0 {
		cfg.DefaultNotional = 10000
	}

	metricStore := newMetricStore(cfg.MetricsHistory)
	logStore := newLogStore(cfg.MetricsHistory)
	log.AddHook(logStore)

	server := &Server{
		cfg:           cfg,
		log:           log,
		series:        series,
		metricsPath:   "/metrics",
		metricStore:   metricStore,
		logStore:      logStore,
		metricHandler: metrics.RegisterMetricHandler(metricStore.handle),
		startedAt:     time.Now(),

		refreshIntervalMs: cfg.RefreshInterval.Milliseconds(),
	}
	for _, opt := range opts {
		opt(server)
	}
	return server, nil
}

// Run starts the dashboard HTTP server and blocks until the provided context is
// cancelled or the underlying HTTP server exits with an error.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}

	defer s.cleanup()

	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.log.WithComponent("dashboard").WithField("address", s.cfg.Address).Info("dashboard listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) cleanup() {
	metrics.UnregisterMetricHandler(s.metricHandler)
	if s.logStore != nil {
		s.logStore.close()
	}
}

// Address reports the network address the dashboard server listens on.
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	api.GET("/rows", s.handleRows)
	api.GET("/settlement", s.handleSettlement)
	api.GET("/spread-stats", s.handleSpreadStats)
	api.GET("/exchanges", s.handleExchanges)
	api.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"metrics": s.metricStore.snapshot()})
	})
	api.GET("/logs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"logs": s.logStore.snapshot()})
	})

	if s.recorder != nil {
		router.GET(s.metricsPath, gin.WrapH(s.recorder.Handler()))
	}

	return router, nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8080")
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}

	return addr
}
