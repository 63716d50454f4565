// Package ingest wires one stream client per enabled exchange into a single
// update callback.
package ingest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"fundingflow/config"
	"fundingflow/internal/channel"
	"fundingflow/internal/metrics"
	"fundingflow/internal/models"
	"fundingflow/internal/reader"
	"fundingflow/logger"
)

// UpdateSink receives every accepted funding update. Implementations must
// be safe for concurrent use.
type UpdateSink interface {
	Handle(models.FundingUpdate)
}

// Publisher forwards updates out of process. Publishers are fed from a
// buffered channel so a slow publisher never stalls ingestion.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, u models.FundingUpdate) error
}

// VenueFactory builds the protocol for an exchange.
type VenueFactory func(id models.ExchangeID, url string) (reader.Venue, error)

type Option func(*Coordinator)

// WithPublishers adds downstream publishers.
func WithPublishers(p ...Publisher) Option {
	return func(c *Coordinator) {
		c.publishers = append(c.publishers, p...)
	}
}

// WithVenueFactory replaces VenueFor, mainly for tests.
func WithVenueFactory(f VenueFactory) Option {
	return func(c *Coordinator) {
		if f != nil {
			c.venues = f
		}
	}
}

// Coordinator owns the stream clients for the lifetime of the process.
type Coordinator struct {
	cfg        *config.Config
	sink       UpdateSink
	rec        *metrics.Recorder
	publishers []Publisher
	venues     VenueFactory
	log        *logger.Log

	mu       sync.Mutex
	started  bool
	runID    string
	clients  map[models.ExchangeID]*reader.Client
	channels *channel.Channels
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func New(cfg *config.Config, sink UpdateSink, rec *metrics.Recorder, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:     cfg,
		sink:    sink,
		rec:     rec,
		venues:  VenueFor,
		log:     logger.GetLogger(),
		clients: make(map[models.ExchangeID]*reader.Client),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartAll builds and starts one client per enabled exchange. Calls after
// the first are no-ops until StopAll.
func (c *Coordinator) StartAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	c.runID = uuid.NewString()

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	log := c.log.WithComponent("ingest").WithField("run_id", c.runID)

	if len(c.publishers) > 0 {
		c.channels = channel.NewChannels(c.cfg.Channels.UpdateBuffer)
		metrics.StartChannelSizeMetrics(runCtx, map[string]metrics.BufferSampler{
			"updates": bufferSampler(c.channels),
		}, c.cfg.Logging.ReportInterval)
		c.wg.Add(1)
		go c.forward(runCtx, c.channels)
	}

	for _, id := range c.cfg.Source.Enabled() {
		vc, _ := c.cfg.Source.Venue(id)
		venue, err := c.venues(id, vc.URL)
		if err != nil {
			log.WithError(err).WithField("exchange", string(id)).Warn("skipping exchange")
			continue
		}

		opts := reader.Options{
			ReconnectDelay:   c.cfg.Reader.ReconnectDelay,
			PingInterval:     c.cfg.Reader.PingInterval,
			HandshakeTimeout: c.cfg.Reader.HandshakeTimeout,
			SubscribeRate:    c.cfg.Reader.SubscribeRate,
			SubscribeBurst:   c.cfg.Reader.SubscribeBurst,
			LocalIP:          c.cfg.Reader.LocalIP,
		}
		if vc.ReconnectDelay > 0 {
			opts.ReconnectDelay = vc.ReconnectDelay
		}

		client := reader.New(venue, opts, c.handle(runCtx), c.rec)
		c.clients[id] = client
		client.Start(runCtx)
	}

	log.WithField("exchanges", len(c.clients)).Info("ingestion started")
}

// StopAll stops every client, drains the publisher channel and clears the
// held set.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	clients := c.clients
	c.clients = make(map[models.ExchangeID]*reader.Client)
	channels := c.channels
	c.channels = nil
	cancel := c.cancel
	runID := c.runID
	c.started = false
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, client := range clients {
		wg.Add(1)
		go func(cl *reader.Client) {
			defer wg.Done()
			cl.Stop()
		}(client)
	}
	wg.Wait()

	if channels != nil {
		channels.Close()
	}
	c.wg.Wait()
	if cancel != nil {
		cancel()
	}

	c.log.WithComponent("ingest").WithField("run_id", runID).Info("ingestion stopped")
}

// Clients returns the exchanges with a running client.
func (c *Coordinator) Clients() map[models.ExchangeID]reader.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[models.ExchangeID]reader.State, len(c.clients))
	for id, cl := range c.clients {
		out[id] = cl.State()
	}
	return out
}

func (c *Coordinator) handle(ctx context.Context) func(models.FundingUpdate) {
	channels := c.channels
	return func(u models.FundingUpdate) {
		if c.sink != nil {
			c.sink.Handle(u)
		}
		c.rec.RecordUpdate(string(u.Exchange), string(u.Asset))

		if channels != nil && !channels.SendUpdate(ctx, u) && ctx.Err() == nil {
			metrics.EmitDropMetric(c.log, c.rec, metrics.DropChannelFull, string(u.Exchange), string(u.Asset))
		}
	}
}

// forward delivers buffered updates to publishers until the channel closes.
// Pending updates are still delivered after StopAll closes the channel.
func (c *Coordinator) forward(ctx context.Context, channels *channel.Channels) {
	defer c.wg.Done()
	log := c.log.WithComponent("ingest")
	for u := range channels.Updates {
		for _, p := range c.publishers {
			if err := p.Publish(ctx, u); err != nil {
				c.rec.RecordPublishError(p.Name())
				log.WithError(err).WithField("publisher", p.Name()).Debug("publish failed")
			}
		}
	}
}

func bufferSampler(ch *channel.Channels) metrics.BufferSampler {
	return func() metrics.BufferStats {
		length, capacity := ch.Occupancy()
		st := ch.GetStats()
		return metrics.BufferStats{Length: length, Capacity: capacity, Sent: st.Sent, Dropped: st.Dropped}
	}
}
