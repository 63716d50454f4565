package reader

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"fundingflow/internal/metrics"
	"fundingflow/internal/models"
	"fundingflow/logger"
)

const (
	defaultReconnectDelay   = 5 * time.Second
	defaultKeepAlive        = 20 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	defaultSubscribeRate    = 10
	defaultSubscribeBurst   = 5
)

// State is the connection lifecycle of a Client.
type State int32

const (
	StateStopped State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "stopped"
	}
}

// Options tunes the connection behaviour shared by every venue.
type Options struct {
	URL              string
	ReconnectDelay   time.Duration
	PingInterval     time.Duration
	HandshakeTimeout time.Duration
	SubscribeRate    float64
	SubscribeBurst   int
	LocalIP          string
}

func (o Options) withDefaults() Options {
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = defaultReconnectDelay
	}
	if o.PingInterval <= 0 {
		o.PingInterval = defaultKeepAlive
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = defaultHandshakeTimeout
	}
	if o.SubscribeRate <= 0 {
		o.SubscribeRate = defaultSubscribeRate
	}
	if o.SubscribeBurst <= 0 {
		o.SubscribeBurst = defaultSubscribeBurst
	}
	return o
}

// Client owns the websocket connection of one venue. Reconnects use a fixed
// delay and never give up until Stop is called.
type Client struct {
	venue    Venue
	opts     Options
	onUpdate func(models.FundingUpdate)
	rec      *metrics.Recorder
	log      *logger.Log
	entry    *logger.Entry

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wsConn  *websocket.Conn
	writeMu sync.Mutex
	state   atomic.Int32
	wg      sync.WaitGroup
}

// New binds a venue to the update callback. onUpdate is only ever invoked
// from the connection goroutine.
func New(venue Venue, opts Options, onUpdate func(models.FundingUpdate), rec *metrics.Recorder) *Client {
	log := logger.GetLogger()
	return &Client{
		venue:    venue,
		opts:     opts.withDefaults(),
		onUpdate: onUpdate,
		rec:      rec,
		log:      log,
		entry:    log.WithComponent("stream_client").WithField("exchange", string(venue.Exchange())),
	}
}

func (c *Client) Exchange() models.ExchangeID {
	return c.venue.Exchange()
}

func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) url() string {
	if c.opts.URL != "" {
		return c.opts.URL
	}
	return c.venue.URL()
}

// Start begins connecting in the background. It is a no-op when the client
// is already running, has been stopped, or the venue has nothing to
// subscribe to.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}

	subs, err := c.venue.Subscriptions()
	if err != nil || len(subs) == 0 {
		c.mu.Unlock()
		entry := c.entry
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Warn("no subscriptions for venue; stream client not configured")
		return
	}

	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state.Store(int32(StateConnecting))
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.run(runCtx)
	}()

	c.entry.WithFields(logger.Fields{
		"url":           c.url(),
		"subscriptions": len(subs),
	}).Info("stream client started")
}

// Stop closes the connection and suppresses every future reconnect. It blocks
// until the connection goroutine has exited. A stopped client cannot be
// restarted.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	wasStarted := c.started
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.closeActiveConn()
	c.wg.Wait()
	c.state.Store(int32(StateStopped))

	if wasStarted {
		c.entry.Info("stream client stopped")
	}
}

func (c *Client) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *Client) run(ctx context.Context) {
	first := true
	for {
		if ctx.Err() != nil || c.isStopped() {
			return
		}
		if !first {
			c.rec.RecordReconnect(string(c.Exchange()))
			logger.RecordReconnect()
		}
		first = false

		c.state.Store(int32(StateConnecting))
		if err := c.session(ctx); err != nil && ctx.Err() == nil {
			c.entry.WithError(err).WithField("url", c.url()).Warn("stream connection ended")
		}
		c.state.Store(int32(StateClosed))

		if c.waitForReconnect(ctx) {
			return
		}
	}
}

// session runs a single connection from dial to close.
func (c *Client) session(ctx context.Context) error {
	conn, _, err := c.dialer().DialContext(ctx, c.url(), nil)
	if err != nil {
		return err
	}
	if !c.trackConn(conn) {
		conn.Close()
		return nil
	}
	defer c.closeActiveConn()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	c.state.Store(int32(StateOpen))

	if err := c.subscribe(ctx, conn); err != nil {
		return err
	}

	pingCancel := c.startPingLoop(ctx, conn)
	defer pingCancel()

	return c.readMessages(ctx, conn)
}

func (c *Client) dialer() *websocket.Dialer {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.opts.HandshakeTimeout,
	}
	if c.opts.LocalIP != "" {
		if ip := net.ParseIP(c.opts.LocalIP); ip != nil {
			dialer.NetDialContext = (&net.Dialer{LocalAddr: &net.TCPAddr{IP: ip}}).DialContext
		}
	}
	return dialer
}

func (c *Client) subscribe(ctx context.Context, conn *websocket.Conn) error {
	subs, err := c.venue.Subscriptions()
	if err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Limit(c.opts.SubscribeRate), c.opts.SubscribeBurst)
	for _, frame := range subs {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := c.write(conn, frame); err != nil {
			return err
		}
	}
	c.entry.WithField("subscriptions", len(subs)).Debug("subscriptions sent")
	return nil
}

func (c *Client) write(conn *websocket.Conn, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.opts.HandshakeTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Client) readMessages(ctx context.Context, conn *websocket.Conn) error {
	exchange := string(c.Exchange())
	replier, _ := c.venue.(Replier)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		logger.RecordStreamMessage(exchange, len(msg))

		if replier != nil {
			if reply := replier.Reply(msg); reply != nil {
				if err := c.write(conn, reply); err != nil {
					return err
				}
				continue
			}
		}

		c.dispatch(c.venue.Parse(msg, time.Now()))
	}
}

func (c *Client) dispatch(batch Batch) {
	exchange := string(c.Exchange())
	for _, d := range batch.Drops {
		metrics.EmitDropMetric(c.log, c.rec, d.Reason, exchange, d.Symbol)
	}
	for _, u := range batch.Updates {
		logger.RecordUpdate(exchange)
		if c.onUpdate != nil {
			c.onUpdate(u)
		}
	}
}

// waitForReconnect sleeps for the reconnect delay and reports whether the
// client must exit instead of dialing again.
func (c *Client) waitForReconnect(ctx context.Context) bool {
	timer := time.NewTimer(c.opts.ReconnectDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return c.isStopped() || ctx.Err() != nil
	}
}

func (c *Client) startPingLoop(ctx context.Context, conn *websocket.Conn) context.CancelFunc {
	pingCtx, cancel := context.WithCancel(ctx)
	pinger, _ := c.venue.(Pinger)
	ticker := time.NewTicker(c.opts.PingInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				var err error
				if pinger != nil {
					err = c.write(conn, pinger.Ping())
				} else {
					err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
				}
				if err != nil {
					c.entry.WithError(err).Warn("failed to send websocket ping")
					conn.Close()
					return
				}
			}
		}
	}()
	return cancel
}

// trackConn records the live connection unless Stop already ran.
func (c *Client) trackConn(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return false
	}
	c.wsConn = conn
	return true
}

func (c *Client) closeActiveConn() {
	c.mu.Lock()
	conn := c.wsConn
	c.wsConn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}
