package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundingflow/internal/metrics"
	"fundingflow/internal/models"
	"fundingflow/logger"
)

type fakeVenue struct {
	subs [][]byte
}

func (v *fakeVenue) Exchange() models.ExchangeID { return models.ExchangeBinance }

func (v *fakeVenue) URL() string { return "" }

func (v *fakeVenue) Subscriptions() ([][]byte, error) { return v.subs, nil }

func (v *fakeVenue) Parse(raw []byte, receivedAt time.Time) Batch {
	if string(raw) == "bad" {
		return Malformed()
	}
	var b Batch
	rate, ok := PickRate(NumberOf(string(raw)))
	if !ok {
		b.Drop(metrics.DropInvalidRate, "BTCUSDT")
		return b
	}
	b.Add(models.FundingUpdate{
		Exchange:  models.ExchangeBinance,
		Asset:     models.AssetBTC,
		Rate:      rate,
		Timestamp: receivedAt.UnixMilli(),
	})
	return b
}

type wsServer struct {
	*httptest.Server
	dials atomic.Int32
}

func newWSServer(t *testing.T, handle func(conn *websocket.Conn)) *wsServer {
	t.Helper()
	upgrader := websocket.Upgrader{}
	s := &wsServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.dials.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestClientSubscribesAndEmitsUpdates(t *testing.T) {
	subscribed := make(chan string, 1)
	srv := newWSServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		subscribed <- string(msg)
		for _, frame := range []string{"bad", "not-a-number", "0.0001"} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		drain(conn)
	})

	var mu sync.Mutex
	var updates []models.FundingUpdate
	got := make(chan struct{}, 1)
	client := New(&fakeVenue{subs: [][]byte{[]byte("sub")}}, Options{URL: srv.wsURL()}, func(u models.FundingUpdate) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
		got <- struct{}{}
	}, metrics.NewRecorder())

	client.Start(context.Background())
	defer client.Stop()

	select {
	case msg := <-subscribed:
		assert.Equal(t, "sub", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not received")
	}

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("update not emitted")
	}

	// give the client time to process anything else that might be emitted
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updates, 1)
	assert.Equal(t, 0.0001, updates[0].Rate)
	assert.Equal(t, StateOpen, client.State())
}

func TestClientStopDuringReconnectWait(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn) {
		// close straight away so the client enters its reconnect wait
	})

	delay := 300 * time.Millisecond
	client := New(&fakeVenue{subs: [][]byte{[]byte("sub")}}, Options{URL: srv.wsURL(), ReconnectDelay: delay}, nil, metrics.NewRecorder())
	client.Start(context.Background())

	require.Eventually(t, func() bool {
		return srv.dials.Load() == 1 && client.State() == StateClosed
	}, 2*time.Second, 5*time.Millisecond)

	client.Stop()
	assert.Equal(t, StateStopped, client.State())

	time.Sleep(2 * delay)
	assert.Equal(t, int32(1), srv.dials.Load())
}

func TestClientReconnectsAfterClose(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn) {})

	client := New(&fakeVenue{subs: [][]byte{[]byte("sub")}}, Options{URL: srv.wsURL(), ReconnectDelay: 20 * time.Millisecond}, nil, metrics.NewRecorder())
	client.Start(context.Background())
	defer client.Stop()

	require.Eventually(t, func() bool {
		return srv.dials.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestClientStopClosesOpenConnection(t *testing.T) {
	closed := make(chan struct{})
	srv := newWSServer(t, func(conn *websocket.Conn) {
		drain(conn)
		close(closed)
	})

	client := New(&fakeVenue{subs: [][]byte{[]byte("sub")}}, Options{URL: srv.wsURL(), ReconnectDelay: 20 * time.Millisecond}, nil, metrics.NewRecorder())
	client.Start(context.Background())

	require.Eventually(t, func() bool { return client.State() == StateOpen }, 2*time.Second, 5*time.Millisecond)
	client.Stop()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("server side connection not closed")
	}
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), srv.dials.Load())
}

func TestClientStartWithoutSubscriptionsIsNoop(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn) {})

	client := New(&fakeVenue{}, Options{URL: srv.wsURL()}, nil, metrics.NewRecorder())
	client.Start(context.Background())
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(0), srv.dials.Load())
	assert.Equal(t, StateStopped, client.State())
	client.Stop()
	client.Stop()
}

func TestClientStartIsIdempotentAndStopIsTerminal(t *testing.T) {
	srv := newWSServer(t, drain)

	client := New(&fakeVenue{subs: [][]byte{[]byte("sub")}}, Options{URL: srv.wsURL()}, nil, metrics.NewRecorder())
	client.Start(context.Background())
	client.Start(context.Background())

	require.Eventually(t, func() bool { return client.State() == StateOpen }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), srv.dials.Load())

	client.Stop()
	client.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), srv.dials.Load())
	assert.Equal(t, StateStopped, client.State())
}

func TestClientParentContextCancel(t *testing.T) {
	srv := newWSServer(t, drain)

	ctx, cancel := context.WithCancel(context.Background())
	client := New(&fakeVenue{subs: [][]byte{[]byte("sub")}}, Options{URL: srv.wsURL()}, nil, metrics.NewRecorder())
	client.Start(ctx)
	require.Eventually(t, func() bool { return client.State() == StateOpen }, 2*time.Second, 5*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		client.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return after context cancel")
	}
}

func TestSlowCloudWatchDoesNotDelayUpdates(t *testing.T) {
	cw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(cw.Close)

	cwCtx, cwCancel := context.WithCancel(context.Background())
	t.Cleanup(cwCancel)
	logger.InitCloudWatch(cwCtx, logger.CloudWatchOptions{
		Region:          "us-east-1",
		Endpoint:        cw.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		FlushInterval:   20 * time.Millisecond,
	})

	srv := newWSServer(t, func(conn *websocket.Conn) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		for _, frame := range []string{"bad", "bad", "bad", "bad", "bad", "0.0001"} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		drain(conn)
	})

	got := make(chan struct{}, 1)
	client := New(&fakeVenue{subs: [][]byte{[]byte("sub")}}, Options{URL: srv.wsURL()}, func(models.FundingUpdate) {
		got <- struct{}{}
	}, metrics.NewRecorder())

	start := time.Now()
	client.Start(context.Background())
	defer client.Stop()

	select {
	case <-got:
		// five drops each publishing inline would take at least 1.5s
		assert.Less(t, time.Since(start), time.Second)
	case <-time.After(3 * time.Second):
		t.Fatal("update not delivered")
	}
}
