package base

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dPing/exchange/common"
	"github.com/ValentinKolb/dPing/exchange/transport"
	"github.com/jpillora/backoff"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect binds to the local endpoint and connects to the remote endpoint of the config
	Connect(ctx context.Context, config common.ClientConfig) (net.Conn, error)

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, socket common.SocketConf, tcp common.TCPConf) error

	// GetName returns the name of the transport type (e.g. "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Client
// -----------------------------------------------------------

// clientTransport holds one outbound connection and runs its receive loop in a
// dedicated goroutine
type clientTransport struct {
	id        uint64
	name      string
	connector IClientConnector
	handler   transport.ClientHandleFunc
	config    common.ClientConfig
	stats     *common.ExchangeStats

	startOnce sync.Once
	started   atomic.Bool
	done      chan struct{}
	ctx       context.Context // cancelled by Close, aborts connect and the default wait
	cancel    context.CancelFunc

	mu       sync.Mutex // protects conn and err
	conn     *connection
	err      error
	lastSent atomic.Int64 // unix nanos of the last send, 0 if none is outstanding
}

// newClient is used by the ClientFactory which assigns the id
func newClient(id uint64, connector IClientConnector, config common.ClientConfig, handler transport.ClientHandleFunc) *clientTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return &clientTransport{
		id:        id,
		name:      fmt.Sprintf("client_%d", id),
		connector: connector,
		handler:   handler,
		config:    config,
		stats:     common.NewExchangeStats("client"),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IExchangeClient)
// --------------------------------------------------------------------------

func (t *clientTransport) Id() uint64 {
	return t.id
}

func (t *clientTransport) Name() string {
	return t.name
}

func (t *clientTransport) Start() {
	t.startOnce.Do(func() {
		t.started.Store(true)
		go t.run()
	})
}

func (t *clientTransport) Status() common.Status {
	return statusOf(t.started.Load(), t.done)
}

func (t *clientTransport) Send(tx common.Payload) error {
	if tx.Empty() {
		Logger.Warningf("%s: empty payload, will ignore", t.name)
		return common.ErrEmptyPayload
	}

	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return common.ErrConnectionClosed
	}

	Logger.Debugf("%s: sending payload with %d bytes to server", t.name, len(tx))
	return t.send(conn, tx)
}

func (t *clientTransport) Done() <-chan struct{} {
	return t.done
}

func (t *clientTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *clientTransport) Stats() common.StatsSnapshot {
	return t.stats.Snapshot()
}

func (t *clientTransport) Close() error {
	t.cancel()

	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn != nil {
		conn.close()
	}

	// the goroutine returns promptly once the context is cancelled and the socket closed
	if t.started.Load() {
		<-t.done
	}
	t.stats.Stop()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// run connects, sends the initial marker and runs the receive loop
func (t *clientTransport) run() {
	defer close(t.done)

	Logger.Debugf("%s: starting client", t.name)

	netConn, err := t.connect()
	if err != nil {
		if t.ctx.Err() != nil {
			Logger.Debugf("%s: connect aborted by close", t.name)
			return
		}
		t.fail(&common.SetupError{Op: "connect", Endpoint: t.config.RemoteEndpoint, Err: err})
		return
	}

	if err := t.connector.UpgradeConnection(netConn, t.config.SocketConf, t.config.TCPConf); err != nil {
		Logger.Warningf("%s: failed to upgrade connection: %v", t.name, err)
	}

	conn := newConnection(t.name, 0, netConn, common.PingMarker, t.stats)

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	// Close may have run before the connection was stored
	if t.ctx.Err() != nil {
		conn.close()
		return
	}

	Logger.Infof("%s: connected %s -> %s", t.name, netConn.LocalAddr(), netConn.RemoteAddr())

	// the kernel buffers the reply until the receive loop reads it,
	// so sending before entering the loop loses nothing
	Logger.Debugf("%s: sending %s to server", t.name, common.PingMarker)
	if err := t.send(conn, common.PingMarker); err != nil {
		Logger.Errorf("%s: failed to send initial payload: %v", t.name, err)
		conn.close()
		return
	}

	conn.receiveLoop(t.dispatch, nil)
	Logger.Debugf("%s: receive loop stopped", t.name)
}

// connect dials the server, retrying with jittered backoff if configured
func (t *clientTransport) connect() (net.Conn, error) {
	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    t.config.MaxRetryInterval,
		Jitter: true,
	}

	for {
		Logger.Debugf("%s: connecting %s -> %s", t.name, t.config.LocalEndpoint, t.config.RemoteEndpoint)
		conn, err := t.connector.Connect(t.ctx, t.config)
		if err == nil {
			return conn, nil
		}

		attempt := int(b.Attempt())
		if attempt >= t.config.ConnectRetries || t.ctx.Err() != nil {
			return nil, err
		}

		d := b.Duration()
		Logger.Warningf("%s: connection error: %v (attempt %d/%d), retrying in %s", t.name, err, attempt+1, t.config.ConnectRetries, d)
		if !sleepUntil(d, t.ctx.Done()) {
			return nil, t.ctx.Err()
		}
	}
}

// dispatch passes a received payload to the handler or, without handler, waits
// the ping interval and sends the next marker
func (t *clientTransport) dispatch(c *connection, rx common.Payload) {
	if sent := t.lastSent.Swap(0); sent != 0 {
		t.stats.RoundTrip(time.Since(time.Unix(0, sent)))
	}

	var err error
	if t.handler != nil {
		if tx := t.handler(rx); !tx.Empty() {
			err = t.send(c, tx)
		}
	} else {
		if !sleepUntil(t.config.PingInterval, t.ctx.Done()) {
			return
		}
		Logger.Debugf("%s: sending %s to server", t.name, c.marker)
		err = t.send(c, c.marker)
	}

	if err != nil && !errors.Is(err, common.ErrConnectionClosed) {
		Logger.Errorf("%s: failed to send: %v", t.name, err)
	}
}

// send writes on the connection and remembers the time for the round trip measurement
func (t *clientTransport) send(c *connection, tx common.Payload) error {
	if !tx.Empty() {
		t.lastSent.CompareAndSwap(0, time.Now().UnixNano())
	}
	return c.send(tx)
}

// fail stores the error that terminated the client
func (t *clientTransport) fail(err error) {
	Logger.Errorf("%s: %v", t.name, err)
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
}
