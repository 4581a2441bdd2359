package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dPing/exchange/common"
	"github.com/ValentinKolb/dPing/exchange/transport"
	"github.com/puzpuzpuz/xsync/v3"
	"net"
	"sort"
	"sync"
	"sync/atomic"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener bound to the configured endpoint
	Listen(config common.ServerConfig) (net.Listener, error)

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, socket common.SocketConf, tcp common.TCPConf) error

	// GetName returns the name of the transport type (e.g. "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Server
// -----------------------------------------------------------

// serverTransport accepts connections and runs one goroutine per connection.
//
// The connection table is the only state shared between the accept loop and the
// connection goroutines. Inserts and removals are atomic per key and never span
// socket I/O, so a slow connection does not delay any other one.
type serverTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
	config    common.ServerConfig
	stats     *common.ExchangeStats

	connections *xsync.MapOf[uint16, *connection]

	startOnce sync.Once
	started   atomic.Bool
	closing   atomic.Bool
	done      chan struct{}

	mu       sync.Mutex // protects listener and err
	listener net.Listener
	err      error
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp)
// -----------------------------------------------------------

// NewBaseServer creates a new server with the specified connector. If handler is nil
// every received payload is answered with common.PongMarker.
func NewBaseServer(connector IServerConnector, config common.ServerConfig, handler transport.ServerHandleFunc) transport.IExchangeServer {
	return &serverTransport{
		connector:   connector,
		handler:     handler,
		config:      config,
		stats:       common.NewExchangeStats("server"),
		connections: xsync.NewMapOf[uint16, *connection](),
		done:        make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IExchangeServer)
// --------------------------------------------------------------------------

func (t *serverTransport) Start() {
	t.startOnce.Do(func() {
		t.started.Store(true)
		go t.acceptLoop()
	})
}

func (t *serverTransport) Status() common.Status {
	return statusOf(t.started.Load(), t.done)
}

func (t *serverTransport) Send(clientId uint16, tx common.Payload) error {
	if tx.Empty() {
		Logger.Warningf("server: empty payload for client(%d), will ignore", clientId)
		return common.ErrEmptyPayload
	}

	// lookup only, the write happens outside the table
	conn, ok := t.connections.Load(clientId)
	if !ok {
		Logger.Warningf("server: no connection available to client with port %d", clientId)
		return fmt.Errorf("%w: %d", common.ErrUnknownClient, clientId)
	}

	Logger.Debugf("server: sending %d bytes to client(%d)", len(tx), clientId)
	return conn.send(tx)
}

func (t *serverTransport) ConnectionCount() int {
	return t.connections.Size()
}

func (t *serverTransport) Connections() []uint16 {
	ids := make([]uint16, 0, t.connections.Size())
	t.connections.Range(func(id uint16, _ *connection) bool {
		ids = append(ids, id)
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *serverTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *serverTransport) Done() <-chan struct{} {
	return t.done
}

func (t *serverTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *serverTransport) Stats() common.StatsSnapshot {
	return t.stats.Snapshot()
}

func (t *serverTransport) Close() error {
	if !t.closing.CompareAndSwap(false, true) {
		return nil
	}

	t.mu.Lock()
	listener := t.listener
	t.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}

	// wait for the accept loop, it registers no connection after this point
	if t.started.Load() {
		<-t.done
	}

	t.connections.Range(func(id uint16, c *connection) bool {
		c.close()
		t.connections.Delete(id)
		return true
	})

	t.stats.Stop()
	Logger.Infof("server: closed")

	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// acceptLoop opens the listener and accepts connections until the listener is closed
func (t *serverTransport) acceptLoop() {
	defer close(t.done)

	Logger.Debugf("server: starting %s listener on %s", t.connector.GetName(), t.config.Endpoint)

	listener, err := t.connector.Listen(t.config)
	if err != nil {
		t.fail(&common.SetupError{Op: "listen", Endpoint: t.config.Endpoint, Err: err})
		return
	}

	t.mu.Lock()
	t.listener = listener
	t.mu.Unlock()

	// Close may have run before the listener was stored
	if t.closing.Load() {
		_ = listener.Close()
		return
	}

	Logger.Infof("server: listening on %s", listener.Addr())

	for {
		Logger.Debugf("server: waiting for new connections")
		conn, err := listener.Accept()
		if err != nil {
			if t.closing.Load() {
				return
			}

			// Case listener closed: there is no recovery for a dead listener
			if errors.Is(err, net.ErrClosed) {
				t.fail(common.ErrListenerClosed)
				return
			}

			// Case error: log and keep accepting
			Logger.Errorf("server: accept error: %v", err)
			continue
		}

		t.register(conn)
	}
}

// register adds an accepted socket to the connection table and starts its goroutine
func (t *serverTransport) register(conn net.Conn) {
	id, err := clientIdOf(conn)
	if err != nil {
		Logger.Errorf("server: %v", err)
		_ = conn.Close()
		return
	}

	if err := t.connector.UpgradeConnection(conn, t.config.SocketConf, t.config.TCPConf); err != nil {
		Logger.Warningf("server: failed to upgrade connection of client(%d): %v", id, err)
	}

	c := newConnection(fmt.Sprintf("client(%d)", id), id, conn, common.PongMarker, t.stats)

	// the key must be unique while connected, an entry that already reached its
	// terminal state is replaced
	var rejected, replaced bool
	t.connections.Compute(id, func(old *connection, loaded bool) (*connection, bool) {
		if loaded && !old.isClosed() {
			rejected = true
			return old, false
		}
		replaced = loaded
		return c, false
	})

	if rejected {
		Logger.Warningf("server: a connection with client(%d) is already registered, closing new connection from %s", id, conn.RemoteAddr())
		c.close()
		return
	}
	if replaced {
		Logger.Debugf("server: replaced closed connection of client(%d)", id)
	}

	Logger.Debugf("server: new connection accepted with client(%d)", id)
	go c.receiveLoop(t.dispatch, t.remove)
}

// dispatch passes a received payload to the handler or answers with the default marker
func (t *serverTransport) dispatch(c *connection, rx common.Payload) {
	var err error
	if t.handler == nil {
		Logger.Debugf("server: sending %s to %s", c.marker, c.name)
		err = c.sendMarker()
	} else if tx := t.handler(c.id, rx); !tx.Empty() {
		err = c.send(tx)
	}

	if err != nil && !errors.Is(err, common.ErrConnectionClosed) {
		Logger.Errorf("server: failed to reply to %s: %v", c.name, err)
	}
}

// remove deletes the connection from the table if it is still registered under its id
func (t *serverTransport) remove(c *connection) {
	t.connections.Compute(c.id, func(old *connection, loaded bool) (*connection, bool) {
		// delete only the own entry, a newer connection may have reused the port
		return old, !loaded || old == c
	})
	Logger.Debugf("server: removed %s, %d connections left", c.name, t.connections.Size())
}

// fail stores the error that terminated the accept loop
func (t *serverTransport) fail(err error) {
	Logger.Errorf("server: %v", err)
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
}
