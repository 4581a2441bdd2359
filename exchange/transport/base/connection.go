package base

import (
	"errors"
	"github.com/ValentinKolb/dPing/exchange/common"
	"github.com/jpillora/sizestr"
	"io"
	"net"
	"sync"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Connection state machine
// --------------------------------------------------------------------------

// connState is the state of the exchange on one connection.
// Idle is represented by the absence of a connection.
type connState int32

const (
	stateConnected  connState = iota // connect / accept completed
	stateExchanging                  // receive loop running
	stateClosed                      // terminal, no further reads or writes
)

func (s connState) String() string {
	switch s {
	case stateConnected:
		return "connected"
	case stateExchanging:
		return "exchanging"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

// dispatchFunc handles a non-empty payload read from a connection
type dispatchFunc func(c *connection, rx common.Payload)

// connection drives the full duplex exchange of one socket. It is used for the
// connections accepted by the server as well as for the connection of a client.
//
// Only the goroutine running receiveLoop touches the rx buffer. Writes from any
// goroutine are serialized by writeMu.
type connection struct {
	id    uint16 // remote port for server connections
	name  string // used in logs
	conn  net.Conn
	stats *common.ExchangeStats

	rx      common.Payload // fixed capacity, reused for every read
	tx      common.Payload // most recently queued payload
	marker  common.Payload // default reply
	writeMu sync.Mutex

	state     atomic.Int32
	closeOnce sync.Once
	closed    chan struct{} // closed by close()
	sent      atomic.Int64
	received  atomic.Int64
}

// newConnection wraps an established socket. tx is pre-filled with the default marker.
func newConnection(name string, id uint16, conn net.Conn, marker common.Payload, stats *common.ExchangeStats) *connection {
	c := &connection{
		id:     id,
		name:   name,
		conn:   conn,
		stats:  stats,
		rx:     common.NewRxBuffer(),
		tx:     marker.Clone(),
		marker: marker.Clone(),
		closed: make(chan struct{}),
	}
	c.state.Store(int32(stateConnected))
	stats.ConnectionOpened()
	return c
}

// getState returns the current state of the exchange
func (c *connection) getState() connState {
	return connState(c.state.Load())
}

// isClosed reports whether the connection reached its terminal state
func (c *connection) isClosed() bool {
	return c.getState() == stateClosed
}

// receiveLoop reads from the socket until EOF, an error or close() and passes
// every non-empty payload to dispatch. The next read is issued only after dispatch
// returned, so the replies of one connection keep the order of the requests.
//
// onTerminated is called once if the loop ends because of the peer (EOF or a read
// error such as a reset), never after a local close(). The connection is closed
// when receiveLoop returns.
func (c *connection) receiveLoop(dispatch dispatchFunc, onTerminated func(c *connection)) {
	defer c.close()

	if !c.state.CompareAndSwap(int32(stateConnected), int32(stateExchanging)) {
		Logger.Warningf("%s receive loop not started, connection is %s", c.name, c.getState())
		return
	}

	for {
		n, err := c.conn.Read(c.rx)

		if err != nil {
			prev := connState(c.state.Swap(int32(stateClosed)))

			switch {
			// Case local close: socket was closed by close()
			case c.closeRequested():
				Logger.Debugf("%s receive loop stopped (%s): %v", c.name, prev, err)
				return

			// Case EOF: connection closed by peer
			case errors.Is(err, io.EOF):
				Logger.Debugf("%s closed the connection (%s -> %s)", c.name, prev, stateClosed)

			// Case error: log and stop the loop
			default:
				Logger.Errorf("%s read error (%s -> %s): %v", c.name, prev, stateClosed, err)
			}

			if onTerminated != nil {
				onTerminated(c)
			}
			return
		}

		// Empty read: nothing to dispatch, read again
		if n == 0 {
			continue
		}

		c.received.Add(int64(n))
		c.stats.Received(n)
		Logger.Debugf("%s received %d bytes: %q", c.name, n, c.rx[:n])

		dispatch(c, c.rx[:n].Clone())

		if c.isClosed() {
			return
		}
	}
}

// send writes the payload synchronously. Concurrent callers are serialized.
func (c *connection) send(tx common.Payload) error {
	if tx.Empty() {
		Logger.Warningf("%s empty payload, will ignore", c.name)
		return common.ErrEmptyPayload
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.isClosed() {
		return common.ErrConnectionClosed
	}

	c.tx = tx.Clone()
	n, err := c.conn.Write(c.tx)
	if err != nil {
		return err
	}

	c.sent.Add(int64(n))
	c.stats.Sent(n)
	Logger.Debugf("%s sent %d bytes", c.name, n)
	return nil
}

// sendMarker writes the default marker the connection was created with
func (c *connection) sendMarker() error {
	return c.send(c.marker)
}

// closeRequested reports whether close() was called
func (c *connection) closeRequested() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// close moves the connection to its terminal state and closes the socket, which
// cancels a pending read. It never waits for the receive loop, as it may be called
// from within that loop. Safe to call multiple times.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		prev := connState(c.state.Swap(int32(stateClosed)))

		// a write blocked in progress fails with net.ErrClosed, new writes see the closed state
		if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			Logger.Warningf("%s error closing socket: %v", c.name, err)
		}

		c.stats.ConnectionClosed()
		Logger.Debugf("%s closed in state %s (sent %s, received %s)", c.name, prev,
			sizestr.ToString(c.sent.Load()), sizestr.ToString(c.received.Load()))
	})
}
