package transport

import (
	"github.com/ValentinKolb/dPing/exchange/common"
	"net"
)

// --------------------------------------------------------------------------
// Handler
// --------------------------------------------------------------------------

// ServerHandleFunc is called by the server for every payload received from a client.
// clientId is the remote port of the client. The rx payload is a copy and may be retained.
// If the returned payload is not empty it is sent back to the client.
type ServerHandleFunc func(clientId uint16, rx common.Payload) (tx common.Payload)

// ClientHandleFunc is called by a client for every payload received from the server.
// If the returned payload is not empty it is sent back to the server.
type ClientHandleFunc func(rx common.Payload) (tx common.Payload)

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// IExchangeServer is the interface of an exchange server
type IExchangeServer interface {
	// Start launches the accept loop in the background and returns immediately
	Start()
	// Status reports whether the accept loop is still running
	Status() common.Status
	// Send writes the payload to the client with the given id (remote port)
	Send(clientId uint16, tx common.Payload) error
	// ConnectionCount returns the number of connected clients
	ConnectionCount() int
	// Connections returns the ids of all connected clients in ascending order
	Connections() []uint16
	// Addr returns the address of the listener, nil while not listening
	Addr() net.Addr
	// Done is closed when the accept loop has terminated
	Done() <-chan struct{}
	// Err returns the error that terminated the accept loop (nil after Close)
	Err() error
	// Stats returns the traffic statistics of all connections
	Stats() common.StatsSnapshot
	// Close closes the listener and all connections
	Close() error
}

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// IExchangeClient is the interface of an exchange client
type IExchangeClient interface {
	// Id returns the sequential id assigned by the client factory
	Id() uint64
	// Name returns the name used in logs (client_<id>)
	Name() string
	// Start connects and runs the receive loop in the background and returns immediately
	Start()
	// Status reports whether the client goroutine is still running
	Status() common.Status
	// Send writes the payload to the server
	Send(tx common.Payload) error
	// Done is closed when the client goroutine has terminated
	Done() <-chan struct{}
	// Err returns the error that terminated the client (nil for EOF or Close)
	Err() error
	// Stats returns the traffic statistics of the client
	Stats() common.StatsSnapshot
	// Close closes the connection
	Close() error
}
