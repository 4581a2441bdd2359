package base

import (
	"github.com/ValentinKolb/dPing/exchange/common"
	"github.com/ValentinKolb/dPing/exchange/transport"
	"sync/atomic"
)

// ClientFactory creates clients and assigns their sequential ids.
// Ids are unique per factory, the first id is 1.
type ClientFactory struct {
	connector IClientConnector
	lastId    atomic.Uint64
}

// NewClientFactory creates a new factory for clients using the specified connector
func NewClientFactory(connector IClientConnector) *ClientFactory {
	return &ClientFactory{connector: connector}
}

// New creates a client with the next id. If handler is nil the client answers every
// payload with common.PingMarker after config.PingInterval.
func (f *ClientFactory) New(config common.ClientConfig, handler transport.ClientHandleFunc) transport.IExchangeClient {
	return newClient(f.lastId.Add(1), f.connector, config, handler)
}
