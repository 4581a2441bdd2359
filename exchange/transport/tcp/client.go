package tcp

import (
	"context"
	"github.com/ValentinKolb/dPing/exchange/common"
	"github.com/ValentinKolb/dPing/exchange/transport/base"
	"net"
)

// clientConnector implements the IClientConnector interface for TCP sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

// Connect opens a TCP socket with SO_REUSEADDR, binds it to the local endpoint and
// connects it to the remote endpoint
func (c *clientConnector) Connect(ctx context.Context, config common.ClientConfig) (net.Conn, error) {
	local, err := config.LocalEndpoint.TCPAddr()
	if err != nil {
		return nil, err
	}

	d := net.Dialer{
		LocalAddr: local,
		Control:   reuseAddrControl,
	}
	return d.DialContext(ctx, "tcp", config.RemoteEndpoint.String())
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, socket common.SocketConf, tcp common.TCPConf) error {
	return upgradeConnection(conn, socket, tcp)
}

// --------------------------------------------------------------------------
// Client Factory Method
// --------------------------------------------------------------------------

// NewClientFactory creates a factory for TCP exchange clients
func NewClientFactory() *base.ClientFactory {
	return base.NewClientFactory(&clientConnector{})
}
