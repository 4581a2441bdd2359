package base

import (
	"context"
	"github.com/ValentinKolb/dPing/exchange/common"
	"github.com/ValentinKolb/dPing/exchange/transport"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

const testTimeout = 3 * time.Second

// --------------------------------------------------------------------------
// Test connectors (plain loopback sockets without socket options)
// --------------------------------------------------------------------------

type testServerConnector struct{}

func (c *testServerConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	return net.Listen("tcp", config.Endpoint.String())
}

func (c *testServerConnector) UpgradeConnection(net.Conn, common.SocketConf, common.TCPConf) error {
	return nil
}

func (c *testServerConnector) GetName() string {
	return "test"
}

type testClientConnector struct {
	// fail is the number of connect calls that fail before dialing
	fail  int32
	calls atomic.Int32
}

func (c *testClientConnector) Connect(ctx context.Context, config common.ClientConfig) (net.Conn, error) {
	if c.calls.Add(1) <= c.fail {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: io.ErrUnexpectedEOF}
	}
	d := net.Dialer{}
	if config.LocalEndpoint.Port != 0 {
		local, err := config.LocalEndpoint.TCPAddr()
		if err != nil {
			return nil, err
		}
		d.LocalAddr = local
	}
	return d.DialContext(ctx, "tcp", config.RemoteEndpoint.String())
}

func (c *testClientConnector) UpgradeConnection(net.Conn, common.SocketConf, common.TCPConf) error {
	return nil
}

func (c *testClientConnector) GetName() string {
	return "test"
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// waitFor polls cond until it is true or the test timeout expires
func waitFor(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timeout waiting for %s", msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// startTestServer starts a server on a random loopback port and returns it with its endpoint
func startTestServer(t *testing.T, handler transport.ServerHandleFunc) (transport.IExchangeServer, common.Endpoint) {
	t.Helper()
	s := NewBaseServer(&testServerConnector{}, common.ServerConfig{Endpoint: common.NewEndpoint("127.0.0.1", 0)}, handler)
	s.Start()
	t.Cleanup(func() { _ = s.Close() })

	waitFor(t, "server to listen", func() bool { return s.Addr() != nil || s.Status() == common.StatusStopped })
	if s.Addr() == nil {
		t.Fatalf("Server failed to start: %v", s.Err())
	}

	return s, common.NewEndpoint("127.0.0.1", uint16(s.Addr().(*net.TCPAddr).Port))
}

// dial opens a raw connection to the endpoint
func dial(t *testing.T, ep common.Endpoint) *net.TCPConn {
	t.Helper()
	conn, err := net.Dial("tcp", ep.String())
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", ep, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn.(*net.TCPConn)
}

// localPort returns the local port of a connection, which is its client id on the server
func localPort(conn net.Conn) uint16 {
	return uint16(conn.LocalAddr().(*net.TCPAddr).Port)
}

// readN reads exactly n bytes with the test timeout
func readN(t *testing.T, conn net.Conn, n int) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(testTimeout))
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("Failed to read %d bytes: %v", n, err)
	}
	return string(buf)
}

// write writes the payload or fails the test
func write(t *testing.T, conn net.Conn, p string) {
	t.Helper()
	if _, err := conn.Write([]byte(p)); err != nil {
		t.Fatalf("Failed to write %q: %v", p, err)
	}
}

// testClientConfig returns a client config for the endpoint with an ephemeral local port
func testClientConfig(remote common.Endpoint, pingInterval time.Duration) common.ClientConfig {
	return common.ClientConfig{
		LocalEndpoint:  common.NewEndpoint("127.0.0.1", 0),
		RemoteEndpoint: remote,
		PingInterval:   pingInterval,
	}
}

// freeEndpoint returns a loopback endpoint nobody listens on
func freeEndpoint(t *testing.T) common.Endpoint {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	return common.NewEndpoint("127.0.0.1", uint16(port))
}
