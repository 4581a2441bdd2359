package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dPing/exchange/common"
	"github.com/ValentinKolb/dPing/exchange/transport"
	"sync/atomic"
	"testing"
	"time"
)

// startClient creates and starts a client and closes it when the test ends
func startClient(t *testing.T, factory *ClientFactory, config common.ClientConfig, handler transport.ClientHandleFunc) transport.IExchangeClient {
	t.Helper()
	c := factory.New(config, handler)
	c.Start()
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// waitDone waits until the client goroutine stopped
func waitDone(t *testing.T, c transport.IExchangeClient) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(testTimeout):
		t.Fatalf("Timeout waiting for %s to stop", c.Name())
	}
}

// TestClientPingPong tests that a client keeps exchanging PING and PONG with the server
func TestClientPingPong(t *testing.T) {
	var pings atomic.Int32
	_, ep := startTestServer(t, func(_ uint16, rx common.Payload) common.Payload {
		if string(rx) == "PING" {
			pings.Add(1)
		}
		return common.PongMarker
	})

	c := startClient(t, NewClientFactory(&testClientConnector{}), testClientConfig(ep, 10*time.Millisecond), nil)
	if c.Status() != common.StatusRunning {
		t.Errorf("Expected status RUNNING, got %s", c.Status())
	}

	waitFor(t, "several round trips", func() bool { return pings.Load() >= 3 })

	stats := c.Stats()
	if stats.MessagesOut < 3 || stats.MessagesIn < 2 {
		t.Errorf("Unexpected message counts: %s", stats)
	}
	if stats.RTTCount == 0 {
		t.Errorf("Expected round trip times to be recorded")
	}
	if stats.BytesOut < 12 {
		t.Errorf("Expected at least 12 bytes sent, got %d", stats.BytesOut)
	}
}

// TestClientHandler tests that the client handler receives the server reply and its result is sent
func TestClientHandler(t *testing.T) {
	received := make(chan common.Payload, 10)
	_, ep := startTestServer(t, func(_ uint16, rx common.Payload) common.Payload {
		received <- rx
		return common.PongMarker
	})

	var replies atomic.Int32
	startClient(t, NewClientFactory(&testClientConnector{}), testClientConfig(ep, 0), func(rx common.Payload) common.Payload {
		if string(rx) != "PONG" {
			t.Errorf("Expected PONG, got %q", rx)
		}
		if replies.Add(1) == 1 {
			return common.Payload("DONE")
		}
		return nil
	})

	if got := <-received; string(got) != "PING" {
		t.Errorf("Expected initial PING, got %q", got)
	}
	if got := <-received; string(got) != "DONE" {
		t.Errorf("Expected DONE, got %q", got)
	}

	// the second reply of the handler is empty, so the exchange stops
	waitFor(t, "second reply", func() bool { return replies.Load() == 2 })
	select {
	case got := <-received:
		t.Errorf("Expected no further payload, got %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestClientFactoryIds tests that ids are assigned sequentially per factory starting at 1
func TestClientFactoryIds(t *testing.T) {
	factory := NewClientFactory(&testClientConnector{})
	for want := uint64(1); want <= 3; want++ {
		c := factory.New(common.ClientConfig{}, nil)
		if c.Id() != want {
			t.Errorf("Expected id %d, got %d", want, c.Id())
		}
		if name := c.Name(); name != fmt.Sprintf("client_%d", want) {
			t.Errorf("Expected name client_%d, got %s", want, name)
		}
		if c.Status() != common.StatusNotStarted {
			t.Errorf("Expected status NOT STARTED, got %s", c.Status())
		}
		if err := c.Close(); err != nil {
			t.Errorf("Close of an unstarted client failed: %v", err)
		}
	}

	if c := NewClientFactory(&testClientConnector{}).New(common.ClientConfig{}, nil); c.Id() != 1 {
		t.Errorf("A new factory must start at 1, got %d", c.Id())
	}
}

// TestClientSetupFailure tests that a refused connection stops the client with a setup error
func TestClientSetupFailure(t *testing.T) {
	ep := freeEndpoint(t)
	c := startClient(t, NewClientFactory(&testClientConnector{}), testClientConfig(ep, 0), nil)
	waitDone(t, c)

	if c.Status() != common.StatusStopped {
		t.Errorf("Expected status STOPPED, got %s", c.Status())
	}
	if !errors.Is(c.Err(), common.ErrSetupFailed) {
		t.Errorf("Expected ErrSetupFailed, got %v", c.Err())
	}
	var setupErr *common.SetupError
	if !errors.As(c.Err(), &setupErr) || setupErr.Op != "connect" || setupErr.Endpoint != ep {
		t.Errorf("Expected connect SetupError for %s, got %v", ep, c.Err())
	}
}

// TestClientConnectRetries tests that failed connects are retried up to the configured number
func TestClientConnectRetries(t *testing.T) {
	_, ep := startTestServer(t, nil)

	t.Run("enough retries", func(t *testing.T) {
		connector := &testClientConnector{fail: 2}
		config := testClientConfig(ep, 10*time.Millisecond)
		config.ConnectRetries = 3
		config.MaxRetryInterval = 20 * time.Millisecond

		c := startClient(t, NewClientFactory(connector), config, nil)
		waitFor(t, "client to exchange", func() bool { return c.Stats().MessagesIn > 0 })

		if n := connector.calls.Load(); n != 3 {
			t.Errorf("Expected 3 connect calls, got %d", n)
		}
		if c.Err() != nil {
			t.Errorf("Expected no error, got %v", c.Err())
		}
	})

	t.Run("too few retries", func(t *testing.T) {
		connector := &testClientConnector{fail: 2}
		config := testClientConfig(ep, 10*time.Millisecond)
		config.ConnectRetries = 1
		config.MaxRetryInterval = 20 * time.Millisecond

		c := startClient(t, NewClientFactory(connector), config, nil)
		waitDone(t, c)

		if n := connector.calls.Load(); n != 2 {
			t.Errorf("Expected 2 connect calls, got %d", n)
		}
		if !errors.Is(c.Err(), common.ErrSetupFailed) {
			t.Errorf("Expected ErrSetupFailed, got %v", c.Err())
		}
	})
}

// TestClientStopsWithServer tests that a client stops without error when the server goes away
func TestClientStopsWithServer(t *testing.T) {
	s, ep := startTestServer(t, nil)
	c := startClient(t, NewClientFactory(&testClientConnector{}), testClientConfig(ep, 10*time.Millisecond), nil)

	waitFor(t, "client to connect", func() bool { return s.ConnectionCount() == 1 })
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	waitDone(t, c)
	if c.Err() != nil {
		t.Errorf("Expected no error, got %v", c.Err())
	}
	if c.Status() != common.StatusStopped {
		t.Errorf("Expected status STOPPED, got %s", c.Status())
	}
}

// TestClientSend tests explicit sends of a client
func TestClientSend(t *testing.T) {
	received := make(chan common.Payload, 10)
	_, ep := startTestServer(t, func(_ uint16, rx common.Payload) common.Payload {
		received <- rx
		return nil
	})

	c := startClient(t, NewClientFactory(&testClientConnector{}), testClientConfig(ep, 0), nil)
	if got := <-received; string(got) != "PING" {
		t.Fatalf("Expected initial PING, got %q", got)
	}

	if err := c.Send(nil); !errors.Is(err, common.ErrEmptyPayload) {
		t.Errorf("Expected ErrEmptyPayload, got %v", err)
	}
	if err := c.Send(common.Payload("HELLO")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := <-received; string(got) != "HELLO" {
		t.Errorf("Expected HELLO, got %q", got)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Send(common.Payload("LATE")); !errors.Is(err, common.ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed, got %v", err)
	}
}

// TestClientSendBeforeConnect tests that a client without connection refuses to send
func TestClientSendBeforeConnect(t *testing.T) {
	c := NewClientFactory(&testClientConnector{}).New(common.ClientConfig{}, nil)
	if err := c.Send(common.PingMarker); !errors.Is(err, common.ErrConnectionClosed) {
		t.Errorf("Expected ErrConnectionClosed, got %v", err)
	}
}
