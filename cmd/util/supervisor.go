package util

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dPing/exchange/common"
	"github.com/ValentinKolb/dPing/exchange/transport"
	"github.com/ValentinKolb/dPing/exchange/transport/tcp"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Mode selects the parts of the exchange that are started
type Mode int

const (
	ModeAll     Mode = iota // server and clients
	ModeServer              // server only
	ModeClients             // clients only
)

// ClientLaunchDelay is the pause between two client launches
const ClientLaunchDelay = 100 * time.Millisecond

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeServer:
		return "server"
	case ModeClients:
		return "clients"
	default:
		return "unknown"
	}
}

func (m Mode) withServer() bool {
	return m == ModeAll || m == ModeServer
}

func (m Mode) withClients() bool {
	return m == ModeAll || m == ModeClients
}

// --------------------------------------------------------------------------
// Supervisor
// --------------------------------------------------------------------------

// supervisor starts the server and the clients of one run and reports their status
type supervisor struct {
	mode    Mode
	config  common.ExchangeConfig
	server  transport.IExchangeServer
	clients []transport.IExchangeClient
}

// RunExchange runs the exchange until every part stopped, a setup step failed or the
// process receives SIGINT / SIGTERM. It also serves the metrics endpoint if configured.
func RunExchange(mode Mode, config common.ExchangeConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.MetricsEndpoint != "" {
		srv := StartMetricsEndpoint(config.MetricsEndpoint)
		defer StopMetricsEndpoint(srv)
	}

	return Supervise(ctx, mode, config)
}

// Supervise starts the parts of the exchange selected by mode and logs their status
// every status interval. Stopped clients are dropped from the report. It returns nil
// once nothing runs anymore or ctx is done, and the setup error of the first server or
// client that could not open its socket.
func Supervise(ctx context.Context, mode Mode, config common.ExchangeConfig) error {
	s := &supervisor{mode: mode, config: config}
	defer s.closeAll()

	Logger.Infof("starting exchange (mode %s)", mode)

	if mode.withServer() {
		if err := s.startServer(ctx); err != nil {
			return err
		}
	}

	if mode.withClients() {
		if err := s.startClients(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(config.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			Logger.Infof("shutting down")
			return nil
		case <-ticker.C:
		}

		if err := s.checkSetup(); err != nil {
			return err
		}

		s.report()

		if !s.running() {
			Logger.Infof("all parts stopped")
			return nil
		}
	}
}

// startServer starts the server and waits until it listens
func (s *supervisor) startServer(ctx context.Context) error {
	s.server = tcp.NewServer(s.config.ServerConfig(), nil)
	s.server.Start()

	// clients started before the listener is up would be refused
	for s.server.Addr() == nil {
		select {
		case <-s.server.Done():
			return fmt.Errorf("server: %w", s.server.Err())
		case <-ctx.Done():
			return nil
		case <-time.After(10 * time.Millisecond):
		}
	}
	return nil
}

// startClients launches the configured number of clients with ClientLaunchDelay in between
func (s *supervisor) startClients(ctx context.Context) error {
	factory := tcp.NewClientFactory()

	for i := 0; i < int(s.config.ClientsNumber); i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(ClientLaunchDelay):
			}
		}

		client := factory.New(s.config.ClientConfig(i), nil)
		Logger.Debugf("launching %s", client.Name())
		client.Start()
		s.clients = append(s.clients, client)
	}
	return nil
}

// checkSetup returns the first setup error of the server or a client
func (s *supervisor) checkSetup() error {
	if s.server != nil {
		if err := s.server.Err(); errors.Is(err, common.ErrSetupFailed) {
			return fmt.Errorf("server: %w", err)
		}
	}
	for _, c := range s.clients {
		if err := c.Err(); errors.Is(err, common.ErrSetupFailed) {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
	}
	return nil
}

// report logs the status of all parts and drops stopped clients
func (s *supervisor) report() {
	if s.server != nil {
		Logger.Infof("server(%s) %d connections, %s", s.server.Status(), s.server.ConnectionCount(), s.server.Stats())
	}

	running := s.clients[:0]
	for _, c := range s.clients {
		status := c.Status()
		Logger.Infof("%s(%s) %s", c.Name(), status, c.Stats())

		if status == common.StatusStopped {
			if err := c.Err(); err != nil {
				Logger.Warningf("%s stopped: %v", c.Name(), err)
			}
			_ = c.Close()
			continue
		}
		running = append(running, c)
	}
	s.clients = running
}

// running reports whether the server or any client is still running
func (s *supervisor) running() bool {
	if s.server != nil && s.server.Status() != common.StatusStopped {
		return true
	}
	return len(s.clients) > 0
}

// closeAll closes the server and all clients
func (s *supervisor) closeAll() {
	for _, c := range s.clients {
		_ = c.Close()
	}
	if s.server != nil {
		if err := s.server.Close(); err != nil {
			Logger.Warningf("failed to close server: %v", err)
		}
	}
}
