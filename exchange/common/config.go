package common

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Defaults used when neither flags, environment nor config file provide a value
const (
	DefaultIP               = "127.0.0.1"
	DefaultServerPort       = 31490
	DefaultClientPort       = 31400
	DefaultClientsNumber    = 1
	DefaultLogLevel         = "debug"
	DefaultPingInterval     = 2 * time.Second
	DefaultStatusInterval   = 2 * time.Second
	DefaultMaxRetryInterval = 5 * time.Second
)

// --------------------------------------------------------------------------
// Socket configuration structs (shared by server and client)
// --------------------------------------------------------------------------

// SocketConf holds socket buffer settings, zero keeps the OS default
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific socket options
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	// TCPLingerSec < 0 keeps the OS default
	TCPLingerSec int
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds the parameters of one exchange server
type ServerConfig struct {
	// Endpoint the listener binds to
	Endpoint Endpoint

	SocketConf
	TCPConf
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatter(&sb)

	addSection("Server")
	addField("Endpoint", c.Endpoint.String())
	addSocketFields(addSection, addField, c.SocketConf, c.TCPConf)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds the parameters of one exchange client
type ClientConfig struct {
	// LocalEndpoint the socket binds to before connecting (port 0 = ephemeral)
	LocalEndpoint Endpoint
	// RemoteEndpoint of the server
	RemoteEndpoint Endpoint

	// PingInterval is the delay of the default handler before answering with the next PING
	PingInterval time.Duration

	// ConnectRetries is the number of additional connect attempts, 0 fails at the first error
	ConnectRetries   int
	MaxRetryInterval time.Duration

	SocketConf
	TCPConf
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatter(&sb)

	addSection("Client")
	addField("Local Endpoint", c.LocalEndpoint.String())
	addField("Remote Endpoint", c.RemoteEndpoint.String())
	addField("Ping Interval", c.PingInterval.String())
	addField("Connect Retries", fmt.Sprintf("%d (max interval %s)", c.ConnectRetries, c.MaxRetryInterval))
	addSocketFields(addSection, addField, c.SocketConf, c.TCPConf)

	return sb.String()
}

// --------------------------------------------------------------------------
// Startup configuration (flags, env, json file)
// --------------------------------------------------------------------------

// ExchangeConfig holds the startup parameters of the dping command and derives
// the server and client configurations from them
type ExchangeConfig struct {
	IP            string
	ServerPort    uint16
	ClientPort    uint16
	ClientsNumber uint16
	LogLevel      string

	PingInterval     time.Duration
	StatusInterval   time.Duration
	ConnectRetries   int
	MaxRetryInterval time.Duration

	// MetricsEndpoint enables the prometheus endpoint if not empty
	MetricsEndpoint string

	SocketConf
	TCPConf
}

// DefaultExchangeConfig returns the configuration used without any config file
func DefaultExchangeConfig() ExchangeConfig {
	return ExchangeConfig{
		IP:               DefaultIP,
		ServerPort:       DefaultServerPort,
		ClientPort:       DefaultClientPort,
		ClientsNumber:    DefaultClientsNumber,
		LogLevel:         DefaultLogLevel,
		PingInterval:     DefaultPingInterval,
		StatusInterval:   DefaultStatusInterval,
		MaxRetryInterval: DefaultMaxRetryInterval,
		TCPConf:          TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
	}
}

// Validate checks the configuration for values the exchange cannot work with
func (c *ExchangeConfig) Validate() error {
	if c.IP == "" {
		return fmt.Errorf("ip must not be empty")
	}
	if c.ServerPort == 0 {
		return fmt.Errorf("server port must not be 0")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.ClientPort != 0 && c.ClientsNumber > 0 && int(c.ClientPort)+int(c.ClientsNumber)-1 > math.MaxUint16 {
		return fmt.Errorf("client ports %d..%d exceed the port range", c.ClientPort, int(c.ClientPort)+int(c.ClientsNumber)-1)
	}
	if c.PingInterval < 0 {
		return fmt.Errorf("ping interval must not be negative")
	}
	if c.StatusInterval <= 0 {
		return fmt.Errorf("status interval must be positive")
	}
	if c.ConnectRetries < 0 {
		return fmt.Errorf("connect retries must not be negative")
	}
	return nil
}

// ServerConfig derives the server configuration
func (c *ExchangeConfig) ServerConfig() ServerConfig {
	return ServerConfig{
		Endpoint:   NewEndpoint(c.IP, c.ServerPort),
		SocketConf: c.SocketConf,
		TCPConf:    c.TCPConf,
	}
}

// ClientConfig derives the configuration of the i-th client (starting at 0).
// Client i binds to ClientPort + i, a ClientPort of 0 lets the OS pick the port.
func (c *ExchangeConfig) ClientConfig(i int) ClientConfig {
	localPort := uint16(0)
	if c.ClientPort != 0 {
		localPort = c.ClientPort + uint16(i)
	}
	return ClientConfig{
		LocalEndpoint:    NewEndpoint(c.IP, localPort),
		RemoteEndpoint:   NewEndpoint(c.IP, c.ServerPort),
		PingInterval:     c.PingInterval,
		ConnectRetries:   c.ConnectRetries,
		MaxRetryInterval: c.MaxRetryInterval,
		SocketConf:       c.SocketConf,
		TCPConf:          c.TCPConf,
	}
}

// String returns a formatted string representation of the configuration
func (c *ExchangeConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatter(&sb)

	addSection("Exchange")
	addField("IP", c.IP)
	addField("Server Port", fmt.Sprintf("%d", c.ServerPort))
	addField("Client Port", fmt.Sprintf("%d", c.ClientPort))
	addField("Clients", fmt.Sprintf("%d", c.ClientsNumber))
	addField("Ping Interval", c.PingInterval.String())
	addField("Status Interval", c.StatusInterval.String())
	addField("Connect Retries", fmt.Sprintf("%d", c.ConnectRetries))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	if c.MetricsEndpoint != "" {
		addSection("Metrics")
		addField("Endpoint", c.MetricsEndpoint)
	}

	addSocketFields(addSection, addField, c.SocketConf, c.TCPConf)
	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// formatter returns the helper functions used for consistent formatting of all configs
func formatter(sb *strings.Builder) (addSection func(string), addField func(string, string)) {
	addSection = func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField = func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}
	return addSection, addField
}

func addSocketFields(addSection func(string), addField func(string, string), s SocketConf, t TCPConf) {
	addSection("Socket")
	addField("TCP No Delay", fmt.Sprintf("%t", t.TCPNoDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", t.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", t.TCPLingerSec))
	addField("Write Buffer", fmt.Sprintf("%d B", s.WriteBufferSize))
	addField("Read Buffer", fmt.Sprintf("%d B", s.ReadBufferSize))
}
