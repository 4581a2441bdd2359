package common

import (
	"strings"
	"testing"
	"time"
)

func TestExchangeConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *ExchangeConfig)
		wantErr bool
	}{
		{"defaults", func(c *ExchangeConfig) {}, false},
		{"empty ip", func(c *ExchangeConfig) { c.IP = "" }, true},
		{"server port 0", func(c *ExchangeConfig) { c.ServerPort = 0 }, true},
		{"invalid log level", func(c *ExchangeConfig) { c.LogLevel = "verbose" }, true},
		{"client ports overflow", func(c *ExchangeConfig) { c.ClientPort = 65535; c.ClientsNumber = 2 }, true},
		{"last client port", func(c *ExchangeConfig) { c.ClientPort = 65534; c.ClientsNumber = 2 }, false},
		{"ephemeral client ports", func(c *ExchangeConfig) { c.ClientPort = 0; c.ClientsNumber = 100 }, false},
		{"negative ping interval", func(c *ExchangeConfig) { c.PingInterval = -time.Second }, true},
		{"zero status interval", func(c *ExchangeConfig) { c.StatusInterval = 0 }, true},
		{"negative retries", func(c *ExchangeConfig) { c.ConnectRetries = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultExchangeConfig()
			tt.modify(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExchangeConfigDerive(t *testing.T) {
	c := DefaultExchangeConfig()
	c.ConnectRetries = 4
	c.TCPKeepAliveSec = 30

	s := c.ServerConfig()
	if s.Endpoint != NewEndpoint(DefaultIP, DefaultServerPort) {
		t.Errorf("Unexpected server endpoint %s", s.Endpoint)
	}
	if s.TCPKeepAliveSec != 30 || !s.TCPNoDelay {
		t.Errorf("Socket options are not passed to the server config")
	}

	for i := 0; i < 3; i++ {
		cc := c.ClientConfig(i)
		if cc.LocalEndpoint != NewEndpoint(DefaultIP, DefaultClientPort+uint16(i)) {
			t.Errorf("Client %d: unexpected local endpoint %s", i, cc.LocalEndpoint)
		}
		if cc.RemoteEndpoint != s.Endpoint {
			t.Errorf("Client %d: unexpected remote endpoint %s", i, cc.RemoteEndpoint)
		}
		if cc.ConnectRetries != 4 || cc.PingInterval != DefaultPingInterval {
			t.Errorf("Client %d: settings are not passed to the client config", i)
		}
	}

	c.ClientPort = 0
	if cc := c.ClientConfig(2); cc.LocalEndpoint.Port != 0 {
		t.Errorf("Expected ephemeral port, got %d", cc.LocalEndpoint.Port)
	}
}

func TestConfigString(t *testing.T) {
	c := DefaultExchangeConfig()
	c.MetricsEndpoint = ":9090"

	str := c.String()
	for _, want := range []string{"EXCHANGE", "SOCKET", "METRICS", "127.0.0.1", "31490", ":9090"} {
		if !strings.Contains(str, want) {
			t.Errorf("Expected %q in config string:\n%s", want, str)
		}
	}

	cc := c.ClientConfig(0)
	if str := cc.String(); !strings.Contains(str, "127.0.0.1:31400") || !strings.Contains(str, "127.0.0.1:31490") {
		t.Errorf("Expected both endpoints in client config string:\n%s", str)
	}
	sc := c.ServerConfig()
	if str := sc.String(); !strings.Contains(str, "SERVER") {
		t.Errorf("Expected server section in config string:\n%s", str)
	}
}
