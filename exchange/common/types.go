package common

import (
	"fmt"
	"net"
	"strconv"
)

const (
	// RxBufferSize is the fixed capacity of every receive buffer
	RxBufferSize = 4096
)

var (
	// PingMarker is the payload a client sends to the server
	PingMarker = Payload("PING")
	// PongMarker is the payload the server answers with
	PongMarker = Payload("PONG")
)

// --------------------------------------------------------------------------
// Payload
// --------------------------------------------------------------------------

// Payload is the byte buffer used for one read or one write operation
type Payload []byte

// NewRxBuffer allocates a receive buffer with the fixed capacity RxBufferSize
func NewRxBuffer() Payload {
	return make(Payload, RxBufferSize)
}

// Clone returns a copy of the payload that does not share memory with p
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	c := make(Payload, len(p))
	copy(c, p)
	return c
}

// Empty reports whether the payload holds no bytes
func (p Payload) Empty() bool {
	return len(p) == 0
}

func (p Payload) String() string {
	return string(p)
}

// --------------------------------------------------------------------------
// Endpoint
// --------------------------------------------------------------------------

// Endpoint is an (address, port) pair identifying one end of a TCP connection
type Endpoint struct {
	IP   string
	Port uint16
}

// NewEndpoint creates an endpoint from an ip and a port
func NewEndpoint(ip string, port uint16) Endpoint {
	return Endpoint{IP: ip, Port: port}
}

// ParseEndpoint parses a "host:port" string
func ParseEndpoint(s string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: %v", s, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid port in endpoint %q: %v", s, err)
	}
	return Endpoint{IP: host, Port: uint16(port)}, nil
}

// String returns the endpoint in "host:port" notation
func (e Endpoint) String() string {
	return net.JoinHostPort(e.IP, strconv.Itoa(int(e.Port)))
}

// TCPAddr converts the endpoint to a *net.TCPAddr. An empty ip maps to the unspecified address.
func (e Endpoint) TCPAddr() (*net.TCPAddr, error) {
	addr := &net.TCPAddr{Port: int(e.Port)}
	if e.IP != "" {
		addr.IP = net.ParseIP(e.IP)
		if addr.IP == nil {
			return nil, fmt.Errorf("invalid ip address %q", e.IP)
		}
	}
	return addr, nil
}

// --------------------------------------------------------------------------
// Status
// --------------------------------------------------------------------------

// Status reports whether the worker goroutine of a server or client is executing
type Status int

const (
	StatusNotStarted Status = iota
	StatusRunning
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "NOT STARTED"
	case StatusRunning:
		return "RUNNING"
	case StatusStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}
