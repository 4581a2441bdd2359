package base

import (
	"fmt"
	"github.com/ValentinKolb/dPing/exchange/common"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"time"
)

var Logger = logger.GetLogger("exchange")

// clientIdOf returns the remote port of a connection, which identifies the client on the server
func clientIdOf(conn net.Conn) (uint16, error) {
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return uint16(addr.Port), nil
	}

	// fallback for other address types in "host:port" notation
	ep, err := common.ParseEndpoint(conn.RemoteAddr().String())
	if err != nil {
		return 0, fmt.Errorf("cannot derive client id from %s: %v", conn.RemoteAddr(), err)
	}
	return ep.Port, nil
}

// sleepUntil waits for d or until done is closed and reports whether the full duration passed
func sleepUntil(d time.Duration, done <-chan struct{}) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-done:
		return false
	}
}

// statusOf derives the status of a worker goroutine from its started flag and done channel
func statusOf(started bool, done <-chan struct{}) common.Status {
	if !started {
		return common.StatusNotStarted
	}
	select {
	case <-done:
		return common.StatusStopped
	default:
		return common.StatusRunning
	}
}
