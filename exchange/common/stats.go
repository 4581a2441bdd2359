package common

import (
	"fmt"
	vmetrics "github.com/VictoriaMetrics/metrics"
	"github.com/jpillora/sizestr"
	"github.com/puzpuzpuz/xsync/v3"
	gometrics "github.com/rcrowley/go-metrics"
	"time"
)

// --------------------------------------------------------------------------
// Exchange statistics
// --------------------------------------------------------------------------

// ExchangeStats collects the traffic of one server or client.
//
// Totals are kept twice: per instance (xsync counters and go-metrics meters, read by
// Snapshot for the status log) and process wide as prometheus counters labelled with
// the role (exported by the metrics endpoint).
type ExchangeStats struct {
	bytesIn     *xsync.Counter
	bytesOut    *xsync.Counter
	messagesIn  gometrics.Meter
	messagesOut gometrics.Meter
	rtt         gometrics.Timer

	promBytesIn     *vmetrics.Counter
	promBytesOut    *vmetrics.Counter
	promMessagesIn  *vmetrics.Counter
	promMessagesOut *vmetrics.Counter
	promConnActive  *vmetrics.Counter
	promConnTotal   *vmetrics.Counter
}

// StatsSnapshot is a point in time copy of ExchangeStats
type StatsSnapshot struct {
	BytesIn     int64
	BytesOut    int64
	MessagesIn  int64
	MessagesOut int64
	// RateIn is the one-minute moving average of received messages per second
	RateIn   float64
	RTTCount int64
	RTTMean  time.Duration
}

// NewExchangeStats creates the statistics for one server or client with the given role (server, client)
func NewExchangeStats(role string) *ExchangeStats {
	name := func(metric string) string {
		return fmt.Sprintf(`dping_%s{role=%q}`, metric, role)
	}
	return &ExchangeStats{
		bytesIn:         xsync.NewCounter(),
		bytesOut:        xsync.NewCounter(),
		messagesIn:      gometrics.NewMeter(),
		messagesOut:     gometrics.NewMeter(),
		rtt:             gometrics.NewTimer(),
		promBytesIn:     vmetrics.GetOrCreateCounter(name("bytes_received_total")),
		promBytesOut:    vmetrics.GetOrCreateCounter(name("bytes_sent_total")),
		promMessagesIn:  vmetrics.GetOrCreateCounter(name("messages_received_total")),
		promMessagesOut: vmetrics.GetOrCreateCounter(name("messages_sent_total")),
		promConnActive:  vmetrics.GetOrCreateCounter(name("connections_active")),
		promConnTotal:   vmetrics.GetOrCreateCounter(name("connections_total")),
	}
}

// Received records one successful read of n bytes
func (s *ExchangeStats) Received(n int) {
	s.bytesIn.Add(int64(n))
	s.messagesIn.Mark(1)
	s.promBytesIn.Add(n)
	s.promMessagesIn.Inc()
}

// Sent records one successful write of n bytes
func (s *ExchangeStats) Sent(n int) {
	s.bytesOut.Add(int64(n))
	s.messagesOut.Mark(1)
	s.promBytesOut.Add(n)
	s.promMessagesOut.Inc()
}

// RoundTrip records the time between a send and the next received payload
func (s *ExchangeStats) RoundTrip(d time.Duration) {
	s.rtt.Update(d)
}

// ConnectionOpened records a new connection
func (s *ExchangeStats) ConnectionOpened() {
	s.promConnTotal.Inc()
	s.promConnActive.Inc()
}

// ConnectionClosed records the end of a connection opened with ConnectionOpened
func (s *ExchangeStats) ConnectionClosed() {
	s.promConnActive.Dec()
}

// Snapshot returns the current values
func (s *ExchangeStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		BytesIn:     s.bytesIn.Value(),
		BytesOut:    s.bytesOut.Value(),
		MessagesIn:  s.messagesIn.Count(),
		MessagesOut: s.messagesOut.Count(),
		RateIn:      s.messagesIn.Rate1(),
		RTTCount:    s.rtt.Count(),
		RTTMean:     time.Duration(s.rtt.Mean()),
	}
}

// Stop releases the meters, the counters keep their values
func (s *ExchangeStats) Stop() {
	s.messagesIn.Stop()
	s.messagesOut.Stop()
	s.rtt.Stop()
}

func (s StatsSnapshot) String() string {
	str := fmt.Sprintf("rx %s in %d msgs (%.2f msg/s), tx %s in %d msgs",
		sizestr.ToString(s.BytesIn), s.MessagesIn, s.RateIn, sizestr.ToString(s.BytesOut), s.MessagesOut)
	if s.RTTCount > 0 {
		str += fmt.Sprintf(", rtt %s", s.RTTMean.Round(time.Microsecond))
	}
	return str
}
