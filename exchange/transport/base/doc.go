// Package base implements the exchange server and client independent of the
// specific network medium. Protocol-specific operations (listening, dialing,
// socket options) are injected through connector interfaces, see the tcp package.
//
// The package focuses on:
//   - The connection lifecycle: connected, exchanging, closed
//   - One receive loop per connection in its own goroutine
//   - A connection table keyed by the remote port of the client
//   - Typed errors instead of process exits for setup failures
//
// Key Components:
//
//   - connection: owns one socket, its receive buffer (fixed capacity) and its
//     write mutex. receiveLoop reads, dispatches non-empty payloads and reads
//     again until EOF, a read error or close. Reads and replies of one connection
//     are strictly sequential.
//
//   - serverTransport: runs the accept loop, registers every accepted connection
//     in an xsync.MapOf under the client's remote port and removes it again when
//     the client closes or resets the connection. Without handler every payload is answered
//     with PONG.
//
//   - clientTransport: connects (optionally with backoff retries), sends PING and
//     runs the receive loop. Without handler the client waits the ping interval
//     and sends PING again.
//
//   - ClientFactory: creates clients and owns the counter for their ids.
//
// Thread Safety:
//
//	All public methods are thread-safe. The connection table is the only state
//	shared between goroutines; it is touched for membership operations only and
//	never while a socket call is in progress. Send may be called from any goroutine
//	concurrently with the receive loop.
package base
