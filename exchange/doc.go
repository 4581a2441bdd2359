// Package exchange implements a minimal connection-oriented TCP request/response
// exchange: a server accepting many concurrent clients and clients holding one
// outbound connection each, exchanging PING and PONG in a continuous loop.
//
// The package is organized into several subpackages:
//
//   - common: payloads, endpoints, configuration, errors, logging and statistics.
//
//   - transport: the interfaces of servers and clients and their handler functions.
//
//   - transport/base: the medium independent implementation of the connection
//     lifecycle, the accept loop and the client loop.
//
//   - transport/tcp: TCP connectors and the factory methods used by applications.
package exchange
