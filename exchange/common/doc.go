// Package common provides the data types and utilities shared by all parts of the
// dPing exchange: payloads, endpoints, status values, errors, configuration and logging.
//
// Key Components:
//
//   - Payload / Endpoint: the byte buffer of one read or write and the (ip, port)
//     pair identifying one end of a TCP connection. RxBufferSize fixes the capacity
//     of every receive buffer.
//
//   - PingMarker / PongMarker: the two payloads of the default exchange.
//
//   - Status: the state of the worker goroutine of a server or client.
//
//   - ServerConfig / ClientConfig / ExchangeConfig: configuration structs. The
//     ExchangeConfig holds the startup parameters of the command line tool and
//     derives the server and client configurations from them.
//
//   - SetupError and the sentinel errors returned by the transport layer.
//
//   - Logger: custom logging implementation plugged into dragonboat's logger
//     package so every package logs with the same format.
//
//   - ExchangeStats: byte and message counters, message rates, round trip times
//     and the prometheus counters of a server or client.
package common
