// Package transport defines the interfaces of the exchange servers and clients.
//
// Key Components:
//
//   - ServerHandleFunc / ClientHandleFunc: callbacks receiving every non-empty
//     payload read from a connection. A non-empty return value is written back
//     on the same connection.
//
//   - IExchangeServer: accepts connections and sends payloads to a specific client,
//     identified by the client's remote port.
//
//   - IExchangeClient: holds one outbound connection.
package transport
