// Package tcp implements the TCP transport of the exchange. It provides concrete
// implementations of the base package's connector interfaces and the factory
// methods used by applications.
//
// Key Components:
//
//   - serverConnector: opens the listener with SO_REUSEADDR on the configured
//     endpoint and applies the socket options of every accepted connection.
//
//   - clientConnector: binds the client socket to its local endpoint (with
//     SO_REUSEADDR, so a fixed client port can be reused right after a restart)
//     and connects it to the server.
//
//   - NewServer / NewClientFactory: factory methods.
//
// Usage:
//
//	server := tcp.NewServer(common.ServerConfig{Endpoint: common.NewEndpoint("127.0.0.1", 31490)}, nil)
//	server.Start()
//
//	clients := tcp.NewClientFactory()
//	client := clients.New(common.ClientConfig{
//		LocalEndpoint:  common.NewEndpoint("127.0.0.1", 31400),
//		RemoteEndpoint: common.NewEndpoint("127.0.0.1", 31490),
//		PingInterval:   2 * time.Second,
//	}, nil)
//	client.Start()
package tcp
