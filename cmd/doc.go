// Package cmd implements the command-line interface of dPing. Every subcommand
// starts a part of the exchange with the configuration read from flags,
// environment variables (DPING_<flag>) and the JSON config file.
//
// The package is organized into several subpackages:
//
//   - run: Starts the server and the clients in one process
//   - serve: Starts only the server
//   - connect: Starts only the clients
//   - util: Shared flags, configuration loading, status supervisor and metrics endpoint (internal use)
//
// See dping -help for a list of all commands.
package cmd
