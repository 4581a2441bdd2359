package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dPing/cmd/connect"
	"github.com/ValentinKolb/dPing/cmd/run"
	"github.com/ValentinKolb/dPing/cmd/serve"
	"github.com/ValentinKolb/dPing/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dping",
		Short: "TCP ping-pong exchange",
		Long: fmt.Sprintf(`dPing (v%s)

A TCP server and a set of clients exchanging PING and PONG payloads over
persistent connections. The server identifies every client by the port
of its connection.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dPing",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dPing v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(run.RunCmd)
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(connect.ConnectCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupExchangeFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
