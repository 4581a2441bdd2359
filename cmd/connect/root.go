package connect

import (
	cmdUtil "github.com/ValentinKolb/dPing/cmd/util"
	"github.com/ValentinKolb/dPing/exchange/common"
	"github.com/spf13/cobra"
)

var (
	connectCmdConfig common.ExchangeConfig
	ConnectCmd       = &cobra.Command{
		Use:   "connect",
		Short: "Start the exchange clients only",
		Long: `Start clients-number clients that connect to a running server at ip:server-port. Client i binds to client-port + i.
Every client sends PING and answers every PONG with the next PING after ping-interval. The command returns once all clients stopped.`,
		SilenceUsage: true,
		PreRunE:      processConfig,
		RunE:         run,
	}
)

// processConfig reads the configuration from the command line flags, environment variables and config file
func processConfig(cmd *cobra.Command, _ []string) (err error) {
	connectCmdConfig, err = cmdUtil.ProcessConfig(cmd)
	return err
}

// run starts the clients
func run(_ *cobra.Command, _ []string) error {
	return cmdUtil.RunExchange(cmdUtil.ModeClients, connectCmdConfig)
}
