package serve

import (
	cmdUtil "github.com/ValentinKolb/dPing/cmd/util"
	"github.com/ValentinKolb/dPing/exchange/common"
	"github.com/spf13/cobra"
)

var (
	serveCmdConfig common.ExchangeConfig
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the exchange server only",
		Long: `Start only the exchange server. It answers every PING of a connected client with PONG until it is stopped (SIGINT / SIGTERM).
The configuration can be set via command line flags, environment variables or the JSON config file. The format of the environment variables is DPING_<flag> (e.g. DPING_SERVER_PORT=31490)`,
		SilenceUsage: true,
		PreRunE:      processConfig,
		RunE:         run,
	}
)

// processConfig reads the configuration from the command line flags, environment variables and config file
func processConfig(cmd *cobra.Command, _ []string) (err error) {
	serveCmdConfig, err = cmdUtil.ProcessConfig(cmd)
	return err
}

// run starts the server
func run(_ *cobra.Command, _ []string) error {
	return cmdUtil.RunExchange(cmdUtil.ModeServer, serveCmdConfig)
}
