package run

import (
	cmdUtil "github.com/ValentinKolb/dPing/cmd/util"
	"github.com/ValentinKolb/dPing/exchange/common"
	"github.com/spf13/cobra"
)

var (
	runCmdConfig common.ExchangeConfig
	RunCmd       = &cobra.Command{
		Use:   "run",
		Short: "Start the server and the clients in one process",
		Long: `Start the exchange server and, once it listens, clients-number clients connecting to it.
The status of the server and of every client is logged every status-interval.`,
		SilenceUsage: true,
		PreRunE:      processConfig,
		RunE:         run,
	}
)

// processConfig reads the configuration from the command line flags, environment variables and config file
func processConfig(cmd *cobra.Command, _ []string) (err error) {
	runCmdConfig, err = cmdUtil.ProcessConfig(cmd)
	return err
}

// run starts the server and the clients
func run(_ *cobra.Command, _ []string) error {
	return cmdUtil.RunExchange(cmdUtil.ModeAll, runCmdConfig)
}
