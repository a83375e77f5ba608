package main

import (
	"os"

	"github.com/spf13/cobra"
)

var waitOnline bool

var connectCmd = &cobra.Command{
	Use:   "connect <network-id>",
	Short: "Connect to a network by service path or tether GUID",
	Long: `Connect to a network.

The request passes the policy and certificate gates before the daemon is
called. With --wait-online the command only succeeds once the network
reaches a connected state; otherwise it returns as soon as the daemon
accepts the connect call.

Examples:
  connd connect /service/wifi_abc123
  connd connect --wait-online /service/wifi_abc123
  connd connect tether-1f2e3d`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := interruptContext()
		defer cancel()
		err := createApp().RunConnect(ctx, args[0], waitOnline)
		shutdown()
		if err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	connectCmd.Flags().BoolVar(&waitOnline, "wait-online", false, "Wait until the network is connected")
	rootCmd.AddCommand(connectCmd)
}
