package main

import (
	"os"

	"github.com/spf13/cobra"
)

var disconnectCmd = &cobra.Command{
	Use:   "disconnect <network-id>",
	Short: "Disconnect a network by service path or tether GUID",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := interruptContext()
		defer cancel()
		err := createApp().RunDisconnect(ctx, args[0])
		shutdown()
		if err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(disconnectCmd)
}
