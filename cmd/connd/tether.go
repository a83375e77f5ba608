package main

import (
	"os"

	"github.com/spf13/cobra"
)

var tetherGUID string

var tetherCmd = &cobra.Command{
	Use:   "tether",
	Short: "Manage virtual tether networks",
}

var tetherAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a tether network (a GUID is minted unless --guid is given)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := createApp().RunTetherAdd(tetherGUID, args[0])
		shutdown()
		if err != nil {
			os.Exit(1)
		}
	},
}

var tetherRemoveCmd = &cobra.Command{
	Use:   "remove <guid>",
	Short: "Unregister a tether network",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := createApp().RunTetherRemove(args[0])
		shutdown()
		if err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	tetherAddCmd.Flags().StringVar(&tetherGUID, "guid", "", "Use a fixed GUID instead of minting one")
	tetherCmd.AddCommand(tetherAddCmd)
	tetherCmd.AddCommand(tetherRemoveCmd)
	rootCmd.AddCommand(tetherCmd)
}
