package main

import (
	"github.com/spf13/cobra"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "realtime-assistant",
		Short:         "Realtime voice assistant gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: <root>/conf.yaml over built-in defaults)")

	root.AddCommand(newServeCmd(), newToolsCmd(), newChatCmd())
	return root
}
