// Command dashboard serves the stock indicator dashboard and offers offline
// helpers for computing indicators and archiving daily bars.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "dashboard",
		Short:         "Bollinger Bands and RSI dashboard for Vietnamese equities",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default: $DASH_CONFIG_FILE)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newComputeCmd(&configPath))
	root.AddCommand(newArchiveCmd(&configPath))
	return root
}
