package cmd

import (
	"fmt"

	"github.com/rustyeddy/atlas/config"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the trader CLI and its strategy parameter set.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "trader version %s (strategy %s)\n", version, config.StrategyVersion)
		fmt.Fprintln(cmd.OutOrStdout(), "https://github.com/rustyeddy/atlas")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
