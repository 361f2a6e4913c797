package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Automated FX trend-following trader",
	Long: `Trader scans a fixed list of FX pairs on a fixed interval and places
bracket orders (entry, stop, target) when the trend, volatility and
moving-average gates all pass.

It provides tools for:
  - Running the trader against OANDA, live or on a paper book
  - Generating and validating configuration files
  - Querying the bracket and equity journal

Complete documentation is available at https://github.com/rustyeddy/atlas`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
