package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "orderprint",
	Short: "Print emailed restaurant orders on Star CloudPRNT printers",
	Long: "Polls a mailbox for GrubHub and Square order notifications, turns each one\n" +
		"into a StarPRNT kitchen ticket and serves the tickets to Star printers over\n" +
		"the CloudPRNT pull protocol.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to config YAML (default $ORDERPRINT_CONFIG or ~/.orderprint/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
