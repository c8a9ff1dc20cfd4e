package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("riskgate version %s\n", version)
		fmt.Println("Portfolio risk admission control for correlated trading strategies")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
