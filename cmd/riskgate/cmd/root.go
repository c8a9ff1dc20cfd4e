package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "riskgate",
	Short: "Portfolio risk admission control for correlated trading strategies",
	Long: `Riskgate decides, for every proposed trading position, whether it may be
opened given portfolio-wide risk budgets.

It enforces:
  - Correlated-group concentration limits scaled by account growth phase
  - Volatility-regime tightening of those limits
  - Per-family delta, notional, and strategy caps
  - Capital-preservation circuit breakers with explicit recovery conditions

Every denial carries a specific, auditable reason, and all risk events are
published on a structured stream for alerting and journaling.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
}
