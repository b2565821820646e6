// Package cli is the moneywiz-analytics command tree.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jask/moneywiz-analytics/internal/logger"
)

type globalOptions struct {
	configPath string
	dbPath     string
	json       bool
	logLevel   string
}

// NewRootCmd builds the command tree writing reports to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	return newRootCmd(&app{opts: &globalOptions{}, out: out})
}

func newRootCmd(a *app) *cobra.Command {
	opts := a.opts

	root := &cobra.Command{
		Use:   "moneywiz-analytics",
		Short: "Read-only analytics over a MoneyWiz database",
		Long: `Analyse a MoneyWiz sqlite database without modifying it: account balances,
transactions, expense breakdowns, income vs expenses, spending trends and
savings recommendations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default $HOME/.config/moneywiz-analytics/config.toml)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "MoneyWiz sqlite file (overrides config and auto-detection)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Print JSON instead of styled text")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newAccountsCmd(a),
		newTransactionsCmd(a),
		newExpensesCmd(a),
		newIncomeCmd(a),
		newTrendsCmd(a),
		newSavingsCmd(a),
		newCategoriesCmd(a),
		newFixtureCmd(a),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCmd(os.Stdout).ExecuteContext(context.Background())
}

// withApp opens the database and services before run and closes them after,
// whether run fails or not. The command context carries the run logger.
func withApp(a *app, run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.close()
		if err := a.open(); err != nil {
			return err
		}
		cmd.SetContext(logger.WithContext(cmd.Context(), a.log))
		return run(cmd, args)
	}
}
