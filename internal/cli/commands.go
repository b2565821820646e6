package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jask/moneywiz-analytics/internal/domain"
	"github.com/jask/moneywiz-analytics/internal/service"
	"github.com/jask/moneywiz-analytics/internal/testdata"
)

func newAccountsCmd(a *app) *cobra.Command {
	var (
		includeHidden bool
		accountType   string
	)
	cmd := &cobra.Command{
		Use:   "accounts [id]",
		Short: "List accounts with balances, or show one by id",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(a, func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				acct, err := a.accounts.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printer.Accounts([]service.AccountSummary{acct})
			}
			list, err := a.accounts.List(cmd.Context(), includeHidden, accountType)
			if err != nil {
				return err
			}
			return a.printer.Accounts(list)
		}),
	}
	cmd.Flags().BoolVar(&includeHidden, "hidden", false, "Include archived accounts")
	cmd.Flags().StringVar(&accountType, "type", "", "Only this account type (checking, savings, cash, credit_card, loan, investment, forex)")
	return cmd
}

func newTransactionsCmd(a *app) *cobra.Command {
	var (
		from, to, period string
		accounts         []string
		categories       []string
		types            []string
		limit            int
	)
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List enriched transactions, newest first",
		RunE: withApp(a, func(cmd *cobra.Command, _ []string) error {
			r, err := a.rangeFrom(period, from, to)
			if err != nil {
				return err
			}
			q := service.TransactionQuery{Range: r, AccountIDs: accounts, Categories: categories, Limit: limit}
			for _, raw := range types {
				t, err := domain.ParseTransactionType(raw)
				if err != nil {
					return err
				}
				q.Types = append(q.Types, t)
			}
			txs, err := a.transactions.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			return a.printer.Transactions(txs)
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&period, "period", "", `Period such as "last 30 days" or "this month" (default last 3 months)`)
	cmd.Flags().StringSliceVar(&accounts, "account", nil, "Account id or GID (repeatable)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "Category name at any level (repeatable)")
	cmd.Flags().StringSliceVar(&types, "type", nil, "Transaction type such as withdraw or transfer_in (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum rows, 0 for all")
	return cmd
}

// rangeFrom prefers explicit dates over a period phrase.
func (a *app) rangeFrom(period, from, to string) (domain.DateRange, error) {
	now := a.clock().In(a.cfg.Location())
	if from == "" && to == "" {
		return domain.ParseRange(period, now)
	}
	if period != "" {
		return domain.DateRange{}, errors.New("use either --period or --from/--to")
	}
	if from == "" {
		return domain.DateRange{}, errors.New("--to needs --from")
	}
	if to == "" {
		to = now.Format(time.DateOnly)
	}
	return domain.ParseRange(from+" to "+to, now)
}

func newExpensesCmd(a *app) *cobra.Command {
	var period, groupBy string
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Break down expenses by category, payee or in total",
		RunE: withApp(a, func(cmd *cobra.Command, _ []string) error {
			r, err := domain.ParseRange(period, a.clock().In(a.cfg.Location()))
			if err != nil {
				return err
			}
			g, err := service.ParseGroupBy(groupBy)
			if err != nil {
				return err
			}
			summary, err := a.transactions.ExpenseSummary(cmd.Context(), r, g)
			if err != nil {
				return err
			}
			return a.printer.ExpenseSummary(summary)
		}),
	}
	cmd.Flags().StringVar(&period, "period", "", "Period to analyse (default last 3 months)")
	cmd.Flags().StringVar(&groupBy, "group-by", "category", "category, payee or all")
	return cmd
}

func newIncomeCmd(a *app) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Compare income with expenses and compute savings rates",
		RunE: withApp(a, func(cmd *cobra.Command, _ []string) error {
			r, err := domain.ParseRange(period, a.clock().In(a.cfg.Location()))
			if err != nil {
				return err
			}
			res, err := a.transactions.IncomeVsExpense(cmd.Context(), r)
			if err != nil {
				return err
			}
			return a.printer.IncomeExpense(res)
		}),
	}
	cmd.Flags().StringVar(&period, "period", "", "Period to analyse (default last 3 months)")
	return cmd
}

func newTrendsCmd(a *app) *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Month-over-month spending and income trends",
	}
	cmd.PersistentFlags().IntVar(&months, "months", 6, "Number of months to analyse")

	var category string
	spending := &cobra.Command{
		Use:   "spending",
		Short: "Monthly spending with statistics and projections",
		Args:  cobra.NoArgs,
		RunE: withApp(a, func(cmd *cobra.Command, _ []string) error {
			t, err := a.trends.SpendingTrends(cmd.Context(), months, category)
			if err != nil {
				return err
			}
			return a.printer.SpendingTrend(t)
		}),
	}
	spending.Flags().StringVar(&category, "category", "", "Only categories whose name contains this text")

	var top int
	categories := &cobra.Command{
		Use:   "categories",
		Short: "Trends of the top spending categories",
		Args:  cobra.NoArgs,
		RunE: withApp(a, func(cmd *cobra.Command, _ []string) error {
			t, err := a.trends.CategoryTrends(cmd.Context(), months, top)
			if err != nil {
				return err
			}
			return a.printer.CategoryTrends(t)
		}),
	}
	categories.Flags().IntVar(&top, "top", 5, "Number of categories")

	income := &cobra.Command{
		Use:   "income",
		Short: "Income, expenses and savings rate month by month",
		Args:  cobra.NoArgs,
		RunE: withApp(a, func(cmd *cobra.Command, _ []string) error {
			t, err := a.trends.IncomeExpenseTrends(cmd.Context(), months)
			if err != nil {
				return err
			}
			return a.printer.IncomeExpenseTrend(t)
		}),
	}

	cmd.AddCommand(spending, categories, income)
	return cmd
}

func newSavingsCmd(a *app) *cobra.Command {
	var (
		period string
		target float64
	)
	cmd := &cobra.Command{
		Use:   "savings",
		Short: "Savings recommendations towards a target savings rate",
		RunE: withApp(a, func(cmd *cobra.Command, _ []string) error {
			r, err := domain.ParseRange(period, a.clock().In(a.cfg.Location()))
			if err != nil {
				return err
			}
			rep, err := a.savings.Recommendations(cmd.Context(), r, target)
			if err != nil {
				return err
			}
			return a.printer.Savings(rep)
		}),
	}
	cmd.Flags().StringVar(&period, "period", "", "Period to analyse (default last 3 months)")
	cmd.Flags().Float64Var(&target, "target", 20, "Target savings rate in percent")
	return cmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect how categories are classified",
	}
	classify := &cobra.Command{
		Use:   "classify",
		Short: "Classify every category as income, expense, transfer or adjustment",
		Args:  cobra.NoArgs,
		RunE: withApp(a, func(cmd *cobra.Command, _ []string) error {
			res, err := a.classifier.AnalyzeAll(cmd.Context())
			if err != nil {
				return err
			}
			return a.printer.Classifications(res)
		}),
	}
	patterns := &cobra.Command{
		Use:   "patterns",
		Short: "Summarise the usage patterns learned from history",
		Args:  cobra.NoArgs,
		RunE: withApp(a, func(cmd *cobra.Command, _ []string) error {
			return a.printer.PatternStats(a.classifier.LearnedPatternStats(cmd.Context()))
		}),
	}
	cmd.AddCommand(classify, patterns)
	return cmd
}

func newFixtureCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fixture <path>",
		Short: "Write a demo MoneyWiz-shaped database with six months of activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			path := strings.TrimSpace(args[0])
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := testdata.Create(cmd.Context(), path, a.clock()); err != nil {
				return fmt.Errorf("create fixture: %w", err)
			}
			a.log.Info().Str("path", path).Msg("fixture database written")
			return a.printer.Message("Demo database written to " + path)
		},
	}
}
