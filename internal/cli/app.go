package cli

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jask/moneywiz-analytics/internal/config"
	"github.com/jask/moneywiz-analytics/internal/database"
	"github.com/jask/moneywiz-analytics/internal/database/repository"
	"github.com/jask/moneywiz-analytics/internal/logger"
	"github.com/jask/moneywiz-analytics/internal/money"
	"github.com/jask/moneywiz-analytics/internal/report"
	"github.com/jask/moneywiz-analytics/internal/service"
)

// app holds everything a command needs once the database is open.
type app struct {
	opts *globalOptions
	out  io.Writer
	now  func() time.Time

	cfg     config.Config
	log     zerolog.Logger
	db      *sql.DB
	printer *report.Printer

	classifier   *service.CategoryClassifier
	accounts     *service.AccountService
	transactions *service.TransactionService
	trends       *service.TrendService
	savings      *service.SavingsService
}

func (a *app) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

// setup loads configuration and the logger without touching the database.
func (a *app) setup() error {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}
	if a.opts.logLevel != "" {
		cfg.Log.Level = a.opts.logLevel
	}
	if a.opts.dbPath != "" {
		cfg.Database.Path = a.opts.dbPath
	}
	a.cfg = cfg
	a.log = logger.WithFields(logger.New(cfg.Log.Level, cfg.Log.Format), map[string]interface{}{
		"run_id": uuid.NewString(),
	})
	a.printer = report.New(a.out, a.opts.json)
	return nil
}

func (a *app) open() error {
	if a.db != nil {
		return nil
	}
	if err := a.setup(); err != nil {
		return err
	}
	if a.cfg.Database.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("locate home directory for auto-detection: %w (pass --db or set MONEYWIZ_DB_PATH)", err)
		}
		if err := a.cfg.ResolveDatabase(home); err != nil {
			return fmt.Errorf("%w (pass --db or set MONEYWIZ_DB_PATH)", err)
		}
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	db, err := database.Open(a.cfg.Database.Path, a.cfg.Database.ReadOnly)
	if err != nil {
		return err
	}
	a.db = db
	a.log.Debug().Str("path", a.cfg.Database.Path).Bool("read_only", a.cfg.Database.ReadOnly).Msg("database opened")
	return a.wire()
}

func (a *app) wire() error {
	loc := a.cfg.Location()
	categories := repository.NewCategoryRepo(a.db)
	accounts := repository.NewAccountRepo(a.db)

	hierarchy := service.NewHierarchyResolver(categories)
	a.classifier = service.NewCategoryClassifier(categories, hierarchy, service.ClassifierOptions{
		PatternTTL:   a.cfg.Analysis.PatternTTL,
		WindowMonths: a.cfg.Analysis.PatternWindowMonths,
		Now:          a.clock,
	})
	enricher, err := service.NewEnricher(repository.NewAssignmentRepo(a.db), repository.NewPayeeRepo(a.db),
		accounts, repository.NewTagRepo(a.db), hierarchy, service.EnricherOptions{
			CacheSize:        a.cfg.Cache.Size,
			FallbackCurrency: a.cfg.Analysis.DefaultCurrency,
		})
	if err != nil {
		return fmt.Errorf("enricher: %w", err)
	}
	income := service.NewIncomeClassifier(a.classifier, service.IncomeOptions{
		Ceiling:          decimal.NewFromFloat(a.cfg.Analysis.IncomeCeiling),
		SmallThreshold:   decimal.NewFromFloat(a.cfg.Analysis.SmallIncomeThreshold),
		Rates:            money.ReferenceRatesFrom(a.cfg.Analysis.ReferenceRates),
		FallbackCurrency: a.cfg.Analysis.DefaultCurrency,
	})

	a.accounts = service.NewAccountService(accounts)
	a.transactions = service.NewTransactionService(repository.NewTransactionRepo(a.db), accounts, enricher, income, loc)
	a.trends = service.NewTrendService(a.transactions, service.NewCategorySearch(categories), service.TrendOptions{
		Workers:  a.cfg.Analysis.Workers,
		Location: loc,
		Now:      a.clock,
	})
	a.savings = service.NewSavingsService(a.transactions, loc)
	return nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn().Err(err).Msg("close database")
	}
	a.db = nil
}
