package testdata

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jask/moneywiz-analytics/internal/database"
	"github.com/jask/moneywiz-analytics/internal/database/repository"
)

// Builder writes MoneyWiz-shaped rows into a migrated database.
type Builder struct {
	Accounts     *repository.AccountRepo
	Categories   *repository.CategoryRepo
	Payees       *repository.PayeeRepo
	Tags         *repository.TagRepo
	Transactions *repository.TransactionRepo
	Assignments  *repository.AssignmentRepo

	seq int
}

// NewBuilder writes through db, which may be a transaction.
func NewBuilder(db repository.DBTX) *Builder {
	return &Builder{
		Accounts:     repository.NewAccountRepo(db),
		Categories:   repository.NewCategoryRepo(db),
		Payees:       repository.NewPayeeRepo(db),
		Tags:         repository.NewTagRepo(db),
		Transactions: repository.NewTransactionRepo(db),
		Assignments:  repository.NewAssignmentRepo(db),
	}
}

func gid(kind, name string) string {
	return strings.ToUpper(uuid.NewSHA1(uuid.NameSpaceOID, []byte(kind+":"+name)).String())
}

func (b *Builder) Account(ctx context.Context, entity int, name, currency string, opening float64) (int64, error) {
	return b.Accounts.Insert(ctx, repository.Account{
		GID:            gid("account", name),
		Entity:         entity,
		Name:           name,
		Currency:       currency,
		OpeningBalance: decimal.NewFromFloat(opening),
	})
}

// Category inserts a category under parent (0 for a root).
func (b *Builder) Category(ctx context.Context, name string, parent int64) (int64, error) {
	c := repository.Category{GID: gid("category", fmt.Sprintf("%d/%s", parent, name)), Name: name}
	if parent != 0 {
		c.ParentID = &parent
	}
	return b.Categories.Insert(ctx, c)
}

func (b *Builder) Payee(ctx context.Context, name string) (int64, error) {
	return b.Payees.Insert(ctx, repository.Payee{Name: name})
}

func (b *Builder) Tag(ctx context.Context, name string) (int64, error) {
	return b.Tags.Insert(ctx, repository.Tag{Name: name})
}

// Tx describes a transaction row for Transaction.
type Tx struct {
	Entity      int
	AccountID   int64
	PayeeID     int64
	Amount      float64
	Date        time.Time
	Description string
	CategoryID  int64
	TagIDs      []int64

	OriginalAmount   float64
	OriginalCurrency string
}

// Transaction inserts a transaction with its optional category assignment and tags.
func (b *Builder) Transaction(ctx context.Context, in Tx) (int64, error) {
	b.seq++
	t := repository.Transaction{
		GID:         gid("transaction", fmt.Sprintf("%d", b.seq)),
		Entity:      in.Entity,
		Amount:      decimal.NewFromFloat(in.Amount),
		Date:        in.Date,
		Description: in.Description,
	}
	if in.AccountID != 0 {
		t.AccountID = &in.AccountID
	}
	if in.PayeeID != 0 {
		t.PayeeID = &in.PayeeID
	}
	if in.OriginalCurrency != "" {
		t.OriginalAmount = decimal.NewNullDecimal(decimal.NewFromFloat(in.OriginalAmount))
		t.OriginalCurrency = in.OriginalCurrency
	}
	id, err := b.Transactions.Insert(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	if in.CategoryID != 0 {
		if _, err := b.Assignments.Insert(ctx, id, in.CategoryID); err != nil {
			return 0, fmt.Errorf("assign category: %w", err)
		}
	}
	for _, tag := range in.TagIDs {
		if err := b.Tags.Attach(ctx, id, tag); err != nil {
			return 0, fmt.Errorf("attach tag: %w", err)
		}
	}
	return id, nil
}

// Create migrates a fresh database at path and fills it with demo data ending
// at now in a single transaction, so a failed seed leaves only the schema.
func Create(ctx context.Context, path string, now time.Time) error {
	db, err := database.Open(path, false)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.RunMigrationsWithDB(db); err != nil {
		return fmt.Errorf("migrate %s: %w", path, err)
	}
	return database.WithTx(db, func(tx *sql.Tx) error {
		return Seed(ctx, NewBuilder(tx), now)
	})
}

type seedCategory struct {
	Name   string
	Parent string
}

var seedCategories = []seedCategory{
	{Name: "Income"},
	{Name: "Salary", Parent: "Income"},
	{Name: "Freelance", Parent: "Income"},
	{Name: "Food"},
	{Name: "Groceries", Parent: "Food"},
	{Name: "Dining Out", Parent: "Food"},
	{Name: "Housing"},
	{Name: "Rent", Parent: "Housing"},
	{Name: "Utilities", Parent: "Housing"},
	{Name: "Transport"},
	{Name: "Entertainment"},
	{Name: "Shopping"},
	{Name: "Subscriptions"},
	{Name: "Transfers"},
}

// Seed writes six months of deterministic demo activity ending at now.
func Seed(ctx context.Context, b *Builder, now time.Time) error {
	rng := rand.New(rand.NewSource(42))

	checking, err := b.Account(ctx, database.EntityBankChequeAccount, "Everyday Checking", "USD", 1500)
	if err != nil {
		return err
	}
	savings, err := b.Account(ctx, database.EntityBankSavingAccount, "Rainy Day Savings", "USD", 5000)
	if err != nil {
		return err
	}
	colones, err := b.Account(ctx, database.EntityBankChequeAccount, "Cuenta Colones", "CRC", 250000)
	if err != nil {
		return err
	}
	if _, err := b.Account(ctx, database.EntityCreditCardAccount, "Travel Card", "USD", 0); err != nil {
		return err
	}

	cats := map[string]int64{}
	for _, c := range seedCategories {
		id, err := b.Category(ctx, c.Name, cats[c.Parent])
		if err != nil {
			return fmt.Errorf("seed category %s: %w", c.Name, err)
		}
		cats[c.Name] = id
	}

	payees := map[string]int64{}
	for _, name := range []string{"Acme Corp", "Fresh Market", "Trattoria Roma", "City Power", "Landlord LLC", "Metro Transit", "StreamFlix", "Cinema Plaza"} {
		id, err := b.Payee(ctx, name)
		if err != nil {
			return err
		}
		payees[name] = id
	}
	essentials, err := b.Tag(ctx, "essentials")
	if err != nil {
		return err
	}

	type recurring struct {
		entity   int
		account  int64
		payee    string
		category string
		desc     string
		base     float64
		jitter   float64
		day      int
		tags     []int64
	}
	monthly := []recurring{
		{database.EntityDeposit, checking, "Acme Corp", "Salary", "Monthly salary", 4200, 0, 1, nil},
		{database.EntityWithdraw, checking, "Landlord LLC", "Rent", "Rent payment", -1400, 0, 2, []int64{essentials}},
		{database.EntityWithdraw, checking, "City Power", "Utilities", "Electricity bill", -90, 25, 10, []int64{essentials}},
		{database.EntityWithdraw, checking, "StreamFlix", "Subscriptions", "Streaming plan", -15.99, 0, 12, nil},
		{database.EntityWithdraw, checking, "Fresh Market", "Groceries", "Weekly groceries", -110, 40, 6, []int64{essentials}},
		{database.EntityWithdraw, checking, "Fresh Market", "Groceries", "Weekly groceries", -95, 40, 20, []int64{essentials}},
		{database.EntityWithdraw, checking, "Trattoria Roma", "Dining Out", "Dinner", -60, 30, 14, nil},
		{database.EntityWithdraw, checking, "Metro Transit", "Transport", "Transit pass", -75, 0, 3, nil},
		{database.EntityWithdraw, checking, "Cinema Plaza", "Entertainment", "Movie night", -30, 15, 23, nil},
		{database.EntityWithdraw, colones, "", "Groceries", "Feria del agricultor", -18000, 6000, 16, nil},
	}

	start := time.Date(now.Year(), now.Month(), 1, 12, 0, 0, 0, time.UTC).AddDate(0, -5, 0)
	for m := 0; m < 6; m++ {
		month := start.AddDate(0, m, 0)
		growth := 1 + 0.03*float64(m)
		for _, r := range monthly {
			date := month.AddDate(0, 0, r.day-1)
			if date.After(now) {
				continue
			}
			amount := r.base
			if r.entity == database.EntityWithdraw {
				amount = (r.base - r.jitter*rng.Float64()) * growth
			}
			if _, err := b.Transaction(ctx, Tx{
				Entity:      r.entity,
				AccountID:   r.account,
				PayeeID:     payees[r.payee],
				Amount:      round2(amount),
				Date:        date,
				Description: r.desc,
				CategoryID:  cats[r.category],
				TagIDs:      r.tags,
			}); err != nil {
				return err
			}
		}

		transferDate := month.AddDate(0, 0, 4)
		if transferDate.After(now) {
			continue
		}
		if _, err := b.Transaction(ctx, Tx{Entity: database.EntityTransferOut, AccountID: checking, Amount: -500, Date: transferDate, Description: "To savings", CategoryID: cats["Transfers"]}); err != nil {
			return err
		}
		if _, err := b.Transaction(ctx, Tx{Entity: database.EntityTransferIn, AccountID: savings, Amount: 500, Date: transferDate, Description: "From checking", CategoryID: cats["Transfers"]}); err != nil {
			return err
		}
		if m%2 == 1 {
			if _, err := b.Transaction(ctx, Tx{Entity: database.EntityDeposit, AccountID: checking, Amount: round2(600 + 200*rng.Float64()), Date: month.AddDate(0, 0, 17), Description: "Design contract", CategoryID: cats["Freelance"]}); err != nil {
				return err
			}
		}
	}
	return nil
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
