package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/moneywiz-analytics/internal/database"
	"github.com/jask/moneywiz-analytics/internal/database/repository"
	"github.com/jask/moneywiz-analytics/internal/testdata"
)

var errStore = errors.New("store unavailable")

type fixture struct {
	db *sql.DB
	b  *testdata.Builder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "moneywiz.sqlite")
	require.NoError(t, database.RunMigrations(dbPath))
	db, err := database.Open(dbPath, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return fixture{db: db, b: testdata.NewBuilder(db)}
}

func (f fixture) classifier(now time.Time) *CategoryClassifier {
	cats := repository.NewCategoryRepo(f.db)
	return NewCategoryClassifier(cats, NewHierarchyResolver(cats),
		ClassifierOptions{Now: func() time.Time { return now }})
}

func (f fixture) enricher(t *testing.T, h *HierarchyResolver) *Enricher {
	t.Helper()
	e, err := NewEnricher(repository.NewAssignmentRepo(f.db), repository.NewPayeeRepo(f.db),
		repository.NewAccountRepo(f.db), repository.NewTagRepo(f.db), h,
		EnricherOptions{CacheSize: 16, FallbackCurrency: "USD"})
	require.NoError(t, err)
	return e
}

func (f fixture) mustCategory(t *testing.T, name string, parent int64) int64 {
	t.Helper()
	id, err := f.b.Category(context.Background(), name, parent)
	require.NoError(t, err)
	return id
}

func (f fixture) mustAccount(t *testing.T, entity int, name, currency string, opening float64) int64 {
	t.Helper()
	id, err := f.b.Account(context.Background(), entity, name, currency, opening)
	require.NoError(t, err)
	return id
}

func (f fixture) mustTx(t *testing.T, tx testdata.Tx) int64 {
	t.Helper()
	id, err := f.b.Transaction(context.Background(), tx)
	require.NoError(t, err)
	return id
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// fakeCategories is an in-memory CategoryStore with call counting and
// injectable failures.
type fakeCategories struct {
	cats      map[int64]repository.Category
	usage     []repository.CategoryUsage
	entities  map[int64][]repository.EntityUsage
	counts    map[int64]int
	getErr    error
	usageErr  error
	entityErr error
	countErr  error

	gets        int
	usageCalls  int
	entityCalls int
}

func newFakeCategories() *fakeCategories {
	return &fakeCategories{
		cats:     map[int64]repository.Category{},
		entities: map[int64][]repository.EntityUsage{},
		counts:   map[int64]int{},
	}
}

func (f *fakeCategories) add(id int64, name string, parent int64) {
	c := repository.Category{ID: id, Name: name}
	if parent != 0 {
		c.ParentID = &parent
	}
	f.cats[id] = c
}

func (f *fakeCategories) Get(_ context.Context, id int64) (*repository.Category, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.cats[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeCategories) List(context.Context) ([]repository.Category, error) {
	var out []repository.Category
	for _, c := range f.cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCategories) UsagePatterns(context.Context, time.Time, int) ([]repository.CategoryUsage, error) {
	f.usageCalls++
	if f.usageErr != nil {
		return nil, f.usageErr
	}
	return f.usage, nil
}

func (f *fakeCategories) EntityUsage(_ context.Context, id int64) ([]repository.EntityUsage, error) {
	f.entityCalls++
	if f.entityErr != nil {
		return nil, f.entityErr
	}
	return f.entities[id], nil
}

func (f *fakeCategories) CountTransactions(_ context.Context, id int64) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.counts[id], nil
}

func (f fixture) transactionService(t *testing.T, now time.Time) *TransactionService {
	t.Helper()
	classifier := f.classifier(now)
	income := NewIncomeClassifier(classifier, IncomeOptions{FallbackCurrency: "USD"})
	return NewTransactionService(repository.NewTransactionRepo(f.db), repository.NewAccountRepo(f.db),
		f.enricher(t, classifier.Hierarchy()), income, time.UTC)
}
