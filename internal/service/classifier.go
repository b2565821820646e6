package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jask/moneywiz-analytics/internal/database"
	"github.com/jask/moneywiz-analytics/internal/database/repository"
	"github.com/jask/moneywiz-analytics/internal/logger"
)

// CategoryType is what a category is used for.
type CategoryType string

const (
	CategoryIncome     CategoryType = "income"
	CategoryExpense    CategoryType = "expense"
	CategoryTransfer   CategoryType = "transfer"
	CategoryAdjustment CategoryType = "adjustment"
	CategoryUnknown    CategoryType = "unknown"
)

// Stage records which step of the cascade decided a classification.
type Stage string

const (
	StageMissing  Stage = "missing"
	StageLearned  Stage = "learned_pattern"
	StageEntity   Stage = "transaction_type"
	StageFallback Stage = "fallback"
	StageError    Stage = "error"
)

const (
	learnedMinTransactions = 5
	learnedMinConfidence   = 0.8
	incomeRatio            = 0.8
	expenseRatio           = 0.2
	windowMinTransactions  = 2

	entityMinTransactions = 3
	depositIncomeRatio    = 0.7
	withdrawExpenseRatio  = 0.3
)

// CategoryStore is the read side the classifier needs.
type CategoryStore interface {
	CategoryLookup
	List(ctx context.Context) ([]repository.Category, error)
	UsagePatterns(ctx context.Context, since time.Time, minCount int) ([]repository.CategoryUsage, error)
	EntityUsage(ctx context.Context, categoryID int64) ([]repository.EntityUsage, error)
	CountTransactions(ctx context.Context, categoryID int64) (int, error)
}

// LearnedPattern is the usage summary of one category over the pattern window.
type LearnedPattern struct {
	CategoryID       int64     `json:"category_id"`
	TransactionCount int       `json:"transaction_count"`
	PositiveRatio    float64   `json:"positive_ratio"`
	Confidence       float64   `json:"confidence"`
	AvgAmount        float64   `json:"avg_amount"`
	FirstSeen        time.Time `json:"first_seen"`
	LastSeen         time.Time `json:"last_seen"`
}

// Classification is the outcome for one category.
type Classification struct {
	CategoryID int64           `json:"category_id"`
	Type       CategoryType    `json:"type"`
	Stage      Stage           `json:"stage"`
	Pattern    *LearnedPattern `json:"pattern,omitempty"`
}

// ClassifierOptions tunes pattern learning.
type ClassifierOptions struct {
	PatternTTL   time.Duration
	WindowMonths int
	Now          func() time.Time
}

// CategoryClassifier learns from transaction history whether a category is
// income, expense, transfer or adjustment. Results are cached per category;
// learned patterns are rebuilt wholesale once PatternTTL has passed.
type CategoryClassifier struct {
	store     CategoryStore
	hierarchy *HierarchyResolver
	ttl       time.Duration
	window    int
	now       func() time.Time

	mu        sync.Mutex
	results   map[int64]Classification
	patterns  map[int64]LearnedPattern
	refreshed time.Time
}

func NewCategoryClassifier(store CategoryStore, hierarchy *HierarchyResolver, opts ClassifierOptions) *CategoryClassifier {
	if opts.PatternTTL <= 0 {
		opts.PatternTTL = 24 * time.Hour
	}
	if opts.WindowMonths <= 0 {
		opts.WindowMonths = 12
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CategoryClassifier{
		store:     store,
		hierarchy: hierarchy,
		ttl:       opts.PatternTTL,
		window:    opts.WindowMonths,
		now:       opts.Now,
		results:   map[int64]Classification{},
		patterns:  map[int64]LearnedPattern{},
	}
}

// Hierarchy exposes the resolver shared with enrichment.
func (c *CategoryClassifier) Hierarchy() *HierarchyResolver { return c.hierarchy }

// Classify returns the category's type. It never fails; indeterminate or
// failing lookups yield CategoryUnknown.
func (c *CategoryClassifier) Classify(ctx context.Context, categoryID int64) CategoryType {
	return c.Explain(ctx, categoryID).Type
}

func (c *CategoryClassifier) IsIncome(ctx context.Context, categoryID int64) bool {
	return c.Classify(ctx, categoryID) == CategoryIncome
}

func (c *CategoryClassifier) IsExpense(ctx context.Context, categoryID int64) bool {
	return c.Classify(ctx, categoryID) == CategoryExpense
}

func (c *CategoryClassifier) IsTransfer(ctx context.Context, categoryID int64) bool {
	return c.Classify(ctx, categoryID) == CategoryTransfer
}

// Explain classifies the category and reports which stage decided.
func (c *CategoryClassifier) Explain(ctx context.Context, categoryID int64) Classification {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res, ok := c.results[categoryID]; ok {
		return res
	}

	res := c.classify(ctx, categoryID)
	c.results[categoryID] = res
	lg := logger.FromContext(ctx)
	lg.Debug().Int64("category_id", categoryID).Str("type", string(res.Type)).Str("stage", string(res.Stage)).Msg("category classified")
	return res
}

// classify must be called with mu held.
func (c *CategoryClassifier) classify(ctx context.Context, categoryID int64) Classification {
	res := Classification{CategoryID: categoryID, Type: CategoryUnknown}

	if len(c.hierarchy.Resolve(ctx, categoryID)) == 0 {
		res.Stage = StageMissing
		return res
	}

	c.refreshIfStale(ctx)
	if p, ok := c.patterns[categoryID]; ok {
		pattern := p
		res.Pattern = &pattern
		if t, ok := fromLearnedPattern(p); ok {
			res.Type, res.Stage = t, StageLearned
			return res
		}
	}

	usage, err := c.store.EntityUsage(ctx, categoryID)
	if err != nil {
		lg := logger.FromContext(ctx)
		lg.Warn().Err(err).Int64("category_id", categoryID).Msg("transaction type analysis failed")
		res.Stage = StageError
		return res
	}
	if t, ok := fromEntityUsage(usage); ok {
		res.Type, res.Stage = t, StageEntity
		return res
	}

	n, err := c.store.CountTransactions(ctx, categoryID)
	if err != nil {
		lg := logger.FromContext(ctx)
		lg.Warn().Err(err).Int64("category_id", categoryID).Msg("fallback classification failed")
		res.Stage = StageError
		return res
	}
	res.Stage = StageFallback
	if n > 0 {
		res.Type = CategoryExpense
	}
	return res
}

func fromLearnedPattern(p LearnedPattern) (CategoryType, bool) {
	if p.TransactionCount < learnedMinTransactions || p.Confidence < learnedMinConfidence {
		return "", false
	}
	switch {
	case p.PositiveRatio >= incomeRatio:
		return CategoryIncome, true
	case p.PositiveRatio <= expenseRatio:
		return CategoryExpense, true
	}
	return "", false
}

// fromEntityUsage looks only at the most frequent entity for the category.
func fromEntityUsage(usage []repository.EntityUsage) (CategoryType, bool) {
	if len(usage) == 0 || usage[0].Count < entityMinTransactions {
		return "", false
	}
	top := usage[0]
	switch top.Entity {
	case database.EntityDeposit:
		if top.PositiveRatio > depositIncomeRatio {
			return CategoryIncome, true
		}
	case database.EntityWithdraw:
		if top.PositiveRatio < withdrawExpenseRatio {
			return CategoryExpense, true
		}
	case database.EntityTransferIn, database.EntityTransferOut:
		return CategoryTransfer, true
	case database.EntityReconcile:
		return CategoryAdjustment, true
	}
	return "", false
}

// PatternConfidence scales count/10 (capped at 1) by how one-sided the
// positive ratio is.
func PatternConfidence(count int, positiveRatio float64) float64 {
	conf := math.Min(1, float64(count)/10)
	switch {
	case positiveRatio == 0 || positiveRatio == 1:
	case positiveRatio < 0.1 || positiveRatio > 0.9:
		conf *= 0.9
	case positiveRatio < 0.2 || positiveRatio > 0.8:
		conf *= 0.8
	default:
		conf *= 0.5
	}
	return conf
}

// refreshIfStale must be called with mu held. A failed refresh keeps the
// previous patterns and retries on the next call.
func (c *CategoryClassifier) refreshIfStale(ctx context.Context) {
	now := c.now()
	if !c.refreshed.IsZero() && now.Sub(c.refreshed) < c.ttl {
		return
	}
	usage, err := c.store.UsagePatterns(ctx, now.AddDate(0, -c.window, 0), windowMinTransactions)
	if err != nil {
		lg := logger.FromContext(ctx)
		lg.Error().Err(err).Msg("failed to learn category patterns")
		return
	}
	patterns := make(map[int64]LearnedPattern, len(usage))
	for _, u := range usage {
		patterns[u.CategoryID] = LearnedPattern{
			CategoryID:       u.CategoryID,
			TransactionCount: u.Count,
			PositiveRatio:    u.PositiveRatio,
			Confidence:       PatternConfidence(u.Count, u.PositiveRatio),
			AvgAmount:        u.AvgAbsAmount,
			FirstSeen:        u.FirstSeen,
			LastSeen:         u.LastSeen,
		}
	}
	c.patterns = patterns
	c.refreshed = now
	lg := logger.FromContext(ctx)
	lg.Info().Int("categories", len(patterns)).Int("window_months", c.window).Msg("learned category patterns")
}

// ClearCache forgets every classification, learned pattern and hierarchy.
func (c *CategoryClassifier) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = map[int64]Classification{}
	c.patterns = map[int64]LearnedPattern{}
	c.refreshed = time.Time{}
	c.hierarchy.ClearCache()
}

// PatternStats summarises the learned patterns.
type PatternStats struct {
	TotalLearned          int       `json:"total_learned_categories"`
	LastUpdated           time.Time `json:"last_updated"`
	HighConfidenceIncome  int       `json:"high_confidence_income"`
	HighConfidenceExpense int       `json:"high_confidence_expense"`
	MixedUsage            int       `json:"mixed_usage"`
	LowConfidence         int       `json:"low_confidence"`
	AvgConfidence         float64   `json:"avg_confidence_score"`
	AvgTransactionCount   float64   `json:"avg_transaction_count"`
}

// LearnedPatternStats refreshes patterns when stale and summarises them.
func (c *CategoryClassifier) LearnedPatternStats(ctx context.Context) PatternStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshIfStale(ctx)

	stats := PatternStats{TotalLearned: len(c.patterns), LastUpdated: c.refreshed}
	if len(c.patterns) == 0 {
		return stats
	}
	var confidence, transactions float64
	for _, p := range c.patterns {
		confidence += p.Confidence
		transactions += float64(p.TransactionCount)
		switch {
		case p.Confidence < learnedMinConfidence:
			stats.LowConfidence++
		case p.PositiveRatio >= incomeRatio:
			stats.HighConfidenceIncome++
		case p.PositiveRatio <= expenseRatio:
			stats.HighConfidenceExpense++
		default:
			stats.MixedUsage++
		}
	}
	stats.AvgConfidence = confidence / float64(len(c.patterns))
	stats.AvgTransactionCount = transactions / float64(len(c.patterns))
	return stats
}

// CategoryInfo is one category with its classification.
type CategoryInfo struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Hierarchy []string     `json:"hierarchy"`
	Type      CategoryType `json:"type"`
	Stage     Stage        `json:"stage"`
}

// CategoryAnalysis buckets every named category by type.
type CategoryAnalysis struct {
	Total      int                             `json:"total_categories"`
	ByType     map[CategoryType][]CategoryInfo `json:"by_type"`
	TypeCounts map[CategoryType]int            `json:"type_counts"`
}

// AnalyzeAll classifies every category that has a name.
func (c *CategoryClassifier) AnalyzeAll(ctx context.Context) (CategoryAnalysis, error) {
	cats, err := c.store.List(ctx)
	if err != nil {
		return CategoryAnalysis{}, fmt.Errorf("list categories: %w", err)
	}
	out := CategoryAnalysis{ByType: map[CategoryType][]CategoryInfo{}, TypeCounts: map[CategoryType]int{}}
	for _, t := range []CategoryType{CategoryIncome, CategoryExpense, CategoryTransfer, CategoryAdjustment, CategoryUnknown} {
		out.TypeCounts[t] = 0
	}
	for _, cat := range cats {
		if cat.Name == "" {
			continue
		}
		res := c.Explain(ctx, cat.ID)
		info := CategoryInfo{
			ID:        cat.ID,
			Name:      cat.Name,
			Hierarchy: c.hierarchy.Resolve(ctx, cat.ID),
			Type:      res.Type,
			Stage:     res.Stage,
		}
		out.ByType[res.Type] = append(out.ByType[res.Type], info)
		out.TypeCounts[res.Type]++
		out.Total++
	}
	return out, nil
}
