package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/jask/moneywiz-analytics/internal/database/repository"
)

type CategoryLister interface {
	List(ctx context.Context) ([]repository.Category, error)
}

// CategorySearch suggests category names close to a mistyped filter.
type CategorySearch struct {
	store CategoryLister
}

func NewCategorySearch(store CategoryLister) *CategorySearch {
	return &CategorySearch{store: store}
}

type suggestion struct {
	name  string
	score float64
}

// Suggest returns up to limit category names resembling query, best first.
// Names containing the query rank ahead of edit-distance matches.
func (s *CategorySearch) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return nil, nil
	}
	cats, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	seen := map[string]bool{}
	var found []suggestion
	for _, c := range cats {
		name := strings.TrimSpace(c.Name)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		if score, ok := similarity(q, strings.ToLower(name)); ok {
			found = append(found, suggestion{name: name, score: score})
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].score != found[j].score {
			return found[i].score > found[j].score
		}
		return found[i].name < found[j].name
	})

	out := make([]string, 0, limit)
	for _, f := range found {
		if len(out) == limit {
			break
		}
		out = append(out, f.name)
	}
	return out, nil
}

// similarity scores 1 for containment either way, otherwise one minus the
// normalised edit distance. Scores below 0.6 are not a match.
func similarity(query, name string) (float64, bool) {
	if strings.Contains(name, query) || strings.Contains(query, name) {
		return 1, true
	}
	maxLen := utf8.RuneCountInString(query)
	if n := utf8.RuneCountInString(name); n > maxLen {
		maxLen = n
	}
	score := 1 - float64(levenshtein.ComputeDistance(query, name))/float64(maxLen)
	return score, score >= 0.6
}
