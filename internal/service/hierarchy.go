package service

import (
	"context"
	"sync"

	"github.com/jask/moneywiz-analytics/internal/database/repository"
	"github.com/jask/moneywiz-analytics/internal/logger"
)

// CategoryLookup fetches a single category row; nil means not found.
type CategoryLookup interface {
	Get(ctx context.Context, id int64) (*repository.Category, error)
}

type categoryNode struct {
	name   string
	parent *int64
}

// HierarchyResolver walks parent links from a category up to its root.
// Results are cached until ClearCache.
type HierarchyResolver struct {
	store CategoryLookup

	mu          sync.Mutex
	nodes       map[int64]categoryNode
	hierarchies map[int64][]string
}

func NewHierarchyResolver(store CategoryLookup) *HierarchyResolver {
	return &HierarchyResolver{
		store:       store,
		nodes:       map[int64]categoryNode{},
		hierarchies: map[int64][]string{},
	}
}

// Resolve returns category names ordered root to leaf. A parent chain that
// loops back on itself is cut at the first repeated id. Lookup failures stop
// the walk and return what was resolved so far.
func (h *HierarchyResolver) Resolve(ctx context.Context, id int64) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cached, ok := h.hierarchies[id]; ok {
		return append([]string(nil), cached...)
	}

	var names []string
	visited := map[int64]bool{}
	current := id
	complete := true
	for {
		if visited[current] {
			lg := logger.FromContext(ctx)
			lg.Warn().Int64("category_id", id).Int64("repeated_id", current).Msg("category hierarchy has a cycle")
			break
		}
		visited[current] = true

		node, found, err := h.node(ctx, current)
		if err != nil {
			lg := logger.FromContext(ctx)
			lg.Warn().Err(err).Int64("category_id", current).Msg("category lookup failed")
			complete = false
			break
		}
		if !found {
			break
		}
		if node.name != "" {
			names = append([]string{node.name}, names...)
		}
		if node.parent == nil {
			break
		}
		current = *node.parent
	}

	if complete {
		h.hierarchies[id] = names
	}
	return append([]string(nil), names...)
}

// RootCategoryID returns the top-most ancestor of id. It reports false when the
// chain has a cycle or a lookup fails.
func (h *HierarchyResolver) RootCategoryID(ctx context.Context, id int64) (int64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	visited := map[int64]bool{}
	current := id
	for !visited[current] {
		visited[current] = true
		node, found, err := h.node(ctx, current)
		if err != nil {
			lg := logger.FromContext(ctx)
			lg.Warn().Err(err).Int64("category_id", current).Msg("category lookup failed")
			return 0, false
		}
		if !found || node.parent == nil {
			return current, true
		}
		current = *node.parent
	}
	lg := logger.FromContext(ctx)
	lg.Warn().Int64("category_id", id).Msg("category hierarchy has a cycle")
	return 0, false
}

// ClearCache drops every cached hierarchy and parent link.
func (h *HierarchyResolver) ClearCache() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nodes = map[int64]categoryNode{}
	h.hierarchies = map[int64][]string{}
}

// node must be called with mu held. Missing categories are not cached.
func (h *HierarchyResolver) node(ctx context.Context, id int64) (categoryNode, bool, error) {
	if n, ok := h.nodes[id]; ok {
		return n, true, nil
	}
	c, err := h.store.Get(ctx, id)
	if err != nil {
		return categoryNode{}, false, err
	}
	if c == nil {
		return categoryNode{}, false, nil
	}
	n := categoryNode{name: c.Name, parent: c.ParentID}
	h.nodes[id] = n
	return n, true, nil
}
