package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/moneywiz-analytics/internal/database/repository"
	"github.com/jask/moneywiz-analytics/internal/logger"
)

func TestHierarchyResolveRootToLeaf(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	food := f.mustCategory(t, "Food", 0)
	groceries := f.mustCategory(t, "Groceries", food)
	organic := f.mustCategory(t, "Organic", groceries)

	h := NewHierarchyResolver(repository.NewCategoryRepo(f.db))
	require.Equal(t, []string{"Food", "Groceries", "Organic"}, h.Resolve(ctx, organic))
	require.Equal(t, []string{"Food"}, h.Resolve(ctx, food))
	require.Empty(t, h.Resolve(ctx, 424242))

	root, ok := h.RootCategoryID(ctx, organic)
	require.True(t, ok)
	require.Equal(t, food, root)
}

func TestHierarchyCycleTerminates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeCategories()
	store.add(1, "A", 3)
	store.add(2, "B", 1)
	store.add(3, "C", 2)

	h := NewHierarchyResolver(store)
	got := h.Resolve(ctx, 3)
	require.Equal(t, []string{"A", "B", "C"}, got)

	_, ok := h.RootCategoryID(ctx, 3)
	require.False(t, ok)

	store.add(7, "Self", 7)
	require.Equal(t, []string{"Self"}, h.Resolve(ctx, 7))
}

func TestHierarchyLogsThroughContext(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))
	store := newFakeCategories()
	store.add(1, "A", 2)
	store.add(2, "B", 1)

	_, ok := NewHierarchyResolver(store).RootCategoryID(ctx, 1)
	require.False(t, ok)
	require.Contains(t, buf.String(), "category hierarchy has a cycle")
	require.Contains(t, buf.String(), `"category_id":1`)
}

func TestHierarchyCachesLookups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeCategories()
	store.add(1, "Housing", 0)
	store.add(2, "Rent", 1)

	h := NewHierarchyResolver(store)
	first := h.Resolve(ctx, 2)
	calls := store.gets
	first[0] = "mutated"
	require.Equal(t, []string{"Housing", "Rent"}, h.Resolve(ctx, 2))
	require.Equal(t, calls, store.gets)

	_, ok := h.RootCategoryID(ctx, 2)
	require.True(t, ok)
	require.Equal(t, calls, store.gets)

	h.ClearCache()
	h.Resolve(ctx, 2)
	require.Greater(t, store.gets, calls)
}

func TestHierarchyLookupFailureIsNotCached(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeCategories()
	store.add(1, "Income", 0)
	store.getErr = errStore

	h := NewHierarchyResolver(store)
	require.Empty(t, h.Resolve(ctx, 1))
	_, ok := h.RootCategoryID(ctx, 1)
	require.False(t, ok)

	store.getErr = nil
	require.Equal(t, []string{"Income"}, h.Resolve(ctx, 1))
}
