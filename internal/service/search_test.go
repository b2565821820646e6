package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategorySearchSuggest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeCategories()
	store.add(1, "Groceries", 0)
	store.add(2, "Dining Out", 0)
	store.add(3, "Rent", 0)
	store.add(4, "Restaurants", 0)
	store.add(5, "", 0)
	store.add(6, "groceries", 0)

	s := NewCategorySearch(store)

	got, err := s.Suggest(ctx, "Grocerys", 3)
	require.NoError(t, err)
	require.Equal(t, []string{"Groceries"}, got)

	got, err = s.Suggest(ctx, "rest", 3)
	require.NoError(t, err)
	require.Equal(t, []string{"Restaurants", "Rent"}, got)

	got, err = s.Suggest(ctx, "Rnet", 3)
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = s.Suggest(ctx, "dining", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"Dining Out"}, got)

	got, err = s.Suggest(ctx, "  ", 3)
	require.NoError(t, err)
	require.Empty(t, got)
}
