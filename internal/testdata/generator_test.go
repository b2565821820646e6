package testdata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/moneywiz-analytics/internal/database"
)

type snapshot struct {
	Accounts     int
	Transactions int
	Total        float64
	FirstGID     string
}

func seeded(t *testing.T, now time.Time) snapshot {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.sqlite")
	require.NoError(t, Create(context.Background(), path, now))

	db, err := database.Open(path, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var s snapshot
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM ZSYNCOBJECT WHERE Z_ENT BETWEEN 10 AND 16`).Scan(&s.Accounts))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(ZAMOUNT1), 0) FROM ZSYNCOBJECT WHERE Z_ENT BETWEEN 37 AND 47`).
		Scan(&s.Transactions, &s.Total))
	require.NoError(t, db.QueryRow(`SELECT ZGID FROM ZSYNCOBJECT ORDER BY Z_PK LIMIT 1`).Scan(&s.FirstGID))
	return s
}

func TestSeedIsDeterministic(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, time.June, 20, 9, 0, 0, 0, time.UTC)

	a := seeded(t, now)
	b := seeded(t, now)
	require.Equal(t, 4, a.Accounts)
	require.Greater(t, a.Transactions, 0)
	require.Equal(t, a.Transactions, b.Transactions)
	require.InDelta(t, a.Total, b.Total, 1e-6)
	require.Equal(t, a.FirstGID, b.FirstGID)
}

func TestGIDStableAndKindScoped(t *testing.T) {
	t.Parallel()
	require.Equal(t, gid("account", "Cash"), gid("account", "Cash"))
	require.NotEqual(t, gid("account", "Cash"), gid("payee", "Cash"))
	require.Len(t, gid("tag", "x"), 36)
}

func TestCreateRollsBackFailedSeed(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "demo.sqlite")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, Create(ctx, path, time.Date(2024, time.June, 20, 9, 0, 0, 0, time.UTC)))

	db, err := database.Open(path, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var rows, entities int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM ZSYNCOBJECT`).Scan(&rows))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM Z_PRIMARYKEY`).Scan(&entities))
	require.Zero(t, rows)
	require.Positive(t, entities)
}
