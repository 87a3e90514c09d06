package sessions

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrov/cardkeeper/internal/common"
	"github.com/mpetrov/cardkeeper/internal/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE user_sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL UNIQUE,
    current_state TEXT NOT NULL DEFAULT 'idle',
    form_data TEXT NOT NULL DEFAULT '{}',
    last_activity TEXT NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func TestSave_InsertThenUpdate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, &models.Session{
		UserID:  1,
		State:   models.StateAwaitingBankName,
		Scratch: `{}`,
	}))
	require.NoError(t, r.Save(ctx, &models.Session{
		UserID:  1,
		State:   models.StateIdle,
		Scratch: `{"bank_name":"Chase"}`,
	}))

	// The second save replaced the row instead of adding one.
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM user_sessions`).Scan(&count))
	assert.Equal(t, 1, count)

	got, err := r.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StateIdle, got.State)
	assert.Equal(t, `{"bank_name":"Chase"}`, got.Scratch)
	assert.False(t, got.LastActivity.IsZero())
}

func TestGet_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.Get(context.Background(), 42)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete_Idempotent(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, &models.Session{UserID: 1, State: models.StateIdle, Scratch: `{}`}))

	require.NoError(t, r.Delete(ctx, 1))
	_, err := r.Get(ctx, 1)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Deleting an absent session is not an error.
	require.NoError(t, r.Delete(ctx, 1))
}

func TestDeleteIdleBefore(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	stale := time.Now().UTC().Add(-72 * time.Hour).Format(time.RFC3339)
	for _, id := range []int64{10, 11} {
		_, err := db.Exec(`INSERT INTO user_sessions (user_id, current_state, form_data, last_activity)
			VALUES (?, 'idle', '{}', ?)`, id, stale)
		require.NoError(t, err)
	}
	require.NoError(t, r.Save(ctx, &models.Session{UserID: 12, State: models.StateIdle, Scratch: `{}`}))

	n, err := r.DeleteIdleBefore(ctx, time.Now().UTC().Add(-48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Only the fresh session survives.
	_, err = r.Get(ctx, 10)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = r.Get(ctx, 12)
	assert.NoError(t, err)
}
