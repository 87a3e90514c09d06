package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mpetrov/cardkeeper/internal/common"
	"github.com/mpetrov/cardkeeper/internal/dbx"
	"github.com/mpetrov/cardkeeper/internal/models"
)

const timeLayout = time.RFC3339

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save upserts the session keyed by user id.
func (r *SQLiteRepository) Save(ctx context.Context, session *models.Session) error {
	query := `INSERT INTO user_sessions (user_id, current_state, form_data, last_activity)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET current_state = excluded.current_state,
			form_data = excluded.form_data,
			last_activity = excluded.last_activity`

	_, err := r.db.ExecContext(ctx, query,
		session.UserID, string(session.State), session.Scratch,
		time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Get returns the user's session.
func (r *SQLiteRepository) Get(ctx context.Context, userID int64) (*models.Session, error) {
	query := `SELECT user_id, current_state, form_data, last_activity FROM user_sessions
		WHERE user_id = ?`

	var (
		s            models.Session
		lastActivity string
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.UserID, &s.State, &s.Scratch, &lastActivity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if s.LastActivity, err = time.Parse(timeLayout, lastActivity); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &s, nil
}

// Delete removes the user's session if present.
func (r *SQLiteRepository) Delete(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteIdleBefore removes sessions idle since before cutoff.
func (r *SQLiteRepository) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE last_activity < ?`,
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
