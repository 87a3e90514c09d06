// Package sessions stores in-progress form sessions, at most one per user.
package sessions

import (
	"context"
	"time"

	"github.com/mpetrov/cardkeeper/internal/models"
)

// Repository describes the storage operations for form sessions.
type Repository interface {
	// Save upserts the user's session, replacing any previous one, and
	// stamps last_activity with the current time.
	Save(ctx context.Context, session *models.Session) error

	// Get returns the user's session, or common.ErrNotFound.
	Get(ctx context.Context, userID int64) (*models.Session, error)

	// Delete removes the user's session. Deleting an absent session is
	// not an error.
	Delete(ctx context.Context, userID int64) error

	// DeleteIdleBefore removes sessions whose last activity precedes
	// cutoff and returns how many were removed. Used by the background
	// sweeper to drop abandoned forms.
	DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
