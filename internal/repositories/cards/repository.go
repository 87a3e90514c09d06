// Package cards stores credit-card records. Every operation is scoped by
// user id; rows belonging to other users behave exactly like missing rows.
package cards

import (
	"context"
	"time"

	"github.com/mpetrov/cardkeeper/internal/models"
)

// Repository describes the storage operations for card records.
type Repository interface {
	// Create inserts a new card and returns its id. A (user, card number)
	// collision yields common.ErrDuplicate.
	Create(ctx context.Context, card *models.Card) (int64, error)

	// List returns all of the user's cards, newest first.
	List(ctx context.Context, userID int64) ([]models.Card, error)

	// Get returns one card, or common.ErrNotFound when the id is absent
	// or owned by someone else.
	Get(ctx context.Context, userID, id int64) (*models.Card, error)

	// Search returns the user's cards whose bank name (case-insensitive)
	// or card number (case-sensitive) contains term, newest first.
	Search(ctx context.Context, userID int64, term string) ([]models.Card, error)

	// Delete removes one card, reporting whether a row was removed.
	Delete(ctx context.Context, userID, id int64) (bool, error)

	// SetBilling stores the billing configuration, the precomputed next
	// bill date, and resets the status to pending. common.ErrNotFound
	// when nothing matched.
	SetBilling(ctx context.Context, userID, id int64, day int, amount float64, graceDays int, nextBill time.Time) error

	// MarkPaid records a completed cycle: the previous next-bill date (nil
	// when billing had no date yet) becomes the last-bill date, nextBill
	// becomes the new due date, and the status flips to paid.
	MarkPaid(ctx context.Context, userID, id int64, lastBill *time.Time, nextBill time.Time) error

	// UpdateAmount changes only the bill amount.
	UpdateAmount(ctx context.Context, userID, id int64, amount float64) error

	// UpdateGraceDays changes only the grace period.
	UpdateGraceDays(ctx context.Context, userID, id int64, days int) error

	// ListPending returns cards with a pending bill scheduled, soonest due
	// first.
	ListPending(ctx context.Context, userID int64) ([]models.Card, error)

	// ListDue returns cards with a pending bill due on or before asOf,
	// soonest due first.
	ListDue(ctx context.Context, userID int64, asOf time.Time) ([]models.Card, error)
}
