// Package services contains the business logic between the chat surface and
// the repositories: card operations with their billing-calendar rules, and
// the multi-step card-entry form.
package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/mpetrov/cardkeeper/internal/dbx"
	"github.com/mpetrov/cardkeeper/internal/logging"
	"github.com/mpetrov/cardkeeper/internal/models"
	"github.com/mpetrov/cardkeeper/internal/repositories/repomanager"
)

// DefaultGraceDays is the grace period applied when billing is configured
// without an explicit one.
const DefaultGraceDays = 21

// CardService owns card records and the billing-cycle date arithmetic.
type CardService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	log   logging.Logger

	// now is a seam for tests that pin the clock.
	now func() time.Time
}

// NewCardService constructs a CardService over the given database handle.
func NewCardService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *CardService {
	return &CardService{db: db, repos: m, log: log, now: time.Now}
}

// Create commits a completed form as a new card. A (user, number) collision
// returns common.ErrDuplicate.
func (s *CardService) Create(ctx context.Context, userID int64, form *models.FormData) (*models.Card, error) {
	card := &models.Card{
		UserID:     userID,
		Bank:       form.Bank,
		Number:     form.Number,
		Expiry:     form.Expiry,
		CVV:        form.CVV,
		FullNumber: form.FullNumber,
		BillStatus: models.BillStatusPending,
		GraceDays:  DefaultGraceDays,
	}

	id, err := s.repos.Cards(s.db).Create(ctx, card)
	if err != nil {
		return nil, err
	}
	card.ID = id
	s.log.Info(ctx, "card created", "user_id", userID, "card_id", id)
	return card, nil
}

// List returns the user's cards, newest first.
func (s *CardService) List(ctx context.Context, userID int64) ([]models.Card, error) {
	return s.repos.Cards(s.db).List(ctx, userID)
}

// Get returns one of the user's cards or common.ErrNotFound.
func (s *CardService) Get(ctx context.Context, userID, id int64) (*models.Card, error) {
	return s.repos.Cards(s.db).Get(ctx, userID, id)
}

// Search returns the user's cards matching term by bank name or number.
func (s *CardService) Search(ctx context.Context, userID int64, term string) ([]models.Card, error) {
	return s.repos.Cards(s.db).Search(ctx, userID, term)
}

// Delete removes one card, reporting whether it existed.
func (s *CardService) Delete(ctx context.Context, userID, id int64) (bool, error) {
	deleted, err := s.repos.Cards(s.db).Delete(ctx, userID, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Info(ctx, "card deleted", "user_id", userID, "card_id", id)
	}
	return deleted, nil
}

// SetBilling stores the billing configuration. The next bill date is the
// next occurrence of day strictly after today: this month when the day is
// still ahead, otherwise the following month, clamped to the month length.
// The cycle status resets to pending.
func (s *CardService) SetBilling(ctx context.Context, userID, id int64, day int, amount float64, graceDays int) error {
	nextBill := nextBillingDate(day, s.now())
	return s.repos.Cards(s.db).SetBilling(ctx, userID, id, day, amount, graceDays, nextBill)
}

// MarkPaid closes the current billing cycle: the previous next-bill date
// becomes the last-bill date, the new one is exactly one calendar month
// later (month-end overflow clamps, e.g. Jan 31 -> Feb 28), and the status
// flips to paid. Read and write run in one transaction.
func (s *CardService) MarkPaid(ctx context.Context, userID, id int64) (*models.Card, error) {
	var card *models.Card

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Cards(tx)

		c, err := repo.Get(ctx, userID, id)
		if err != nil {
			return err
		}

		base := c.NextBillDate
		if base == nil {
			now := s.now()
			base = &now
		}
		nextBill := addCalendarMonth(*base)

		if err := repo.MarkPaid(ctx, userID, id, c.NextBillDate, nextBill); err != nil {
			return err
		}

		c.LastBillDate = c.NextBillDate
		c.NextBillDate = &nextBill
		c.BillStatus = models.BillStatusPaid
		card = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "bill marked paid", "user_id", userID, "card_id", id)
	return card, nil
}

// UpdateAmount changes only the bill amount.
func (s *CardService) UpdateAmount(ctx context.Context, userID, id int64, amount float64) error {
	return s.repos.Cards(s.db).UpdateAmount(ctx, userID, id, amount)
}

// UpdateGraceDays changes only the payment grace period.
func (s *CardService) UpdateGraceDays(ctx context.Context, userID, id int64, days int) error {
	return s.repos.Cards(s.db).UpdateGraceDays(ctx, userID, id, days)
}

// ListPending returns cards with a scheduled, unpaid bill, soonest first.
func (s *CardService) ListPending(ctx context.Context, userID int64) ([]models.Card, error) {
	return s.repos.Cards(s.db).ListPending(ctx, userID)
}

// ListDue returns cards whose pending bill is due today or earlier.
func (s *CardService) ListDue(ctx context.Context, userID int64) ([]models.Card, error) {
	return s.repos.Cards(s.db).ListDue(ctx, userID, s.now())
}
