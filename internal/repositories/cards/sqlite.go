package cards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mpetrov/cardkeeper/internal/common"
	"github.com/mpetrov/cardkeeper/internal/dbx"
	"github.com/mpetrov/cardkeeper/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Date and timestamp layouts used for the TEXT columns. Plain dates stay
// comparable with <= in SQL; timestamps order chronologically up to the
// second, with id as the tie-breaker.
const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

const sqliteCardColumns = `id, user_id, bank_name, card_number, expiry_date, cvv, full_card_number,
	billing_day, bill_amount, last_bill_date, next_bill_date, bill_status, grace_period_days,
	created_at, updated_at`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a card. The unique index on (user_id, card_number) turns
// concurrent duplicates into common.ErrDuplicate.
func (r *SQLiteRepository) Create(ctx context.Context, card *models.Card) (int64, error) {
	query := `INSERT INTO credit_cards (user_id, bank_name, card_number, expiry_date, cvv, full_card_number, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC().Format(timeLayout)
	res, err := r.db.ExecContext(ctx, query,
		card.UserID, card.Bank, card.Number, card.Expiry,
		nullString(card.CVV), nullString(card.FullNumber), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, common.ErrDuplicate
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

// List returns the user's cards, newest first.
func (r *SQLiteRepository) List(ctx context.Context, userID int64) ([]models.Card, error) {
	query := `SELECT ` + sqliteCardColumns + ` FROM credit_cards
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`

	return r.queryCards(ctx, query, userID)
}

// Get returns a single card scoped to the user.
func (r *SQLiteRepository) Get(ctx context.Context, userID, id int64) (*models.Card, error) {
	query := `SELECT ` + sqliteCardColumns + ` FROM credit_cards
		WHERE user_id = ? AND id = ?`

	card, err := scanSQLiteCard(r.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return card, nil
}

// Search matches term against the bank name (LIKE, case-insensitive for
// ASCII) and the card number (instr, byte-exact).
func (r *SQLiteRepository) Search(ctx context.Context, userID int64, term string) ([]models.Card, error) {
	query := `SELECT ` + sqliteCardColumns + ` FROM credit_cards
		WHERE user_id = ? AND (bank_name LIKE '%' || ? || '%' ESCAPE '\' OR instr(card_number, ?) > 0)
		ORDER BY created_at DESC, id DESC`

	return r.queryCards(ctx, query, userID, escapeLike(term), term)
}

// Delete removes the card if it belongs to the user.
func (r *SQLiteRepository) Delete(ctx context.Context, userID, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM credit_cards WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// SetBilling stores the billing configuration and resets the cycle to pending.
func (r *SQLiteRepository) SetBilling(ctx context.Context, userID, id int64, day int, amount float64, graceDays int, nextBill time.Time) error {
	query := `UPDATE credit_cards
		SET billing_day = ?, bill_amount = ?, next_bill_date = ?, bill_status = 'pending',
			grace_period_days = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`

	res, err := r.db.ExecContext(ctx, query,
		day, amount, nextBill.Format(dateLayout), graceDays,
		time.Now().UTC().Format(timeLayout), userID, id)
	return oneRowAffected(res, err)
}

// MarkPaid closes the current cycle and schedules the next one.
func (r *SQLiteRepository) MarkPaid(ctx context.Context, userID, id int64, lastBill *time.Time, nextBill time.Time) error {
	query := `UPDATE credit_cards
		SET last_bill_date = ?, next_bill_date = ?, bill_status = 'paid', updated_at = ?
		WHERE user_id = ? AND id = ?`

	var last any
	if lastBill != nil {
		last = lastBill.Format(dateLayout)
	}
	res, err := r.db.ExecContext(ctx, query,
		last, nextBill.Format(dateLayout),
		time.Now().UTC().Format(timeLayout), userID, id)
	return oneRowAffected(res, err)
}

// UpdateAmount changes only the bill amount.
func (r *SQLiteRepository) UpdateAmount(ctx context.Context, userID, id int64, amount float64) error {
	query := `UPDATE credit_cards SET bill_amount = ?, updated_at = ? WHERE user_id = ? AND id = ?`

	res, err := r.db.ExecContext(ctx, query, amount, time.Now().UTC().Format(timeLayout), userID, id)
	return oneRowAffected(res, err)
}

// UpdateGraceDays changes only the grace period.
func (r *SQLiteRepository) UpdateGraceDays(ctx context.Context, userID, id int64, days int) error {
	query := `UPDATE credit_cards SET grace_period_days = ?, updated_at = ? WHERE user_id = ? AND id = ?`

	res, err := r.db.ExecContext(ctx, query, days, time.Now().UTC().Format(timeLayout), userID, id)
	return oneRowAffected(res, err)
}

// ListPending returns cards with a scheduled, unpaid bill.
func (r *SQLiteRepository) ListPending(ctx context.Context, userID int64) ([]models.Card, error) {
	query := `SELECT ` + sqliteCardColumns + ` FROM credit_cards
		WHERE user_id = ? AND bill_status = 'pending' AND next_bill_date IS NOT NULL
		ORDER BY next_bill_date ASC, id ASC`

	return r.queryCards(ctx, query, userID)
}

// ListDue returns pending cards whose bill date is on or before asOf.
func (r *SQLiteRepository) ListDue(ctx context.Context, userID int64, asOf time.Time) ([]models.Card, error) {
	query := `SELECT ` + sqliteCardColumns + ` FROM credit_cards
		WHERE user_id = ? AND bill_status = 'pending' AND next_bill_date IS NOT NULL AND next_bill_date <= ?
		ORDER BY next_bill_date ASC, id ASC`

	return r.queryCards(ctx, query, userID, asOf.Format(dateLayout))
}

func (r *SQLiteRepository) queryCards(ctx context.Context, query string, args ...any) ([]models.Card, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Card
	for rows.Next() {
		card, err := scanSQLiteCard(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteCard(row rowScanner) (*models.Card, error) {
	var (
		c                models.Card
		cvv, fullNumber  sql.NullString
		day              sql.NullInt64
		amount           sql.NullFloat64
		lastBill, next   sql.NullString
		created, updated string
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Bank, &c.Number, &c.Expiry, &cvv, &fullNumber,
		&day, &amount, &lastBill, &next, &c.BillStatus, &c.GraceDays, &created, &updated)
	if err != nil {
		return nil, err
	}

	c.CVV = cvv.String
	c.FullNumber = fullNumber.String
	c.BillingDay = int(day.Int64)
	c.BillAmount = amount.Float64

	if c.LastBillDate, err = parseNullDate(lastBill); err != nil {
		return nil, err
	}
	if c.NextBillDate, err = parseNullDate(next); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, err
	}
	return &c, nil
}

func parseNullDate(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// escapeLike guards %, _, and the escape character itself in user-supplied
// search terms.
func escapeLike(term string) string {
	out := make([]rune, 0, len(term))
	for _, r := range term {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || serr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func oneRowAffected(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
