package cards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mpetrov/cardkeeper/internal/common"
	"github.com/mpetrov/cardkeeper/internal/dbx"
	"github.com/mpetrov/cardkeeper/internal/models"
)

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

const pgCardColumns = `id, user_id, bank_name, card_number, expiry_date, cvv, full_card_number,
	billing_day, bill_amount, last_bill_date, next_bill_date, bill_status, grace_period_days,
	created_at, updated_at`

// PostgresRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository returns a new PostgresRepository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, card *models.Card) (int64, error) {
	query := `INSERT INTO credit_cards (user_id, bank_name, card_number, expiry_date, cvv, full_card_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		card.UserID, card.Bank, card.Number, card.Expiry,
		nullString(card.CVV), nullString(card.FullNumber)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, common.ErrDuplicate
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID int64) ([]models.Card, error) {
	query := `SELECT ` + pgCardColumns + ` FROM credit_cards
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	return r.queryCards(ctx, query, userID)
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id int64) (*models.Card, error) {
	query := `SELECT ` + pgCardColumns + ` FROM credit_cards
		WHERE user_id = $1 AND id = $2`

	card, err := scanPostgresCard(r.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return card, nil
}

func (r *PostgresRepository) Search(ctx context.Context, userID int64, term string) ([]models.Card, error) {
	query := `SELECT ` + pgCardColumns + ` FROM credit_cards
		WHERE user_id = $1 AND (bank_name ILIKE '%' || $2 || '%' OR position($3 in card_number) > 0)
		ORDER BY created_at DESC, id DESC`

	return r.queryCards(ctx, query, userID, escapeLike(term), term)
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM credit_cards WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) SetBilling(ctx context.Context, userID, id int64, day int, amount float64, graceDays int, nextBill time.Time) error {
	query := `UPDATE credit_cards
		SET billing_day = $1, bill_amount = $2, next_bill_date = $3, bill_status = 'pending',
			grace_period_days = $4, updated_at = now()
		WHERE user_id = $5 AND id = $6`

	res, err := r.db.ExecContext(ctx, query, day, amount, nextBill, graceDays, userID, id)
	return oneRowAffected(res, err)
}

func (r *PostgresRepository) MarkPaid(ctx context.Context, userID, id int64, lastBill *time.Time, nextBill time.Time) error {
	query := `UPDATE credit_cards
		SET last_bill_date = $1, next_bill_date = $2, bill_status = 'paid', updated_at = now()
		WHERE user_id = $3 AND id = $4`

	var last sql.NullTime
	if lastBill != nil {
		last = sql.NullTime{Time: *lastBill, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, query, last, nextBill, userID, id)
	return oneRowAffected(res, err)
}

func (r *PostgresRepository) UpdateAmount(ctx context.Context, userID, id int64, amount float64) error {
	query := `UPDATE credit_cards SET bill_amount = $1, updated_at = now() WHERE user_id = $2 AND id = $3`

	res, err := r.db.ExecContext(ctx, query, amount, userID, id)
	return oneRowAffected(res, err)
}

func (r *PostgresRepository) UpdateGraceDays(ctx context.Context, userID, id int64, days int) error {
	query := `UPDATE credit_cards SET grace_period_days = $1, updated_at = now() WHERE user_id = $2 AND id = $3`

	res, err := r.db.ExecContext(ctx, query, days, userID, id)
	return oneRowAffected(res, err)
}

func (r *PostgresRepository) ListPending(ctx context.Context, userID int64) ([]models.Card, error) {
	query := `SELECT ` + pgCardColumns + ` FROM credit_cards
		WHERE user_id = $1 AND bill_status = 'pending' AND next_bill_date IS NOT NULL
		ORDER BY next_bill_date ASC, id ASC`

	return r.queryCards(ctx, query, userID)
}

func (r *PostgresRepository) ListDue(ctx context.Context, userID int64, asOf time.Time) ([]models.Card, error) {
	query := `SELECT ` + pgCardColumns + ` FROM credit_cards
		WHERE user_id = $1 AND bill_status = 'pending' AND next_bill_date IS NOT NULL AND next_bill_date <= $2::date
		ORDER BY next_bill_date ASC, id ASC`

	return r.queryCards(ctx, query, userID, asOf)
}

func (r *PostgresRepository) queryCards(ctx context.Context, query string, args ...any) ([]models.Card, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Card
	for rows.Next() {
		card, err := scanPostgresCard(rows)
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

func scanPostgresCard(row rowScanner) (*models.Card, error) {
	var (
		c               models.Card
		cvv, fullNumber sql.NullString
		day             sql.NullInt64
		amount          sql.NullFloat64
		lastBill, next  sql.NullTime
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Bank, &c.Number, &c.Expiry, &cvv, &fullNumber,
		&day, &amount, &lastBill, &next, &c.BillStatus, &c.GraceDays, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.CVV = cvv.String
	c.FullNumber = fullNumber.String
	c.BillingDay = int(day.Int64)
	c.BillAmount = amount.Float64
	if lastBill.Valid {
		t := lastBill.Time
		c.LastBillDate = &t
	}
	if next.Valid {
		t := next.Time
		c.NextBillDate = &t
	}
	return &c, nil
}
