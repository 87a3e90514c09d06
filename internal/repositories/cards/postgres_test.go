package cards

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mpetrov/cardkeeper/internal/common"
	"github.com/mpetrov/cardkeeper/internal/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func pgCardRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "bank_name", "card_number", "expiry_date", "cvv", "full_card_number",
		"billing_day", "bill_amount", "last_bill_date", "next_bill_date", "bill_status", "grace_period_days",
		"created_at", "updated_at",
	})
}

func TestPostgresCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+credit_cards\s*\(user_id,\s*bank_name,\s*card_number,\s*expiry_date,\s*cvv,\s*full_card_number\).*RETURNING\s+id\s*$`
	mock.ExpectQuery(q).
		WithArgs(int64(1), "Chase", "3456", "12/2026", "123", "1234567890123456").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := repo.Create(context.Background(), &models.Card{
		UserID: 1, Bank: "Chase", Number: "3456", Expiry: "12/2026",
		CVV: "123", FullNumber: "1234567890123456",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if id != 7 {
		t.Fatalf("unexpected id: %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestPostgresCreate_NullsOptionalColumns(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+credit_cards.*RETURNING\s+id\s*$`
	mock.ExpectQuery(q).
		WithArgs(int64(1), "Citi", "9999", "01/2027", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))

	_, err := repo.Create(context.Background(), &models.Card{
		UserID: 1, Bank: "Citi", Number: "9999", Expiry: "01/2027",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestPostgresCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+credit_cards.*RETURNING\s+id\s*$`
	mock.ExpectQuery(q).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "credit_cards_user_id_card_number_key"})

	_, err := repo.Create(context.Background(), &models.Card{
		UserID: 1, Bank: "Chase", Number: "3456", Expiry: "12/2026",
	})
	if !errors.Is(err, common.ErrDuplicate) {
		t.Fatalf("want common.ErrDuplicate, got %v", err)
	}
}

func TestPostgresCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+credit_cards.*RETURNING\s+id\s*$`
	mock.ExpectQuery(q).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Card{
		UserID: 1, Bank: "Chase", Number: "3456", Expiry: "12/2026",
	})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestPostgresGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2025, time.January, 10, 12, 0, 0, 0, time.UTC)
	next := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	rows := pgCardRows().AddRow(
		int64(7), int64(1), "Chase", "3456", "12/2026", "123", "1234567890123456",
		int64(15), 1250.50, nil, next, "pending", int64(21), created, created)

	q := `(?s)^SELECT\s+.*FROM\s+credit_cards\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2\s*$`
	mock.ExpectQuery(q).WithArgs(int64(1), int64(7)).WillReturnRows(rows)

	got, err := repo.Get(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Bank != "Chase" || got.BillingDay != 15 || got.BillAmount != 1250.50 {
		t.Fatalf("unexpected card: %+v", got)
	}
	if got.LastBillDate != nil {
		t.Fatalf("expected nil last bill date, got %v", got.LastBillDate)
	}
	if got.NextBillDate == nil || !got.NextBillDate.Equal(next) {
		t.Fatalf("unexpected next bill date: %v", got.NextBillDate)
	}
}

func TestPostgresGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.*FROM\s+credit_cards\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2\s*$`
	mock.ExpectQuery(q).WithArgs(int64(1), int64(7)).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 1, 7)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestPostgresSetBilling_NoRowIsNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+credit_cards\s+SET\s+billing_day\s*=\s*\$1.*WHERE\s+user_id\s*=\s*\$5\s+AND\s+id\s*=\s*\$6\s*$`
	mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetBilling(context.Background(), 1, 7, 15, 100, 21,
		time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestPostgresMarkPaid_NullLastDate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	next := time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC)
	q := `(?s)^UPDATE\s+credit_cards\s+SET\s+last_bill_date\s*=\s*\$1,\s*next_bill_date\s*=\s*\$2.*WHERE\s+user_id\s*=\s*\$3\s+AND\s+id\s*=\s*\$4\s*$`
	mock.ExpectExec(q).
		WithArgs(nil, next, int64(1), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkPaid(context.Background(), 1, 7, nil, next); err != nil {
		t.Fatalf("MarkPaid error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestPostgresListDue_FiltersByDate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	asOf := time.Date(2025, time.January, 15, 10, 30, 0, 0, time.UTC)
	created := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	next := time.Date(2025, time.January, 12, 0, 0, 0, 0, time.UTC)
	rows := pgCardRows().AddRow(
		int64(3), int64(1), "Chase", "3456", "12/2026", nil, nil,
		int64(12), 100.0, nil, next, "pending", int64(21), created, created)

	q := `(?s)^SELECT\s+.*FROM\s+credit_cards\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+bill_status\s*=\s*'pending'.*next_bill_date\s*<=\s*\$2::date.*ORDER\s+BY\s+next_bill_date\s+ASC`
	mock.ExpectQuery(q).WithArgs(int64(1), asOf).WillReturnRows(rows)

	due, err := repo.ListDue(context.Background(), 1, asOf)
	if err != nil {
		t.Fatalf("ListDue error: %v", err)
	}
	if len(due) != 1 || due[0].ID != 3 {
		t.Fatalf("unexpected due list: %+v", due)
	}
}
