package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrov/cardkeeper/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCardButtonLabel(t *testing.T) {
	assert.Equal(t, "CHAS •••• 1234", cardButtonLabel(&models.Card{Bank: "Chase", Number: "1234"}))
	assert.Equal(t, "HD •••• 9999", cardButtonLabel(&models.Card{Bank: "hd", Number: "9999"}))
}

func TestFmtAmount(t *testing.T) {
	assert.Equal(t, "not set", fmtAmount(0))
	assert.Equal(t, "$1250.50", fmtAmount(1250.5))
	assert.Equal(t, "$99.99", fmtAmount(99.99))
}

func TestOverdueSuffix(t *testing.T) {
	next := day(2025, time.January, 15)
	card := &models.Card{BillStatus: models.BillStatusPending, NextBillDate: &next}

	assert.Equal(t, "", overdueSuffix(card, day(2025, time.January, 14)))
	assert.Equal(t, " (due today)", overdueSuffix(card, day(2025, time.January, 15)))
	assert.Equal(t, " (1 day overdue)", overdueSuffix(card, day(2025, time.January, 16)))
	assert.Equal(t, " (3 days overdue)", overdueSuffix(card, day(2025, time.January, 18)))

	paid := &models.Card{BillStatus: models.BillStatusPaid, NextBillDate: &next}
	assert.Equal(t, "", overdueSuffix(paid, day(2025, time.January, 18)))

	assert.Equal(t, "", overdueSuffix(&models.Card{BillStatus: models.BillStatusPending}, day(2025, time.January, 18)))
}

func TestFormStatusMessage(t *testing.T) {
	empty := formStatusMessage(&models.FormData{})
	assert.Contains(t, empty.Text, "Bank name: not set")
	assert.Contains(t, empty.Text, "Card number: not set")
	assert.Contains(t, empty.Text, "Expiry date: not set")
	assert.Contains(t, empty.Text, "CVV: not set")
	require.Len(t, empty.Keyboard, 3)
	assert.Equal(t, cbFormField+string(models.FieldBank), empty.Keyboard[0][0].Data)
	assert.Equal(t, cbFormDone, empty.Keyboard[2][0].Data)
	assert.Equal(t, cbFormCancel, empty.Keyboard[2][1].Data)

	filled := formStatusMessage(&models.FormData{Bank: "Chase", Number: "3456", Expiry: "12/2027", CVV: "123"})
	assert.Contains(t, filled.Text, "Bank name: Chase")
	assert.Contains(t, filled.Text, "Card number: •••• 3456")
	assert.Contains(t, filled.Text, "Expiry date: 12/2027")
	assert.Contains(t, filled.Text, "CVV: 123")
}

func TestFieldPromptMessage(t *testing.T) {
	cvv := fieldPromptMessage(models.FieldCVV)
	assert.True(t, cvv.Sensitive)
	assert.True(t, cvv.Edit)

	bank := fieldPromptMessage(models.FieldBank)
	assert.False(t, bank.Sensitive)
	assert.Equal(t, "Enter the bank name:", bank.Text)
}

func TestInvalidInputMessage(t *testing.T) {
	cvv := invalidInputMessage(models.StateAwaitingCVV)
	assert.True(t, cvv.Sensitive, "CVV retries stay masked")

	dayMsg := invalidInputMessage(models.StateAwaitingBillingDay)
	assert.Contains(t, dayMsg.Text, "between 1 and 31")
	assert.False(t, dayMsg.Sensitive)
}

func TestIncompleteFormMessage(t *testing.T) {
	msg := incompleteFormMessage([]models.Field{models.FieldBank, models.FieldCVV})
	assert.Contains(t, msg.Text, "- Bank name")
	assert.Contains(t, msg.Text, "- CVV (required with a full card number)")
	assert.NotContains(t, msg.Text, "Expiry")
	require.Len(t, msg.Keyboard, 3)
	assert.True(t, msg.Edit)
}

func TestCardDetailsMessage(t *testing.T) {
	next := day(2025, time.January, 15)
	last := day(2024, time.December, 15)
	card := &models.Card{
		ID:           42,
		Bank:         "Chase",
		Number:       "3456",
		Expiry:       "12/2027",
		CVV:          "123",
		FullNumber:   "1234567890123456",
		BillingDay:   15,
		BillAmount:   1250.5,
		NextBillDate: &next,
		LastBillDate: &last,
		BillStatus:   models.BillStatusPending,
		GraceDays:    21,
		CreatedAt:    day(2024, time.November, 1),
	}

	msg := cardDetailsMessage(card, day(2025, time.January, 18), true)
	assert.Contains(t, msg.Text, "Chase •••• 3456")
	assert.Contains(t, msg.Text, "Expiry: 12/2027")
	assert.Contains(t, msg.Text, "CVV: 123")
	assert.Contains(t, msg.Text, "Full number: 1234567890123456")
	assert.Contains(t, msg.Text, "Billing day: 15 of each month")
	assert.Contains(t, msg.Text, "Bill amount: $1250.50")
	assert.Contains(t, msg.Text, "Next bill: 2025-01-15 (3 days overdue)")
	assert.Contains(t, msg.Text, "Pay by: 2025-02-05")
	assert.Contains(t, msg.Text, "Last bill: 2024-12-15")
	assert.Contains(t, msg.Text, "Added: 2024-11-01")
	assert.True(t, msg.Edit)
	assert.Equal(t, cbDeleteCard+"42", msg.Keyboard[0][0].Data)
	assert.Equal(t, cbCloseView, msg.Keyboard[1][0].Data)
}

func TestCardDetailsMessage_BareCard(t *testing.T) {
	card := &models.Card{ID: 7, Bank: "HDFC", Number: "9999", Expiry: "01/2028", CreatedAt: day(2025, time.March, 2)}

	msg := cardDetailsMessage(card, day(2025, time.March, 2), false)
	assert.NotContains(t, msg.Text, "CVV:")
	assert.NotContains(t, msg.Text, "Full number:")
	assert.NotContains(t, msg.Text, "Billing day:")
	assert.False(t, msg.Edit)
}

func TestDeleteConfirmMessage(t *testing.T) {
	card := &models.Card{ID: 9, Bank: "Chase", Number: "4242", Expiry: "11/2027"}

	msg := deleteConfirmMessage(card, true)
	assert.Contains(t, msg.Text, "Delete this card?")
	assert.Contains(t, msg.Text, "This cannot be undone.")
	require.Len(t, msg.Keyboard, 1)
	assert.Equal(t, cbConfirmDelete+"9", msg.Keyboard[0][0].Data)
	assert.Equal(t, cbCloseView, msg.Keyboard[0][1].Data)
}

func TestDueListMessage(t *testing.T) {
	next := day(2025, time.January, 15)
	due := []models.Card{{
		ID: 3, Bank: "Chase", Number: "8888", BillAmount: 500,
		BillStatus: models.BillStatusPending, NextBillDate: &next,
	}}

	msg := dueListMessage(due, day(2025, time.January, 16), true)
	assert.Contains(t, msg.Text, "Chase •••• 8888: $500.00 due 2025-01-15 (1 day overdue)")
	require.Len(t, msg.Keyboard, 2)
	assert.Equal(t, cbMarkPaid+"3", msg.Keyboard[0][0].Data)

	empty := dueListMessage(nil, day(2025, time.January, 16), true)
	assert.Equal(t, "No bills are due right now.", empty.Text)
	assert.Empty(t, empty.Keyboard)
}

func TestStatusMessage_WithDueBills(t *testing.T) {
	next := day(2025, time.January, 10)
	due := []models.Card{{
		ID: 1, Bank: "Chase", Number: "8888", BillAmount: 500,
		BillStatus: models.BillStatusPending, NextBillDate: &next,
	}}

	msg := statusMessage(3, due, due, day(2025, time.January, 12))
	assert.Contains(t, msg.Text, "Cards: 3")
	assert.Contains(t, msg.Text, "Pending bills: 1")
	assert.Contains(t, msg.Text, "Due now: 1")
	assert.Contains(t, msg.Text, "2 days overdue")
	assert.NotContains(t, msg.Text, "Upcoming:")

	button(t, msg, "View Due Bills")
	button(t, msg, "View Pending Bills")
	button(t, msg, "View All Cards")
}

func TestStatusMessage_UpcomingCappedAtFive(t *testing.T) {
	var pending []models.Card
	for i := 0; i < 7; i++ {
		next := day(2025, time.March, 10+i)
		pending = append(pending, models.Card{
			ID: int64(i + 1), Bank: "Bank", Number: "0000", BillAmount: 10,
			BillStatus: models.BillStatusPending, NextBillDate: &next,
		})
	}

	msg := statusMessage(7, pending, nil, day(2025, time.January, 1))
	assert.Contains(t, msg.Text, "Due now: 0")
	assert.Contains(t, msg.Text, "Upcoming:")
	assert.Contains(t, msg.Text, "2025-03-14")
	assert.NotContains(t, msg.Text, "2025-03-15", "upcoming list is capped at five entries")

	for _, row := range msg.Keyboard {
		for _, b := range row {
			assert.NotEqual(t, cbViewDue, b.Data, "no due button without due bills")
		}
	}
	button(t, msg, "View Pending Bills")
}
