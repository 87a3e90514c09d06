// Package models defines the domain types shared by repositories, services,
// and the chat layer.
package models

import "time"

// BillStatus is the payment state of a card's current billing cycle.
type BillStatus string

const (
	BillStatusPending BillStatus = "pending"
	BillStatusPaid    BillStatus = "paid"
)

// Card is one stored credit-card record, always scoped to a single user.
//
// Number holds the 4-digit display token. FullNumber, when present, holds
// the complete 13–19 digit number whose trailing four digits equal Number.
// Optional string fields use "" for "not stored"; optional numeric fields
// use zero. Billing dates are nil until billing is configured.
type Card struct {
	ID         int64
	UserID     int64
	Bank       string
	Number     string
	Expiry     string
	CVV        string
	FullNumber string

	BillingDay   int
	BillAmount   float64
	LastBillDate *time.Time
	NextBillDate *time.Time
	BillStatus   BillStatus
	GraceDays    int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasBilling reports whether a billing day has been configured for the card.
func (c *Card) HasBilling() bool {
	return c.BillingDay > 0
}

// DueNow reports whether the card has a pending bill due on or before asOf.
func (c *Card) DueNow(asOf time.Time) bool {
	return c.BillStatus == BillStatusPending && c.NextBillDate != nil && !c.NextBillDate.After(asOf)
}
