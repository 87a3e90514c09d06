package models

import (
	"encoding/json"
	"time"
)

// FormState identifies which input, if any, the card-entry form is waiting
// for. The value is persisted as text in the session row.
type FormState string

const (
	StateIdle               FormState = "idle"
	StateAwaitingBankName   FormState = "awaiting_bank_name"
	StateAwaitingCardNumber FormState = "awaiting_card_number"
	StateAwaitingExpiryDate FormState = "awaiting_expiry_date"
	StateAwaitingCVV        FormState = "awaiting_cvv"
	StateAwaitingBillingDay FormState = "awaiting_billing_day"
	StateAwaitingBillAmount FormState = "awaiting_bill_amount"
	StateAwaitingGraceDays  FormState = "awaiting_grace_days"
)

// Valid reports whether s is one of the known form states. Unknown values
// can appear if the session row was written by a newer or corrupted build;
// callers treat them like a missing session.
func (s FormState) Valid() bool {
	switch s {
	case StateIdle, StateAwaitingBankName, StateAwaitingCardNumber,
		StateAwaitingExpiryDate, StateAwaitingCVV, StateAwaitingBillingDay,
		StateAwaitingBillAmount, StateAwaitingGraceDays:
		return true
	}
	return false
}

// Field names one of the base card-entry fields a user can fill.
type Field string

const (
	FieldBank   Field = "bank_name"
	FieldNumber Field = "card_number"
	FieldExpiry Field = "expiry_date"
	FieldCVV    Field = "cvv"
)

// FormData is the scratch buffer of an in-progress form. Base-field entries
// accumulate here until the form is committed; the billing flows additionally
// carry the target card id and the collected billing values.
type FormData struct {
	Bank       string  `json:"bank_name,omitempty"`
	Number     string  `json:"card_number,omitempty"`
	FullNumber string  `json:"full_card_number,omitempty"`
	Expiry     string  `json:"expiry_date,omitempty"`
	CVV        string  `json:"cvv,omitempty"`
	CardID     int64   `json:"card_id,omitempty"`
	BillingDay int     `json:"billing_day,omitempty"`
	BillAmount float64 `json:"bill_amount,omitempty"`
	GraceDays  int     `json:"grace_days,omitempty"`
}

// Missing returns the required fields not yet filled. Bank, number, and
// expiry are always required; CVV becomes required once a full card number
// has been captured.
func (f *FormData) Missing() []Field {
	var missing []Field
	if f.Bank == "" {
		missing = append(missing, FieldBank)
	}
	if f.Number == "" {
		missing = append(missing, FieldNumber)
	}
	if f.Expiry == "" {
		missing = append(missing, FieldExpiry)
	}
	if f.FullNumber != "" && f.CVV == "" {
		missing = append(missing, FieldCVV)
	}
	return missing
}

// Complete reports whether the form can be committed as a card record.
func (f *FormData) Complete() bool {
	return len(f.Missing()) == 0
}

// Encode serializes the form for storage in the session row.
func (f *FormData) Encode() (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeFormData parses a stored scratch blob. A decode failure means the
// row is corrupt; callers treat that as "no session" rather than an error.
func DecodeFormData(raw string) (*FormData, error) {
	f := &FormData{}
	if err := json.Unmarshal([]byte(raw), f); err != nil {
		return nil, err
	}
	return f, nil
}

// Session is one user's in-progress form: the current state plus the
// serialized scratch buffer. At most one session exists per user.
type Session struct {
	UserID       int64
	State        FormState
	Scratch      string
	LastActivity time.Time
}
