// Package validation holds the pure input checks for the card-entry form.
// Validators never mutate state and never fail on malformed input; they
// report acceptability and, where storage needs it, a normalized value.
package validation

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Accepted expiry years. The window is fixed; entries outside it are
// rejected even if they denote a real future date.
const (
	minExpiryYear = 2020
	maxExpiryYear = 2030
)

// BankName accepts any text of at least two characters.
func BankName(s string) bool {
	return utf8.RuneCountInString(s) >= 2
}

// CardNumber checks a card number made of digits, spaces, and hyphens.
// It returns the digit-only form; acceptable lengths are exactly 4 (a
// display token) or 13–19 (a full number).
func CardNumber(s string) (string, bool) {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(s)
	if cleaned == "" || !digitsOnly(cleaned) {
		return "", false
	}
	if n := len(cleaned); n != 4 && (n < 13 || n > 19) {
		return "", false
	}
	return cleaned, true
}

// Expiry accepts dates in exactly MM/YYYY form with month 01–12 and year
// within the accepted window.
func Expiry(s string) bool {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 4 {
		return false
	}
	if !digitsOnly(parts[0]) || !digitsOnly(parts[1]) {
		return false
	}
	month, _ := strconv.Atoi(parts[0])
	year, _ := strconv.Atoi(parts[1])
	if month < 1 || month > 12 {
		return false
	}
	return year >= minExpiryYear && year <= maxExpiryYear
}

// CVV accepts 3 or 4 digit codes.
func CVV(s string) bool {
	if n := len(s); n != 3 && n != 4 {
		return false
	}
	return digitsOnly(s)
}

// BillingDay accepts day-of-month numbers 1–31.
func BillingDay(s string) (int, bool) {
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 31 {
		return 0, false
	}
	return day, true
}

// BillAmount accepts positive decimal amounts, tolerating a leading
// currency symbol, thousands separators, and stray spaces.
func BillAmount(s string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	amount, err := strconv.ParseFloat(cleaned, 64)
	// Not amount <= 0: ParseFloat parses "nan", and NaN would slip past
	// that guard.
	if err != nil || !(amount > 0) {
		return 0, false
	}
	return amount, true
}

// GraceDays accepts grace periods of 1–60 days.
func GraceDays(s string) (int, bool) {
	days, err := strconv.Atoi(s)
	if err != nil || days < 1 || days > 60 {
		return 0, false
	}
	return days, true
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
