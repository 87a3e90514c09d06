package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mpetrov/cardkeeper/internal/models"
)

const dateLayout = "2006-01-02"

const (
	failureText      = "Something went wrong. Please try again."
	cardNotFoundText = "Card not found."
	noCardsText      = "You have no saved cards yet. Use /add_card to add one."

	welcomeText = `Welcome to Card Keeper. I store your card records and track their billing cycles.

Commands:
/add_card - add a new card
/view_cards - list your cards
/view_card <term> - find one card by bank or last 4 digits
/delete_card <term> - delete a card
/status - billing overview
/set_billing - set a card's billing day and amount
/update_bill_amount - change a card's bill amount
/set_due_date - set how many days you have to pay
/help - show this list`

	helpText = `Commands:
/add_card - add a new card
/view_cards - list your cards
/view_card <term> - find one card by bank or last 4 digits
/delete_card <term> - delete a card
/status - billing overview
/set_billing - set a card's billing day and amount
/update_bill_amount - change a card's bill amount
/set_due_date - set how many days you have to pay

Examples:
/view_card 1234 - the card ending in 1234
/view_card Chase - your Chase cards
/delete_card 1234 - delete the card ending in 1234`
)

func textMessage(text string) *Message { return &Message{Text: text} }

func editMessage(text string) *Message { return &Message{Text: text, Edit: true} }

// maskedNumber renders the stored display token, e.g. "•••• 1234".
func maskedNumber(c *models.Card) string { return "•••• " + c.Number }

// cardButtonLabel is the short label used on selection buttons,
// e.g. "CHAS •••• 1234".
func cardButtonLabel(c *models.Card) string {
	tag := []rune(strings.ToUpper(c.Bank))
	if len(tag) > 4 {
		tag = tag[:4]
	}
	return string(tag) + " " + maskedNumber(c)
}

func fmtAmount(amount float64) string {
	if amount == 0 {
		return "not set"
	}
	return fmt.Sprintf("$%.2f", amount)
}

func fmtDate(t time.Time) string { return t.Format(dateLayout) }

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

func formKeyboard() [][]Button {
	return [][]Button{
		{
			{Label: "Bank Name", Data: cbFormField + string(models.FieldBank)},
			{Label: "Card Number", Data: cbFormField + string(models.FieldNumber)},
		},
		{
			{Label: "Expiry Date", Data: cbFormField + string(models.FieldExpiry)},
			{Label: "CVV", Data: cbFormField + string(models.FieldCVV)},
		},
		{
			{Label: "Done", Data: cbFormDone},
			{Label: "Cancel", Data: cbFormCancel},
		},
	}
}

// formStatusMessage shows the scratch buffer, one line per field, with the
// field keyboard underneath.
func formStatusMessage(form *models.FormData) *Message {
	number := form.Number
	if number != "" {
		number = "•••• " + number
	}
	var b strings.Builder
	b.WriteString("Add a new card\n\n")
	b.WriteString("Bank name: " + orNotSet(form.Bank) + "\n")
	b.WriteString("Card number: " + orNotSet(number) + "\n")
	b.WriteString("Expiry date: " + orNotSet(form.Expiry) + "\n")
	b.WriteString("CVV: " + orNotSet(form.CVV) + "\n\n")
	b.WriteString("Pick a field to fill, then press Done.")
	return &Message{Text: b.String(), Keyboard: formKeyboard()}
}

func orNotSet(s string) string {
	if s == "" {
		return "not set"
	}
	return s
}

func fieldLabel(f models.Field) string {
	switch f {
	case models.FieldBank:
		return "Bank name"
	case models.FieldNumber:
		return "Card number"
	case models.FieldExpiry:
		return "Expiry date"
	case models.FieldCVV:
		return "CVV"
	}
	return string(f)
}

func fieldPromptMessage(field models.Field) *Message {
	msg := &Message{Edit: true}
	switch field {
	case models.FieldBank:
		msg.Text = "Enter the bank name:"
	case models.FieldNumber:
		msg.Text = "Enter the card number: the last 4 digits, or the full 13-19 digit number."
	case models.FieldExpiry:
		msg.Text = "Enter the expiry date (MM/YYYY):"
	case models.FieldCVV:
		msg.Text = "Enter the CVV (3-4 digits):"
		msg.Sensitive = true
	}
	return msg
}

// invalidInputMessage explains what the rejecting state expects. CVV retries
// stay sensitive so transports keep masking the entry.
func invalidInputMessage(state models.FormState) *Message {
	msg := &Message{}
	switch state {
	case models.StateAwaitingBankName:
		msg.Text = "Bank name must be at least 2 characters. Try again:"
	case models.StateAwaitingCardNumber:
		msg.Text = "That does not look like a card number. Enter the last 4 digits or the full 13-19 digit number:"
	case models.StateAwaitingExpiryDate:
		msg.Text = "Enter the expiry date as MM/YYYY, for example 09/2027:"
	case models.StateAwaitingCVV:
		msg.Text = "CVV must be 3 or 4 digits. Try again:"
		msg.Sensitive = true
	case models.StateAwaitingBillingDay:
		msg.Text = "Enter a day of the month between 1 and 31:"
	case models.StateAwaitingBillAmount:
		msg.Text = "Enter a positive amount, for example 149.99:"
	case models.StateAwaitingGraceDays:
		msg.Text = "Enter a number of days between 1 and 60:"
	default:
		msg.Text = failureText
	}
	return msg
}

func incompleteFormMessage(missing []models.Field) *Message {
	var b strings.Builder
	b.WriteString("The card is not complete yet. Still missing:\n")
	for _, f := range missing {
		line := "- " + fieldLabel(f)
		if f == models.FieldCVV {
			line += " (required with a full card number)"
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\nPick a field to fill, then press Done.")
	return &Message{Text: b.String(), Keyboard: formKeyboard(), Edit: true}
}

func duplicateFormMessage() *Message {
	return &Message{
		Text:     "You already have a card with this number. Change the card number or cancel.",
		Keyboard: formKeyboard(),
		Edit:     true,
	}
}

func cardCreatedMessage(card *models.Card) *Message {
	var b strings.Builder
	b.WriteString("Card added.\n\n")
	b.WriteString("Bank: " + card.Bank + "\n")
	b.WriteString("Number: " + maskedNumber(card) + "\n")
	b.WriteString("Expiry: " + card.Expiry + "\n")
	b.WriteString("\nUse /set_billing to track its billing cycle.")
	return &Message{Text: b.String(), Edit: true}
}

func cardDetailsMessage(c *models.Card, now time.Time, edit bool) *Message {
	var b strings.Builder
	b.WriteString(c.Bank + " " + maskedNumber(c) + "\n\n")
	b.WriteString("Expiry: " + c.Expiry + "\n")
	if c.CVV != "" {
		b.WriteString("CVV: " + c.CVV + "\n")
	}
	if c.FullNumber != "" {
		b.WriteString("Full number: " + c.FullNumber + "\n")
	}
	if c.HasBilling() {
		b.WriteString("\nBilling day: " + strconv.Itoa(c.BillingDay) + " of each month\n")
		b.WriteString("Bill amount: " + fmtAmount(c.BillAmount) + "\n")
		b.WriteString("Status: " + string(c.BillStatus) + "\n")
		if c.NextBillDate != nil {
			b.WriteString("Next bill: " + fmtDate(*c.NextBillDate) + overdueSuffix(c, now) + "\n")
			b.WriteString("Pay by: " + fmtDate(c.NextBillDate.AddDate(0, 0, c.GraceDays)) + "\n")
		}
		if c.LastBillDate != nil {
			b.WriteString("Last bill: " + fmtDate(*c.LastBillDate) + "\n")
		}
	}
	b.WriteString("\nAdded: " + fmtDate(c.CreatedAt))
	return &Message{
		Text: b.String(),
		Keyboard: [][]Button{
			{{Label: "Delete Card", Data: cbDeleteCard + formatID(c.ID)}},
			{{Label: "Close", Data: cbCloseView}},
		},
		Edit: edit,
	}
}

func deleteConfirmMessage(c *models.Card, edit bool) *Message {
	text := "Delete this card?\n\n" +
		"Bank: " + c.Bank + "\n" +
		"Number: " + maskedNumber(c) + "\n" +
		"Expiry: " + c.Expiry + "\n\n" +
		"This cannot be undone."
	return &Message{
		Text: text,
		Keyboard: [][]Button{{
			{Label: "Yes, delete", Data: cbConfirmDelete + formatID(c.ID)},
			{Label: "Cancel", Data: cbCloseView},
		}},
		Edit: edit,
	}
}

// cardPickerMessage renders one button per card with the card id appended to
// prefix, plus a Close row.
func cardPickerMessage(title string, cards []models.Card, prefix string, label func(*models.Card) string, edit bool) *Message {
	keyboard := make([][]Button, 0, len(cards)+1)
	for i := range cards {
		c := &cards[i]
		keyboard = append(keyboard, []Button{{Label: label(c), Data: prefix + formatID(c.ID)}})
	}
	keyboard = append(keyboard, []Button{{Label: "Close", Data: cbCloseView}})
	return &Message{Text: title, Keyboard: keyboard, Edit: edit}
}

func cardListMessage(title string, cards []models.Card, prefix string, edit bool) *Message {
	return cardPickerMessage(title, cards, prefix, cardButtonLabel, edit)
}

func markPaidMessage(c *models.Card) *Message {
	text := "Marked the " + c.Bank + " " + maskedNumber(c) + " bill as paid."
	if c.NextBillDate != nil {
		text += "\nNext bill: " + fmtDate(*c.NextBillDate) + "."
	}
	return editMessage(text)
}

func billingDoneMessage(form *models.FormData) *Message {
	return textMessage(fmt.Sprintf(
		"Billing saved: day %d of each month, %s per cycle.\nUse /status to see when the next bill is due.",
		form.BillingDay, fmtAmount(form.BillAmount)))
}

func dueListMessage(due []models.Card, now time.Time, edit bool) *Message {
	if len(due) == 0 {
		return &Message{Text: "No bills are due right now.", Edit: edit}
	}
	var b strings.Builder
	b.WriteString("Due bills:\n\n")
	keyboard := make([][]Button, 0, len(due)+1)
	for i := range due {
		c := &due[i]
		b.WriteString(fmt.Sprintf("%s %s: %s due %s%s\n",
			c.Bank, maskedNumber(c), fmtAmount(c.BillAmount), fmtDate(*c.NextBillDate), overdueSuffix(c, now)))
		keyboard = append(keyboard, []Button{{Label: "Mark Paid: " + cardButtonLabel(c), Data: cbMarkPaid + formatID(c.ID)}})
	}
	keyboard = append(keyboard, []Button{{Label: "Close", Data: cbCloseView}})
	return &Message{Text: b.String(), Keyboard: keyboard, Edit: edit}
}

func pendingListMessage(pending []models.Card, edit bool) *Message {
	if len(pending) == 0 {
		return &Message{Text: "No bills are scheduled. Use /set_billing to track a card.", Edit: edit}
	}
	var b strings.Builder
	b.WriteString("Pending bills:\n\n")
	keyboard := make([][]Button, 0, len(pending)+1)
	for i := range pending {
		c := &pending[i]
		b.WriteString(fmt.Sprintf("%s %s: %s due %s\n",
			c.Bank, maskedNumber(c), fmtAmount(c.BillAmount), fmtDate(*c.NextBillDate)))
		keyboard = append(keyboard, []Button{{Label: "Mark Paid: " + cardButtonLabel(c), Data: cbMarkPaid + formatID(c.ID)}})
	}
	keyboard = append(keyboard, []Button{{Label: "Close", Data: cbCloseView}})
	return &Message{Text: b.String(), Keyboard: keyboard, Edit: edit}
}

func statusMessage(total int, pending, due []models.Card, now time.Time) *Message {
	var b strings.Builder
	b.WriteString("Billing status\n\n")
	b.WriteString(fmt.Sprintf("Cards: %d\n", total))
	b.WriteString(fmt.Sprintf("Pending bills: %d\n", len(pending)))
	b.WriteString(fmt.Sprintf("Due now: %d\n", len(due)))

	if len(due) > 0 {
		b.WriteString("\nDue now:\n")
		for i := range due {
			c := &due[i]
			b.WriteString(fmt.Sprintf("- %s %s: %s due %s%s\n",
				c.Bank, maskedNumber(c), fmtAmount(c.BillAmount), fmtDate(*c.NextBillDate), overdueSuffix(c, now)))
		}
	} else if len(pending) > 0 {
		upcoming := pending
		if len(upcoming) > 5 {
			upcoming = upcoming[:5]
		}
		b.WriteString("\nUpcoming:\n")
		for i := range upcoming {
			c := &upcoming[i]
			b.WriteString(fmt.Sprintf("- %s %s: %s due %s\n",
				c.Bank, maskedNumber(c), fmtAmount(c.BillAmount), fmtDate(*c.NextBillDate)))
		}
	}

	var keyboard [][]Button
	if len(due) > 0 {
		keyboard = append(keyboard, []Button{{Label: "View Due Bills", Data: cbViewDue}})
	}
	if len(pending) > 0 {
		keyboard = append(keyboard, []Button{{Label: "View Pending Bills", Data: cbViewPending}})
	}
	keyboard = append(keyboard, []Button{{Label: "View All Cards", Data: cbViewAll}})
	return &Message{Text: b.String(), Keyboard: keyboard}
}

// overdueSuffix annotates a pending bill that is already due.
func overdueSuffix(c *models.Card, now time.Time) string {
	if !c.DueNow(now) {
		return ""
	}
	days := daysBetween(*c.NextBillDate, now)
	switch {
	case days <= 0:
		return " (due today)"
	case days == 1:
		return " (1 day overdue)"
	default:
		return fmt.Sprintf(" (%d days overdue)", days)
	}
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
