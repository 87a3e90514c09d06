package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/mpetrov/cardkeeper/internal/common"
	"github.com/mpetrov/cardkeeper/internal/logging"
	"github.com/mpetrov/cardkeeper/internal/models"
	"github.com/mpetrov/cardkeeper/internal/services"
)

// Router dispatches updates to the services and builds the reply for each.
// It holds no per-user state of its own; everything lives in the session and
// card stores, so concurrent updates for different users are safe.
type Router struct {
	cards *services.CardService
	form  *services.FormService
	log   logging.Logger

	// now is a seam for tests that pin the clock.
	now func() time.Time
}

// NewRouter constructs a Router over the card and form services.
func NewRouter(cards *services.CardService, form *services.FormService, log logging.Logger) *Router {
	return &Router{cards: cards, form: form, log: log, now: time.Now}
}

// Handle processes one update and returns the reply, or nil when the update
// should be ignored. Storage failures are logged and collapse to a generic
// failure message; the user never sees internal errors.
func (r *Router) Handle(ctx context.Context, up Update) *Message {
	log := r.log.With("update_id", up.ID.String(), "user_id", up.UserID)
	switch {
	case up.Command != "":
		return r.command(ctx, log, up)
	case up.Callback != "":
		return r.callback(ctx, log, up)
	case up.Text != "":
		return r.text(ctx, log, up)
	}
	return nil
}

func (r *Router) command(ctx context.Context, log logging.Logger, up Update) *Message {
	switch up.Command {
	case "start":
		return textMessage(welcomeText)
	case "help":
		return textMessage(helpText)
	case "add_card":
		return r.addCard(ctx, log, up.UserID)
	case "view_cards":
		return r.viewCards(ctx, log, up.UserID)
	case "view_card":
		return r.viewCard(ctx, log, up)
	case "delete_card":
		return r.deleteCard(ctx, log, up)
	case "status":
		return r.status(ctx, log, up.UserID)
	case "set_billing":
		return r.setBillingPicker(ctx, log, up.UserID)
	case "update_bill_amount":
		return r.amountPicker(ctx, log, up.UserID)
	case "set_due_date":
		return r.gracePicker(ctx, log, up.UserID)
	}
	log.Debug(ctx, "ignoring unknown command", "command", up.Command)
	return nil
}

func (r *Router) addCard(ctx context.Context, log logging.Logger, userID int64) *Message {
	form, err := r.form.Start(ctx, userID)
	if err != nil {
		return r.failure(ctx, log, "start form", err)
	}
	return formStatusMessage(form)
}

func (r *Router) viewCards(ctx context.Context, log logging.Logger, userID int64) *Message {
	cards, err := r.cards.List(ctx, userID)
	if err != nil {
		return r.failure(ctx, log, "list cards", err)
	}
	if len(cards) == 0 {
		return textMessage(noCardsText)
	}
	return cardListMessage("Your cards:", cards, cbViewCard, false)
}

func (r *Router) viewCard(ctx context.Context, log logging.Logger, up Update) *Message {
	matches, msg := r.searchByArg(ctx, log, up, "Usage: /view_card <bank name or last 4 digits>")
	if msg != nil {
		return msg
	}
	if len(matches) == 1 {
		return cardDetailsMessage(&matches[0], r.now(), false)
	}
	return cardListMessage("Several cards match. Pick one:", matches, cbViewCard, false)
}

func (r *Router) deleteCard(ctx context.Context, log logging.Logger, up Update) *Message {
	matches, msg := r.searchByArg(ctx, log, up, "Usage: /delete_card <bank name or last 4 digits>")
	if msg != nil {
		return msg
	}
	if len(matches) == 1 {
		return deleteConfirmMessage(&matches[0], false)
	}
	return cardListMessage("Several cards match. Pick the one to delete:", matches, cbDeleteCard, false)
}

// searchByArg resolves the command argument to matching cards. A non-nil
// message means the command is already answered (missing argument, no
// matches, or a storage failure).
func (r *Router) searchByArg(ctx context.Context, log logging.Logger, up Update, usage string) ([]models.Card, *Message) {
	args := strings.Fields(up.Args)
	if len(args) == 0 {
		return nil, textMessage(usage)
	}
	term := args[0]
	matches, err := r.cards.Search(ctx, up.UserID, term)
	if err != nil {
		return nil, r.failure(ctx, log, "search cards", err)
	}
	if len(matches) == 0 {
		return nil, textMessage("No cards match " + term + ".")
	}
	return matches, nil
}

func (r *Router) status(ctx context.Context, log logging.Logger, userID int64) *Message {
	all, err := r.cards.List(ctx, userID)
	if err != nil {
		return r.failure(ctx, log, "list cards", err)
	}
	if len(all) == 0 {
		return textMessage(noCardsText)
	}
	pending, err := r.cards.ListPending(ctx, userID)
	if err != nil {
		return r.failure(ctx, log, "list pending bills", err)
	}
	due, err := r.cards.ListDue(ctx, userID)
	if err != nil {
		return r.failure(ctx, log, "list due bills", err)
	}
	return statusMessage(len(all), pending, due, r.now())
}

func (r *Router) setBillingPicker(ctx context.Context, log logging.Logger, userID int64) *Message {
	cards, err := r.cards.List(ctx, userID)
	if err != nil {
		return r.failure(ctx, log, "list cards", err)
	}
	if len(cards) == 0 {
		return textMessage(noCardsText)
	}
	return cardListMessage("Pick the card to set billing for:", cards, cbSetBilling, false)
}

func (r *Router) amountPicker(ctx context.Context, log logging.Logger, userID int64) *Message {
	return r.billingPicker(ctx, log, userID, "Pick the card to update the bill amount for:", cbUpdateAmount,
		func(c *models.Card) string {
			return cardButtonLabel(c) + " (" + fmtAmount(c.BillAmount) + ")"
		})
}

func (r *Router) gracePicker(ctx context.Context, log logging.Logger, userID int64) *Message {
	return r.billingPicker(ctx, log, userID, "Pick the card to set the payment window for:", cbSetGraceDays,
		func(c *models.Card) string {
			return cardButtonLabel(c) + " (" + strconv.Itoa(c.GraceDays) + " days)"
		})
}

// billingPicker lists only cards that already have a billing day configured.
func (r *Router) billingPicker(ctx context.Context, log logging.Logger, userID int64, title, prefix string, label func(*models.Card) string) *Message {
	cards, err := r.cards.List(ctx, userID)
	if err != nil {
		return r.failure(ctx, log, "list cards", err)
	}
	var withBilling []models.Card
	for _, c := range cards {
		if c.HasBilling() {
			withBilling = append(withBilling, c)
		}
	}
	if len(withBilling) == 0 {
		return textMessage("None of your cards have billing configured. Use /set_billing first.")
	}
	return cardPickerMessage(title, withBilling, prefix, label, false)
}

func (r *Router) text(ctx context.Context, log logging.Logger, up Update) *Message {
	res, err := r.form.Input(ctx, up.UserID, up.Text)
	if err != nil {
		return r.failure(ctx, log, "form input", err)
	}
	switch res.Status {
	case services.InputIgnored:
		log.Debug(ctx, "ignoring text outside form")
		return nil
	case services.InputInvalid:
		return invalidInputMessage(res.State)
	case services.InputSaved:
		return formStatusMessage(res.Form)
	case services.InputNeedAmount:
		return textMessage("Enter the bill amount:")
	case services.InputBillingDone:
		return billingDoneMessage(res.Form)
	case services.InputAmountDone:
		return textMessage("Bill amount updated to " + fmtAmount(res.Form.BillAmount) + ".")
	case services.InputGraceDone:
		return textMessage("Payment window updated: bills are due " + strconv.Itoa(res.Form.GraceDays) + " days after the billing date.")
	case services.InputCardGone:
		return textMessage(cardNotFoundText)
	}
	return nil
}

func (r *Router) failure(ctx context.Context, log logging.Logger, op string, err error) *Message {
	log.Error(ctx, "update failed", "op", op, "error", err)
	return textMessage(failureText)
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
