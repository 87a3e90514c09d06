package chat

import (
	"context"
	"strconv"
	"strings"

	"github.com/mpetrov/cardkeeper/internal/logging"
	"github.com/mpetrov/cardkeeper/internal/models"
	"github.com/mpetrov/cardkeeper/internal/services"
)

// Button payloads. Prefixed payloads carry the card id after the prefix.
const (
	cbFormField  = "form_field_"
	cbFormDone   = "form_done"
	cbFormCancel = "form_cancel"

	cbViewCard      = "view_card_"
	cbDeleteCard    = "delete_card_"
	cbConfirmDelete = "confirm_delete_"
	cbMarkPaid      = "mark_paid_"
	cbSetBilling    = "set_billing_"
	cbUpdateAmount  = "update_amount_"
	cbSetGraceDays  = "set_grace_days_"

	cbViewDue     = "view_due_bills"
	cbViewPending = "view_pending_bills"
	cbViewAll     = "view_all_cards"
	cbCloseView   = "close_view"
)

func (r *Router) callback(ctx context.Context, log logging.Logger, up Update) *Message {
	data := up.Callback
	switch {
	case strings.HasPrefix(data, cbFormField):
		return r.formField(ctx, log, up.UserID, models.Field(strings.TrimPrefix(data, cbFormField)))
	case data == cbFormDone:
		return r.formDone(ctx, log, up.UserID)
	case data == cbFormCancel:
		return r.formCancel(ctx, log, up.UserID)
	case data == cbViewDue:
		return r.dueList(ctx, log, up.UserID)
	case data == cbViewPending:
		return r.pendingList(ctx, log, up.UserID)
	case data == cbViewAll:
		return r.allCards(ctx, log, up.UserID)
	case data == cbCloseView:
		return editMessage("View closed.")
	case strings.HasPrefix(data, cbConfirmDelete):
		return r.withCardID(ctx, log, up, cbConfirmDelete, r.confirmDelete)
	case strings.HasPrefix(data, cbViewCard):
		return r.withCardID(ctx, log, up, cbViewCard, r.viewCardByID)
	case strings.HasPrefix(data, cbDeleteCard):
		return r.withCardID(ctx, log, up, cbDeleteCard, r.deletePrompt)
	case strings.HasPrefix(data, cbMarkPaid):
		return r.withCardID(ctx, log, up, cbMarkPaid, r.markPaid)
	case strings.HasPrefix(data, cbSetBilling):
		return r.withCardID(ctx, log, up, cbSetBilling, r.startBilling)
	case strings.HasPrefix(data, cbUpdateAmount):
		return r.withCardID(ctx, log, up, cbUpdateAmount, r.startAmount)
	case strings.HasPrefix(data, cbSetGraceDays):
		return r.withCardID(ctx, log, up, cbSetGraceDays, r.startGrace)
	}
	log.Debug(ctx, "ignoring unknown callback", "payload", data)
	return nil
}

// withCardID parses the card id following prefix and hands it to fn. Buttons
// are the only source of these payloads, so a parse failure means a broken
// client and gets the generic failure reply.
func (r *Router) withCardID(ctx context.Context, log logging.Logger, up Update, prefix string, fn func(context.Context, logging.Logger, int64, int64) *Message) *Message {
	id, err := strconv.ParseInt(strings.TrimPrefix(up.Callback, prefix), 10, 64)
	if err != nil {
		log.Warn(ctx, "malformed callback payload", "payload", up.Callback)
		return editMessage(failureText)
	}
	return fn(ctx, log, up.UserID, id)
}

func (r *Router) formField(ctx context.Context, log logging.Logger, userID int64, field models.Field) *Message {
	if err := r.form.SelectField(ctx, userID, field); err != nil {
		return r.failure(ctx, log, "select form field", err)
	}
	return fieldPromptMessage(field)
}

func (r *Router) formDone(ctx context.Context, log logging.Logger, userID int64) *Message {
	res, err := r.form.Done(ctx, userID)
	if err != nil {
		return r.failure(ctx, log, "finish form", err)
	}
	switch res.Status {
	case services.DoneCreated:
		return cardCreatedMessage(res.Card)
	case services.DoneIncomplete:
		return incompleteFormMessage(res.Missing)
	case services.DoneDuplicate:
		return duplicateFormMessage()
	case services.DoneNoSession:
		return editMessage("No card form is in progress. Use /add_card to start one.")
	}
	return nil
}

func (r *Router) formCancel(ctx context.Context, log logging.Logger, userID int64) *Message {
	if err := r.form.Cancel(ctx, userID); err != nil {
		return r.failure(ctx, log, "cancel form", err)
	}
	return editMessage("Card entry cancelled.")
}

func (r *Router) viewCardByID(ctx context.Context, log logging.Logger, userID, cardID int64) *Message {
	card, err := r.cards.Get(ctx, userID, cardID)
	if isNotFound(err) {
		return editMessage(cardNotFoundText)
	}
	if err != nil {
		return r.failure(ctx, log, "get card", err)
	}
	return cardDetailsMessage(card, r.now(), true)
}

func (r *Router) deletePrompt(ctx context.Context, log logging.Logger, userID, cardID int64) *Message {
	card, err := r.cards.Get(ctx, userID, cardID)
	if isNotFound(err) {
		return editMessage(cardNotFoundText)
	}
	if err != nil {
		return r.failure(ctx, log, "get card", err)
	}
	return deleteConfirmMessage(card, true)
}

func (r *Router) confirmDelete(ctx context.Context, log logging.Logger, userID, cardID int64) *Message {
	card, err := r.cards.Get(ctx, userID, cardID)
	if isNotFound(err) {
		return editMessage(cardNotFoundText)
	}
	if err != nil {
		return r.failure(ctx, log, "get card", err)
	}
	deleted, err := r.cards.Delete(ctx, userID, cardID)
	if err != nil {
		return r.failure(ctx, log, "delete card", err)
	}
	if !deleted {
		return editMessage(cardNotFoundText)
	}
	return editMessage("Deleted " + card.Bank + " " + maskedNumber(card) + ".")
}

func (r *Router) markPaid(ctx context.Context, log logging.Logger, userID, cardID int64) *Message {
	card, err := r.cards.MarkPaid(ctx, userID, cardID)
	if isNotFound(err) {
		return editMessage(cardNotFoundText)
	}
	if err != nil {
		return r.failure(ctx, log, "mark bill paid", err)
	}
	return markPaidMessage(card)
}

func (r *Router) startBilling(ctx context.Context, log logging.Logger, userID, cardID int64) *Message {
	card, err := r.form.StartBilling(ctx, userID, cardID)
	if isNotFound(err) {
		return editMessage(cardNotFoundText)
	}
	if err != nil {
		return r.failure(ctx, log, "start billing setup", err)
	}
	return editMessage("Setting billing for " + card.Bank + " " + maskedNumber(card) + ".\n\nEnter the billing day of the month (1-31):")
}

func (r *Router) startAmount(ctx context.Context, log logging.Logger, userID, cardID int64) *Message {
	card, err := r.form.StartAmountUpdate(ctx, userID, cardID)
	if isNotFound(err) {
		return editMessage(cardNotFoundText)
	}
	if err != nil {
		return r.failure(ctx, log, "start amount update", err)
	}
	return editMessage("Updating the bill amount for " + card.Bank + " " + maskedNumber(card) +
		" (currently " + fmtAmount(card.BillAmount) + ").\n\nEnter the new bill amount:")
}

func (r *Router) startGrace(ctx context.Context, log logging.Logger, userID, cardID int64) *Message {
	card, err := r.form.StartGraceDays(ctx, userID, cardID)
	if isNotFound(err) {
		return editMessage(cardNotFoundText)
	}
	if err != nil {
		return r.failure(ctx, log, "start grace-days update", err)
	}
	return editMessage("Setting the payment window for " + card.Bank + " " + maskedNumber(card) +
		" (currently " + strconv.Itoa(card.GraceDays) + " days).\n\nEnter how many days after the billing date payment is due (1-60):")
}

func (r *Router) dueList(ctx context.Context, log logging.Logger, userID int64) *Message {
	due, err := r.cards.ListDue(ctx, userID)
	if err != nil {
		return r.failure(ctx, log, "list due bills", err)
	}
	return dueListMessage(due, r.now(), true)
}

func (r *Router) pendingList(ctx context.Context, log logging.Logger, userID int64) *Message {
	pending, err := r.cards.ListPending(ctx, userID)
	if err != nil {
		return r.failure(ctx, log, "list pending bills", err)
	}
	return pendingListMessage(pending, true)
}

func (r *Router) allCards(ctx context.Context, log logging.Logger, userID int64) *Message {
	cards, err := r.cards.List(ctx, userID)
	if err != nil {
		return r.failure(ctx, log, "list cards", err)
	}
	if len(cards) == 0 {
		return editMessage(noCardsText)
	}
	return cardListMessage("Your cards:", cards, cbViewCard, true)
}
