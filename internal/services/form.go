package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mpetrov/cardkeeper/internal/common"
	"github.com/mpetrov/cardkeeper/internal/logging"
	"github.com/mpetrov/cardkeeper/internal/models"
	"github.com/mpetrov/cardkeeper/internal/repositories/repomanager"
	"github.com/mpetrov/cardkeeper/internal/validation"
)

// FormService drives the card-entry form: it keeps the per-user session,
// validates each input against the state that expects it, and commits the
// scratch buffer once it is complete. Expected outcomes (invalid input,
// duplicates, missing fields) are reported as typed results; only storage
// faults surface as errors.
type FormService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	cards *CardService
	log   logging.Logger
}

// NewFormService constructs a FormService sharing the CardService used for
// commits.
func NewFormService(db *sql.DB, m repomanager.RepositoryManager, cards *CardService, log logging.Logger) *FormService {
	return &FormService{db: db, repos: m, cards: cards, log: log}
}

// InputStatus classifies what a free-text message did to the form.
type InputStatus int

const (
	// InputIgnored means no form was awaiting text.
	InputIgnored InputStatus = iota
	// InputInvalid means the validator rejected the text; nothing changed.
	InputInvalid
	// InputSaved means a base field was stored and the form is idle again.
	InputSaved
	// InputNeedAmount means the billing day was stored and the bill amount
	// is expected next.
	InputNeedAmount
	// InputBillingDone means the billing chain committed and the session
	// is gone.
	InputBillingDone
	// InputAmountDone means the amount-only update committed and the
	// session is gone.
	InputAmountDone
	// InputGraceDone means the grace-days update committed and the session
	// is gone.
	InputGraceDone
	// InputCardGone means the chain's target card no longer exists; the
	// session is cleared.
	InputCardGone
)

// InputResult reports the outcome of one text message.
type InputResult struct {
	Status InputStatus
	// State is the form state that consumed the text.
	State models.FormState
	// Field is the base field affected, for InputSaved and InputInvalid.
	Field models.Field
	// Form is the scratch buffer after the mutation.
	Form *models.FormData
}

// DoneStatus classifies the outcome of a done event.
type DoneStatus int

const (
	// DoneCreated means the form committed as a new card.
	DoneCreated DoneStatus = iota
	// DoneIncomplete means required fields are missing; the session survives.
	DoneIncomplete
	// DoneDuplicate means a card with this number already exists; the
	// session survives.
	DoneDuplicate
	// DoneNoSession means there was nothing to commit (stale button).
	DoneNoSession
)

// DoneResult reports the outcome of a done event.
type DoneResult struct {
	Status  DoneStatus
	Card    *models.Card
	Missing []models.Field
	Form    *models.FormData
}

// Start begins a fresh add-card form, replacing any previous session.
func (s *FormService) Start(ctx context.Context, userID int64) (*models.FormData, error) {
	form := &models.FormData{}
	if err := s.save(ctx, userID, models.StateIdle, form); err != nil {
		return nil, err
	}
	return form, nil
}

// SelectField moves an idle form into the state awaiting the given field.
// Selecting a field with no session starts one, so stale keyboards keep
// working after a restart.
func (s *FormService) SelectField(ctx context.Context, userID int64, field models.Field) error {
	state, ok := stateForField(field)
	if !ok {
		return fmt.Errorf("unknown form field: %s", field)
	}
	_, form, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if form == nil {
		form = &models.FormData{}
	}
	return s.save(ctx, userID, state, form)
}

// StartBilling seeds a billing chain for the card: the next two inputs are
// the billing day and the bill amount. Returns the target card, or
// common.ErrNotFound when it does not exist for this user.
func (s *FormService) StartBilling(ctx context.Context, userID, cardID int64) (*models.Card, error) {
	return s.startChain(ctx, userID, cardID, models.StateAwaitingBillingDay)
}

// StartAmountUpdate seeds an amount-only chain: the next input updates the
// bill amount without touching dates.
func (s *FormService) StartAmountUpdate(ctx context.Context, userID, cardID int64) (*models.Card, error) {
	return s.startChain(ctx, userID, cardID, models.StateAwaitingBillAmount)
}

// StartGraceDays seeds a grace-days chain: the next input updates the
// payment grace period.
func (s *FormService) StartGraceDays(ctx context.Context, userID, cardID int64) (*models.Card, error) {
	return s.startChain(ctx, userID, cardID, models.StateAwaitingGraceDays)
}

func (s *FormService) startChain(ctx context.Context, userID, cardID int64, state models.FormState) (*models.Card, error) {
	card, err := s.cards.Get(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, userID, state, &models.FormData{CardID: cardID}); err != nil {
		return nil, err
	}
	return card, nil
}

// Input feeds one text message to the form.
func (s *FormService) Input(ctx context.Context, userID int64, text string) (*InputResult, error) {
	state, form, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if form == nil || state == models.StateIdle {
		return &InputResult{Status: InputIgnored, State: state}, nil
	}

	switch state {
	case models.StateAwaitingBankName:
		if !validation.BankName(text) {
			return s.invalid(state, models.FieldBank, form), nil
		}
		form.Bank = text
		return s.fieldSaved(ctx, userID, state, models.FieldBank, form)

	case models.StateAwaitingCardNumber:
		cleaned, ok := validation.CardNumber(text)
		if !ok {
			return s.invalid(state, models.FieldNumber, form), nil
		}
		if len(cleaned) == 4 {
			form.Number = cleaned
			form.FullNumber = ""
		} else {
			form.FullNumber = cleaned
			form.Number = cleaned[len(cleaned)-4:]
		}
		return s.fieldSaved(ctx, userID, state, models.FieldNumber, form)

	case models.StateAwaitingExpiryDate:
		if !validation.Expiry(text) {
			return s.invalid(state, models.FieldExpiry, form), nil
		}
		form.Expiry = text
		return s.fieldSaved(ctx, userID, state, models.FieldExpiry, form)

	case models.StateAwaitingCVV:
		if !validation.CVV(text) {
			return s.invalid(state, models.FieldCVV, form), nil
		}
		form.CVV = text
		return s.fieldSaved(ctx, userID, state, models.FieldCVV, form)

	case models.StateAwaitingBillingDay:
		day, ok := validation.BillingDay(text)
		if !ok {
			return s.invalid(state, "", form), nil
		}
		form.BillingDay = day
		if err := s.save(ctx, userID, models.StateAwaitingBillAmount, form); err != nil {
			return nil, err
		}
		return &InputResult{Status: InputNeedAmount, State: state, Form: form}, nil

	case models.StateAwaitingBillAmount:
		amount, ok := validation.BillAmount(text)
		if !ok {
			return s.invalid(state, "", form), nil
		}
		form.BillAmount = amount
		return s.commitChain(ctx, userID, state, form)

	case models.StateAwaitingGraceDays:
		days, ok := validation.GraceDays(text)
		if !ok {
			return s.invalid(state, "", form), nil
		}
		form.GraceDays = days
		return s.commitChain(ctx, userID, state, form)
	}

	// Valid() filtered unknown states in load; nothing to do here.
	return &InputResult{Status: InputIgnored, State: state}, nil
}

// commitChain finishes the billing, amount-only, or grace-days chain and
// clears the session.
func (s *FormService) commitChain(ctx context.Context, userID int64, state models.FormState, form *models.FormData) (*InputResult, error) {
	if form.CardID == 0 {
		// The chain lost its target card; drop the broken session.
		if err := s.clear(ctx, userID); err != nil {
			return nil, err
		}
		return &InputResult{Status: InputCardGone, State: state, Form: form}, nil
	}

	var (
		err    error
		status InputStatus
	)
	switch {
	case state == models.StateAwaitingGraceDays:
		status = InputGraceDone
		err = s.cards.UpdateGraceDays(ctx, userID, form.CardID, form.GraceDays)
	case form.BillingDay > 0:
		status = InputBillingDone
		err = s.cards.SetBilling(ctx, userID, form.CardID, form.BillingDay, form.BillAmount, DefaultGraceDays)
	default:
		status = InputAmountDone
		err = s.cards.UpdateAmount(ctx, userID, form.CardID, form.BillAmount)
	}

	if errors.Is(err, common.ErrNotFound) {
		if cerr := s.clear(ctx, userID); cerr != nil {
			return nil, cerr
		}
		return &InputResult{Status: InputCardGone, State: state, Form: form}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.clear(ctx, userID); err != nil {
		return nil, err
	}
	return &InputResult{Status: status, State: state, Form: form}, nil
}

// Done commits a complete form, or reports what is still missing.
func (s *FormService) Done(ctx context.Context, userID int64) (*DoneResult, error) {
	_, form, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return &DoneResult{Status: DoneNoSession}, nil
	}
	if missing := form.Missing(); len(missing) > 0 {
		return &DoneResult{Status: DoneIncomplete, Missing: missing, Form: form}, nil
	}

	card, err := s.cards.Create(ctx, userID, form)
	if errors.Is(err, common.ErrDuplicate) {
		return &DoneResult{Status: DoneDuplicate, Form: form}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.clear(ctx, userID); err != nil {
		return nil, err
	}
	return &DoneResult{Status: DoneCreated, Card: card, Form: form}, nil
}

// Cancel abandons the form unconditionally.
func (s *FormService) Cancel(ctx context.Context, userID int64) error {
	return s.clear(ctx, userID)
}

// load returns the current state and scratch. A missing row, a corrupt
// scratch blob, or an unknown state all come back as (idle, nil): corrupt
// rows are deleted on sight so the next interaction starts clean.
func (s *FormService) load(ctx context.Context, userID int64) (models.FormState, *models.FormData, error) {
	sess, err := s.repos.Sessions(s.db).Get(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return models.StateIdle, nil, nil
	}
	if err != nil {
		return models.StateIdle, nil, err
	}

	form, derr := models.DecodeFormData(sess.Scratch)
	if derr != nil || !sess.State.Valid() {
		s.log.Warn(ctx, "dropping corrupt session", "user_id", userID, "state", string(sess.State))
		if err := s.clear(ctx, userID); err != nil {
			return models.StateIdle, nil, err
		}
		return models.StateIdle, nil, nil
	}
	return sess.State, form, nil
}

func (s *FormService) save(ctx context.Context, userID int64, state models.FormState, form *models.FormData) error {
	scratch, err := form.Encode()
	if err != nil {
		return err
	}
	return s.repos.Sessions(s.db).Save(ctx, &models.Session{
		UserID:  userID,
		State:   state,
		Scratch: scratch,
	})
}

func (s *FormService) clear(ctx context.Context, userID int64) error {
	return s.repos.Sessions(s.db).Delete(ctx, userID)
}

func (s *FormService) invalid(state models.FormState, field models.Field, form *models.FormData) *InputResult {
	return &InputResult{Status: InputInvalid, State: state, Field: field, Form: form}
}

func (s *FormService) fieldSaved(ctx context.Context, userID int64, state models.FormState, field models.Field, form *models.FormData) (*InputResult, error) {
	if err := s.save(ctx, userID, models.StateIdle, form); err != nil {
		return nil, err
	}
	return &InputResult{Status: InputSaved, State: state, Field: field, Form: form}, nil
}

func stateForField(f models.Field) (models.FormState, bool) {
	switch f {
	case models.FieldBank:
		return models.StateAwaitingBankName, true
	case models.FieldNumber:
		return models.StateAwaitingCardNumber, true
	case models.FieldExpiry:
		return models.StateAwaitingExpiryDate, true
	case models.FieldCVV:
		return models.StateAwaitingCVV, true
	}
	return "", false
}
