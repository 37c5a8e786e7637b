package creation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/txfeed/internal/logging"
	"github.com/carson-networks/txfeed/internal/operator/actions"
	"github.com/carson-networks/txfeed/internal/service"
)

// FieldAmount is the only user-supplied field of a new transaction.
const FieldAmount = "amount"

const (
	msgAmountRequired  = "El monto es requerido"
	msgAmountNumeric   = "El monto debe ser numerico"
	msgAmountMin       = "El monto debe ser mayor o igual a 1"
	msgAmountTooLong   = "El monto es demasiado largo"
	msgAmountTooLarge  = "El monto excede el maximo permitido"
	msgAmountPrecision = "El monto admite como maximo 18 decimales"
)

const (
	maxAmountLength  = 64
	maxIntegerDigits = 18
	maxScale         = 18
)

var minAmount = decimal.NewFromInt(1)

// CreationState is what the user sees about the last submission.
type CreationState struct {
	Pending     bool              `json:"pending"`
	Message     string            `json:"message,omitempty"`
	Error       string            `json:"error,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

type processor interface {
	Process(ctx context.Context, action actions.IAction) error
}

type refresher interface {
	RefreshNow() bool
}

// Submitter validates a draft amount and registers it through the operator queue.
// A successful creation clears the draft and asks the feed for a refresh.
type Submitter struct {
	processor processor
	refresher refresher
	logger    *logrus.Logger

	// submitMu serializes attempts so Pending tracks the call in flight.
	submitMu sync.Mutex

	mu     sync.Mutex
	state  CreationState
	amount string
}

func NewSubmitter(p processor, r refresher, logger *logrus.Logger) *Submitter {
	return &Submitter{
		processor: p,
		refresher: r,
		logger:    logger,
	}
}

// SetAmount replaces the draft input.
func (s *Submitter) SetAmount(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.amount = raw
}

// Amount returns the draft input.
func (s *Submitter) Amount() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.amount
}

// State returns a copy of the current Creation State.
func (s *Submitter) State() CreationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SubmitAmount sets the draft to raw and submits it.
func (s *Submitter) SubmitAmount(ctx context.Context, raw string) (CreationState, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	s.SetAmount(raw)
	return s.submit(ctx)
}

// Submit validates the draft and, when valid, creates the transaction. The
// returned error is non-nil only for a *service.ValidationError; service
// failures are reported through CreationState.Error. Concurrent calls run one
// after the other.
func (s *Submitter) Submit(ctx context.Context) (CreationState, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	return s.submit(ctx)
}

func (s *Submitter) submit(ctx context.Context) (CreationState, error) {
	s.mu.Lock()
	amount, vErr := ParseAmount(s.amount)
	if vErr != nil {
		s.state.FieldErrors = vErr.Fields
		state := s.snapshotLocked()
		s.mu.Unlock()
		return state, vErr
	}
	s.state = CreationState{Pending: true}
	s.mu.Unlock()

	s.create(ctx, amount)
	return s.State(), nil
}

func (s *Submitter) create(ctx context.Context, amount decimal.Decimal) {
	defer func() {
		s.mu.Lock()
		s.state.Pending = false
		s.mu.Unlock()
	}()

	logData := logging.GetLogData(ctx)
	if logData == nil {
		logData = logging.NewLogData(s.logger)
	}
	logData.AddData("amount", amount.String())

	action := &actions.CreateTransaction{Amount: amount}
	stopTimer := logData.AddTiming("createTransactionMs")
	err := s.processor.Process(ctx, action)
	stopTimer()

	s.mu.Lock()
	if err != nil {
		s.state.Error = service.UserMessage(err)
	} else {
		s.state.Message = fmt.Sprintf("Transaccion #%d registrada", action.Created.ID)
		s.amount = ""
	}
	s.mu.Unlock()

	switch {
	case err == nil:
		logData.AddData("transactionID", action.Created.ID)
		logData.Log().Info("CreationSubmitter.Submit.Complete")
		s.refresher.RefreshNow()
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// The worker may still have registered it; let the feed tell.
		logData.Log().WithError(err).Warn("CreationSubmitter.Submit.Abandoned")
		s.refresher.RefreshNow()
	default:
		logData.Log().WithError(err).Warn("CreationSubmitter.Submit.Error")
	}
}

func (s *Submitter) snapshotLocked() CreationState {
	state := s.state
	if s.state.FieldErrors != nil {
		state.FieldErrors = make(map[string]string, len(s.state.FieldErrors))
		for k, v := range s.state.FieldErrors {
			state.FieldErrors[k] = v
		}
	}
	return state
}

// ParseAmount checks a raw amount the way the form does: required, numeric and
// at least 1. Amounts are also bounded in length, integer digits and scale.
func ParseAmount(raw string) (decimal.Decimal, *service.ValidationError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, fieldError(msgAmountRequired)
	}
	if len(raw) > maxAmountLength {
		return decimal.Decimal{}, fieldError(msgAmountTooLong)
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fieldError(msgAmountNumeric)
	}

	if amount.Sign() <= 0 {
		return decimal.Decimal{}, fieldError(msgAmountMin)
	}

	// Checked before any arithmetic: a huge exponent would be expanded by Cmp or String.
	exp := int64(amount.Exponent())
	if exp < -maxScale {
		return decimal.Decimal{}, fieldError(msgAmountPrecision)
	}
	if int64(len(amount.Coefficient().String()))+exp > maxIntegerDigits {
		return decimal.Decimal{}, fieldError(msgAmountTooLarge)
	}

	if amount.LessThan(minAmount) {
		return decimal.Decimal{}, fieldError(msgAmountMin)
	}
	return amount, nil
}

func fieldError(msg string) *service.ValidationError {
	return &service.ValidationError{Fields: map[string]string{FieldAmount: msg}}
}
