package flow

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/punchamoorthee/billpay/internal/billing"
	"github.com/punchamoorthee/billpay/internal/gateway"
)

// State is the session's position in the payment flow. Confirmed is not a
// stored state: it is BalanceLoaded with the confirmation flag set on an
// eligible balance, and Snapshot derives it.
type State string

const (
	StateIdle          State = "idle"
	StateBalanceLoaded State = "balance_loaded"
	StateConfirmed     State = "confirmed"
	StateProcessing    State = "processing"
	StateSucceeded     State = "succeeded"
)

// FailureKind mirrors the error taxonomy the flow surfaces to users.
type FailureKind string

const (
	FailValidation         FailureKind = "validation_error"
	FailAccountNotFound    FailureKind = "account_not_found"
	FailNothingToPay       FailureKind = "nothing_to_pay"
	FailValidationRejected FailureKind = "validation_rejected"
	FailGateway            FailureKind = "gateway_failure"
)

// Failure is a transient, dismissible error attached to the session. It never
// terminates the session; the user recovers by editing, re-confirming or
// resetting.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// MsgConfirmationRequired prompts for the confirmation gate.
const MsgConfirmationRequired = "Confirm to make a bill payment..."

// ErrOperationInFlight rejects a gateway-bound operation while another one is
// still pending; transitions are strictly serialized per session.
var ErrOperationInFlight = errors.New("another operation is in flight for this session")

// Gateway is the remote capability the session needs. It is satisfied by
// *gateway.Client and by test doubles.
type Gateway interface {
	FetchBalance(ctx context.Context, cred gateway.Credential, id billing.AccountID) (billing.AccountBalance, error)
	SubmitPayment(ctx context.Context, cred gateway.Credential, payment billing.BillPaymentRequest) (billing.BillPaymentResponse, error)
}

// Session drives one user's bill-payment interaction from account-id entry
// through success or reset. All fields are owned by the session and guarded
// by mu; the generation counter lets a reset discard results of calls that
// were in flight when it happened.
type Session struct {
	mu   sync.Mutex
	gw   Gateway
	cred gateway.Credential
	log  *zap.Logger

	gen       uint64
	busy      bool
	state     State
	accountID string
	balance   *billing.AccountBalance
	confirmed bool
	failure   *Failure
	result    *billing.BillPaymentResponse
}

// Snapshot is an immutable view of the session for callers and renderers.
type Snapshot struct {
	State     State                        `json:"state"`
	AccountID string                       `json:"accountId"`
	Balance   *billing.AccountBalance      `json:"balance,omitempty"`
	Confirmed bool                         `json:"confirmed"`
	Failure   *Failure                     `json:"failure,omitempty"`
	Result    *billing.BillPaymentResponse `json:"result,omitempty"`
}

func NewSession(gw Gateway, cred gateway.Credential, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{gw: gw, cred: cred, log: log, state: StateIdle}
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	state := s.state
	if state == StateBalanceLoaded && s.confirmed && s.balance != nil && billing.CanProcessPayment(s.balance.CurrentBalance) {
		state = StateConfirmed
	}
	snap := Snapshot{
		State:     state,
		AccountID: s.accountID,
		Confirmed: s.confirmed,
	}
	if s.balance != nil {
		b := *s.balance
		snap.Balance = &b
	}
	if s.failure != nil {
		f := *s.failure
		snap.Failure = &f
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}

// EditAccountID replaces the account-id input. Any held balance, confirmation,
// failure or success record is unconditionally discarded: a stale balance must
// never survive an id change. Rejected while a remote call is pending.
func (s *Session) EditAccountID(raw string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return s.snapshotLocked(), ErrOperationInFlight
	}
	s.gen++
	s.accountID = raw
	s.balance = nil
	s.confirmed = false
	s.failure = nil
	s.result = nil
	s.state = StateIdle
	return s.snapshotLocked(), nil
}

// RetrieveBalance validates the account id and fetches its balance snapshot.
// Validation failures are recorded locally without touching the gateway. An
// ineligible (zero or negative) balance is still loaded, with a
// "nothing to pay" failure attached so no confirmation is offered.
func (s *Session) RetrieveBalance(ctx context.Context, raw string) (Snapshot, error) {
	s.mu.Lock()
	if s.busy {
		defer s.mu.Unlock()
		return s.snapshotLocked(), ErrOperationInFlight
	}

	s.accountID = raw
	s.balance = nil
	s.confirmed = false
	s.failure = nil
	s.result = nil

	id, err := billing.ValidateAccountID(raw)
	if err != nil {
		s.state = StateIdle
		s.failure = &Failure{Kind: FailValidation, Message: validationMessage(err)}
		defer s.mu.Unlock()
		return s.snapshotLocked(), nil
	}

	s.busy = true
	gen := s.gen
	s.mu.Unlock()

	balance, err := s.gw.FetchBalance(ctx, s.cred, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// Session was reset or replaced while the call was in flight.
		s.log.Debug("discarding stale balance result", zap.String("account_id", id.String()))
		return s.snapshotLocked(), nil
	}
	s.busy = false

	if err != nil {
		s.state = StateIdle
		s.failure = mapGatewayFailure(err)
		return s.snapshotLocked(), nil
	}

	s.state = StateBalanceLoaded
	s.balance = &balance
	if !billing.CanProcessPayment(balance.CurrentBalance) {
		s.failure = &Failure{Kind: FailNothingToPay, Message: gateway.MsgNothingToPay}
	}
	return s.snapshotLocked(), nil
}

// SetConfirmation records the UI-level half of the confirmation gate.
// Confirming requires an eligible loaded balance; withdrawing confirmation is
// always permitted.
func (s *Session) SetConfirmation(confirm bool) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return s.snapshotLocked(), ErrOperationInFlight
	}

	if !confirm {
		s.confirmed = false
		return s.snapshotLocked(), nil
	}

	if s.state != StateBalanceLoaded || s.balance == nil {
		s.failure = &Failure{Kind: FailValidation, Message: MsgConfirmationRequired}
		return s.snapshotLocked(), nil
	}
	if !billing.CanProcessPayment(s.balance.CurrentBalance) {
		s.failure = &Failure{Kind: FailNothingToPay, Message: gateway.MsgNothingToPay}
		return s.snapshotLocked(), nil
	}

	s.confirmed = true
	s.failure = nil
	return s.snapshotLocked(), nil
}

// SubmitPayment submits the held balance for full payment. The preconditions
// are rechecked here regardless of what the caller believes the state to be:
// balance present, confirmation set, balance eligible. On gateway failure the
// balance is retained but confirmation resets, forcing re-assertion before a
// retry. On success the session is complete and the stale balance discarded.
func (s *Session) SubmitPayment(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.busy {
		defer s.mu.Unlock()
		return s.snapshotLocked(), ErrOperationInFlight
	}

	if s.balance == nil {
		s.failure = &Failure{Kind: FailValidation, Message: MsgConfirmationRequired}
		defer s.mu.Unlock()
		return s.snapshotLocked(), nil
	}
	if !billing.CanProcessPayment(s.balance.CurrentBalance) {
		s.failure = &Failure{Kind: FailNothingToPay, Message: gateway.MsgNothingToPay}
		defer s.mu.Unlock()
		return s.snapshotLocked(), nil
	}
	if !s.confirmed {
		s.failure = &Failure{Kind: FailValidation, Message: MsgConfirmationRequired}
		defer s.mu.Unlock()
		return s.snapshotLocked(), nil
	}

	payment := billing.BillPaymentRequest{
		AccountID:      s.balance.AccountID,
		ConfirmPayment: true,
	}
	s.state = StateProcessing
	s.failure = nil
	s.busy = true
	gen := s.gen
	s.mu.Unlock()

	committed, err := s.gw.SubmitPayment(ctx, s.cred, payment)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.log.Debug("discarding stale payment result", zap.String("account_id", payment.AccountID.String()))
		return s.snapshotLocked(), nil
	}
	s.busy = false

	if err != nil {
		s.state = StateBalanceLoaded
		s.confirmed = false
		s.failure = mapGatewayFailure(err)
		return s.snapshotLocked(), nil
	}

	s.state = StateSucceeded
	s.result = &committed
	s.balance = nil
	s.confirmed = false
	s.accountID = ""
	return s.snapshotLocked(), nil
}

// Reset clears every session field and invalidates any in-flight call's
// result. Permitted at any time, including mid-processing.
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.busy = false
	s.state = StateIdle
	s.accountID = ""
	s.balance = nil
	s.confirmed = false
	s.failure = nil
	s.result = nil
	return s.snapshotLocked()
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, billing.ErrEmptyAccountID):
		return "Acct ID can NOT be empty..."
	case errors.Is(err, billing.ErrAccountIDTooLong):
		return "Account ID must be 11 characters or less"
	default:
		return err.Error()
	}
}

func mapGatewayFailure(err error) *Failure {
	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) {
		return &Failure{Kind: FailGateway, Message: gateway.MsgPaymentFailed}
	}
	switch gwErr.Kind {
	case gateway.KindAccountNotFound:
		return &Failure{Kind: FailAccountNotFound, Message: gwErr.Message}
	case gateway.KindNothingToPay:
		return &Failure{Kind: FailNothingToPay, Message: gwErr.Message}
	case gateway.KindValidationRejected:
		return &Failure{Kind: FailValidationRejected, Message: gwErr.Message}
	default:
		return &Failure{Kind: FailGateway, Message: gwErr.Message}
	}
}
