package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/billpay/internal/billing"
	"github.com/punchamoorthee/billpay/internal/gateway"
)

type fakeGateway struct {
	fetch  func(ctx context.Context, cred gateway.Credential, id billing.AccountID) (billing.AccountBalance, error)
	submit func(ctx context.Context, cred gateway.Credential, payment billing.BillPaymentRequest) (billing.BillPaymentResponse, error)
}

func (f *fakeGateway) FetchBalance(ctx context.Context, cred gateway.Credential, id billing.AccountID) (billing.AccountBalance, error) {
	if f.fetch == nil {
		panic("unexpected FetchBalance call")
	}
	return f.fetch(ctx, cred, id)
}

func (f *fakeGateway) SubmitPayment(ctx context.Context, cred gateway.Credential, payment billing.BillPaymentRequest) (billing.BillPaymentResponse, error) {
	if f.submit == nil {
		panic("unexpected SubmitPayment call")
	}
	return f.submit(ctx, cred, payment)
}

func balanceOf(id string, amount string) billing.AccountBalance {
	return billing.AccountBalance{
		AccountID:      billing.AccountID(id),
		CurrentBalance: decimal.RequireFromString(amount),
	}
}

// loadedSession returns a session with a balance retrieved for the given
// account.
func loadedSession(t *testing.T, gw *fakeGateway, id, amount string) *Session {
	t.Helper()
	prev := gw.fetch
	gw.fetch = func(context.Context, gateway.Credential, billing.AccountID) (billing.AccountBalance, error) {
		return balanceOf(id, amount), nil
	}
	s := NewSession(gw, "token", nil)
	snap, err := s.RetrieveBalance(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, StateBalanceLoaded, snap.State)
	gw.fetch = prev
	return s
}

func TestRetrieveBalanceEmptyIDNeverHitsGateway(t *testing.T) {
	s := NewSession(&fakeGateway{}, "token", nil)

	snap, err := s.RetrieveBalance(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, FailValidation, snap.Failure.Kind)
	assert.Equal(t, "Acct ID can NOT be empty...", snap.Failure.Message)
	assert.Nil(t, snap.Balance)
}

func TestRetrieveBalanceTooLongIDNeverHitsGateway(t *testing.T) {
	s := NewSession(&fakeGateway{}, "token", nil)

	snap, err := s.RetrieveBalance(context.Background(), "123456789012")
	require.NoError(t, err)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, FailValidation, snap.Failure.Kind)
	assert.Equal(t, "Account ID must be 11 characters or less", snap.Failure.Message)
}

func TestRetrieveBalanceSuccess(t *testing.T) {
	gw := &fakeGateway{
		fetch: func(_ context.Context, cred gateway.Credential, id billing.AccountID) (billing.AccountBalance, error) {
			assert.Equal(t, gateway.Credential("token"), cred)
			assert.Equal(t, billing.AccountID("00123456789"), id)
			return balanceOf("00123456789", "150.00"), nil
		},
	}
	s := NewSession(gw, "token", nil)

	snap, err := s.RetrieveBalance(context.Background(), " 00123456789 ")
	require.NoError(t, err)
	assert.Equal(t, StateBalanceLoaded, snap.State)
	require.NotNil(t, snap.Balance)
	assert.True(t, snap.Balance.CurrentBalance.Equal(decimal.RequireFromString("150.00")))
	assert.Nil(t, snap.Failure)
	assert.False(t, snap.Confirmed)
}

func TestRetrieveBalanceAccountNotFound(t *testing.T) {
	gw := &fakeGateway{
		fetch: func(context.Context, gateway.Credential, billing.AccountID) (billing.AccountBalance, error) {
			return billing.AccountBalance{}, &gateway.Error{Kind: gateway.KindAccountNotFound, Message: gateway.MsgAccountNotFound}
		},
	}
	s := NewSession(gw, "token", nil)

	snap, err := s.RetrieveBalance(context.Background(), "99999999999")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Balance)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, FailAccountNotFound, snap.Failure.Kind)
}

func TestRetrieveBalanceGatewayFailure(t *testing.T) {
	gw := &fakeGateway{
		fetch: func(context.Context, gateway.Credential, billing.AccountID) (billing.AccountBalance, error) {
			return billing.AccountBalance{}, &gateway.Error{Kind: gateway.KindGatewayFailure, Message: gateway.MsgBalanceUnavailable}
		},
	}
	s := NewSession(gw, "token", nil)

	snap, err := s.RetrieveBalance(context.Background(), "00123456789")
	require.NoError(t, err)
	assert.Nil(t, snap.Balance)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, FailGateway, snap.Failure.Kind)
}

func TestRetrieveBalanceNothingToPay(t *testing.T) {
	gw := &fakeGateway{
		fetch: func(context.Context, gateway.Credential, billing.AccountID) (billing.AccountBalance, error) {
			return balanceOf("00000000010", "0.00"), nil
		},
	}
	s := NewSession(gw, "token", nil)

	snap, err := s.RetrieveBalance(context.Background(), "00000000010")
	require.NoError(t, err)
	// The balance is loaded but flagged ineligible; no confirmation offered.
	assert.Equal(t, StateBalanceLoaded, snap.State)
	require.NotNil(t, snap.Balance)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, FailNothingToPay, snap.Failure.Kind)

	snap, err = s.SetConfirmation(true)
	require.NoError(t, err)
	assert.False(t, snap.Confirmed)
	assert.Equal(t, FailNothingToPay, snap.Failure.Kind)
}

func TestEditAccountIDDiscardsSessionState(t *testing.T) {
	gw := &fakeGateway{}
	s := loadedSession(t, gw, "12345678901", "250.00")

	snap, err := s.SetConfirmation(true)
	require.NoError(t, err)
	require.True(t, snap.Confirmed)
	require.Equal(t, StateConfirmed, snap.State)

	snap, err = s.EditAccountID("12345678902")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, "12345678902", snap.AccountID)
	assert.Nil(t, snap.Balance)
	assert.False(t, snap.Confirmed)
	assert.Nil(t, snap.Failure)
	assert.Nil(t, snap.Result)
}

func TestSetConfirmationWithoutBalance(t *testing.T) {
	s := NewSession(&fakeGateway{}, "token", nil)

	snap, err := s.SetConfirmation(true)
	require.NoError(t, err)
	assert.False(t, snap.Confirmed)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, FailValidation, snap.Failure.Kind)
	assert.Equal(t, MsgConfirmationRequired, snap.Failure.Message)
}

func TestSetConfirmationWithdrawAlwaysPermitted(t *testing.T) {
	gw := &fakeGateway{}
	s := loadedSession(t, gw, "12345678901", "250.00")

	_, err := s.SetConfirmation(true)
	require.NoError(t, err)
	snap, err := s.SetConfirmation(false)
	require.NoError(t, err)
	assert.False(t, snap.Confirmed)
	assert.Equal(t, StateBalanceLoaded, snap.State)
}

func TestSubmitPaymentUnconfirmedNeverHitsGateway(t *testing.T) {
	gw := &fakeGateway{}
	s := loadedSession(t, gw, "12345678901", "250.00")

	snap, err := s.SubmitPayment(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, FailValidation, snap.Failure.Kind)
	assert.Equal(t, MsgConfirmationRequired, snap.Failure.Message)
	// Balance is retained for a later confirmed attempt.
	assert.NotNil(t, snap.Balance)
}

func TestSubmitPaymentZeroBalanceNeverHitsGateway(t *testing.T) {
	gw := &fakeGateway{}
	s := loadedSession(t, gw, "00000000010", "0.00")

	snap, err := s.SubmitPayment(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, FailNothingToPay, snap.Failure.Kind)
}

func TestFullPaymentFlow(t *testing.T) {
	gw := &fakeGateway{
		fetch: func(context.Context, gateway.Credential, billing.AccountID) (billing.AccountBalance, error) {
			return balanceOf("00123456789", "150.00"), nil
		},
		submit: func(_ context.Context, _ gateway.Credential, payment billing.BillPaymentRequest) (billing.BillPaymentResponse, error) {
			assert.Equal(t, billing.AccountID("00123456789"), payment.AccountID)
			assert.True(t, payment.ConfirmPayment)
			return billing.BillPaymentResponse{
				TransactionID: "TXN0001",
				Message:       "Payment successful",
				AccountID:     "00123456789",
				PaymentAmount: decimal.RequireFromString("150.00"),
				NewBalance:    decimal.Zero,
			}, nil
		},
	}
	s := NewSession(gw, "token", nil)

	snap, err := s.RetrieveBalance(context.Background(), "00123456789")
	require.NoError(t, err)
	require.Equal(t, StateBalanceLoaded, snap.State)

	snap, err = s.SetConfirmation(true)
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, snap.State)

	snap, err = s.SubmitPayment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, snap.State)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "TXN0001", snap.Result.TransactionID)
	assert.Nil(t, snap.Balance)
	assert.False(t, snap.Confirmed)
	assert.Empty(t, snap.AccountID)

	snap = s.Reset()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Result)
}

func TestSubmitPaymentNothingToPayRetainsBalance(t *testing.T) {
	gw := &fakeGateway{
		submit: func(context.Context, gateway.Credential, billing.BillPaymentRequest) (billing.BillPaymentResponse, error) {
			return billing.BillPaymentResponse{}, &gateway.Error{Kind: gateway.KindNothingToPay, Message: gateway.MsgNothingToPay}
		},
	}
	s := loadedSession(t, gw, "12345678901", "250.00")
	_, err := s.SetConfirmation(true)
	require.NoError(t, err)

	snap, err := s.SubmitPayment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateBalanceLoaded, snap.State)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, FailNothingToPay, snap.Failure.Kind)
	// Balance retained, confirmation must be re-asserted.
	assert.NotNil(t, snap.Balance)
	assert.False(t, snap.Confirmed)
}

func TestSubmitPaymentGatewayFailureResetsConfirmation(t *testing.T) {
	gw := &fakeGateway{
		submit: func(context.Context, gateway.Credential, billing.BillPaymentRequest) (billing.BillPaymentResponse, error) {
			return billing.BillPaymentResponse{}, &gateway.Error{Kind: gateway.KindGatewayFailure, Message: gateway.MsgPaymentFailed}
		},
	}
	s := loadedSession(t, gw, "12345678901", "250.00")
	_, err := s.SetConfirmation(true)
	require.NoError(t, err)

	snap, err := s.SubmitPayment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateBalanceLoaded, snap.State)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, FailGateway, snap.Failure.Kind)
	assert.NotNil(t, snap.Balance)
	assert.False(t, snap.Confirmed)
}

func TestConcurrentRetrieveRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	gw := &fakeGateway{
		fetch: func(context.Context, gateway.Credential, billing.AccountID) (billing.AccountBalance, error) {
			close(started)
			<-release
			return balanceOf("12345678901", "250.00"), nil
		},
	}
	s := NewSession(gw, "token", nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := s.RetrieveBalance(context.Background(), "12345678901")
		assert.NoError(t, err)
	}()

	<-started
	_, err := s.RetrieveBalance(context.Background(), "12345678901")
	assert.True(t, errors.Is(err, ErrOperationInFlight))
	_, err = s.SubmitPayment(context.Background())
	assert.True(t, errors.Is(err, ErrOperationInFlight))
	_, err = s.EditAccountID("999")
	assert.True(t, errors.Is(err, ErrOperationInFlight))

	close(release)
	<-done
	assert.Equal(t, StateBalanceLoaded, s.Snapshot().State)
}

func TestResetDiscardsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	gw := &fakeGateway{
		fetch: func(context.Context, gateway.Credential, billing.AccountID) (billing.AccountBalance, error) {
			close(started)
			<-release
			return balanceOf("12345678901", "250.00"), nil
		},
	}
	s := NewSession(gw, "token", nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RetrieveBalance(context.Background(), "12345678901")
	}()

	<-started
	s.Reset()
	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retrieve did not return")
	}

	// The late-arriving balance must not be applied to the reset session.
	snap := s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Balance)
}
