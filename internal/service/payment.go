package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/punchamoorthee/billpay/internal/billing"
	"github.com/punchamoorthee/billpay/internal/store"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrNothingToPay         = errors.New("nothing to pay")
	ErrConfirmationRequired = errors.New("payment confirmation required")
	ErrCardXrefNotFound     = errors.New("card cross-reference not found")
)

// Transaction record constants for online bill payments, carried over from
// the system of record this service replaces.
const (
	txnTypeCode     = "02"
	txnCategoryCode = 2
	txnSource       = "POS TERM"
	txnDescription  = "BILL PAYMENT - ONLINE"
	merchantID      = 999999999
	merchantName    = "BILL PAYMENT"
	merchantCity    = "N/A"
	merchantZip     = "N/A"

	firstTransactionID = "0000000000000001"
)

// BillPaymentService owns the backend business rules: balance lookup and
// full-balance payment processing.
type BillPaymentService struct {
	store *store.Store
	log   *zap.Logger
}

func NewBillPaymentService(s *store.Store, log *zap.Logger) *BillPaymentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BillPaymentService{store: s, log: log}
}

// GetAccountBalance returns the account's current outstanding balance.
func (s *BillPaymentService) GetAccountBalance(ctx context.Context, accountID string) (billing.AccountBalance, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return billing.AccountBalance{}, ErrAccountNotFound
		}
		return billing.AccountBalance{}, err
	}
	return billing.AccountBalance{
		AccountID:      billing.AccountID(account.AccountID),
		CurrentBalance: account.CurrentBalance,
	}, nil
}

// ProcessBillPayment pays the account's balance in full inside one
// transaction: lock the account row, reject non-positive balances, resolve
// the card cross-reference, allocate the next transaction id, record the
// payment and zero the balance.
func (s *BillPaymentService) ProcessBillPayment(ctx context.Context, req billing.BillPaymentRequest) (billing.BillPaymentResponse, error) {
	if !req.ConfirmPayment {
		return billing.BillPaymentResponse{}, ErrConfirmationRequired
	}

	tx, err := s.store.Db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return billing.BillPaymentResponse{}, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the account row for the balance check and update.
	var balance decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT current_balance FROM accounts WHERE account_id = $1 FOR UPDATE",
		req.AccountID.String(),
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return billing.BillPaymentResponse{}, ErrAccountNotFound
		}
		return billing.BillPaymentResponse{}, fmt.Errorf("account lock failed: %w", err)
	}

	if !billing.CanProcessPayment(balance) {
		return billing.BillPaymentResponse{}, ErrNothingToPay
	}

	var cardNumber string
	err = tx.QueryRow(ctx,
		"SELECT card_number FROM card_cross_reference WHERE account_id = $1",
		req.AccountID.String(),
	).Scan(&cardNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return billing.BillPaymentResponse{}, ErrCardXrefNotFound
		}
		return billing.BillPaymentResponse{}, fmt.Errorf("card xref lookup failed: %w", err)
	}

	transactionID, err := nextTransactionID(ctx, tx)
	if err != nil {
		return billing.BillPaymentResponse{}, err
	}

	now := time.Now().UTC()
	paymentAmount := balance
	newBalance := balance.Sub(paymentAmount)

	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (
			transaction_id, transaction_type_code, transaction_category_code,
			transaction_source, transaction_description, transaction_amount,
			card_number, merchant_id, merchant_name, merchant_city, merchant_zip,
			origin_timestamp, process_timestamp, account_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		transactionID, txnTypeCode, txnCategoryCode, txnSource, txnDescription,
		paymentAmount, cardNumber, merchantID, merchantName, merchantCity, merchantZip,
		now, now, req.AccountID.String(),
	)
	if err != nil {
		return billing.BillPaymentResponse{}, fmt.Errorf("transaction insert failed: %w", err)
	}

	_, err = tx.Exec(ctx,
		"UPDATE accounts SET current_balance = $1, updated_at = now() WHERE account_id = $2",
		newBalance, req.AccountID.String(),
	)
	if err != nil {
		return billing.BillPaymentResponse{}, fmt.Errorf("balance update failed: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return billing.BillPaymentResponse{}, fmt.Errorf("tx commit failed: %w", err)
	}

	s.log.Info("bill payment committed",
		zap.String("account_id", req.AccountID.String()),
		zap.String("transaction_id", transactionID),
		zap.String("amount", paymentAmount.StringFixed(2)))

	return billing.BillPaymentResponse{
		TransactionID: transactionID,
		Message:       fmt.Sprintf("Payment successful. Your Transaction ID is %s.", transactionID),
		AccountID:     req.AccountID,
		PaymentAmount: paymentAmount,
		NewBalance:    newBalance,
	}, nil
}

// nextTransactionID allocates the next 16-digit zero-padded id. The latest
// row is locked so concurrent payments cannot allocate the same id.
func nextTransactionID(ctx context.Context, tx pgx.Tx) (string, error) {
	var lastID string
	err := tx.QueryRow(ctx,
		"SELECT transaction_id FROM transactions ORDER BY transaction_id DESC LIMIT 1 FOR UPDATE",
	).Scan(&lastID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return firstTransactionID, nil
		}
		return "", fmt.Errorf("transaction id lookup failed: %w", err)
	}

	n, err := strconv.ParseUint(lastID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("unable to generate new transaction id from %q: %w", lastID, err)
	}
	return fmt.Sprintf("%016d", n+1), nil
}
