package billing

import "github.com/shopspring/decimal"

// AccountBalance is a point-in-time snapshot of an account's outstanding
// balance. It is stale the moment a payment for the account is committed.
type AccountBalance struct {
	AccountID      AccountID       `json:"accountId"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
}

// BillPaymentRequest asks the backend to pay an account's balance in full.
// ConfirmPayment must be true; it is the request-level half of the
// confirmation gate and the backend rejects requests without it.
type BillPaymentRequest struct {
	AccountID      AccountID `json:"accountId"`
	ConfirmPayment bool      `json:"confirmPayment"`
}

// BillPaymentResponse is a committed payment as reported by the backend.
type BillPaymentResponse struct {
	TransactionID string          `json:"transactionId"`
	Message       string          `json:"message"`
	AccountID     AccountID       `json:"accountId"`
	PaymentAmount decimal.Decimal `json:"paymentAmount"`
	NewBalance    decimal.Decimal `json:"newBalance"`
}
