package ledgerapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/punchamoorthee/billpay/internal/billing"
	"github.com/punchamoorthee/billpay/internal/service"
	"github.com/punchamoorthee/billpay/internal/store"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

// BillPayments is the service capability the handlers need; satisfied by
// *service.BillPaymentService and by test doubles.
type BillPayments interface {
	GetAccountBalance(ctx context.Context, accountID string) (billing.AccountBalance, error)
	ProcessBillPayment(ctx context.Context, req billing.BillPaymentRequest) (billing.BillPaymentResponse, error)
}

// TransactionReader looks up committed transactions; satisfied by *store.Store.
type TransactionReader interface {
	GetTransaction(ctx context.Context, transactionID string) (*store.Transaction, error)
}

// Handler serves the backend wire contract: balance lookup, payment
// processing and transaction lookup.
type Handler struct {
	payments     BillPayments
	transactions TransactionReader
	log          *zap.Logger
}

func NewHandler(payments BillPayments, transactions TransactionReader, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{payments: payments, transactions: transactions, log: log}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

func (h *Handler) GetAccountBalanceHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/bill-payment/account/{accountId}/balance"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	accountID, ok := validAccountID(w, mux.Vars(r)["accountId"], "GET", endpoint)
	if !ok {
		return
	}

	balance, err := h.payments.GetAccountBalance(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			respondWithError(w, http.StatusNotFound, "Account ID NOT found...", "GET", endpoint)
			return
		}
		h.log.Error("balance lookup failed", zap.String("account_id", accountID), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error", "GET", endpoint)
		return
	}
	respondWithJSON(w, http.StatusOK, balance, "GET", endpoint)
}

func (h *Handler) ProcessBillPaymentHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/bill-payment/process"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	var req billing.BillPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}

	accountID, ok := validAccountID(w, req.AccountID.String(), "POST", endpoint)
	if !ok {
		return
	}
	req.AccountID = billing.AccountID(accountID)

	resp, err := h.payments.ProcessBillPayment(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConfirmationRequired):
			respondWithError(w, http.StatusBadRequest, "Confirm to make a bill payment...", "POST", endpoint)
		case errors.Is(err, service.ErrAccountNotFound):
			respondWithError(w, http.StatusNotFound, "Account ID NOT found...", "POST", endpoint)
		case errors.Is(err, service.ErrNothingToPay):
			respondWithError(w, http.StatusBadRequest, "You have nothing to pay...", "POST", endpoint)
		case errors.Is(err, service.ErrCardXrefNotFound):
			respondWithError(w, http.StatusBadRequest, "Unable to lookup XREF AIX file...", "POST", endpoint)
		default:
			h.log.Error("payment processing failed", zap.String("account_id", accountID), zap.Error(err))
			respondWithError(w, http.StatusInternalServerError, "Internal Server Error", "POST", endpoint)
		}
		return
	}
	respondWithJSON(w, http.StatusOK, resp, "POST", endpoint)
}

func (h *Handler) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/bill-payment/transaction/{transactionId}"
	t, err := h.transactions.GetTransaction(r.Context(), mux.Vars(r)["transactionId"])
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			respondWithError(w, http.StatusNotFound, "Transaction NOT found...", "GET", endpoint)
			return
		}
		h.log.Error("transaction lookup failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error", "GET", endpoint)
		return
	}
	respondWithJSON(w, http.StatusOK, t, "GET", endpoint)
}

func validAccountID(w http.ResponseWriter, raw, method, endpoint string) (string, bool) {
	id, err := billing.ValidateAccountID(raw)
	if errors.Is(err, billing.ErrEmptyAccountID) {
		respondWithError(w, http.StatusBadRequest, "Account ID cannot be empty", method, endpoint)
		return "", false
	}
	if errors.Is(err, billing.ErrAccountIDTooLong) {
		respondWithError(w, http.StatusBadRequest, "Account ID must be 11 characters or less", method, endpoint)
		return "", false
	}
	return id.String(), true
}

func respondWithError(w http.ResponseWriter, code int, message, method, endpoint string) {
	respondWithJSON(w, code, map[string]string{"error": message}, method, endpoint)
}

func respondWithJSON(w http.ResponseWriter, code int, payload any, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
