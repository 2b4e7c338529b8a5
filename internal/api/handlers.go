package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/punchamoorthee/billpay/internal/billing"
	"github.com/punchamoorthee/billpay/internal/flow"
	"github.com/punchamoorthee/billpay/internal/gateway"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billpay_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billpay_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

// Handler serves the bill-payment flow: session endpoints driving the state
// machine, plus the two validating pass-through routes the original screens
// called directly.
type Handler struct {
	sessions *flow.Manager
	gw       flow.Gateway
	log      *zap.Logger
}

func NewHandler(sessions *flow.Manager, gw flow.Gateway, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{sessions: sessions, gw: gw, log: log}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

// CreateSessionHandler starts a new payment session bound to the caller's
// bearer credential.
func (h *Handler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, s := h.sessions.Create(bearerCredential(r))
	h.respondJSON(w, http.StatusCreated, map[string]any{
		"sessionId": id,
		"session":   s.Snapshot(),
	}, "POST", "/sessions")
}

func (h *Handler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, "GET", "/sessions/{id}")
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, s.Snapshot(), "GET", "/sessions/{id}")
}

// RetrieveBalanceHandler drives idle -> balance_loaded. Validation and
// business failures land in the returned snapshot; only malformed requests,
// unknown sessions and in-flight conflicts map to HTTP errors.
func (h *Handler) RetrieveBalanceHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/sessions/{id}/balance"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	s, ok := h.session(w, r, "POST", endpoint)
	if !ok {
		return
	}

	var req struct {
		AccountID string `json:"accountId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}

	snap, err := s.RetrieveBalance(r.Context(), req.AccountID)
	if errors.Is(err, flow.ErrOperationInFlight) {
		h.respondError(w, http.StatusConflict, err.Error(), "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, snap, "POST", endpoint)
}

// EditAccountIDHandler replaces the account-id input, discarding any held
// balance, confirmation, failure or success.
func (h *Handler) EditAccountIDHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/sessions/{id}/account-id"
	s, ok := h.session(w, r, "PUT", endpoint)
	if !ok {
		return
	}

	var req struct {
		AccountID string `json:"accountId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", endpoint)
		return
	}

	snap, err := s.EditAccountID(req.AccountID)
	if errors.Is(err, flow.ErrOperationInFlight) {
		h.respondError(w, http.StatusConflict, err.Error(), "PUT", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, snap, "PUT", endpoint)
}

func (h *Handler) SetConfirmationHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/sessions/{id}/confirmation"
	s, ok := h.session(w, r, "PUT", endpoint)
	if !ok {
		return
	}

	var req struct {
		ConfirmPayment bool `json:"confirmPayment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", endpoint)
		return
	}

	snap, err := s.SetConfirmation(req.ConfirmPayment)
	if errors.Is(err, flow.ErrOperationInFlight) {
		h.respondError(w, http.StatusConflict, err.Error(), "PUT", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, snap, "PUT", endpoint)
}

// SubmitPaymentHandler drives confirmed -> processing -> succeeded or a
// transient failure.
func (h *Handler) SubmitPaymentHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/sessions/{id}/payment"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	s, ok := h.session(w, r, "POST", endpoint)
	if !ok {
		return
	}

	snap, err := s.SubmitPayment(r.Context())
	if errors.Is(err, flow.ErrOperationInFlight) {
		h.respondError(w, http.StatusConflict, err.Error(), "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, snap, "POST", endpoint)
}

func (h *Handler) ResetSessionHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/sessions/{id}/reset"
	s, ok := h.session(w, r, "POST", endpoint)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, s.Reset(), "POST", endpoint)
}

func (h *Handler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	h.sessions.Remove(mux.Vars(r)["id"])
	httpRequestsTotal.WithLabelValues("DELETE", "/sessions/{id}", "204").Inc()
	w.WriteHeader(http.StatusNoContent)
}

// GetAccountBalanceHandler is the validating pass-through for direct balance
// lookups: local checks first, then a single gateway round trip.
func (h *Handler) GetAccountBalanceHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/bill-payment/account/{accountId}/balance"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	id, err := billing.ValidateAccountID(mux.Vars(r)["accountId"])
	if errors.Is(err, billing.ErrEmptyAccountID) {
		h.respondError(w, http.StatusBadRequest, "Account ID cannot be empty", "GET", endpoint)
		return
	}
	if errors.Is(err, billing.ErrAccountIDTooLong) {
		h.respondError(w, http.StatusBadRequest, "Account ID must be 11 characters or less", "GET", endpoint)
		return
	}

	balance, err := h.gw.FetchBalance(r.Context(), bearerCredential(r), id)
	if err != nil {
		h.respondGatewayError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, balance, "GET", endpoint)
}

// ProcessBillPaymentHandler is the validating pass-through for payment
// submission. The confirmation flag must already be asserted in the request;
// a missing flag is rejected locally and never reaches the gateway.
func (h *Handler) ProcessBillPaymentHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/bill-payment/process"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	var req billing.BillPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}

	id, err := billing.ValidateAccountID(req.AccountID.String())
	if errors.Is(err, billing.ErrEmptyAccountID) {
		h.respondError(w, http.StatusBadRequest, "Acct ID can NOT be empty...", "POST", endpoint)
		return
	}
	if errors.Is(err, billing.ErrAccountIDTooLong) {
		h.respondError(w, http.StatusBadRequest, "Account ID must be 11 characters or less", "POST", endpoint)
		return
	}
	if !req.ConfirmPayment {
		h.respondError(w, http.StatusBadRequest, flow.MsgConfirmationRequired, "POST", endpoint)
		return
	}

	req.AccountID = id
	committed, err := h.gw.SubmitPayment(r.Context(), bearerCredential(r), req)
	if err != nil {
		h.respondGatewayError(w, err, "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, committed, "POST", endpoint)
}

// session resolves the session id path variable, writing a 404 when unknown.
func (h *Handler) session(w http.ResponseWriter, r *http.Request, method, endpoint string) (*flow.Session, bool) {
	id := mux.Vars(r)["id"]
	s, ok := h.sessions.Get(id)
	if !ok {
		h.respondError(w, http.StatusNotFound, "Session not found", method, endpoint)
		return nil, false
	}
	return s, true
}

func (h *Handler) respondGatewayError(w http.ResponseWriter, err error, method, endpoint string) {
	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) {
		h.respondError(w, http.StatusBadGateway, gateway.MsgPaymentFailed, method, endpoint)
		return
	}
	switch gwErr.Kind {
	case gateway.KindAccountNotFound:
		h.respondError(w, http.StatusNotFound, gwErr.Message, method, endpoint)
	case gateway.KindNothingToPay, gateway.KindValidationRejected:
		h.respondError(w, http.StatusBadRequest, gwErr.Message, method, endpoint)
	default:
		h.respondError(w, http.StatusBadGateway, gwErr.Message, method, endpoint)
	}
}

// bearerCredential extracts the caller's token for pass-through. Absence is
// not an error; unauthenticated requests are forwarded as-is and the backend
// decides.
func bearerCredential(r *http.Request) gateway.Credential {
	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == auth {
		// No bearer scheme present; forward nothing.
		return ""
	}
	return gateway.Credential(token)
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload any, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.log.Error("response encode failure", zap.Error(err))
		}
	}
}

func (h *Handler) respondError(w http.ResponseWriter, code int, message, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": message}, method, endpoint)
}
