package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/punchamoorthee/billpay/internal/billing"
)

// maxErrorBytes bounds how much of an error body is read, in case the
// backend returns excessively large errors.
const maxErrorBytes = 4096

// Credential is a bearer token supplied by the auth layer. An empty
// credential sends the request unauthenticated; this client never blocks
// on a missing token.
type Credential string

// Client issues the two bill-payment operations against the backend service
// of record. Each call is a single round trip; submissions are never retried.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// Option configures a Client.
type Option func(c *Client)

// WithHTTPClient overrides the transport, primarily for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger attaches a structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchBalance retrieves the current balance snapshot for an account.
func (c *Client) FetchBalance(ctx context.Context, cred Credential, id billing.AccountID) (billing.AccountBalance, error) {
	url := fmt.Sprintf("%s/api/bill-payment/account/%s/balance", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return billing.AccountBalance{}, &Error{Kind: KindGatewayFailure, Message: MsgBalanceUnavailable}
	}
	cred.apply(req)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("balance fetch transport failure", zap.String("account_id", id.String()), zap.Error(err))
		return billing.AccountBalance{}, &Error{Kind: KindGatewayFailure, Message: MsgBalanceUnavailable}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		drain(resp.Body)
		return billing.AccountBalance{}, &Error{Kind: KindAccountNotFound, Message: MsgAccountNotFound}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorBody(resp.Body)
		if msg == "" {
			msg = MsgBalanceUnavailable
		}
		c.log.Warn("balance fetch rejected",
			zap.String("account_id", id.String()),
			zap.Int("status", resp.StatusCode))
		return billing.AccountBalance{}, &Error{Kind: KindGatewayFailure, Message: msg}
	}

	var balance billing.AccountBalance
	if err := json.NewDecoder(resp.Body).Decode(&balance); err != nil {
		c.log.Warn("balance response decode failure", zap.Error(err))
		return billing.AccountBalance{}, &Error{Kind: KindGatewayFailure, Message: MsgBalanceUnavailable}
	}
	return balance, nil
}

// SubmitPayment submits a confirmed full-balance payment. A 400 response
// whose error text contains "nothing to pay" is the backend's business-rule
// signal; the match is on text because the wire contract carries no
// structured code for it.
func (c *Client) SubmitPayment(ctx context.Context, cred Credential, payment billing.BillPaymentRequest) (billing.BillPaymentResponse, error) {
	body, err := json.Marshal(payment)
	if err != nil {
		return billing.BillPaymentResponse{}, &Error{Kind: KindGatewayFailure, Message: MsgPaymentRejected}
	}

	url := c.baseURL + "/api/bill-payment/process"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return billing.BillPaymentResponse{}, &Error{Kind: KindGatewayFailure, Message: MsgPaymentRejected}
	}
	req.Header.Set("Content-Type", "application/json")
	cred.apply(req)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("payment submit transport failure", zap.String("account_id", payment.AccountID.String()), zap.Error(err))
		return billing.BillPaymentResponse{}, &Error{Kind: KindGatewayFailure, Message: MsgPaymentFailed}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		drain(resp.Body)
		return billing.BillPaymentResponse{}, &Error{Kind: KindAccountNotFound, Message: MsgAccountNotFound}
	case resp.StatusCode == http.StatusBadRequest:
		msg := errorBody(resp.Body)
		if strings.Contains(strings.ToLower(msg), "nothing to pay") {
			return billing.BillPaymentResponse{}, &Error{Kind: KindNothingToPay, Message: MsgNothingToPay}
		}
		if msg == "" {
			msg = MsgPaymentRejected
		}
		return billing.BillPaymentResponse{}, &Error{Kind: KindValidationRejected, Message: msg}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		drain(resp.Body)
		c.log.Warn("payment submit failed",
			zap.String("account_id", payment.AccountID.String()),
			zap.Int("status", resp.StatusCode))
		return billing.BillPaymentResponse{}, &Error{Kind: KindGatewayFailure, Message: MsgPaymentFailed}
	}

	var committed billing.BillPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&committed); err != nil {
		c.log.Warn("payment response decode failure", zap.Error(err))
		return billing.BillPaymentResponse{}, &Error{Kind: KindGatewayFailure, Message: MsgPaymentFailed}
	}
	c.log.Info("payment committed",
		zap.String("account_id", committed.AccountID.String()),
		zap.String("transaction_id", committed.TransactionID))
	return committed, nil
}

func (c Credential) apply(req *http.Request) {
	if c != "" {
		req.Header.Set("Authorization", "Bearer "+string(c))
	}
}

// errorBody extracts the backend's structured {"error": ...} message, if any.
func errorBody(r io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBytes)).Decode(&payload); err != nil {
		return ""
	}
	return payload.Error
}

func drain(r io.Reader) {
	io.Copy(io.Discard, io.LimitReader(r, maxErrorBytes))
}
