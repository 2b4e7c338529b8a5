package gateway

import "fmt"

// ErrorKind classifies a gateway failure. The flow controller branches on the
// kind and never sees raw HTTP statuses or transport errors.
type ErrorKind int

const (
	// KindGatewayFailure covers any non-2xx outcome without a more specific
	// mapping, and all transport or decode failures.
	KindGatewayFailure ErrorKind = iota
	// KindAccountNotFound maps 404 responses.
	KindAccountNotFound
	// KindNothingToPay maps 400 submit responses carrying the backend's
	// "nothing to pay" business-rule text.
	KindNothingToPay
	// KindValidationRejected maps other 400 responses; the backend's message
	// is surfaced verbatim.
	KindValidationRejected
)

// Error is a gateway outcome translated into domain terms.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: %s", e.Message)
}

// Fixed user-facing messages carried over from the original screens.
const (
	MsgAccountNotFound    = "Account ID NOT found..."
	MsgNothingToPay       = "You have nothing to pay..."
	MsgBalanceUnavailable = "Failed to fetch account balance"
	MsgPaymentRejected    = "Failed to process bill payment"
	MsgPaymentFailed      = "Unable to Add Bill pay Transaction..."
)
