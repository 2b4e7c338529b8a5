package billing

import (
	"errors"
	"strings"
)

const (
	// MaxAccountIDLength is the backend's account id column width.
	MaxAccountIDLength = 11
	// MaxTransactionIDLength is the backend's transaction id column width.
	MaxTransactionIDLength = 16
)

var (
	ErrEmptyAccountID   = errors.New("account id cannot be empty")
	ErrAccountIDTooLong = errors.New("account id must be 11 characters or less")
)

// AccountID is a validated account identifier. The backend expects digit-only
// content but enforces that itself; locally only emptiness and length are
// checked, and the value is sent exactly as validated, never reformatted.
type AccountID string

func (id AccountID) String() string { return string(id) }

// ValidateAccountID trims the raw input and checks the local constraints.
// Digit-only content is not enforced here.
func ValidateAccountID(raw string) (AccountID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmptyAccountID
	}
	if len(trimmed) > MaxAccountIDLength {
		return "", ErrAccountIDTooLong
	}
	return AccountID(trimmed), nil
}

// FormatAccountID renders an account id for display: non-digits stripped,
// digits grouped as 3-3-3 with any remainder beyond the ninth digit in a
// trailing overflow block. Display only; the wire value is never formatted.
func FormatAccountID(id string) string {
	var b strings.Builder
	n := 0
	for _, r := range id {
		if r < '0' || r > '9' {
			continue
		}
		if n == 3 || n == 6 || n == 9 {
			b.WriteByte('-')
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
