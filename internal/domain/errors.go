package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the HTTP boundary. Business-rule failures
// never leave the service layer untyped.
type Kind string

const (
	KindInvalidArgument    Kind = "invalid_argument"
	KindUnauthenticated    Kind = "unauthenticated"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindInvalidState       Kind = "invalid_state"
	KindEmptyCart          Kind = "empty_cart"
	KindInsufficientStock  Kind = "insufficient_stock"
	KindOTPExpired         Kind = "otp_expired"
	KindOTPMismatch        Kind = "otp_mismatch"
	KindOTPAlreadyUsed     Kind = "otp_already_used"
	KindNotificationFailed Kind = "notification_failed"
	KindPersistence        Kind = "persistence_failure"
)

type Error struct {
	Kind    Kind
	Message string
	// Fields carries per-field detail for invalid_argument responses.
	Fields map[string]string
}

func (e *Error) Error() string { return e.Message }

func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrInsufficientStock builds the business failure for a short item,
// naming the product and the quantity actually available.
func ErrInsufficientStock(productName string, available int) *Error {
	return E(KindInsufficientStock, "insufficient stock for %s (available %d)", productName, available)
}

// KindOf extracts the failure kind, defaulting to persistence_failure for
// untyped errors so infrastructure problems surface as opaque 500s.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindPersistence
}

func IsKind(err error, k Kind) bool { return KindOf(err) == k }
