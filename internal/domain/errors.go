package domain

import (
	"fmt"
)

// Kind classifies cart failures for callers. Transports map each kind to a
// distinct client-visible code.
type Kind int

const (
	KindInvalidArgument Kind = iota + 1
	KindVariantUnavailable
	KindInsufficientStock
	KindLineNotFound
	KindConcurrentModification
	KindUpstreamTimeout
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "INVALID_ARGUMENT"
	case KindVariantUnavailable:
		return "VARIANT_UNAVAILABLE"
	case KindInsufficientStock:
		return "INSUFFICIENT_STOCK"
	case KindLineNotFound:
		return "LINE_NOT_FOUND"
	case KindConcurrentModification:
		return "CONCURRENT_MODIFICATION"
	case KindUpstreamTimeout:
		return "UPSTREAM_TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Error is the only error type the cart operations return.
type Error struct {
	Kind      Kind
	Message   string
	ProductID string
	VariantID string
	Requested int
	Available int
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrInsufficientStock) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidArgument        = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrVariantUnavailable     = &Error{Kind: KindVariantUnavailable, Message: "variant unavailable"}
	ErrInsufficientStock      = &Error{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrLineNotFound           = &Error{Kind: KindLineNotFound, Message: "line not found"}
	ErrConcurrentModification = &Error{Kind: KindConcurrentModification, Message: "concurrent modification"}
	ErrUpstreamTimeout        = &Error{Kind: KindUpstreamTimeout, Message: "upstream timeout"}
)

func InvalidArgument(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func VariantUnavailable(productID, variantID string) *Error {
	return &Error{
		Kind:      KindVariantUnavailable,
		Message:   fmt.Sprintf("variant %s of product %s is not available or out of stock", variantID, productID),
		ProductID: productID,
		VariantID: variantID,
	}
}

func InsufficientStock(productID, variantID string, requested, available int) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock: requested %d, only %d available", requested, available),
		ProductID: productID,
		VariantID: variantID,
		Requested: requested,
		Available: available,
	}
}

func LineNotFound(productID, variantID string) *Error {
	return &Error{
		Kind:      KindLineNotFound,
		Message:   fmt.Sprintf("variant %s of product %s is not in the cart", variantID, productID),
		ProductID: productID,
		VariantID: variantID,
	}
}

func ConcurrentModification(ownerID string, attempts int, cause error) *Error {
	return &Error{
		Kind:    KindConcurrentModification,
		Message: fmt.Sprintf("cart of %s changed concurrently, gave up after %d attempts", ownerID, attempts),
		Cause:   cause,
	}
}

func UpstreamTimeout(op string, cause error) *Error {
	return &Error{
		Kind:    KindUpstreamTimeout,
		Message: op + " failed",
		Cause:   cause,
	}
}
