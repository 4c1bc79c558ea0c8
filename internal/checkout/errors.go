package checkout

import (
	"errors"
	"fmt"
)

var ErrEmptyCart = errors.New("cart is empty")
var ErrInvalidQuantity = errors.New("line quantity must be positive")
var ErrUnknownProduct = errors.New("unknown product in cart")
var ErrPaymentNotCompleted = errors.New("payment was not completed")

// ReconciliationError means money moved but the local side of the checkout
// did not complete. The capture is never reversed automatically; the error
// carries everything an operator needs to resolve the order by hand.
type ReconciliationError struct {
	PaymentReference string
	CaptureID        string
	Total            int64
	Cause            error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("payment %s captured (capture %s, amount %d) but order completion failed: %v",
		e.PaymentReference, e.CaptureID, e.Total, e.Cause)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Cause
}
