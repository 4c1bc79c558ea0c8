// Package gateway speaks to the external payment provider. It obtains
// short-lived credentials, creates pending payment intents, and captures
// confirmed ones. Nothing in this package touches local state.
package gateway

import (
	"context"
	"errors"
	"time"
)

// Typed failures, per call site. A failed capture never mutates local state;
// callers decide what a non-COMPLETED capture means.
var (
	ErrAuth        = errors.New("gateway authentication failed")
	ErrUnavailable = errors.New("gateway unavailable")
	ErrCapture     = errors.New("gateway capture failed")
)

type IntentStatus string

const (
	StatusCreated   IntentStatus = "CREATED"
	StatusCompleted IntentStatus = "COMPLETED"
	StatusFailed    IntentStatus = "FAILED"
)

// Token is a short-lived bearer credential for provider calls.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// PaymentIntent is a provider-side pending payment. No money has moved yet.
type PaymentIntent struct {
	ID       string
	Status   IntentStatus
	Amount   int64
	Currency string
}

// CaptureResult reports the outcome of finalizing a payment.
type CaptureResult struct {
	CaptureID string
	Status    IntentStatus
	Amount    int64
}

// Client is the payment-provider boundary.
type Client interface {
	// ObtainAccessToken exchanges configured credentials for a bearer token.
	// Implementations may cache; correctness must hold without caching.
	ObtainAccessToken(ctx context.Context) (*Token, error)

	// CreateIntent reserves a pending payment for the given amount in cents.
	CreateIntent(ctx context.Context, amount int64, currency string) (*PaymentIntent, error)

	// CaptureIntent finalizes a pending payment. Repeating a capture for an
	// already-captured intent must not double-charge; the provider's
	// idempotency semantics are relied upon, and callers must not re-issue a
	// capture once a COMPLETED result has been observed.
	CaptureIntent(ctx context.Context, intentID string) (*CaptureResult, error)
}
