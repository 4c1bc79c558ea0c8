package messaging

import (
	"context"
)

// Subjects for checkout lifecycle events.
const (
	InvoiceRecordedSubject        = "checkout.invoice.recorded"
	ReconciliationRequiredSubject = "checkout.reconciliation.required"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher discards events. Used when messaging is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ Event) error {
	return nil
}
