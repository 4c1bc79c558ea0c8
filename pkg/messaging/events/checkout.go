package events

import (
	"encoding/json"
	"time"

	"github.com/trinitystore/backoffice/pkg/messaging"

	"github.com/google/uuid"
)

// InvoiceRecordedEvent is published after a checkout reaches its terminal
// success state: payment captured, stock committed, invoice persisted.
type InvoiceRecordedEvent struct {
	InvoiceID        uuid.UUID      `json:"invoice_id"`
	UserID           uuid.UUID      `json:"user_id"`
	TotalPrice       int64          `json:"total_price"`
	PaymentReference string         `json:"payment_reference"`
	Billing          map[string]any `json:"billing,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (e InvoiceRecordedEvent) Subject() string {
	return messaging.InvoiceRecordedSubject
}

func (e InvoiceRecordedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// ReconciliationRequiredEvent is published when a payment was captured but the
// stock commit or invoice persistence failed. Money has moved without a
// matching order; a human or a downstream consumer must resolve it.
type ReconciliationRequiredEvent struct {
	UserID           uuid.UUID `json:"user_id"`
	PaymentReference string    `json:"payment_reference"`
	CaptureID        string    `json:"capture_id"`
	TotalPrice       int64     `json:"total_price"`
	Reason           string    `json:"reason"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func (e ReconciliationRequiredEvent) Subject() string {
	return messaging.ReconciliationRequiredSubject
}

func (e ReconciliationRequiredEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
