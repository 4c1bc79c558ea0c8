package checkout

// Status tracks a checkout attempt through its lifecycle. Transitions only
// move forward; the two failure states and RECORDED are terminal.
type Status string

const (
	StatusDraft            Status = "DRAFT"
	StatusValidated        Status = "VALIDATED"
	StatusPaymentPending   Status = "PAYMENT_PENDING"
	StatusPaymentConfirmed Status = "PAYMENT_CONFIRMED"
	StatusStockCommitted   Status = "STOCK_COMMITTED"
	StatusRecorded         Status = "RECORDED"
	StatusRejected         Status = "REJECTED"
	StatusPaymentFailed    Status = "PAYMENT_FAILED"
)

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusRecorded, StatusRejected, StatusPaymentFailed:
		return true
	}
	return false
}
