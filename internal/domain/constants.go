package domain

// Payment attempt lifecycle. Transitions only move forward; terminal states
// are never re-entered within one attempt.
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

// Loan application lifecycle.
const (
	LoanStatusPendingFee = "PENDING_FEE"
	LoanStatusFeePaid    = "FEE_PAID"
)

const (
	RoleOperator = "OPERATOR"
)

// IsTerminal reports whether a payment status admits no further transitions.
func IsTerminal(status string) bool {
	return status == PaymentStatusCompleted || status == PaymentStatusFailed
}
