package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus defines the lifecycle state of a ledger payment record.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// RefereePayment is one ledger record covering one or more assignments.
// The ledger records compensation history only; it never moves money.
type RefereePayment struct {
	ID            uuid.UUID     `json:"id"`
	RefereeID     uuid.UUID     `json:"referee_id"`
	AssignmentIDs []uuid.UUID   `json:"assignment_ids"`
	Amount        float64       `json:"amount"`
	Method        string        `json:"method"`
	PayerID       uuid.UUID     `json:"payer_id"`
	PayerRole     string        `json:"payer_role"`
	Status        PaymentStatus `json:"status"`
	ExternalRef   *string       `json:"external_ref,omitempty"`
	FailureReason *string       `json:"failure_reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
