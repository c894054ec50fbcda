package entity

import "time"

type ReconciliationEvent struct {
	ID uint64

	SessionID string
	RequestID string
	PaymentID string
	OrderID   string

	State   string
	Outcome string
	Attempt int32
	Budget  int32
	Message *string

	CreatedAt time.Time
}
