package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PendingPayment identifies a payment that is still being reconciled for one
// browser session. It is overwritten wholesale on every save.
type PendingPayment struct {
	PaymentID string          `json:"paymentId"`
	OrderID   string          `json:"orderId"`
	RequestID string          `json:"requestId"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
	Status    string          `json:"status"`
}

func (p *PendingPayment) Clone() *PendingPayment {
	if p == nil {
		return nil
	}
	copyItem := *p
	return &copyItem
}

type VerificationAttempt struct {
	Sequence  int
	RawStatus string
	CalledAt  time.Time
}
