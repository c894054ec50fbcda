package types

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

const envelopeStatusSuccess = "success"

// Outcome is the normalized result of one verification round trip.
type Outcome string

const (
	OutcomeSucceeded   Outcome = "succeeded"
	OutcomePending     Outcome = "pending"
	OutcomeRequires3DS Outcome = "requires_3ds"
	OutcomeFailed      Outcome = "failed"
	OutcomeCancelled   Outcome = "cancelled"
	OutcomeUnknown     Outcome = "unknown"
)

// VerificationResult is what the reconciler consumes. It never carries raw
// gateway JSON.
type VerificationResult struct {
	Outcome   Outcome
	RawStatus string
	OrderID   string
	Amount    *decimal.Decimal
	Reason    string
}

// VerifyEnvelope accepts both envelope shapes served by the verify endpoint:
// {"status":"success","data":{...}} and {"status":"success","payment":{...}}.
type VerifyEnvelope struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Data    *VerifyPayload `json:"data"`
	Payment *VerifyPayload `json:"payment"`
}

type VerifyPayload struct {
	Status        string          `json:"status"`
	OrderID       string          `json:"order_id"`
	Amount        json.RawMessage `json:"amount"`
	FailureReason string          `json:"failure_reason"`
	Message       string          `json:"message"`
}

func (e *VerifyEnvelope) payload() *VerifyPayload {
	if e.Data != nil {
		return e.Data
	}
	return e.Payment
}

func (e *VerifyEnvelope) Normalize() *VerificationResult {
	if e == nil || !strings.EqualFold(strings.TrimSpace(e.Status), envelopeStatusSuccess) {
		result := &VerificationResult{Outcome: OutcomeUnknown}
		if e != nil {
			result.Reason = strings.TrimSpace(e.Message)
		}
		return result
	}

	payload := e.payload()
	if payload == nil {
		return &VerificationResult{Outcome: OutcomeUnknown}
	}

	rawStatus := strings.TrimSpace(payload.Status)
	reason := strings.TrimSpace(payload.FailureReason)
	if reason == "" {
		reason = strings.TrimSpace(payload.Message)
	}

	return &VerificationResult{
		Outcome:   ParseOutcome(rawStatus),
		RawStatus: rawStatus,
		OrderID:   strings.TrimSpace(payload.OrderID),
		Amount:    parseAmount(payload.Amount),
		Reason:    reason,
	}
}

// parseAmount accepts numbers and numeric strings. Anything else leaves the
// amount unset; it is informational and must not sink the status.
func parseAmount(raw json.RawMessage) *decimal.Decimal {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	var amount decimal.Decimal
	if err := amount.UnmarshalJSON([]byte(trimmed)); err != nil {
		return nil
	}
	return &amount
}

func ParseOutcome(rawStatus string) Outcome {
	switch strings.ToLower(strings.TrimSpace(rawStatus)) {
	case "succeeded":
		return OutcomeSucceeded
	case "pending":
		return OutcomePending
	case "requires_3ds_verification":
		return OutcomeRequires3DS
	case "failed":
		return OutcomeFailed
	case "cancelled":
		return OutcomeCancelled
	default:
		return OutcomeUnknown
	}
}

// ErrorEnvelope covers {"message":"..."}, {"error":{"message":"..."}} and
// {"error":"..."} bodies.
type ErrorEnvelope struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

func (e *ErrorEnvelope) ServerMessage() string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	if len(e.Error) == 0 {
		return ""
	}

	var nested struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(e.Error, &nested) == nil {
		return strings.TrimSpace(nested.Message)
	}
	var plain string
	if json.Unmarshal(e.Error, &plain) == nil {
		return strings.TrimSpace(plain)
	}
	return ""
}
