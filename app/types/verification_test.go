package types

import (
	"encoding/json"
	"testing"
)

func decodeEnvelope(t *testing.T, raw string) *VerifyEnvelope {
	t.Helper()
	var envelope VerifyEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		t.Fatalf("unmarshal envelope failed: %v", err)
	}
	return &envelope
}

func TestNormalizeDataEnvelope(t *testing.T) {
	result := decodeEnvelope(t, `{"status":"success","data":{"status":"succeeded","order_id":"ord_1","amount":"49.90"}}`).Normalize()

	if result.Outcome != OutcomeSucceeded {
		t.Fatalf("expected succeeded, got %s", result.Outcome)
	}
	if result.OrderID != "ord_1" {
		t.Fatalf("unexpected order id: %s", result.OrderID)
	}
	if result.Amount == nil || result.Amount.String() != "49.9" {
		t.Fatalf("unexpected amount: %v", result.Amount)
	}
}

func TestNormalizePaymentEnvelopeWithNumericAmount(t *testing.T) {
	result := decodeEnvelope(t, `{"status":"success","payment":{"status":"requires_3ds_verification","order_id":"ord_2","amount":12.5}}`).Normalize()

	if result.Outcome != OutcomeRequires3DS {
		t.Fatalf("expected requires_3ds, got %s", result.Outcome)
	}
	if result.RawStatus != "requires_3ds_verification" {
		t.Fatalf("unexpected raw status: %s", result.RawStatus)
	}
	if result.Amount == nil || result.Amount.String() != "12.5" {
		t.Fatalf("unexpected amount: %v", result.Amount)
	}
}

func TestNormalizeNullAmountIsUnset(t *testing.T) {
	result := decodeEnvelope(t, `{"status":"success","data":{"status":"pending","order_id":"ord_3","amount":null}}`).Normalize()

	if result.Outcome != OutcomePending {
		t.Fatalf("expected pending, got %s", result.Outcome)
	}
	if result.Amount != nil {
		t.Fatalf("expected no amount, got %v", result.Amount)
	}
}

func TestNormalizeBothShapesAgree(t *testing.T) {
	a := decodeEnvelope(t, `{"status":"success","data":{"status":"pending","order_id":"ord_3"}}`).Normalize()
	b := decodeEnvelope(t, `{"status":"success","payment":{"status":"pending","order_id":"ord_3"}}`).Normalize()

	if a.Outcome != b.Outcome || a.OrderID != b.OrderID || a.RawStatus != b.RawStatus {
		t.Fatalf("expected equal results, got %+v and %+v", a, b)
	}
}

func TestNormalizeFailureReason(t *testing.T) {
	result := decodeEnvelope(t, `{"status":"success","data":{"status":"failed","order_id":"ord_4","failure_reason":"card_declined"}}`).Normalize()
	if result.Outcome != OutcomeFailed {
		t.Fatalf("expected failed, got %s", result.Outcome)
	}
	if result.Reason != "card_declined" {
		t.Fatalf("unexpected reason: %q", result.Reason)
	}

	result = decodeEnvelope(t, `{"status":"success","data":{"status":"cancelled","message":"Shopper abandoned the challenge"}}`).Normalize()
	if result.Outcome != OutcomeCancelled || result.Reason != "Shopper abandoned the challenge" {
		t.Fatalf("unexpected cancelled result: %+v", result)
	}
}

func TestNormalizeUnknownShapes(t *testing.T) {
	cases := []string{
		`{"status":"success"}`,
		`{"status":"error","data":{"status":"succeeded"}}`,
		`{"status":"success","data":{"status":"refunded","order_id":"ord_5"}}`,
		`{}`,
	}
	for _, raw := range cases {
		if got := decodeEnvelope(t, raw).Normalize().Outcome; got != OutcomeUnknown {
			t.Fatalf("expected unknown for %s, got %s", raw, got)
		}
	}

	var envelope *VerifyEnvelope
	if envelope.Normalize().Outcome != OutcomeUnknown {
		t.Fatal("expected unknown for nil envelope")
	}
}

func TestErrorEnvelopeServerMessage(t *testing.T) {
	cases := map[string]string{
		`{"message":"Payment not found"}`:           "Payment not found",
		`{"error":{"message":"Token expired"}}`:     "Token expired",
		`{"error":"Forbidden"}`:                     "Forbidden",
		`{"error":{"code":"E1"}}`:                   "",
		`{}`:                                        "",
	}
	for raw, expected := range cases {
		var envelope ErrorEnvelope
		if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
			t.Fatalf("unmarshal failed for %s: %v", raw, err)
		}
		if got := envelope.ServerMessage(); got != expected {
			t.Fatalf("expected %q for %s, got %q", expected, raw, got)
		}
	}
}
