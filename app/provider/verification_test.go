package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-payments-reconciler/app/types"
)

func newVerifyServer(t *testing.T, status int, body string, inspect func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifySendsAuthAndCorrelationHeaders(t *testing.T) {
	var gotPath, gotAuth, gotRequestID string
	srv := newVerifyServer(t, http.StatusOK, `{"status":"success","data":{"status":"succeeded","order_id":"ord_1"}}`, func(r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
	})

	client := NewVerificationClient(VerificationConfig{BaseURL: srv.URL + "/", APIToken: "tok_123", HTTPTimeout: time.Second})
	result, err := client.Verify(context.Background(), "pay_1", "req-abc")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if gotPath != "/payments/pay_1/verify" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer tok_123" {
		t.Fatalf("unexpected authorization header: %q", gotAuth)
	}
	if gotRequestID != "req-abc" {
		t.Fatalf("unexpected request id header: %q", gotRequestID)
	}
	if result.Outcome != types.OutcomeSucceeded || result.OrderID != "ord_1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestVerifyNormalizesPaymentEnvelope(t *testing.T) {
	srv := newVerifyServer(t, http.StatusOK, `{"status":"success","payment":{"status":"pending","order_id":"ord_2","amount":"10.00"}}`, nil)

	result, err := NewVerificationClient(VerificationConfig{BaseURL: srv.URL}).Verify(context.Background(), "pay_2", "req-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Outcome != types.OutcomePending {
		t.Fatalf("expected pending, got %s", result.Outcome)
	}
	if result.Amount == nil || result.Amount.String() != "10" {
		t.Fatalf("unexpected amount: %v", result.Amount)
	}
}

func TestVerifyIgnoresUnparseableAmount(t *testing.T) {
	for _, amount := range []string{`""`, `"12,50"`, `{"value":1}`} {
		srv := newVerifyServer(t, http.StatusOK, `{"status":"success","data":{"status":"succeeded","order_id":"o1","amount":`+amount+`}}`, nil)

		result, err := NewVerificationClient(VerificationConfig{BaseURL: srv.URL}).Verify(context.Background(), "pay_5", "req-1")
		if err != nil {
			t.Fatalf("amount %s: expected no error, got %v", amount, err)
		}
		if result.Outcome != types.OutcomeSucceeded {
			t.Fatalf("amount %s: expected succeeded, got %s", amount, result.Outcome)
		}
		if result.OrderID != "o1" {
			t.Fatalf("amount %s: unexpected order id: %s", amount, result.OrderID)
		}
		if result.Amount != nil {
			t.Fatalf("amount %s: expected no amount, got %v", amount, result.Amount)
		}
	}
}

func TestVerifyMalformedBodyIsUnknown(t *testing.T) {
	srv := newVerifyServer(t, http.StatusOK, `<html>gateway</html>`, nil)

	result, err := NewVerificationClient(VerificationConfig{BaseURL: srv.URL}).Verify(context.Background(), "pay_3", "req-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Outcome != types.OutcomeUnknown {
		t.Fatalf("expected unknown, got %s", result.Outcome)
	}
}

func TestVerifyHTTPErrorCarriesServerMessage(t *testing.T) {
	srv := newVerifyServer(t, http.StatusNotFound, `{"error":{"message":"Payment pay_4 not found"}}`, nil)

	_, err := NewVerificationClient(VerificationConfig{BaseURL: srv.URL}).Verify(context.Background(), "pay_4", "req-1")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status code: %d", httpErr.StatusCode)
	}
	if err.Error() != "Payment pay_4 not found" {
		t.Fatalf("unexpected error message: %q", err.Error())
	}
}

func TestVerifyHTTPErrorWithoutBodyUsesGenericMessage(t *testing.T) {
	srv := newVerifyServer(t, http.StatusBadGateway, ``, nil)

	_, err := NewVerificationClient(VerificationConfig{BaseURL: srv.URL}).Verify(context.Background(), "pay_5", "req-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "payment verification failed: HTTP status 502" {
		t.Fatalf("unexpected error message: %q", err.Error())
	}
}

func TestVerifyRequiresPaymentID(t *testing.T) {
	_, err := NewVerificationClient(VerificationConfig{BaseURL: "http://127.0.0.1:1"}).Verify(context.Background(), " ", "req-1")
	if !errors.Is(err, ErrMissingPaymentID) {
		t.Fatalf("expected ErrMissingPaymentID, got %v", err)
	}
}

func TestVerifyTransportError(t *testing.T) {
	srv := newVerifyServer(t, http.StatusOK, `{}`, nil)
	srv.Close()

	_, err := NewVerificationClient(VerificationConfig{BaseURL: srv.URL}).Verify(context.Background(), "pay_6", "req-1")
	if err == nil {
		t.Fatal("expected transport error")
	}
}
