package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/types"
)

const (
	requestIDHeader = "X-Request-ID"
	verifyPath      = "/payments/{paymentId}/verify"
)

type VerificationConfig struct {
	BaseURL     string
	APIToken    string
	HTTPTimeout time.Duration
}

// VerificationClient issues single verification requests. Retry policy lives
// in the reconciler.
type VerificationClient struct {
	cfg    VerificationConfig
	client *resty.Client
}

func NewVerificationClient(cfg VerificationConfig) *VerificationClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if token := strings.TrimSpace(cfg.APIToken); token != "" {
		client.SetAuthToken(token)
	}

	return &VerificationClient{
		cfg:    cfg,
		client: client,
	}
}

func (c *VerificationClient) Verify(ctx context.Context, paymentID, requestID string) (*types.VerificationResult, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, ErrMissingPaymentID
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, requestID).
		SetPathParam("paymentId", paymentID).
		Get(verifyPath)
	if err != nil {
		return nil, fmt.Errorf("payment verification request failed: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, newHTTPError(resp.StatusCode(), resp.Body())
	}

	var envelope types.VerifyEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return &types.VerificationResult{Outcome: types.OutcomeUnknown}, nil
	}

	return envelope.Normalize(), nil
}

func newHTTPError(statusCode int, body []byte) *HTTPError {
	httpErr := &HTTPError{StatusCode: statusCode}
	var envelope types.ErrorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &envelope) == nil {
		httpErr.Message = envelope.ServerMessage()
	}
	return httpErr
}
