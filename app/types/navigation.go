package types

import (
	"errors"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const legacyStatusSuccess = "success"

// NavigationParams are the query parameters of the gateway redirect that lands
// the shopper back on the storefront.
type NavigationParams struct {
	PaymentID   string
	OrderID     string
	RequestID   string
	Status      string
	OrderNumber string
}

func NavigationParamsFromValues(values url.Values) NavigationParams {
	return NavigationParams{
		PaymentID:   strings.TrimSpace(values.Get("payment_id")),
		OrderID:     strings.TrimSpace(values.Get("order_id")),
		RequestID:   strings.TrimSpace(values.Get("request_id")),
		Status:      strings.TrimSpace(values.Get("status")),
		OrderNumber: strings.TrimSpace(values.Get("order_number")),
	}
}

func NewNavigationParamsFromContext(ctx echo.Context) NavigationParams {
	return NavigationParamsFromValues(ctx.QueryParams())
}

// HasPaymentReference reports whether a pending payment can be synthesized
// from the redirect alone.
func (p NavigationParams) HasPaymentReference() bool {
	return p.PaymentID != "" && p.OrderID != ""
}

// IsLegacy reports the older redirect contract that carries only an order
// number and a textual status.
func (p NavigationParams) IsLegacy() bool {
	return p.PaymentID == "" && p.OrderNumber != "" && p.Status != ""
}

func (p NavigationParams) LegacySucceeded() bool {
	return strings.EqualFold(p.Status, legacyStatusSuccess)
}

type CreatePendingPaymentRequest struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	RequestID string `json:"request_id"`
	Amount    string `json:"amount"`
}

func NewCreatePendingPaymentRequestFromContext(ctx echo.Context) (*CreatePendingPaymentRequest, error) {
	var body CreatePendingPaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.PaymentID = strings.TrimSpace(body.PaymentID)
	body.OrderID = strings.TrimSpace(body.OrderID)
	body.RequestID = strings.TrimSpace(body.RequestID)
	if body.RequestID == "" {
		body.RequestID = strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
	}
	body.Amount = strings.TrimSpace(body.Amount)

	return &body, nil
}

func (r *CreatePendingPaymentRequest) Validate() error {
	if r.PaymentID == "" {
		return errors.New("payment_id is required")
	}
	if r.OrderID == "" {
		return errors.New("order_id is required")
	}
	if r.RequestID == "" {
		return errors.New("request_id is required")
	}
	if r.Amount != "" {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return errors.New("amount must be a decimal number")
		}
		if amount.IsNegative() {
			return errors.New("amount must be >= 0")
		}
	}
	return nil
}

// ParsedAmount returns zero when the amount is not known yet.
func (r *CreatePendingPaymentRequest) ParsedAmount() decimal.Decimal {
	if r.Amount == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
