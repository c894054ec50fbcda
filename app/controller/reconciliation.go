package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/factory"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/mapper"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/service"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/types"
)

type ReconciliationController struct {
	sessions   *service.SessionManager
	cookieName string
	logger     logrus.FieldLogger
}

func NewReconciliationController(sessions *service.SessionManager, cookieName string) *ReconciliationController {
	return &ReconciliationController{
		sessions:   sessions,
		cookieName: cookieName,
		logger:     factory.NewModuleLogger("reconciliation-controller"),
	}
}

func (c *ReconciliationController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

// BeginReturn handles the gateway redirect back to the storefront. It responds
// once the first verification round trip has completed.
func (c *ReconciliationController) BeginReturn(ctx echo.Context) error {
	nav := types.NewNavigationParamsFromContext(ctx)
	sessionID := c.browserSession(ctx, true)

	view, err := c.sessions.Begin(ctx.Request().Context(), sessionID, nav)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Begin reconciliation failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	factory.LoggerWithContext(c.logger, ctx).WithFields(logrus.Fields{
		"payment_id": view.PaymentID,
		"state":      view.State,
	}).Info("Reconciliation started")

	return ctx.JSON(http.StatusAccepted, mapper.ViewToResponse(view))
}

func (c *ReconciliationController) Status(ctx echo.Context) error {
	sessionID := c.browserSession(ctx, false)
	if sessionID == "" {
		return c.writeError(ctx, http.StatusNotFound, "reconciliation session not found")
	}

	view, err := c.sessions.Status(sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "reconciliation session not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get reconciliation status failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, mapper.ViewToResponse(view))
}

// EndReturn tears down the session when the shopper leaves the return page.
func (c *ReconciliationController) EndReturn(ctx echo.Context) error {
	sessionID := c.browserSession(ctx, false)
	if sessionID == "" {
		return c.writeError(ctx, http.StatusNotFound, "reconciliation session not found")
	}

	if err := c.sessions.End(sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "reconciliation session not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("End reconciliation failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Reconciliation stopped"})
}

func (c *ReconciliationController) SavePending(ctx echo.Context) error {
	req, err := types.NewCreatePendingPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	sessionID := c.browserSession(ctx, true)
	record, err := c.sessions.SavePending(ctx.Request().Context(), sessionID, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Save pending payment failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusCreated, &types.PendingPaymentResponse{
		PaymentID: record.PaymentID,
		OrderID:   record.OrderID,
		RequestID: record.RequestID,
		Amount:    record.Amount.StringFixed(2),
	})
}

func (c *ReconciliationController) ListSessions(ctx echo.Context) error {
	views := c.sessions.List()
	return ctx.JSON(http.StatusOK, &types.ListReconciliationsResponse{Sessions: mapper.ViewsToResponse(views)})
}

func (c *ReconciliationController) browserSession(ctx echo.Context, create bool) string {
	if cookie, err := ctx.Cookie(c.cookieName); err == nil {
		if value := strings.TrimSpace(cookie.Value); value != "" {
			return value
		}
	}
	if !create {
		return ""
	}

	value := uuid.NewString()
	ctx.SetCookie(&http.Cookie{
		Name:     c.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// Later reads in this request see the minted id.
	ctx.Request().AddCookie(&http.Cookie{Name: c.cookieName, Value: value})
	return value
}

func (c *ReconciliationController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
