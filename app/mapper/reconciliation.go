package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-payments-reconciler/app/service"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/types"
)

func ViewToResponse(view service.View) *types.ReconciliationResponse {
	return &types.ReconciliationResponse{
		State:       string(view.State),
		Message:     view.Message,
		Attempt:     view.Attempt,
		Budget:      view.Budget,
		PaymentID:   view.PaymentID,
		OrderID:     view.OrderID,
		RequestID:   view.RequestID,
		RedirectURL: view.RedirectURL,
		Navigate:    view.Navigate,
		Terminal:    view.Terminal(),
		UpdatedAt:   formatTime(view.UpdatedAt),
	}
}

// ViewsToResponse includes session ids; only internal callers see it.
func ViewsToResponse(views []service.View) []*types.ReconciliationResponse {
	out := make([]*types.ReconciliationResponse, 0, len(views))
	for _, view := range views {
		item := ViewToResponse(view)
		item.SessionID = view.SessionID
		out = append(out, item)
	}
	return out
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
