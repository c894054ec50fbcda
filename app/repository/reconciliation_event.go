package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-payments-reconciler/app/entity"
)

type ReconciliationEventRepository struct {
	db DBTX
}

func NewReconciliationEventRepository(db DBTX) *ReconciliationEventRepository {
	return &ReconciliationEventRepository{db: db}
}

func (r *ReconciliationEventRepository) Create(ctx context.Context, event *entity.ReconciliationEvent) error {
	query := `
		INSERT INTO reconciliation_events (
			session_id, request_id, payment_id, order_id, state, outcome, attempt, budget, message, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.SessionID,
		event.RequestID,
		event.PaymentID,
		event.OrderID,
		event.State,
		event.Outcome,
		event.Attempt,
		event.Budget,
		nullableStringValue(event.Message),
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}
