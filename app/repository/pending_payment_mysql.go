package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/entity"
)

type PendingPaymentRepository struct {
	db DBTX
}

func NewPendingPaymentRepository(db DBTX) *PendingPaymentRepository {
	return &PendingPaymentRepository{db: db}
}

func (r *PendingPaymentRepository) Find(ctx context.Context, key string) (*entity.PendingPayment, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrInvalidKey
	}

	query := `
		SELECT payment_id, order_id, request_id, amount, status, created_at
		FROM pending_payments
		WHERE storage_key = ?
	`

	var (
		record    entity.PendingPayment
		amountRaw string
	)
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&record.PaymentID,
		&record.OrderID,
		&record.RequestID,
		&amountRaw,
		&record.Status,
		&record.Timestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	amount, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return nil, err
	}
	record.Amount = amount

	return &record, nil
}

// Save overwrites the whole row for the key.
func (r *PendingPaymentRepository) Save(ctx context.Context, key string, record *entity.PendingPayment) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrInvalidKey
	}

	query := `
		INSERT INTO pending_payments (
			storage_key, payment_id, order_id, request_id, amount, status, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			payment_id = VALUES(payment_id),
			order_id = VALUES(order_id),
			request_id = VALUES(request_id),
			amount = VALUES(amount),
			status = VALUES(status),
			created_at = VALUES(created_at),
			updated_at = VALUES(updated_at)
	`

	_, err := r.db.ExecContext(ctx, query,
		key,
		record.PaymentID,
		record.OrderID,
		record.RequestID,
		record.Amount.StringFixed(2),
		record.Status,
		record.Timestamp.UTC(),
		time.Now().UTC(),
	)
	return err
}

func (r *PendingPaymentRepository) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrInvalidKey
	}

	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_payments WHERE storage_key = ?`, key)
	return err
}

func (r *PendingPaymentRepository) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pending_payments WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *PendingPaymentRepository) Ping(ctx context.Context) error {
	var one int
	return r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
}
