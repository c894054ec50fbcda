package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/entity"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/factory"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/types"
)

const recoveredRequestIDPrefix = "recovered"

type pendingPaymentRepository interface {
	Find(ctx context.Context, key string) (*entity.PendingPayment, error)
	Save(ctx context.Context, key string, record *entity.PendingPayment) error
	Delete(ctx context.Context, key string) error
}

// PendingPaymentStore binds the record storage to one browser session and the
// redirect that opened it.
type PendingPaymentStore struct {
	repo   pendingPaymentRepository
	key    string
	nav    types.NavigationParams
	now    func() time.Time
	logger logrus.FieldLogger
}

func NewPendingPaymentStore(repo pendingPaymentRepository, recordKey, sessionID string, nav types.NavigationParams) *PendingPaymentStore {
	return &PendingPaymentStore{
		repo:   repo,
		key:    StorageKey(recordKey, sessionID),
		nav:    nav,
		now:    time.Now,
		logger: factory.NewModuleLogger("pending-payment-store").WithField("session_id", sessionID),
	}
}

func StorageKey(recordKey, sessionID string) string {
	return strings.TrimSpace(recordKey) + ":" + strings.TrimSpace(sessionID)
}

// Load returns the stored record, or synthesizes and persists one from the
// redirect parameters. A nil record with a nil error means no payment reference
// exists anywhere.
func (s *PendingPaymentStore) Load(ctx context.Context) (*entity.PendingPayment, error) {
	stored, findErr := s.repo.Find(ctx, s.key)
	if findErr != nil {
		s.logger.WithError(findErr).Warn("Pending payment lookup failed, falling back to redirect parameters")
	}
	if stored != nil && !s.supersedes(stored) {
		return stored, nil
	}

	if !s.nav.HasPaymentReference() {
		if findErr != nil {
			return nil, fmt.Errorf("load pending payment: %w", findErr)
		}
		return nil, nil
	}

	now := s.now().UTC()
	requestID := s.nav.RequestID
	if requestID == "" {
		requestID = newRecoveredRequestID(now)
	}
	record := &entity.PendingPayment{
		PaymentID: s.nav.PaymentID,
		OrderID:   s.nav.OrderID,
		RequestID: requestID,
		Amount:    decimal.Zero,
		Timestamp: now,
	}

	if err := s.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("persist recovered pending payment: %w", err)
	}

	entry := s.logger.WithFields(logrus.Fields{
		"request_id": record.RequestID,
		"payment_id": record.PaymentID,
		"order_id":   record.OrderID,
	})
	if stored != nil {
		entry.WithField("previous_payment_id", stored.PaymentID).Info("Pending payment superseded by redirect")
	} else {
		entry.Info("Pending payment recovered from redirect")
	}

	return record, nil
}

func (s *PendingPaymentStore) Save(ctx context.Context, record *entity.PendingPayment) error {
	return s.repo.Save(ctx, s.key, record)
}

func (s *PendingPaymentStore) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, s.key)
}

func (s *PendingPaymentStore) supersedes(stored *entity.PendingPayment) bool {
	return s.nav.HasPaymentReference() && s.nav.PaymentID != stored.PaymentID
}

func newRecoveredRequestID(now time.Time) string {
	short := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%s-%d", recoveredRequestIDPrefix, short, now.UnixMilli())
}
