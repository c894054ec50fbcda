package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/factory"
)

type stalePurger interface {
	PurgeStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurgeService drops pending payments abandoned by shoppers who never
// returned from the gateway.
type PurgeService struct {
	repo       stalePurger
	staleAfter time.Duration
	now        func() time.Time
	logger     logrus.FieldLogger
}

func NewPurgeService(repo stalePurger, staleAfter time.Duration) *PurgeService {
	return &PurgeService{
		repo:       repo,
		staleAfter: staleAfter,
		now:        time.Now,
		logger:     factory.NewModuleLogger("purge"),
	}
}

func (s *PurgeService) RunPurgeStale(ctx context.Context) error {
	cutoff := s.now().UTC().Add(-s.staleAfter)
	purged, err := s.repo.PurgeStale(ctx, cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		s.logger.WithFields(logrus.Fields{
			"purged": purged,
			"cutoff": cutoff.Format(time.RFC3339),
		}).Info("Purged stale pending payments")
	}
	return nil
}
