package grpc

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter drives the standard health service from storage reachability.
type HealthReporter struct {
	server  *health.Server
	storage pinger
	service string
	timeout time.Duration
	logger  logrus.FieldLogger
}

func NewHealthReporter(server *health.Server, storage pinger, service string) *HealthReporter {
	return &HealthReporter{
		server:  server,
		storage: storage,
		service: service,
		timeout: 2 * time.Second,
		logger:  logrus.WithField("module", "grpc-health"),
	}
}

func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	servingStatus := healthpb.HealthCheckResponse_SERVING
	if err := h.storage.Ping(pingCtx); err != nil {
		h.logger.WithError(err).Warn("Storage ping failed")
		servingStatus = healthpb.HealthCheckResponse_NOT_SERVING
	}

	h.server.SetServingStatus("", servingStatus)
	h.server.SetServingStatus(h.service, servingStatus)
	return servingStatus
}

// Run re-checks on every interval until ctx is done.
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	h.Check(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
