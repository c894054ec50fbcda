package service

import (
	"time"

	"github.com/vibast-solutions/ms-go-payments-reconciler/config"
)

// Policy holds the two independent retry budgets: a fixed cadence while the
// issuer's 3-D Secure challenge is open, and exponential backoff while the
// gateway reports generic processing.
type Policy struct {
	ThreeDSInterval    time.Duration
	ThreeDSMaxAttempts int

	PendingBaseDelay   time.Duration
	PendingMaxDelay    time.Duration
	PendingMaxAttempts int

	SuccessRedirectDelay time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		ThreeDSInterval:      3 * time.Second,
		ThreeDSMaxAttempts:   30,
		PendingBaseDelay:     time.Second,
		PendingMaxDelay:      10 * time.Second,
		PendingMaxAttempts:   30,
		SuccessRedirectDelay: 2 * time.Second,
	}
}

func NewPolicy(cfg config.ReconcileConfig) Policy {
	p := DefaultPolicy()
	if cfg.ThreeDSInterval > 0 {
		p.ThreeDSInterval = cfg.ThreeDSInterval
	}
	if cfg.ThreeDSMaxAttempts > 0 {
		p.ThreeDSMaxAttempts = cfg.ThreeDSMaxAttempts
	}
	if cfg.PendingBaseDelay > 0 {
		p.PendingBaseDelay = cfg.PendingBaseDelay
	}
	if cfg.PendingMaxDelay > 0 {
		p.PendingMaxDelay = cfg.PendingMaxDelay
	}
	if cfg.PendingMaxAttempts > 0 {
		p.PendingMaxAttempts = cfg.PendingMaxAttempts
	}
	if cfg.SuccessRedirectDelay > 0 {
		p.SuccessRedirectDelay = cfg.SuccessRedirectDelay
	}
	return p
}

// PendingDelay returns the wait before the nth pending retry (1-based):
// min(max, base * 2^(n-1)).
func (p Policy) PendingDelay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	delay := p.PendingBaseDelay
	for i := 1; i < n; i++ {
		if delay >= p.PendingMaxDelay {
			break
		}
		delay *= 2
	}
	if delay > p.PendingMaxDelay {
		return p.PendingMaxDelay
	}
	return delay
}
