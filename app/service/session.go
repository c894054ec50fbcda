package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/entity"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/types"
)

// Session reconciles one pending payment. Every callback checks liveness under
// the lock, so nothing fires after Close and no transition follows a terminal one.
// Transitions are queued under the lock and delivered to the event log and the
// presenter by flush, in order, without holding it.
type Session struct {
	id        string
	r         *Reconciler
	store     recordStore
	nav       types.NavigationParams
	presenter Presenter
	logger    logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	alive          bool
	terminal       bool
	navigated      bool
	timer          Timer
	record         *entity.PendingPayment
	snapshot       Snapshot
	attempts       []entity.VerificationAttempt
	threeDSRetries int
	pendingRetries int

	emitMu sync.Mutex
	outbox []emission

	done   chan struct{}
	closed chan struct{}
}

type emission struct {
	snapshot Snapshot
	event    *entity.ReconciliationEvent
	navigate bool
	finish   bool
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Navigated reports whether the post-success navigation has fired.
func (s *Session) Navigated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.navigated
}

func (s *Session) Attempts() []entity.VerificationAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.VerificationAttempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}

// Record returns a copy of the in-memory pending payment, including the last
// raw gateway status. The stored copy is never updated with it.
func (s *Session) Record() *entity.PendingPayment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session is terminal, closed, or ctx ends. A session
// that finished reports nil even if it was closed afterwards.
func (s *Session) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-s.done:
		return s.Snapshot(), nil
	default:
	}

	select {
	case <-s.done:
		return s.Snapshot(), nil
	case <-s.closed:
		return s.Snapshot(), context.Canceled
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// Close tears the session down: the pending timer is cancelled, an in-flight
// verification is aborted and its result discarded. Safe to call repeatedly.
func (s *Session) Close() {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.alive = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.cancel()
	close(s.closed)
	s.logger.Debug("Reconciliation session closed")
}

func (s *Session) begin() {
	defer s.flush()
	record, err := s.store.Load(s.ctx)

	s.mu.Lock()
	if err == nil && record != nil {
		s.record = record
		s.mu.Unlock()
		s.attempt()
		return
	}
	defer s.mu.Unlock()

	switch {
	case err != nil:
		s.logger.WithError(err).Error("Failed to load pending payment")
		s.finishLocked(StateFailed, err.Error(), 0, 0, outcomeError)
	case s.nav.IsLegacy():
		s.resolveLegacyLocked()
	default:
		s.logger.Warn("No pending payment and no payment reference in redirect")
		s.finishLocked(StateFailed, MessageMissingReference, 0, 0, outcomeMissingReference)
	}
}

func (s *Session) attempt() {
	defer s.flush()
	s.mu.Lock()
	if !s.alive || s.terminal {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	sequence := len(s.attempts) + 1
	paymentID := s.record.PaymentID
	requestID := s.record.RequestID
	s.mu.Unlock()

	calledAt := s.r.clock.Now().UTC()
	result, err := s.r.verifier.Verify(s.ctx, paymentID, requestID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive || s.terminal {
		s.logger.WithField("attempt", sequence).Debug("Discarding verification result for closed session")
		return
	}

	rawStatus := ""
	if result != nil {
		rawStatus = result.RawStatus
	}
	s.attempts = append(s.attempts, entity.VerificationAttempt{
		Sequence:  sequence,
		RawStatus: rawStatus,
		CalledAt:  calledAt,
	})

	if err != nil {
		s.logger.WithError(err).WithField("attempt", sequence).Warn("Payment verification failed")
		s.finishLocked(StateFailed, err.Error(), len(s.attempts), 0, outcomeError)
		return
	}
	if result == nil {
		result = &types.VerificationResult{Outcome: types.OutcomeUnknown}
	}

	s.record.Status = rawStatus
	s.handleLocked(result)
}

func (s *Session) handleLocked(result *types.VerificationResult) {
	policy := s.r.policy
	outcome := string(result.Outcome)

	switch result.Outcome {
	case types.OutcomeSucceeded:
		s.succeedLocked(result.OrderID, outcome)
	case types.OutcomeRequires3DS:
		s.threeDSRetries++
		if s.threeDSRetries >= policy.ThreeDSMaxAttempts {
			s.finishLocked(StateFailed, MessageTimeout, s.threeDSRetries, policy.ThreeDSMaxAttempts, outcome)
			return
		}
		message := fmt.Sprintf("Waiting for your bank to confirm the payment (check %d of %d)...", s.threeDSRetries, policy.ThreeDSMaxAttempts)
		s.waitLocked(StateAwaiting3DS, message, s.threeDSRetries, policy.ThreeDSMaxAttempts, policy.ThreeDSInterval, outcome)
	case types.OutcomePending:
		s.pendingRetries++
		if s.pendingRetries >= policy.PendingMaxAttempts {
			s.finishLocked(StateFailed, MessageTimeout, s.pendingRetries, policy.PendingMaxAttempts, outcome)
			return
		}
		message := fmt.Sprintf("Your payment is still processing (check %d of %d)...", s.pendingRetries, policy.PendingMaxAttempts)
		s.waitLocked(StateVerifyingPending, message, s.pendingRetries, policy.PendingMaxAttempts, policy.PendingDelay(s.pendingRetries), outcome)
	case types.OutcomeFailed:
		s.finishLocked(StateFailed, reasonOrDefault(result.Reason, defaultFailedReason), len(s.attempts), 0, outcome)
	case types.OutcomeCancelled:
		s.finishLocked(StateFailed, reasonOrDefault(result.Reason, defaultCancelledReason), len(s.attempts), 0, outcome)
	default:
		s.logger.WithField("raw_status", result.RawStatus).Warn("Unrecognized payment status")
		s.finishLocked(StateFailed, MessageUnknownStatus, len(s.attempts), 0, outcome)
	}
}

func (s *Session) succeedLocked(orderID, outcome string) {
	if s.record != nil {
		if orderID == "" {
			orderID = s.record.OrderID
		} else if s.record.OrderID != "" && orderID != s.record.OrderID {
			s.logger.WithFields(logrus.Fields{
				"stored_order_id":  s.record.OrderID,
				"gateway_order_id": orderID,
			}).Warn("Gateway order id differs from pending payment")
		}
	}

	s.snapshot.OrderID = orderID
	s.snapshot.RedirectURL = s.r.orderURL(orderID)
	s.finishLocked(StateSucceeded, MessageSucceeded, len(s.attempts), 0, outcome)
	s.scheduleNavigationLocked(orderID)
}

func (s *Session) resolveLegacyLocked() {
	s.snapshot.OrderID = s.nav.OrderID
	s.snapshot.RequestID = s.nav.RequestID
	outcome := outcomeLegacy + "_" + strings.ToLower(s.nav.Status)

	if s.nav.LegacySucceeded() {
		s.snapshot.RedirectURL = s.r.orderURL(s.nav.OrderID)
		s.finishLocked(StateSucceeded, fmt.Sprintf("Payment for order %s was successful.", s.nav.OrderNumber), 0, 0, outcome)
		s.scheduleNavigationLocked(s.nav.OrderID)
		return
	}
	s.finishLocked(StateFailed, fmt.Sprintf("Payment for order %s was not completed.", s.nav.OrderNumber), 0, 0, outcome)
}

func (s *Session) waitLocked(state State, message string, attempt, budget int, delay time.Duration, outcome string) {
	s.transitionLocked(state, message, attempt, budget, outcome)
	s.logger.WithFields(logrus.Fields{
		"state":   state,
		"attempt": attempt,
		"budget":  budget,
		"delay":   delay.String(),
	}).Debug("Scheduling verification retry")
	s.timer = s.r.clock.AfterFunc(delay, s.attempt)
}

// finishLocked clears the stored record exactly once per session before the
// terminal snapshot is published.
func (s *Session) finishLocked(state State, message string, attempt, budget int, outcome string) {
	s.terminal = true
	if err := s.store.Clear(s.ctx); err != nil {
		s.logger.WithError(err).Error("Failed to clear pending payment")
	}
	s.transitionLocked(state, message, attempt, budget, outcome)
	s.outbox[len(s.outbox)-1].finish = true
}

func (s *Session) scheduleNavigationLocked(orderID string) {
	if orderID == "" {
		return
	}
	s.timer = s.r.clock.AfterFunc(s.r.policy.SuccessRedirectDelay, s.navigate)
}

func (s *Session) navigate() {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive || s.navigated {
		return
	}
	s.timer = nil
	s.navigated = true
	s.logger.WithField("redirect_url", s.snapshot.RedirectURL).Info("Navigating to order")
	s.outbox = append(s.outbox, emission{snapshot: s.snapshot, navigate: true})
}

func (s *Session) transitionLocked(state State, message string, attempt, budget int, outcome string) {
	snapshot := s.snapshot
	snapshot.SessionID = s.id
	snapshot.State = state
	snapshot.Message = message
	snapshot.Attempt = attempt
	snapshot.Budget = budget
	snapshot.UpdatedAt = s.r.clock.Now().UTC()
	if s.record != nil {
		snapshot.PaymentID = s.record.PaymentID
		snapshot.RequestID = s.record.RequestID
		if snapshot.OrderID == "" {
			snapshot.OrderID = s.record.OrderID
		}
	}
	s.snapshot = snapshot

	entry := s.logger.WithFields(logrus.Fields{
		"state":      state,
		"outcome":    outcome,
		"attempt":    attempt,
		"budget":     budget,
		"payment_id": snapshot.PaymentID,
		"request_id": snapshot.RequestID,
	})
	if state.Terminal() {
		entry.Info("Reconciliation finished")
	} else {
		entry.Debug("Reconciliation state changed")
	}

	msg := message
	event := &entity.ReconciliationEvent{
		SessionID: s.id,
		RequestID: snapshot.RequestID,
		PaymentID: snapshot.PaymentID,
		OrderID:   snapshot.OrderID,
		State:     string(state),
		Outcome:   outcome,
		Attempt:   int32(attempt),
		Budget:    int32(budget),
		Message:   &msg,
		CreatedAt: snapshot.UpdatedAt,
	}
	s.outbox = append(s.outbox, emission{snapshot: snapshot, event: event})
}

// flush drains the outbox. Callers must not hold mu. Holding emitMu across the
// drain keeps delivery ordered, and a caller returns only once everything it
// queued has been delivered. A closed session still logs its events but no
// longer renders.
func (s *Session) flush() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	for {
		s.mu.Lock()
		batch := s.outbox
		s.outbox = nil
		s.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, e := range batch {
			if e.event != nil {
				_ = s.r.events.Create(context.WithoutCancel(s.ctx), e.event)
			}
			if s.isAlive() {
				if e.navigate {
					s.presenter.Navigate(e.snapshot)
				} else {
					s.presenter.Render(e.snapshot)
				}
			}
			if e.finish {
				close(s.done)
			}
		}
	}
}

func (s *Session) isAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

func reasonOrDefault(reason, fallback string) string {
	if reason = strings.TrimSpace(reason); reason != "" {
		return reason
	}
	return fallback
}
