package service

import (
	"context"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-payments-reconciler/app/entity"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/types"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves virtual time forward, firing due timers in order on the
// calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.fn()
	}
}

func (c *fakeClock) pendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			count++
		}
	}
	return count
}

type verifyCall struct {
	paymentID string
	requestID string
	at        time.Time
}

type scriptedVerifier struct {
	mu    sync.Mutex
	clock Clock
	calls []verifyCall
	fn    func(ctx context.Context, call int) (*types.VerificationResult, error)
}

func (v *scriptedVerifier) Verify(ctx context.Context, paymentID, requestID string) (*types.VerificationResult, error) {
	v.mu.Lock()
	call := verifyCall{paymentID: paymentID, requestID: requestID}
	if v.clock != nil {
		call.at = v.clock.Now()
	}
	v.calls = append(v.calls, call)
	n := len(v.calls)
	v.mu.Unlock()

	if v.fn == nil {
		return &types.VerificationResult{Outcome: types.OutcomeSucceeded, RawStatus: "succeeded"}, nil
	}
	return v.fn(ctx, n)
}

func (v *scriptedVerifier) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.calls)
}

func (v *scriptedVerifier) callTimes() []time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]time.Time, 0, len(v.calls))
	for _, call := range v.calls {
		out = append(out, call.at)
	}
	return out
}

func outcomeResult(outcome types.Outcome, rawStatus string) *types.VerificationResult {
	return &types.VerificationResult{Outcome: outcome, RawStatus: rawStatus}
}

type countingRepo struct {
	mu        sync.Mutex
	records   map[string]*entity.PendingPayment
	finds     int
	saves     int
	deletes   int
	findErr   error
	saveErr   error
	deleteErr error
}

func newCountingRepo() *countingRepo {
	return &countingRepo{records: map[string]*entity.PendingPayment{}}
}

func (r *countingRepo) Find(_ context.Context, key string) (*entity.PendingPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.records[key].Clone(), nil
}

func (r *countingRepo) Save(_ context.Context, key string, record *entity.PendingPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.records[key] = record.Clone()
	return nil
}

func (r *countingRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.records, key)
	return nil
}

func (r *countingRepo) seed(key string, record *entity.PendingPayment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[key] = record.Clone()
}

func (r *countingRepo) get(key string) *entity.PendingPayment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[key].Clone()
}

func (r *countingRepo) counts() (finds, saves, deletes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finds, r.saves, r.deletes
}

type recordingPresenter struct {
	mu          sync.Mutex
	renders     []Snapshot
	navigations []Snapshot
}

func (p *recordingPresenter) Render(snapshot Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renders = append(p.renders, snapshot)
}

func (p *recordingPresenter) Navigate(snapshot Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, snapshot)
}

func (p *recordingPresenter) states() []State {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]State, 0, len(p.renders))
	for _, snapshot := range p.renders {
		out = append(out, snapshot.State)
	}
	return out
}

func (p *recordingPresenter) navigationCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.navigations)
}

type serviceEventRepo struct {
	mu     sync.Mutex
	events []*entity.ReconciliationEvent
}

func (r *serviceEventRepo) Create(_ context.Context, event *entity.ReconciliationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyItem := *event
	r.events = append(r.events, &copyItem)
	return nil
}

// gatedEventRepo blocks Create for events in blockState until release is closed.
type gatedEventRepo struct {
	serviceEventRepo
	blockState State
	entered    chan struct{}
	release    chan struct{}
}

func (r *gatedEventRepo) Create(ctx context.Context, event *entity.ReconciliationEvent) error {
	if event.State == string(r.blockState) {
		close(r.entered)
		<-r.release
	}
	return r.serviceEventRepo.Create(ctx, event)
}
