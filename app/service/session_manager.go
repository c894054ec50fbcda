package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/entity"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/factory"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/types"
)

// View is a snapshot as seen by a browser polling the return page.
type View struct {
	Snapshot
	Navigate bool
}

type browserPresenter struct {
	mu       sync.Mutex
	navigate bool
}

func (p *browserPresenter) Render(Snapshot) {}

func (p *browserPresenter) Navigate(Snapshot) {
	p.mu.Lock()
	p.navigate = true
	p.mu.Unlock()
}

func (p *browserPresenter) navigated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.navigate
}

type managedSession struct {
	session   *Session
	presenter *browserPresenter
}

func (m *managedSession) view() View {
	return View{Snapshot: m.session.Snapshot(), Navigate: m.presenter.navigated()}
}

// SessionManager owns at most one live reconciliation per browser session.
type SessionManager struct {
	reconciler *Reconciler
	repo       pendingPaymentRepository
	recordKey  string
	retention  time.Duration
	now        func() time.Time
	logger     logrus.FieldLogger

	mu       sync.Mutex
	sessions map[string]*managedSession
}

func NewSessionManager(reconciler *Reconciler, repo pendingPaymentRepository, recordKey string, retention time.Duration) *SessionManager {
	return &SessionManager{
		reconciler: reconciler,
		repo:       repo,
		recordKey:  recordKey,
		retention:  retention,
		now:        time.Now,
		logger:     factory.NewModuleLogger("session-manager"),
		sessions:   map[string]*managedSession{},
	}
}

// Begin replaces any session for browserID with a new one started from nav.
// It returns after the first verification round trip.
func (m *SessionManager) Begin(ctx context.Context, browserID string, nav types.NavigationParams) (View, error) {
	browserID = strings.TrimSpace(browserID)
	if browserID == "" {
		return View{}, fmt.Errorf("%w: browser session is required", ErrInvalidRequest)
	}

	m.mu.Lock()
	previous := m.sessions[browserID]
	delete(m.sessions, browserID)
	m.sweepLocked()
	m.mu.Unlock()

	if previous != nil {
		previous.session.Close()
	}

	store := NewPendingPaymentStore(m.repo, m.recordKey, browserID, nav)
	presenter := &browserPresenter{}
	managed := &managedSession{
		session:   m.reconciler.Start(ctx, browserID, store, nav, presenter),
		presenter: presenter,
	}

	m.mu.Lock()
	raced := m.sessions[browserID]
	m.sessions[browserID] = managed
	m.mu.Unlock()

	if raced != nil {
		raced.session.Close()
	}

	return managed.view(), nil
}

func (m *SessionManager) Status(browserID string) (View, error) {
	m.mu.Lock()
	managed := m.sessions[strings.TrimSpace(browserID)]
	m.mu.Unlock()

	if managed == nil {
		return View{}, ErrSessionNotFound
	}
	return managed.view(), nil
}

// End tears down the browser's session, e.g. when the shopper leaves the page.
func (m *SessionManager) End(browserID string) error {
	m.mu.Lock()
	browserID = strings.TrimSpace(browserID)
	managed := m.sessions[browserID]
	delete(m.sessions, browserID)
	m.mu.Unlock()

	if managed == nil {
		return ErrSessionNotFound
	}
	managed.session.Close()
	return nil
}

func (m *SessionManager) List() []View {
	m.mu.Lock()
	items := make([]*managedSession, 0, len(m.sessions))
	for _, managed := range m.sessions {
		items = append(items, managed)
	}
	m.mu.Unlock()

	views := make([]View, 0, len(items))
	for _, managed := range items {
		views = append(views, managed.view())
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].SessionID < views[j].SessionID
	})
	return views
}

// SavePending stores the record written at payment initiation, before the
// shopper leaves for the gateway.
func (m *SessionManager) SavePending(ctx context.Context, browserID string, req *types.CreatePendingPaymentRequest) (*entity.PendingPayment, error) {
	browserID = strings.TrimSpace(browserID)
	if browserID == "" {
		return nil, fmt.Errorf("%w: browser session is required", ErrInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	record := &entity.PendingPayment{
		PaymentID: req.PaymentID,
		OrderID:   req.OrderID,
		RequestID: req.RequestID,
		Amount:    req.ParsedAmount(),
		Timestamp: m.now().UTC(),
	}
	store := NewPendingPaymentStore(m.repo, m.recordKey, browserID, types.NavigationParams{})
	if err := store.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Shutdown closes every session.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	items := m.sessions
	m.sessions = map[string]*managedSession{}
	m.mu.Unlock()

	for _, managed := range items {
		managed.session.Close()
	}
}

func (m *SessionManager) sweepLocked() {
	if m.retention <= 0 {
		return
	}
	cutoff := m.now().UTC().Add(-m.retention)
	for id, managed := range m.sessions {
		snapshot := managed.session.Snapshot()
		if snapshot.Terminal() && snapshot.UpdatedAt.Before(cutoff) {
			managed.session.Close()
			delete(m.sessions, id)
			m.logger.WithField("session_id", id).Debug("Swept finished reconciliation session")
		}
	}
}
