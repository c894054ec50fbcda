package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/entity"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/factory"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/types"
)

type State string

const (
	StateLoading          State = "LOADING"
	StateVerifyingPending State = "VERIFYING_PENDING"
	StateAwaiting3DS      State = "AWAITING_3DS"
	StateSucceeded        State = "SUCCEEDED"
	StateFailed           State = "FAILED"
)

func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

const (
	MessageLoading          = "Checking your payment status..."
	MessageMissingReference = "We could not find a payment to verify. If you were charged, please contact support."
	MessageUnknownStatus    = "We could not determine the status of your payment. Please check your confirmation email or contact support."
	MessageTimeout          = "Payment verification timed out. Please check your confirmation email or contact support."
	MessageSucceeded        = "Payment confirmed. Taking you to your order..."

	defaultFailedReason    = "Your payment was declined."
	defaultCancelledReason = "Your payment was cancelled."

	orderIDPlaceholder = "{order_id}"
)

// Outcome labels recorded for transitions that do not come from a gateway status.
const (
	outcomeStarted          = "started"
	outcomeError            = "error"
	outcomeMissingReference = "missing_reference"
	outcomeLegacy           = "legacy"
)

// Snapshot is an immutable view of a session at one transition.
type Snapshot struct {
	SessionID   string
	State       State
	Message     string
	Attempt     int
	Budget      int
	PaymentID   string
	OrderID     string
	RequestID   string
	RedirectURL string
	UpdatedAt   time.Time
}

func (s Snapshot) Terminal() bool {
	return s.State.Terminal()
}

// Presenter receives every transition of a session. Calls are made while the
// session holds its lock: implementations must not call back into the Session.
type Presenter interface {
	Render(snapshot Snapshot)
	Navigate(snapshot Snapshot)
}

type verifier interface {
	Verify(ctx context.Context, paymentID, requestID string) (*types.VerificationResult, error)
}

type recordStore interface {
	Load(ctx context.Context) (*entity.PendingPayment, error)
	Clear(ctx context.Context) error
}

type eventRecorder interface {
	Create(ctx context.Context, event *entity.ReconciliationEvent) error
}

type discardEvents struct{}

func (discardEvents) Create(context.Context, *entity.ReconciliationEvent) error { return nil }

type discardPresenter struct{}

func (discardPresenter) Render(Snapshot)   {}
func (discardPresenter) Navigate(Snapshot) {}

// Reconciler starts reconciliation sessions. It is safe for concurrent use;
// all per-payment state lives in the Session.
type Reconciler struct {
	verifier         verifier
	events           eventRecorder
	clock            Clock
	policy           Policy
	orderURLTemplate string
	logger           logrus.FieldLogger
}

func NewReconciler(verifier verifier, events eventRecorder, clock Clock, policy Policy, orderURLTemplate string) *Reconciler {
	if events == nil {
		events = discardEvents{}
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Reconciler{
		verifier:         verifier,
		events:           events,
		clock:            clock,
		policy:           policy,
		orderURLTemplate: orderURLTemplate,
		logger:           factory.NewModuleLogger("reconciler"),
	}
}

func (r *Reconciler) Policy() Policy {
	return r.policy
}

// Start loads the pending payment and runs the first verification round trip
// before returning. Later retries run on the clock until the session reaches a
// terminal state or is closed. The session outlives ctx cancellation; only
// Close tears it down.
func (r *Reconciler) Start(ctx context.Context, sessionID string, store recordStore, nav types.NavigationParams, presenter Presenter) *Session {
	if presenter == nil {
		presenter = discardPresenter{}
	}
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s := &Session{
		id:        sessionID,
		r:         r,
		store:     store,
		nav:       nav,
		presenter: presenter,
		ctx:       sessionCtx,
		cancel:    cancel,
		alive:     true,
		done:      make(chan struct{}),
		closed:    make(chan struct{}),
		logger:    r.logger.WithField("session_id", sessionID),
	}

	s.mu.Lock()
	s.transitionLocked(StateLoading, MessageLoading, 0, 0, outcomeStarted)
	s.mu.Unlock()
	s.flush()

	s.begin()
	return s
}

func (r *Reconciler) orderURL(orderID string) string {
	if orderID == "" {
		return ""
	}
	template := r.orderURLTemplate
	if template == "" {
		template = "/orders/" + orderIDPlaceholder
	}
	return strings.ReplaceAll(template, orderIDPlaceholder, url.PathEscape(orderID))
}
