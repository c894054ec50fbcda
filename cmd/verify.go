package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/service"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/types"
)

var verifyFlags struct {
	sessionID   string
	paymentID   string
	orderID     string
	requestID   string
	status      string
	orderNumber string
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Reconcile a single payment and print every state change",
	Long: "Run one reconciliation in the foreground, as the return page would, using the " +
		"stored pending payment for --session or the redirect parameters given as flags.",
	Run: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	flags := verifyCmd.Flags()
	flags.StringVar(&verifyFlags.sessionID, "session", "", "Browser session whose stored pending payment should be used")
	flags.StringVar(&verifyFlags.paymentID, "payment-id", "", "Gateway payment id (redirect payment_id)")
	flags.StringVar(&verifyFlags.orderID, "order-id", "", "Order id (redirect order_id)")
	flags.StringVar(&verifyFlags.requestID, "request-id", "", "Correlation id (redirect request_id)")
	flags.StringVar(&verifyFlags.status, "status", "", "Legacy redirect status")
	flags.StringVar(&verifyFlags.orderNumber, "order-number", "", "Legacy redirect order number")
}

type terminalPresenter struct {
	out       io.Writer
	navigated chan struct{}
}

func (p *terminalPresenter) Render(snapshot service.Snapshot) {
	if snapshot.Budget > 0 {
		fmt.Fprintf(p.out, "%-17s %s (%d/%d)\n", snapshot.State, snapshot.Message, snapshot.Attempt, snapshot.Budget)
		return
	}
	fmt.Fprintf(p.out, "%-17s %s\n", snapshot.State, snapshot.Message)
}

func (p *terminalPresenter) Navigate(snapshot service.Snapshot) {
	fmt.Fprintf(p.out, "%-17s %s\n", "REDIRECT", snapshot.RedirectURL)
	close(p.navigated)
}

func runVerify(_ *cobra.Command, _ []string) {
	deps, cleanup := mustCreateDependencies()

	sessionID := verifyFlags.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	nav := types.NavigationParams{
		PaymentID:   verifyFlags.paymentID,
		OrderID:     verifyFlags.orderID,
		RequestID:   verifyFlags.requestID,
		Status:      verifyFlags.status,
		OrderNumber: verifyFlags.orderNumber,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := service.NewPendingPaymentStore(deps.storage, deps.cfg.Storage.RecordKey, sessionID, nav)
	presenter := &terminalPresenter{out: os.Stdout, navigated: make(chan struct{})}
	session := deps.reconciler.Start(ctx, sessionID, store, nav, presenter)

	snapshot, err := session.Wait(ctx)
	if err == nil && snapshot.State == service.StateSucceeded && snapshot.RedirectURL != "" {
		// Let the scheduled redirect print before exiting.
		select {
		case <-presenter.navigated:
		case <-ctx.Done():
		}
	}
	session.Close()
	cleanup()

	if err != nil {
		logrus.WithError(err).Warn("Verification interrupted")
		os.Exit(1)
	}
	if snapshot.State == service.StateFailed {
		os.Exit(1)
	}
}
