package lnurlpay

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
)

// State is the lifecycle position of a payment flow session.
type State uint8

const (
	// StateAwaitingAmount accepts amount edits, Confirm and Reject.
	StateAwaitingAmount State = iota

	// StateSubmitting covers the whole confirmed attempt, from the
	// invoice fetch until the wallet reports a result.
	StateSubmitting

	// StateCompleted is terminal: the payment settled.
	StateCompleted

	// StateRejected is terminal: the user abandoned the payment before
	// confirming it.
	StateRejected

	// StateFailed is terminal: the confirmed attempt failed.
	StateFailed
)

// String returns a human readable name for the state.
func (s State) String() string {
	switch s {
	case StateAwaitingAmount:
		return "awaiting amount"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	case StateRejected:
		return "rejected"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown state %d", s)
	}
}

// Terminal reports whether the session can no longer change state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateRejected || s == StateFailed
}

// PaymentExecutor settles a verified invoice. Implementations run the
// payment to completion once dispatched; the flow never cancels it.
type PaymentExecutor interface {
	PayInvoice(ctx context.Context, paymentRequest string,
		origin RequestOrigin) (lntypes.Preimage, error)
}

// CloseFunc is told exactly once that a session reached a terminal state.
// The error is nil for completed payments, ErrUserRejected for abandoned
// ones and the failure reason otherwise.
type CloseFunc func(state State, err error)

// FlowConfig bundles everything a payment flow session needs.
type FlowConfig struct {
	// Params are the pay request parameters driving the session. They
	// are validated by NewFlow.
	Params *PayParams

	// Origin attributes the session's prompts and notifications. An
	// empty name falls back to the pay request domain.
	Origin RequestOrigin

	// Wallet executes the payment once the invoice has been verified.
	Wallet PaymentExecutor

	// Notifier, Approver and Opener present success actions. Sessions
	// without them treat every success action as a non-fatal boundary
	// failure.
	Notifier Notifier
	Approver Approver
	Opener   URLOpener

	// Request carries optional callback parameters.
	Request RequestOptions

	// HTTP optionally overrides the callback transport.
	HTTP *http.Client

	// Net are the chain parameters invoices must be encoded for.
	Net *chaincfg.Params

	// OnClose is the session teardown signal. Optional.
	OnClose CloseFunc
}

// Receipt summarises a completed payment.
type Receipt struct {
	// Amount is the paid amount.
	Amount lnwire.MilliSatoshi

	// PaymentRequest is the settled invoice.
	PaymentRequest string

	// Preimage is the settlement proof returned by the wallet.
	Preimage lntypes.Preimage

	// Action describes how the success action, if any, was presented.
	Action Outcome

	// ActionErr reports a failed or unsupported success action. It
	// never marks the payment itself as failed.
	ActionErr error
}

// Flow drives a single LNURL-pay payment from parameter presentation to a
// terminal state. At most one payment attempt is ever dispatched per flow,
// and the teardown callback fires exactly once.
type Flow struct {
	cfg    *FlowConfig
	origin RequestOrigin

	amount    *Amount
	requester *InvoiceRequester
	verifier  *Verifier
	actions   *SuccessActionHandler

	mu    sync.Mutex
	state State

	closeOnce sync.Once
}

// NewFlow validates the pay request parameters and opens a session awaiting
// an amount. The initial amount is the smallest sendable one.
func NewFlow(cfg *FlowConfig) (*Flow, error) {
	if cfg == nil || cfg.Params == nil {
		return nil, fmt.Errorf("missing pay request parameters")
	}
	if cfg.Wallet == nil {
		return nil, fmt.Errorf("missing wallet")
	}
	if cfg.Net == nil {
		return nil, fmt.Errorf("missing chain parameters")
	}

	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pay request parameters: %w",
			err)
	}

	amount, err := NewAmount(cfg.Params.MinSendable, cfg.Params.MaxSendable)
	if err != nil {
		return nil, err
	}

	origin := cfg.Origin
	if origin.Name == "" {
		origin.Name = cfg.Params.Domain
	}

	return &Flow{
		cfg:       cfg,
		origin:    origin,
		amount:    amount,
		requester: NewInvoiceRequester(cfg.HTTP),
		verifier:  &Verifier{Net: cfg.Net},
		actions: NewSuccessActionHandler(
			origin, cfg.Notifier, cfg.Approver, cfg.Opener,
		),
		state: StateAwaitingAmount,
	}, nil
}

// Params returns the pay request parameters driving the session.
func (f *Flow) Params() *PayParams {
	return f.cfg.Params
}

// Amount exposes the session's amount negotiator. Edits made after Confirm
// has been called have no effect on the attempt: the flow snapshots the
// held amount when dispatching.
func (f *Flow) Amount() *Amount {
	return f.amount
}

// State returns the session state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

// Confirm dispatches the payment attempt for the currently held amount:
// fetch the invoice, verify it, hand it to the wallet and present the
// success action. Only the first call ever reaches the network. Concurrent
// and repeated calls fail with ErrPaymentInFlight while the attempt runs
// and with ErrFlowFinished afterwards.
func (f *Flow) Confirm(ctx context.Context) (*Receipt, error) {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return nil, ErrPaymentInFlight
	}
	if f.state.Terminal() {
		f.mu.Unlock()
		return nil, ErrFlowFinished
	}
	f.state = StateSubmitting
	amount := f.amount.MilliSat()
	f.mu.Unlock()

	log.Debugf("Requesting invoice for %v from %s", amount,
		f.cfg.Params.Domain)

	invoice, err := f.requester.Fetch(
		ctx, f.cfg.Params.Callback, amount, &f.cfg.Request,
	)
	if err != nil {
		return nil, f.fail(err)
	}

	err = f.verifier.Verify(invoice, f.cfg.Params.Metadata, amount)
	if err != nil {
		return nil, f.fail(err)
	}

	log.Debugf("Invoice verified, handing %v payment to the wallet",
		amount)

	preimage, err := f.cfg.Wallet.PayInvoice(
		ctx, invoice.PaymentRequest, f.origin,
	)
	if err != nil {
		return nil, f.fail(&PaymentError{Err: err})
	}

	// The payment settled. Whatever happens to the success action from
	// here is reported but can no longer fail the session.
	outcome, actionErr := f.actions.Handle(
		ctx, invoice.SuccessAction, preimage,
	)
	if actionErr != nil {
		log.Warnf("Success action from %s not presented: %v",
			f.cfg.Params.Domain, actionErr)
	}

	f.mu.Lock()
	f.state = StateCompleted
	f.mu.Unlock()

	log.Infof("Paid %v to %s, preimage=%v", amount,
		f.cfg.Params.Domain, preimage)

	f.close(StateCompleted, nil)

	return &Receipt{
		Amount:         amount,
		PaymentRequest: invoice.PaymentRequest,
		Preimage:       preimage,
		Action:         outcome,
		ActionErr:      actionErr,
	}, nil
}

// Reject abandons the payment before confirmation. The teardown callback is
// told with ErrUserRejected. Nothing is ever sent to the service or the
// wallet for a rejected session.
func (f *Flow) Reject() error {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return ErrPaymentInFlight
	}
	if f.state.Terminal() {
		f.mu.Unlock()
		return ErrFlowFinished
	}
	f.state = StateRejected
	f.mu.Unlock()

	log.Debugf("Payment to %s rejected before confirmation",
		f.cfg.Params.Domain)

	f.close(StateRejected, ErrUserRejected)

	return nil
}

// fail moves the session to StateFailed and reports the reason.
func (f *Flow) fail(err error) error {
	f.mu.Lock()
	f.state = StateFailed
	f.mu.Unlock()

	log.Errorf("Payment to %s failed: %v", f.cfg.Params.Domain, err)

	f.close(StateFailed, err)

	return err
}

// close delivers the teardown signal exactly once.
func (f *Flow) close(state State, err error) {
	f.closeOnce.Do(func() {
		if f.cfg.OnClose != nil {
			f.cfg.OnClose(state, err)
		}
	})
}
