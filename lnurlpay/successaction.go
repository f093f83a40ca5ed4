package lnurlpay

import (
	"context"
	"fmt"

	"github.com/lightningnetwork/lnd/lntypes"
)

// Notifier passively displays a message to the user.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Approver asks the user a yes/no question and reports the answer.
type Approver interface {
	Approve(ctx context.Context, prompt string) (bool, error)
}

// URLOpener opens a URL in the embedding environment.
type URLOpener interface {
	OpenURL(ctx context.Context, url string) error
}

// Outcome describes how a success action was presented.
type Outcome uint8

const (
	// OutcomeNone means no success action was presented, either because
	// the invoice carried none or because a boundary failed.
	OutcomeNone Outcome = iota

	// OutcomeMessageShown means a message action was displayed.
	OutcomeMessageShown

	// OutcomeURLOpened means the user approved opening the action URL
	// and it was handed to the environment.
	OutcomeURLOpened

	// OutcomeURLDeclined means the user declined opening the action URL.
	OutcomeURLDeclined

	// OutcomeUnsupported means the action carried a tag this package
	// does not support.
	OutcomeUnsupported
)

// String returns a human readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeMessageShown:
		return "message shown"
	case OutcomeURLOpened:
		return "url opened"
	case OutcomeURLDeclined:
		return "url declined"
	case OutcomeUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("unknown outcome %d", o)
	}
}

// SuccessActionHandler presents success actions after a payment settled.
type SuccessActionHandler struct {
	origin   RequestOrigin
	notifier Notifier
	approver Approver
	opener   URLOpener
}

// NewSuccessActionHandler returns a handler presenting actions through the
// given boundaries on behalf of the given origin.
func NewSuccessActionHandler(origin RequestOrigin, notifier Notifier,
	approver Approver, opener URLOpener) *SuccessActionHandler {

	return &SuccessActionHandler{
		origin:   origin,
		notifier: notifier,
		approver: approver,
		opener:   opener,
	}
}

// Handle presents the given success action. The preimage is the key material
// an aes action would decrypt with; aes actions are reported as unsupported
// and never decrypted. Errors returned here never undo the payment: callers
// report them and carry on. On a boundary failure the outcome is OutcomeNone.
func (h *SuccessActionHandler) Handle(ctx context.Context,
	action *SuccessAction, preimage lntypes.Preimage) (Outcome, error) {

	if action == nil {
		return OutcomeNone, nil
	}

	switch action.Tag {
	case ActionTagMessage:
		if h.notifier == nil {
			return OutcomeNone, fmt.Errorf("no notifier available")
		}

		err := h.notifier.Notify(ctx, h.origin.Name, action.Message)
		if err != nil {
			return OutcomeNone, fmt.Errorf("notify: %w", err)
		}

		return OutcomeMessageShown, nil

	case ActionTagURL:
		if h.approver == nil || h.opener == nil {
			return OutcomeNone, fmt.Errorf("no url boundaries " +
				"available")
		}

		prompt := fmt.Sprintf("Open %s?", action.URL)
		if action.Description != "" {
			prompt = fmt.Sprintf("%s\nOpen %s?",
				action.Description, action.URL)
		}

		ok, err := h.approver.Approve(ctx, prompt)
		if err != nil {
			return OutcomeNone, fmt.Errorf("approve: %w", err)
		}
		if !ok {
			return OutcomeURLDeclined, nil
		}

		if err := h.opener.OpenURL(ctx, action.URL); err != nil {
			return OutcomeNone, fmt.Errorf("open url: %w", err)
		}

		return OutcomeURLOpened, nil

	case ActionTagAES:
		return OutcomeUnsupported, &UnsupportedSuccessActionError{
			Tag: action.Tag,
		}

	default:
		return OutcomeUnsupported, &UnsupportedSuccessActionError{
			Tag: action.Tag,
		}
	}
}
