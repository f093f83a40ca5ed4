package lnurlpay

import (
	"errors"
	"fmt"
)

var (
	// ErrUserRejected is delivered through the session close callback
	// when the user abandons a payment before confirming it.
	ErrUserRejected = errors.New("payment rejected by user")

	// ErrPaymentInFlight is returned by Confirm and Reject while a
	// payment attempt is already being submitted for the session.
	ErrPaymentInFlight = errors.New("payment already in flight")

	// ErrFlowFinished is returned by Confirm and Reject once the session
	// has reached a terminal state.
	ErrFlowFinished = errors.New("payment flow already finished")
)

// NetworkError wraps a transport level failure: the service could not be
// reached at all.
type NetworkError struct {
	Err error
}

// Error returns a human readable description of the failure.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServiceError is a failure reported by the LNURL service itself, either as
// an explicit error envelope or as a reply that cannot be used.
type ServiceError struct {
	Reason string
}

// Error returns a human readable description of the failure.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error: %s", e.Reason)
}

// InvalidInvoiceError marks an invoice that failed verification against the
// negotiated amount or the pay request metadata. It is always fatal to the
// payment attempt.
type InvalidInvoiceError struct {
	Reason string
}

// Error returns a human readable description of the failure.
func (e *InvalidInvoiceError) Error() string {
	return fmt.Sprintf("invalid invoice: %s", e.Reason)
}

// PaymentError wraps a wallet failure to settle a verified invoice.
type PaymentError struct {
	Err error
}

// Error returns a human readable description of the failure.
func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment error: %v", e.Err)
}

// Unwrap returns the underlying wallet error.
func (e *PaymentError) Unwrap() error {
	return e.Err
}

// UnsupportedSuccessActionError reports a success action tag this package
// does not know how to present. It never fails the payment itself.
type UnsupportedSuccessActionError struct {
	Tag string
}

// Error returns a human readable description of the failure.
func (e *UnsupportedSuccessActionError) Error() string {
	return fmt.Sprintf("unsupported success action: %s", e.Tag)
}
