package lnurlpay

import (
	"errors"
	"fmt"
	"math"

	"github.com/btcsuite/btcutil"
	"github.com/lightningnetwork/lnd/lnwire"
)

var (
	// ErrAmountFixed is returned for edits when the advertised bounds pin
	// the amount to a single value.
	ErrAmountFixed = errors.New("amount is fixed by the pay request")

	// ErrAmountResolution is returned for candidates with sub-satoshi
	// precision. Edits happen in whole satoshis.
	ErrAmountResolution = errors.New(
		"amount must be a whole number of satoshis",
	)
)

// AmountRangeError reports a candidate amount outside the advertised bounds.
// Candidates are refused, never clamped.
type AmountRangeError struct {
	Amount lnwire.MilliSatoshi
	Min    lnwire.MilliSatoshi
	Max    lnwire.MilliSatoshi
}

// Error returns a human readable description of the failure.
func (e *AmountRangeError) Error() string {
	return fmt.Sprintf("amount %v outside sendable range [%v, %v]",
		e.Amount, e.Min, e.Max)
}

// Amount negotiates the payment amount within the bounds advertised by a pay
// request. The millisatoshi value is the source of truth and the satoshi
// view is derived from it, so the two can never disagree. Amount is not safe
// for concurrent use.
type Amount struct {
	min  lnwire.MilliSatoshi
	max  lnwire.MilliSatoshi
	msat lnwire.MilliSatoshi
}

// NewAmount returns a negotiator for the given bounds, holding the smallest
// sendable amount.
func NewAmount(min, max lnwire.MilliSatoshi) (*Amount, error) {
	if max < min {
		return nil, fmt.Errorf("maxSendable %v below minSendable %v",
			max, min)
	}

	return &Amount{min: min, max: max, msat: min}, nil
}

// Fixed reports whether the bounds pin the amount to a single value. A fixed
// amount cannot be edited.
func (a *Amount) Fixed() bool {
	return a.min == a.max
}

// Min returns the smallest sendable amount.
func (a *Amount) Min() lnwire.MilliSatoshi {
	return a.min
}

// Max returns the largest sendable amount.
func (a *Amount) Max() lnwire.MilliSatoshi {
	return a.max
}

// MilliSat returns the held amount. It is always within the bounds.
func (a *Amount) MilliSat() lnwire.MilliSatoshi {
	return a.msat
}

// Sat returns the held amount in satoshis. Only a fixed sub-satoshi bound
// can make this a rounded down view; edited values are always exact.
func (a *Amount) Sat() btcutil.Amount {
	return a.msat.ToSatoshis()
}

// SetMilliSat replaces the held amount. Candidates outside the bounds and
// candidates with sub-satoshi precision are refused, leaving the held
// amount untouched.
func (a *Amount) SetMilliSat(msat lnwire.MilliSatoshi) error {
	if a.Fixed() {
		return ErrAmountFixed
	}
	if msat < a.min || msat > a.max {
		return &AmountRangeError{Amount: msat, Min: a.min, Max: a.max}
	}
	if msat%1000 != 0 {
		return ErrAmountResolution
	}

	a.msat = msat

	return nil
}

// maxSatCandidate is the largest satoshi amount with a millisatoshi
// representation. Anything above it wraps uint64 when multiplied by 1000.
const maxSatCandidate = btcutil.Amount(math.MaxUint64 / 1000)

// SetSat replaces the held amount with a satoshi denominated value.
func (a *Amount) SetSat(sat btcutil.Amount) error {
	// Candidates without a millisatoshi representation are refused up
	// front. Negative values have none, and values above maxSatCandidate
	// wrap uint64 during the conversion, so the wrapped result could
	// pass the bounds check. maxSendable always has a representation,
	// so neither refusal can hit a sendable candidate.
	if sat < 0 || sat > maxSatCandidate {
		return &AmountRangeError{Amount: 0, Min: a.min, Max: a.max}
	}

	return a.SetMilliSat(lnwire.NewMSatFromSatoshis(sat))
}
