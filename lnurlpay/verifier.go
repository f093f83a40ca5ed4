package lnurlpay

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
)

// Verifier checks fetched invoices against the negotiated amount and the
// pay request metadata before they may be handed to a wallet.
type Verifier struct {
	// Net are the chain parameters the invoice must be encoded for.
	Net *chaincfg.Params
}

// Verify decodes the payment request and checks that it commits to exactly
// the negotiated amount and to the sha256 of the literal metadata string the
// service advertised. Any failure is an InvalidInvoiceError and is fatal to
// the payment attempt.
func (v *Verifier) Verify(inv *Invoice, metadata string,
	amount lnwire.MilliSatoshi) error {

	decoded, err := zpay32.Decode(inv.PaymentRequest, v.Net)
	if err != nil {
		return &InvalidInvoiceError{
			Reason: fmt.Sprintf("cannot decode payment "+
				"request: %v", err),
		}
	}

	if decoded.MilliSat == nil {
		return &InvalidInvoiceError{
			Reason: "payment request carries no amount",
		}
	}
	if *decoded.MilliSat != amount {
		return &InvalidInvoiceError{
			Reason: fmt.Sprintf("amount mismatch: invoice asks "+
				"for %v, negotiated %v", *decoded.MilliSat,
				amount),
		}
	}

	if decoded.DescriptionHash == nil {
		return &InvalidInvoiceError{
			Reason: "payment request carries no description hash",
		}
	}
	metaHash := sha256.Sum256([]byte(metadata))
	if !bytes.Equal(decoded.DescriptionHash[:], metaHash[:]) {
		return &InvalidInvoiceError{
			Reason: "description hash does not commit to the " +
				"pay request metadata",
		}
	}

	return nil
}
