package lnurlpay

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lightningnetwork/lnd/lnwire"
)

// RequestOptions are the optional query parameters forwarded to the callback
// alongside the negotiated amount. Empty fields are omitted.
type RequestOptions struct {
	// Nonce is an entropy parameter for services that return signed
	// metadata.
	Nonce string

	// Comment is a payer note attached to the payment.
	Comment string

	// FromNodes restricts the nodes the service should expect the
	// payment from.
	FromNodes string

	// ProofOfPayer announces an ephemeral payer identity key.
	ProofOfPayer string
}

// InvoiceRequester fetches invoices from LNURL-pay callbacks. It keeps no
// state and performs exactly one request per call.
type InvoiceRequester struct {
	client *http.Client
}

// NewInvoiceRequester returns a requester using the given HTTP client, or
// http.DefaultClient when nil.
func NewInvoiceRequester(client *http.Client) *InvoiceRequester {
	if client == nil {
		client = http.DefaultClient
	}

	return &InvoiceRequester{client: client}
}

// Fetch requests an invoice for the given amount from the callback. The
// callback may already carry query parameters; the amount and options are
// merged into them. Transport failures are reported as NetworkError, error
// envelopes and unusable replies as ServiceError.
func (r *InvoiceRequester) Fetch(ctx context.Context, callback string,
	amount lnwire.MilliSatoshi, opts *RequestOptions) (*Invoice, error) {

	u, err := url.Parse(callback)
	if err != nil {
		return nil, &ServiceError{
			Reason: fmt.Sprintf("invalid callback: %v", err),
		}
	}

	query := u.Query()
	query.Set("amount", strconv.FormatUint(uint64(amount), 10))
	if opts != nil {
		if opts.Nonce != "" {
			query.Set("nonce", opts.Nonce)
		}
		if opts.Comment != "" {
			query.Set("comment", opts.Comment)
		}
		if opts.FromNodes != "" {
			query.Set("fromnodes", opts.FromNodes)
		}
		if opts.ProofOfPayer != "" {
			query.Set("proofofpayer", opts.ProofOfPayer)
		}
	}
	u.RawQuery = query.Encode()

	body, err := r.get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	if reason, ok := decodeErrorEnvelope(body); ok {
		return nil, &ServiceError{Reason: reason}
	}

	var resp invoiceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ServiceError{
			Reason: fmt.Sprintf("malformed invoice response: %v",
				err),
		}
	}
	if resp.Pr == "" {
		return nil, &ServiceError{
			Reason: "invoice response missing payment request",
		}
	}

	return &Invoice{
		PaymentRequest: resp.Pr,
		SuccessAction:  resp.SuccessAction,
	}, nil
}

// get performs a single GET request and returns the raw body. Failures to
// reach the service at all are NetworkErrors.
func (r *InvoiceRequester) get(ctx context.Context, url string) ([]byte,
	error) {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	return body, nil
}

// FetchPayParams fetches and validates LNURL-pay parameters from a resolved
// pay request URL. Error classification matches Fetch: transport failures
// are NetworkErrors, everything the service answered wrongly is a
// ServiceError.
func FetchPayParams(ctx context.Context, client *http.Client,
	url string) (*PayParams, error) {

	body, err := NewInvoiceRequester(client).get(ctx, url)
	if err != nil {
		return nil, err
	}

	return DecodePayParams(body)
}
