package lnurlpay

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/lightningnetwork/lnd/lnwire"
)

// TagPayRequest identifies LNURL-pay parameters.
const TagPayRequest = "payRequest"

// Success action tags this package knows about.
const (
	ActionTagMessage = "message"
	ActionTagURL     = "url"
	ActionTagAES     = "aes"
)

// StatusError marks the LNURL error envelope. Successful replies carry
// their payload directly, without a status field.
const StatusError = "ERROR"

// ErrorResponse is the LNURL error envelope. Services reply with it, with
// Status set to ERROR, whenever a request cannot be served.
type ErrorResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// PayParams are the advertised parameters of an LNURL-pay endpoint.
type PayParams struct {
	// Callback is the URL the payer requests an invoice from.
	Callback string `json:"callback"`

	// MinSendable is the min amount the service is willing to receive,
	// in millisatoshi. Can not be less than 1 or more than MaxSendable.
	MinSendable lnwire.MilliSatoshi `json:"minSendable"`

	// MaxSendable is the max amount the service is willing to receive,
	// in millisatoshi.
	MaxSendable lnwire.MilliSatoshi `json:"maxSendable"`

	// Metadata is the raw metadata JSON string, kept byte for byte as
	// received. The fetched invoice must commit to the sha256 of exactly
	// this string.
	Metadata string `json:"metadata"`

	// Tag identifies the LNURL subprotocol, always "payRequest" here.
	Tag string `json:"tag"`

	// Domain is the host the callback points at. It is derived during
	// validation and used to attribute prompts and notifications.
	Domain string `json:"-"`
}

// Validate checks the parameters for structural soundness and derives the
// Domain field from the callback.
func (p *PayParams) Validate() error {
	if p.Tag != TagPayRequest {
		return fmt.Errorf("unexpected tag %q, expected %q", p.Tag,
			TagPayRequest)
	}

	u, err := url.Parse(p.Callback)
	if err != nil {
		return fmt.Errorf("invalid callback: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid callback scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("callback has no host")
	}

	if p.MinSendable < 1 {
		return fmt.Errorf("minSendable must be at least 1 msat")
	}
	if p.MaxSendable < p.MinSendable {
		return fmt.Errorf("maxSendable %v below minSendable %v",
			p.MaxSendable, p.MinSendable)
	}

	if p.Metadata == "" {
		return fmt.Errorf("missing metadata")
	}

	p.Domain = u.Hostname()

	return nil
}

// MetadataText returns the text/plain entry of the metadata array, or an
// empty string when none is present.
func (p *PayParams) MetadataText() string {
	var entries [][]string
	if err := json.Unmarshal([]byte(p.Metadata), &entries); err != nil {
		return ""
	}

	for _, entry := range entries {
		if len(entry) == 2 && entry[0] == "text/plain" {
			return entry[1]
		}
	}

	return ""
}

// DecodePayParams parses the body of a pay request fetch. A reply carrying
// the LNURL error envelope, or one that cannot be parsed into valid pay
// request parameters, is reported as a ServiceError.
func DecodePayParams(body []byte) (*PayParams, error) {
	if reason, ok := decodeErrorEnvelope(body); ok {
		return nil, &ServiceError{Reason: reason}
	}

	var params PayParams
	if err := json.Unmarshal(body, &params); err != nil {
		return nil, &ServiceError{
			Reason: fmt.Sprintf("malformed pay request "+
				"response: %v", err),
		}
	}

	if err := params.Validate(); err != nil {
		return nil, &ServiceError{Reason: err.Error()}
	}

	return &params, nil
}

// decodeErrorEnvelope reports whether the body is an LNURL error envelope
// and, if so, the reason it carries.
func decodeErrorEnvelope(body []byte) (string, bool) {
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return "", false
	}
	if !strings.EqualFold(e.Status, StatusError) {
		return "", false
	}

	if e.Reason == "" {
		return "service reported an error", true
	}

	return e.Reason, true
}

// RequestOrigin describes where a payment request came from, so prompts and
// notifications can be attributed to their source.
type RequestOrigin struct {
	// Name is a human readable label for the requesting party.
	Name string

	// Icon is an optional image URL for the requesting party.
	Icon string

	// External marks requests initiated outside the embedding
	// application, for example through a link handler.
	External bool
}

// SuccessAction is the optional payload attached to an invoice response,
// describing what to present to the payer once the invoice settles.
type SuccessAction struct {
	Tag         string `json:"tag"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Message     string `json:"message,omitempty"`

	// Ciphertext and IV carry the aes tag payload. The package recognises
	// the tag but never decrypts it.
	Ciphertext string `json:"ciphertext,omitempty"`
	IV         string `json:"iv,omitempty"`
}

// Invoice is a successfully fetched invoice response.
type Invoice struct {
	// PaymentRequest is a bech32-serialized lightning invoice.
	PaymentRequest string

	// SuccessAction, if set, describes what to present once the invoice
	// is settled.
	SuccessAction *SuccessAction
}

// invoiceResponse is the wire form of the callback reply.
type invoiceResponse struct {
	Pr            string         `json:"pr"`
	Routes        []string       `json:"routes"`
	SuccessAction *SuccessAction `json:"successAction,omitempty"`
}
