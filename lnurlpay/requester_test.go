package lnurlpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"
)

// TestFetchQueryComposition ensures the callback query carries the exact
// negotiated amount and the optional parameters, merged with parameters the
// callback already has.
func TestFetchQueryComposition(t *testing.T) {
	t.Parallel()

	var got url.Values
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			got = r.URL.Query()

			err := json.NewEncoder(w).Encode(&invoiceResponse{
				Pr:     "lnbcrt1fake",
				Routes: []string{},
			})
			require.NoError(t, err)
		},
	))
	defer server.Close()

	invoice, err := NewInvoiceRequester(nil).Fetch(
		context.Background(), server.URL+"/invoice?id=abc", 4500000,
		&RequestOptions{
			Nonce:        "n0nce",
			Comment:      "keep the change",
			FromNodes:    "02aabb",
			ProofOfPayer: "03ccdd",
		},
	)
	require.NoError(t, err)
	require.Equal(t, "lnbcrt1fake", invoice.PaymentRequest)
	require.Nil(t, invoice.SuccessAction)

	require.Equal(t, "abc", got.Get("id"))
	require.Equal(t, "4500000", got.Get("amount"))
	require.Equal(t, "n0nce", got.Get("nonce"))
	require.Equal(t, "keep the change", got.Get("comment"))
	require.Equal(t, "02aabb", got.Get("fromnodes"))
	require.Equal(t, "03ccdd", got.Get("proofofpayer"))
}

// TestFetchOmitsEmptyOptions ensures unset options never show up in the
// query.
func TestFetchOmitsEmptyOptions(t *testing.T) {
	t.Parallel()

	var got url.Values
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			got = r.URL.Query()

			err := json.NewEncoder(w).Encode(&invoiceResponse{
				Pr:     "lnbcrt1fake",
				Routes: []string{},
			})
			require.NoError(t, err)
		},
	))
	defer server.Close()

	_, err := NewInvoiceRequester(nil).Fetch(
		context.Background(), server.URL+"/invoice", 1000, nil,
	)
	require.NoError(t, err)

	require.Len(t, got, 1)
	require.Equal(t, "1000", got.Get("amount"))
}

// TestFetchErrorClassification ensures everything the service answered
// wrongly is reported as a ServiceError carrying a readable reason.
func TestFetchErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		reason string
	}{
		{
			name:   "error envelope",
			body:   `{"status":"ERROR","reason":"come back later"}`,
			reason: "come back later",
		},
		{
			name:   "envelope without reason",
			body:   `{"status":"ERROR"}`,
			reason: "service reported an error",
		},
		{
			name:   "malformed json",
			body:   `{"pr": `,
			reason: "malformed invoice response",
		},
		{
			name:   "missing payment request",
			body:   `{"routes":[]}`,
			reason: "missing payment request",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					_, _ = w.Write([]byte(test.body))
				},
			))
			defer server.Close()

			_, err := NewInvoiceRequester(nil).Fetch(
				context.Background(), server.URL, 1000, nil,
			)

			var serviceErr *ServiceError
			require.ErrorAs(t, err, &serviceErr)
			require.Contains(t, serviceErr.Reason, test.reason)
		})
	}
}

// TestFetchNetworkError ensures transport failures are never mistaken for
// service errors.
func TestFetchNetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {},
	))
	server.Close()

	_, err := NewInvoiceRequester(nil).Fetch(
		context.Background(), server.URL, 1000, nil,
	)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
}

// TestFetchPayParams covers the initial parameter fetch against a resolved
// pay request URL.
func TestFetchPayParams(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(
				t, "/.well-known/lnurlp/alice", r.URL.Path,
			)

			err := json.NewEncoder(w).Encode(&PayParams{
				Callback:    "https://service.example/invoice",
				MinSendable: 1000,
				MaxSendable: 50000,
				Metadata:    `[["text/plain","hi"]]`,
				Tag:         TagPayRequest,
			})
			require.NoError(t, err)
		},
	))
	defer server.Close()

	params, err := FetchPayParams(
		context.Background(), nil,
		server.URL+"/.well-known/lnurlp/alice",
	)
	require.NoError(t, err)
	require.Equal(t, "service.example", params.Domain)
	require.Equal(t, lnwire.MilliSatoshi(1000), params.MinSendable)
	require.Equal(t, lnwire.MilliSatoshi(50000), params.MaxSendable)
}

// TestFetchPayParamsEnvelope ensures the parameter fetch classifies error
// envelopes as service errors too.
func TestFetchPayParamsEnvelope(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(
				`{"status":"ERROR","reason":"no such user"}`,
			))
		},
	))
	defer server.Close()

	_, err := FetchPayParams(context.Background(), nil, server.URL)

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	require.Equal(t, "no such user", serviceErr.Reason)
}
