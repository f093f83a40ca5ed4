package main

import (
	"bufio"
	"strings"
	"testing"

	"github.com/TuonoGlobal/lightning-browser-extension/lnurlpay"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"
)

// TestResolvePayURL ensures each accepted pay code form resolves to the URL
// the pay request parameters live at, and the rest are turned away.
func TestResolvePayURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		code     string
		protocol string
		want     string
		wantErr  string
	}{
		{
			name:     "lnurlp link",
			code:     "lnurlp://service.example/pay",
			protocol: "https",
			want:     "https://service.example/pay",
		},
		{
			name:     "lnurlp link without tls",
			code:     "lnurlp://service.example/pay",
			protocol: "http",
			want:     "http://service.example/pay",
		},
		{
			name:     "lightning address",
			code:     "alice@service.example",
			protocol: "https",
			want: "https://service.example/.well-known/" +
				"lnurlp/alice",
		},
		{
			name:     "direct url",
			code:     "https://service.example/lnurlp/alice",
			protocol: "https",
			want:     "https://service.example/lnurlp/alice",
		},
		{
			name:     "bech32 string",
			code:     "LNURL1DP68GURN8GHJ7MRWW4EXCTNDW4HXG6TS9A3K2",
			protocol: "https",
			wantErr:  "bech32",
		},
		{
			name:     "lowercase bech32 string",
			code:     "lnurl1dp68gurn8ghj7mrww4exctndw4hxg6ts9a3k2",
			protocol: "https",
			wantErr:  "bech32",
		},
		{
			name:     "malformed lightning address",
			code:     "alice@service@example",
			protocol: "https",
			wantErr:  "invalid lightning address",
		},
		{
			name:     "unsupported scheme",
			code:     "mailto:alice",
			protocol: "https",
			wantErr:  "unsupported scheme",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolvePayURL(test.code, test.protocol)
			if test.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), test.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, test.want, got)
		})
	}
}

// TestPromptAmount drives the console prompt loop with scripted input and
// checks what the negotiator ends up holding.
func TestPromptAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		min     lnwire.MilliSatoshi
		max     lnwire.MilliSatoshi
		input   string
		want    lnwire.MilliSatoshi
		wantErr string
	}{
		{
			name:  "accepts first valid amount",
			min:   1000,
			max:   100000,
			input: "50\n",
			want:  50000,
		},
		{
			name:  "retries until a valid amount",
			min:   1000,
			max:   100000,
			input: "five\n200\n50\n",
			want:  50000,
		},
		{
			name:  "retries an unrepresentable amount",
			min:   1000,
			max:   100000,
			input: "2305843009213693959\n50\n",
			want:  50000,
		},
		{
			// No whole satoshi fits between 1500 and 1999 msat, so
			// the minimum is held without prompting. Input is
			// empty: any prompt attempt would fail the test.
			name:  "range without a whole satoshi",
			min:   1500,
			max:   1999,
			input: "",
			want:  1500,
		},
		{
			name:    "input exhausted",
			min:     1000,
			max:     100000,
			input:   "",
			wantErr: "could not read from console",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			amount, err := lnurlpay.NewAmount(test.min, test.max)
			require.NoError(t, err)

			term := &terminal{
				in: bufio.NewReader(strings.NewReader(
					test.input,
				)),
			}

			err = promptAmount(term, amount)
			if test.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), test.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, test.want, amount.MilliSat())
		})
	}
}
