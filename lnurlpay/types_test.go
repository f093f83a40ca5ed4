package lnurlpay

import (
	"testing"

	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"
)

// TestDecodePayParams covers decoding of pay request bodies: valid
// parameters, error envelopes and replies that cannot be used.
func TestDecodePayParams(t *testing.T) {
	t.Parallel()

	validBody := `{
		"callback": "https://service.example/invoice?id=abc",
		"minSendable": 1000,
		"maxSendable": 100000,
		"metadata": "[[\"text/plain\",\"hello\"]]",
		"tag": "payRequest"
	}`

	tests := []struct {
		name   string
		body   string
		reason string
	}{
		{
			name: "valid",
			body: validBody,
		},
		{
			name:   "error envelope",
			body:   `{"status":"ERROR","reason":"nope"}`,
			reason: "nope",
		},
		{
			name:   "lowercase error envelope",
			body:   `{"status":"error","reason":"nope"}`,
			reason: "nope",
		},
		{
			name:   "not json",
			body:   `<html>boom</html>`,
			reason: "malformed",
		},
		{
			name: "wrong tag",
			body: `{"callback":"https://x.example/cb",
				"minSendable":1,"maxSendable":2,
				"metadata":"[]","tag":"withdrawRequest"}`,
			reason: "unexpected tag",
		},
		{
			name: "string amounts",
			body: `{"callback":"https://x.example/cb",
				"minSendable":"1000","maxSendable":"2000",
				"metadata":"[]","tag":"payRequest"}`,
			reason: "malformed",
		},
		{
			name: "inverted bounds",
			body: `{"callback":"https://x.example/cb",
				"minSendable":2000,"maxSendable":1000,
				"metadata":"[]","tag":"payRequest"}`,
			reason: "below minSendable",
		},
		{
			name: "zero min",
			body: `{"callback":"https://x.example/cb",
				"minSendable":0,"maxSendable":1000,
				"metadata":"[]","tag":"payRequest"}`,
			reason: "at least 1 msat",
		},
		{
			name: "bad callback scheme",
			body: `{"callback":"ftp://x.example/cb",
				"minSendable":1,"maxSendable":2,
				"metadata":"[]","tag":"payRequest"}`,
			reason: "scheme",
		},
		{
			name: "missing metadata",
			body: `{"callback":"https://x.example/cb",
				"minSendable":1,"maxSendable":2,
				"tag":"payRequest"}`,
			reason: "missing metadata",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			params, err := DecodePayParams([]byte(test.body))
			if test.reason != "" {
				var serviceErr *ServiceError
				require.ErrorAs(t, err, &serviceErr)
				require.Contains(
					t, serviceErr.Reason, test.reason,
				)
				return
			}

			require.NoError(t, err)
			require.Equal(t, "service.example", params.Domain)
			require.Equal(
				t, lnwire.MilliSatoshi(1000),
				params.MinSendable,
			)
			require.Equal(
				t, lnwire.MilliSatoshi(100000),
				params.MaxSendable,
			)
			require.Equal(
				t, `[["text/plain","hello"]]`, params.Metadata,
			)
		})
	}
}

// TestMetadataText covers extraction of the displayable metadata entry.
func TestMetadataText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		meta string
		want string
	}{
		{
			name: "text entry",
			meta: `[["text/plain","hello world"]]`,
			want: "hello world",
		},
		{
			name: "multiple entries",
			meta: `[["image/png;base64","aaaa"],` +
				`["text/plain","pay me"]]`,
			want: "pay me",
		},
		{
			name: "no text entry",
			meta: `[["image/png;base64","aaaa"]]`,
			want: "",
		},
		{
			name: "not json",
			meta: `plain text`,
			want: "",
		},
	}

	for _, test := range tests {
		params := &PayParams{Metadata: test.meta}
		require.Equal(t, test.want, params.MetadataText(), test.name)
	}
}
