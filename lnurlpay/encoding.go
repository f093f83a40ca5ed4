package lnurlpay

import (
	"strings"

	"github.com/btcsuite/btcutil/bech32"
)

const humanReadablePart = "lnurl"

// EncodeURL encodes a pay request URL into its bech32 LNURL form.
func EncodeURL(url string) (string, error) {
	converted, err := bech32.ConvertBits([]byte(url), 8, 5, true)
	if err != nil {
		return "", err
	}

	str, err := bech32.Encode(humanReadablePart, converted)
	if err != nil {
		return "", err
	}

	return strings.ToUpper(str), nil
}
