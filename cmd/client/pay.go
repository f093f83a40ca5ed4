package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/TuonoGlobal/lightning-browser-extension/lnurlpay"
	"github.com/btcsuite/btcutil"
	"github.com/lightninglabs/lndclient"
	"github.com/pkg/browser"
	"github.com/urfave/cli/v2"
)

var payCommand = &cli.Command{
	Name:  "pay",
	Usage: "Pay to an LNURL-pay code",
	Description: `Resolves an lnurlp:// link, a lightning address or a
	direct URL to its pay request parameters, negotiates an amount within
	the advertised bounds and settles the invoice through lnd. Bech32
	encoded LNURL strings are not accepted.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name: "lnurl",
			Usage: "the lnurlp:// link, lightning address or " +
				"direct URL to pay to",
		},
		&cli.Int64Flag{
			Name:  "amt",
			Usage: "the amount to pay, in satoshis",
		},
		&cli.Int64Flag{
			Name:  "maxfee",
			Usage: "max routing fee for the payment, in satoshis",
			Value: 10,
		},
		&cli.StringFlag{
			Name:  "comment",
			Usage: "optional comment forwarded to the payee",
		},
		&cli.BoolFlag{
			Name:  "notls",
			Usage: "set to true to use http instead of https",
		},
	},
	Action: payToLNURL,
}

func payToLNURL(ctx *cli.Context) error {
	// The pay code must be specified.
	code := ctx.String("lnurl")
	if code == "" {
		return fmt.Errorf("missing '--lnurl' flag")
	}
	code = strings.TrimPrefix(code, "lightning:")

	protocol := "https"
	if ctx.Bool("notls") {
		protocol = "http"
	}

	url, err := resolvePayURL(code, protocol)
	if err != nil {
		return err
	}

	// Ensure that the url uses tls if we have not set --notls.
	if !ctx.Bool("notls") && !strings.HasPrefix(url, "https") {
		return fmt.Errorf("url is not https")
	}

	params, err := lnurlpay.FetchPayParams(ctx.Context, nil, url)
	if err != nil {
		return fmt.Errorf("could not fetch pay request: %w", err)
	}

	net, err := chainParams(ctx.String("network"))
	if err != nil {
		return err
	}

	wallet, err := lnurlpay.NewLNDWallet(&lnurlpay.LNDWalletConfig{
		Address:     ctx.String("host"),
		Network:     lndclient.Network(ctx.String("network")),
		MacaroonDir: ctx.String("macpath"),
		TLSPath:     ctx.String("tlspath"),
		MaxFee:      btcutil.Amount(ctx.Int64("maxfee")),
	})
	if err != nil {
		return err
	}
	defer wallet.Close()

	alias, err := wallet.Alias(ctx.Context)
	if err != nil {
		return fmt.Errorf("could not get node info: %w", err)
	}
	fmt.Println("Connected to node with alias:", alias)

	term := &terminal{in: bufio.NewReader(os.Stdin)}

	flow, err := lnurlpay.NewFlow(&lnurlpay.FlowConfig{
		Params: params,
		Origin: lnurlpay.RequestOrigin{
			Name:     params.Domain,
			External: true,
		},
		Wallet:   wallet,
		Notifier: term,
		Approver: term,
		Opener:   &browserOpener{},
		Request: lnurlpay.RequestOptions{
			Comment: ctx.String("comment"),
		},
		Net: net,
		OnClose: func(state lnurlpay.State, err error) {
			if err != nil {
				fmt.Printf("Session closed (%s): %v\n",
					state, err)
				return
			}
			fmt.Printf("Session closed (%s)\n", state)
		},
	})
	if err != nil {
		return err
	}

	if text := params.MetadataText(); text != "" {
		fmt.Printf("%s says: %s\n", params.Domain, text)
	}

	if err := negotiateAmount(ctx, term, flow); err != nil {
		return err
	}

	amount := flow.Amount()
	proceed, err := term.Approve(ctx.Context, fmt.Sprintf(
		"Pay %v (%d sat) to %s?", amount.MilliSat(),
		int64(amount.Sat()), params.Domain,
	))
	if err != nil {
		return err
	}
	if !proceed {
		return flow.Reject()
	}

	receipt, err := flow.Confirm(ctx.Context)
	if err != nil {
		return err
	}

	fmt.Printf("Successful payment! Preimage: %v\n", receipt.Preimage)
	if receipt.ActionErr != nil {
		fmt.Printf("Note: %v\n", receipt.ActionErr)
	}

	return nil
}

// resolvePayURL turns the supported pay code forms into the URL the pay
// request parameters live at.
func resolvePayURL(code, protocol string) (string, error) {
	switch {
	case strings.HasPrefix(code, "lnurlp://"):
		return strings.Replace(code, "lnurlp", protocol, 1), nil

	case strings.HasPrefix(code, "http://"),
		strings.HasPrefix(code, "https://"):

		return code, nil

	case strings.HasPrefix(strings.ToUpper(code), "LNURL1"):
		return "", fmt.Errorf("bech32 encoded LNURL strings are not " +
			"supported, use an lnurlp:// link, a lightning " +
			"address or a direct URL")

	case strings.Contains(code, "@"):
		// This is a lightning address.
		parts := strings.Split(code, "@")
		if len(parts) != 2 {
			return "", fmt.Errorf("invalid lightning address, " +
				"expected the form <username>@<domain>")
		}

		username, domain := parts[0], parts[1]
		return fmt.Sprintf("%s://%s/.well-known/lnurlp/%s",
			protocol, domain, username), nil

	default:
		return "", fmt.Errorf("unsupported scheme")
	}
}

// negotiateAmount settles on an amount within the advertised bounds, asking
// on the console until the session's negotiator accepts one.
func negotiateAmount(ctx *cli.Context, term *terminal,
	flow *lnurlpay.Flow) error {

	amount := flow.Amount()
	if amount.Fixed() {
		fmt.Printf("%s fixed the amount at %v\n",
			flow.Params().Domain, amount.MilliSat())
		return nil
	}

	// Try the flag value first, then ask until an acceptable amount is
	// entered.
	if ctx.Int64("amt") != 0 {
		err := amount.SetSat(btcutil.Amount(ctx.Int64("amt")))
		if err == nil {
			return nil
		}
		fmt.Printf("Cannot use --amt: %v\n", err)
	}

	return promptAmount(term, amount)
}

// promptAmount asks on the console until the negotiator accepts an amount.
// Console edits happen in whole satoshis, so a range too narrow to contain
// one leaves the advertised minimum as the only reachable amount and is not
// prompted for at all.
func promptAmount(term *terminal, amount *lnurlpay.Amount) error {
	minSat := (uint64(amount.Min()) + 999) / 1000
	maxSat := uint64(amount.Max()) / 1000

	if minSat > maxSat {
		fmt.Printf("No whole satoshi amount fits the advertised "+
			"range, paying %v\n", amount.MilliSat())
		return nil
	}

	for {
		fmt.Printf("Enter an amount (in satoshis) between %d and %d\n",
			minSat, maxSat)

		input, err := term.readLine()
		if err != nil {
			return err
		}

		sat, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			fmt.Printf("error parsing input: %v\n", err)
			continue
		}

		if err := amount.SetSat(btcutil.Amount(sat)); err != nil {
			fmt.Printf("Invalid amount: %v\n", err)
			continue
		}

		return nil
	}
}

// terminal implements the flow's user boundaries on stdin and stdout.
type terminal struct {
	in *bufio.Reader
}

func (t *terminal) Notify(_ context.Context, title, message string) error {
	fmt.Printf("[%s] %s\n", title, message)
	return nil
}

func (t *terminal) Approve(_ context.Context, prompt string) (bool, error) {
	fmt.Printf("%s [y/N]\n", prompt)

	answer, err := t.readLine()
	if err != nil {
		return false, err
	}

	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

func (t *terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("could not read from console: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// browserOpener opens success action URLs in the system browser.
type browserOpener struct{}

func (b *browserOpener) OpenURL(_ context.Context, url string) error {
	return browser.OpenURL(url)
}
