package main

import (
	"fmt"
	"os"

	"github.com/TuonoGlobal/lightning-browser-extension/lnurlpay"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btclog"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Name = "lnurlpay-client"
	app.Usage = "Pay LNURL-pay requests through lnd"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Value: "localhost:10009",
			Usage: "lnd instance rpc address",
		},
		&cli.StringFlag{
			Name:  "network",
			Value: "regtest",
			Usage: "the network lnd runs on",
		},
		&cli.StringFlag{
			Name:  "macpath",
			Usage: "path to lnd's macaroon dir",
		},
		&cli.StringFlag{
			Name:  "tlspath",
			Usage: "path to lnd's tls cert",
		},
		&cli.StringFlag{
			Name:  "loglevel",
			Value: "info",
			Usage: "logging level (trace|debug|info|warn|error)",
		},
	}
	app.Before = setupLogging
	app.Commands = append(app.Commands, payCommand)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[lnurlpay-client] %v\n", err)
	os.Exit(1)
}

func setupLogging(ctx *cli.Context) error {
	level, ok := btclog.LevelFromString(ctx.String("loglevel"))
	if !ok {
		return fmt.Errorf("unknown log level %q",
			ctx.String("loglevel"))
	}

	logger := btclog.NewBackend(os.Stdout).Logger("LNURL")
	logger.SetLevel(level)
	lnurlpay.UseLogger(logger)

	return nil
}

// chainParams maps the lnd network flag onto the chain parameters invoices
// must be encoded for.
func chainParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
}
