package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TuonoGlobal/lightning-browser-extension/lnurlpay"
	"github.com/btcsuite/btclog"
	"github.com/lightninglabs/lndclient"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Name = "lnurlpay-server"
	app.Usage = "Serve LNURL-pay requests backed by lnd"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "protocol",
			Value: "http",
			Usage: "protocol the advertised callback uses",
		},
		&cli.StringFlag{
			Name:  "host",
			Value: "localhost",
			Usage: "host the advertised callback points at",
		},
		&cli.IntFlag{
			Name:  "port",
			Value: 8080,
			Usage: "port to serve on",
		},
		&cli.StringFlag{
			Name:  "lndhost",
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
		&cli.Int64Flag{
			Name:  "minsendable",
			Value: 1000,
			Usage: "smallest invoice amount, in millisatoshi",
		},
		&cli.Int64Flag{
			Name:  "maxsendable",
			Value: 100000000,
			Usage: "largest invoice amount, in millisatoshi",
		},
		&cli.StringFlag{
			Name:  "comment",
			Value: "Thanks for your support.",
			Usage: "text shown to payers",
		},
		&cli.StringFlag{
			Name: "successmessage",
			Usage: "message attached to invoices as a success " +
				"action, empty to disable",
		},
		&cli.StringFlag{
			Name:  "loglevel",
			Value: "info",
			Usage: "logging level (trace|debug|info|warn|error)",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[lnurlpay-server] %v\n", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	level, ok := btclog.LevelFromString(ctx.String("loglevel"))
	if !ok {
		return fmt.Errorf("unknown log level %q",
			ctx.String("loglevel"))
	}
	logger := btclog.NewBackend(os.Stdout).Logger("LNURL")
	logger.SetLevel(level)
	lnurlpay.UseLogger(logger)

	// Connect to LND.
	lnd, err := lndclient.NewLndServices(&lndclient.LndServicesConfig{
		LndAddress:  ctx.String("lndhost"),
		Network:     lndclient.Network(ctx.String("network")),
		MacaroonDir: ctx.String("macpath"),
		TLSPath:     ctx.String("tlspath"),
	})
	if err != nil {
		return fmt.Errorf("could not connect to LND: %w", err)
	}
	defer lnd.Close()

	server, err := lnurlpay.NewServer(&lnurlpay.ServerConfig{
		Protocol:       ctx.String("protocol"),
		Host:           ctx.String("host"),
		Port:           ctx.Int("port"),
		MinSendable:    lnwire.MilliSatoshi(ctx.Int64("minsendable")),
		MaxSendable:    lnwire.MilliSatoshi(ctx.Int64("maxsendable")),
		Comment:        ctx.String("comment"),
		SuccessMessage: ctx.String("successmessage"),
	}, lnd.Client)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-stop:
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), 5*time.Second,
	)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
