package lnurlpay

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcutil"
	"github.com/lightninglabs/lndclient"
	"github.com/lightningnetwork/lnd/lntypes"
)

// LNDWalletConfig describes how to reach the backing lnd node.
type LNDWalletConfig struct {
	// Address is the host:port of lnd's gRPC interface.
	Address string

	// Network is the chain network lnd runs on.
	Network lndclient.Network

	// MacaroonDir is the path to lnd's macaroon directory.
	MacaroonDir string

	// TLSPath is the path to lnd's tls cert.
	TLSPath string

	// MaxFee caps the routing fee of every payment, in satoshis.
	MaxFee btcutil.Amount
}

// LNDWallet executes payments through an lnd node.
type LNDWallet struct {
	client   lndclient.LightningClient
	services *lndclient.GrpcLndServices
	maxFee   btcutil.Amount
}

// NewLNDWallet connects to the configured lnd node.
func NewLNDWallet(cfg *LNDWalletConfig) (*LNDWallet, error) {
	services, err := lndclient.NewLndServices(&lndclient.LndServicesConfig{
		LndAddress:  cfg.Address,
		Network:     cfg.Network,
		MacaroonDir: cfg.MacaroonDir,
		TLSPath:     cfg.TLSPath,
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to LND: %w", err)
	}

	return &LNDWallet{
		client:   services.Client,
		services: services,
		maxFee:   cfg.MaxFee,
	}, nil
}

// Alias returns the alias of the backing node.
func (w *LNDWallet) Alias(ctx context.Context) (string, error) {
	info, err := w.client.GetInfo(ctx)
	if err != nil {
		return "", err
	}

	return info.Alias, nil
}

// PayInvoice pays the given payment request and blocks until the wallet
// reports a result. Payments are not cancelled once dispatched.
func (w *LNDWallet) PayInvoice(ctx context.Context, paymentRequest string,
	origin RequestOrigin) (lntypes.Preimage, error) {

	log.Debugf("Dispatching payment requested by %s", origin.Name)

	res := <-w.client.PayInvoice(ctx, paymentRequest, w.maxFee, nil)
	if res.Err != nil {
		return lntypes.Preimage{}, res.Err
	}

	return res.Preimage, nil
}

// Close releases the connection to lnd.
func (w *LNDWallet) Close() {
	w.services.Close()
}
