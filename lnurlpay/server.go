package lnurlpay

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lightninglabs/lndclient"
	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"github.com/lightningnetwork/lnd/lnwire"
	qrcode "github.com/skip2/go-qrcode"
)

// defaultPendingTTL bounds how long an unclaimed pay request id stays valid.
const defaultPendingTTL = 10 * time.Minute

// ServerConfig holds the static parameters of the pay service.
type ServerConfig struct {
	// Protocol, Host and Port form the base of the advertised callback.
	Protocol string
	Host     string
	Port     int

	// MinSendable is the min amount the service is willing to receive,
	// in millisatoshi. Must be at least 1.
	MinSendable lnwire.MilliSatoshi

	// MaxSendable is the max amount the service is willing to receive,
	// in millisatoshi.
	MaxSendable lnwire.MilliSatoshi

	// Comment is the text/plain metadata entry advertised to payers.
	Comment string

	// SuccessMessage, when set, is attached to every invoice as a
	// message success action.
	SuccessMessage string

	// PendingTTL overrides how long an unclaimed pay request id stays
	// valid.
	PendingTTL time.Duration
}

// pendingPayment tracks the metadata a pay request advertised until its
// invoice is claimed.
type pendingPayment struct {
	metadata  string
	createdAt time.Time
}

// Server is a minimal LNURL-pay service backed by an lnd node. Invoices it
// issues commit to the sha256 of the advertised metadata string, so they
// pass payer side verification.
type Server struct {
	cfg *ServerConfig
	lnd lndclient.LightningClient

	mu      sync.Mutex
	pending map[string]*pendingPayment

	httpServer *http.Server
}

// NewServer returns a service issuing invoices through the given lnd client.
func NewServer(cfg *ServerConfig, lnd lndclient.LightningClient) (*Server,
	error) {

	if cfg.MinSendable < 1 {
		return nil, fmt.Errorf("minSendable must be at least 1 msat")
	}
	if cfg.MaxSendable < cfg.MinSendable {
		return nil, fmt.Errorf("maxSendable %v below minSendable %v",
			cfg.MaxSendable, cfg.MinSendable)
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = defaultPendingTTL
	}

	s := &Server{
		cfg:     cfg,
		lnd:     lnd,
		pending: make(map[string]*pendingPayment),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/pay", s.pay)
	mux.HandleFunc("/invoice", s.invoice)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return s, nil
}

// Run announces the service and serves until Shutdown is called or serving
// fails.
func (s *Server) Run() error {
	if err := s.printWelcome(); err != nil {
		return err
	}

	info, err := s.lnd.GetInfo(context.Background())
	if err != nil {
		return err
	}
	log.Infof("Connected to node with alias %s", info.Alias)

	return s.httpServer.ListenAndServe()
}

// Shutdown stops serving, letting in-flight requests finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) printWelcome() error {
	payCode := fmt.Sprintf(
		"%s://%s:%d/pay", s.cfg.Protocol, s.cfg.Host, s.cfg.Port,
	)

	payLNURL, err := EncodeURL(payCode)
	if err != nil {
		return err
	}

	qr, err := qrcode.New(payLNURL, qrcode.Medium)
	if err != nil {
		return err
	}

	fmt.Printf(
		""+
			"=======================================\n"+
			"Your static LNURL-pay code is:\n"+
			"- %s\n"+
			"- lightning:%s\n"+
			"- %s\n"+
			"%s"+
			"=======================================\n",
		payLNURL, payLNURL, strings.Replace(
			payCode, s.cfg.Protocol, "lnurlp", 1,
		), qr.ToSmallString(false),
	)

	return nil
}

// pay serves the LNURL-pay parameters. Every request gets a fresh id tying
// the later invoice claim to these parameters.
func (s *Server) pay(w http.ResponseWriter, r *http.Request) {
	var idBytes [10]byte
	if _, err := rand.Read(idBytes[:]); err != nil {
		s.writeError(w, "cannot create payment id")
		return
	}
	id := hex.EncodeToString(idBytes[:])

	metaBytes, err := json.Marshal([][2]string{
		{"text/plain", s.cfg.Comment},
	})
	if err != nil {
		s.writeError(w, "cannot build metadata")
		return
	}
	meta := string(metaBytes)

	now := time.Now()
	s.mu.Lock()
	s.purgeExpired(now)
	s.pending[id] = &pendingPayment{metadata: meta, createdAt: now}
	s.mu.Unlock()

	callback := fmt.Sprintf(
		"%s://%s:%d/invoice?id=%s", s.cfg.Protocol, s.cfg.Host,
		s.cfg.Port, id,
	)

	s.writeJSON(w, &PayParams{
		Callback:    callback,
		MinSendable: s.cfg.MinSendable,
		MaxSendable: s.cfg.MaxSendable,
		Metadata:    meta,
		Tag:         TagPayRequest,
	})
}

// invoice claims a pending pay request and answers with an invoice
// committing to the advertised metadata and the requested amount.
func (s *Server) invoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		s.writeError(w, "malformed request")
		return
	}

	id := r.Form.Get("id")
	if id == "" {
		s.writeError(w, "expected 'id' field")
		return
	}

	amt := r.Form.Get("amount")
	if amt == "" {
		s.writeError(w, "expected 'amount' field")
		return
	}
	msat, err := strconv.ParseUint(amt, 10, 64)
	if err != nil {
		s.writeError(w, "malformed 'amount' field")
		return
	}

	amount := lnwire.MilliSatoshi(msat)
	if amount < s.cfg.MinSendable || amount > s.cfg.MaxSendable {
		s.writeError(w, fmt.Sprintf(
			"amount must be between %d and %d msat",
			uint64(s.cfg.MinSendable), uint64(s.cfg.MaxSendable),
		))
		return
	}

	// Claim the id only once the request is otherwise well formed, so a
	// payer whose first attempt is out of bounds can retry with the same
	// pay request.
	now := time.Now()
	s.mu.Lock()
	s.purgeExpired(now)
	pending, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()
	if !ok {
		s.writeError(w, "unknown or expired pay request")
		return
	}

	if comment := r.Form.Get("comment"); comment != "" {
		log.Infof("Payer comment: %s", comment)
	}

	metaHash := sha256.Sum256([]byte(pending.metadata))

	_, pr, err := s.lnd.AddInvoice(ctx, &invoicesrpc.AddInvoiceData{
		Memo:            s.cfg.Comment,
		Value:           amount,
		DescriptionHash: metaHash[:],
	})
	if err != nil {
		log.Errorf("Could not add invoice: %v", err)
		s.writeError(w, "cannot create invoice")
		return
	}

	resp := &invoiceResponse{
		Pr:     pr,
		Routes: []string{},
	}
	if s.cfg.SuccessMessage != "" {
		resp.SuccessAction = &SuccessAction{
			Tag:     ActionTagMessage,
			Message: s.cfg.SuccessMessage,
		}
	}

	s.writeJSON(w, resp)
}

// purgeExpired drops unclaimed ids older than the TTL. Callers hold mu.
func (s *Server) purgeExpired(now time.Time) {
	for id, p := range s.pending {
		if now.Sub(p.createdAt) > s.cfg.PendingTTL {
			delete(s.pending, id)
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Could not write response: %v", err)
	}
}

// writeError replies with the LNURL error envelope. The envelope rides on a
// 200 so thin clients surface the reason instead of a transport failure.
func (s *Server) writeError(w http.ResponseWriter, reason string) {
	s.writeJSON(w, &ErrorResponse{Status: StatusError, Reason: reason})
}
