// Package venuesim is a small in-process trading venue: an OAuth2 token
// endpoint, a JWKS endpoint publishing x5c certificates and a websocket
// trading channel speaking the wire protocol. It backs the package tests
// and the cmd/venuesim binary used by the end-to-end suite.
package venuesim

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/aussiebroadwan/tradelink/pkg/jwtx"
	"github.com/aussiebroadwan/tradelink/pkg/slogx"
	"github.com/coder/websocket"
)

const (
	TokenPath = "/oauth2/token"
	JWKSPath  = "/.well-known/jwks.json"
	WSPath    = "/ws"
)

// Config describes the credentials and token shape the venue accepts.
type Config struct {
	KeyID    string
	Issuer   string
	Audience []string
	TokenTTL time.Duration

	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	// MFASecret, when set, makes the password grant answer with an MFA
	// challenge that must be completed with a TOTP code for this secret.
	MFASecret string

	// APIKey and APISecret are what the channel login must carry.
	APIKey    string
	APISecret string

	// AutoFill makes every accepted order fill immediately at its limit
	// price (or 100 for market orders) and update positions.
	AutoFill bool

	// OpeningBalances is sent as a balances snapshot right before a
	// successful login is acknowledged.
	OpeningBalances map[string]wire.BalanceEntry

	Logger *slog.Logger
}

// DefaultConfig is what tests and the simulator binary start from.
func DefaultConfig() Config {
	return Config{
		KeyID:        "venue-key-1",
		Issuer:       "venuesim",
		Audience:     []string{"trading"},
		TokenTTL:     jwtx.DefaultAccessTokenTTL,
		ClientID:     "client-1",
		ClientSecret: "client-secret",
		Username:     "trader",
		Password:     "hunter2",
		APIKey:       "api-key",
		APISecret:    "api-secret",
	}
}

// Venue is the simulated venue. Its zero value is not usable; call New.
type Venue struct {
	cfg    Config
	log    *slog.Logger
	signer *jwtx.RS256Signer
	jwks   jwtx.JWKS

	tokenRequests atomic.Int64
	jwksFetches   atomic.Int64
	upgrades      atomic.Int64

	jwksDown      atomic.Bool
	rejectUpgrade atomic.Int64 // upcoming upgrades to answer with 401
	failUpgrade   atomic.Int64 // upcoming upgrades to answer with 503
	mutateClaims  atomic.Pointer[func(*jwtx.Claims)]

	mu          sync.Mutex
	conns       map[*conn]struct{}
	connWaiters []chan struct{}
	received    []Frame
	mfaTokens   map[string]struct{}
	book        *book
}

// New generates a fresh RSA signing key and builds the venue.
func New(cfg Config) (*Venue, error) {
	if cfg.KeyID == "" {
		cfg.KeyID = DefaultConfig().KeyID
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = jwtx.DefaultAccessTokenTTL
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("venuesim: generate key: %w", err)
	}
	signer := jwtx.NewSignerRS256FromKey(cfg.KeyID, key)

	jwk, err := signer.CertificateJWK()
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = slogx.Discard()
	}

	return &Venue{
		cfg:       cfg,
		log:       slogx.Component(log, "venuesim"),
		signer:    signer,
		jwks:      jwtx.JWKS{Keys: []jwtx.JWK{jwk}},
		conns:     make(map[*conn]struct{}),
		mfaTokens: make(map[string]struct{}),
		book:      newBook(),
	}, nil
}

// Handler serves the token, JWKS and websocket endpoints.
func (v *Venue) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+TokenPath, v.handleToken)
	mux.HandleFunc("GET "+JWKSPath, v.handleJWKS)
	mux.HandleFunc("GET "+WSPath, v.handleWS)
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (v *Venue) Config() Config           { return v.cfg }
func (v *Venue) Signer() *jwtx.RS256Signer { return v.signer }

// IssueToken signs claims built from the venue's config for subject,
// after passing them through mutate when it is non-nil.
func (v *Venue) IssueToken(subject string, mutate func(*jwtx.Claims)) (string, error) {
	claims := jwtx.NewAccessClaims(subject, v.cfg.ClientID, "trade read", v.cfg.TokenTTL, v.cfg.Issuer, v.cfg.Audience, time.Now())
	if mutate != nil {
		mutate(&claims)
	}
	return v.signer.Sign(claims)
}

// MutateIssuedClaims changes every token the endpoint issues from now on.
// Pass nil to restore normal tokens.
func (v *Venue) MutateIssuedClaims(fn func(*jwtx.Claims)) {
	if fn == nil {
		v.mutateClaims.Store(nil)
		return
	}
	v.mutateClaims.Store(&fn)
}

// SetJWKSDown makes the JWKS endpoint answer 503.
func (v *Venue) SetJWKSDown(down bool) { v.jwksDown.Store(down) }

// RejectUpgrades answers the next n websocket upgrades with 401.
func (v *Venue) RejectUpgrades(n int) { v.rejectUpgrade.Store(int64(n)) }

// FailUpgrades answers the next n websocket upgrades with 503.
func (v *Venue) FailUpgrades(n int) { v.failUpgrade.Store(int64(n)) }

func (v *Venue) TokenRequests() int { return int(v.tokenRequests.Load()) }
func (v *Venue) JWKSFetches() int   { return int(v.jwksFetches.Load()) }

// Upgrades counts accepted websocket connections.
func (v *Venue) Upgrades() int { return int(v.upgrades.Load()) }

// takeOne decrements c when positive and reports whether it did.
func takeOne(c *atomic.Int64) bool {
	for {
		n := c.Load()
		if n <= 0 {
			return false
		}
		if c.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// closeAll drops every live connection with status.
func (v *Venue) closeAll(status websocket.StatusCode, abrupt bool) {
	v.mu.Lock()
	conns := make([]*conn, 0, len(v.conns))
	for c := range v.conns {
		conns = append(conns, c)
	}
	v.mu.Unlock()

	for _, c := range conns {
		if abrupt {
			_ = c.ws.CloseNow()
		} else {
			_ = c.ws.Close(status, "venue closing")
		}
	}
}

// Drop abruptly closes every live connection, as a network failure would.
func (v *Venue) Drop() { v.closeAll(websocket.StatusGoingAway, true) }

// Shutdown closes every live connection cleanly.
func (v *Venue) Shutdown() { v.closeAll(websocket.StatusGoingAway, false) }
