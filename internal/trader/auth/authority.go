// Package auth is the credential and token authority of a trading session.
// It acquires bearer tokens from the venue's OAuth2 token endpoint and
// verifies them offline against the venue's published signing keys.
package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/errs"
	"github.com/aussiebroadwan/tradelink/pkg/authsdk"
	"github.com/aussiebroadwan/tradelink/pkg/cryptox"
	"github.com/aussiebroadwan/tradelink/pkg/jwtx"
	"github.com/aussiebroadwan/tradelink/pkg/slogx"
	"github.com/pquerna/otp/totp"
)

// DefaultKeySetFreshness is how long a fetched key set is trusted before
// the next lookup refetches it.
const DefaultKeySetFreshness = time.Hour

// GrantConfig selects how tokens are obtained.
type GrantConfig struct {
	Type         string // authsdk.GrantClientCredentials (default) or authsdk.GrantPassword
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Scopes       []string

	// TOTPSecret completes an MFA challenge on the password grant. Without
	// it a challenge fails acquisition.
	TOTPSecret string
}

type Config struct {
	TokenURL string
	JWKSURL  string
	Issuer   string
	Audience []string

	KeySetFreshness time.Duration
	Leeway          time.Duration

	Grant GrantConfig
}

// AccessToken is a bearer token that has passed validation.
type AccessToken struct {
	Raw    string
	KeyID  string
	Claims jwtx.Claims
}

// Fingerprint identifies the token in logs without revealing it.
func (t *AccessToken) Fingerprint() string { return cryptox.FingerprintToken(t.Raw) }

// ExpiresAt is the exp claim, zero when absent.
func (t *AccessToken) ExpiresAt() time.Time {
	if t.Claims.ExpiresAt == nil {
		return time.Time{}
	}
	return t.Claims.ExpiresAt.Time
}

type Option func(*Authority)

// WithHTTPClient replaces the client used for the token and JWKS endpoints.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Authority) { a.sdk.HTTPClient = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Authority) { a.log = slogx.Component(l, "auth") }
}

// WithClock overrides time.Now for expiry checks, key freshness and TOTP.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) { a.now = now }
}

// Authority owns the session's token and the venue's key set. It is safe
// for concurrent use.
type Authority struct {
	cfg Config
	sdk *authsdk.SDKClient
	log *slog.Logger
	now func() time.Time

	keysMu    sync.Mutex
	keys      *jwtx.KeySet
	fetchedAt time.Time

	tokMu sync.Mutex
	token *AccessToken
}

func New(cfg Config, opts ...Option) *Authority {
	if cfg.KeySetFreshness <= 0 {
		cfg.KeySetFreshness = DefaultKeySetFreshness
	}
	if cfg.Grant.Type == "" {
		cfg.Grant.Type = authsdk.GrantClientCredentials
	}

	a := &Authority{
		cfg:  cfg,
		sdk:  authsdk.NewSDKClient(cfg.TokenURL, cfg.JWKSURL),
		log:  slogx.Component(nil, "auth"),
		now:  time.Now,
		keys: jwtx.NewKeySet(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchKeySet returns the venue's signing keys, refetching them when the
// cached set is older than the freshness window. A failed refetch clears
// the set, so lookups report jwtx.ErrNoKey until the venue is reachable
// again. The returned set is shared and updated in place.
func (a *Authority) FetchKeySet(ctx context.Context) *jwtx.KeySet {
	a.keysMu.Lock()
	defer a.keysMu.Unlock()

	now := a.now()
	if !a.fetchedAt.IsZero() && now.Sub(a.fetchedAt) < a.cfg.KeySetFreshness {
		return a.keys
	}

	resp, err := a.sdk.GetJWKS(ctx)
	if err != nil {
		a.keys.Clear()
		a.fetchedAt = time.Time{}
		a.log.Error("fetch signing keys failed", "url", a.cfg.JWKSURL, "err", err)
		return a.keys
	}

	if err := a.keys.ResetFromJWKS(jwtx.JWKS(*resp)); err != nil {
		a.log.Warn("skipped unusable signing keys", "err", err)
	}
	a.fetchedAt = now
	a.log.Debug("signing keys refreshed", "keys", a.keys.Len())

	return a.keys
}

// KeySet is the shared key set without triggering a refresh.
func (a *Authority) KeySet() *jwtx.KeySet { return a.keys }

// Ready reports whether any signing key is loaded.
func (a *Authority) Ready() bool { return a.keys.IsReady() }

// FindSigningKey resolves the key named by the token's kid header.
func (a *Authority) FindSigningKey(ctx context.Context, token string) (*rsa.PublicKey, error) {
	kid, err := jwtx.KeyID(token)
	if err != nil {
		if errors.Is(err, jwtx.ErrMissingKID) {
			return nil, fmt.Errorf("%w: %w", jwtx.ErrMalformed, err)
		}
		return nil, err
	}

	pub, err := a.FetchKeySet(ctx).Get(kid)
	if err != nil {
		return nil, fmt.Errorf("kid %q: %w", kid, err)
	}
	return pub, nil
}

// Validate verifies the token's signature, expiry, issuer and audience.
// Failures are KindAuth errors wrapping a jwtx sentinel. Without a
// configured issuer and audience every token is rejected.
func (a *Authority) Validate(ctx context.Context, token string) (*AccessToken, error) {
	const op = "auth.validate"

	if strings.TrimSpace(a.cfg.Issuer) == "" {
		return nil, errs.New(errs.KindAuth, op, fmt.Errorf("%w: no issuer configured", jwtx.ErrIssuer))
	}
	if !slices.ContainsFunc(a.cfg.Audience, func(aud string) bool { return strings.TrimSpace(aud) != "" }) {
		return nil, errs.New(errs.KindAuth, op, fmt.Errorf("%w: no audience configured", jwtx.ErrAudience))
	}

	pub, err := a.FindSigningKey(ctx, token)
	if err != nil {
		return nil, errs.New(errs.KindAuth, op, err)
	}

	claims, err := jwtx.VerifyRS256(token, pub, jwtx.VerifyOptions{
		Issuer:   a.cfg.Issuer,
		Audience: a.cfg.Audience,
		Leeway:   a.cfg.Leeway,
		Now:      a.now,
	})
	if err != nil {
		return nil, errs.New(errs.KindAuth, op, err)
	}

	kid, _ := jwtx.KeyID(token)
	return &AccessToken{Raw: token, KeyID: kid, Claims: *claims}, nil
}

// Acquire exchanges the configured grant for a fresh token and validates
// it. An invalid token is discarded, never returned.
func (a *Authority) Acquire(ctx context.Context) (*AccessToken, error) {
	a.tokMu.Lock()
	defer a.tokMu.Unlock()
	return a.acquireLocked(ctx)
}

func (a *Authority) acquireLocked(ctx context.Context) (*AccessToken, error) {
	const op = "auth.acquire"

	a.token = nil

	resp, err := a.exchange(ctx)
	if err != nil {
		a.log.Warn("token request failed", "grant", a.cfg.Grant.Type, "err", err)
		return nil, errs.New(errs.KindAuth, op, err, errs.WithStatus(statusOf(err)))
	}

	tok, err := a.Validate(ctx, resp.AccessToken)
	if err != nil {
		a.log.Warn("issued token failed validation",
			"reason", jwtx.Reason(err),
			"fingerprint", cryptox.FingerprintToken(resp.AccessToken),
		)
		return nil, err
	}

	a.token = tok
	a.log.Info("token acquired",
		"fingerprint", tok.Fingerprint(),
		"kid", tok.KeyID,
		"expires_at", tok.ExpiresAt(),
	)
	return tok, nil
}

func (a *Authority) exchange(ctx context.Context) (*authsdk.TokenResponse, error) {
	g := a.cfg.Grant
	switch g.Type {
	case authsdk.GrantClientCredentials:
		return a.sdk.ClientCredentialsGrant(ctx, g.ClientID, g.ClientSecret, g.Scopes)

	case authsdk.GrantPassword:
		resp, err := a.sdk.PasswordGrant(ctx, g.ClientID, g.ClientSecret, g.Username, g.Password, g.Scopes)
		var mfa *authsdk.MFARequiredError
		if !errors.As(err, &mfa) {
			return resp, err
		}
		return a.completeMFA(ctx, mfa)

	default:
		return nil, authsdk.NewOAuth2Error(0, authsdk.ErrorCodeUnsupportedGrantType,
			fmt.Sprintf("grant %q is not supported", g.Type))
	}
}

func (a *Authority) completeMFA(ctx context.Context, mfa *authsdk.MFARequiredError) (*authsdk.TokenResponse, error) {
	if a.cfg.Grant.TOTPSecret == "" {
		return nil, fmt.Errorf("no totp secret configured: %w", mfa)
	}
	if len(mfa.Methods) > 0 && !slices.Contains(mfa.Methods, "totp") {
		return nil, fmt.Errorf("totp not offered: %w", mfa)
	}

	code, err := totp.GenerateCode(a.cfg.Grant.TOTPSecret, a.now())
	if err != nil {
		return nil, fmt.Errorf("generate totp code: %w", err)
	}

	a.log.Debug("completing mfa challenge")
	return a.sdk.MFAOTPGrant(ctx, *mfa, "totp", code)
}

// Token returns the cached token while it still validates and acquires a
// new one otherwise.
func (a *Authority) Token(ctx context.Context) (*AccessToken, error) {
	a.tokMu.Lock()
	defer a.tokMu.Unlock()

	if a.token != nil {
		tok, err := a.Validate(ctx, a.token.Raw)
		if err == nil {
			return tok, nil
		}
		a.log.Info("cached token no longer valid", "reason", jwtx.Reason(err))
		a.token = nil
	}
	return a.acquireLocked(ctx)
}

// Invalidate drops the cached token.
func (a *Authority) Invalidate() {
	a.tokMu.Lock()
	a.token = nil
	a.tokMu.Unlock()
}

// Refresh drops the cached token and acquires a new one. It returns the
// raw bearer string for the channel.
func (a *Authority) Refresh(ctx context.Context) (string, error) {
	a.tokMu.Lock()
	defer a.tokMu.Unlock()

	tok, err := a.acquireLocked(ctx)
	if err != nil {
		return "", err
	}
	return tok.Raw, nil
}

// Verifier checks bearer tokens presented to the status API against the
// venue's key set.
func (a *Authority) Verifier() jwtx.Verifier {
	return jwtx.NewCommonRS256(a.keys, a.cfg.Issuer, a.cfg.Audience)
}

func statusOf(err error) int {
	var oe *authsdk.OAuth2Error
	if errors.As(err, &oe) {
		return oe.StatusCode
	}
	if errors.As(err, new(*authsdk.MFARequiredError)) {
		return http.StatusConflict
	}
	return 0
}
