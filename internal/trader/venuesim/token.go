package venuesim

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/tradelink/pkg/authsdk"
	"github.com/aussiebroadwan/tradelink/pkg/httpx"
	"github.com/aussiebroadwan/tradelink/pkg/jwtx"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
)

func eq(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// handleToken serves the OAuth2 token endpoint for the client_credentials,
// password and mfa_otp grants.
func (v *Venue) handleToken(w http.ResponseWriter, r *http.Request) {
	v.tokenRequests.Add(1)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	form := r.PostForm
	switch form.Get("grant_type") {
	case authsdk.GrantClientCredentials:
		if !eq(form.Get("client_id"), v.cfg.ClientID) || !eq(form.Get("client_secret"), v.cfg.ClientSecret) {
			authsdk.ErrInvalidClient.WriteError(w)
			return
		}
		v.writeToken(w, form.Get("client_id"), form.Get("scope"))

	case authsdk.GrantPassword:
		if !eq(form.Get("client_id"), v.cfg.ClientID) {
			authsdk.ErrInvalidClient.WriteError(w)
			return
		}
		if !eq(form.Get("username"), v.cfg.Username) || !eq(form.Get("password"), v.cfg.Password) {
			authsdk.ErrInvalidGrant.WriteError(w)
			return
		}
		if v.cfg.MFASecret != "" {
			mfaToken := uuid.NewString()
			v.mu.Lock()
			v.mfaTokens[mfaToken] = struct{}{}
			v.mu.Unlock()

			(&authsdk.MFARequiredError{MFAToken: mfaToken, Methods: []string{"totp"}}).WriteError(w)
			return
		}
		v.writeToken(w, form.Get("username"), form.Get("scope"))

	case authsdk.GrantMFAOTP:
		mfaToken := form.Get("mfa_token")
		v.mu.Lock()
		_, ok := v.mfaTokens[mfaToken]
		delete(v.mfaTokens, mfaToken)
		v.mu.Unlock()

		if !ok || form.Get("method") != "totp" || !totp.Validate(form.Get("otp_code"), v.cfg.MFASecret) {
			authsdk.ErrInvalidGrant.WriteError(w)
			return
		}
		v.writeToken(w, v.cfg.Username, "")

	default:
		authsdk.ErrUnsupportedGrantType.WriteError(w)
	}
}

func (v *Venue) writeToken(w http.ResponseWriter, subject, scope string) {
	var mutate func(*jwtx.Claims)
	if fn := v.mutateClaims.Load(); fn != nil {
		mutate = *fn
	}

	tok, err := v.IssueToken(subject, mutate)
	if err != nil {
		v.log.Error("sign token failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	if scope == "" {
		scope = "trade read"
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken: tok,
		TokenType:   "Bearer",
		ExpiresIn:   int(v.cfg.TokenTTL / time.Second),
		Scope:       scope,
	})
}

func (v *Venue) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	v.jwksFetches.Add(1)
	if v.jwksDown.Load() {
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "key discovery offline")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(v.jwks))
}

// verifyBearer checks an Authorization header against the venue's own key.
func (v *Venue) verifyBearer(r *http.Request) bool {
	h := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return false
	}
	_, err := jwtx.VerifyRS256(strings.TrimSpace(tok), v.signer.PublicKey(), jwtx.VerifyOptions{
		Issuer:   v.cfg.Issuer,
		Audience: v.cfg.Audience,
	})
	return err == nil
}
