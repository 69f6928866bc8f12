package trader_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/app"
	"github.com/aussiebroadwan/tradelink/internal/trader/auth"
	"github.com/aussiebroadwan/tradelink/pkg/authsdk"
	"github.com/aussiebroadwan/tradelink/pkg/jwtx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// TestJWKSPublishesCertificates checks the venue key set carries x5c
// chains the authority can load.
func TestJWKSPublishesCertificates(t *testing.T) {
	v := setupVenueContainer(t, nil)
	client := authsdk.NewSDKClient(v.TokenURL, v.JWKSURL)

	jwks, err := client.GetJWKS(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, jwks.Keys)
	for _, k := range jwks.Keys {
		require.NotEmpty(t, k.Kid)
		require.NotEmpty(t, k.X5c, "keys should be published as certificates")
	}

	authority := auth.New(auth.Config{
		TokenURL: v.TokenURL,
		JWKSURL:  v.JWKSURL,
		Issuer:   issuer,
		Audience: []string{audience},
		Grant:    auth.GrantConfig{ClientID: clientID, ClientSecret: clientSecret},
	})
	keys := authority.FetchKeySet(t.Context())
	require.Equal(t, len(jwks.Keys), keys.Len())

	tok, err := authority.Token(t.Context())
	require.NoError(t, err)
	require.Equal(t, jwks.Keys[0].Kid, tok.KeyID)
	require.WithinDuration(t, time.Now().Add(jwtx.DefaultAccessTokenTTL), tok.ExpiresAt(), time.Minute)
}

// TestClientCredentialsRejected checks bad credentials fail fast at start.
func TestClientCredentialsRejected(t *testing.T) {
	v := setupVenueContainer(t, nil)
	cfg := traderConfig(t, v)
	cfg.Auth.ClientSecret = "not-the-secret"

	application, err := app.New(cfg)
	require.NoError(t, err)

	err = application.RunContext(context.Background())
	require.Error(t, err)
	require.True(t, authsdk.IsUnauthorized(err), "got %v", err)
}

// TestPasswordGrantWithMFA logs in with a password grant whose MFA
// challenge the authority answers from the TOTP secret.
func TestPasswordGrantWithMFA(t *testing.T) {
	v := setupVenueContainer(t, map[string]string{"VENUESIM_MFA_SECRET": mfaSecret})

	// The raw grant answers with a challenge
	client := authsdk.NewSDKClient(v.TokenURL, v.JWKSURL)
	_, err := client.PasswordGrant(t.Context(), clientID, clientSecret, username, password, nil)
	var mfa *authsdk.MFARequiredError
	require.True(t, errors.As(err, &mfa), "got %v", err)
	require.Contains(t, mfa.Methods, "totp")

	code, err := totp.GenerateCode(mfaSecret, time.Now())
	require.NoError(t, err)
	resp, err := client.MFAOTPGrant(t.Context(), *mfa, "totp", code)
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)

	// The full application does the same on its own
	t.Setenv("TRADER_GRANT_TYPE", "password")
	t.Setenv("TRADER_USERNAME", username)
	t.Setenv("TRADER_PASSWORD", password)
	t.Setenv("TRADER_TOTP_SECRET", mfaSecret)
	trader := startTrader(t, traderConfig(t, v))
	require.True(t, trader.Session().LoggedIn())
}
