package authsdk_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/tradelink/pkg/authsdk"
	"github.com/aussiebroadwan/tradelink/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *authsdk.SDKClient {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/token", handler)
	mux.HandleFunc("GET /.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"keys": []map[string]any{{"kid": "k1", "kty": "RSA", "x5c": []string{"AAAA"}}},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return authsdk.NewSDKClient(srv.URL+"/oauth2/token", srv.URL+"/.well-known/jwks.json")
}

func TestClientCredentialsGrant(t *testing.T) {
	t.Parallel()

	client := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		require.Equal(t, "cid", r.PostForm.Get("client_id"))
		require.Equal(t, "secret", r.PostForm.Get("client_secret"))
		require.Equal(t, "trade read", r.PostForm.Get("scope"))

		httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{AccessToken: "tok", TokenType: "Bearer", ExpiresIn: 900})
	})

	resp, err := client.ClientCredentialsGrant(context.Background(), "cid", "secret", []string{"trade", "read"})
	require.NoError(t, err)
	require.Equal(t, "tok", resp.AccessToken)
	require.Equal(t, 900, resp.ExpiresIn)
}

func TestPasswordGrant_MFAChallenge(t *testing.T) {
	t.Parallel()

	client := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.PostForm.Get("grant_type") {
		case "password":
			require.Equal(t, "alice", r.PostForm.Get("username"))
			(&authsdk.MFARequiredError{MFAToken: "mfa-1", Methods: []string{"totp"}}).WriteError(w)
		case "mfa_otp":
			require.Equal(t, "mfa-1", r.PostForm.Get("mfa_token"))
			require.Equal(t, "totp", r.PostForm.Get("method"))
			require.Equal(t, "123456", r.PostForm.Get("otp_code"))
			httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{AccessToken: "after-mfa"})
		default:
			authsdk.ErrUnsupportedGrantType.WriteError(w)
		}
	})

	ctx := context.Background()
	_, err := client.PasswordGrant(ctx, "cid", "", "alice", "pw", nil)

	var mfaErr *authsdk.MFARequiredError
	require.True(t, errors.As(err, &mfaErr))
	require.Equal(t, []string{"totp"}, mfaErr.Methods)

	resp, err := client.MFAOTPGrant(ctx, *mfaErr, "totp", "123456")
	require.NoError(t, err)
	require.Equal(t, "after-mfa", resp.AccessToken)
}

func TestTokenErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		write        func(w http.ResponseWriter)
		wantCode     string
		unauthorized bool
	}{
		{
			name:         "invalid client",
			write:        func(w http.ResponseWriter) { authsdk.ErrInvalidClient.WriteError(w) },
			wantCode:     authsdk.ErrorCodeInvalidClient,
			unauthorized: true,
		},
		{
			name: "invalid token",
			write: func(w http.ResponseWriter) {
				authsdk.NewOAuth2Error(http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken, "expired").WriteError(w)
			},
			wantCode:     authsdk.ErrorCodeInvalidToken,
			unauthorized: true,
		},
		{
			name:     "server error",
			write:    func(w http.ResponseWriter) { authsdk.ErrServerError.WriteError(w) },
			wantCode: authsdk.ErrorCodeServerError,
		},
		{
			name: "plain text 502",
			write: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("upstream down"))
			},
			wantCode: authsdk.ErrorCodeServerError,
		},
		{
			name: "200 without token",
			write: func(w http.ResponseWriter) {
				httpx.WriteJSON(w, http.StatusOK, map[string]string{"token_type": "Bearer"})
			},
			wantCode: authsdk.ErrorCodeServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := tokenServer(t, func(w http.ResponseWriter, r *http.Request) { tt.write(w) })

			_, err := client.ClientCredentialsGrant(context.Background(), "cid", "secret", nil)
			var oe *authsdk.OAuth2Error
			require.True(t, errors.As(err, &oe))
			require.Equal(t, tt.wantCode, oe.Code)
			require.Equal(t, tt.unauthorized, authsdk.IsUnauthorized(err))
		})
	}
}

func TestGetJWKS(t *testing.T) {
	t.Parallel()

	client := tokenServer(t, nil)

	jwks, err := client.GetJWKS(context.Background())
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "k1", jwks.Keys[0].Kid)
	require.Equal(t, []string{"AAAA"}, jwks.Keys[0].X5c)
}

func TestGetJWKS_Unreachable(t *testing.T) {
	t.Parallel()

	client := authsdk.NewSDKClient("http://127.0.0.1:1/token", "http://127.0.0.1:1/jwks")
	_, err := client.GetJWKS(context.Background())
	require.Error(t, err)
}
