package httpx_test

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/tradelink/pkg/httpx"
	"github.com/aussiebroadwan/tradelink/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mark("outer"), mark("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestAuthnAndScopes(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	signer := jwtx.NewSignerRS256FromKey("k1", key)

	ks := jwtx.NewKeySet()
	require.NoError(t, ks.AddSigner(signer))
	verifier := jwtx.NewCommonRS256(ks, "venue", nil)

	sign := func(scope string, iat time.Time) string {
		tok, err := signer.Sign(jwtx.NewAccessClaims("ops", "", scope, time.Minute, "venue", nil, iat))
		require.NoError(t, err)
		return tok
	}

	var gotSubject string
	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = httpx.SubjectFromContext(r.Context())
		c, ok := httpx.ClaimsFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "venue", c.Issuer)
		w.WriteHeader(http.StatusOK)
	}), httpx.AuthnMiddleware(verifier), httpx.RequireAnyScope("read", "admin"))

	do := func(authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("missing token", func(t *testing.T) {
		rec := do("")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("wrong scheme", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, do("Basic abc").Code)
	})

	t.Run("expired", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, do("Bearer "+sign("read", time.Now().Add(-time.Hour))).Code)
	})

	t.Run("insufficient scope", func(t *testing.T) {
		rec := do("Bearer " + sign("trade", time.Now()))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")
	})

	t.Run("ok", func(t *testing.T) {
		require.Equal(t, http.StatusOK, do("bearer "+sign("trade read", time.Now())).Code)
		require.Equal(t, "ops", gotSubject)
	})
}
