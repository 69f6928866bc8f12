package cryptox_test

import (
	"encoding/base64"
	"testing"

	"github.com/aussiebroadwan/tradelink/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	for _, size := range []int{16, 24, 32} {
		tok, err := cryptox.GenerateToken(size)
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)
		require.Len(t, raw, size)
	}

	_, err := cryptox.GenerateToken(0)
	require.Error(t, err)
}

func TestFingerprintToken(t *testing.T) {
	a := cryptox.FingerprintToken("eyJhbGciOi.payload.sig")
	require.Equal(t, a, cryptox.FingerprintToken("eyJhbGciOi.payload.sig"))
	require.NotEqual(t, a, cryptox.FingerprintToken("eyJhbGciOi.payload.other"))
	require.Len(t, a, 12)
	require.Empty(t, cryptox.FingerprintToken(""))
}
