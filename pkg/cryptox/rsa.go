package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// KeyFormat selects the PEM encoding of a generated private key.
type KeyFormat int

const (
	PKCS1 KeyFormat = iota // "RSA PRIVATE KEY"
	PKCS8                  // "PRIVATE KEY"
)

// GenerateRSAKey generates an RSA private key of at least 2048 bits and
// returns it PEM encoded. Used for local venue signing keys.
func GenerateRSAKey(bits int, format KeyFormat) ([]byte, error) {
	if bits < 2048 {
		return nil, fmt.Errorf("cryptox: RSA key size must be at least 2048 bits")
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate RSA key: %w", err)
	}

	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)}
	if format == PKCS8 {
		der, err := x509.MarshalPKCS8PrivateKey(privateKey)
		if err != nil {
			return nil, fmt.Errorf("cryptox: failed to marshal PKCS8 key: %w", err)
		}
		block = &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	}

	return pem.EncodeToMemory(block), nil
}
