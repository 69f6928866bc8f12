package jwtx

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

// JWK represents a public key in JSON Web Key format (RFC 7517).
// Venues publish RSA keys either as a bare modulus/exponent pair or wrapped in
// an X.509 certificate chain (x5c); we read both, preferring the certificate.
type JWK struct {
	Kty string `json:"kty"`           // key type: "RSA"
	Use string `json:"use,omitempty"` // what we use it for: "sig"
	Alg string `json:"alg,omitempty"` // algorithm: "RS256"
	Kid string `json:"kid,omitempty"` // key ID

	// RSA stuff
	N string `json:"n,omitempty"` // modulus (base64url)
	E string `json:"e,omitempty"` // exponent (base64url)

	// X5c is the certificate chain, leaf first. Each entry is standard
	// base64 (not base64url) DER per RFC 7517 section 4.7.
	X5c []string `json:"x5c,omitempty"`
	X5t string   `json:"x5t,omitempty"`
}

// JWKS is a JSON Web Key Set (RFC 7517).
type JWKS struct {
	Keys []JWK `json:"keys"`
}

var ErrNoKeyMaterial = errors.New("jwtx: jwk has no usable key material")

// NewRSAJWK builds a JWK for an RSA public key.
func NewRSAJWK(kid, use, alg string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: use,
		Alg: alg,
		Kid: kid,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// WithCertificate returns a copy of the JWK carrying cert as its x5c leaf.
func (j JWK) WithCertificate(cert *x509.Certificate) JWK {
	j.X5c = []string{base64.StdEncoding.EncodeToString(cert.Raw)}
	return j
}

// PublicKey extracts the RSA verification key. The x5c leaf certificate wins
// when present; otherwise the n/e pair is used. A JWK with neither yields
// ErrNoKeyMaterial.
func (j JWK) PublicKey() (*rsa.PublicKey, error) {
	if len(j.X5c) > 0 && j.X5c[0] != "" {
		return publicKeyFromX5c(j.X5c[0])
	}

	if j.N == "" || j.E == "" {
		return nil, ErrNoKeyMaterial
	}

	if j.Kty != "" && j.Kty != "RSA" {
		return nil, errors.New("jwtx: unsupported kty " + j.Kty)
	}

	nb, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, fmt.Errorf("jwtx: decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, fmt.Errorf("jwtx: decode exponent: %w", err)
	}
	n := new(big.Int).SetBytes(nb)
	e := new(big.Int).SetBytes(eb).Int64()
	return &rsa.PublicKey{N: n, E: int(e)}, nil
}

func publicKeyFromX5c(leaf string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(leaf)
	if err != nil {
		return nil, fmt.Errorf("jwtx: decode x5c: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse x5c certificate: %w", err)
	}

	// Only RSA is accepted, the verifier is RS256 only
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("jwtx: x5c certificate does not hold an RSA key")
	}
	return pub, nil
}
