package jwtx

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// RS256Verifier validates JWTs signed using RS256 against a KeySet.
type RS256Verifier struct {
	keys *KeySet
	opts VerifyOptions
}

// NewVerifierRS256 creates a verifier using a KeySet of RSA public keys.
func NewVerifierRS256(keys *KeySet, issuer string, aud []string) *RS256Verifier {
	return &RS256Verifier{keys: keys, opts: VerifyOptions{Issuer: issuer, Audience: aud}}
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *RS256Verifier) Verify(tokenStr string) (*Claims, error) {
	kid, err := KeyID(tokenStr)
	if err != nil {
		return nil, err
	}

	pub, err := v.keys.Get(kid)
	if err != nil {
		return nil, fmt.Errorf("jwtx: kid %q: %w", kid, err)
	}

	return VerifyRS256(tokenStr, pub, v.opts)
}

// KeyID reads the "kid" header without verifying anything.
func KeyID(tokenStr string) (string, error) {
	t, _, err := jwt.NewParser().ParseUnverified(tokenStr, &Claims{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return "", ErrMissingKID
	}
	return kid, nil
}

// VerifyRS256 checks the signature of tokenStr with key and then enforces
// exp, nbf, issuer and audience from opts. Errors wrap one of the package
// sentinels so callers can branch with errors.Is.
func VerifyRS256(tokenStr string, key *rsa.PublicKey, opts VerifyOptions) (*Claims, error) {
	if key == nil {
		return nil, ErrNoKey
	}

	// Claim checks are done below with our own sentinels and clock
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("%w: %v", ErrInvalidSig, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	// Now check all the claim requirements
	if err := claims.ValidateExpiryAt(opts.now(), opts.Leeway); err != nil {
		return nil, err
	}
	if err := claims.ValidateIssuer(opts.Issuer); err != nil {
		return nil, err
	}
	if err := claims.ValidateAudience(opts.Audience); err != nil {
		return nil, err
	}

	return claims, nil
}
