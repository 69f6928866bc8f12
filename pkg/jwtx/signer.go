package jwtx

// Signer is our interface for anything that can sign JWTs. The client only
// verifies in production; signers back the local venue simulator and tests.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	PublicJWK() JWK
	Validate() error
}

// NewSignerRS256 creates an RS256 signer from PEM bytes.
func NewSignerRS256(kid string, pemKey []byte) (*RS256Signer, error) {
	return newRS256Signer(kid, pemKey)
}
