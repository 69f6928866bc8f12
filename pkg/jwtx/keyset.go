package jwtx

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds the venue's public verification keys in memory, indexed by
// kid. It's thread-safe so the token authority can refresh it while the
// status API verifies against it.
type KeySet struct {
	mu  sync.RWMutex
	jks JWKS
	pub map[string]*rsa.PublicKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{
		pub: make(map[string]*rsa.PublicKey),
	}
}

// AddSigner registers a Signer's public JWK into the KeySet.
func (k *KeySet) AddSigner(s Signer) error {
	return k.AddJWK(s.PublicJWK())
}

// AddJWK adds a JWK to the KeySet and parses it into a usable crypto key.
func (k *KeySet) AddJWK(j JWK) error {
	key, err := j.PublicKey()
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub[j.Kid] = key
	k.jks.Keys = append(k.jks.Keys, j)
	return nil
}

// Get returns the public key for the given kid.
func (k *KeySet) Get(kid string) (*rsa.PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// PublicJWKS returns a snapshot of the KeySet's JWKS.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return JWKS{Keys: append([]JWK(nil), k.jks.Keys...)}
}

// IsReady returns true if the KeySet has at least one key loaded.
func (k *KeySet) IsReady() bool {
	return k.Len() > 0
}

// Len reports how many usable keys are loaded.
func (k *KeySet) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub)
}

// Clear drops every key. An empty set means "no key available", lookups
// report ErrNoKey until the next successful reset.
func (k *KeySet) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub = make(map[string]*rsa.PublicKey)
	k.jks = JWKS{}
}

// ResetFromJWKS replaces all keys from a fetched JWKS. Entries that carry no
// usable key material (no x5c, no n/e, wrong key type) are skipped rather
// than failing the whole set; the joined error describes what was skipped.
func (k *KeySet) ResetFromJWKS(jwks JWKS) error {
	newMap := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	kept := make([]JWK, 0, len(jwks.Keys))

	var skipped []error
	for _, j := range jwks.Keys {
		if j.Kid == "" {
			skipped = append(skipped, errors.New("jwtx: jwk without kid"))
			continue
		}
		key, err := j.PublicKey()
		if err != nil {
			skipped = append(skipped, fmt.Errorf("kid %q: %w", j.Kid, err))
			continue
		}
		newMap[j.Kid] = key
		kept = append(kept, j)
	}

	k.mu.Lock()
	k.pub = newMap
	k.jks = JWKS{Keys: kept}
	k.mu.Unlock()

	return errors.Join(skipped...)
}
