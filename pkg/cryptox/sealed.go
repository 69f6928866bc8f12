package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for deriving the sealing key from a master passphrase.
const (
	sealIterations  = 3
	sealMemory      = 64 * 1024 // KiB
	sealParallelism = 2
	sealKeyLength   = 32
	sealSaltLength  = 16
)

var sealVersion = []byte("tl1")

var (
	ErrEmptyMasterKey = errors.New("cryptox: empty master key")
	ErrSealedFormat   = errors.New("cryptox: malformed sealed secret")
	ErrUnseal         = errors.New("cryptox: cannot open sealed secret")
)

// SealSecret encrypts plaintext under a key derived from master with
// Argon2id and returns base64 text safe for env vars and config files.
// Layout before encoding: version | salt | nonce | ciphertext+tag.
func SealSecret(master, plaintext []byte) (string, error) {
	if len(master) == 0 {
		return "", ErrEmptyMasterKey
	}

	salt := make([]byte, sealSaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := sealCipher(master, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(sealVersion)+len(salt)+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, sealVersion...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, sealVersion)

	return base64.StdEncoding.EncodeToString(out), nil
}

// OpenSecret reverses SealSecret. A wrong master key and a tampered value
// both report ErrUnseal.
func OpenSecret(master []byte, sealed string) ([]byte, error) {
	if len(master) == 0 {
		return nil, ErrEmptyMasterKey
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealedFormat, err)
	}
	if !bytes.HasPrefix(raw, sealVersion) {
		return nil, ErrSealedFormat
	}
	raw = raw[len(sealVersion):]

	if len(raw) < sealSaltLength {
		return nil, ErrSealedFormat
	}
	salt, rest := raw[:sealSaltLength], raw[sealSaltLength:]

	gcm, err := sealCipher(master, salt)
	if err != nil {
		return nil, err
	}

	if len(rest) < gcm.NonceSize()+gcm.Overhead() {
		return nil, ErrSealedFormat
	}
	nonce, ct := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ct, sealVersion)
	if err != nil {
		return nil, ErrUnseal
	}
	return plaintext, nil
}

func sealCipher(master, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(master, salt, sealIterations, sealMemory, sealParallelism, sealKeyLength)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
