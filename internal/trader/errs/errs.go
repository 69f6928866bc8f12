// Package errs classifies failures of the trading session so callers can
// decide between retrying, re-authenticating and giving up.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the failure category.
type Kind string

const (
	// KindAuth covers token acquisition, validation and HTTP 401 at connect.
	KindAuth Kind = "auth"
	// KindConnection covers dial, handshake and transport failures.
	KindConnection Kind = "connection"
	// KindProtocol covers frames that do not decode or carry an unknown type.
	KindProtocol Kind = "protocol"
	// KindSend covers outbound writes, including sends while disconnected.
	KindSend Kind = "send"
	// KindValidation covers caller input rejected before any I/O.
	KindValidation Kind = "validation"
)

var (
	ErrNotConnected     = errors.New("channel not connected")
	ErrAlreadyConnected = errors.New("channel already connected")
	ErrClosed           = errors.New("channel closed")
	ErrUnauthorized     = errors.New("venue rejected bearer token")
	ErrUnknownMessage   = errors.New("unknown message type")
	ErrMaxReconnects    = errors.New("reconnect attempts exhausted")
)

// Error is the typed error carried across package boundaries.
type Error struct {
	Kind   Kind
	Op     string // e.g. "channel.connect"
	Status int    // HTTP status from the handshake or token endpoint, 0 if none
	Err    error
}

// Option configures an Error.
type Option func(*Error)

// WithStatus records the associated HTTP status code.
func WithStatus(status int) Option {
	return func(e *Error) { e.Status = status }
}

// New wraps err with a kind and the operation that failed.
func New(kind Kind, op string, err error, opts ...Option) *Error {
	e := &Error{Kind: kind, Op: strings.TrimSpace(op), Err: err}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (http %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether reconnecting with the same credentials may
// succeed. Connection failures are retryable unless the venue answered
// with a 4xx other than 408/429. Auth, protocol, validation and a closed
// channel are not.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, ErrClosed) || errors.Is(err, ErrMaxReconnects) {
		return false
	}

	var e *Error
	if !errors.As(err, &e) {
		// Unclassified transport errors (resets, EOF) are worth another go
		return true
	}

	switch e.Kind {
	case KindConnection, KindSend:
		if e.Status >= 400 && e.Status < 500 {
			return e.Status == http.StatusRequestTimeout || e.Status == http.StatusTooManyRequests
		}
		return true
	default:
		return false
	}
}
