package channel

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultReconnectDelay       = 5 * time.Second
	DefaultMaxReconnectDelay    = 60 * time.Second
	DefaultMaxReconnectAttempts = 10
	DefaultWriteTimeout         = 5 * time.Second
	DefaultDialTimeout          = 10 * time.Second
	DefaultReadLimit            = 2 * 1024 * 1024
)

// TokenSource hands out a fresh bearer token after the venue rejected the
// current one.
type TokenSource interface {
	Refresh(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Refresh(ctx context.Context) (string, error) { return f(ctx) }

// Options configures a Manager. Zero durations and limits take the
// defaults above.
type Options struct {
	URL string

	HeartbeatInterval    time.Duration
	ReconnectDelay       time.Duration // first backoff interval
	MaxReconnectDelay    time.Duration
	MaxReconnectAttempts int
	WriteTimeout         time.Duration
	DialTimeout          time.Duration
	ReadLimit            int64

	HTTPClient  *http.Client
	TokenSource TokenSource
	Logger      *slog.Logger
	Meter       metric.Meter

	// OnReconnect runs on the reconnect goroutine after every successful
	// reconnect, before any further frames are read.
	OnReconnect func(ctx context.Context) error

	// OnFatal runs on its own goroutine once the manager gives up.
	OnFatal func(err error)

	// OnStateChange runs with the manager's lock held and must not call
	// back into the Manager.
	OnStateChange func(from, to State)
}

func (o *Options) setDefaults() {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.MaxReconnectDelay <= 0 {
		o.MaxReconnectDelay = DefaultMaxReconnectDelay
	}
	if o.MaxReconnectDelay < o.ReconnectDelay {
		o.MaxReconnectDelay = o.ReconnectDelay
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = DefaultReadLimit
	}
	if o.Meter == nil {
		o.Meter = otel.Meter("tradelink/channel")
	}
}
