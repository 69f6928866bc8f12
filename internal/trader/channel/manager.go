// Package channel maintains the single authenticated websocket to the
// venue: connect, heartbeat, receive, reconnect and the serialized send
// path.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/errs"
	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/aussiebroadwan/tradelink/pkg/slogx"
	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"github.com/sourcegraph/conc"
)

// Manager owns one websocket at a time. It is safe for concurrent use.
type Manager struct {
	opts    Options
	log     *slog.Logger
	metrics *connMetrics

	// ctx lives until Close or a fatal error and bounds every
	// reconnect attempt.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      atomic.Int32
	conn       *websocket.Conn
	token      string
	gen        uint64
	connCancel context.CancelFunc
	loops      *conc.WaitGroup

	// writeMu serializes every frame written, heartbeats included.
	writeMu sync.Mutex

	handlerMu sync.RWMutex
	handler   wire.Handler

	bg        conc.WaitGroup
	fatal     chan error
	closeOnce sync.Once
}

func NewManager(opts Options) *Manager {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		opts:    opts,
		log:     slogx.Component(opts.Logger, "channel"),
		metrics: newConnMetrics(opts.Meter),
		ctx:     ctx,
		cancel:  cancel,
		fatal:   make(chan error, 1),
	}
}

// State reports the current lifecycle state.
func (m *Manager) State() State { return State(m.state.Load()) }

// Fatal delivers the error that closed the manager, at most once.
func (m *Manager) Fatal() <-chan error { return m.fatal }

// RegisterHandler sets the receiver of inbound messages. The last
// registration wins.
func (m *Manager) RegisterHandler(h wire.Handler) {
	m.handlerMu.Lock()
	m.handler = h
	m.handlerMu.Unlock()
}

func (m *Manager) currentHandler() wire.Handler {
	m.handlerMu.RLock()
	defer m.handlerMu.RUnlock()
	return m.handler
}

// setStateLocked must be called with mu held.
func (m *Manager) setStateLocked(to State) {
	from := State(m.state.Swap(int32(to)))
	if from == to {
		return
	}
	m.log.Debug("state change", "from", from.String(), "to", to.String())
	if m.opts.OnStateChange != nil {
		m.opts.OnStateChange(from, to)
	}
}

// Connect dials the venue with token as the bearer credential and starts
// the heartbeat and receive loops. A 401 from the venue is a KindAuth
// error wrapping errs.ErrUnauthorized; the caller should get a new token
// and try again.
func (m *Manager) Connect(ctx context.Context, token string) error {
	const op = "channel.connect"

	m.mu.Lock()
	switch m.State() {
	case StateClosed:
		m.mu.Unlock()
		return errs.New(errs.KindConnection, op, errs.ErrClosed)
	case StateConnecting, StateConnected, StateReconnecting:
		m.mu.Unlock()
		return errs.New(errs.KindConnection, op, errs.ErrAlreadyConnected)
	}
	m.setStateLocked(StateConnecting)
	m.token = token
	m.mu.Unlock()

	conn, err := m.dial(ctx, op, token)
	if err != nil {
		m.metrics.recordConnect(ctx, resultOf(err))
		m.mu.Lock()
		if m.State() == StateConnecting {
			m.setStateLocked(StateDisconnected)
		}
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	if m.State() != StateConnecting {
		// Closed while dialing
		m.mu.Unlock()
		_ = conn.CloseNow()
		return errs.New(errs.KindConnection, op, errs.ErrClosed)
	}
	m.attachLocked(conn)
	m.mu.Unlock()

	m.metrics.recordConnect(ctx, "success")
	m.log.Info("connected", "url", m.opts.URL)
	return nil
}

func (m *Manager) dial(ctx context.Context, op, token string) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, m.opts.DialTimeout)
	defer cancel()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.Dial(dialCtx, m.opts.URL, &websocket.DialOptions{
		HTTPHeader: header,
		HTTPClient: m.opts.HTTPClient,
	})
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusUnauthorized {
				return nil, errs.New(errs.KindAuth, op, errs.ErrUnauthorized, errs.WithStatus(resp.StatusCode))
			}
			return nil, errs.New(errs.KindConnection, op, err, errs.WithStatus(resp.StatusCode))
		}
		return nil, errs.New(errs.KindConnection, op, err)
	}

	conn.SetReadLimit(m.opts.ReadLimit)
	return conn, nil
}

// attachLocked installs conn as the live connection and starts its loops.
// Must be called with mu held.
func (m *Manager) attachLocked(conn *websocket.Conn) {
	m.gen++
	gen := m.gen

	connCtx, cancel := context.WithCancel(m.ctx)
	m.conn = conn
	m.connCancel = cancel

	loops := &conc.WaitGroup{}
	loops.Go(func() { m.heartbeatLoop(connCtx, gen) })
	loops.Go(func() { m.receiveLoop(connCtx, conn, gen) })
	m.loops = loops

	m.setStateLocked(StateConnected)
}

// Send writes msg if the channel is connected. It never queues: while
// disconnected it fails with errs.ErrNotConnected and does no I/O.
func (m *Manager) Send(ctx context.Context, msg wire.Outbound) error {
	const op = "channel.send"

	data, err := wire.Encode(msg)
	if err != nil {
		return errs.New(errs.KindSend, op, err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	conn := m.conn
	connected := m.State() == StateConnected
	m.mu.Unlock()

	if !connected || conn == nil {
		return errs.New(errs.KindSend, op, errs.ErrNotConnected)
	}

	writeCtx, cancel := context.WithTimeout(ctx, m.opts.WriteTimeout)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return errs.New(errs.KindSend, op, fmt.Errorf("write %s: %w", msg.Type(), err))
	}
	return nil
}

func (m *Manager) heartbeatLoop(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(m.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Send(ctx, &wire.Heartbeat{}); err != nil {
				if ctx.Err() != nil {
					return
				}
				m.connectionLost(gen, fmt.Errorf("heartbeat: %w", err))
				return
			}
			m.metrics.recordHeartbeat(ctx)
		}
	}
}

func (m *Manager) receiveLoop(ctx context.Context, conn *websocket.Conn, gen uint64) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if status := websocket.CloseStatus(err); status != -1 {
				err = fmt.Errorf("remote closed with status %d: %w", status, err)
			}
			m.connectionLost(gen, fmt.Errorf("read: %w", err))
			return
		}

		if typ != websocket.MessageText {
			m.log.Debug("ignoring binary frame", "bytes", len(data))
			continue
		}

		m.handleFrame(ctx, data)
	}
}

func (m *Manager) handleFrame(ctx context.Context, data []byte) {
	msg, err := wire.Decode(data)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, errs.ErrUnknownMessage) {
			reason = "unknown_type"
		}
		m.metrics.recordProtocolError(ctx, reason)
		m.log.Warn("dropping inbound frame", "err", errs.New(errs.KindProtocol, "channel.receive", err))
		return
	}

	m.metrics.recordMessage(ctx, string(msg.Header().MessageType))

	h := m.currentHandler()
	if h == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.log.Error("message handler panicked", "type", msg.Header().MessageType, "panic", r)
		}
	}()
	if err := wire.Dispatch(h, msg); err != nil {
		m.metrics.recordProtocolError(ctx, "dispatch")
		m.log.Warn("dispatch failed", "err", errs.New(errs.KindProtocol, "channel.receive", err))
	}
}

// connectionLost tears down connection gen and starts reconnecting. Loops
// of a connection that was already replaced or closed are ignored.
func (m *Manager) connectionLost(gen uint64, cause error) {
	m.mu.Lock()
	if gen != m.gen || m.State() != StateConnected {
		m.mu.Unlock()
		return
	}
	conn, loops := m.conn, m.loops
	m.conn = nil
	m.connCancel()
	m.setStateLocked(StateReconnecting)
	m.mu.Unlock()

	_ = conn.CloseNow()
	m.log.Warn("connection lost", "err", cause)

	m.bg.Go(func() {
		loops.Wait()
		m.reconnect()
	})
}

func (m *Manager) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.opts.ReconnectDelay
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	b.MaxInterval = m.opts.MaxReconnectDelay
	b.Reset()
	return b
}

// reconnect re-dials until it succeeds, the manager is closed, or the
// failure is fatal: a 401 the token source cannot fix, a non-retryable
// error, or MaxReconnectAttempts consecutive failures.
func (m *Manager) reconnect() {
	const op = "channel.reconnect"

	b := m.newBackOff()
	refreshed := false
	var lastErr error

	for attempt := 1; ; attempt++ {
		if attempt > m.opts.MaxReconnectAttempts {
			m.fail(errs.New(errs.KindConnection, op,
				fmt.Errorf("%w after %d attempts: %w", errs.ErrMaxReconnects, attempt-1, lastErr)))
			return
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			delay = m.opts.MaxReconnectDelay
		}
		timer := time.NewTimer(delay)
		select {
		case <-m.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		m.mu.Lock()
		if m.State() != StateReconnecting {
			m.mu.Unlock()
			return
		}
		token := m.token
		m.mu.Unlock()

		m.log.Info("reconnecting", "attempt", attempt, "delay", delay)
		conn, err := m.dial(m.ctx, op, token)
		if err == nil {
			m.mu.Lock()
			if m.State() != StateReconnecting {
				m.mu.Unlock()
				_ = conn.CloseNow()
				return
			}
			m.attachLocked(conn)
			m.mu.Unlock()

			m.metrics.recordReconnect(m.ctx, "success")
			m.log.Info("reconnected", "attempt", attempt)

			if m.opts.OnReconnect != nil {
				if err := m.opts.OnReconnect(m.ctx); err != nil {
					m.log.Warn("post-reconnect hook failed", "err", err)
				}
			}
			return
		}

		if m.ctx.Err() != nil {
			return
		}
		lastErr = err
		m.metrics.recordReconnect(m.ctx, resultOf(err))
		m.log.Warn("reconnect failed", "attempt", attempt, "err", err)

		if errors.Is(err, errs.ErrUnauthorized) {
			if refreshed || m.opts.TokenSource == nil {
				m.fail(err)
				return
			}
			refreshed = true

			fresh, rerr := m.opts.TokenSource.Refresh(m.ctx)
			if rerr != nil {
				if m.ctx.Err() == nil && !errs.IsKind(rerr, errs.KindAuth) {
					rerr = errs.New(errs.KindAuth, op, rerr)
				}
				m.fail(rerr)
				return
			}
			m.mu.Lock()
			m.token = fresh
			m.mu.Unlock()
			continue
		}

		if !errs.Retryable(err) {
			m.fail(err)
			return
		}
	}
}

// fail closes the manager because of err and reports it once.
func (m *Manager) fail(err error) {
	m.mu.Lock()
	if m.State() == StateClosed {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateClosed)
	m.mu.Unlock()
	m.cancel()

	m.metrics.recordFatal(context.Background(), string(errs.KindOf(err)))
	m.log.Error("channel closed after unrecoverable error", "err", err)

	select {
	case m.fatal <- err:
	default:
	}
	if m.opts.OnFatal != nil {
		go m.opts.OnFatal(err)
	}
}

// Close shuts the channel down with a normal closure and waits for every
// goroutine it started. It is idempotent.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		conn, loops, connCancel := m.conn, m.loops, m.connCancel
		m.conn = nil
		m.setStateLocked(StateClosed)
		m.mu.Unlock()

		if conn != nil {
			if err := conn.Close(websocket.StatusNormalClosure, "client closing"); err != nil {
				m.log.Debug("close handshake incomplete", "err", err)
			}
		}
		if connCancel != nil {
			connCancel()
		}
		m.cancel()

		if loops != nil {
			loops.Wait()
		}
		m.bg.Wait()
		m.log.Info("channel closed")
	})
	return nil
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, errs.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}
