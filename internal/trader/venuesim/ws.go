package venuesim

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/aussiebroadwan/tradelink/pkg/httpx"
	"github.com/coder/websocket"
	"github.com/goccy/go-json"
)

// Frame is one message the venue received from a client.
type Frame struct {
	Type  wire.Type
	ReqID string
	Raw   []byte
	At    time.Time
}

type conn struct {
	ws       *websocket.Conn
	writeMu  sync.Mutex
	loggedIn bool
}

func (c *conn) write(ctx context.Context, b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageText, b)
}

func (c *conn) send(ctx context.Context, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.write(ctx, b)
}

func (v *Venue) handleWS(w http.ResponseWriter, r *http.Request) {
	switch {
	case takeOne(&v.rejectUpgrade) || !v.verifyBearer(r):
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "bearer token rejected")
		return
	case takeOne(&v.failUpgrade):
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "venue is not accepting connections")
		return
	}

	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		v.log.Warn("websocket accept failed", "err", err)
		return
	}
	c := &conn{ws: ws}

	v.mu.Lock()
	v.conns[c] = struct{}{}
	v.mu.Unlock()
	v.upgrades.Add(1)

	defer func() {
		v.mu.Lock()
		delete(v.conns, c)
		v.mu.Unlock()
		_ = ws.CloseNow()
	}()

	ctx := r.Context()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				v.log.Debug("client read ended", "err", err)
			}
			return
		}
		v.handleFrame(ctx, c, data)
	}
}

func (v *Venue) handleFrame(ctx context.Context, c *conn, data []byte) {
	var env wire.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		_ = c.send(ctx, venueError("", "malformed", err.Error()))
		return
	}

	v.mu.Lock()
	v.received = append(v.received, Frame{Type: env.MessageType, ReqID: env.ReqID, Raw: append([]byte(nil), data...), At: time.Now()})
	v.mu.Unlock()

	var err error
	switch env.MessageType {
	case wire.TypeHeartbeat:
		err = c.send(ctx, &wire.HeartbeatEcho{Envelope: wire.Envelope{MessageType: wire.TypeHeartbeat, ReqID: env.ReqID}})

	case wire.TypeLogin:
		var m wire.Login
		if err = json.Unmarshal(data, &m); err != nil {
			break
		}
		ack := &wire.LoginAck{Envelope: wire.Envelope{MessageType: wire.TypeLogin, ReqID: env.ReqID}, Status: "ok"}
		if !eq(m.APIKey, v.cfg.APIKey) || !eq(m.APISecret, v.cfg.APISecret) {
			ack.Status, ack.Text = "rejected", "bad api credentials"
		}
		c.loggedIn = ack.OK()
		if c.loggedIn && len(v.cfg.OpeningBalances) > 0 {
			if err = c.send(ctx, Balances(true, v.cfg.OpeningBalances)); err != nil {
				break
			}
		}
		err = c.send(ctx, ack)

	case wire.TypeNewOrder:
		var m wire.NewOrder
		if err = json.Unmarshal(data, &m); err != nil {
			break
		}
		if !c.loggedIn {
			err = c.send(ctx, venueError(env.ReqID, "not_logged_in", "login first"))
			break
		}
		err = v.placeOrder(ctx, c, env.ReqID, &m)

	case wire.TypeCancelOrder:
		var m wire.CancelOrder
		if err = json.Unmarshal(data, &m); err != nil {
			break
		}
		entry, ok := v.book.cancel(m.ClOrdID, time.Now())
		if !ok {
			err = c.send(ctx, venueError(env.ReqID, "unknown_order", "no open order "+m.ClOrdID))
			break
		}
		err = c.send(ctx, Orders(false, entry))

	default:
		err = c.send(ctx, venueError(env.ReqID, "unknown_message", string(env.MessageType)))
	}

	if err != nil {
		v.log.Debug("frame handling failed", "type", env.MessageType, "err", err)
	}
}

func (v *Venue) placeOrder(ctx context.Context, c *conn, reqID string, m *wire.NewOrder) error {
	now := time.Now()
	entry, err := v.book.accept(m, now)
	if err != nil {
		return c.send(ctx, venueError(reqID, "rejected", err.Error()))
	}
	if err := c.send(ctx, Orders(false, entry)); err != nil {
		return err
	}
	if !v.cfg.AutoFill {
		return nil
	}

	filled, pos := v.book.fill(entry.ClOrdID, now)
	if err := c.send(ctx, Orders(false, filled)); err != nil {
		return err
	}
	return c.send(ctx, Positions(false, pos))
}

func venueError(reqID, code, text string) *wire.VenueError {
	return &wire.VenueError{Envelope: wire.Envelope{MessageType: wire.TypeError, ReqID: reqID}, Code: code, Text: text}
}

// Push sends msg to every connected client. msg must carry its
// messageType; the constructors in this package set it.
func (v *Venue) Push(ctx context.Context, msg wire.Inbound) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return v.PushRaw(ctx, b)
}

// PushRaw sends a frame verbatim to every connected client.
func (v *Venue) PushRaw(ctx context.Context, frame []byte) error {
	v.mu.Lock()
	conns := make([]*conn, 0, len(v.conns))
	for c := range v.conns {
		conns = append(conns, c)
	}
	v.mu.Unlock()

	if len(conns) == 0 {
		return errors.New("venuesim: no connected clients")
	}

	var errs []error
	for _, c := range conns {
		errs = append(errs, c.write(ctx, frame))
	}
	return errors.Join(errs...)
}

// Connections reports how many clients are connected right now.
func (v *Venue) Connections() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.conns)
}

// WaitUpgrades blocks until at least n connections have been accepted in
// total.
func (v *Venue) WaitUpgrades(ctx context.Context, n int) error {
	t := time.NewTicker(5 * time.Millisecond)
	defer t.Stop()
	for v.Upgrades() < n {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// Received returns a copy of every frame received so far.
func (v *Venue) Received() []Frame {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Frame(nil), v.received...)
}

// ReceivedOfType filters Received by message type.
func (v *Venue) ReceivedOfType(t wire.Type) []Frame {
	var out []Frame
	for _, f := range v.Received() {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

// Positions builds a positions push.
func Positions(snapshot bool, entries ...wire.PositionEntry) *wire.Positions {
	return &wire.Positions{Envelope: wire.Envelope{MessageType: wire.TypePositions}, Snapshot: snapshot, Positions: entries}
}

// Balances builds a balances push. The snapshot flag is always written.
func Balances(snapshot bool, entries map[string]wire.BalanceEntry) *wire.Balances {
	return &wire.Balances{Envelope: wire.Envelope{MessageType: wire.TypeBalances}, Snapshot: &snapshot, Balances: entries}
}

// Orders builds an orders push.
func Orders(snapshot bool, entries ...wire.OrderEntry) *wire.Orders {
	return &wire.Orders{Envelope: wire.Envelope{MessageType: wire.TypeOrders}, Snapshot: snapshot, Orders: entries}
}
