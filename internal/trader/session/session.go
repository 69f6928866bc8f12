// Package session composes the token authority and the channel into a
// trading session: venue login, order entry and the state mirrors fed by
// the venue's pushes.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/auth"
	"github.com/aussiebroadwan/tradelink/internal/trader/channel"
	"github.com/aussiebroadwan/tradelink/internal/trader/errs"
	"github.com/aussiebroadwan/tradelink/internal/trader/journal"
	"github.com/aussiebroadwan/tradelink/internal/trader/mirror"
	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/aussiebroadwan/tradelink/pkg/idx"
	"github.com/aussiebroadwan/tradelink/pkg/slogx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

const (
	DefaultOrdersPerSecond = 10
	DefaultOrderBurst      = 5
	journalTimeout         = 2 * time.Second
)

type Config struct {
	APIKey    string
	APISecret string
	Account   string

	ExDestination      string
	DefaultTimeInForce wire.TimeInForce

	// Outbound order and cancel pacing.
	OrdersPerSecond float64
	OrderBurst      int

	Channel channel.Options
}

type Options struct {
	Logger  *slog.Logger
	Journal *journal.Store
	Meter   metric.Meter
	IDs     *idx.Source
}

// Client is one trading session. It is safe for concurrent use.
type Client struct {
	cfg     Config
	auth    *auth.Authority
	ch      *channel.Manager
	log     *slog.Logger
	journal *journal.Store
	ids     *idx.Source
	limiter *rate.Limiter
	metrics *sessionMetrics

	positions *mirror.PositionManager
	orders    *mirror.OrderManager
	balances  *mirror.BalanceManager

	loggedIn      atomic.Bool
	lastHeartbeat atomic.Int64 // unix nanos of the last echo
}

func New(cfg Config, authority *auth.Authority, opts Options) *Client {
	if cfg.DefaultTimeInForce == "" {
		cfg.DefaultTimeInForce = wire.TIFDay
	}
	if cfg.OrdersPerSecond <= 0 {
		cfg.OrdersPerSecond = DefaultOrdersPerSecond
	}
	if cfg.OrderBurst <= 0 {
		cfg.OrderBurst = DefaultOrderBurst
	}
	if opts.IDs == nil {
		opts.IDs = idx.NewSource(nil)
	}

	c := &Client{
		cfg:       cfg,
		auth:      authority,
		log:       slogx.Component(opts.Logger, "session"),
		journal:   opts.Journal,
		ids:       opts.IDs,
		limiter:   rate.NewLimiter(rate.Limit(cfg.OrdersPerSecond), cfg.OrderBurst),
		metrics:   newSessionMetrics(opts.Meter),
		positions: mirror.NewPositionManager(),
		orders:    mirror.NewOrderManager(),
		balances:  mirror.NewBalanceManager(),
	}

	chOpts := cfg.Channel
	if chOpts.Logger == nil {
		chOpts.Logger = opts.Logger
	}
	if chOpts.Meter == nil {
		chOpts.Meter = opts.Meter
	}
	if chOpts.TokenSource == nil && authority != nil {
		chOpts.TokenSource = authority
	}
	chOpts.OnReconnect = c.login
	onState := chOpts.OnStateChange
	chOpts.OnStateChange = func(from, to channel.State) {
		if to != channel.StateConnected {
			c.loggedIn.Store(false)
		}
		if onState != nil {
			onState(from, to)
		}
	}

	c.ch = channel.NewManager(chOpts)
	c.ch.RegisterHandler(c)
	return c
}

// Connect obtains a token, opens the channel and sends the venue login.
// A 401 at connect gets one fresh token and one more try; auth failures
// beyond that are returned as they are.
func (c *Client) Connect(ctx context.Context) error {
	tok, err := c.auth.Token(ctx)
	if err != nil {
		return err
	}

	err = c.ch.Connect(ctx, tok.Raw)
	if errors.Is(err, errs.ErrUnauthorized) {
		c.log.Info("venue rejected token at connect, acquiring a new one", "fingerprint", tok.Fingerprint())
		c.auth.Invalidate()
		if tok, err = c.auth.Acquire(ctx); err != nil {
			return err
		}
		err = c.ch.Connect(ctx, tok.Raw)
	}
	if err != nil {
		return err
	}

	return c.login(ctx)
}

func (c *Client) login(ctx context.Context) error {
	c.loggedIn.Store(false)
	return c.ch.Send(ctx, &wire.Login{
		APIKey:    c.cfg.APIKey,
		APISecret: c.cfg.APISecret,
		Account:   c.cfg.Account,
	})
}

// PlaceOrder validates req, sends it and records it as pending_new. It
// returns the generated client order id without waiting for the venue.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (idx.ID, error) {
	const op = "session.place_order"

	req.Symbol = strings.TrimSpace(req.Symbol)
	if err := req.Validate(); err != nil {
		return idx.Zero, errs.New(errs.KindValidation, op, err)
	}
	if req.TimeInForce == "" {
		req.TimeInForce = c.cfg.DefaultTimeInForce
	}
	if req.ExDestination == "" {
		req.ExDestination = c.cfg.ExDestination
	}

	if c.ch.State() != channel.StateConnected {
		return idx.Zero, errs.New(errs.KindSend, op, errs.ErrNotConnected)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return idx.Zero, errs.New(errs.KindSend, op, err)
	}

	id := c.ids.Next()
	err := c.ch.Send(ctx, &wire.NewOrder{
		ClOrdID:       id.String(),
		Symbol:        req.Symbol,
		Side:          req.Side,
		OrderQty:      wire.Num(req.Quantity),
		OrdType:       req.Type,
		ExDestination: req.ExDestination,
		TimeInForce:   req.TimeInForce,
		Price:         wire.OptNum(req.Price),
		StopPrice:     wire.OptNum(req.StopPrice),
	})
	if err != nil {
		c.metrics.recordOrder(ctx, "send_failed")
		return idx.Zero, err
	}
	c.metrics.recordOrder(ctx, "sent")

	o := mirror.Order{
		ClOrdID:     id.String(),
		Symbol:      req.Symbol,
		Side:        req.Side,
		Quantity:    req.Quantity,
		Type:        req.Type,
		TimeInForce: req.TimeInForce,
		Status:      wire.StatusPendingNew,
		UpdatedAt:   id.Time(),
	}
	if !req.Price.IsZero() {
		p := req.Price
		o.Price = &p
	}
	if !req.StopPrice.IsZero() {
		sp := req.StopPrice
		o.StopPrice = &sp
	}
	c.orders.Track(o)

	if c.journal != nil {
		jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
		if err := c.journal.RecordPlaced(jctx, o); err != nil {
			c.log.Error("journal placed order failed", "cl_ord_id", o.ClOrdID, "err", err)
		}
		cancel()
	}

	c.log.Info("order sent",
		"cl_ord_id", o.ClOrdID,
		"symbol", o.Symbol,
		"side", o.Side,
		"qty", o.Quantity.String(),
		"type", o.Type,
	)
	return id, nil
}

// CancelOrder asks the venue to cancel; the outcome arrives as an order
// update.
func (c *Client) CancelOrder(ctx context.Context, clOrdID string) error {
	const op = "session.cancel_order"

	clOrdID = strings.TrimSpace(clOrdID)
	if clOrdID == "" {
		return errs.New(errs.KindValidation, op, errors.New("client order id is required"))
	}
	if c.ch.State() != channel.StateConnected {
		return errs.New(errs.KindSend, op, errs.ErrNotConnected)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return errs.New(errs.KindSend, op, err)
	}

	if err := c.ch.Send(ctx, &wire.CancelOrder{ClOrdID: clOrdID}); err != nil {
		return err
	}
	c.metrics.recordCancel(ctx)
	return nil
}

// Close closes the channel, then the journal.
func (c *Client) Close() error {
	err := c.ch.Close()
	if c.journal != nil {
		err = errors.Join(err, c.journal.Close())
	}
	return err
}

// Fatal delivers the error that ended the session's channel.
func (c *Client) Fatal() <-chan error { return c.ch.Fatal() }

func (c *Client) State() channel.State { return c.ch.State() }

// LoggedIn reports whether the venue acknowledged the login on the
// current connection.
func (c *Client) LoggedIn() bool { return c.loggedIn.Load() }

// LastHeartbeat is when the venue last echoed a heartbeat.
func (c *Client) LastHeartbeat() time.Time {
	n := c.lastHeartbeat.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (c *Client) GetPosition(symbol string) (mirror.Position, bool) { return c.positions.Get(symbol) }
func (c *Client) GetAllPositions() []mirror.Position               { return c.positions.All() }
func (c *Client) GetBalance(currency string) (mirror.Balance, bool) { return c.balances.Get(currency) }
func (c *Client) GetAllBalances() []mirror.Balance                 { return c.balances.All() }
func (c *Client) GetOrder(clOrdID string) (mirror.Order, bool)     { return c.orders.Get(clOrdID) }
func (c *Client) GetOpenOrders() []mirror.Order                    { return c.orders.OpenOrders() }
func (c *Client) GetFilledOrders() []mirror.Order                  { return c.orders.FilledOrders() }
func (c *Client) GetAllOrders() []mirror.Order                     { return c.orders.All() }

// PositionValue is quantity times price for symbol.
func (c *Client) PositionValue(symbol string, price decimal.Decimal) decimal.Decimal {
	return c.positions.Value(symbol, price)
}

// PositionPnL is the unrealised profit of symbol at price.
func (c *Client) PositionPnL(symbol string, price decimal.Decimal) decimal.Decimal {
	return c.positions.PnL(symbol, price)
}

func (c *Client) AvailableCash(currency string) decimal.Decimal { return c.balances.AvailableCash(currency) }
func (c *Client) BuyingPower(currency string) decimal.Decimal   { return c.balances.BuyingPower(currency) }
func (c *Client) MarginUsed(currency string) decimal.Decimal    { return c.balances.MarginUsed(currency) }
func (c *Client) Equity(currency string) decimal.Decimal        { return c.balances.Equity(currency) }
