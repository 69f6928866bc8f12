package venuesim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/shopspring/decimal"
)

var defaultFillPrice = decimal.NewFromInt(100)

// book is the venue's order and position state. It does no matching.
type book struct {
	mu        sync.Mutex
	orders    map[string]wire.OrderEntry
	positions map[string]wire.PositionEntry
}

func newBook() *book {
	return &book{
		orders:    make(map[string]wire.OrderEntry),
		positions: make(map[string]wire.PositionEntry),
	}
}

func parseNum(n string) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n)
}

func (b *book) accept(m *wire.NewOrder, now time.Time) (wire.OrderEntry, error) {
	qty, err := parseNum(m.OrderQty.String())
	if err != nil || !qty.IsPositive() {
		return wire.OrderEntry{}, errors.New("orderQty must be positive")
	}
	price, err := parseNum(m.Price.String())
	if err != nil {
		return wire.OrderEntry{}, fmt.Errorf("price: %w", err)
	}
	stop, err := parseNum(m.StopPrice.String())
	if err != nil {
		return wire.OrderEntry{}, fmt.Errorf("stopPrice: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, dup := b.orders[m.ClOrdID]; dup {
		return wire.OrderEntry{}, errors.New("duplicate clOrdId")
	}

	e := wire.OrderEntry{
		ClOrdID:      m.ClOrdID,
		OrderID:      fmt.Sprintf("V%06d", len(b.orders)+1),
		Symbol:       m.Symbol,
		Side:         m.Side,
		OrderQty:     qty,
		OrdType:      m.OrdType,
		Price:        price,
		StopPrice:    stop,
		Status:       wire.StatusNew,
		TransactTime: now.UnixMilli(),
	}
	b.orders[e.ClOrdID] = e
	return e, nil
}

func (b *book) cancel(clOrdID string, now time.Time) (wire.OrderEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.orders[clOrdID]
	if !ok || !e.Status.Open() {
		return wire.OrderEntry{}, false
	}
	e.Status = wire.StatusCanceled
	e.TransactTime = now.UnixMilli()
	b.orders[clOrdID] = e
	return e, true
}

// fill executes the whole order and returns the updated order and position.
func (b *book) fill(clOrdID string, now time.Time) (wire.OrderEntry, wire.PositionEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.orders[clOrdID]
	px := e.Price
	if px.IsZero() {
		px = defaultFillPrice
	}
	e.Status = wire.StatusFilled
	e.CumQty = e.OrderQty
	e.AvgPx = px
	e.TransactTime = now.UnixMilli()
	b.orders[clOrdID] = e

	delta := e.OrderQty
	if e.Side == wire.SideSell {
		delta = delta.Neg()
	}

	p := b.positions[e.Symbol]
	p.Symbol = e.Symbol
	newQty := p.Qty.Add(delta)
	switch {
	case newQty.IsZero():
		p.AveragePrice = decimal.Zero
	case p.Qty.IsZero() || p.Qty.Sign() == delta.Sign():
		// Adding to (or opening) a position moves the average
		p.AveragePrice = p.AveragePrice.Mul(p.Qty).Add(px.Mul(delta)).Div(newQty)
	case p.Qty.Sign() != newQty.Sign():
		// Flipped through flat, the remainder opened at px
		p.AveragePrice = px
	}
	p.Qty = newQty
	b.positions[e.Symbol] = p
	return e, p
}
