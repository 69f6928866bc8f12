package mirror

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/shopspring/decimal"
)

// Position is the venue's view of one holding.
type Position struct {
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// PositionManager mirrors positions keyed by symbol.
type PositionManager struct {
	mu        sync.RWMutex
	positions map[string]Position
	now       func() time.Time
}

func NewPositionManager() *PositionManager {
	return &PositionManager{positions: make(map[string]Position), now: time.Now}
}

// Update applies a positions batch.
func (m *PositionManager) Update(snapshot bool, entries []wire.PositionEntry) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if snapshot {
		m.positions = make(map[string]Position, len(entries))
	}

	for _, e := range entries {
		sym := strings.TrimSpace(e.Symbol)
		if sym == "" {
			continue
		}
		if e.Removed {
			delete(m.positions, sym)
			continue
		}
		m.positions[sym] = Position{
			Symbol:       sym,
			Quantity:     e.Qty,
			AveragePrice: e.AveragePrice,
			UpdatedAt:    now,
		}
	}
}

// Get returns the position for symbol.
func (m *PositionManager) Get(symbol string) (Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[symbol]
	return p, ok
}

// All returns every position sorted by symbol.
func (m *PositionManager) All() []Position {
	m.mu.RLock()
	out := make([]Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b Position) int { return strings.Compare(a.Symbol, b.Symbol) })
	return out
}

// Value is quantity * price; zero for an unknown symbol.
func (m *PositionManager) Value(symbol string, price decimal.Decimal) decimal.Decimal {
	p, _ := m.Get(symbol)
	return p.Quantity.Mul(price)
}

// PnL is (price - average) * quantity, and zero for a flat or unknown
// position whatever the price.
func (m *PositionManager) PnL(symbol string, price decimal.Decimal) decimal.Decimal {
	p, ok := m.Get(symbol)
	if !ok || p.Quantity.IsZero() {
		return decimal.Zero
	}
	return price.Sub(p.AveragePrice).Mul(p.Quantity)
}

// Len reports how many symbols are held.
func (m *PositionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.positions)
}
