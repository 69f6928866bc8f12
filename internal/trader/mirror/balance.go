package mirror

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/shopspring/decimal"
)

// Balance is the venue's view of one currency's funds.
type Balance struct {
	Currency      string          `json:"currency"`
	AvailableCash decimal.Decimal `json:"available_cash"`
	BuyingPower   decimal.Decimal `json:"buying_power"`
	MarginUsed    decimal.Decimal `json:"margin_used"`
	Equity        decimal.Decimal `json:"equity"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// BalanceManager mirrors balances keyed by currency code.
type BalanceManager struct {
	mu       sync.RWMutex
	balances map[string]Balance
	now      func() time.Time
}

func NewBalanceManager() *BalanceManager {
	return &BalanceManager{balances: make(map[string]Balance), now: time.Now}
}

// Update applies a balances batch. Currency codes are upper-cased.
func (m *BalanceManager) Update(snapshot bool, entries map[string]wire.BalanceEntry) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if snapshot {
		m.balances = make(map[string]Balance, len(entries))
	}

	for ccy, e := range entries {
		ccy = normCurrency(ccy)
		if ccy == "" {
			continue
		}
		if e.Removed {
			delete(m.balances, ccy)
			continue
		}
		m.balances[ccy] = Balance{
			Currency:      ccy,
			AvailableCash: e.AvailableCash,
			BuyingPower:   e.BuyingPower,
			MarginUsed:    e.MarginUsed,
			Equity:        e.Equity,
			UpdatedAt:     now,
		}
	}
}

// Get returns the balance for currency.
func (m *BalanceManager) Get(currency string) (Balance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.balances[normCurrency(currency)]
	return b, ok
}

// All returns every balance sorted by currency.
func (m *BalanceManager) All() []Balance {
	m.mu.RLock()
	out := make([]Balance, 0, len(m.balances))
	for _, b := range m.balances {
		out = append(out, b)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b Balance) int { return strings.Compare(a.Currency, b.Currency) })
	return out
}

// The accessors below return zero for an unknown currency.

func (m *BalanceManager) AvailableCash(currency string) decimal.Decimal {
	b, _ := m.Get(currency)
	return b.AvailableCash
}

func (m *BalanceManager) BuyingPower(currency string) decimal.Decimal {
	b, _ := m.Get(currency)
	return b.BuyingPower
}

func (m *BalanceManager) MarginUsed(currency string) decimal.Decimal {
	b, _ := m.Get(currency)
	return b.MarginUsed
}

func (m *BalanceManager) Equity(currency string) decimal.Decimal {
	b, _ := m.Get(currency)
	return b.Equity
}

func normCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}
