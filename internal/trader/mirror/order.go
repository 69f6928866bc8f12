package mirror

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/shopspring/decimal"
)

// Order is the best-known state of one order, keyed by ClOrdID.
type Order struct {
	ClOrdID     string           `json:"cl_ord_id"`
	OrderID     string           `json:"order_id,omitempty"`
	Symbol      string           `json:"symbol"`
	Side        wire.Side        `json:"side"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Type        wire.OrdType     `json:"type,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	StopPrice   *decimal.Decimal `json:"stop_price,omitempty"`
	Status      wire.OrderStatus `json:"status"`
	FilledQty   decimal.Decimal  `json:"filled_qty"`
	AvgFillPx   decimal.Decimal  `json:"avg_fill_px"`
	Text        string           `json:"text,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
	TimeInForce wire.TimeInForce `json:"time_in_force,omitempty"`
}

// OrderFromEntry converts a pushed order record.
func OrderFromEntry(e wire.OrderEntry, now time.Time) Order {
	o := Order{
		ClOrdID:   e.ClOrdID,
		OrderID:   e.OrderID,
		Symbol:    e.Symbol,
		Side:      e.Side,
		Quantity:  e.OrderQty,
		Type:      e.OrdType,
		Status:    e.Status,
		FilledQty: e.CumQty,
		AvgFillPx: e.AvgPx,
		Text:      e.Text,
		UpdatedAt: now,
	}
	if o.Status == "" {
		o.Status = wire.StatusUnknown
	}
	if !e.Price.IsZero() {
		p := e.Price
		o.Price = &p
	}
	if !e.StopPrice.IsZero() {
		sp := e.StopPrice
		o.StopPrice = &sp
	}
	if e.TransactTime > 0 {
		o.UpdatedAt = time.UnixMilli(e.TransactTime).UTC()
	}
	return o
}

// OrderManager mirrors orders keyed by client order id.
type OrderManager struct {
	mu     sync.RWMutex
	orders map[string]Order
	now    func() time.Time
}

func NewOrderManager() *OrderManager {
	return &OrderManager{orders: make(map[string]Order), now: time.Now}
}

// Update applies an orders batch and returns the orders as stored, in
// batch order, for callers that journal them. Removed entries are not
// returned.
func (m *OrderManager) Update(snapshot bool, entries []wire.OrderEntry) []Order {
	now := m.now()
	applied := make([]Order, 0, len(entries))

	m.mu.Lock()
	defer m.mu.Unlock()

	if snapshot {
		m.orders = make(map[string]Order, len(entries))
	}

	for _, e := range entries {
		id := strings.TrimSpace(e.ClOrdID)
		if id == "" {
			continue
		}
		e.ClOrdID = id
		if e.Removed {
			delete(m.orders, id)
			continue
		}

		// The pushed record replaces the stored one whole. Time in force is
		// never on the wire, so it stays as Track recorded it.
		o := OrderFromEntry(e, now)
		if prev, ok := m.orders[id]; ok {
			o.TimeInForce = prev.TimeInForce
		}
		m.orders[id] = o
		applied = append(applied, o)
	}
	return applied
}

// Track records a locally placed order before the venue has seen it.
// An existing record keeps the venue's status and fields.
func (m *OrderManager) Track(o Order) {
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = m.now()
	}
	if o.Status == "" {
		o.Status = wire.StatusPendingNew
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.orders[o.ClOrdID]
	if !ok {
		m.orders[o.ClOrdID] = o
		return
	}
	// The venue answered first; only fill what its updates never carry
	if cur.TimeInForce == "" {
		cur.TimeInForce = o.TimeInForce
		m.orders[o.ClOrdID] = cur
	}
}

// Get returns the order for clOrdID.
func (m *OrderManager) Get(clOrdID string) (Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[clOrdID]
	return o, ok
}

// All returns every order sorted by ClOrdID.
func (m *OrderManager) All() []Order {
	return m.filter(func(Order) bool { return true })
}

// OpenOrders are pending_new, new or partially_filled.
func (m *OrderManager) OpenOrders() []Order {
	return m.filter(func(o Order) bool { return o.Status.Open() })
}

// FilledOrders are filled or partially_filled.
func (m *OrderManager) FilledOrders() []Order {
	return m.filter(func(o Order) bool { return o.Status.HasFills() })
}

func (m *OrderManager) filter(keep func(Order) bool) []Order {
	m.mu.RLock()
	out := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	m.mu.RUnlock()

	// ULIDs sort by creation time
	slices.SortFunc(out, func(a, b Order) int { return strings.Compare(a.ClOrdID, b.ClOrdID) })
	return out
}
