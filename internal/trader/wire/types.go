package wire

import "strings"

// Type is the messageType discriminator.
type Type string

const (
	TypeLogin       Type = "login"
	TypeHeartbeat   Type = "heartbeat"
	TypeNewOrder    Type = "neworder"
	TypeCancelOrder Type = "cancelorder"
	TypePositions   Type = "positions"
	TypeBalances    Type = "balances"
	TypeOrders      Type = "orders"
	TypeError       Type = "error"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

type OrdType string

const (
	OrdTypeMarket    OrdType = "market"
	OrdTypeLimit     OrdType = "limit"
	OrdTypeStop      OrdType = "stop"
	OrdTypeStopLimit OrdType = "stop_limit"
)

// Valid reports whether t is a known order type.
func (t OrdType) Valid() bool {
	switch t {
	case OrdTypeMarket, OrdTypeLimit, OrdTypeStop, OrdTypeStopLimit:
		return true
	}
	return false
}

// NeedsPrice reports whether the type carries a limit price.
func (t OrdType) NeedsPrice() bool { return t == OrdTypeLimit || t == OrdTypeStopLimit }

// NeedsStopPrice reports whether the type carries a stop trigger.
func (t OrdType) NeedsStopPrice() bool { return t == OrdTypeStop || t == OrdTypeStopLimit }

type TimeInForce string

const (
	TIFDay TimeInForce = "day"
	TIFGTC TimeInForce = "gtc"
	TIFIOC TimeInForce = "ioc"
	TIFFOK TimeInForce = "fok"
)

// Valid reports whether tif is known.
func (tif TimeInForce) Valid() bool {
	switch tif {
	case TIFDay, TIFGTC, TIFIOC, TIFFOK:
		return true
	}
	return false
}

// OrderStatus is the canonical order lifecycle state.
type OrderStatus string

const (
	StatusPendingNew      OrderStatus = "pending_new"
	StatusNew             OrderStatus = "new"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusFilled          OrderStatus = "filled"
	StatusCanceled        OrderStatus = "canceled"
	StatusRejected        OrderStatus = "rejected"
	StatusExpired         OrderStatus = "expired"
	StatusUnknown         OrderStatus = "unknown"
)

// ParseOrderStatus normalises the spellings venues use ("PendingNew",
// "partial-fill", "PARTIALLY_FILLED", "cancelled") onto the canonical set.
// Anything else is StatusUnknown.
func ParseOrderStatus(s string) OrderStatus {
	key := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "pendingnew", "pending":
		return StatusPendingNew
	case "new", "open", "working", "accepted":
		return StatusNew
	case "partiallyfilled", "partialfill", "partial":
		return StatusPartiallyFilled
	case "filled", "fill":
		return StatusFilled
	case "canceled", "cancelled":
		return StatusCanceled
	case "rejected":
		return StatusRejected
	case "expired":
		return StatusExpired
	default:
		return StatusUnknown
	}
}

// UnmarshalText lets decoded messages carry canonical statuses directly.
func (s *OrderStatus) UnmarshalText(b []byte) error {
	*s = ParseOrderStatus(string(b))
	return nil
}

// Open reports whether the order can still trade.
func (s OrderStatus) Open() bool {
	return s == StatusPendingNew || s == StatusNew || s == StatusPartiallyFilled
}

// HasFills reports whether any quantity has executed.
func (s OrderStatus) HasFills() bool {
	return s == StatusFilled || s == StatusPartiallyFilled
}
