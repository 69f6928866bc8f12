package wire

import (
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Envelope is the header every frame carries.
type Envelope struct {
	MessageType Type   `json:"messageType"`
	ReqID       string `json:"reqId,omitempty"`
}

func (e *Envelope) header() *Envelope { return e }

// Outbound is a message the client sends. The set is closed.
type Outbound interface {
	Type() Type
	header() *Envelope
	outbound()
}

// Login authenticates the session on the channel after connect.
type Login struct {
	Envelope
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
	Account   string `json:"account"`
}

// Heartbeat is the liveness ping.
type Heartbeat struct {
	Envelope
}

// NewOrder places an order. Quantities and prices go out as JSON numbers.
type NewOrder struct {
	Envelope
	ClOrdID       string      `json:"clOrdId"`
	Symbol        string      `json:"symbol"`
	Side          Side        `json:"side"`
	OrderQty      json.Number `json:"orderQty"`
	OrdType       OrdType     `json:"ordType"`
	ExDestination string      `json:"exDestination"`
	TimeInForce   TimeInForce `json:"timeInForce"`
	Price         json.Number `json:"price,omitempty"`
	StopPrice     json.Number `json:"stopPrice,omitempty"`
}

// CancelOrder cancels by client order id.
type CancelOrder struct {
	Envelope
	ClOrdID string `json:"clOrdId"`
}

func (*Login) Type() Type       { return TypeLogin }
func (*Heartbeat) Type() Type   { return TypeHeartbeat }
func (*NewOrder) Type() Type    { return TypeNewOrder }
func (*CancelOrder) Type() Type { return TypeCancelOrder }

func (*Login) outbound()       {}
func (*Heartbeat) outbound()   {}
func (*NewOrder) outbound()    {}
func (*CancelOrder) outbound() {}

// Num renders d as a JSON number.
func Num(d decimal.Decimal) json.Number { return json.Number(d.String()) }

// OptNum is Num for optional fields: the zero value is omitted.
func OptNum(d decimal.Decimal) json.Number {
	if d.IsZero() {
		return ""
	}
	return Num(d)
}

// Inbound is a message the venue pushes. The set is closed.
type Inbound interface {
	Header() Envelope
	inbound()
}

// Positions carries position updates keyed by symbol.
type Positions struct {
	Envelope
	Snapshot  bool            `json:"snapshot,omitempty"`
	Positions []PositionEntry `json:"positions"`
}

type PositionEntry struct {
	Symbol       string          `json:"symbol"`
	Qty          decimal.Decimal `json:"qty"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	Removed      bool            `json:"removed,omitempty"`
}

// Balances carries balances keyed by currency. Venues have historically
// sent the whole account on every push, so a message without a snapshot
// field replaces every balance. Partial updates say "snapshot": false.
type Balances struct {
	Envelope
	Snapshot *bool                   `json:"snapshot,omitempty"`
	Balances map[string]BalanceEntry `json:"balances"`
}

// Replace reports whether the batch replaces every stored balance.
func (m *Balances) Replace() bool { return m.Snapshot == nil || *m.Snapshot }

type BalanceEntry struct {
	AvailableCash decimal.Decimal `json:"availableCash"`
	BuyingPower   decimal.Decimal `json:"buyingPower"`
	MarginUsed    decimal.Decimal `json:"marginUsed"`
	Equity        decimal.Decimal `json:"equity"`
	Removed       bool            `json:"removed,omitempty"`
}

// Orders carries order status updates keyed by clOrdId.
type Orders struct {
	Envelope
	Snapshot bool         `json:"snapshot,omitempty"`
	Orders   []OrderEntry `json:"orders"`
}

type OrderEntry struct {
	ClOrdID      string          `json:"clOrdId"`
	OrderID      string          `json:"orderId,omitempty"`
	Symbol       string          `json:"symbol"`
	Side         Side            `json:"side"`
	OrderQty     decimal.Decimal `json:"orderQty"`
	OrdType      OrdType         `json:"ordType,omitempty"`
	Price        decimal.Decimal `json:"price"`
	StopPrice    decimal.Decimal `json:"stopPrice"`
	Status       OrderStatus     `json:"status"`
	CumQty       decimal.Decimal `json:"cumQty"`
	AvgPx        decimal.Decimal `json:"avgPx"`
	Text         string          `json:"text,omitempty"`
	TransactTime int64           `json:"transactTime,omitempty"` // unix millis
	Removed      bool            `json:"removed,omitempty"`
}

// LoginAck answers Login. Status is "ok" on success.
type LoginAck struct {
	Envelope
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
}

// OK reports whether the venue accepted the login.
func (l *LoginAck) OK() bool { return l.Status == "ok" || l.Status == "success" }

// HeartbeatEcho is the venue's reply to Heartbeat.
type HeartbeatEcho struct {
	Envelope
}

// VenueError reports a rejected request, correlated by ReqID.
type VenueError struct {
	Envelope
	Code string `json:"code"`
	Text string `json:"text"`
}

func (m *Positions) Header() Envelope     { return m.Envelope }
func (m *Balances) Header() Envelope      { return m.Envelope }
func (m *Orders) Header() Envelope        { return m.Envelope }
func (m *LoginAck) Header() Envelope      { return m.Envelope }
func (m *HeartbeatEcho) Header() Envelope { return m.Envelope }
func (m *VenueError) Header() Envelope    { return m.Envelope }

func (*Positions) inbound()     {}
func (*Balances) inbound()      {}
func (*Orders) inbound()        {}
func (*LoginAck) inbound()      {}
func (*HeartbeatEcho) inbound() {}
func (*VenueError) inbound()    {}
