package http

import (
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/journal"
	"github.com/aussiebroadwan/tradelink/internal/trader/mirror"
	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/shopspring/decimal"
)

// Decimals are rendered as JSON strings so no precision is lost.

type PositionResponse struct {
	Symbol       string          `json:"symbol" example:"AAPL"`
	Quantity     decimal.Decimal `json:"quantity" swaggertype:"string" example:"100"`
	AveragePrice decimal.Decimal `json:"average_price" swaggertype:"string" example:"150.25"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type ListPositionsResponse struct {
	Positions []PositionResponse `json:"positions"`
}

type BalanceResponse struct {
	Currency      string          `json:"currency" example:"USD"`
	AvailableCash decimal.Decimal `json:"available_cash" swaggertype:"string" example:"50000"`
	BuyingPower   decimal.Decimal `json:"buying_power" swaggertype:"string" example:"100000"`
	MarginUsed    decimal.Decimal `json:"margin_used" swaggertype:"string" example:"0"`
	Equity        decimal.Decimal `json:"equity" swaggertype:"string" example:"75000"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type ListBalancesResponse struct {
	Balances []BalanceResponse `json:"balances"`
}

type OrderResponse struct {
	ClOrdID     string           `json:"cl_ord_id" example:"01JAB3Q9S1T2V3W4X5Y6Z7A8B9"`
	OrderID     string           `json:"order_id,omitempty" example:"V000001"`
	Symbol      string           `json:"symbol" example:"AAPL"`
	Side        wire.Side        `json:"side" swaggertype:"string" enums:"buy,sell"`
	Quantity    decimal.Decimal  `json:"quantity" swaggertype:"string" example:"100"`
	Type        wire.OrdType     `json:"type,omitempty" swaggertype:"string" enums:"market,limit,stop,stop_limit"`
	Price       *decimal.Decimal `json:"price,omitempty" swaggertype:"string" example:"150"`
	StopPrice   *decimal.Decimal `json:"stop_price,omitempty" swaggertype:"string"`
	TimeInForce wire.TimeInForce `json:"time_in_force,omitempty" swaggertype:"string" enums:"day,gtc,ioc,fok"`
	Status      wire.OrderStatus `json:"status" swaggertype:"string" example:"partially_filled"`
	FilledQty   decimal.Decimal  `json:"filled_qty" swaggertype:"string" example:"40"`
	AvgFillPx   decimal.Decimal  `json:"avg_fill_px" swaggertype:"string" example:"149.9"`
	Text        string           `json:"text,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`

	// Events is the journaled status history, only on single-order lookups.
	Events []OrderEventResponse `json:"events,omitempty"`
}

type OrderEventResponse struct {
	Status     wire.OrderStatus `json:"status" swaggertype:"string" example:"filled"`
	FilledQty  decimal.Decimal  `json:"filled_qty" swaggertype:"string" example:"100"`
	AvgFillPx  decimal.Decimal  `json:"avg_fill_px" swaggertype:"string" example:"150"`
	Text       string           `json:"text,omitempty"`
	RecordedAt time.Time        `json:"recorded_at"`
}

type ListOrdersResponse struct {
	Orders []OrderResponse `json:"orders"`
}

func positionResponse(p mirror.Position) PositionResponse {
	return PositionResponse{
		Symbol:       p.Symbol,
		Quantity:     p.Quantity,
		AveragePrice: p.AveragePrice,
		UpdatedAt:    p.UpdatedAt,
	}
}

func balanceResponse(b mirror.Balance) BalanceResponse {
	return BalanceResponse{
		Currency:      b.Currency,
		AvailableCash: b.AvailableCash,
		BuyingPower:   b.BuyingPower,
		MarginUsed:    b.MarginUsed,
		Equity:        b.Equity,
		UpdatedAt:     b.UpdatedAt,
	}
}

func orderResponse(o mirror.Order) OrderResponse {
	return OrderResponse{
		ClOrdID:     o.ClOrdID,
		OrderID:     o.OrderID,
		Symbol:      o.Symbol,
		Side:        o.Side,
		Quantity:    o.Quantity,
		Type:        o.Type,
		Price:       o.Price,
		StopPrice:   o.StopPrice,
		TimeInForce: o.TimeInForce,
		Status:      o.Status,
		FilledQty:   o.FilledQty,
		AvgFillPx:   o.AvgFillPx,
		Text:        o.Text,
		UpdatedAt:   o.UpdatedAt,
	}
}

func orderEventResponse(e journal.Event) OrderEventResponse {
	return OrderEventResponse{
		Status:     e.Status,
		FilledQty:  e.FilledQty,
		AvgFillPx:  e.AvgFillPx,
		Text:       e.Text,
		RecordedAt: e.RecordedAt,
	}
}
