package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/shopspring/decimal"
)

var ErrInvalidOrder = errors.New("invalid order")

// OrderRequest is what a caller asks the session to place. Zero Price and
// StopPrice mean "not set". Empty TimeInForce and ExDestination take the
// session defaults.
type OrderRequest struct {
	Symbol        string
	Side          wire.Side
	Quantity      decimal.Decimal
	Type          wire.OrdType
	Price         decimal.Decimal
	StopPrice     decimal.Decimal
	TimeInForce   wire.TimeInForce
	ExDestination string
}

// Validate checks the request before anything is sent.
func (r OrderRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Symbol) == "":
		return fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	case !r.Side.Valid():
		return fmt.Errorf("%w: side %q", ErrInvalidOrder, r.Side)
	case !r.Quantity.IsPositive():
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	case !r.Type.Valid():
		return fmt.Errorf("%w: order type %q", ErrInvalidOrder, r.Type)
	case r.TimeInForce != "" && !r.TimeInForce.Valid():
		return fmt.Errorf("%w: time in force %q", ErrInvalidOrder, r.TimeInForce)
	case r.Price.IsNegative() || r.StopPrice.IsNegative():
		return fmt.Errorf("%w: prices cannot be negative", ErrInvalidOrder)
	}

	if r.Type.NeedsPrice() && r.Price.IsZero() {
		return fmt.Errorf("%w: %s order needs a price", ErrInvalidOrder, r.Type)
	}
	if !r.Type.NeedsPrice() && !r.Price.IsZero() {
		return fmt.Errorf("%w: %s order takes no price", ErrInvalidOrder, r.Type)
	}
	if r.Type.NeedsStopPrice() && r.StopPrice.IsZero() {
		return fmt.Errorf("%w: %s order needs a stop price", ErrInvalidOrder, r.Type)
	}
	if !r.Type.NeedsStopPrice() && !r.StopPrice.IsZero() {
		return fmt.Errorf("%w: %s order takes no stop price", ErrInvalidOrder, r.Type)
	}
	return nil
}
