package wire

import "fmt"

// Handler receives every inbound message kind. Adding a message kind adds
// a method here, so every handler has to decide what to do with it.
type Handler interface {
	OnPositions(*Positions)
	OnBalances(*Balances)
	OnOrders(*Orders)
	OnLoginAck(*LoginAck)
	OnHeartbeat(*HeartbeatEcho)
	OnVenueError(*VenueError)
}

// Dispatch routes msg to the matching Handler method.
func Dispatch(h Handler, msg Inbound) error {
	switch m := msg.(type) {
	case *Positions:
		h.OnPositions(m)
	case *Balances:
		h.OnBalances(m)
	case *Orders:
		h.OnOrders(m)
	case *LoginAck:
		h.OnLoginAck(m)
	case *HeartbeatEcho:
		h.OnHeartbeat(m)
	case *VenueError:
		h.OnVenueError(m)
	default:
		return fmt.Errorf("wire: no dispatch for %T", msg)
	}
	return nil
}

// NopHandler ignores everything. Embed it to implement a subset.
type NopHandler struct{}

func (NopHandler) OnPositions(*Positions)     {}
func (NopHandler) OnBalances(*Balances)       {}
func (NopHandler) OnOrders(*Orders)           {}
func (NopHandler) OnLoginAck(*LoginAck)       {}
func (NopHandler) OnHeartbeat(*HeartbeatEcho) {}
func (NopHandler) OnVenueError(*VenueError)   {}
