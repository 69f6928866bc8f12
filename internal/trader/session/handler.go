package session

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
)

// The methods below run on the channel's receive goroutine.

func (c *Client) OnPositions(m *wire.Positions) {
	c.positions.Update(m.Snapshot, m.Positions)
	c.log.Debug("positions updated", "entries", len(m.Positions), "snapshot", m.Snapshot)
}

func (c *Client) OnBalances(m *wire.Balances) {
	c.balances.Update(m.Replace(), m.Balances)
	c.log.Debug("balances updated", "entries", len(m.Balances), "snapshot", m.Replace())
}

func (c *Client) OnOrders(m *wire.Orders) {
	applied := c.orders.Update(m.Snapshot, m.Orders)
	c.log.Debug("orders updated", "entries", len(m.Orders), "snapshot", m.Snapshot)

	if c.journal == nil || len(applied) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	for _, o := range applied {
		if err := c.journal.RecordUpdate(ctx, o); err != nil {
			c.log.Error("journal order update failed", "cl_ord_id", o.ClOrdID, "err", err)
		}
	}
}

func (c *Client) OnLoginAck(m *wire.LoginAck) {
	if m.OK() {
		c.loggedIn.Store(true)
		c.log.Info("venue login accepted", "account", c.cfg.Account)
		return
	}
	c.loggedIn.Store(false)
	c.log.Error("venue login rejected", "status", m.Status, "text", m.Text)
}

func (c *Client) OnHeartbeat(*wire.HeartbeatEcho) {
	c.lastHeartbeat.Store(time.Now().UnixNano())
}

func (c *Client) OnVenueError(m *wire.VenueError) {
	c.metrics.recordVenueError(context.Background(), m.Code)
	c.log.Warn("venue error", "code", m.Code, "text", m.Text, "req_id", m.ReqID)
}
