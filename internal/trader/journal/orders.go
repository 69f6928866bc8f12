package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/mirror"
	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/shopspring/decimal"
)

// Entry is the journaled state of one order.
type Entry struct {
	mirror.Order
	PlacedAt *time.Time
}

// Event is one recorded status change.
type Event struct {
	ID         int64
	ClOrdID    string
	Status     wire.OrderStatus
	FilledQty  decimal.Decimal
	AvgFillPx  decimal.Decimal
	Text       string
	RecordedAt time.Time
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(nd decimal.NullDecimal) *decimal.Decimal {
	if !nd.Valid {
		return nil
	}
	d := nd.Decimal
	return &d
}

const insertEvent = `
INSERT INTO order_events (cl_ord_id, status, filled_qty, avg_fill_px, text, recorded_at)
VALUES (?, ?, ?, ?, ?, ?)`

// RecordPlaced stores an order the session just sent. When the venue's
// first update was journaled before this call, the existing row gains the
// placement details and keeps the venue's status history. Placing the same
// clOrdId twice is an error.
func (s *Store) RecordPlaced(ctx context.Context, o mirror.Order) error {
	now := o.UpdatedAt.UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE orders SET
    placed_at     = ?,
    time_in_force = ?,
    ord_type      = CASE WHEN ord_type = '' THEN ? ELSE ord_type END,
    price         = COALESCE(price, ?),
    stop_price    = COALESCE(stop_price, ?)
WHERE cl_ord_id = ? AND placed_at IS NULL`,
			now, string(o.TimeInForce), string(o.Type), nullDecimal(o.Price), nullDecimal(o.StopPrice), o.ClOrdID,
		)
		if err != nil {
			return fmt.Errorf("merge placed order %s: %w", o.ClOrdID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO orders (
    cl_ord_id, symbol, side, quantity, ord_type, time_in_force,
    price, stop_price, status, placed_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ClOrdID, o.Symbol, string(o.Side), o.Quantity, string(o.Type), string(o.TimeInForce),
			nullDecimal(o.Price), nullDecimal(o.StopPrice), string(o.Status), now, now,
		)
		if err != nil {
			return fmt.Errorf("insert order %s: %w", o.ClOrdID, err)
		}

		_, err = tx.ExecContext(ctx, insertEvent, o.ClOrdID, string(o.Status), o.FilledQty, o.AvgFillPx, o.Text, now)
		return err
	})
}

// RecordUpdate applies a venue status update. Orders the session did not
// place (seen in a snapshot, say) are inserted with no placed_at.
func (s *Store) RecordUpdate(ctx context.Context, o mirror.Order) error {
	now := o.UpdatedAt.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO orders (
    cl_ord_id, order_id, symbol, side, quantity, ord_type,
    price, stop_price, status, filled_qty, avg_fill_px, text, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (cl_ord_id) DO UPDATE SET
    order_id    = CASE WHEN excluded.order_id = '' THEN orders.order_id ELSE excluded.order_id END,
    symbol      = CASE WHEN excluded.symbol = '' THEN orders.symbol ELSE excluded.symbol END,
    status      = excluded.status,
    filled_qty  = excluded.filled_qty,
    avg_fill_px = excluded.avg_fill_px,
    text        = excluded.text,
    updated_at  = excluded.updated_at`,
			o.ClOrdID, o.OrderID, o.Symbol, string(o.Side), o.Quantity, string(o.Type),
			nullDecimal(o.Price), nullDecimal(o.StopPrice), string(o.Status), o.FilledQty, o.AvgFillPx, o.Text, now,
		)
		if err != nil {
			return fmt.Errorf("upsert order %s: %w", o.ClOrdID, err)
		}

		_, err = tx.ExecContext(ctx, insertEvent, o.ClOrdID, string(o.Status), o.FilledQty, o.AvgFillPx, o.Text, now)
		return err
	})
}

const selectOrder = `
SELECT cl_ord_id, order_id, symbol, side, quantity, ord_type, time_in_force,
       price, stop_price, status, filled_qty, avg_fill_px, text, placed_at, updated_at
FROM orders`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                      Entry
		side, ordType, tif, st string
		price, stop            decimal.NullDecimal
		placedAt               sql.NullTime
	)
	err := row.Scan(
		&e.ClOrdID, &e.OrderID, &e.Symbol, &side, &e.Quantity, &ordType, &tif,
		&price, &stop, &st, &e.FilledQty, &e.AvgFillPx, &e.Text, &placedAt, &e.UpdatedAt,
	)
	if err != nil {
		return Entry{}, err
	}

	e.Side = wire.Side(side)
	e.Type = wire.OrdType(ordType)
	e.TimeInForce = wire.TimeInForce(tif)
	e.Status = wire.OrderStatus(st)
	e.Price = decimalPtr(price)
	e.StopPrice = decimalPtr(stop)
	if placedAt.Valid {
		t := placedAt.Time
		e.PlacedAt = &t
	}
	return e, nil
}

// Get returns the journaled order, or ErrNotFound.
func (s *Store) Get(ctx context.Context, clOrdID string) (Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, selectOrder+` WHERE cl_ord_id = ?`, clOrdID))
	if err != nil {
		return Entry{}, mapNotFound(err)
	}
	return e, nil
}

// List returns up to limit orders, most recently updated first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, selectOrder+` ORDER BY updated_at DESC, cl_ord_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Events returns the status history of an order, oldest first.
func (s *Store) Events(ctx context.Context, clOrdID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, cl_ord_id, status, filled_qty, avg_fill_px, text, recorded_at
FROM order_events
WHERE cl_ord_id = ?
ORDER BY id`, clOrdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev Event
			st string
		)
		if err := rows.Scan(&ev.ID, &ev.ClOrdID, &st, &ev.FilledQty, &ev.AvgFillPx, &ev.Text, &ev.RecordedAt); err != nil {
			return nil, err
		}
		ev.Status = wire.OrderStatus(st)
		out = append(out, ev)
	}
	return out, rows.Err()
}
