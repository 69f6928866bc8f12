package trader_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	traderhttp "github.com/aussiebroadwan/tradelink/internal/trader/http"
	"github.com/aussiebroadwan/tradelink/internal/trader/session"
	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/aussiebroadwan/tradelink/pkg/authsdk"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func getJSON(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

// TestSessionAgainstVenueContainer drives a full session: login, opening
// balances, order entry with fills, and the status API over the mirrors.
func TestSessionAgainstVenueContainer(t *testing.T) {
	v := setupVenueContainer(t, nil)
	trader := startTrader(t, traderConfig(t, v))
	sess := trader.Session()

	// Opening balances arrive before the login ack
	usd, ok := sess.GetBalance("USD")
	require.True(t, ok)
	require.True(t, usd.AvailableCash.Equal(decimal.NewFromInt(100000)))
	require.True(t, sess.AvailableCash("aud").Equal(decimal.NewFromInt(5000)))

	ctx := context.Background()
	buy, err := sess.PlaceOrder(ctx, session.OrderRequest{
		Symbol:   "AAPL",
		Side:     wire.SideBuy,
		Quantity: decimal.NewFromInt(100),
		Type:     wire.OrdTypeLimit,
		Price:    decimal.RequireFromString("150"),
	})
	require.NoError(t, err)

	sell, err := sess.PlaceOrder(ctx, session.OrderRequest{
		Symbol:   "AAPL",
		Side:     wire.SideSell,
		Quantity: decimal.NewFromInt(40),
		Type:     wire.OrdTypeLimit,
		Price:    decimal.RequireFromString("155"),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(sess.GetFilledOrders()) == 2
	}, 10*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		p, ok := sess.GetPosition("AAPL")
		return ok && p.Quantity.Equal(decimal.NewFromInt(60))
	}, 10*time.Second, 50*time.Millisecond)

	pos, _ := sess.GetPosition("AAPL")
	require.True(t, pos.AveragePrice.Equal(decimal.NewFromInt(150)))
	require.True(t, sess.PositionPnL("AAPL", decimal.NewFromInt(160)).Equal(decimal.NewFromInt(600)))
	require.Empty(t, sess.GetOpenOrders())

	h := trader.Handler()

	var health authsdk.HealthResponse
	require.Equal(t, http.StatusOK, getJSON(t, h, "/readyz", &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "ok", health.Checks.Journal)

	var positions traderhttp.ListPositionsResponse
	require.Equal(t, http.StatusOK, getJSON(t, h, "/v1/positions", &positions))
	require.Len(t, positions.Positions, 1)

	var filled traderhttp.ListOrdersResponse
	require.Equal(t, http.StatusOK, getJSON(t, h, "/v1/orders?state=filled", &filled))
	require.Len(t, filled.Orders, 2)

	require.Eventually(t, func() bool {
		var o traderhttp.OrderResponse
		return getJSON(t, h, "/v1/orders/"+sell.String(), &o) == http.StatusOK &&
			o.Status == wire.StatusFilled && len(o.Events) >= 2
	}, 10*time.Second, 50*time.Millisecond)

	var o traderhttp.OrderResponse
	require.Equal(t, http.StatusOK, getJSON(t, h, "/v1/orders/"+buy.String(), &o))
	require.NotEmpty(t, o.OrderID)
}

// TestCancelAgainstVenueContainer checks a resting order can be cancelled.
func TestCancelAgainstVenueContainer(t *testing.T) {
	v := setupVenueContainer(t, map[string]string{"VENUESIM_AUTO_FILL": "false"})
	trader := startTrader(t, traderConfig(t, v))
	sess := trader.Session()
	ctx := context.Background()

	id, err := sess.PlaceOrder(ctx, session.OrderRequest{
		Symbol:      "MSFT",
		Side:        wire.SideBuy,
		Quantity:    decimal.NewFromInt(10),
		Type:        wire.OrdTypeLimit,
		Price:       decimal.RequireFromString("300"),
		TimeInForce: wire.TIFGTC,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		o, _ := sess.GetOrder(id.String())
		return o.Status == wire.StatusNew
	}, 10*time.Second, 50*time.Millisecond)
	require.Len(t, sess.GetOpenOrders(), 1)

	require.NoError(t, sess.CancelOrder(ctx, id.String()))

	require.Eventually(t, func() bool {
		o, _ := sess.GetOrder(id.String())
		return o.Status == wire.StatusCanceled
	}, 10*time.Second, 50*time.Millisecond)
	require.Empty(t, sess.GetOpenOrders())

	o, _ := sess.GetOrder(id.String())
	require.Equal(t, wire.TIFGTC, o.TimeInForce)
}
