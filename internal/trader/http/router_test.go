package http_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/channel"
	traderhttp "github.com/aussiebroadwan/tradelink/internal/trader/http"
	"github.com/aussiebroadwan/tradelink/internal/trader/journal"
	"github.com/aussiebroadwan/tradelink/internal/trader/mirror"
	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/aussiebroadwan/tradelink/pkg/authsdk"
	"github.com/aussiebroadwan/tradelink/pkg/httpx"
	"github.com/aussiebroadwan/tradelink/pkg/jwtx"
	"github.com/aussiebroadwan/tradelink/pkg/slogx"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fakeSession serves real mirrors with a settable channel state.
type fakeSession struct {
	state    atomic.Int32
	loggedIn atomic.Bool

	positions *mirror.PositionManager
	balances  *mirror.BalanceManager
	orders    *mirror.OrderManager
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		positions: mirror.NewPositionManager(),
		balances:  mirror.NewBalanceManager(),
		orders:    mirror.NewOrderManager(),
	}
}

func (f *fakeSession) State() channel.State { return channel.State(f.state.Load()) }
func (f *fakeSession) LoggedIn() bool       { return f.loggedIn.Load() }

func (f *fakeSession) GetPosition(s string) (mirror.Position, bool) { return f.positions.Get(s) }
func (f *fakeSession) GetAllPositions() []mirror.Position           { return f.positions.All() }
func (f *fakeSession) GetBalance(c string) (mirror.Balance, bool)   { return f.balances.Get(c) }
func (f *fakeSession) GetAllBalances() []mirror.Balance             { return f.balances.All() }
func (f *fakeSession) GetOrder(id string) (mirror.Order, bool)      { return f.orders.Get(id) }
func (f *fakeSession) GetAllOrders() []mirror.Order                 { return f.orders.All() }
func (f *fakeSession) GetOpenOrders() []mirror.Order                { return f.orders.OpenOrders() }
func (f *fakeSession) GetFilledOrders() []mirror.Order              { return f.orders.FilledOrders() }

type fakeHistory struct {
	pingErr error
	events  map[string][]journal.Event
}

func (h *fakeHistory) Ping(context.Context) error { return h.pingErr }

func (h *fakeHistory) Events(_ context.Context, id string) ([]journal.Event, error) {
	return h.events[id], nil
}

func seeded() *fakeSession {
	s := newFakeSession()
	s.positions.Update(true, []wire.PositionEntry{
		{Symbol: "AAPL", Qty: d("100"), AveragePrice: d("150.25")},
		{Symbol: "GOOG", Qty: d("-5"), AveragePrice: d("2800")},
	})
	s.balances.Update(true, map[string]wire.BalanceEntry{
		"USD": {AvailableCash: d("50000"), BuyingPower: d("100000"), Equity: d("75000")},
	})
	s.orders.Update(true, []wire.OrderEntry{
		{ClOrdID: "A", Symbol: "AAPL", Side: wire.SideBuy, OrderQty: d("10"), OrdType: wire.OrdTypeLimit, Price: d("150"), Status: wire.StatusNew},
		{ClOrdID: "B", Symbol: "MSFT", Side: wire.SideSell, OrderQty: d("5"), OrdType: wire.OrdTypeMarket, Status: wire.StatusFilled, CumQty: d("5"), AvgPx: d("301.5")},
	})
	return s
}

func newRouter(s traderhttp.Session, keys *jwtx.KeySet, configure func(*traderhttp.Router)) http.Handler {
	if keys == nil {
		keys = jwtx.NewKeySet()
	}
	r := traderhttp.NewRouter(s, keys, "test", slogx.Discard())
	if configure != nil {
		configure(r)
	}
	r.ApplyRoutes()
	return r
}

func get(t *testing.T, h http.Handler, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func TestLivez(t *testing.T) {
	t.Parallel()
	h := newRouter(newFakeSession(), nil, nil)

	var body authsdk.HealthResponse
	rec := get(t, h, "/livez", &body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body.Status)
	require.Equal(t, "test", body.Version)
	require.Nil(t, body.Checks)
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	t.Run("not ready until connected and logged in", func(t *testing.T) {
		s := newFakeSession()
		h := newRouter(s, keys, nil)

		var body authsdk.HealthResponse
		rec := get(t, h, "/readyz", &body)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, "degraded", body.Status)
		require.Equal(t, "ok", body.Checks.KeySet)
		require.Equal(t, "disconnected", body.Checks.Channel)
		require.Equal(t, "pending", body.Checks.Login)
		require.Empty(t, body.Checks.Journal)

		s.state.Store(int32(channel.StateConnected))
		s.loggedIn.Store(true)

		rec = get(t, h, "/readyz", &body)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "ok", body.Status)
		require.Equal(t, "connected", body.Checks.Channel)
		require.Equal(t, "ok", body.Checks.Login)
	})

	t.Run("no keys", func(t *testing.T) {
		s := newFakeSession()
		s.state.Store(int32(channel.StateConnected))
		s.loggedIn.Store(true)

		var body authsdk.HealthResponse
		rec := get(t, newRouter(s, jwtx.NewKeySet(), nil), "/readyz", &body)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Contains(t, body.Checks.KeySet, "error")
	})

	t.Run("journal down", func(t *testing.T) {
		s := newFakeSession()
		s.state.Store(int32(channel.StateConnected))
		s.loggedIn.Store(true)
		h := newRouter(s, keys, func(r *traderhttp.Router) {
			r.History = &fakeHistory{pingErr: errors.New("disk full")}
		})

		var body authsdk.HealthResponse
		rec := get(t, h, "/readyz", &body)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, "error: disk full", body.Checks.Journal)
	})
}

func TestPositions(t *testing.T) {
	t.Parallel()
	h := newRouter(seeded(), nil, nil)

	var list traderhttp.ListPositionsResponse
	rec := get(t, h, "/v1/positions", &list)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list.Positions, 2)
	require.Equal(t, "AAPL", list.Positions[0].Symbol)
	require.True(t, list.Positions[0].AveragePrice.Equal(d("150.25")))
	require.Contains(t, rec.Body.String(), `"quantity":"100"`)

	var one traderhttp.PositionResponse
	rec = get(t, h, "/v1/positions/GOOG", &one)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, one.Quantity.Equal(d("-5")))

	var e httpx.ErrorBody
	rec = get(t, h, "/v1/positions/TSLA", &e)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", e.Error)
}

func TestBalances(t *testing.T) {
	t.Parallel()
	h := newRouter(seeded(), nil, nil)

	var list traderhttp.ListBalancesResponse
	require.Equal(t, http.StatusOK, get(t, h, "/v1/balances", &list).Code)
	require.Len(t, list.Balances, 1)

	var one traderhttp.BalanceResponse
	require.Equal(t, http.StatusOK, get(t, h, "/v1/balances/usd", &one).Code)
	require.Equal(t, "USD", one.Currency)
	require.True(t, one.BuyingPower.Equal(d("100000")))

	require.Equal(t, http.StatusNotFound, get(t, h, "/v1/balances/EUR", nil).Code)
}

func TestOrders(t *testing.T) {
	t.Parallel()
	recorded := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h := newRouter(seeded(), nil, func(r *traderhttp.Router) {
		r.History = &fakeHistory{events: map[string][]journal.Event{
			"B": {
				{ClOrdID: "B", Status: wire.StatusNew, RecordedAt: recorded},
				{ClOrdID: "B", Status: wire.StatusFilled, FilledQty: d("5"), AvgFillPx: d("301.5"), RecordedAt: recorded.Add(time.Second)},
			},
		}}
	})

	cases := []struct {
		query string
		want  []string
	}{
		{"", []string{"A", "B"}},
		{"?state=open", []string{"A"}},
		{"?state=filled", []string{"B"}},
		{"?state=OPEN", []string{"A"}},
	}
	for _, tc := range cases {
		var list traderhttp.ListOrdersResponse
		require.Equal(t, http.StatusOK, get(t, h, "/v1/orders"+tc.query, &list).Code, tc.query)
		var got []string
		for _, o := range list.Orders {
			got = append(got, o.ClOrdID)
		}
		require.Equal(t, tc.want, got, tc.query)
	}

	require.Equal(t, http.StatusBadRequest, get(t, h, "/v1/orders?state=sideways", nil).Code)

	var a traderhttp.OrderResponse
	rec := get(t, h, "/v1/orders/A", &a)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, a.Price)
	require.True(t, a.Price.Equal(d("150")))
	require.Nil(t, a.StopPrice)
	require.Empty(t, a.Events)

	var b traderhttp.OrderResponse
	get(t, h, "/v1/orders/B", &b)
	require.Equal(t, wire.StatusFilled, b.Status)
	require.Len(t, b.Events, 2)
	require.Equal(t, wire.StatusNew, b.Events[0].Status)
	require.True(t, b.Events[1].AvgFillPx.Equal(d("301.5")))

	require.Equal(t, http.StatusNotFound, get(t, h, "/v1/orders/nope", nil).Code)
}

func newSigner(t *testing.T) *jwtx.RS256Signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return jwtx.NewSignerRS256FromKey("status-key", key)
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	h := newRouter(seeded(), keys, func(r *traderhttp.Router) {
		r.Verifier = jwtx.NewCommonRS256(keys, "venue", []string{"trading"})
		r.Scopes = []string{"read"}
	})

	// Probes stay open
	require.Equal(t, http.StatusOK, get(t, h, "/livez", nil).Code)

	rec := get(t, h, "/v1/positions", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")

	tok, err := signer.Sign(jwtx.NewAccessClaims("trader", "client-1", "read", time.Minute, "venue", []string{"trading"}, time.Now()))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/positions", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	wrongAud, err := signer.Sign(jwtx.NewAccessClaims("trader", "client-1", "read", time.Minute, "venue", []string{"other"}, time.Now()))
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/v1/positions", nil)
	req.Header.Set("Authorization", "Bearer "+wrongAud)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	tradeOnly, err := signer.Sign(jwtx.NewAccessClaims("trader", "client-1", "trade", time.Minute, "venue", []string{"trading"}, time.Now()))
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/v1/positions", nil)
	req.Header.Set("Authorization", "Bearer "+tradeOnly)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")
}

func TestQueryRateLimit(t *testing.T) {
	t.Parallel()
	h := newRouter(seeded(), nil, func(r *traderhttp.Router) {
		r.QueryLimit = httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	})

	require.Equal(t, http.StatusOK, get(t, h, "/v1/balances", nil).Code)
	require.Equal(t, http.StatusOK, get(t, h, "/v1/positions", nil).Code)
	require.Equal(t, http.StatusTooManyRequests, get(t, h, "/v1/orders", nil).Code)

	// Probes have their own budget
	require.Equal(t, http.StatusOK, get(t, h, "/livez", nil).Code)
}
