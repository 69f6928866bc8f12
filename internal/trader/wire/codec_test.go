package wire_test

import (
	"testing"

	"github.com/aussiebroadwan/tradelink/internal/trader/errs"
	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestEncodeNewOrder(t *testing.T) {
	msg := &wire.NewOrder{
		ClOrdID:       "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV",
		Symbol:        "AAPL",
		Side:          wire.SideBuy,
		OrderQty:      wire.Num(decimal.NewFromInt(100)),
		OrdType:       wire.OrdTypeLimit,
		ExDestination: "SMART",
		TimeInForce:   wire.TIFDay,
		Price:         wire.OptNum(decimal.RequireFromString("150.25")),
		StopPrice:     wire.OptNum(decimal.Zero),
	}

	b, err := wire.Encode(msg)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, "neworder", got["messageType"])
	require.NotEmpty(t, got["reqId"])
	require.Equal(t, float64(100), got["orderQty"])
	require.Equal(t, 150.25, got["price"])
	require.Equal(t, "SMART", got["exDestination"])
	require.NotContains(t, got, "stopPrice")
}

func TestEncodeKeepsCallerReqID(t *testing.T) {
	b, err := wire.Encode(&wire.CancelOrder{Envelope: wire.Envelope{ReqID: "r-1"}, ClOrdID: "abc"})
	require.NoError(t, err)
	require.JSONEq(t, `{"messageType":"cancelorder","reqId":"r-1","clOrdId":"abc"}`, string(b))
}

func TestEncodeLoginAndHeartbeat(t *testing.T) {
	b, err := wire.Encode(&wire.Login{APIKey: "k", APISecret: "s", Account: "ACC1"})
	require.NoError(t, err)
	require.Contains(t, string(b), `"messageType":"login"`)
	require.Contains(t, string(b), `"account":"ACC1"`)

	b, err = wire.Encode(&wire.Heartbeat{})
	require.NoError(t, err)
	require.Contains(t, string(b), `"messageType":"heartbeat"`)

	_, err = wire.Encode(nil)
	require.Error(t, err)
}

func TestDecodePositions(t *testing.T) {
	msg, err := wire.Decode([]byte(`{"messageType":"positions","positions":[{"symbol":"AAPL","qty":100,"averagePrice":150.0}]}`))
	require.NoError(t, err)

	p, ok := msg.(*wire.Positions)
	require.True(t, ok)
	require.Len(t, p.Positions, 1)
	require.Equal(t, "AAPL", p.Positions[0].Symbol)
	require.True(t, decimal.NewFromInt(100).Equal(p.Positions[0].Qty))
	require.True(t, decimal.NewFromInt(150).Equal(p.Positions[0].AveragePrice))
}

func TestDecodeBalancesMissingFields(t *testing.T) {
	msg, err := wire.Decode([]byte(`{"messageType":"balances","reqId":"x","balances":{"USD":{"availableCash":"1000.50"}}}`))
	require.NoError(t, err)

	b := msg.(*wire.Balances)
	require.Equal(t, "x", b.Header().ReqID)
	usd := b.Balances["USD"]
	require.True(t, decimal.RequireFromString("1000.50").Equal(usd.AvailableCash))
	require.True(t, usd.Equity.IsZero())
	require.Nil(t, b.Snapshot)
	require.True(t, b.Replace(), "no snapshot field means the whole account")
}

func TestDecodeBalancesSnapshotFlag(t *testing.T) {
	for _, tt := range []struct {
		body string
		want bool
	}{
		{`{"messageType":"balances","snapshot":true,"balances":{}}`, true},
		{`{"messageType":"balances","snapshot":false,"balances":{}}`, false},
	} {
		msg, err := wire.Decode([]byte(tt.body))
		require.NoError(t, err)
		require.Equal(t, tt.want, msg.(*wire.Balances).Replace(), tt.body)
	}

	raw, err := json.Marshal(&wire.Balances{Envelope: wire.Envelope{MessageType: wire.TypeBalances}, Snapshot: new(bool)})
	require.NoError(t, err)
	require.Contains(t, string(raw), `"snapshot":false`)
}

func TestDecodeOrdersNormalisesStatus(t *testing.T) {
	msg, err := wire.Decode([]byte(`{"messageType":"orders","orders":[
		{"clOrdId":"a","symbol":"AAPL","side":"buy","orderQty":10,"status":"PartiallyFilled","cumQty":4},
		{"clOrdId":"b","symbol":"MSFT","side":"sell","orderQty":5,"status":"cancelled","removed":true}
	]}`))
	require.NoError(t, err)

	o := msg.(*wire.Orders)
	require.Equal(t, wire.StatusPartiallyFilled, o.Orders[0].Status)
	require.Equal(t, wire.StatusCanceled, o.Orders[1].Status)
	require.True(t, o.Orders[1].Removed)
}

func TestDecodeErrors(t *testing.T) {
	_, err := wire.Decode([]byte(`not json`))
	require.ErrorIs(t, err, wire.ErrMalformed)

	_, err = wire.Decode([]byte(`{"reqId":"1"}`))
	require.ErrorIs(t, err, wire.ErrMalformed)

	_, err = wire.Decode([]byte(`{"messageType":"quotes"}`))
	require.ErrorIs(t, err, errs.ErrUnknownMessage)

	_, err = wire.Decode([]byte(`{"messageType":"positions","positions":{"AAPL":1}}`))
	require.ErrorIs(t, err, wire.ErrMalformed)
}

func TestParseOrderStatus(t *testing.T) {
	tests := map[string]wire.OrderStatus{
		"PendingNew":       wire.StatusPendingNew,
		"pending-new":      wire.StatusPendingNew,
		"NEW":              wire.StatusNew,
		"partial-fill":     wire.StatusPartiallyFilled,
		"PARTIALLY_FILLED": wire.StatusPartiallyFilled,
		"Filled":           wire.StatusFilled,
		"cancelled":        wire.StatusCanceled,
		"Rejected":         wire.StatusRejected,
		"expired":          wire.StatusExpired,
		"weird":            wire.StatusUnknown,
	}
	for in, want := range tests {
		require.Equal(t, want, wire.ParseOrderStatus(in), in)
	}

	require.True(t, wire.StatusPartiallyFilled.Open())
	require.True(t, wire.StatusPartiallyFilled.HasFills())
	require.False(t, wire.StatusFilled.Open())
	require.False(t, wire.StatusNew.HasFills())
}

func TestOrdTypeRules(t *testing.T) {
	require.True(t, wire.OrdTypeLimit.NeedsPrice())
	require.True(t, wire.OrdTypeStopLimit.NeedsPrice())
	require.True(t, wire.OrdTypeStopLimit.NeedsStopPrice())
	require.False(t, wire.OrdTypeMarket.NeedsPrice())
	require.False(t, wire.OrdType("iceberg").Valid())
	require.False(t, wire.Side("short").Valid())
	require.True(t, wire.TIFGTC.Valid())
}
