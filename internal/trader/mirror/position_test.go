package mirror_test

import (
	"sync"
	"testing"

	"github.com/aussiebroadwan/tradelink/internal/trader/mirror"
	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPositionManager_ValueAndPnL(t *testing.T) {
	m := mirror.NewPositionManager()
	m.Update(false, []wire.PositionEntry{
		{Symbol: "AAPL", Qty: d("100"), AveragePrice: d("150")},
		{Symbol: "MSFT", Qty: d("100"), AveragePrice: d("10")},
		{Symbol: "FLAT", Qty: d("0"), AveragePrice: d("42")},
	})

	require.True(t, d("15500").Equal(m.Value("AAPL", d("155"))))
	require.True(t, d("200").Equal(m.PnL("MSFT", d("12"))))
	require.True(t, d("-200").Equal(m.PnL("MSFT", d("8"))))

	t.Run("flat position has zero pnl at any price", func(t *testing.T) {
		for _, px := range []string{"0", "1", "42", "1000000"} {
			require.True(t, m.PnL("FLAT", d(px)).IsZero(), "price %s", px)
		}
	})

	t.Run("unknown symbol is zero", func(t *testing.T) {
		require.True(t, m.Value("TSLA", d("10")).IsZero())
		require.True(t, m.PnL("TSLA", d("10")).IsZero())
	})
}

func TestPositionManager_PartialUpsert(t *testing.T) {
	m := mirror.NewPositionManager()
	m.Update(false, []wire.PositionEntry{
		{Symbol: "AAPL", Qty: d("100"), AveragePrice: d("150")},
		{Symbol: "MSFT", Qty: d("5"), AveragePrice: d("300")},
	})
	m.Update(false, []wire.PositionEntry{
		{Symbol: "AAPL", Qty: d("50"), AveragePrice: d("151")},
	})

	aapl, ok := m.Get("AAPL")
	require.True(t, ok)
	require.True(t, d("50").Equal(aapl.Quantity))
	require.True(t, d("151").Equal(aapl.AveragePrice))

	_, ok = m.Get("MSFT")
	require.True(t, ok, "keys absent from a partial batch are kept")
	require.Equal(t, 2, m.Len())
}

func TestPositionManager_RemovedAndSnapshot(t *testing.T) {
	m := mirror.NewPositionManager()
	m.Update(false, []wire.PositionEntry{
		{Symbol: "AAPL", Qty: d("1")},
		{Symbol: "MSFT", Qty: d("2")},
		{Symbol: "GOOG", Qty: d("3")},
	})

	m.Update(false, []wire.PositionEntry{{Symbol: "MSFT", Removed: true}})
	_, ok := m.Get("MSFT")
	require.False(t, ok)

	m.Update(true, []wire.PositionEntry{
		{Symbol: "NVDA", Qty: d("7")},
		{Symbol: "AAPL", Removed: true},
	})
	all := m.All()
	require.Len(t, all, 1)
	require.Equal(t, "NVDA", all[0].Symbol)
}

func TestPositionManager_AllSorted(t *testing.T) {
	m := mirror.NewPositionManager()
	m.Update(false, []wire.PositionEntry{
		{Symbol: "MSFT", Qty: d("1")},
		{Symbol: "AAPL", Qty: d("1")},
		{Symbol: "GOOG", Qty: d("1")},
		{Symbol: "  ", Qty: d("1")},
	})

	var syms []string
	for _, p := range m.All() {
		syms = append(syms, p.Symbol)
	}
	require.Equal(t, []string{"AAPL", "GOOG", "MSFT"}, syms)
}

func TestPositionManager_ConcurrentAccess(t *testing.T) {
	m := mirror.NewPositionManager()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Update(false, []wire.PositionEntry{{Symbol: "AAPL", Qty: decimal.NewFromInt(int64(i))}})
		}()
		go func() {
			defer wg.Done()
			_ = m.All()
			_ = m.Value("AAPL", d("1"))
		}()
	}
	wg.Wait()

	_, ok := m.Get("AAPL")
	require.True(t, ok)
}
