package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBalanceByMethodSigns(t *testing.T) {
	movements := []Movement{
		legacyMovement(TypeSale, "100", "cash"),
		legacyMovement(TypeIncome, "50", "cash"),
		legacyMovement(TypePurchase, "30", "cash"),
		legacyMovement(TypeExpense, "10", "card"),
		legacyMovement(TypeCost, "5", "card"),
		legacyMovement(MovementType("adjustment"), "999", "cash"),
	}

	balance := BalanceByMethod(movements)

	require.True(t, balance.ByMethod["cash"].Equal(dec("120")), "got %s", balance.ByMethod["cash"])
	require.True(t, balance.ByMethod["card"].Equal(dec("-15")), "got %s", balance.ByMethod["card"])
	require.True(t, balance.Total.Equal(dec("105")))
}

func TestBalanceByMethodMatchesSignedResolvedSum(t *testing.T) {
	movements := []Movement{
		splitMovement(TypeSale, "100", map[string]string{"cash": "40", "card": "50"}),
		splitMovement(TypePurchase, "60", map[string]string{"cash": "60"}),
		legacyMovement(TypeIncome, "25", "cash"),
	}

	expected := decimal.Zero
	for _, m := range movements {
		signed := MethodAmount(m, "cash")
		if m.Type.Sign() < 0 {
			signed = signed.Neg()
		}
		expected = expected.Add(signed)
	}

	balance := BalanceByMethod(movements)
	require.True(t, balance.ByMethod["cash"].Equal(expected),
		"aggregate %s, signed sum %s", balance.ByMethod["cash"], expected)
}

func TestBalanceByMethodDeduplicatesByID(t *testing.T) {
	m := legacyMovement(TypeSale, "100", "cash")
	balance := BalanceByMethod([]Movement{m, m, m})
	require.True(t, balance.ByMethod["cash"].Equal(dec("100")))
}

func TestPeriodBalance(t *testing.T) {
	ref := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	sameDay := legacyMovement(TypeSale, "10", "cash")
	sameDay.OccurredAt = time.Date(2025, 3, 14, 23, 59, 0, 0, time.UTC)
	sameMonth := legacyMovement(TypeSale, "20", "cash")
	sameMonth.OccurredAt = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	sameYear := legacyMovement(TypeSale, "40", "cash")
	sameYear.OccurredAt = time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	otherYear := legacyMovement(TypeSale, "80", "cash")
	otherYear.OccurredAt = time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

	movements := []Movement{sameDay, sameMonth, sameYear, otherYear}

	require.True(t, PeriodBalance(movements, GranularityDay, ref).Total.Equal(dec("10")))
	require.True(t, PeriodBalance(movements, GranularityMonth, ref).Total.Equal(dec("30")))
	require.True(t, PeriodBalance(movements, GranularityYear, ref).Total.Equal(dec("70")))
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("month")
	require.NoError(t, err)
	require.Equal(t, GranularityMonth, g)

	_, err = ParseGranularity("fortnight")
	require.ErrorIs(t, err, ErrUnknownGranularity)
}

func TestDetailedTotals(t *testing.T) {
	movements := []Movement{
		legacyMovement(TypeSale, "100", "cash"),
		legacyMovement(TypeSale, "50", "card"),
		legacyMovement(TypeExpense, "20", "cash"),
		legacyMovement(TypeCost, "5", "cash"),
	}

	b := DetailedTotals(movements)

	require.True(t, b.Cells[TypeSale]["cash"].Equal(dec("100")))
	require.True(t, b.Cells[TypeSale]["card"].Equal(dec("50")))
	require.True(t, b.Cells[TypeExpense]["cash"].Equal(dec("20")))
	require.True(t, b.NetByMethod["cash"].Equal(dec("75")))
	require.True(t, b.NetByMethod["card"].Equal(dec("50")))
	require.True(t, b.GrandTotal.Equal(dec("125")))
}
