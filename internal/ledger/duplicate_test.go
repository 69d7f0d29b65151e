package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDetectorMatchesNearbySaleSameSplit(t *testing.T) {
	existing := splitMovement(TypeSale, "500", map[string]string{"cash": "500"})
	candidate := splitMovement(TypeSale, "500", map[string]string{"cash": "500"})
	candidate.OccurredAt = existing.OccurredAt.Add(10 * time.Second)

	match, found := NewDetector().Match(candidate, []Movement{existing})
	require.True(t, found)
	require.Equal(t, existing.ID, match.ID)
}

func TestDetectorRespectsTimeTolerance(t *testing.T) {
	existing := legacyMovement(TypeSale, "500", "cash")
	candidate := legacyMovement(TypeSale, "500", "cash")
	candidate.OccurredAt = existing.OccurredAt.Add(61 * time.Second)

	_, found := NewDetector().Match(candidate, []Movement{existing})
	require.False(t, found)

	wide := Detector{TimeTolerance: 2 * time.Minute, AmountTolerance: dec("0.01")}
	_, found = wide.Match(candidate, []Movement{existing})
	require.True(t, found)
}

func TestDetectorRespectsAmountTolerance(t *testing.T) {
	existing := legacyMovement(TypeSale, "500", "cash")
	candidate := legacyMovement(TypeSale, "500.02", "cash")
	candidate.OccurredAt = existing.OccurredAt

	_, found := NewDetector().Match(candidate, []Movement{existing})
	require.False(t, found)
}

func TestDetectorDistinguishesShapes(t *testing.T) {
	existing := splitMovement(TypeSale, "500", map[string]string{"cash": "500"})
	candidate := splitMovement(TypeSale, "500", map[string]string{"electronic-wallet": "500"})
	candidate.OccurredAt = existing.OccurredAt

	_, found := NewDetector().Match(candidate, []Movement{existing})
	require.False(t, found)
}

func TestDetectorIgnoresDifferentTypes(t *testing.T) {
	existing := legacyMovement(TypeSale, "500", "cash")
	candidate := legacyMovement(TypeIncome, "500", "cash")
	candidate.OccurredAt = existing.OccurredAt

	_, found := NewDetector().Match(candidate, []Movement{existing})
	require.False(t, found)
}

func TestGroupDuplicates(t *testing.T) {
	first := splitMovement(TypeSale, "500", map[string]string{"cash": "500"})
	second := splitMovement(TypeSale, "500", map[string]string{"cash": "500"})
	second.OccurredAt = first.OccurredAt.Add(10 * time.Second)
	other := splitMovement(TypeSale, "500", map[string]string{"electronic-wallet": "500"})
	lone := legacyMovement(TypeExpense, "42", "cash")

	groups := GroupDuplicates([]Movement{first, second, other, lone})

	require.Len(t, groups, 1)
	require.Equal(t, 2, groups[0].Count)
	require.Equal(t, first.ID, groups[0].Representative.ID)
	require.Contains(t, groups[0].Key, "sale")
}

func TestSplitSignatureNormalizes(t *testing.T) {
	a := splitMovement(TypeSale, "100", map[string]string{"cash": "40", "card": "60"})
	b := splitMovement(TypeSale, "100", map[string]string{"card": "60.00", "cash": "40.004"})

	require.Equal(t, SplitSignature(a), SplitSignature(b))
	require.Equal(t, "legacy=cash", SplitSignature(legacyMovement(TypeSale, "5", "cash")))
}

func TestImpactOfDuplicateGroups(t *testing.T) {
	sale := splitMovement(TypeSale, "500", map[string]string{"cash": "500"})
	saleCopy := sale
	expense := legacyMovement(TypeExpense, "100", "card")
	expenseCopy := expense

	groups := GroupDuplicates([]Movement{sale, saleCopy, expense, expenseCopy})
	impact := Impact(groups)

	// Removing the extra sale copy lowers cash; removing the extra expense raises card.
	require.True(t, impact["cash"].Equal(dec("-500")), "got %s", impact["cash"])
	require.True(t, impact["card"].Equal(dec("100")), "got %s", impact["card"])
}
