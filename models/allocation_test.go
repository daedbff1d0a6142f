package models_test

import (
	"testing"

	"github.com/matheuscscp/fairshare/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReceipt() models.Receipt {
	return models.Receipt{
		{ID: "bread", Name: "Garlic Bread", Count: 2, Price: 1650},
		{ID: "coke", Name: "Coke", Count: 4, Price: 3200},
		{ID: "tea", Name: "Iced Tea", Count: 3, Price: 1000},
	}
}

func TestAllocationMath(t *testing.T) {
	receipt := testReceipt()
	allocations := []*models.Allocation{
		{ParticipantID: "p1", ParticipantName: "Ana", Items: []models.ClaimedItem{{ItemID: "coke", Count: 1}, {ItemID: "tea", Count: 1}}},
		{ParticipantID: "p2", ParticipantName: "Bob", Items: []models.ClaimedItem{{ItemID: "coke", Count: 2}}},
	}
	coke := receipt.Find("coke")

	assert.Equal(t, 3, models.ClaimedCount(coke, allocations))
	assert.InDelta(t, 75.0, models.AllocationPercentage(coke, allocations), 1e-9)
	assert.Equal(t, 2, models.Remaining(coke, allocations, "p1"))
	assert.Equal(t, 3, models.Remaining(coke, allocations, "p2"))
	assert.Equal(t, 1, models.Remaining(coke, allocations, "p3"))
	assert.Equal(t, models.PriceInCents(800+333), models.ParticipantTotal(receipt, allocations[0].Items))
}

func TestValidateClaim(t *testing.T) {
	receipt := testReceipt()
	allocations := []*models.Allocation{
		{ParticipantID: "p1", Items: []models.ClaimedItem{{ItemID: "coke", Count: 3}}},
		{ParticipantID: "p2", Items: []models.ClaimedItem{{ItemID: "coke", Count: 1}}},
	}

	t.Run("own claim is replaced, not added", func(t *testing.T) {
		claims, err := models.ValidateClaim(receipt, allocations, "p2", []models.ClaimedItem{{ItemID: "coke", Count: 1}})
		require.NoError(t, err)
		assert.Equal(t, []models.ClaimedItem{{ItemID: "coke", Count: 1}}, claims)
	})

	t.Run("over claim", func(t *testing.T) {
		_, err := models.ValidateClaim(receipt, allocations, "p3", []models.ClaimedItem{{ItemID: "coke", Count: 1}})
		assert.ErrorIs(t, err, models.ErrOverClaimed)
	})

	t.Run("duplicates merge and zeros drop in receipt order", func(t *testing.T) {
		claims, err := models.ValidateClaim(receipt, allocations, "p3", []models.ClaimedItem{
			{ItemID: "tea", Count: 1},
			{ItemID: "bread", Count: 0},
			{ItemID: "tea", Count: 1},
			{ItemID: "bread", Count: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, []models.ClaimedItem{{ItemID: "bread", Count: 1}, {ItemID: "tea", Count: 2}}, claims)
	})

	t.Run("merged duplicates can over claim", func(t *testing.T) {
		_, err := models.ValidateClaim(receipt, nil, "p3", []models.ClaimedItem{
			{ItemID: "bread", Count: 2},
			{ItemID: "bread", Count: 1},
		})
		assert.ErrorIs(t, err, models.ErrOverClaimed)
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := models.ValidateClaim(receipt, nil, "p3", []models.ClaimedItem{{ItemID: "nope", Count: 1}})
		assert.ErrorIs(t, err, models.ErrUnknownItem)
	})

	t.Run("negative", func(t *testing.T) {
		_, err := models.ValidateClaim(receipt, nil, "p3", []models.ClaimedItem{{ItemID: "tea", Count: -1}})
		assert.ErrorIs(t, err, models.ErrNegativeClaim)
	})
}

func TestCheckAllocations(t *testing.T) {
	receipt := testReceipt()
	ok := []*models.Allocation{{ParticipantID: "p1", Items: []models.ClaimedItem{{ItemID: "bread", Count: 2}}}}
	assert.NoError(t, models.CheckAllocations(receipt, ok))

	require.NoError(t, receipt.Decrement("bread"))
	assert.ErrorIs(t, models.CheckAllocations(receipt, ok), models.ErrOverClaimed)
}

func TestSummarize(t *testing.T) {
	receipt := testReceipt()
	allocations := []*models.Allocation{
		{ParticipantID: "p1", ParticipantName: "Ana", Items: []models.ClaimedItem{{ItemID: "bread", Count: 2}, {ItemID: "tea", Count: 1}}},
		{ParticipantID: "p2", ParticipantName: "Bob"},
		{ParticipantID: "p3", ParticipantName: "Cai", Items: []models.ClaimedItem{{ItemID: "tea", Count: 2}, {ItemID: "gone", Count: 5}}},
	}

	s := models.Summarize(receipt, allocations)

	require.Len(t, s.Items, 3)
	assert.Equal(t, 2, s.Items[0].Claimed)
	assert.InDelta(t, 100.0, s.Items[0].Percentage, 1e-9)
	assert.Equal(t, models.PriceInCents(0), s.Items[0].Outstanding)
	assert.Equal(t, models.PriceInCents(825), s.Items[0].UnitPrice)
	assert.Equal(t, 0, s.Items[1].Claimed)
	assert.Equal(t, models.PriceInCents(3200), s.Items[1].Outstanding)
	assert.Equal(t, 3, s.Items[2].Claimed)

	require.Len(t, s.Participants, 2, "participants without claims are left out")
	assert.Equal(t, "Ana", s.Participants[0].Name)
	assert.Equal(t, models.PriceInCents(1650+333), s.Participants[0].Owed)
	assert.Equal(t, "Cai", s.Participants[1].Name)
	assert.Equal(t, models.PriceInCents(667), s.Participants[1].Owed)
	assert.Equal(t, []models.ClaimedItem{{ItemID: "tea", Count: 2}}, s.Participants[1].Items)

	assert.Equal(t, models.PriceInCents(5850), s.Total)
	assert.Equal(t, models.PriceInCents(1650+1000), s.Claimed)
	assert.Equal(t, models.PriceInCents(3200), s.Outstanding)
	assert.False(t, s.FullyClaimed)
}

func TestSummarizeFullyClaimed(t *testing.T) {
	receipt := models.Receipt{{ID: "x", Name: "X", Count: 1, Price: 100}}
	s := models.Summarize(receipt, []*models.Allocation{{ParticipantID: "p", Items: []models.ClaimedItem{{ItemID: "x", Count: 1}}}})
	assert.True(t, s.FullyClaimed)
	assert.Equal(t, models.PriceInCents(0), s.Outstanding)

	assert.False(t, models.Summarize(nil, nil).FullyClaimed)
}
