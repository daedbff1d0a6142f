package models

import (
	"errors"
	"fmt"
)

type (
	// Allocation is what one participant claims from a receipt.
	Allocation struct {
		ParticipantID   string        `json:"participant_id"`
		ParticipantName string        `json:"participant_name"`
		Items           []ClaimedItem `json:"items_allocated"`
	}

	// ClaimedItem ...
	ClaimedItem struct {
		ItemID string `json:"item_id"`
		Count  int    `json:"item_count"`
	}

	// Summary is the live view of a session: how much of every item is
	// claimed and how much every participant owes.
	Summary struct {
		Items        []*ItemSummary        `json:"items"`
		Participants []*ParticipantSummary `json:"participants"`
		Total        PriceInCents          `json:"total_cents"`
		Claimed      PriceInCents          `json:"claimed_cents"`
		Outstanding  PriceInCents          `json:"outstanding_cents"`
		FullyClaimed bool                  `json:"fully_claimed"`
	}

	// ItemSummary ...
	ItemSummary struct {
		ItemID      string       `json:"item_id"`
		Name        string       `json:"item_name"`
		Count       int          `json:"item_count"`
		Price       PriceInCents `json:"price_cents"`
		UnitPrice   PriceInCents `json:"unit_price_cents"`
		Claimed     int          `json:"claimed_count"`
		Percentage  float64      `json:"allocation_percentage"`
		Outstanding PriceInCents `json:"outstanding_cents"`
	}

	// ParticipantSummary ...
	ParticipantSummary struct {
		ParticipantID string        `json:"participant_id"`
		Name          string        `json:"participant_name"`
		Owed          PriceInCents  `json:"owed_cents"`
		Items         []ClaimedItem `json:"items_allocated"`
	}
)

var (
	// ErrOverClaimed ...
	ErrOverClaimed = errors.New("item claimed beyond its quantity")

	// ErrNegativeClaim ...
	ErrNegativeClaim = errors.New("negative claim")
)

// Count returns how many units of itemID the allocation claims.
func (a *Allocation) Count(itemID string) int {
	for _, c := range a.Items {
		if c.ItemID == itemID {
			return c.Count
		}
	}
	return 0
}

// ClaimedCount sums the claims of every allocation on item.
func ClaimedCount(item *ReceiptItem, allocations []*Allocation) (claimed int) {
	for _, a := range allocations {
		claimed += a.Count(item.ID)
	}
	return
}

// AllocationPercentage is the claimed share of item's quantity, 0 to 100.
func AllocationPercentage(item *ReceiptItem, allocations []*Allocation) float64 {
	if item.Count <= 0 {
		return 0
	}
	return float64(ClaimedCount(item, allocations)) / float64(item.Count) * 100
}

// Remaining is how many units of item are still free for participantID,
// i.e. the count minus everybody else's claims.
func Remaining(item *ReceiptItem, allocations []*Allocation, participantID string) int {
	others := 0
	for _, a := range allocations {
		if a.ParticipantID != participantID {
			others += a.Count(item.ID)
		}
	}
	return item.Count - others
}

// ParticipantTotal is what claims cost on receipt.
func ParticipantTotal(receipt Receipt, claims []ClaimedItem) (total PriceInCents) {
	for _, c := range claims {
		if item := receipt.Find(c.ItemID); item != nil {
			total += Share(item.Price, c.Count, item.Count)
		}
	}
	return
}

// CompactClaims merges duplicate item entries and drops zero counts. The
// result is sorted by receipt order.
func CompactClaims(receipt Receipt, claims []ClaimedItem) ([]ClaimedItem, error) {
	counts := make(map[string]int, len(claims))
	for _, c := range claims {
		if c.Count < 0 {
			return nil, fmt.Errorf("%w: item %q", ErrNegativeClaim, c.ItemID)
		}
		if receipt.Find(c.ItemID) == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownItem, c.ItemID)
		}
		counts[c.ItemID] += c.Count
	}
	out := make([]ClaimedItem, 0, len(counts))
	for _, item := range receipt {
		if n := counts[item.ID]; n > 0 {
			out = append(out, ClaimedItem{ItemID: item.ID, Count: n})
		}
	}
	return out, nil
}

// ValidateClaim checks that participantID may claim claims given everybody
// else's allocations, and returns the compacted claims.
func ValidateClaim(receipt Receipt, allocations []*Allocation, participantID string, claims []ClaimedItem) ([]ClaimedItem, error) {
	compact, err := CompactClaims(receipt, claims)
	if err != nil {
		return nil, err
	}
	for _, c := range compact {
		item := receipt.Find(c.ItemID)
		if remaining := Remaining(item, allocations, participantID); c.Count > remaining {
			return nil, fmt.Errorf("%w: %q has %d of %d left, asked for %d",
				ErrOverClaimed, item.Name, max(remaining, 0), item.Count, c.Count)
		}
	}
	return compact, nil
}

// CheckAllocations verifies no item of receipt is claimed beyond its count.
func CheckAllocations(receipt Receipt, allocations []*Allocation) error {
	for _, item := range receipt {
		if claimed := ClaimedCount(item, allocations); claimed > item.Count {
			return fmt.Errorf("%w: %q has %d claimed but only %d units",
				ErrOverClaimed, item.Name, claimed, item.Count)
		}
	}
	return nil
}

// Summarize computes the live view of receipt and allocations. Amounts are
// rounded per item line, so the sum of what participants owe may differ from
// Claimed by a few cents.
func Summarize(receipt Receipt, allocations []*Allocation) *Summary {
	s := &Summary{
		Items:        make([]*ItemSummary, 0, len(receipt)),
		Participants: []*ParticipantSummary{},
		FullyClaimed: len(receipt) > 0,
	}
	for _, item := range receipt {
		claimed := ClaimedCount(item, allocations)
		share := Share(item.Price, claimed, item.Count)
		s.Items = append(s.Items, &ItemSummary{
			ItemID:      item.ID,
			Name:        item.Name,
			Count:       item.Count,
			Price:       item.Price,
			UnitPrice:   item.UnitPrice(),
			Claimed:     claimed,
			Percentage:  AllocationPercentage(item, allocations),
			Outstanding: item.Price - share,
		})
		s.Total += item.Price
		s.Claimed += share
		if claimed < item.Count {
			s.FullyClaimed = false
		}
	}
	s.Outstanding = s.Total - s.Claimed

	for _, a := range allocations {
		claims, err := CompactClaims(receipt, knownClaims(receipt, a.Items))
		if err != nil || len(claims) == 0 {
			continue
		}
		s.Participants = append(s.Participants, &ParticipantSummary{
			ParticipantID: a.ParticipantID,
			Name:          a.ParticipantName,
			Owed:          ParticipantTotal(receipt, claims),
			Items:         claims,
		})
	}
	return s
}

func knownClaims(receipt Receipt, claims []ClaimedItem) []ClaimedItem {
	out := make([]ClaimedItem, 0, len(claims))
	for _, c := range claims {
		if c.Count > 0 && receipt.Find(c.ItemID) != nil {
			out = append(out, c)
		}
	}
	return out
}
