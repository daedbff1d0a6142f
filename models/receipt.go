package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	// Receipt is the ordered list of items of a session.
	Receipt []*ReceiptItem

	// ReceiptItem is a named line of a receipt. Price is the total for all
	// Count units, not the unit price.
	ReceiptItem struct {
		ID    string       `json:"id" yaml:"id"`
		Name  string       `json:"item_name" yaml:"name"`
		Count int          `json:"item_count" yaml:"count"`
		Price PriceInCents `json:"price_cents" yaml:"priceCents"`
	}
)

var (
	// ErrUnknownItem ...
	ErrUnknownItem = errors.New("unknown receipt item")

	// ErrInvalidItem ...
	ErrInvalidItem = errors.New("invalid receipt item")

	titleCaser = cases.Title(language.Und)
)

// UnitPrice is Price/Count rounded to cents.
func (r *ReceiptItem) UnitPrice() PriceInCents {
	return Share(r.Price, 1, r.Count)
}

func (r *ReceiptItem) String() string {
	return fmt.Sprintf("%s x%d (%s)", r.Name, r.Count, r.Price)
}

// Total ...
func (r Receipt) Total() (total PriceInCents) {
	for _, item := range r {
		total += item.Price
	}
	return
}

// Len ...
func (r Receipt) Len() int {
	return len(r)
}

// Find returns the item with the given ID, or nil.
func (r Receipt) Find(id string) *ReceiptItem {
	if i := r.IndexOf(id); i >= 0 {
		return r[i]
	}
	return nil
}

// IndexOf ...
func (r Receipt) IndexOf(id string) int {
	for i, item := range r {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// NormalizeName collapses whitespace and title-cases an item name.
func NormalizeName(name string) string {
	return titleCaser.String(strings.Join(strings.Fields(name), " "))
}

// Normalize trims and title-cases names, coerces counts below one to one and
// assigns IDs to items that have none.
func (r Receipt) Normalize() Receipt {
	out := make(Receipt, 0, len(r))
	for _, item := range r {
		if item == nil {
			continue
		}
		n := *item
		n.Name = NormalizeName(n.Name)
		if n.Count < 1 {
			n.Count = 1
		}
		if n.ID == "" {
			n.ID = NewItemID()
		}
		out = append(out, &n)
	}
	return out
}

// Validate checks the receipt can be offered for claiming.
func (r Receipt) Validate() error {
	seen := make(map[string]bool, len(r))
	for i, item := range r {
		switch {
		case item.ID == "":
			return fmt.Errorf("%w: item %d has no id", ErrInvalidItem, i)
		case seen[item.ID]:
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidItem, item.ID)
		case strings.TrimSpace(item.Name) == "":
			return fmt.Errorf("%w: item %d has no name", ErrInvalidItem, i)
		case item.Count < 1:
			return fmt.Errorf("%w: item %q has count %d", ErrInvalidItem, item.Name, item.Count)
		}
		seen[item.ID] = true
	}
	return nil
}

// Clone returns a deep copy.
func (r Receipt) Clone() Receipt {
	out := make(Receipt, len(r))
	for i, item := range r {
		c := *item
		out[i] = &c
	}
	return out
}

func (r Receipt) String() string {
	items := make([]string, r.Len())
	for i := range r {
		items[i] = r[i].String()
	}
	items = append(items, "")
	items = append(items, fmt.Sprintf("Total: %s", r.Total()))
	return strings.Join(items, "\n")
}

// NewItemID ...
func NewItemID() string {
	return uuid.NewString()[:8]
}
