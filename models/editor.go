package models

import (
	"fmt"
)

type (
	// ItemEdit is one host-side change to a receipt item.
	ItemEdit struct {
		Op    EditOp        `json:"op"`
		Name  string        `json:"item_name,omitempty"`
		Price *PriceInCents `json:"price_cents,omitempty"`
	}

	// EditOp ...
	EditOp string
)

const (
	EditIncrement EditOp = "increment"
	EditDecrement EditOp = "decrement"
	EditRename    EditOp = "rename"
	EditSetPrice  EditOp = "set_price"
)

// Increment adds one unit to the item and scales its total price by the
// unit price.
func (r Receipt) Increment(id string) error {
	item := r.Find(id)
	if item == nil {
		return fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	item.Price = Share(item.Price, item.Count+1, item.Count)
	item.Count++
	return nil
}

// Decrement removes one unit from the item. The count never drops below one.
func (r Receipt) Decrement(id string) error {
	item := r.Find(id)
	if item == nil {
		return fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	if item.Count <= 1 {
		return nil
	}
	item.Price = Share(item.Price, item.Count-1, item.Count)
	item.Count--
	return nil
}

// Rename ...
func (r Receipt) Rename(id, name string) error {
	item := r.Find(id)
	if item == nil {
		return fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	name = NormalizeName(name)
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidItem)
	}
	item.Name = name
	return nil
}

// SetPrice ...
func (r Receipt) SetPrice(id string, price PriceInCents) error {
	item := r.Find(id)
	if item == nil {
		return fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	item.Price = price
	return nil
}

// Add appends a blank single-unit item and returns the new receipt.
func (r Receipt) Add(name string, price PriceInCents) (Receipt, *ReceiptItem) {
	item := &ReceiptItem{
		ID:    NewItemID(),
		Name:  NormalizeName(name),
		Count: 1,
		Price: price,
	}
	return append(r, item), item
}

// Remove drops the item with the given ID.
func (r Receipt) Remove(id string) (Receipt, error) {
	i := r.IndexOf(id)
	if i < 0 {
		return r, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	out := make(Receipt, 0, len(r)-1)
	out = append(out, r[:i]...)
	return append(out, r[i+1:]...), nil
}

// Apply performs edit on the item with the given ID.
func (r Receipt) Apply(id string, edit *ItemEdit) error {
	switch edit.Op {
	case EditIncrement:
		return r.Increment(id)
	case EditDecrement:
		return r.Decrement(id)
	case EditRename:
		return r.Rename(id, edit.Name)
	case EditSetPrice:
		if edit.Price == nil {
			return fmt.Errorf("%w: price_cents is required", ErrInvalidItem)
		}
		return r.SetPrice(id, *edit.Price)
	default:
		return fmt.Errorf("%w: unsupported edit %q", ErrInvalidItem, edit.Op)
	}
}
