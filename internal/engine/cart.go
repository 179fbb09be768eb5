package engine

import (
	"context"
	"fmt"
	"sync"

	"kapesync/internal/model"
)

// CartLine is one item entry in an open cart.
type CartLine struct {
	ItemID   string
	Name     string
	Price    float64
	Quantity int
	// CupName links the line to a cup record for take-out orders.
	// Empty means the item needs no cup.
	CupName string
}

// Cart is the in-memory working order. Stock is reserved optimistically:
// adding a line reduces the stock a display should show, without
// touching the stored catalog until the order is finalized. Clearing or
// cancelling restores every reservation simply by dropping the lines.
type Cart struct {
	coordinator *Coordinator

	mu        sync.Mutex
	orderType model.OrderType
	customer  string
	lines     []CartLine
}

// NewCart opens an empty cart of the given type.
func (c *Coordinator) NewCart(orderType model.OrderType, customer string) (*Cart, error) {
	switch orderType {
	case model.OrderDineIn, model.OrderTakeOut:
	default:
		return nil, NewValidationError("", fmt.Sprintf("unknown order type %q", orderType))
	}
	return &Cart{coordinator: c, orderType: orderType, customer: customer}, nil
}

// reserved returns the cart quantity held against an item. Caller
// holds k.mu.
func (k *Cart) reserved(itemID string) int {
	for _, l := range k.lines {
		if l.ItemID == itemID {
			return l.Quantity
		}
	}
	return 0
}

// lookupItem finds a catalog item by id in the merged catalog.
func (k *Cart) lookupItem(ctx context.Context, itemID string) (model.CatalogItem, error) {
	items, err := k.coordinator.Items(ctx)
	if err != nil {
		return model.CatalogItem{}, err
	}
	for _, it := range items {
		if it.ID == itemID {
			return it, nil
		}
	}
	return model.CatalogItem{}, NewValidationError(itemID, "unknown item")
}

// AddLine adds quantity of an item to the cart, merging with an
// existing line for the same item. Rejected before any change when the
// item is unknown, the quantity is not positive, or stock is short.
func (k *Cart) AddLine(ctx context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return NewValidationError(itemID, "quantity must be positive")
	}
	it, err := k.lookupItem(ctx, itemID)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if it.Stocks-k.reserved(itemID) < quantity {
		return NewValidationError(itemID, fmt.Sprintf("insufficient stock: have %d, want %d more", it.Stocks-k.reserved(itemID), quantity))
	}
	for i := range k.lines {
		if k.lines[i].ItemID == itemID {
			k.lines[i].Quantity += quantity
			return nil
		}
	}
	k.lines = append(k.lines, CartLine{
		ItemID:   itemID,
		Name:     it.Name,
		Price:    it.Price,
		Quantity: quantity,
		CupName:  it.CupName,
	})
	return nil
}

// RemoveLine drops an item from the cart, restoring its reservation.
func (k *Cart) RemoveLine(itemID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.lines {
		if k.lines[i].ItemID == itemID {
			k.lines = append(k.lines[:i], k.lines[i+1:]...)
			return nil
		}
	}
	return NewValidationError(itemID, "item not in cart")
}

// SetLineQuantity replaces a line's quantity. Zero removes the line.
func (k *Cart) SetLineQuantity(ctx context.Context, itemID string, quantity int) error {
	if quantity < 0 {
		return NewValidationError(itemID, "quantity must not be negative")
	}
	if quantity == 0 {
		return k.RemoveLine(itemID)
	}
	it, err := k.lookupItem(ctx, itemID)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.lines {
		if k.lines[i].ItemID == itemID {
			if it.Stocks < quantity {
				return NewValidationError(itemID, fmt.Sprintf("insufficient stock: have %d, want %d", it.Stocks, quantity))
			}
			k.lines[i].Quantity = quantity
			return nil
		}
	}
	return NewValidationError(itemID, "item not in cart")
}

// Clear empties the cart, restoring all reservations.
func (k *Cart) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.lines = nil
}

// Lines returns a copy of the cart contents.
func (k *Cart) Lines() []CartLine {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]CartLine, len(k.lines))
	copy(out, k.lines)
	return out
}

// CupsUsed returns the cup count the cart would consume: one per
// line-unit whose item names a cup, take-out orders only.
func (k *Cart) CupsUsed() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.orderType != model.OrderTakeOut {
		return 0
	}
	n := 0
	for _, l := range k.lines {
		if l.CupName != "" {
			n += l.Quantity
		}
	}
	return n
}

// AvailableStock returns the displayed stock for an item: stored stock
// minus this cart's reservation.
func (k *Cart) AvailableStock(ctx context.Context, itemID string) (int, error) {
	it, err := k.lookupItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return it.Stocks - k.reserved(itemID), nil
}
