package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Cart struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	Lines         []CartLine      `json:"lines"`
	TotalQuantity int             `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
	Active        bool            `json:"active"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type CartLine struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	Snapshot  VariantSnapshot `json:"snapshot"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Active    bool            `json:"active"`
	AddedAt   time.Time       `json:"added_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewCart returns an empty, not yet persisted cart for the owner.
func NewCart(ownerID string) *Cart {
	now := time.Now().UTC()
	return &Cart{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Lines:      []CartLine{},
		TotalValue: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsNew reports whether the cart has never been written.
func (c *Cart) IsNew() bool {
	return c.Version == 0
}

// Line returns the index of the line for the product/variant pair, or -1.
func (c *Cart) Line(productID, variantID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID && c.Lines[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

// PutLine sets quantity and snapshot for the product/variant pair, appending a
// new line when the pair is not in the cart yet. Aggregates are recomputed.
func (c *Cart) PutLine(productID, variantID string, quantity int, snapshot VariantSnapshot) *CartLine {
	now := time.Now().UTC()
	i := c.Line(productID, variantID)
	if i < 0 {
		c.Lines = append(c.Lines, CartLine{
			ID:        uuid.NewString(),
			ProductID: productID,
			VariantID: variantID,
			AddedAt:   now,
		})
		i = len(c.Lines) - 1
	}
	line := &c.Lines[i]
	line.Quantity = quantity
	line.Snapshot = snapshot
	line.UpdatedAt = now
	c.Recompute()
	return &c.Lines[i]
}

// RemoveLine drops the line for the pair. It returns false when there was none.
func (c *Cart) RemoveLine(productID, variantID string) bool {
	i := c.Line(productID, variantID)
	if i < 0 {
		return false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	c.Recompute()
	return true
}

// Clear drops every line.
func (c *Cart) Clear() {
	c.Lines = []CartLine{}
	c.Recompute()
}

// RemoveInactive drops lines that are not active and returns how many went.
func (c *Cart) RemoveInactive() int {
	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if l.Active {
			kept = append(kept, l)
		}
	}
	removed := len(c.Lines) - len(kept)
	c.Lines = kept
	c.Recompute()
	return removed
}

// Recompute derives subtotals, line activity and cart totals from quantities
// and snapshots in one pass. It is idempotent.
func (c *Cart) Recompute() {
	totalQuantity := 0
	totalValue := decimal.Zero
	active := false

	for i := range c.Lines {
		l := &c.Lines[i]
		l.Subtotal = l.Snapshot.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		l.Active = l.Snapshot.Purchasable(l.Quantity)
		if !l.Active {
			continue
		}
		totalQuantity += l.Quantity
		totalValue = totalValue.Add(l.Subtotal)
		active = true
	}

	c.TotalQuantity = totalQuantity
	c.TotalValue = totalValue
	c.Active = active
}

// InactiveCount returns the number of lines excluded from totals.
func (c *Cart) InactiveCount() int {
	n := 0
	for _, l := range c.Lines {
		if !l.Active {
			n++
		}
	}
	return n
}

// Clone returns a deep copy, so callers can mutate without aliasing a cached value.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Lines = make([]CartLine, len(c.Lines))
	copy(cp.Lines, c.Lines)
	return &cp
}
