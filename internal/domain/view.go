package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reason explains why a line is excluded from the cart totals.
type Reason string

const (
	ReasonUnavailable       Reason = "UNAVAILABLE"
	ReasonOutOfStock        Reason = "OUT_OF_STOCK"
	ReasonInsufficientStock Reason = "INSUFFICIENT_STOCK"
)

// InactiveReason follows the order of the activity check: availability, then
// stock, then quantity against stock. Active lines have no reason.
func InactiveReason(l CartLine) Reason {
	switch {
	case !l.Snapshot.Available:
		return ReasonUnavailable
	case l.Snapshot.Stock <= 0:
		return ReasonOutOfStock
	case l.Quantity > l.Snapshot.Stock:
		return ReasonInsufficientStock
	default:
		return ""
	}
}

type CartView struct {
	CartID        string          `json:"cart_id,omitempty"`
	OwnerID       string          `json:"owner_id"`
	ActiveItems   []LineView      `json:"active_items"`
	InactiveItems []LineView      `json:"inactive_items"`
	TotalQuantity int             `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
	Active        bool            `json:"active"`
	Version       int64           `json:"version"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type LineView struct {
	LineID    string          `json:"line_id"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Variant   VariantSnapshot `json:"variant"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Active    bool            `json:"active"`
	Reason    Reason          `json:"reason,omitempty"`
}

// NewView partitions the cart into active and inactive items. It reads the
// stored state as is and never talks to the catalog.
func NewView(c *Cart) *CartView {
	v := &CartView{
		ActiveItems:   []LineView{},
		InactiveItems: []LineView{},
		TotalValue:    decimal.Zero,
	}
	if c == nil {
		return v
	}

	v.CartID = c.ID
	v.OwnerID = c.OwnerID
	v.TotalQuantity = c.TotalQuantity
	v.TotalValue = c.TotalValue
	v.Active = c.Active
	v.Version = c.Version
	v.UpdatedAt = c.UpdatedAt

	for _, l := range c.Lines {
		lv := LineView{
			LineID:    l.ID,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Variant:   l.Snapshot,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal,
			Active:    l.Active,
		}
		if l.Active {
			v.ActiveItems = append(v.ActiveItems, lv)
			continue
		}
		lv.Reason = InactiveReason(l)
		v.InactiveItems = append(v.InactiveItems, lv)
	}
	return v
}

// EmptyView is what an owner without a cart sees.
func EmptyView(ownerID string) *CartView {
	v := NewView(nil)
	v.OwnerID = ownerID
	return v
}
