package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog's view of a sellable item. Variants keep their
// catalog order.
type Product struct {
	ID        string
	Name      string
	Available bool
	Variants  []Variant
	UpdatedAt time.Time
}

// Variant is a purchasable option of a product (size, pack, weight...).
type Variant struct {
	ID        string
	Type      string
	Price     decimal.Decimal
	Stock     int
	Available bool
}

// Variant returns a copy of the variant with the given id.
func (p *Product) Variant(variantID string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == variantID {
			return v, true
		}
	}
	return Variant{}, false
}

// Snapshot captures the variant facts a cart line caches.
func (v Variant) Snapshot() VariantSnapshot {
	return VariantSnapshot{
		Type:      v.Type,
		Price:     v.Price,
		Stock:     v.Stock,
		Available: v.Available,
	}
}

// VariantSnapshot is the point-in-time copy of variant facts stored on a cart line.
type VariantSnapshot struct {
	Type      string          `json:"type"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Available bool            `json:"available"`
}

// Equal compares every field, using decimal equality for the price.
func (s VariantSnapshot) Equal(o VariantSnapshot) bool {
	return s.Type == o.Type &&
		s.Price.Equal(o.Price) &&
		s.Stock == o.Stock &&
		s.Available == o.Available
}

// Purchasable reports whether quantity units can be bought under this snapshot.
func (s VariantSnapshot) Purchasable(quantity int) bool {
	return s.Available && s.Stock > 0 && quantity <= s.Stock
}

// Withdrawn returns the snapshot a line keeps once its variant can no longer
// be resolved: type and price stay as last seen, stock and availability drop.
func (s VariantSnapshot) Withdrawn() VariantSnapshot {
	s.Stock = 0
	s.Available = false
	return s
}
