package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartSummary is the admin listing row for one cart.
type CartSummary struct {
	CartID        string          `json:"cart_id"`
	OwnerID       string          `json:"owner_id"`
	TotalLines    int             `json:"total_lines"`
	ActiveLines   int             `json:"active_lines"`
	TotalQuantity int             `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Lines         []LineSummary   `json:"lines"`
}

type LineSummary struct {
	ProductID   string          `json:"product_id"`
	VariantType string          `json:"variant_type"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Active      bool            `json:"active"`
	Stock       int             `json:"stock"`
}

func Summarize(c *Cart) CartSummary {
	s := CartSummary{
		CartID:        c.ID,
		OwnerID:       c.OwnerID,
		TotalLines:    len(c.Lines),
		ActiveLines:   len(c.Lines) - c.InactiveCount(),
		TotalQuantity: c.TotalQuantity,
		TotalValue:    c.TotalValue,
		UpdatedAt:     c.UpdatedAt,
		Lines:         make([]LineSummary, 0, len(c.Lines)),
	}
	for _, l := range c.Lines {
		s.Lines = append(s.Lines, LineSummary{
			ProductID:   l.ProductID,
			VariantType: l.Snapshot.Type,
			Quantity:    l.Quantity,
			Price:       l.Snapshot.Price,
			Subtotal:    l.Subtotal,
			Active:      l.Active,
			Stock:       l.Snapshot.Stock,
		})
	}
	return s
}

// Page is one page of admin cart summaries.
type Page struct {
	TotalItems  int64         `json:"total_items"`
	TotalPages  int64         `json:"total_pages"`
	CurrentPage int           `json:"current_page"`
	Carts       []CartSummary `json:"carts"`
}
