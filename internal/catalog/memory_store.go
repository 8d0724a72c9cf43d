package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"github.com/shopspring/decimal"
)

// MemoryStore implements Store with in-memory storage
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]*domain.Product // productID -> product
}

// NewMemoryStore creates a new in-memory catalog
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]*domain.Product),
	}
}

// UpsertProduct stores a copy of the product, replacing any previous version
func (s *MemoryStore) UpsertProduct(_ context.Context, p domain.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := p
	cp.Variants = append([]domain.Variant(nil), p.Variants...)
	cp.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = &cp
	return nil
}

// GetVariant returns the current state of a variant
func (s *MemoryStore) GetVariant(ctx context.Context, productID, variantID string) (domain.Variant, error) {
	if err := ctx.Err(); err != nil {
		return domain.Variant{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[productID]
	if !exists {
		return domain.Variant{}, ErrNotFound
	}
	v, ok := p.Variant(variantID)
	if !ok {
		return domain.Variant{}, ErrNotFound
	}
	return v, nil
}

// IsProductAvailable reports the product level availability flag
func (s *MemoryStore) IsProductAvailable(ctx context.Context, productID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[productID]
	if !exists {
		return false, ErrNotFound
	}
	return p.Available, nil
}

// SetStock sets the stock level of a variant
func (s *MemoryStore) SetStock(productID, variantID string, stock int) error {
	if stock < 0 {
		return ErrInvalidStock
	}
	return s.updateVariant(productID, variantID, func(v *domain.Variant) {
		v.Stock = stock
	})
}

// SetPrice changes the price of a variant
func (s *MemoryStore) SetPrice(productID, variantID string, price decimal.Decimal) error {
	if price.IsNegative() {
		return ErrInvalidPrice
	}
	return s.updateVariant(productID, variantID, func(v *domain.Variant) {
		v.Price = price
	})
}

// SetVariantAvailable toggles a single variant
func (s *MemoryStore) SetVariantAvailable(productID, variantID string, available bool) error {
	return s.updateVariant(productID, variantID, func(v *domain.Variant) {
		v.Available = available
	})
}

// SetProductAvailable withdraws or restores a whole product
func (s *MemoryStore) SetProductAvailable(productID string, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[productID]
	if !exists {
		return ErrNotFound
	}
	p.Available = available
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// RemoveVariant deletes a variant from its product
func (s *MemoryStore) RemoveVariant(productID, variantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[productID]
	if !exists {
		return ErrNotFound
	}
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			p.Variants = append(p.Variants[:i], p.Variants[i+1:]...)
			p.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

// DeleteProduct removes a product and all its variants
func (s *MemoryStore) DeleteProduct(productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[productID]; !exists {
		return ErrNotFound
	}
	delete(s.products, productID)
	return nil
}

func (s *MemoryStore) updateVariant(productID, variantID string, fn func(v *domain.Variant)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[productID]
	if !exists {
		return ErrNotFound
	}
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			fn(&p.Variants[i])
			p.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}
