package cart

import (
	"context"
	"errors"
)

// Service applies the cart mutation protocol on top of the Redis store.
// Mutations are load-modify-save per token; the last writer wins, which is
// acceptable for a single shopper driving their own cart.
type Service struct {
	Store *Store
}

func (s *Service) guard() error {
	if s == nil || s.Store == nil {
		return errors.New("cart: service is not configured")
	}
	return nil
}

// Get returns the current cart for token.
func (s *Service) Get(ctx context.Context, token string) (Cart, error) {
	if err := s.guard(); err != nil {
		return Cart{}, err
	}
	return s.Store.Get(ctx, token)
}

// Add merges qty of productID into the cart.
func (s *Service) Add(ctx context.Context, token string, productID int64, qty int) (Cart, error) {
	if err := s.guard(); err != nil {
		return Cart{}, err
	}
	c, err := s.Store.Get(ctx, token)
	if err != nil {
		return Cart{}, err
	}
	c.Add(productID, qty)
	if err := s.Store.Save(ctx, token, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// SetQty replaces a line quantity; qty <= 0 removes the line.
func (s *Service) SetQty(ctx context.Context, token string, productID int64, qty int) (Cart, error) {
	if err := s.guard(); err != nil {
		return Cart{}, err
	}
	c, err := s.Store.Get(ctx, token)
	if err != nil {
		return Cart{}, err
	}
	c.SetQty(productID, qty)
	if err := s.Store.Save(ctx, token, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Remove drops a line.
func (s *Service) Remove(ctx context.Context, token string, productID int64) (Cart, error) {
	if err := s.guard(); err != nil {
		return Cart{}, err
	}
	c, err := s.Store.Get(ctx, token)
	if err != nil {
		return Cart{}, err
	}
	c.Remove(productID)
	if err := s.Store.Save(ctx, token, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Clear empties the cart while keeping the session token valid.
func (s *Service) Clear(ctx context.Context, token string) (Cart, error) {
	if err := s.guard(); err != nil {
		return Cart{}, err
	}
	if err := s.Store.Clear(ctx, token); err != nil {
		return Cart{}, err
	}
	return Cart{}, nil
}

// SetCustomer writes the checkout snapshot onto the cart.
func (s *Service) SetCustomer(ctx context.Context, token string, customer Customer) (Cart, error) {
	if err := s.guard(); err != nil {
		return Cart{}, err
	}
	c, err := s.Store.Get(ctx, token)
	if err != nil {
		return Cart{}, err
	}
	c.Customer = &customer
	if err := s.Store.Save(ctx, token, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}
