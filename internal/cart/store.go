package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps carts in Redis keyed by the anonymous session token. Every
// read and write refreshes the sliding TTL, so active carts never expire
// mid-session.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
}

func key(token string) string { return "cart:" + token }

func (s *Store) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return 7 * 24 * time.Hour
}

// Get loads the cart for token. A missing or expired key yields a fresh
// empty cart, never an error.
func (s *Store) Get(ctx context.Context, token string) (Cart, error) {
	if s == nil || s.Client == nil {
		return Cart{}, errors.New("cart: store is not configured")
	}
	data, err := s.Client.Get(ctx, key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, nil
		}
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}

	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		// A corrupt payload is unrecoverable; start over rather than fail
		// every subsequent request for this token.
		return Cart{}, nil
	}
	_ = s.Client.Expire(ctx, key(token), s.ttl()).Err()
	return c, nil
}

// Save persists the cart and resets its TTL.
func (s *Store) Save(ctx context.Context, token string, c Cart) error {
	if s == nil || s.Client == nil {
		return errors.New("cart: store is not configured")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.Client.Set(ctx, key(token), data, s.ttl()).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Clear deletes the stored cart. The session token stays valid; the next
// read sees an empty cart.
func (s *Store) Clear(ctx context.Context, token string) error {
	if s == nil || s.Client == nil {
		return errors.New("cart: store is not configured")
	}
	if err := s.Client.Del(ctx, key(token)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
