package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/aloxstore/storefront/internal/cache"
)

const cacheKey = "settings:snapshot"

// Store persists raw setting rows in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// Load reads every setting row.
func (s *Store) Load(ctx context.Context) (map[string]string, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("settings: store is not configured")
	}
	rows, err := s.Pool.Query(ctx, `SELECT key, value FROM store_settings`)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan settings: %w", err)
	}
	return out, nil
}

// Save upserts the given rows in one transaction.
func (s *Store) Save(ctx context.Context, values map[string]string) error {
	if s == nil || s.Pool == nil {
		return errors.New("settings: store is not configured")
	}
	return pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		for key, value := range values {
			if _, err := tx.Exec(ctx,
				`INSERT INTO store_settings (key, value) VALUES ($1, $2)
				 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
				key, value); err != nil {
				return fmt.Errorf("save setting %s: %w", key, err)
			}
		}
		return nil
	})
}

// RawSource abstracts the Postgres store for tests.
type RawSource interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, values map[string]string) error
}

// Service serves settings snapshots with a short-lived Redis cache, and
// invalidates it on writes.
type Service struct {
	Source RawSource
	Cache  *cache.JSON
	Logger zerolog.Logger
}

// Snapshot returns the current settings snapshot.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	var cached Snapshot
	if ok, err := s.Cache.Get(ctx, cacheKey, &cached); err != nil {
		s.Logger.Warn().Err(err).Msg("settings cache read failed")
	} else if ok {
		return cached, nil
	}

	values, err := s.Source.Load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := FromMap(values)
	if err := s.Cache.Set(ctx, cacheKey, snap); err != nil {
		s.Logger.Warn().Err(err).Msg("settings cache write failed")
	}
	return snap, nil
}

// Update persists the given keys and drops the cached snapshot.
func (s *Service) Update(ctx context.Context, values map[string]string) (Snapshot, error) {
	for key := range values {
		if !KnownKey(key) {
			return Snapshot{}, fmt.Errorf("%w: unknown setting %q", ErrUnknownKey, key)
		}
	}
	if err := s.Source.Save(ctx, values); err != nil {
		return Snapshot{}, err
	}
	if err := s.Cache.Delete(ctx, cacheKey); err != nil {
		s.Logger.Warn().Err(err).Msg("settings cache invalidation failed")
	}
	raw, err := s.Source.Load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return FromMap(raw), nil
}

// ErrUnknownKey is returned when an update names a setting that does not exist.
var ErrUnknownKey = errors.New("unknown setting")
