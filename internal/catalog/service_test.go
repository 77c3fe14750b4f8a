package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aloxstore/storefront/internal/cache"
)

type fakeSource struct {
	products map[int64]Product
	listErr  error
	calls    int
}

func (f *fakeSource) List(ctx context.Context, page, limit int) ([]Product, int64, error) {
	f.calls++
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	var items []Product
	for _, p := range f.products {
		items = append(items, p)
	}
	return items, int64(len(items)), nil
}

func (f *fakeSource) ByID(ctx context.Context, id int64) (Product, error) {
	f.calls++
	p, ok := f.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeSource) ByIDs(ctx context.Context, ids []int64) (map[int64]Product, error) {
	f.calls++
	out := map[int64]Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func newTestService(t *testing.T, src *fakeSource) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Service{
		Source: src,
		Cache:  cache.NewJSON(client, time.Minute),
		Logger: zerolog.Nop(),
	}
}

func TestServiceGetCaches(t *testing.T) {
	src := &fakeSource{products: map[int64]Product{
		7: {ID: 7, Title: "Mug", Slug: "mug", Published: true, PriceCents: 900, Currency: "EUR"},
	}}
	svc := newTestService(t, src)

	first, err := svc.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := svc.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected single source hit, got %d", src.calls)
	}
	if first.Title != second.Title || second.Title != "Mug" {
		t.Fatalf("cached product mismatch: %+v vs %+v", first, second)
	}
}

func TestServiceGetNotFound(t *testing.T) {
	svc := newTestService(t, &fakeSource{products: map[int64]Product{}})
	if _, err := svc.Get(context.Background(), 99); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceProductSet(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	src := &fakeSource{products: map[int64]Product{
		1: {ID: 1, PriceCents: 1000, SalePriceCents: 800, SaleStart: &start, VATRatePercent: 20, Currency: "EUR"},
	}}
	svc := newTestService(t, src)

	set, err := svc.ProductSet(context.Background(), []int64{1, 2})
	if err != nil {
		t.Fatalf("product set: %v", err)
	}
	p, ok := set[1]
	if !ok {
		t.Fatalf("product 1 missing from set")
	}
	if p.Price != 1000 || p.SalePrice != 800 || p.VATRate != 20 {
		t.Fatalf("mapped product = %+v", p)
	}
	if _, ok := set[2]; ok {
		t.Fatalf("unknown product must be absent, not zero-filled")
	}
}
