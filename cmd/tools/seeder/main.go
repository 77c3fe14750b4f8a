package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"github.com/aloxstore/storefront/internal/settings"
)

type demoProduct struct {
	Title     string
	Slug      string
	Price     int64
	SalePrice *int64
	VATRate   float64
	Weight    int64
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer conn.Close(ctx)

	seedProducts(ctx, conn)
	seedSettings(ctx, conn)

	log.Println("seeding completed")
}

func seedProducts(ctx context.Context, conn *pgx.Conn) {
	sale := func(v int64) *int64 { return &v }
	products := []demoProduct{
		{"Ceramic Mug", "ceramic-mug", 1490, nil, 20, 350},
		{"Linen Tote Bag", "linen-tote-bag", 2490, sale(1990), 20, 180},
		{"Olive Wood Board", "olive-wood-board", 3900, nil, 20, 900},
		{"Beeswax Candle", "beeswax-candle", 990, nil, 20, 250},
		{"Herbal Tea Sampler", "herbal-tea-sampler", 1790, nil, 5.5, 120},
		{"Cookbook: Seasonal Kitchen", "cookbook-seasonal-kitchen", 2990, nil, 5.5, 600},
		{"Notebook A5 Dotted", "notebook-a5-dotted", 1190, sale(890), 20, 210},
		{"Wool Socks", "wool-socks", 1590, nil, 20, 90},
	}

	log.Println("seeding products...")
	for _, p := range products {
		_, err := conn.Exec(ctx, `
			INSERT INTO products (title, slug, published, price_cents, sale_price_cents, vat_rate_percent, currency, weight_gram)
			VALUES ($1, $2, TRUE, $3, $4, $5, 'EUR', $6)
			ON CONFLICT (slug) DO UPDATE SET
				price_cents = EXCLUDED.price_cents,
				sale_price_cents = EXCLUDED.sale_price_cents,
				vat_rate_percent = EXCLUDED.vat_rate_percent,
				updated_at = now()`,
			p.Title, p.Slug, p.Price, p.SalePrice, p.VATRate, p.Weight)
		if err != nil {
			log.Printf("seed product %s: %v", p.Slug, err)
		}
	}
}

func seedSettings(ctx context.Context, conn *pgx.Conn) {
	defaults := map[string]string{
		settings.KeyCurrency:             "EUR",
		settings.KeyVATMode:              settings.VATModeEnabled,
		settings.KeyPricesIncludeTax:     "true",
		settings.KeyFlatRateCents:        "500",
		settings.KeyFreeShippingMinCents: "5000",
		settings.KeyVATCountry:           "FR",
		settings.KeyPaymentMode:          settings.PaymentModeTest,
	}

	log.Println("seeding settings...")
	for key, value := range defaults {
		_, err := conn.Exec(ctx, `
			INSERT INTO store_settings (key, value)
			VALUES ($1, $2)
			ON CONFLICT (key) DO NOTHING`,
			key, value)
		if err != nil {
			log.Printf("seed setting %s: %v", key, err)
		}
	}
}
