package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ha165/orderdesk/internal/storage/postgres"
)

type productJSON struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		adminKey     string
		customerKey  string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or ORDERDESK_SEED_ADMIN_KEY env)")
	flag.StringVar(&customerKey, "customer-key", "", "customer API key to seed (or ORDERDESK_SEED_CUSTOMER_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ORDERDESK_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminKey == "" {
		adminKey = os.Getenv("ORDERDESK_SEED_ADMIN_KEY")
	}
	if customerKey == "" {
		customerKey = os.Getenv("ORDERDESK_SEED_CUSTOMER_KEY")
	}
	if adminKey == "" || customerKey == "" {
		slog.Error("API keys are required: set --admin-key and --customer-key")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("ORDERDESK_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminKey, customerKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminKey, customerKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedUsers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed users")
	}
	if err := seedAPIKeys(ctx, pool, adminKey, customerKey, pepper); err != nil {
		return errors.Wrap(err, "seed api keys")
	}
	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedShippings(ctx, pool); err != nil {
		return errors.Wrap(err, "seed shippings")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding users")

	users := []struct {
		id, name, email, role string
	}{
		{"admin", "Administrator", "admin@orderdesk.local", "admin"},
		{"customer", "Test Customer", "customer@orderdesk.local", "customer"},
	}
	for _, u := range users {
		if _, err := pool.Exec(ctx, `
			INSERT INTO users (id, name, email, role) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = $2, email = $3, role = $4`,
			u.id, u.name, u.email, u.role); err != nil {
			return errors.Wrapf(err, "upsert user %s", u.id)
		}
		slog.Info("upserted user", slog.String("id", u.id), slog.String("role", u.role))
	}
	return nil
}

func seedAPIKeys(ctx context.Context, pool *pgxpool.Pool, adminKey, customerKey, pepper string) error {
	slog.Info("seeding API keys")

	keys := []struct {
		id, userID, name, key string
	}{
		{"admin-key", "admin", "Admin test key", adminKey},
		{"customer-key", "customer", "Customer test key", customerKey},
	}
	for _, k := range keys {
		mac := hmac.New(sha256.New, []byte(pepper))
		mac.Write([]byte(k.key))
		keyHash := hex.EncodeToString(mac.Sum(nil))

		if _, err := pool.Exec(ctx, `
			INSERT INTO api_keys (id, key_hash, user_id, name, active)
			VALUES ($1, $2, $3, $4, TRUE)
			ON CONFLICT (id) DO UPDATE SET key_hash = $2, user_id = $3, name = $4, active = TRUE`,
			k.id, keyHash, k.userID, k.name); err != nil {
			return errors.Wrapf(err, "upsert api key %s", k.id)
		}
		slog.Info("upserted API key", slog.String("id", k.id), slog.String("name", k.name))
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, `
			INSERT INTO products (id, name, price, stock) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = $2, price = $3, stock = $4`,
			p.ID, p.Name, p.Price, p.Stock); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}
	return nil
}

func seedShippings(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding shipping methods")

	shippings := []struct {
		id, typ string
		price   decimal.Decimal
	}{
		{"standard", "Standard (3-5 days)", decimal.RequireFromString("4.99")},
		{"express", "Express (1-2 days)", decimal.RequireFromString("12.99")},
		{"pickup", "Store pickup", decimal.Zero},
	}
	for _, s := range shippings {
		if _, err := pool.Exec(ctx, `
			INSERT INTO shippings (id, type, price) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET type = $2, price = $3`,
			s.id, s.typ, s.price); err != nil {
			return errors.Wrapf(err, "upsert shipping %s", s.id)
		}
		slog.Info("upserted shipping", slog.String("id", s.id))
	}
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding coupons")

	coupons := []struct {
		code, discountType string
		value              decimal.Decimal
	}{
		{"WELCOME10", "percentage", decimal.NewFromInt(10)},
		{"FIVEOFF", "fixed", decimal.NewFromInt(5)},
	}
	for _, c := range coupons {
		if _, err := pool.Exec(ctx, `
			INSERT INTO coupons (code, discount_type, value, active) VALUES ($1, $2, $3, TRUE)
			ON CONFLICT (code) DO UPDATE SET discount_type = $2, value = $3, active = TRUE`,
			c.code, c.discountType, c.value); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}
		slog.Info("upserted coupon", slog.String("code", c.code))
	}
	return nil
}
