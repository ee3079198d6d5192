// Command seed-db loads the catalog seed file into the database: dimension
// tables, products, and demo users. Seeding is idempotent; existing rows are
// left alone.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/KaltrinaI/WebStoreManagement/internal/storage/postgres"
)

type productJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	Gender      string          `json:"gender"`
	Color       string          `json:"color"`
	Size        string          `json:"size"`
}

type userJSON struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type catalogJSON struct {
	Products []productJSON `json:"products"`
	Users    []userJSON    `json:"users"`
}

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var catalog catalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

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

	if err := seedProducts(ctx, pool, catalog.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedUsers(ctx, pool, catalog.Users); err != nil {
		return errors.Wrap(err, "seed users")
	}

	return nil
}

const (
	insertProductSQL = `INSERT INTO products (name, description, price, quantity, category_id, brand_id, gender_id, color_id, size_id)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		WHERE NOT EXISTS (SELECT 1 FROM products WHERE name = $1)`

	upsertUserSQL = `INSERT INTO users (email, first_name, last_name) VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name`
)

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	slog.Info("seeding products", slog.Int("count", len(products)))

	for _, p := range products {
		categoryID, err := dimensionID(ctx, pool, "categories", p.Category)
		if err != nil {
			return err
		}
		brandID, err := dimensionID(ctx, pool, "brands", p.Brand)
		if err != nil {
			return err
		}
		genderID, err := dimensionID(ctx, pool, "genders", p.Gender)
		if err != nil {
			return err
		}
		colorID, err := dimensionID(ctx, pool, "colors", p.Color)
		if err != nil {
			return err
		}
		sizeID, err := dimensionID(ctx, pool, "sizes", p.Size)
		if err != nil {
			return err
		}

		tag, err := pool.Exec(ctx, insertProductSQL,
			p.Name, p.Description, p.Price, p.Quantity,
			categoryID, brandID, genderID, colorID, sizeID,
		)
		if err != nil {
			return errors.Wrapf(err, "insert product %s", p.Name)
		}
		if tag.RowsAffected() > 0 {
			slog.Info("inserted product", slog.String("name", p.Name))
		}
	}

	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, users []userJSON) error {
	slog.Info("seeding users", slog.Int("count", len(users)))

	for _, u := range users {
		if _, err := pool.Exec(ctx, upsertUserSQL, u.Email, u.FirstName, u.LastName); err != nil {
			return errors.Wrapf(err, "upsert user %s", u.Email)
		}
		slog.Info("upserted user", slog.String("email", u.Email))
	}

	return nil
}

// dimensionID resolves a dimension row by name, creating it when absent. The
// table name comes from a fixed call-site set, never user input.
func dimensionID(ctx context.Context, pool *pgxpool.Pool, table, name string) (int64, error) {
	if _, err := pool.Exec(ctx,
		`INSERT INTO `+table+` (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name,
	); err != nil {
		return 0, errors.Wrapf(err, "insert %s %q", table, name)
	}

	var id int64
	if err := pool.QueryRow(ctx,
		`SELECT id FROM `+table+` WHERE name = $1`, name,
	).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "resolve %s %q", table, name)
	}
	return id, nil
}
