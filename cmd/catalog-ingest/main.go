// Command catalog-ingest cross-checks huge supplier stock feeds and restocks
// the catalog. Each feed is a gzip file with one SKU per line; a SKU counts as
// confirmed when at least two of the three suppliers list it. Confirmed SKUs
// matching an existing product get a quantity bump, unknown SKUs are created
// as placeholder products.
//
// The feeds are far too large to hold in memory, so the ingest runs two
// streaming passes: pass 1 builds a bloom filter per feed, pass 2 re-streams
// each feed and tests codes against the other feeds' filters.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/KaltrinaI/WebStoreManagement/internal/storage/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	numFeeds      = 3
	progressEvery = 10_000_000
	minSKULen     = 6
	maxSKULen     = 24

	restockQuantity = 10
)

// placeholderPrice is assigned to products created from a feed SKU with no
// existing catalog entry; merchandising reprices them later.
var placeholderPrice = decimal.NewFromInt(20)

// feedResult holds candidate SKUs found in a single feed during pass 2.
type feedResult struct {
	candidates map[string]uint
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing stockfeedN.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	feeds := make([]string, numFeeds)
	for i := range numFeeds {
		feeds[i] = filepath.Join(dataDir, fmt.Sprintf("stockfeed%d.gz", i+1))
	}
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check feed %s", f)
		}
	}

	// Pass 1: build bloom filters concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("feeds", numFeeds))

	filters, err := buildBloomFilters(ctx, feeds)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: find SKUs listed by 2+ suppliers.
	slog.Info("pass 2: finding confirmed SKUs")

	confirmed, err := findConfirmedSKUs(ctx, feeds, filters)
	if err != nil {
		return errors.Wrap(err, "find confirmed SKUs")
	}

	slog.Info("confirmed SKUs found", slog.Int("count", len(confirmed)))

	if len(confirmed) == 0 {
		slog.Info("no confirmed SKUs to restock")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := restock(ctx, pool, confirmed); err != nil {
		return errors.Wrap(err, "restock catalog")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per feed, concurrently.
func buildBloomFilters(ctx context.Context, feeds []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(buildFilterForFeed(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFeed(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(sku string) {
			if len(sku) >= minSKULen && len(sku) <= maxSKULen {
				filter.AddString(sku)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress",
						slog.Int("feed", idx+1),
						slog.Uint64("skus", count),
					)
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for feed %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_skus", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findConfirmedSKUs re-streams each feed and checks SKUs against OTHER feeds'
// bloom filters. A SKU is confirmed when it appears in 2 or more feeds.
func findConfirmedSKUs(ctx context.Context, feeds []string, filters []*bloom.BloomFilter) ([]string, error) {
	results := make([]feedResult, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(findCandidatesInFeed(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge bitmasks from all feeds.
	merged := make(map[string]uint)
	for _, r := range results {
		for sku, mask := range r.candidates {
			merged[sku] |= mask
		}
	}

	// Keep SKUs appearing in 2+ feeds.
	var confirmed []string
	for sku, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			confirmed = append(confirmed, sku)
		}
	}

	return confirmed, nil
}

func findCandidatesInFeed(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []feedResult,
) func() error {
	return func() error {
		candidates := make(map[string]uint)
		feedBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(sku string) {
			if len(sku) < minSKULen || len(sku) > maxSKULen {
				return
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("feed", idx+1),
					slog.Uint64("skus", count),
				)
			}

			// Check if this SKU appears in any OTHER feed's bloom filter.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(sku) {
					candidates[sku] |= feedBit
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan feed %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_skus", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = feedResult{candidates: candidates}
		return nil
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(sku string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

const (
	restockSQL = `UPDATE products SET quantity = quantity + $2 WHERE name = $1`

	createPlaceholderSQL = `INSERT INTO products (name, description, price, quantity, category_id, brand_id, gender_id, color_id, size_id)
		VALUES ($1, 'Pending merchandising review', $2, $3, $4, $5, $6, $7, $8)`
)

// restock bumps quantities for known products and creates placeholders for
// unknown confirmed SKUs.
func restock(ctx context.Context, pool *pgxpool.Pool, skus []string) error {
	slog.Info("restocking catalog", slog.Int("count", len(skus)))

	dims, err := placeholderDimensions(ctx, pool)
	if err != nil {
		return err
	}

	var restocked, created int
	for i, sku := range skus {
		tag, err := pool.Exec(ctx, restockSQL, sku, restockQuantity)
		if err != nil {
			return errors.Wrapf(err, "restock product %s", sku)
		}
		if tag.RowsAffected() > 0 {
			restocked++
		} else {
			if _, err := pool.Exec(ctx, createPlaceholderSQL,
				sku, placeholderPrice, restockQuantity,
				dims[0], dims[1], dims[2], dims[3], dims[4],
			); err != nil {
				return errors.Wrapf(err, "create placeholder product %s", sku)
			}
			created++
		}

		if (i+1)%100 == 0 || i+1 == len(skus) {
			slog.Info("restock progress", slog.Int("processed", i+1), slog.Int("total", len(skus)))
		}
	}

	slog.Info("restock summary", slog.Int("restocked", restocked), slog.Int("created", created))
	return nil
}

// placeholderDimensions ensures every dimension table has an Unassorted row
// and returns the IDs in table order: categories, brands, genders, colors,
// sizes.
func placeholderDimensions(ctx context.Context, pool *pgxpool.Pool) ([5]int64, error) {
	tables := [5]string{"categories", "brands", "genders", "colors", "sizes"}
	var ids [5]int64
	for i, table := range tables {
		if _, err := pool.Exec(ctx,
			`INSERT INTO `+table+` (name) VALUES ('Unassorted') ON CONFLICT (name) DO NOTHING`,
		); err != nil {
			return ids, errors.Wrapf(err, "seed %s placeholder", table)
		}
		if err := pool.QueryRow(ctx,
			`SELECT id FROM `+table+` WHERE name = 'Unassorted'`,
		).Scan(&ids[i]); err != nil {
			return ids, errors.Wrapf(err, "resolve %s placeholder", table)
		}
	}
	return ids, nil
}
