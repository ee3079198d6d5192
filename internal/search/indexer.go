// Package search feeds product snapshots to an external full-text index.
//
// The index is a fire-and-forget collaborator: callers hand over a snapshot
// and move on. Failures are logged, never fatal, and nothing in the store
// core depends on the index being current.
package search

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Snapshot is the flattened product document sent to the index.
type Snapshot struct {
	ID              int64
	Name            string
	Description     string
	Price           decimal.Decimal
	DiscountedPrice decimal.Decimal
	Quantity        int
	Category        string
	Brand           string
	Gender          string
	Color           string
	Size            string
}

// Indexer pushes product snapshots to the search engine.
type Indexer interface {
	Index(ctx context.Context, s Snapshot) error
	Remove(ctx context.Context, productID int64) error
}

// LogIndexer is an Indexer that only records what it would have sent. It
// stands in when no search engine is configured.
type LogIndexer struct {
	lg *zap.Logger
}

var _ Indexer = (*LogIndexer)(nil)

// NewLogIndexer returns a LogIndexer writing to lg.
func NewLogIndexer(lg *zap.Logger) *LogIndexer {
	return &LogIndexer{lg: lg.Named("search")}
}

func (l *LogIndexer) Index(_ context.Context, s Snapshot) error {
	l.lg.Debug("index product",
		zap.Int64("product_id", s.ID),
		zap.String("name", s.Name),
	)
	return nil
}

func (l *LogIndexer) Remove(_ context.Context, productID int64) error {
	l.lg.Debug("remove product from index", zap.Int64("product_id", productID))
	return nil
}
