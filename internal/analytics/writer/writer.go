// Package writer streams marketplace rows into BigQuery.
package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/types"
	pkgbigquery "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/bigquery"
)

type Config struct {
	MarketplaceTable string
	// BatchSize rows are buffered before an insert. One or less inserts
	// every row on arrival.
	BatchSize   int
	RetryPolicy RetryPolicy
}

type rowInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter buffers marketplace rows and streams them in batches. The
// event id doubles as the insert id, so BigQuery drops the second copy of a
// redelivered event. Safe for concurrent use.
type BigQueryWriter struct {
	client rowInserter
	table  string
	schema cbigquery.Schema
	batch  int
	retry  RetryPolicy

	mu      sync.Mutex
	pending []types.MarketplaceEventRow
}

func New(client *pkgbigquery.Client, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(cfg.MarketplaceTable)
	if table == "" {
		return nil, errors.New("marketplace table is required")
	}
	return &BigQueryWriter{
		client: client,
		table:  table,
		schema: types.MarketplaceEventSchema(),
		batch:  max(cfg.BatchSize, 1),
		retry:  cfg.RetryPolicy.normalized(),
	}, nil
}

// InsertMarketplace queues row and writes the batch once it is full. Rows
// from a failed write stay queued for the next one.
func (w *BigQueryWriter) InsertMarketplace(ctx context.Context, row types.MarketplaceEventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, row)
	if len(w.pending) < w.batch {
		return nil
	}
	return w.writePending(ctx)
}

func (w *BigQueryWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writePending(ctx)
}

// Pending is the number of queued rows not yet in BigQuery.
func (w *BigQueryWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// RunFlusher writes partial batches every interval until ctx ends so rows
// do not sit in memory during quiet hours. It returns at once for a writer
// that does not batch.
func (w *BigQueryWriter) RunFlusher(ctx context.Context, interval time.Duration, onErr func(error)) {
	if interval <= 0 || w.batch == 1 {
		return
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		if err := w.Flush(ctx); err != nil && onErr != nil {
			onErr(err)
		}
	}
}

// writePending must be called with mu held.
func (w *BigQueryWriter) writePending(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	savers := make([]any, 0, len(w.pending))
	for i := range w.pending {
		savers = append(savers, &cbigquery.StructSaver{
			Schema:   w.schema,
			InsertID: w.pending[i].EventID,
			Struct:   &w.pending[i],
		})
	}
	attempts, err := w.retry.do(ctx, func() error {
		return w.client.InsertRows(ctx, w.table, savers)
	})
	if err != nil {
		return fmt.Errorf("stream %d rows into %s (%d attempts): %w", len(savers), w.table, attempts, err)
	}
	w.pending = w.pending[:0]
	return nil
}

// EncodeJSON prepares a value for a JSON column. Raw bytes pass through
// unchanged; nil and empty input become NULL.
func EncodeJSON(v any) (cbigquery.NullJSON, error) {
	var raw []byte
	switch value := v.(type) {
	case nil:
	case cbigquery.NullJSON:
		return value, nil
	case json.RawMessage:
		raw = value
	case []byte:
		raw = value
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return cbigquery.NullJSON{}, fmt.Errorf("encode json column: %w", err)
		}
		raw = encoded
	}
	if len(raw) == 0 {
		return cbigquery.NullJSON{}, nil
	}
	return cbigquery.NullJSON{JSONVal: string(raw), Valid: true}, nil
}
