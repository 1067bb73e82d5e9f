package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
)

const metadataTimeout = 10 * time.Second

// TableSpec describes a table the client writes to. With a Schema the table
// is created on startup when missing, day-partitioned on PartitionField and
// clustered on ClusterBy.
type TableSpec struct {
	Name           string
	Schema         bigquery.Schema
	PartitionField string
	ClusterBy      []string
}

// normalizeSpecs trims names and drops blanks. A later spec for the same
// table replaces an earlier one.
func normalizeSpecs(specs []TableSpec) []TableSpec {
	out := make([]TableSpec, 0, len(specs))
	index := map[string]int{}
	for _, spec := range specs {
		spec.Name = strings.TrimSpace(spec.Name)
		if spec.Name == "" {
			continue
		}
		if i, ok := index[spec.Name]; ok {
			out[i] = spec
			continue
		}
		index[spec.Name] = len(out)
		out = append(out, spec)
	}
	return out
}

func (s TableSpec) metadata() *bigquery.TableMetadata {
	meta := &bigquery.TableMetadata{Schema: s.Schema}
	if s.PartitionField != "" {
		meta.TimePartitioning = &bigquery.TimePartitioning{Type: bigquery.DayPartitioningType, Field: s.PartitionField}
	}
	if len(s.ClusterBy) > 0 {
		meta.Clustering = &bigquery.Clustering{Fields: s.ClusterBy}
	}
	return meta
}

// provision verifies the dataset exists and each table is reachable. When
// create is set, missing tables with a schema are created; a concurrent
// creator winning the race is not an error.
func (c *Client) provision(ctx context.Context, create bool) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}

	for _, spec := range c.tables {
		table := c.dataset.Table(spec.Name)
		_, err := table.Metadata(ctx)
		switch {
		case err == nil:
			continue
		case !hasStatus(err, http.StatusNotFound):
			return fmt.Errorf("checking table %q: %w", spec.Name, err)
		case !create || spec.Schema == nil:
			return fmt.Errorf("table %q does not exist", spec.Name)
		}
		if err := table.Create(ctx, spec.metadata()); err != nil && !hasStatus(err, http.StatusConflict) {
			return fmt.Errorf("creating table %q: %w", spec.Name, err)
		}
	}
	return nil
}

func hasStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
