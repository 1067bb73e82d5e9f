// Package bigquery wraps the BigQuery SDK with the dataset and table checks,
// streaming inserts and parameterized reads the analytics pipeline needs.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// Client is a dataset-scoped BigQuery handle shared by the analytics writer
// and the dashboard queries.
type Client struct {
	sdk       *bigquery.Client
	dataset   *bigquery.Dataset
	projectID string
	tables    []TableSpec
}

// NewClient connects to BigQuery and provisions the dataset's tables. Tables
// missing a schema must already exist.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, specs []TableSpec, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	datasetID := strings.TrimSpace(cfg.Dataset)
	tables := normalizeSpecs(specs)
	switch {
	case projectID == "":
		return nil, errProjectIDRequired
	case datasetID == "":
		return nil, errDatasetRequired
	case len(tables) == 0:
		return nil, errTableNameRequired
	}

	sdk, err := bigquery.NewClient(ctx, projectID, credentialOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{
		sdk:       sdk,
		dataset:   sdk.Dataset(datasetID),
		projectID: projectID,
		tables:    tables,
	}
	if err := c.provision(ctx, true); err != nil {
		_ = sdk.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"dataset": datasetID,
			"tables":  len(tables),
		}), "bigquery client ready")
	}
	return c, nil
}

// credentialOptions prefers inline JSON credentials over a key file. With
// neither, the SDK falls back to application default credentials.
func credentialOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// Ping checks the dataset and every table without creating anything.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errClientNotInitialized
	}
	return c.provision(ctx, false)
}

// InsertRows streams rows into table. Rows may be structs or ValueSavers.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.sdk == nil {
		return errClientNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

// Query runs parameterized standard SQL and returns the row iterator.
func (c *Client) Query(ctx context.Context, sql string, params []bigquery.QueryParameter) (*bigquery.RowIterator, error) {
	if c == nil || c.sdk == nil {
		return nil, errClientNotInitialized
	}
	q := c.sdk.Query(sql)
	q.Parameters = params
	return q.Read(ctx)
}

// TableRef is the backtick-quoted project.dataset.table name for SQL.
func (c *Client) TableRef(table string) string {
	if c == nil || c.dataset == nil {
		return ""
	}
	return fmt.Sprintf("`%s.%s.%s`", c.projectID, c.dataset.DatasetID, strings.TrimSpace(table))
}

func (c *Client) Close() error {
	if c == nil || c.sdk == nil {
		return nil
	}
	return c.sdk.Close()
}
