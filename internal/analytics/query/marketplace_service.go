// Package query reads the marketplace dashboard out of BigQuery.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cloudbigquery "cloud.google.com/go/bigquery"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/types"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/bigquery"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
)

// maxWindow bounds one dashboard request so scans stay predictable.
const maxWindow = 366 * 24 * time.Hour

// parallelQueries caps concurrent BigQuery jobs per dashboard request.
const parallelQueries = 4

// seriesSQL: 1 measure, 2 table, 3 scope.
const seriesSQL = `
SELECT FORMAT_DATE('%%F', DATE(occurred_at)) AS day, %[1]s AS value
FROM %[2]s
WHERE %[3]s
  AND event_type = @eventType
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day`

// rankingSQL: 1 label column, 2 summed column, 3 table, 4 scope, 5 limit.
const rankingSQL = `
SELECT %[1]s AS label, SUM(COALESCE(%[2]s, 0)) AS value
FROM %[3]s
WHERE %[4]s
  AND %[1]s IS NOT NULL
  AND event_type = @eventType
  AND occurred_at BETWEEN @start AND @end
GROUP BY label
ORDER BY value DESC
%[5]s`

// averagePriceSQL: 1 table, 2 scope.
const averagePriceSQL = `
SELECT SAFE_DIVIDE(SUM(COALESCE(total_amount, 0)), NULLIF(SUM(COALESCE(quantity_kg, 0)), 0)) AS value
FROM %[1]s
WHERE %[2]s
  AND event_type = 'listing_completed'
  AND occurred_at BETWEEN @start AND @end`

// exceptionsSQL: 1 table, 2 scope.
const exceptionsSQL = `
SELECT
  COUNTIF(event_type = 'payment_failed') AS failed_payments,
  COUNTIF(event_type = 'delivery_overdue') AS overdue_notices
FROM %[1]s
WHERE %[2]s
  AND occurred_at BETWEEN @start AND @end`

// farmerScopeSQL narrows rows to one farmer's listings. Payment rows have
// no farmer column, so the match goes through the listing_posted row.
const farmerScopeSQL = `sell_id IN (
  SELECT sell_id FROM %s WHERE event_type = 'listing_posted' AND farmer_id = @farmerID
)`

type MarketplaceService interface {
	Query(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error)
}

type queryRunner interface {
	Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (*cloudbigquery.RowIterator, error)
}

type marketplaceService struct {
	client queryRunner
	table  string
}

func NewMarketplaceService(client *bigquery.Client, table string) (MarketplaceService, error) {
	switch {
	case client == nil:
		return nil, errors.New("bigquery client required")
	case strings.TrimSpace(table) == "":
		return nil, errors.New("marketplace events table required")
	}
	return &marketplaceService{client: client, table: client.TableRef(table)}, nil
}

// Query runs the dashboard queries concurrently. The first failure cancels
// the rest.
func (s *marketplaceService) Query(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	scope := s.scope(req)
	window := windowParams(req)
	var out types.MarketplaceQueryResponse

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelQueries)

	series := func(dst *[]types.TimeSeriesPoint, measure, eventType string) {
		g.Go(func() error {
			sql := fmt.Sprintf(seriesSQL, measure, s.table, scope)
			return readAll(ctx, s, dst, sql, withEventType(window, eventType))
		})
	}
	ranking := func(dst *[]types.LabelValue, label, summed, eventType, limit string) {
		g.Go(func() error {
			sql := fmt.Sprintf(rankingSQL, label, summed, s.table, scope, limit)
			return readAll(ctx, s, dst, sql, withEventType(window, eventType))
		})
	}

	series(&out.ListingsPosted, "CAST(COUNT(*) AS FLOAT64)", "listing_posted")
	series(&out.ListingsClaimed, "CAST(COUNT(*) AS FLOAT64)", "listing_claimed")
	series(&out.PaymentsCollected, "SUM(COALESCE(amount, 0))", "listing_payment_recorded")
	series(&out.DeliveredKg, "SUM(COALESCE(quantity_kg, 0))", "listing_completed")
	ranking(&out.TopFarmers, "farmer_id", "total_amount", "listing_completed", "LIMIT 5")
	ranking(&out.PaymentMethods, "payment_method", "amount", "listing_payment_recorded", "")

	g.Go(func() error {
		var row struct {
			Value cloudbigquery.NullFloat64 `bigquery:"value"`
		}
		if err := s.readOne(ctx, &row, fmt.Sprintf(averagePriceSQL, s.table, scope), window); err != nil {
			return err
		}
		if row.Value.Valid {
			out.AveragePricePerKg = row.Value.Float64
		}
		return nil
	})
	g.Go(func() error {
		var row struct {
			FailedPayments int64 `bigquery:"failed_payments"`
			OverdueNotices int64 `bigquery:"overdue_notices"`
		}
		if err := s.readOne(ctx, &row, fmt.Sprintf(exceptionsSQL, s.table, scope), window); err != nil {
			return err
		}
		out.FailedPayments, out.OverdueNotices = row.FailedPayments, row.OverdueNotices
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func validateRequest(req types.MarketplaceQueryRequest) error {
	switch {
	case req.Start.IsZero() || req.End.IsZero():
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	case req.End.Before(req.Start):
		return pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	case req.End.Sub(req.Start) > maxWindow:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("window must not exceed %d days", int(maxWindow.Hours()/24)))
	}
	return nil
}

func (s *marketplaceService) scope(req types.MarketplaceQueryRequest) string {
	if req.FarmerID == nil {
		return "TRUE"
	}
	return fmt.Sprintf(farmerScopeSQL, s.table)
}

func windowParams(req types.MarketplaceQueryRequest) []cloudbigquery.QueryParameter {
	params := []cloudbigquery.QueryParameter{
		{Name: "start", Value: req.Start.UTC()},
		{Name: "end", Value: req.End.UTC()},
	}
	if req.FarmerID != nil {
		params = append(params, cloudbigquery.QueryParameter{Name: "farmerID", Value: req.FarmerID.String()})
	}
	return params
}

// withEventType returns a copy; the window slice is shared by goroutines.
func withEventType(window []cloudbigquery.QueryParameter, eventType string) []cloudbigquery.QueryParameter {
	params := make([]cloudbigquery.QueryParameter, len(window), len(window)+1)
	copy(params, window)
	return append(params, cloudbigquery.QueryParameter{Name: "eventType", Value: eventType})
}

// readAll scans every result row into dst. An empty result leaves an empty,
// non-nil slice so the JSON body shows [] rather than null.
func readAll[T any](ctx context.Context, s *marketplaceService, dst *[]T, sql string, params []cloudbigquery.QueryParameter) error {
	it, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "run dashboard query")
	}
	rows := []T{}
	for {
		var row T
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read dashboard row")
		}
		rows = append(rows, row)
	}
	*dst = rows
	return nil
}

// readOne scans the first row into dst. No rows leaves dst untouched.
func (s *marketplaceService) readOne(ctx context.Context, dst any, sql string, params []cloudbigquery.QueryParameter) error {
	it, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "run dashboard query")
	}
	if err := it.Next(dst); err != nil && !errors.Is(err, iterator.Done) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read dashboard row")
	}
	return nil
}
