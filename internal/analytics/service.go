package analytics

import (
	"context"
	"fmt"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/query"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/types"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/bigquery"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
)

// Service provides analytics reports based on marketplace events.
type Service interface {
	// Query returns marketplace KPIs. Staff may scope to any farmer or none;
	// farmers always see their own listings only.
	Query(ctx context.Context, actor auth.Actor, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error)
}

type service struct {
	marketplace query.MarketplaceService
}

// NewService builds an analytics service backed by BigQuery.
func NewService(client *bigquery.Client, table string) (Service, error) {
	marketplace, err := query.NewMarketplaceService(client, table)
	if err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}
	return &service{marketplace: marketplace}, nil
}

func (s *service) Query(ctx context.Context, actor auth.Actor, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error) {
	switch {
	case actor.IsStaff():
	case actor.Role == enums.RoleFarmer:
		own := actor.UserID
		req.FarmerID = &own
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "analytics are available to farmers and staff only")
	}
	return s.marketplace.Query(ctx, req)
}
