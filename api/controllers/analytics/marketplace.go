package analytics

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/middleware"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/responses"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/analytics/types"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

// MarketplaceAnalytics serves the marketplace KPI dashboard.
func MarketplaceAnalytics(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, ok := middleware.RequestActor(w, r, logg)
		if !ok {
			return
		}

		span, err := parseWindow(r.URL.Query(), clock())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		req := types.MarketplaceQueryRequest{Start: span.start, End: span.end}
		if raw := strings.TrimSpace(r.URL.Query().Get("farmer_id")); raw != "" {
			farmerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Validation("farmer_id", "must be a valid uuid"))
				return
			}
			req.FarmerID = &farmerID
		}

		result, err := service.Query(ctx, actor, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
