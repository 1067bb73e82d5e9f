package listings

import (
	"context"
	"net/http"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/middleware"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/responses"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/validators"
	internallistings "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/listings"
	pkgAuth "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

// UpdateDelivery changes the delivery address or notes.
func UpdateDelivery(svc internallistings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.RequestActor(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body internallistings.DeliveryInfoRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.UpdateDeliveryInfo(r.Context(), actor, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listing)
	}
}

// DeliverySchedule lists the caller's upcoming and recent deliveries.
func DeliverySchedule(svc internallistings.Service, logg *logger.Logger) http.HandlerFunc {
	return runDeliveries(svc.DeliverySchedule, logg)
}

// Overdue lists the caller's deliveries past their date.
func Overdue(svc internallistings.Service, logg *logger.Logger) http.HandlerFunc {
	return runDeliveries(svc.OverdueDeliveries, logg)
}

func runDeliveries(list func(context.Context, pkgAuth.Actor) (*internallistings.DeliveriesDTO, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.RequestActor(w, r, logg)
		if !ok {
			return
		}

		deliveries, err := list(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, deliveries)
	}
}
