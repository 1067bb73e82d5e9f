package inventory

import (
	"net/http"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/middleware"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/responses"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/validators"
	internalinventory "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/inventory"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

// CreateHarvest records a harvest and opens its stock.
func CreateHarvest(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.RequestActor(w, r, logg)
		if !ok {
			return
		}

		var body internalinventory.CreateHarvestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		harvest, err := svc.CreateHarvest(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, harvest)
	}
}

// ListHarvests pages the caller's harvests, or all for staff.
func ListHarvests(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.RequestActor(w, r, logg)
		if !ok {
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListHarvests(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

func GetHarvest(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
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

		harvest, err := svc.GetHarvest(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, harvest)
	}
}

// DeleteHarvest removes a harvest that was never listed.
func DeleteHarvest(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
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

		if err := svc.DeleteHarvest(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
