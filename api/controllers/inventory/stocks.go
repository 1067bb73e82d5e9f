package inventory

import (
	"net/http"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/middleware"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/responses"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/validators"
	internalinventory "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/inventory"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

func ListStocks(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.RequestActor(w, r, logg)
		if !ok {
			return
		}

		stocks, err := svc.ListStocks(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stocks)
	}
}

func GetStock(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
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

		stock, err := svc.GetStock(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stock)
	}
}

// RecordMovement applies an in, out, transfer or adjustment to a stock.
func RecordMovement(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body internalinventory.MovementRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movement, err := svc.RecordMovement(r.Context(), actor, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, movement)
	}
}

func ListMovements(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
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

		movements, err := svc.ListMovements(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, movements)
	}
}
