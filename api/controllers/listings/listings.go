package listings

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/middleware"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/responses"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/validators"
	internallistings "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/listings"
	pkgAuth "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/pagination"
)

type pageFunc func(ctx context.Context, actor pkgAuth.Actor, params pagination.Params) (*pagination.Page[internallistings.ListingDTO], error)

type idAction func(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID) (*internallistings.ListingDTO, error)

// Create posts a listing from the farmer's stock.
func Create(svc internallistings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.RequestActor(w, r, logg)
		if !ok {
			return
		}

		var body internallistings.CreateListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Create(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

// Update patches a posted listing.
func Update(svc internallistings.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body internallistings.UpdateListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Update(r.Context(), actor, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listing)
	}
}

// Delete removes a posted listing with no payments.
func Delete(svc internallistings.Service, logg *logger.Logger) http.HandlerFunc {
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

		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// Detail returns one listing subject to visibility rules.
func Detail(svc internallistings.Service, logg *logger.Logger) http.HandlerFunc {
	return runIDAction(svc.Get, http.StatusOK, logg)
}

// Complete confirms delivery of a purchased listing.
func Complete(svc internallistings.Service, logg *logger.Logger) http.HandlerFunc {
	return runIDAction(svc.Complete, http.StatusOK, logg)
}

// Cancel withdraws an unpaid listing.
func Cancel(svc internallistings.Service, logg *logger.Logger) http.HandlerFunc {
	return runIDAction(svc.Cancel, http.StatusOK, logg)
}

// Available lists posted listings open to buyers.
func Available(svc internallistings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.Available(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// Mine lists the calling farmer's listings.
func Mine(svc internallistings.Service, logg *logger.Logger) http.HandlerFunc {
	return runPage(svc.Mine, logg)
}

// Claimed lists the calling buyer's claims.
func Claimed(svc internallistings.Service, logg *logger.Logger) http.HandlerFunc {
	return runPage(svc.Claimed, logg)
}

// ListAll lists every listing for staff.
func ListAll(svc internallistings.Service, logg *logger.Logger) http.HandlerFunc {
	return runPage(svc.ListAll, logg)
}

// ListByFarmer lists one farmer's listings for staff.
func ListByFarmer(svc internallistings.Service, logg *logger.Logger) http.HandlerFunc {
	return runScopedPage(svc.ListByFarmer, logg)
}

// ListByBuyer lists one buyer's claims for staff.
func ListByBuyer(svc internallistings.Service, logg *logger.Logger) http.HandlerFunc {
	return runScopedPage(svc.ListByBuyer, logg)
}

func runIDAction(action idAction, status int, logg *logger.Logger) http.HandlerFunc {
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

		listing, err := action(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, status, listing)
	}
}

func runPage(list pageFunc, logg *logger.Logger) http.HandlerFunc {
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

		page, err := list(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

func runScopedPage(list func(context.Context, pkgAuth.Actor, uuid.UUID, pagination.Params) (*pagination.Page[internallistings.ListingDTO], error), logg *logger.Logger) http.HandlerFunc {
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

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := list(r.Context(), actor, id, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}
