package listings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/middleware"
	internallistings "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/listings"
	pkgAuth "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/pagination"
)

// stubService embeds the interface so tests only implement what they call.
type stubService struct {
	internallistings.Service

	listing     *internallistings.ListingDTO
	payment     *internallistings.PaymentResult
	deliveries  *internallistings.DeliveriesDTO
	page        *pagination.Page[internallistings.ListingDTO]
	err         error
	lastActor   pkgAuth.Actor
	lastID      uuid.UUID
	lastClaim   internallistings.ClaimRequest
	lastPayment internallistings.RecordPaymentRequest
	lastParams  pagination.Params
	deleted     bool
}

func (s *stubService) Claim(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID, req internallistings.ClaimRequest) (*internallistings.ListingDTO, error) {
	s.lastActor, s.lastID, s.lastClaim = actor, id, req
	return s.listing, s.err
}

func (s *stubService) RecordPayment(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID, req internallistings.RecordPaymentRequest) (*internallistings.PaymentResult, error) {
	s.lastActor, s.lastID, s.lastPayment = actor, id, req
	return s.payment, s.err
}

func (s *stubService) Mine(ctx context.Context, actor pkgAuth.Actor, params pagination.Params) (*pagination.Page[internallistings.ListingDTO], error) {
	s.lastActor, s.lastParams = actor, params
	return s.page, s.err
}

func (s *stubService) Available(ctx context.Context, params pagination.Params) (*pagination.Page[internallistings.ListingDTO], error) {
	s.lastParams = params
	return s.page, s.err
}

func (s *stubService) Complete(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID) (*internallistings.ListingDTO, error) {
	s.lastActor, s.lastID = actor, id
	return s.listing, s.err
}

func (s *stubService) Delete(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID) error {
	s.lastID = id
	s.deleted = s.err == nil
	return s.err
}

func (s *stubService) ListByFarmer(ctx context.Context, actor pkgAuth.Actor, farmerID uuid.UUID, params pagination.Params) (*pagination.Page[internallistings.ListingDTO], error) {
	s.lastID, s.lastParams = farmerID, params
	return s.page, s.err
}

func (s *stubService) OverdueDeliveries(ctx context.Context, actor pkgAuth.Actor) (*internallistings.DeliveriesDTO, error) {
	s.lastActor = actor
	return s.deliveries, s.err
}

func request(method, target, body string, actorID uuid.UUID, role enums.UserRole, id string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.WithUserID(req.Context(), actorID.String())
	ctx = middleware.WithRole(ctx, string(role))
	if id != "" {
		rc := chi.NewRouteContext()
		rc.URLParams.Add("id", id)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)
	}
	return req.WithContext(ctx)
}

func TestClaimPassesBuyerAndBody(t *testing.T) {
	sellID := uuid.New()
	buyerID := uuid.New()
	svc := &stubService{listing: &internallistings.ListingDTO{ID: sellID, SellStatus: enums.SellStatusPurchased}}

	rec := httptest.NewRecorder()
	Claim(svc, nil).ServeHTTP(rec, request(http.MethodPost, "/api/v1/sells/"+sellID.String()+"/claim",
		`{"delivery_address":"Nyagatare, Eastern Province"}`, buyerID, enums.RoleBuyer, sellID.String()))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, sellID, svc.lastID)
	require.Equal(t, buyerID, svc.lastActor.UserID)
	require.Equal(t, "Nyagatare, Eastern Province", svc.lastClaim.DeliveryAddress)
}

func TestClaimRequiresAddress(t *testing.T) {
	svc := &stubService{}
	rec := httptest.NewRecorder()
	Claim(svc, nil).ServeHTTP(rec, request(http.MethodPost, "/", `{}`, uuid.New(), enums.RoleBuyer, uuid.NewString()))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, uuid.Nil, svc.lastID)
}

func TestClaimLostRaceIsStateConflict(t *testing.T) {
	svc := &stubService{err: pkgerrors.StateConflict("sell_status", "listing is no longer available for purchase")}
	rec := httptest.NewRecorder()
	Claim(svc, nil).ServeHTTP(rec, request(http.MethodPost, "/", `{"delivery_address":"Kigali"}`, uuid.New(), enums.RoleBuyer, uuid.NewString()))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Equal(t, string(pkgerrors.CodeStateConflict), envelope.Error.Code)
	require.Equal(t, "listing is no longer available for purchase", envelope.Error.Message)
}

func TestRecordPaymentDecodesAmount(t *testing.T) {
	svc := &stubService{payment: &internallistings.PaymentResult{}}
	rec := httptest.NewRecorder()
	RecordPayment(svc, nil).ServeHTTP(rec, request(http.MethodPost, "/",
		`{"amount":"125000.50","payment_method":"mobile_money","reference_number":"MM-778"}`, uuid.New(), enums.RoleFarmer, uuid.NewString()))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, svc.lastPayment.Amount.Equal(decimal.RequireFromString("125000.50")))
	require.Equal(t, enums.PaymentMethodMobileMoney, svc.lastPayment.PaymentMethod)
}

func TestRecordPaymentRejectsBadDate(t *testing.T) {
	svc := &stubService{}
	rec := httptest.NewRecorder()
	RecordPayment(svc, nil).ServeHTTP(rec, request(http.MethodPost, "/",
		`{"amount":10,"payment_method":"cash","payment_date":"12/05/2026"}`, uuid.New(), enums.RoleFarmer, uuid.NewString()))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMinePagination(t *testing.T) {
	svc := &stubService{page: &pagination.Page[internallistings.ListingDTO]{}}
	rec := httptest.NewRecorder()
	Mine(svc, nil).ServeHTTP(rec, request(http.MethodGet, "/api/v1/sells/mine?limit=10&cursor=abc", "", uuid.New(), enums.RoleFarmer, ""))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 10, svc.lastParams.Limit)
	require.Equal(t, "abc", svc.lastParams.Cursor)

	rec = httptest.NewRecorder()
	Mine(svc, nil).ServeHTTP(rec, request(http.MethodGet, "/api/v1/sells/mine?limit=0", "", uuid.New(), enums.RoleFarmer, ""))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailableIsPublicToAuthenticatedCallers(t *testing.T) {
	svc := &stubService{page: &pagination.Page[internallistings.ListingDTO]{}}
	rec := httptest.NewRecorder()
	Available(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sells/available", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, pagination.DefaultLimit, svc.lastParams.Limit)
}

func TestCompleteRequiresActor(t *testing.T) {
	svc := &stubService{}
	rec := httptest.NewRecorder()
	Complete(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteAndAdminFarmerList(t *testing.T) {
	svc := &stubService{page: &pagination.Page[internallistings.ListingDTO]{}}
	id := uuid.New()

	rec := httptest.NewRecorder()
	Delete(svc, nil).ServeHTTP(rec, request(http.MethodDelete, "/", "", uuid.New(), enums.RoleAdmin, id.String()))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, svc.deleted)

	farmerID := uuid.New()
	rec = httptest.NewRecorder()
	ListByFarmer(svc, nil).ServeHTTP(rec, request(http.MethodGet, "/", "", uuid.New(), enums.RoleMinagriOfficer, farmerID.String()))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, farmerID, svc.lastID)
}

func TestOverdueDeliveries(t *testing.T) {
	svc := &stubService{deliveries: &internallistings.DeliveriesDTO{Count: 1, Listings: []internallistings.ListingDTO{{IsDeliveryOverdue: true}}}}
	rec := httptest.NewRecorder()
	Overdue(svc, nil).ServeHTTP(rec, request(http.MethodGet, "/", "", uuid.New(), enums.RoleFarmer, ""))

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data internallistings.DeliveriesDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Equal(t, 1, envelope.Data.Count)
}
