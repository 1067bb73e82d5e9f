package purchases

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/middleware"
	internalpurchases "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/purchases"
	pkgAuth "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
)

type stubService struct {
	internalpurchases.Service

	purchase    *internalpurchases.PurchaseDTO
	result      *internalpurchases.PaymentResult
	payments    *internalpurchases.PaymentsDTO
	list        []internalpurchases.PurchaseDTO
	err         error
	lastActor   pkgAuth.Actor
	lastID      uuid.UUID
	lastCreate  internalpurchases.CreatePurchaseRequest
	lastPayment internalpurchases.MakePaymentRequest
	lastStatus  internalpurchases.UpdateStatusRequest
}

func (s *stubService) Create(ctx context.Context, actor pkgAuth.Actor, req internalpurchases.CreatePurchaseRequest) (*internalpurchases.PurchaseDTO, error) {
	s.lastActor, s.lastCreate = actor, req
	return s.purchase, s.err
}

func (s *stubService) MakePayment(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID, req internalpurchases.MakePaymentRequest) (*internalpurchases.PaymentResult, error) {
	s.lastActor, s.lastID, s.lastPayment = actor, id, req
	return s.result, s.err
}

func (s *stubService) UpdateStatus(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID, req internalpurchases.UpdateStatusRequest) (*internalpurchases.PurchaseDTO, error) {
	s.lastID, s.lastStatus = id, req
	return s.purchase, s.err
}

func (s *stubService) Payments(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID) (*internalpurchases.PaymentsDTO, error) {
	s.lastID = id
	return s.payments, s.err
}

func (s *stubService) ListForFarmer(ctx context.Context, actor pkgAuth.Actor) ([]internalpurchases.PurchaseDTO, error) {
	s.lastActor = actor
	return s.list, s.err
}

func request(method, body string, role enums.UserRole, id string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithRole(ctx, string(role))
	if id != "" {
		rc := chi.NewRouteContext()
		rc.URLParams.Add("id", id)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)
	}
	return req.WithContext(ctx)
}

func TestCreatePurchase(t *testing.T) {
	sellID := uuid.New()
	svc := &stubService{purchase: &internalpurchases.PurchaseDTO{SellID: sellID}}

	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, request(http.MethodPost,
		`{"sell_id":"`+sellID.String()+`","delivery_address":"Musanze"}`, enums.RoleBuyer, ""))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, sellID, svc.lastCreate.SellID)
	require.Equal(t, enums.RoleBuyer, svc.lastActor.Role)
}

func TestMakePaymentGatewayDeclined(t *testing.T) {
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeGateway, "payment was declined")}
	id := uuid.New()

	rec := httptest.NewRecorder()
	MakePayment(svc, nil).ServeHTTP(rec, request(http.MethodPost,
		`{"amount":50000,"payment_method":"paypack","phone_number":"0788000111"}`, enums.RoleBuyer, id.String()))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, id, svc.lastID)
	require.True(t, svc.lastPayment.Amount.Equal(decimal.NewFromInt(50000)))
	require.Equal(t, "0788000111", svc.lastPayment.PhoneNumber)
}

func TestMakePaymentGatewayUnreachable(t *testing.T) {
	svc := &stubService{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp: timeout"), "payment gateway unavailable")}

	rec := httptest.NewRecorder()
	MakePayment(svc, nil).ServeHTTP(rec, request(http.MethodPost,
		`{"amount":50000,"payment_method":"paypack","phone_number":"0788000111"}`, enums.RoleBuyer, uuid.NewString()))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMakePaymentRequiresMethod(t *testing.T) {
	svc := &stubService{}
	rec := httptest.NewRecorder()
	MakePayment(svc, nil).ServeHTTP(rec, request(http.MethodPost, `{"amount":100}`, enums.RoleBuyer, uuid.NewString()))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, uuid.Nil, svc.lastID)
}

func TestUpdateStatus(t *testing.T) {
	svc := &stubService{purchase: &internalpurchases.PurchaseDTO{}}
	rec := httptest.NewRecorder()
	UpdateStatus(svc, nil).ServeHTTP(rec, request(http.MethodPatch, `{"status":"delivered"}`, enums.RoleFarmer, uuid.NewString()))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, enums.PurchaseStatusDelivered, svc.lastStatus.Status)
}

func TestPaymentsAndFarmerList(t *testing.T) {
	svc := &stubService{
		payments: &internalpurchases.PaymentsDTO{Count: 0},
		list:     []internalpurchases.PurchaseDTO{{}},
	}
	id := uuid.New()

	rec := httptest.NewRecorder()
	Payments(svc, nil).ServeHTTP(rec, request(http.MethodGet, "", enums.RoleBuyer, id.String()))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, id, svc.lastID)

	rec = httptest.NewRecorder()
	ForFarmer(svc, nil).ServeHTTP(rec, request(http.MethodGet, "", enums.RoleFarmer, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, enums.RoleFarmer, svc.lastActor.Role)
}
