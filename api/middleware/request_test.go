package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/responses"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

func TestRequestIDKeepsIncomingHeader(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = responses.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", resp.Header().Get(requestIDHeader))
}

func TestRequestIDReplacesOversizedHeader(t *testing.T) {
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDLen+1))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	got := resp.Header().Get(requestIDHeader)
	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), maxRequestIDLen)
}

func TestRequestIDReplacesControlCharacters(t *testing.T) {
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc def")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.NotEqual(t, "abc def", resp.Header().Get(requestIDHeader))
}

func TestRecovererReturnsInternalEnvelope(t *testing.T) {
	handler := RequestID(nil)(Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil harvest")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/harvests", nil)
	req.Header.Set(requestIDHeader, "req-7")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	var body responses.ErrorEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Equal(t, "req-7", body.Error.RequestID)
}

func TestRecovererRepanicsOnAbort(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.Panics(t, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequireRoleFiltersByRole(t *testing.T) {
	handler := RequireRole(nil, enums.RoleFarmer, enums.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := map[enums.UserRole]int{
		enums.RoleFarmer:         http.StatusNoContent,
		enums.RoleAdmin:          http.StatusNoContent,
		enums.RoleBuyer:          http.StatusForbidden,
		enums.RoleMinagriOfficer: http.StatusForbidden,
	}
	for role, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRole(req.Context(), string(role)))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		assert.Equal(t, want, resp.Code, "role %s", role)
	}
}
