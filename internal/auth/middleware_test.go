package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"enginefleet/internal/auth"

	"github.com/stretchr/testify/assert"
)

func ok(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func TestMiddlewareMissingHeaderIs401(t *testing.T) {
	m := auth.NewMiddleware("secret")
	req := httptest.NewRequest(http.MethodGet, "/instances", nil)
	rec := httptest.NewRecorder()

	m.Handler(http.HandlerFunc(ok)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareWrongTokenIs403(t *testing.T) {
	m := auth.NewMiddleware("secret")
	req := httptest.NewRequest(http.MethodGet, "/instances", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()

	m.Handler(http.HandlerFunc(ok)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddlewareCorrectTokenPasses(t *testing.T) {
	m := auth.NewMiddleware("secret")
	req := httptest.NewRequest(http.MethodGet, "/instances", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()

	m.Handler(http.HandlerFunc(ok)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareUnconfiguredTokenIs500(t *testing.T) {
	m := auth.NewMiddleware("")
	req := httptest.NewRequest(http.MethodGet, "/instances", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()

	m.Handler(http.HandlerFunc(ok)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMiddlewarePublicPathBypasses(t *testing.T) {
	m := auth.NewMiddleware("secret", "/health")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	m.Handler(http.HandlerFunc(ok)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
