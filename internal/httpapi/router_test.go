package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"enginefleet/internal/config"
	"enginefleet/internal/dockerrt"
	"enginefleet/internal/httpapi"
	"enginefleet/internal/instance"
	"enginefleet/internal/jobstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDeps(rt *dockerrt.MockRuntime) httpapi.Deps {
	cfg := &config.Config{
		APIAuthToken:         "secret",
		BaseDomain:           "example.com",
		DefaultEngineVersion: "latest",
	}
	return httpapi.Deps{
		Cfg:     cfg,
		Manager: instance.NewManager(rt, cfg, zap.NewNop()),
		Jobs:    jobstore.NewMemoryStore(),
		Runtime: rt,
		Logger:  zap.NewNop(),
	}
}

func authedRequest(method, path string, body interface{}) *http.Request {
	var r *http.Request
	if body != nil {
		data, _ := json.Marshal(body)
		r = httptest.NewRequest(method, path, bytes.NewReader(data))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	r.Header.Set("Authorization", "Bearer secret")
	return r
}

func TestHealthIsPublicAndReportsChecks(t *testing.T) {
	rt := &dockerrt.MockRuntime{}
	router := httpapi.NewRouter(testDeps(rt))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestCreateInstanceDuplicateNameIs400(t *testing.T) {
	rt := &dockerrt.MockRuntime{
		GetFunc: func(ctx context.Context, name string) (*dockerrt.Container, error) {
			return &dockerrt.Container{Name: name, Status: "running"}, nil
		},
	}
	router := httpapi.NewRouter(testDeps(rt))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/create-instance", map[string]string{"name": "alice"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Instância 'alice' já existe", body["detail"])
}

func TestCreateInstanceBadNameIs400(t *testing.T) {
	rt := &dockerrt.MockRuntime{}
	router := httpapi.NewRouter(testDeps(rt))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/create-instance", map[string]string{"name": "Bad_Name!"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Nome deve conter apenas letras minusculas, numeros e hifens (2-32 chars)", body["detail"])
}

func TestCreateInstanceNoCapacityIs409(t *testing.T) {
	rt := &dockerrt.MockRuntime{
		InfoFunc: func(ctx context.Context) (dockerrt.Info, error) {
			return dockerrt.Info{TotalRAMBytes: 1024 * 1024 * 1024, CPUCount: 1}, nil
		},
		ListFunc: func(ctx context.Context, labels map[string]string) ([]dockerrt.Container, error) {
			return []dockerrt.Container{
				{Status: "running", Labels: map[string]string{"app.instance": "one"}},
			}, nil
		},
	}
	router := httpapi.NewRouter(testDeps(rt))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/create-instance", map[string]string{"name": "bob"}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["detail"], "VPS sem recursos.")
}

func TestProtectedRouteWithoutTokenIs401(t *testing.T) {
	rt := &dockerrt.MockRuntime{}
	router := httpapi.NewRouter(testDeps(rt))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/instances", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
