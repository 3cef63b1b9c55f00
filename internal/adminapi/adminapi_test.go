package adminapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/briarcliff/relaygate/internal/configstore"
	"github.com/briarcliff/relaygate/internal/model"
)

func TestGetAppConfig_ReturnsEnvelope(t *testing.T) {
	store := configstore.New()
	store.LoadEnv()
	store.ReplaceServices([]model.ApiService{{ListenPort: 9090}})

	h := NewHandler(store, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/appConfig", nil)
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var env model.BaseResponse[model.AppConfig]
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.ResponseCode != 0 || len(env.ResponseObject.Services) != 1 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestPostAppConfig_ReplacesServicesWholesale(t *testing.T) {
	store := configstore.New()
	h := NewHandler(store, nil)

	body, _ := json.Marshal([]model.ApiService{{ListenPort: 1234, ServiceConfig: model.ServiceConfig{ServerType: model.HTTP}}})
	req := httptest.NewRequest(http.MethodPost, "/appConfig", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}
	services := store.Services()
	if len(services) != 1 || services[0].ListenPort != 1234 {
		t.Fatalf("unexpected services after replace: %+v", services)
	}
}

func TestPostAppConfig_InvalidHTTPSCertYields400(t *testing.T) {
	store := configstore.New()
	h := NewHandler(store, nil)

	body, _ := json.Marshal([]model.ApiService{{
		ListenPort: 443,
		ServiceConfig: model.ServiceConfig{
			ServerType: model.HTTPS,
			CertPEM:    "not a real cert",
			KeyPEM:     "not a real key",
		},
	}})
	req := httptest.NewRequest(http.MethodPost, "/appConfig", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
	if len(store.Services()) != 0 {
		t.Fatal("expected services to remain unreplaced on validation failure")
	}
}

func TestPostAppConfig_MalformedBodyYields400(t *testing.T) {
	store := configstore.New()
	h := NewHandler(store, nil)

	req := httptest.NewRequest(http.MethodPost, "/appConfig", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}
