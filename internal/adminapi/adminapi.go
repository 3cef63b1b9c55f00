// Package adminapi implements the control-plane HTTP collaborator spec §6
// describes the contract of: GET/POST /appConfig, plus a Prometheus scrape
// endpoint. Spec §1 treats this surface as external to the core — the
// Route Engine, Reconciler, and Listener Workers never import this
// package, it only calls into configstore the way any other caller would.
package adminapi

import (
	"encoding/json"
	"net/http"

	"github.com/briarcliff/relaygate/internal/configstore"
	"github.com/briarcliff/relaygate/internal/model"
	"github.com/briarcliff/relaygate/internal/telemetry"
)

// NewHandler mounts GET/POST /appConfig against store and, if metrics is
// non-nil, /metrics against its Prometheus registry.
func NewHandler(store *configstore.Store, metrics *telemetry.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/appConfig", appConfigHandler(store))
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
	return mux
}

func appConfigHandler(store *configstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			getAppConfig(w, store)
		case http.MethodPost:
			postAppConfig(w, r, store)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func getAppConfig(w http.ResponseWriter, store *configstore.Store) {
	writeEnvelope(w, http.StatusOK, model.BaseResponse[model.AppConfig]{
		ResponseCode:   0,
		ResponseObject: store.Snapshot(),
	})
}

// postAppConfig validates every HTTPS entry's cert/key pair before
// replacing services wholesale. A validation failure yields 400 with the
// spec's historical diagnostic string — the §9.4 open question decision
// to use 400 instead of the literal spec text's 404.
func postAppConfig(w http.ResponseWriter, r *http.Request, store *configstore.Store) {
	var services []model.ApiService
	if err := json.NewDecoder(r.Body).Decode(&services); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("malformed request body"))
		return
	}

	for _, svc := range services {
		if err := configstore.ValidateHTTPS(svc.ServiceConfig); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("Parse the key string or the certificate string error!"))
			return
		}
	}

	store.ReplaceServices(services)
	writeEnvelope(w, http.StatusOK, model.BaseResponse[int]{ResponseCode: 0, ResponseObject: 0})
}

func writeEnvelope(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
