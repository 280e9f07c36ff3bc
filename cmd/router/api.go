package main

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"web3-rpc-router-go/internal/monitor"
	"web3-rpc-router-go/internal/router"
	"web3-rpc-router-go/internal/web"
)

func newAPIHandler(mgr *router.Manager, reporter *monitor.Reporter, hub *web.Hub) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		for _, status := range mgr.Status() {
			if status.Healthy {
				writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
				return
			}
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no healthy providers"})
	})

	// 监控视图：URL 已掩码，仅供展示
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, reporter.Snapshot())
	})

	mux.HandleFunc("GET /queue", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, mgr.QueueStatus())
	})

	mux.HandleFunc("GET /providers", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, mgr.Status())
	})

	mux.HandleFunc("POST /providers", func(w http.ResponseWriter, r *http.Request) {
		var cfg router.ProviderConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := mgr.AddProvider(r.Context(), cfg); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "added", "name": cfg.Name})
	})

	mux.HandleFunc("DELETE /providers/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if !mgr.RemoveProvider(name) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown provider: " + name})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed", "name": name})
	})

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws", hub.ServeWS)

	return mux
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
