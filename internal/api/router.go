package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptoInsight/internal/ports"
)

// NewRouter wires the dashboard routes, health and metrics endpoints.
func NewRouter(h *DashboardHandler, logger ports.Logger) http.Handler {
	router := mux.NewRouter()

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/coins", h.ListCoins).Methods(http.MethodGet)
	v1.HandleFunc("/coins/{coin}/ohlc", h.GetOHLC).Methods(http.MethodGet)
	v1.HandleFunc("/coins/{coin}/overview", h.GetOverview).Methods(http.MethodGet)
	v1.HandleFunc("/coins/{coin}/prediction", h.GetPrediction).Methods(http.MethodGet)
	v1.HandleFunc("/coins/{coin}/warmup", h.Warmup).Methods(http.MethodPost)
	v1.HandleFunc("/coins/{coin}/refresh", h.Refresh).Methods(http.MethodPost)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler())

	// Logging runs inside the router so mux.CurrentRoute is populated.
	router.Use(mux.MiddlewareFunc(LoggingMiddleware(logger)))

	return ChainMiddleware(
		CORSMiddleware(),
		RecoveryMiddleware(logger),
	)(router)
}
