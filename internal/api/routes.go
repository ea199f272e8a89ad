package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes. A nil metrics handler leaves /metrics unrouted.
func SetupRoutes(handler *Handler, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/report", handler.GetReport).Methods("GET")
	api.HandleFunc("/returns", handler.GetReturns).Methods("GET")
	api.HandleFunc("/volatility", handler.GetVolatility).Methods("GET")
	api.HandleFunc("/cumulative", handler.GetCumulative).Methods("GET")
	api.HandleFunc("/sectors", handler.GetSectors).Methods("GET")
	api.HandleFunc("/correlation", handler.GetCorrelation).Methods("GET")
	api.HandleFunc("/monthly", handler.GetMonthly).Methods("GET")
	api.HandleFunc("/summary", handler.GetSummary).Methods("GET")
	api.HandleFunc("/refresh", handler.Refresh).Methods("POST")
	api.HandleFunc("/export", handler.Export).Methods("POST")

	// Stored history
	api.HandleFunc("/runs", handler.ListRuns).Methods("GET")
	api.HandleFunc("/runs/latest", handler.GetLatestRun).Methods("GET")
	api.HandleFunc("/runs/{id}", handler.GetRun).Methods("GET")
	api.HandleFunc("/symbols", handler.ListSymbols).Methods("GET")
	api.HandleFunc("/prices", handler.GetPrices).Methods("GET")

	// Sector classification
	api.HandleFunc("/stocks", handler.ListStocks).Methods("GET")
	api.HandleFunc("/stocks/{symbol}", handler.GetStock).Methods("GET")
	api.HandleFunc("/stocks/{symbol}", handler.PutStock).Methods("PUT")
	api.HandleFunc("/stocks/{symbol}", handler.DeleteStock).Methods("DELETE")

	return r
}
