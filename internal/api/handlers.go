package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/service"
)

// ReportService is what the handlers need from the analysis service
type ReportService interface {
	Latest(ctx context.Context) (*analytics.Report, error)
	Refresh(ctx context.Context) (*analytics.Report, error)
	Export() ([]string, error)
	Invalidate(ctx context.Context) error
	Stale() bool
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	reports  ReportService
	runs     RunHistory
	prices   PriceSource
	stocks   StockStore
	defaultK int
}

// Option wires an optional dependency into a Handler
type Option func(*Handler)

// WithRunHistory serves stored runs under /runs
func WithRunHistory(runs RunHistory) Option {
	return func(h *Handler) { h.runs = runs }
}

// WithPrices serves bars under /prices and /symbols
func WithPrices(prices PriceSource) Option {
	return func(h *Handler) { h.prices = prices }
}

// WithStocks serves sector classifications under /stocks
func WithStocks(stocks StockStore) Option {
	return func(h *Handler) { h.stocks = stocks }
}

// NewHandler creates a new Handler. defaultK sizes /returns when k is absent.
func NewHandler(reports ReportService, defaultK int, opts ...Option) *Handler {
	if defaultK <= 0 {
		defaultK = analytics.DefaultTopKYearly
	}
	h := &Handler{reports: reports, defaultK: defaultK}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetReport handles GET /report
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.latest(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GetReturns handles GET /returns?direction=gainers|losers&k=N
func (h *Handler) GetReturns(w http.ResponseWriter, r *http.Request) {
	dir, ok := analytics.ParseDirection(r.URL.Query().Get("direction"))
	if !ok {
		respondError(w, http.StatusBadRequest, "direction must be gainers or losers")
		return
	}

	k, ok := intParam(w, r, "k", h.defaultK)
	if !ok {
		return
	}

	report, ok := h.latest(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"direction": dir.String(),
		"k":         k,
		"returns":   analytics.TopK(report.YearlyReturns, k, dir),
	})
}

// GetVolatility handles GET /volatility
func (h *Handler) GetVolatility(w http.ResponseWriter, r *http.Request) {
	report, ok := h.latest(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, report.Volatility)
}

// GetCumulative handles GET /cumulative
func (h *Handler) GetCumulative(w http.ResponseWriter, r *http.Request) {
	report, ok := h.latest(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, report.Cumulative)
}

// GetSectors handles GET /sectors
func (h *Handler) GetSectors(w http.ResponseWriter, r *http.Request) {
	report, ok := h.latest(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, report.Sectors)
}

// GetCorrelation handles GET /correlation?n=N. n keeps the leading N symbols.
func (h *Handler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	n, ok := intParam(w, r, "n", -1)
	if !ok {
		return
	}
	report, ok := h.latest(w, r)
	if !ok {
		return
	}

	matrix, stats := report.Correlation, report.CorrelationStats
	if n >= 0 && n < len(matrix.Symbols) {
		matrix = analytics.TruncateCorrelation(matrix, n)
		stats = analytics.CorrelationStats(matrix)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"matrix": matrix,
		"stats":  stats,
	})
}

// GetMonthly handles GET /monthly?month=YYYY-MM. Without month every month is listed
// newest first.
func (h *Handler) GetMonthly(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month != "" {
		if _, err := time.Parse(analytics.MonthLayout, month); err != nil {
			respondError(w, http.StatusBadRequest, "month must be formatted YYYY-MM")
			return
		}
	}
	report, ok := h.latest(w, r)
	if !ok {
		return
	}

	if month != "" {
		movers, found := report.Monthly[month]
		if !found {
			respondError(w, http.StatusNotFound, "no movers for month "+month)
			return
		}
		respondJSON(w, http.StatusOK, movers)
		return
	}

	months := analytics.SortedMonths(report.Monthly, true)
	out := make([]interface{}, 0, len(months))
	for _, m := range months {
		out = append(out, report.Monthly[m])
	}
	respondJSON(w, http.StatusOK, out)
}

// GetSummary handles GET /summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	report, ok := h.latest(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":        report.RunID,
		"generated_at":  report.GeneratedAt,
		"summary":       report.Summary,
		"sector_status": report.Sectors.Status,
		"stale":         h.reports.Stale(),
	})
}

// Refresh handles POST /refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Refresh(r.Context())
	if errors.Is(err, service.ErrNoData) {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Refresh failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"run_id":       report.RunID,
		"generated_at": report.GeneratedAt,
		"symbols":      report.Summary.TotalSymbols,
	})
}

// Export handles POST /export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	paths, err := h.reports.Export()
	switch {
	case errors.Is(err, service.ErrNoReport):
		respondError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, service.ErrNoExporter):
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Msg("Export failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"files": paths})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) latest(w http.ResponseWriter, r *http.Request) (*analytics.Report, bool) {
	report, err := h.reports.Latest(r.Context())
	if errors.Is(err, service.ErrNoReport) {
		respondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return report, true
}

// intParam reads a non-negative integer query parameter, writing a 400 when malformed
func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondError(w, http.StatusBadRequest, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
