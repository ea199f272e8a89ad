package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/database"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/service"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
	dateLayout      = "2006-01-02"
)

// RunHistory reads persisted analysis runs
type RunHistory interface {
	ListRuns(limit int) ([]*models.AnalysisRun, error)
	GetLatestRun() (*models.AnalysisRun, error)
	GetRun(id string) (*models.AnalysisRun, error)
	GetRunSummary(id string) (*models.MarketSummary, error)
	GetYearlyReturns(runID string) ([]models.YearlyReturn, error)
	GetVolatility(runID string) ([]models.VolatilityRecord, error)
	GetSectorPerformance(runID string) ([]models.SectorPerformance, error)
	GetMonthlyMovers(runID string) (models.MonthlyMoversTable, error)
}

// PriceSource serves raw daily bars
type PriceSource interface {
	GetPriceRecords(symbol string, start, end time.Time) ([]models.PriceRecord, error)
	ListPriceSymbols() ([]string, error)
}

// StockStore manages sector classifications
type StockStore interface {
	ListStocks() ([]*models.Stock, error)
	GetStock(symbol string) (*models.Stock, error)
	UpsertStock(s *models.Stock) error
	DeleteStock(symbol string) error
}

// RunDetail is a stored run with its result tables
type RunDetail struct {
	Run           *models.AnalysisRun        `json:"run"`
	Summary       *models.MarketSummary      `json:"summary"`
	YearlyReturns []models.YearlyReturn      `json:"yearly_returns"`
	Volatility    []models.VolatilityRecord  `json:"volatility"`
	Sectors       []models.SectorPerformance `json:"sectors"`
	Monthly       models.MonthlyMoversTable  `json:"monthly"`
}

// ListRuns handles GET /runs?limit=N
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !h.requires(w, h.runs != nil, "run history") {
		return
	}
	limit, ok := intParam(w, r, "limit", defaultRunLimit)
	if !ok {
		return
	}
	if limit == 0 || limit > maxRunLimit {
		limit = maxRunLimit
	}

	runs, err := h.runs.ListRuns(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*models.AnalysisRun{}
	}
	respondJSON(w, http.StatusOK, runs)
}

// GetLatestRun handles GET /runs/latest
func (h *Handler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	if !h.requires(w, h.runs != nil, "run history") {
		return
	}
	run, err := h.runs.GetLatestRun()
	if err != nil {
		respondLookupError(w, err)
		return
	}
	h.respondRun(w, run)
}

// GetRun handles GET /runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if !h.requires(w, h.runs != nil, "run history") {
		return
	}
	vars := mux.Vars(r)
	id := vars["id"]

	run, err := h.runs.GetRun(id)
	if err != nil {
		respondLookupError(w, err)
		return
	}
	h.respondRun(w, run)
}

func (h *Handler) respondRun(w http.ResponseWriter, run *models.AnalysisRun) {
	detail, err := h.runDetail(run)
	if err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to load run results")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *Handler) runDetail(run *models.AnalysisRun) (*RunDetail, error) {
	d := &RunDetail{Run: run}
	var err error
	if d.Summary, err = h.runs.GetRunSummary(run.ID); err != nil {
		return nil, err
	}
	if d.YearlyReturns, err = h.runs.GetYearlyReturns(run.ID); err != nil {
		return nil, err
	}
	if d.Volatility, err = h.runs.GetVolatility(run.ID); err != nil {
		return nil, err
	}
	if d.Sectors, err = h.runs.GetSectorPerformance(run.ID); err != nil {
		return nil, err
	}
	if d.Monthly, err = h.runs.GetMonthlyMovers(run.ID); err != nil {
		return nil, err
	}
	return d, nil
}

// ListSymbols handles GET /symbols
func (h *Handler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	if !h.requires(w, h.prices != nil, "price history") {
		return
	}
	symbols, err := h.prices.ListPriceSymbols()
	if err != nil {
		respondLookupError(w, err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	respondJSON(w, http.StatusOK, symbols)
}

// GetPrices handles GET /prices?symbol=S&from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) GetPrices(w http.ResponseWriter, r *http.Request) {
	if !h.requires(w, h.prices != nil, "price history") {
		return
	}
	q := r.URL.Query()
	symbol := analytics.NormalizeSymbol(q.Get("symbol"))
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	from, ok := dateParam(w, q.Get("from"), time.Time{})
	if !ok {
		return
	}
	to, ok := dateParam(w, q.Get("to"), time.Now().UTC())
	if !ok {
		return
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	records, err := h.prices.GetPriceRecords(symbol, from, to)
	if err != nil {
		respondLookupError(w, err)
		return
	}
	if records == nil {
		records = []models.PriceRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"prices": records,
	})
}

// ListStocks handles GET /stocks
func (h *Handler) ListStocks(w http.ResponseWriter, r *http.Request) {
	if !h.requires(w, h.stocks != nil, "stock classification") {
		return
	}
	stocks, err := h.stocks.ListStocks()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stocks == nil {
		stocks = []*models.Stock{}
	}
	respondJSON(w, http.StatusOK, stocks)
}

// GetStock handles GET /stocks/{symbol}
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	if !h.requires(w, h.stocks != nil, "stock classification") {
		return
	}
	vars := mux.Vars(r)
	stock, err := h.stocks.GetStock(vars["symbol"])
	if err != nil {
		respondLookupError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stock)
}

// PutStock handles PUT /stocks/{symbol}
func (h *Handler) PutStock(w http.ResponseWriter, r *http.Request) {
	if !h.requires(w, h.stocks != nil, "stock classification") {
		return
	}
	var req struct {
		Name   string `json:"name"`
		Sector string `json:"sector"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	vars := mux.Vars(r)
	stock := &models.Stock{
		Symbol: vars["symbol"],
		Name:   strings.TrimSpace(req.Name),
		Sector: strings.TrimSpace(req.Sector),
	}
	if err := h.stocks.UpsertStock(stock); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.markStale(r)
	respondJSON(w, http.StatusOK, stock)
}

// DeleteStock handles DELETE /stocks/{symbol}
func (h *Handler) DeleteStock(w http.ResponseWriter, r *http.Request) {
	if !h.requires(w, h.stocks != nil, "stock classification") {
		return
	}
	vars := mux.Vars(r)
	if err := h.stocks.DeleteStock(vars["symbol"]); err != nil {
		respondLookupError(w, err)
		return
	}
	h.markStale(r)
	w.WriteHeader(http.StatusNoContent)
}

// markStale flags the report after a sector change
func (h *Handler) markStale(r *http.Request) {
	if err := h.reports.Invalidate(r.Context()); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate report after sector change")
	}
}

func (h *Handler) requires(w http.ResponseWriter, present bool, what string) bool {
	if !present {
		respondError(w, http.StatusServiceUnavailable, what+" requires DB_ENABLED")
	}
	return present
}

func respondLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, service.ErrNoReport) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}

func dateParam(w http.ResponseWriter, raw string, def time.Time) (time.Time, bool) {
	if raw == "" {
		return def, true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "dates must be formatted YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}
