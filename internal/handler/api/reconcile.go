package api

import (
	"context"
	"errors"
	"net/http"

	"LevRecon/internal/domain/models"
	domrepo "LevRecon/internal/domain/repository"
	"LevRecon/internal/repository"
	"LevRecon/internal/services/aggregate"
	"LevRecon/internal/services/classify"
	"LevRecon/internal/services/rows"
	"LevRecon/internal/services/tiers"
	"LevRecon/internal/usecase"
	xhttp "LevRecon/pkg/http"
	"LevRecon/pkg/http/middleware"
	applogger "LevRecon/pkg/logger"
	"LevRecon/pkg/util"

	"github.com/labstack/echo/v4"
)

// Runner is the part of the reconciler the API drives.
type Runner interface {
	RunCycle(ctx context.Context, cycleID string) (models.RunSummary, error)
	Classification(ctx context.Context) classify.Classification
}

// HistoryReader returns archived suggested tiers. repository.ClickHouseSink satisfies it.
type HistoryReader interface {
	History(ctx context.Context, symbol string, limit int) ([]repository.HistoryPoint, error)
}

// LiveFeed upgrades a request into a live report stream.
type LiveFeed interface {
	ServeWS(w http.ResponseWriter, r *http.Request) error
}

// Deps groups what ReconcileHandler reads from. History, Live and Limiter are optional.
type Deps struct {
	Runner     Runner
	Reports    domrepo.ReportStore
	Snapshots  domrepo.SnapshotStore
	Aggregator *aggregate.Aggregator
	History    HistoryReader
	Live       LiveFeed
	Limiter    middleware.Allower
}

// ReconcileHandler serves reconciled reports and the live snapshot over HTTP.
type ReconcileHandler struct {
	deps Deps
	log  *applogger.Logger
}

func NewReconcileHandler(deps Deps, log *applogger.Logger) *ReconcileHandler {
	if log == nil {
		log = applogger.Nop()
	}
	return &ReconcileHandler{deps: deps, log: log}
}

func (h *ReconcileHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	if h.deps.Live != nil {
		e.GET("/ws/reports", h.Live)
	}

	g := e.Group("/api")
	if h.deps.Limiter != nil {
		g.Use(middleware.RateLimit(h.deps.Limiter))
	}
	g.GET("/symbols", h.Symbols)
	g.GET("/summary", h.Summary)
	g.GET("/report", h.Report)
	g.GET("/rows", h.Rows)
	g.GET("/select", h.Select)
	g.GET("/street", h.Street)
	g.POST("/reconcile", h.Reconcile)
	if h.deps.History != nil {
		g.GET("/history", h.History)
	}
}

var _ xhttp.Handler = (*ReconcileHandler)(nil)

func (h *ReconcileHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Symbols lists the classified symbols, optionally filtered by group.
func (h *ReconcileHandler) Symbols(c echo.Context) error {
	req := &models.SymbolsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cl := h.deps.Runner.Classification(c.Request().Context())

	var names []string
	switch req.Group {
	case classify.GroupMajor, classify.GroupMinor:
		names = cl.InGroup(req.Group)
	default:
		names = cl.Symbols()
	}
	out := make([]models.SymbolEntry, 0, len(names))
	for _, s := range names {
		g, _ := cl.Group(s)
		th, _ := cl.ThresholdsFor(s)
		out = append(out, models.SymbolEntry{Symbol: s, Group: g, Thresholds: th})
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

func (h *ReconcileHandler) Summary(c echo.Context) error {
	sum, err := h.deps.Reports.LastSummary(c.Request().Context())
	if errors.Is(err, domrepo.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no run recorded yet"))
	}
	if err != nil {
		h.log.Error("load summary failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("load summary failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, sum)
}

func (h *ReconcileHandler) Report(c echo.Context) error {
	req := &models.ReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rep, err := h.loadReport(c, req.Symbol)
	if err != nil {
		return h.reportError(c, req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, rep)
}

// RowsResponse is the tabular view of one report.
type RowsResponse struct {
	Symbol    string              `json:"symbol"`
	Venues    []rows.VenueRow     `json:"venues"`
	Suggested []rows.SuggestedRow `json:"suggested"`
	Street    []rows.SuggestedRow `json:"street,omitempty"`
}

func (h *ReconcileHandler) Rows(c echo.Context) error {
	req := &models.RowsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rep, err := h.loadReport(c, req.Symbol)
	if err != nil {
		return h.reportError(c, req.Symbol, err)
	}
	resp := RowsResponse{
		Symbol:    rep.Symbol,
		Venues:    rows.ForReport(rep),
		Suggested: rows.Suggested(rep.Suggested),
	}
	if req.Provenance {
		resp.Street = rows.Street(rep.Street)
	}
	return xhttp.SuccessResponse(c, resp)
}

// Select runs the tier selector against the live schedule of one venue.
func (h *ReconcileHandler) Select(c echo.Context) error {
	req := &models.SelectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	venue, _ := models.ParseVenue(req.Venue)
	symbol := util.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid symbol %q", req.Symbol))
	}

	schedule, ok := h.deps.Snapshots.Get(c.Request().Context(), venue, symbol)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no %s schedule for %s", venue, symbol))
	}
	pick, ok := tiers.Select(schedule, req.Threshold)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("%s offers no tier reaching %g", venue, req.Threshold))
	}
	return xhttp.SuccessResponse(c, pick)
}

// Street aggregates the live snapshot at an arbitrary threshold.
func (h *ReconcileHandler) Street(c echo.Context) error {
	req := &models.StreetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := util.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid symbol %q", req.Symbol))
	}
	snap := h.deps.Snapshots.Snapshot(c.Request().Context())
	rec := h.deps.Aggregator.Street(symbol, snap.ForSymbol(symbol), req.Threshold)
	return xhttp.SuccessResponse(c, rec)
}

func (h *ReconcileHandler) Reconcile(c echo.Context) error {
	req := &models.ReconcileRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	sum, err := h.deps.Runner.RunCycle(c.Request().Context(), req.CycleID)
	if errors.Is(err, usecase.ErrRunInProgress) {
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
	}
	if err != nil {
		h.log.Error("manual reconcile failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("reconcile failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, sum)
}

func (h *ReconcileHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	points, err := h.deps.History.History(c.Request().Context(), util.NormalizeSymbol(req.Symbol), req.Limit)
	if err != nil {
		h.log.Error("load history failed", applogger.String("symbol", req.Symbol), applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("load history failed").WithError(err))
	}
	return xhttp.ListResponse(c, points, int64(len(points)))
}

func (h *ReconcileHandler) Live(c echo.Context) error {
	if err := h.deps.Live.ServeWS(c.Response(), c.Request()); err != nil {
		h.log.Warn("live feed closed", applogger.Error(err))
	}
	return nil
}

func (h *ReconcileHandler) loadReport(c echo.Context, symbol string) (*models.SymbolReport, error) {
	return h.deps.Reports.Report(c.Request().Context(), util.NormalizeSymbol(symbol))
}

func (h *ReconcileHandler) reportError(c echo.Context, symbol string, err error) error {
	if errors.Is(err, domrepo.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no report for %s", util.NormalizeSymbol(symbol)))
	}
	h.log.Error("load report failed", applogger.String("symbol", symbol), applogger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.InternalError("load report failed").WithError(err))
}
