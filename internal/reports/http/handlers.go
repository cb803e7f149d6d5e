// Package http exposes the report endpoints.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/choubo-app/choubo/internal/observability"
	"github.com/choubo-app/choubo/internal/platform/httpx"
	"github.com/choubo-app/choubo/internal/reports"
)

const orgHeader = "X-Organization-ID"

// ReportBuilder assembles the trial balance report for one fiscal period.
type ReportBuilder interface {
	BuildReport(ctx context.Context, orgID, periodID int64) (reports.Report, error)
}

// LedgerViewBuilder builds the per-account ledger view.
type LedgerViewBuilder interface {
	BuildAccountLedger(ctx context.Context, orgID, accountID, periodID int64) (reports.AccountLedger, error)
}

// Handler serves the trial balance report and the per-account ledger view.
type Handler struct {
	logger    *slog.Logger
	assembler ReportBuilder
	viewer    LedgerViewBuilder
	metrics   *observability.Metrics
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, assembler ReportBuilder, viewer LedgerViewBuilder, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, assembler: assembler, viewer: viewer, metrics: metrics}
}

// MountRoutes registers the report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/reports/trial-balance", h.handleTrialBalance)
	r.Get("/api/ledger/accounts/{accountID}/ledger", h.handleAccountLedger)
}

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}
	periodID, ok := h.periodID(w, r)
	if !ok {
		return
	}

	start := time.Now()
	key := fmt.Sprintf("trial-balance:%d:%d", orgID, periodID)
	result, err, shared := singleflightBuild(r.Context(), key, func(ctx context.Context) (interface{}, error) {
		return h.assembler.BuildReport(ctx, orgID, periodID)
	})
	h.metrics.ObserveReportBuild(time.Since(start), err)
	if err != nil {
		h.logger.Warn("report build failed",
			slog.Int64("organization_id", orgID),
			slog.Int64("fiscal_period_id", periodID),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if shared {
		h.logger.Debug("report build shared across concurrent requests", slog.String("key", key))
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleAccountLedger(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}
	periodID, ok := h.periodID(w, r)
	if !ok {
		return
	}
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil || accountID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "account id must be a positive integer")
		return
	}

	view, err := h.viewer.BuildAccountLedger(r.Context(), orgID, accountID, periodID)
	if err != nil {
		h.logger.Warn("account ledger build failed",
			slog.Int64("organization_id", orgID),
			slog.Int64("account_id", accountID),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) orgID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	orgID, err := strconv.ParseInt(r.Header.Get(orgHeader), 10, 64)
	if err != nil || orgID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing or invalid "+orgHeader+" header")
		return 0, false
	}
	return orgID, true
}

func (h *Handler) periodID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	periodID, err := strconv.ParseInt(r.URL.Query().Get("fiscal_period_id"), 10, 64)
	if err != nil || periodID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "fiscal_period_id query parameter required")
		return 0, false
	}
	return periodID, true
}
