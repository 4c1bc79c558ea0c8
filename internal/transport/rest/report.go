package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/trinitystore/backoffice/internal/report"
	"github.com/trinitystore/backoffice/pkg/web"
)

const defaultReportPeriodDays = 30

// ReportHandler handles HTTP requests for KPI reports.
type ReportHandler struct {
	service *report.Service
	logger  *slog.Logger
}

// NewReportHandler creates a new instance of ReportHandler.
func NewReportHandler(service *report.Service, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{service: service, logger: logger}
}

// Summary handles GET /api/v1/reports requests. The optional "days" query
// parameter bounds the reporting period.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	logger := loggerWithReqID(r, h.logger)

	days := int64(defaultReportPeriodDays)
	if r.URL.Query().Get("days") != "" {
		parsed, ok := web.ParseValidateGt(r, w, logger, "days", 0)
		if !ok {
			return
		}
		days = int64(parsed)
	}
	since := time.Now().UTC().AddDate(0, 0, -int(days))

	summary, err := h.service.Summarize(r.Context(), since)
	if err != nil {
		logger.Error("Failed to compute report summary", "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Failed to compute report summary")
		return
	}
	web.RespondJSON(w, logger, http.StatusOK, summary)
}
