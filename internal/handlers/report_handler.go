package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/services"
)

// ReportHandler serves ledger analytics.
type ReportHandler struct {
	reportService services.ReportServicer
	now           func() time.Time
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// GetSummary returns income, expense and mood totals for a date range.
// @Summary     Get spending summary
// @Description Totals over [from, to). Without parameters the current calendar month is used. A plain date for "to" includes that whole day.
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       from query string false "Range start (RFC3339 or YYYY-MM-DD)"
// @Param       to   query string false "Range end (RFC3339 or YYYY-MM-DD)"
// @Success     200 {object} services.Summary "Summary"
// @Failure     400 {object} ErrorResponse "Invalid range"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/summary [get]
func (h *ReportHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	now := h.now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	if v := c.Query("from"); v != "" {
		parsed, err := parseFlexibleTime(v)
		if err != nil {
			respondWithError(c, apperrors.Validation("from", err.Error()))
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := parseFlexibleTime(v)
		if err != nil {
			respondWithError(c, apperrors.Validation("to", err.Error()))
			return
		}
		if len(v) == len("2006-01-02") {
			parsed = parsed.AddDate(0, 0, 1)
		}
		to = parsed
	}

	summary, err := h.reportService.GetSummary(c.Request.Context(), userID, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
