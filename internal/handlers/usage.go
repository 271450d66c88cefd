package handlers

import (
	"strconv"
	"time"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/services"
	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/response"
	"github.com/gin-gonic/gin"
)

// UsageHandler provides endpoints for call usage statistics.
type UsageHandler struct {
	tracker *services.UsageTracker
}

func NewUsageHandler(tracker *services.UsageTracker) *UsageHandler {
	return &UsageHandler{tracker: tracker}
}

// GetAnalytics returns aggregated usage analytics for a date range.
// GET /api/v1/usage/analytics?start_date=2026-08-01&end_date=2026-08-25
func (h *UsageHandler) GetAnalytics(c *gin.Context) {
	from, to := parseDateRange(c)
	response.Success(c, h.tracker.Analytics(from, to))
}

// GetMetrics returns the most recent raw metrics.
// GET /api/v1/usage/metrics?limit=100
func (h *UsageHandler) GetMetrics(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	response.Success(c, h.tracker.Recent(limit))
}

// GetStats returns all-time aggregated statistics.
// GET /api/v1/usage/stats
func (h *UsageHandler) GetStats(c *gin.Context) {
	response.Success(c, h.tracker.Stats())
}

// parseDateRange reads start_date and end_date query params (YYYY-MM-DD,
// UTC). Defaults to the trailing 30 days. An end date covers its whole
// day.
func parseDateRange(c *gin.Context) (time.Time, time.Time) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if v := c.Query("start_date"); v != "" {
		if t, err := time.ParseInLocation("2006-01-02", v, time.UTC); err == nil {
			from = t
		}
	}
	if v := c.Query("end_date"); v != "" {
		if t, err := time.ParseInLocation("2006-01-02", v, time.UTC); err == nil {
			to = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	}
	return from, to
}
