package handlers

import (
	"time"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/services"
	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/response"
	"github.com/gin-gonic/gin"
)

// SnapshotHandler drives manual snapshot exports and the export schedule.
type SnapshotHandler struct {
	exporter  *services.SnapshotExporter
	scheduler *services.SnapshotScheduler
	holidays  *services.HolidayService
}

func NewSnapshotHandler(exporter *services.SnapshotExporter, scheduler *services.SnapshotScheduler, holidays *services.HolidayService) *SnapshotHandler {
	return &SnapshotHandler{
		exporter:  exporter,
		scheduler: scheduler,
		holidays:  holidays,
	}
}

type createSnapshotRequest struct {
	Format     string `json:"format"`
	WindowDays int    `json:"window_days"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// Create exports a snapshot immediately. Explicit dates win over
// window_days; the default window is one day.
// POST /api/v1/snapshots
func (h *SnapshotHandler) Create(c *gin.Context) {
	var req createSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -1)
	to := now

	if req.WindowDays > 0 {
		from = now.AddDate(0, 0, -req.WindowDays)
	}
	if req.StartDate != "" {
		t, err := time.ParseInLocation("2006-01-02", req.StartDate, time.UTC)
		if err != nil {
			response.BadRequest(c, "invalid start_date, expected YYYY-MM-DD")
			return
		}
		from = t
	}
	if req.EndDate != "" {
		t, err := time.ParseInLocation("2006-01-02", req.EndDate, time.UTC)
		if err != nil {
			response.BadRequest(c, "invalid end_date, expected YYYY-MM-DD")
			return
		}
		to = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	path, err := h.exporter.Export(from, to, req.Format)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Created(c, gin.H{"path": path})
}

// List returns the exported snapshot files on disk.
// GET /api/v1/snapshots
func (h *SnapshotHandler) List(c *gin.Context) {
	files, err := h.exporter.List()
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, files)
}

type rescheduleRequest struct {
	Time string `json:"time" binding:"required"`
}

// Reschedule moves the daily export time.
// PUT /api/v1/snapshots/schedule
func (h *SnapshotHandler) Reschedule(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.scheduler.Reschedule(req.Time); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, gin.H{"time": req.Time})
}

// Countries lists the holiday regions the scheduler understands.
// GET /api/v1/snapshots/countries
func (h *SnapshotHandler) Countries(c *gin.Context) {
	response.Success(c, h.holidays.SupportedCountries())
}
