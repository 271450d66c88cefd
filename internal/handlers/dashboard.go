package handlers

import (
	"time"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/services"
	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/response"
	"github.com/gin-gonic/gin"
)

// DashboardHandler aggregates the operational overview in one call.
type DashboardHandler struct {
	orchestrator *services.Orchestrator
	tracker      *services.UsageTracker
	fossils      *services.FossilPipeline
	events       *services.EventHub
}

func NewDashboardHandler(orchestrator *services.Orchestrator, tracker *services.UsageTracker, fossils *services.FossilPipeline, events *services.EventHub) *DashboardHandler {
	return &DashboardHandler{
		orchestrator: orchestrator,
		tracker:      tracker,
		fossils:      fossils,
		events:       events,
	}
}

// GetOverview returns session info, a trailing week of analytics and the
// fossil breakdown.
// GET /api/v1/dashboard
func (h *DashboardHandler) GetOverview(c *gin.Context) {
	now := time.Now().UTC()
	weekAgo := now.AddDate(0, 0, -7)

	taskQueue := services.GetTaskQueue()
	queueMode := "sync"
	if taskQueue != nil && taskQueue.IsAsync() {
		queueMode = "async"
	}

	response.Success(c, gin.H{
		"session_id":  h.orchestrator.SessionID(),
		"last_7_days": h.tracker.Analytics(weekAgo, now),
		"fossils": gin.H{
			"total":    h.fossils.Count(),
			"approved": len(h.fossils.List(0, services.FossilApproved)),
			"rejected": len(h.fossils.List(0, services.FossilRejected)),
		},
		"queue_mode":  queueMode,
		"sse_clients": h.events.ClientCount(),
	})
}
