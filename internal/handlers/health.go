package handlers

import (
	"github.com/BarreraSlzr/automate-workloads-sub003/internal/models"
	"github.com/BarreraSlzr/automate-workloads-sub003/internal/services"
	"github.com/gin-gonic/gin"
)

// HealthHandler reports the health of the orchestrator's subsystems.
type HealthHandler struct {
	orchestrator *services.Orchestrator
	fossils      *services.FossilPipeline
	events       *services.EventHub
}

func NewHealthHandler(orchestrator *services.Orchestrator, fossils *services.FossilPipeline, events *services.EventHub) *HealthHandler {
	return &HealthHandler{
		orchestrator: orchestrator,
		fossils:      fossils,
		events:       events,
	}
}

// CheckHealth returns the health status of all subsystems.
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	dbStatus := "ok"
	if db := models.GetDB(); db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			dbStatus = "error: " + err.Error()
			overall = "unhealthy"
		} else if err := sqlDB.Ping(); err != nil {
			dbStatus = "error: " + err.Error()
			overall = "unhealthy"
		}
	} else {
		dbStatus = "disabled"
	}

	taskQueue := services.GetTaskQueue()
	queueMode := "sync"
	if taskQueue != nil && taskQueue.IsAsync() {
		queueMode = "async (Redis)"
	}

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "llm-orchestrator",
		"session": h.orchestrator.SessionID(),
		"components": gin.H{
			"database":    dbStatus,
			"queue_mode":  queueMode,
			"sse_clients": h.events.ClientCount(),
			"fossils":     h.fossils.Count(),
		},
	})
}
