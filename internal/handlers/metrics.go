package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/models"
	"github.com/BarreraSlzr/automate-workloads-sub003/internal/services"
	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// MetricsHandler serves Prometheus-compatible text format metrics.
type MetricsHandler struct {
	tracker *services.UsageTracker
	fossils *services.FossilPipeline
	events  *services.EventHub
}

func NewMetricsHandler(tracker *services.UsageTracker, fossils *services.FossilPipeline, events *services.EventHub) *MetricsHandler {
	return &MetricsHandler{
		tracker: tracker,
		fossils: fossils,
		events:  events,
	}
}

// Metrics renders all gauges.
// GET /metrics
func (h *MetricsHandler) Metrics(c *gin.Context) {
	var b strings.Builder

	// -- Runtime metrics --
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "orchestrator_uptime_seconds", "Time since server start in seconds", time.Since(startTime).Seconds())
	writeGauge(&b, "orchestrator_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "orchestrator_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))
	writeGauge(&b, "orchestrator_memory_sys_bytes", "Total memory obtained from OS in bytes", float64(m.Sys))
	writeGauge(&b, "orchestrator_gc_runs_total", "Total number of GC runs", float64(m.NumGC))

	// -- Database metrics --
	if db := models.GetDB(); db != nil {
		if sqlDB, err := db.DB(); err == nil {
			stats := sqlDB.Stats()
			writeGauge(&b, "orchestrator_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
			writeGauge(&b, "orchestrator_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
			writeGauge(&b, "orchestrator_db_idle_connections", "Number of idle DB connections", float64(stats.Idle))
		}
	}

	// -- SSE metrics --
	writeGauge(&b, "orchestrator_sse_active_clients", "Number of active SSE connections", float64(h.events.ClientCount()))

	// -- Queue metrics --
	taskQueue := services.GetTaskQueue()
	queueAsync := 0.0
	if taskQueue != nil && taskQueue.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "orchestrator_queue_async_enabled", "Whether async queue (Redis) is enabled (1=yes, 0=no)", queueAsync)

	// -- Call metrics --
	stats := h.tracker.Stats()
	successes := float64(stats.TotalCalls) * stats.SuccessRate
	writeGauge(&b, "orchestrator_calls_total", "Total calls tracked this run", float64(stats.TotalCalls))
	writeGauge(&b, "orchestrator_calls_success_total", "Successful calls tracked this run", successes)
	writeGauge(&b, "orchestrator_tokens_total", "Total tokens consumed", float64(stats.TotalTokens))
	writeGauge(&b, "orchestrator_cost_usd_total", "Total estimated cost in USD", stats.TotalCostUSD)

	since24h := time.Now().Add(-24 * time.Hour)
	writeGauge(&b, "orchestrator_calls_24h", "Calls in the last 24 hours", float64(len(h.tracker.InRange(since24h, time.Now()))))

	// -- Fossil metrics --
	writeGauge(&b, "orchestrator_fossils_total", "Fossil records indexed this run", float64(h.fossils.Count()))

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
