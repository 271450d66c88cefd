package handlers

import (
	"errors"
	"time"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/services"
	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CallHandler exposes the orchestrator over HTTP.
type CallHandler struct {
	orchestrator *services.Orchestrator
	queue        services.TaskQueue
}

func NewCallHandler(orchestrator *services.Orchestrator, queue services.TaskQueue) *CallHandler {
	return &CallHandler{
		orchestrator: orchestrator,
		queue:        queue,
	}
}

// Execute runs a call synchronously and returns the completion.
// POST /api/v1/calls
func (h *CallHandler) Execute(c *gin.Context) {
	var req services.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.orchestrator.Execute(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrNoMessages) {
			response.BadRequest(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, resp)
}

// ExecuteAsync queues a call for background execution and returns the
// task ID immediately.
// POST /api/v1/calls/async
func (h *CallHandler) ExecuteAsync(c *gin.Context) {
	var req services.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if len(req.Messages) == 0 {
		response.BadRequest(c, services.ErrNoMessages.Error())
		return
	}

	task := &services.CallTask{
		TaskID:    uuid.New().String(),
		Request:   req,
		Submitted: time.Now().UTC(),
	}
	if err := h.queue.Enqueue(task); err != nil {
		response.ServerError(c, "enqueue failed: "+err.Error())
		return
	}

	response.Accepted(c, gin.H{
		"task_id": task.TaskID,
		"async":   h.queue.IsAsync(),
	})
}

// Analyze returns the routing intelligence for a request without
// executing it.
// POST /api/v1/calls/analyze
func (h *CallHandler) Analyze(c *gin.Context) {
	var req services.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	response.Success(c, h.orchestrator.Analyze(req))
}
