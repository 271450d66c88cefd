package handlers

import (
	"strconv"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/services"
	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/response"
	"github.com/gin-gonic/gin"
)

// FossilHandler serves the fossil audit trail.
type FossilHandler struct {
	pipeline *services.FossilPipeline
}

func NewFossilHandler(pipeline *services.FossilPipeline) *FossilHandler {
	return &FossilHandler{pipeline: pipeline}
}

// List returns fossil index entries, newest first.
// GET /api/v1/fossils?limit=50&status=approved
func (h *FossilHandler) List(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	status := c.Query("status")

	entries := h.pipeline.List(limit, status)
	response.Success(c, gin.H{
		"total":   h.pipeline.Count(),
		"fossils": entries,
	})
}

// Get returns one full fossil document.
// GET /api/v1/fossils/:id
func (h *FossilHandler) Get(c *gin.Context) {
	record, err := h.pipeline.Load(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, record)
}

// FindByHash returns every fossil sharing an input hash, oldest first.
// Repeated hashes reveal duplicate work.
// GET /api/v1/fossils/hash/:hash
func (h *FossilHandler) FindByHash(c *gin.Context) {
	entries := h.pipeline.FindByInputHash(c.Param("hash"))
	response.Success(c, gin.H{
		"input_hash": c.Param("hash"),
		"count":      len(entries),
		"fossils":    entries,
	})
}
