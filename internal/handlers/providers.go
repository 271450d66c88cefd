package handlers

import (
	"context"
	"time"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/services"
	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/response"
	"github.com/gin-gonic/gin"
)

// ProviderHandler reports the configured providers and their liveness.
type ProviderHandler struct {
	registry *services.ProviderRegistry
}

func NewProviderHandler(registry *services.ProviderRegistry) *ProviderHandler {
	return &ProviderHandler{registry: registry}
}

type providerStatus struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Available bool   `json:"available"`
}

// List probes every registered provider.
// GET /api/v1/providers
func (h *ProviderHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	providers := h.registry.All()
	out := make([]providerStatus, 0, len(providers))
	for _, p := range providers {
		out = append(out, providerStatus{
			Name:      p.Name(),
			Kind:      string(p.Kind()),
			Available: p.Available(ctx),
		})
	}
	response.Success(c, out)
}
