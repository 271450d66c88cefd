package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/services"
	"github.com/BarreraSlzr/automate-workloads-sub003/internal/utils"
	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/logger"
	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SSEHandler streams call events to connected clients.
type SSEHandler struct {
	hub         *services.EventHub
	authEnabled bool
}

func NewSSEHandler(hub *services.EventHub, authEnabled bool) *SSEHandler {
	return &SSEHandler{hub: hub, authEnabled: authEnabled}
}

// StreamCallEvents handles SSE connections for call status updates.
// EventSource cannot set headers, so the token may ride in the query
// string.
// GET /api/v1/events
func (h *SSEHandler) StreamCallEvents(c *gin.Context) {
	if h.authEnabled {
		token := c.Query("token")
		if token == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if token == "" {
			response.Unauthorized(c, "Unauthorized")
			return
		}
		if _, err := utils.ParseToken(token); err != nil {
			response.Unauthorized(c, "Invalid token")
			return
		}
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Access-Control-Allow-Origin", "*")

	clientID := uuid.New().String()

	events := h.hub.Subscribe(clientID)
	defer h.hub.Unsubscribe(clientID)

	logger.Info().Str("client_id", clientID).Int("total", h.hub.ClientCount()).Msg("SSE client connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error().Err(err).Msg("SSE marshal error")
				return true
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			c.Writer.Flush()
			return true
		case <-c.Request.Context().Done():
			logger.Info().Str("client_id", clientID).Msg("SSE client disconnected")
			return false
		}
	})
}
