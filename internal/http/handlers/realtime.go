package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
	"github.com/mannyc2/watchify-app-sub000/internal/sse"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *sse.Hub
}

func NewRealtimeHandler(log *logger.Logger, hub *sse.Hub) *RealtimeHandler {
	return &RealtimeHandler{
		log: log.With("handler", "RealtimeHandler"),
		hub: hub,
	}
}

// Stream opens an SSE connection. ?sources=id1,id2 subscribes to those
// stores; without it the client gets every store's notifications.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	client := h.hub.NewClient()

	raw := strings.TrimSpace(c.Query("sources"))
	if raw == "" {
		h.hub.AddChannel(client, sse.ChannelAll)
	} else {
		for _, part := range strings.Split(raw, ",") {
			id, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				continue
			}
			h.hub.AddChannel(client, sse.SourceChannel(id))
		}
	}

	h.log.Debug("SSE stream open", "client_id", client.ID)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
	h.hub.CloseClient(client)
}
