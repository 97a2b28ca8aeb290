package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mannyc2/watchify-app-sub000/internal/http/response"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/syncerr"
	"github.com/mannyc2/watchify-app-sub000/internal/services"
)

type SyncHandler struct {
	log  *logger.Logger
	sync services.SyncService
}

func NewSyncHandler(log *logger.Logger, syncService services.SyncService) *SyncHandler {
	return &SyncHandler{
		log:  log.With("handler", "SyncHandler"),
		sync: syncService,
	}
}

func (h *SyncHandler) SyncSource(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_source_id", err)
		return
	}

	events, err := h.sync.SyncSource(c.Request.Context(), id)
	if err != nil {
		h.respondSyncError(c, id, err)
		return
	}
	response.RespondOK(c, gin.H{"events": events})
}

// SyncAll kicks the batch off without holding the request open. The batch
// outlives the request, so it runs on a background context.
func (h *SyncHandler) SyncAll(c *gin.Context) {
	go h.sync.SyncAll(context.Background())
	response.RespondAccepted(c, gin.H{"status": "sync started"})
}

func (h *SyncHandler) LastRunFailures(c *gin.Context) {
	response.RespondOK(c, gin.H{"failures": h.sync.LastRunFailures()})
}

func (h *SyncHandler) respondSyncError(c *gin.Context, id uuid.UUID, err error) {
	var rl *syncerr.RateLimitedError
	var se *syncerr.ServerError
	switch {
	case errors.Is(err, syncerr.ErrSourceNotFound):
		response.RespondSyncError(c, http.StatusNotFound, "source_not_found", err)
	case errors.As(err, &rl):
		c.Header("Retry-After", fmt.Sprintf("%d", int(math.Ceil(rl.RetryAfter.Seconds()))))
		response.RespondSyncError(c, http.StatusTooManyRequests, "rate_limited", err)
	case errors.Is(err, syncerr.ErrNetworkTimeout):
		response.RespondSyncError(c, http.StatusGatewayTimeout, "network_timeout", err)
	case errors.Is(err, syncerr.ErrNetworkUnavailable):
		response.RespondSyncError(c, http.StatusBadGateway, "network_unavailable", err)
	case errors.As(err, &se):
		response.RespondSyncError(c, http.StatusBadGateway, "upstream_error", err)
	case errors.Is(err, syncerr.ErrInvalidResponse):
		response.RespondSyncError(c, http.StatusBadGateway, "invalid_response", err)
	default:
		h.log.Error("SyncSource failed", "source_id", id, "error", err)
		response.RespondSyncError(c, http.StatusInternalServerError, "sync_failed", err)
	}
}
