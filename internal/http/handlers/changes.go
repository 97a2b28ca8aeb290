package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mannyc2/watchify-app-sub000/internal/http/response"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/syncerr"
	"github.com/mannyc2/watchify-app-sub000/internal/services"
)

type ChangesHandler struct {
	log     *logger.Logger
	sources services.SourceService
}

func NewChangesHandler(log *logger.Logger, sources services.SourceService) *ChangesHandler {
	return &ChangesHandler{
		log:     log.With("handler", "ChangesHandler"),
		sources: sources,
	}
}

func (h *ChangesHandler) ListChanges(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_source_id", err)
		return
	}
	unreadOnly := c.Query("unread") == "1" || c.Query("unread") == "true"

	events, err := h.sources.ListChanges(c.Request.Context(), id, unreadOnly)
	if err != nil {
		if errors.Is(err, syncerr.ErrSourceNotFound) {
			response.RespondError(c, http.StatusNotFound, "source_not_found", err)
			return
		}
		h.log.Error("ListChanges failed", "source_id", id, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_changes_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"events": events})
}

type markReadRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required"`
}

func (h *ChangesHandler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.sources.MarkChangesRead(c.Request.Context(), req.IDs); err != nil {
		h.log.Error("MarkRead failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "mark_read_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"marked": len(req.IDs)})
}

func (h *ChangesHandler) VariantHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_variant_id", err)
		return
	}
	history, err := h.sources.VariantHistory(c.Request.Context(), id)
	if err != nil {
		h.log.Error("VariantHistory failed", "variant_id", id, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "history_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"snapshots": history})
}
