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

type SourceHandler struct {
	log     *logger.Logger
	sources services.SourceService
}

func NewSourceHandler(log *logger.Logger, sources services.SourceService) *SourceHandler {
	return &SourceHandler{
		log:     log.With("handler", "SourceHandler"),
		sources: sources,
	}
}

type createSourceRequest struct {
	Name   string `json:"name"`
	Domain string `json:"domain" binding:"required"`
}

func (h *SourceHandler) CreateSource(c *gin.Context) {
	var req createSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	id, err := h.sources.AddSource(c.Request.Context(), req.Name, req.Domain)
	if err != nil {
		h.log.Warn("CreateSource failed", "domain", req.Domain, "error", err)
		response.RespondError(c, http.StatusBadRequest, "create_source_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"id": id})
}

func (h *SourceHandler) ListSources(c *gin.Context) {
	sources, err := h.sources.ListSources(c.Request.Context())
	if err != nil {
		h.log.Error("ListSources failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_sources_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"sources": sources})
}

func (h *SourceHandler) DeleteSource(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_source_id", err)
		return
	}
	if err := h.sources.RemoveSource(c.Request.Context(), id); err != nil {
		if errors.Is(err, syncerr.ErrSourceNotFound) {
			response.RespondError(c, http.StatusNotFound, "source_not_found", err)
			return
		}
		h.log.Error("DeleteSource failed", "source_id", id, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "delete_source_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": id})
}
