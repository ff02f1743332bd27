package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/threadwarden/threadwarden/internal/common/errors"
	"github.com/threadwarden/threadwarden/internal/common/logger"
	"github.com/threadwarden/threadwarden/internal/watchdog"
	v1 "github.com/threadwarden/threadwarden/pkg/api/v1"
)

// Handler contains the HTTP handlers for the watchdog admin API
type Handler struct {
	service *watchdog.Service
	logger  *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(svc *watchdog.Service, log *logger.Logger) *Handler {
	return &Handler{
		service: svc,
		logger:  log,
	}
}

// Health reports liveness
// GET /api/v1/health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, v1.HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC(),
	})
}

// ListExclusions returns the full excluded id set
// GET /api/v1/exclusions
func (h *Handler) ListExclusions(c *gin.Context) {
	ids := h.service.Exclusions().List(c.Request.Context())

	resp := v1.ExclusionListResponse{
		Exclusions: make([]v1.ExclusionInfo, 0, len(ids)),
		Count:      len(ids),
	}
	for _, id := range ids {
		resp.Exclusions = append(resp.Exclusions, v1.ExclusionInfo{ID: id})
	}
	c.JSON(http.StatusOK, resp)
}

// AddExclusion excludes a channel or thread id from scanning
// POST /api/v1/exclusions
func (h *Handler) AddExclusion(c *gin.Context) {
	var req AddExclusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := errors.BadRequest(err.Error())
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	if err := h.service.Exclusions().Add(c.Request.Context(), req.ID); err != nil {
		h.logger.Error("failed to add exclusion", zap.String("id", req.ID), zap.Error(err))
		appErr := errors.InternalError("failed to add exclusion", err)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.JSON(http.StatusCreated, v1.ExclusionInfo{ID: req.ID})
}

// RemoveExclusion re-enables scanning for an id
// DELETE /api/v1/exclusions/:id
func (h *Handler) RemoveExclusion(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		appErr := errors.BadRequest("id is required")
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	if err := h.service.Exclusions().Remove(c.Request.Context(), id); err != nil {
		h.logger.Error("failed to remove exclusion", zap.String("id", id), zap.Error(err))
		appErr := errors.InternalError("failed to remove exclusion", err)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListPendingClosures returns the threads awaiting archival
// GET /api/v1/closures
func (h *Handler) ListPendingClosures(c *gin.Context) {
	entries := h.service.PendingClosures()

	resp := v1.PendingClosureListResponse{
		Closures: make([]v1.PendingClosureInfo, 0, len(entries)),
		Count:    len(entries),
	}
	for _, entry := range entries {
		resp.Closures = append(resp.Closures, v1.PendingClosureInfo{
			ThreadID:   entry.ThreadID,
			OwnerID:    entry.OwnerID,
			NotifiedAt: entry.NotifiedAt,
			CloseAt:    entry.CloseAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// TriggerSweep runs a manual inactivity pass synchronously
// POST /api/v1/sweep
func (h *Handler) TriggerSweep(c *gin.Context) {
	result, err := h.service.ManualSweep(c.Request.Context())
	if err != nil {
		h.logger.Error("manual sweep failed", zap.Error(err))
		appErr := errors.InternalError("manual sweep failed", err)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.JSON(http.StatusOK, v1.SweepResponse{
		Processed:    result.Processed,
		Notified:     result.Notified,
		AutoArchived: result.AutoArchived,
		Skipped:      result.Skipped,
		Errors:       result.Errors,
	})
}
