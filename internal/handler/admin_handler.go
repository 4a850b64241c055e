package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ticketrush/admission/internal/domain"
	"github.com/ticketrush/admission/internal/dto"
	"github.com/ticketrush/admission/internal/service"
	"github.com/ticketrush/admission/internal/worker"
)

// AdminHandler handles admin HTTP requests
type AdminHandler struct {
	queueService   service.QueueService
	sessionService service.SessionService
	adminService   service.AdminService
	scheduler      *worker.SchedulerWorker
}

// NewAdminHandler creates a new admin handler. The scheduler is optional;
// stats report empty when the API serves without an embedded scheduler.
func NewAdminHandler(
	queueService service.QueueService,
	sessionService service.SessionService,
	adminService service.AdminService,
	scheduler *worker.SchedulerWorker,
) *AdminHandler {
	return &AdminHandler{
		queueService:   queueService,
		sessionService: sessionService,
		adminService:   adminService,
		scheduler:      scheduler,
	}
}

// SyncInventoryResponse represents the response for sync inventory
type SyncInventoryResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	TypesSynced int    `json:"types_synced"`
}

// Bounds for the waiting-entry listing in the queue snapshot
const (
	defaultSnapshotLimit = 100
	maxSnapshotLimit     = 1000
)

// GetQueueSnapshot handles GET /admin/queue/:event_id. An optional
// limit query bounds how many waiting entries are listed.
func (h *AdminHandler) GetQueueSnapshot(c *gin.Context) {
	eventID := c.Param("event_id")
	if eventID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "event_id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	limit := int64(defaultSnapshotLimit)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error: "limit must be a positive integer",
				Code:  "INVALID_REQUEST",
			})
			return
		}
		limit = parsed
	}
	if limit > maxSnapshotLimit {
		limit = maxSnapshotLimit
	}

	result, err := h.queueService.GetQueueSnapshot(c.Request.Context(), eventID, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ForceCancelEntry handles DELETE /admin/entries/:entry_id
func (h *AdminHandler) ForceCancelEntry(c *gin.Context) {
	entryID := c.Param("entry_id")
	if entryID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "entry_id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if err := h.adminService.ForceCancelEntry(c.Request.Context(), entryID); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"entry_id": entryID,
	})
}

// ExtendSession handles POST /admin/sessions/:session_id/extend
func (h *AdminHandler) ExtendSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "session_id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	var req dto.ExtendSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	result, err := h.sessionService.ExtendSession(c.Request.Context(), sessionID, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SyncInventory handles POST /admin/events/:event_id/sync-inventory.
// Loads ticket types from PostgreSQL into the live Redis counters.
func (h *AdminHandler) SyncInventory(c *gin.Context) {
	eventID := c.Param("event_id")
	if eventID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "event_id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	count, err := h.adminService.SyncInventory(c.Request.Context(), eventID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, SyncInventoryResponse{
		Success:     true,
		Message:     fmt.Sprintf("Synced %d ticket types to Redis", count),
		TypesSynced: count,
	})
}

// GetSchedulerStats handles GET /admin/scheduler/stats
func (h *AdminHandler) GetSchedulerStats(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"enabled": true,
		"stats":   h.scheduler.GetStats(),
	})
}

// handleError converts domain errors to HTTP responses
func (h *AdminHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "ENTRY_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "SESSION_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrSessionNotActive):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "SESSION_NOT_ACTIVE",
		})
	case errors.Is(err, domain.ErrEventNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "EVENT_NOT_FOUND",
		})
	case domain.IsValidationError(err):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}
