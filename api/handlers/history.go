package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cloudpilot-labs/cost-governor/internal/logger"
	"github.com/cloudpilot-labs/cost-governor/pkg/database/queries"
	"github.com/gin-gonic/gin"
)

// HistoryHandler serves the persisted capacity action and expiration
// warning history.
type HistoryHandler struct {
	actions      *queries.CapacityActionRepository
	warnings     *queries.WarningRepository
	defaultLimit int
	maxLimit     int
}

func NewHistoryHandler(actions *queries.CapacityActionRepository, warnings *queries.WarningRepository, defaultLimit, maxLimit int) *HistoryHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &HistoryHandler{
		actions:      actions,
		warnings:     warnings,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (h *HistoryHandler) limit(c *gin.Context) int {
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}
	return limit
}

func timeRange(c *gin.Context) (time.Time, time.Time) {
	to := time.Now()
	from := to.Add(-24 * time.Hour)

	if raw := c.Query("from"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			from = parsed
		}
	}
	if raw := c.Query("to"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			to = parsed
		}
	}
	return from, to
}

func (h *HistoryHandler) GetFleetActions(c *gin.Context) {
	id := c.Param("id")
	from, to := timeRange(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	actions, err := h.actions.GetByFleet(ctx, id, from, to, h.limit(c))
	if err != nil {
		logger.ErrorCtxf(ctx, "Failed to fetch fleet actions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch actions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fleet_id": id,
		"actions":  actions,
		"count":    len(actions),
	})
}

func (h *HistoryHandler) GetRecentActions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	actions, err := h.actions.GetRecent(ctx, h.limit(c))
	if err != nil {
		logger.ErrorCtxf(ctx, "Failed to fetch recent actions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch actions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"actions": actions,
		"count":   len(actions),
	})
}

func (h *HistoryHandler) GetFleetActionStats(c *gin.Context) {
	id := c.Param("id")
	from, to := timeRange(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	stats, err := h.actions.GetStats(ctx, id, from, to)
	if err != nil {
		logger.ErrorCtxf(ctx, "Failed to fetch action stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch action stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fleet_id": id,
		"from":     from,
		"to":       to,
		"stats":    stats,
	})
}

func (h *HistoryHandler) GetRecentWarnings(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	warnings, err := h.warnings.GetRecent(ctx, h.limit(c))
	if err != nil {
		logger.ErrorCtxf(ctx, "Failed to fetch recent warnings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch warnings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"warnings": warnings,
		"count":    len(warnings),
	})
}
