package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/virtulab/virtulab-api/internal/service"
	appErrors "github.com/virtulab/virtulab-api/pkg/errors"
	"github.com/virtulab/virtulab-api/pkg/response"
)

// StatsHandler exposes game statistics, the leaderboard, and the guardian
// progress roll-up.
type StatsHandler struct {
	stats       *service.StatsService
	leaderboard *service.LeaderboardService
	sims        *service.SimulationService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(stats *service.StatsService, leaderboard *service.LeaderboardService, sims *service.SimulationService) *StatsHandler {
	return &StatsHandler{stats: stats, leaderboard: leaderboard, sims: sims}
}

// MyStats godoc
// @Summary Aggregate game stats of the authenticated student
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/me [get]
func (h *StatsHandler) MyStats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stats, err := h.stats.ForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// StudentStats godoc
// @Summary Aggregate game stats of one student
// @Tags Stats
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /stats/students/{id} [get]
func (h *StatsHandler) StudentStats(c *gin.Context) {
	stats, err := h.stats.ForStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Leaderboard godoc
// @Summary Ranked students by cumulative game score
// @Tags Stats
// @Produce json
// @Param level query int false "Filter by student level"
// @Param limit query int false "Number of entries"
// @Success 200 {object} response.Envelope
// @Router /stats/leaderboard [get]
func (h *StatsHandler) Leaderboard(c *gin.Context) {
	level, _ := strconv.Atoi(c.Query("level"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.leaderboard.Top(c.Request.Context(), level, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ChildrenProgress godoc
// @Summary Progress roll-up for the guardian's linked students
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /parents/children/progress [get]
func (h *StatsHandler) ChildrenProgress(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	progress, err := h.sims.ChildrenProgress(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// ExportChildrenProgress godoc
// @Summary Download the guardian progress roll-up as CSV or PDF
// @Tags Stats
// @Produce octet-stream
// @Param format query string true "Report format (csv or pdf)"
// @Success 200 {file} binary
// @Router /parents/children/progress/export [get]
func (h *StatsHandler) ExportChildrenProgress(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format := c.DefaultQuery("format", "csv")
	progress, err := h.sims.ChildrenProgress(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, contentType, err := h.stats.RenderProgressReport(progress, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("progress-report-%s.%s", time.Now().UTC().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
