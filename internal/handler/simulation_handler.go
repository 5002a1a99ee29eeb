package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/virtulab/virtulab-api/internal/models"
	"github.com/virtulab/virtulab-api/internal/service"
	appErrors "github.com/virtulab/virtulab-api/pkg/errors"
	"github.com/virtulab/virtulab-api/pkg/response"
)

// SimulationHandler exposes the simulation lifecycle endpoints.
type SimulationHandler struct {
	sims *service.SimulationService
}

// NewSimulationHandler constructs handler.
func NewSimulationHandler(sims *service.SimulationService) *SimulationHandler {
	return &SimulationHandler{sims: sims}
}

// Generate godoc
// @Summary Generate a new simulation from a prompt
// @Tags Simulations
// @Accept json
// @Produce json
// @Param payload body service.GenerateSimulationRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Router /simulations/generate [post]
func (h *SimulationHandler) Generate(c *gin.Context) {
	var req service.GenerateSimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sim, err := h.sims.Generate(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sim)
}

// List godoc
// @Summary List simulations
// @Tags Simulations
// @Produce json
// @Param status query string false "Filter by lifecycle status"
// @Param subject query string false "Filter by subject"
// @Param studentId query string false "Student ID (staff only)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /simulations [get]
func (h *SimulationHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	filter := models.SimulationFilter{
		StudentID: c.Query("studentId"),
		Status:    models.Status(c.Query("status")),
		Subject:   models.Subject(c.Query("subject")),
		Page:      page,
		PageSize:  pageSize,
	}
	sims, pagination, counts, err := h.sims.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sims, pagination, map[string]interface{}{"statusCounts": counts})
}

// Get godoc
// @Summary Get one simulation
// @Tags Simulations
// @Produce json
// @Param id path string true "Simulation ID"
// @Success 200 {object} response.Envelope
// @Router /simulations/{id} [get]
func (h *SimulationHandler) Get(c *gin.Context) {
	sim, err := h.sims.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sim, nil)
}

// Start godoc
// @Summary Start a simulation
// @Tags Simulations
// @Produce json
// @Param id path string true "Simulation ID"
// @Success 200 {object} response.Envelope
// @Router /simulations/{id}/start [post]
func (h *SimulationHandler) Start(c *gin.Context) {
	sim, err := h.sims.Start(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sim, nil)
}

// Pause godoc
// @Summary Pause a running simulation
// @Tags Simulations
// @Produce json
// @Param id path string true "Simulation ID"
// @Success 200 {object} response.Envelope
// @Router /simulations/{id}/pause [post]
func (h *SimulationHandler) Pause(c *gin.Context) {
	sim, err := h.sims.Pause(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sim, nil)
}

// Resume godoc
// @Summary Resume a paused simulation
// @Tags Simulations
// @Produce json
// @Param id path string true "Simulation ID"
// @Success 200 {object} response.Envelope
// @Router /simulations/{id}/resume [post]
func (h *SimulationHandler) Resume(c *gin.Context) {
	sim, err := h.sims.Resume(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sim, nil)
}

// Complete godoc
// @Summary Complete a simulation and finalize its results
// @Tags Simulations
// @Accept json
// @Produce json
// @Param id path string true "Simulation ID"
// @Param payload body service.CompleteSimulationRequest false "Final results"
// @Success 200 {object} response.Envelope
// @Router /simulations/{id}/complete [post]
func (h *SimulationHandler) Complete(c *gin.Context) {
	var req service.CompleteSimulationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	sim, summary, err := h.sims.Complete(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"simulation": sim, "summary": summary}, nil)
}

// UpdateState godoc
// @Summary Patch the simulation state
// @Tags Simulations
// @Accept json
// @Produce json
// @Param id path string true "Simulation ID"
// @Param payload body service.StateUpdateRequest true "State patch"
// @Success 200 {object} response.Envelope
// @Router /simulations/{id}/state [put]
func (h *SimulationHandler) UpdateState(c *gin.Context) {
	var req service.StateUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sim, err := h.sims.UpdateState(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sim, nil)
}
