package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/virtulab/virtulab-api/internal/service"
	appErrors "github.com/virtulab/virtulab-api/pkg/errors"
	"github.com/virtulab/virtulab-api/pkg/response"
)

// GameHandler exposes the gamified interaction endpoints.
type GameHandler struct {
	games *service.GameService
}

// NewGameHandler constructs handler.
func NewGameHandler(games *service.GameService) *GameHandler {
	return &GameHandler{games: games}
}

// ProcessAction godoc
// @Summary Process one gamified lab action
// @Tags Game
// @Accept json
// @Produce json
// @Param id path string true "Simulation ID"
// @Param payload body service.ProcessActionRequest true "Action payload"
// @Success 200 {object} response.Envelope
// @Router /simulations/{id}/actions [post]
func (h *GameHandler) ProcessAction(c *gin.Context) {
	var req service.ProcessActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.games.ProcessAction(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// MixChemicals godoc
// @Summary Mix two chemicals in the virtual lab
// @Tags Game
// @Accept json
// @Produce json
// @Param id path string true "Simulation ID"
// @Param payload body service.MixChemicalsRequest true "Mixing payload"
// @Success 200 {object} response.Envelope
// @Router /simulations/{id}/mix [post]
func (h *GameHandler) MixChemicals(c *gin.Context) {
	var req service.MixChemicalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.games.MixChemicals(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RequestHint godoc
// @Summary Request a contextual hint
// @Tags Game
// @Accept json
// @Produce json
// @Param id path string true "Simulation ID"
// @Param payload body service.HintRequestPayload false "Hint payload"
// @Success 200 {object} response.Envelope
// @Router /simulations/{id}/hint [post]
func (h *GameHandler) RequestHint(c *gin.Context) {
	var req service.HintRequestPayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	hint, err := h.games.RequestHint(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hint, nil)
}

// ListActions godoc
// @Summary List the simulation's processed actions
// @Tags Game
// @Produce json
// @Param id path string true "Simulation ID"
// @Success 200 {object} response.Envelope
// @Router /simulations/{id}/actions [get]
func (h *GameHandler) ListActions(c *gin.Context) {
	actions, err := h.games.ListActions(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, actions, nil)
}
