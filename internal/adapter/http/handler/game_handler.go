package handler

import (
	"prize-scratch-engine/internal/adapter/http/dto"
	"prize-scratch-engine/internal/adapter/http/middleware"
	"prize-scratch-engine/internal/core/ports"
	"prize-scratch-engine/pkg/apperror"
	"prize-scratch-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GameHandler handles scratch-card play and redemption endpoints.
type GameHandler struct {
	gameSvc ports.GameService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(gameSvc ports.GameService) *GameHandler {
	return &GameHandler{gameSvc: gameSvc}
}

// Play handles POST /api/v1/games/play.
func (h *GameHandler) Play(c *gin.Context) {
	playerID, ok := c.Get(middleware.CtxPlayerID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid product_id"))
		return
	}

	result, err := h.gameSvc.PlayScratchCard(c.Request.Context(), ports.PlayRequest{
		PlayerID:  playerID.(uuid.UUID),
		ProductID: productID,
		Reference: req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToPlayResponse(result))
}

// Redeem handles POST /api/v1/games/:id/redemption.
func (h *GameHandler) Redeem(c *gin.Context) {
	playerID, ok := c.Get(middleware.CtxPlayerID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	gameID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid game id"))
		return
	}

	var req dto.RedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrInvalidChoice())
		return
	}

	game, err := h.gameSvc.ChooseRedemption(c.Request.Context(), playerID.(uuid.UUID), gameID, req.Choice)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToGameResponse(game))
}

// GetGame handles GET /api/v1/games/:id.
func (h *GameHandler) GetGame(c *gin.Context) {
	playerID, ok := c.Get(middleware.CtxPlayerID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	gameID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid game id"))
		return
	}

	game, err := h.gameSvc.GetGame(c.Request.Context(), playerID.(uuid.UUID), gameID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToGameResponse(game))
}

// GetProductStats handles GET /api/v1/products/:id/stats.
func (h *GameHandler) GetProductStats(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid product id"))
		return
	}

	stats, err := h.gameSvc.GetProductStats(c.Request.Context(), productID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToProductStatsResponse(stats))
}
