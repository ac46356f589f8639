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

// WalletHandler handles wallet-related endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// GetBalance handles GET /api/v1/wallets/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	playerID, ok := c.Get(middleware.CtxPlayerID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	balance, currency, err := h.walletSvc.GetBalance(c.Request.Context(), playerID.(uuid.UUID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletBalanceResponse{
		Balance:  balance,
		Currency: currency,
	})
}

// DepositWebhook handles POST /api/v1/webhooks/deposits — the signed
// deposit-confirmation callback from the payment provider. Replays with the
// same provider_reference return the original record.
func (h *WalletHandler) DepositWebhook(c *gin.Context) {
	var req dto.DepositWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid player_id"))
		return
	}

	record, err := h.walletSvc.ConfirmDeposit(c.Request.Context(), ports.DepositConfirmation{
		PlayerID:          playerID,
		ProviderReference: req.ProviderReference,
		Amount:            req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToDepositResponse(record))
}
