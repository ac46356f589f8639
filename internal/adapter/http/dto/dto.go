package dto

import (
	"prize-scratch-engine/internal/core/domain"
	"prize-scratch-engine/internal/core/ports"
)

// RegisterRequest is the request body for player registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for player login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// PlayRequest is the request body for playing a scratch card.
type PlayRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	// Reference is an optional client idempotency key. Replays with the
	// same reference return the original result.
	Reference string `json:"reference,omitempty" binding:"omitempty,max=100,safe_id"`
}

// RedemptionRequest is the request body for the one-time redemption choice.
type RedemptionRequest struct {
	Choice string `json:"choice" binding:"required,oneof=money product"`
}

// GameResponse is the API view of one game record.
type GameResponse struct {
	ID               string `json:"id"`
	ProductID        string `json:"product_id"`
	PrizeID          string `json:"prize_id,omitempty"`
	IsWinner         bool   `json:"is_winner"`
	AmountWon        int64  `json:"amount_won"`
	PrizeType        string `json:"prize_type"`
	RedemptionChoice string `json:"redemption_choice"`
	Status           string `json:"status"`
	PlayedAt         string `json:"played_at"`
}

// PrizeResponse describes the prize attached to a winning play.
type PrizeResponse struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Value           int64  `json:"value,omitempty"`
	ProductName     string `json:"product_name,omitempty"`
	RedemptionValue int64  `json:"redemption_value,omitempty"`
}

// PlayResponse is the response body for a completed play.
type PlayResponse struct {
	Game    GameResponse   `json:"game"`
	Prize   *PrizeResponse `json:"prize,omitempty"`
	Balance int64          `json:"balance"`
}

// ProductStatsResponse is the public statistics view of a product.
type ProductStatsResponse struct {
	ProductID        string  `json:"product_id"`
	Price            int64   `json:"price"`
	TargetRTP        float64 `json:"target_rtp"`
	CurrentRTP       float64 `json:"current_rtp"`
	TotalRevenue     int64   `json:"total_revenue"`
	TotalPayouts     int64   `json:"total_payouts"`
	TotalGamesPlayed int64   `json:"total_games_played"`
}

// WalletBalanceResponse is the response for balance query.
type WalletBalanceResponse struct {
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

// DepositWebhookRequest is the signed deposit-confirmation callback body
// sent by the payment provider.
type DepositWebhookRequest struct {
	PlayerID          string `json:"player_id" binding:"required,uuid"`
	ProviderReference string `json:"provider_reference" binding:"required,max=100,safe_id"`
	Amount            int64  `json:"amount" binding:"required,gt=0"`
}

// DepositResponse confirms a consumed deposit.
type DepositResponse struct {
	ID                string `json:"id"`
	ProviderReference string `json:"provider_reference"`
	Amount            int64  `json:"amount"`
	CreditedAt        string `json:"credited_at"`
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// ToGameResponse converts a domain.GameRecord to its API view.
func ToGameResponse(g *domain.GameRecord) GameResponse {
	resp := GameResponse{
		ID:               g.ID.String(),
		ProductID:        g.ProductID.String(),
		IsWinner:         g.IsWinner,
		AmountWon:        g.AmountWon,
		PrizeType:        string(g.PrizeType),
		RedemptionChoice: string(g.RedemptionChoice),
		Status:           string(g.Status),
		PlayedAt:         g.PlayedAt.Format(timeLayout),
	}
	if g.PrizeID != nil {
		resp.PrizeID = g.PrizeID.String()
	}
	return resp
}

// ToPlayResponse converts a service play result to its API view.
func ToPlayResponse(r *ports.PlayResult) PlayResponse {
	resp := PlayResponse{
		Game:    ToGameResponse(r.Game),
		Balance: r.Balance,
	}
	if r.Prize != nil {
		resp.Prize = &PrizeResponse{
			ID:              r.Prize.ID.String(),
			Type:            string(r.Prize.Type),
			Value:           r.Prize.Value,
			ProductName:     r.Prize.ProductName,
			RedemptionValue: r.Prize.RedemptionValue,
		}
	}
	return resp
}

// ToProductStatsResponse converts domain.ProductStats to its API view.
func ToProductStatsResponse(s *domain.ProductStats) ProductStatsResponse {
	return ProductStatsResponse{
		ProductID:        s.ProductID.String(),
		Price:            s.Price,
		TargetRTP:        s.TargetRTP,
		CurrentRTP:       s.CurrentRTP,
		TotalRevenue:     s.TotalRevenue,
		TotalPayouts:     s.TotalPayouts,
		TotalGamesPlayed: s.TotalGamesPlayed,
	}
}

// ToDepositResponse converts a domain.DepositRecord to its API view.
func ToDepositResponse(d *domain.DepositRecord) DepositResponse {
	return DepositResponse{
		ID:                d.ID.String(),
		ProviderReference: d.ProviderReference,
		Amount:            d.Amount,
		CreditedAt:        d.CreatedAt.Format(timeLayout),
	}
}
