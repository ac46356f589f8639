package domain

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus represents the lifecycle state of a game record.
type GameStatus string

const (
	GameStatusCompleted       GameStatus = "COMPLETED"
	GameStatusPendingDelivery GameStatus = "PENDING_DELIVERY"
)

// RedemptionChoice is the explicit tri-state of a PRODUCT-prize win.
type RedemptionChoice string

const (
	RedemptionUndecided    RedemptionChoice = "UNDECIDED"
	RedemptionChoseMoney   RedemptionChoice = "CHOSE_MONEY"
	RedemptionChoseProduct RedemptionChoice = "CHOSE_PRODUCT"
)

// WonPrizeType records what kind of payout a game produced.
type WonPrizeType string

const (
	WonPrizeNone    WonPrizeType = "NONE"
	WonPrizeMoney   WonPrizeType = "MONEY"
	WonPrizeProduct WonPrizeType = "PRODUCT"
	// WonPrizeRedemption marks a PRODUCT win later converted to cash.
	WonPrizeRedemption WonPrizeType = "REDEMPTION"
)

// GameRecord is the immutable outcome of one play. The only permitted
// mutation after creation is the one-time redemption transition.
type GameRecord struct {
	ID               uuid.UUID        `json:"id"`
	PlayerID         uuid.UUID        `json:"player_id"`
	ProductID        uuid.UUID        `json:"product_id"`
	PrizeID          *uuid.UUID       `json:"prize_id,omitempty"`
	IsWinner         bool             `json:"is_winner"`
	AmountWon        int64            `json:"amount_won"`
	PrizeType        WonPrizeType     `json:"prize_type"`
	RedemptionChoice RedemptionChoice `json:"redemption_choice"`
	Status           GameStatus       `json:"status"`
	PlayedAt         time.Time        `json:"played_at"`
}

// IsRedeemable returns true if this record is eligible for the one-time
// redemption choice: a completed PRODUCT-prize win still undecided.
func (g *GameRecord) IsRedeemable() bool {
	return g.IsWinner &&
		g.PrizeType == WonPrizeProduct &&
		g.Status == GameStatusCompleted &&
		g.RedemptionChoice == RedemptionUndecided
}
