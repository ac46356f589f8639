package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a player's cash balance in the smallest currency unit.
// The balance is mutated only by ledger operations inside a transaction
// and must never go negative.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	PlayerID  uuid.UUID `json:"player_id"`
	Balance   int64     `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanDebit returns true if debiting amount would leave the balance non-negative.
func (w *Wallet) CanDebit(amount int64) bool {
	return amount >= 0 && w.Balance >= amount
}
