package domain

import (
	"time"

	"github.com/google/uuid"
)

// DepositStatus represents the state of a consumed deposit confirmation.
type DepositStatus string

const (
	DepositStatusConfirmed DepositStatus = "CONFIRMED"
)

// DepositRecord is one consumed "deposit confirmed" event from the external
// payment provider. ProviderReference makes consumption idempotent.
type DepositRecord struct {
	ID                uuid.UUID     `json:"id"`
	PlayerID          uuid.UUID     `json:"player_id"`
	WalletID          uuid.UUID     `json:"wallet_id"`
	ProviderReference string        `json:"provider_reference"`
	Amount            int64         `json:"amount"`
	Status            DepositStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
}
