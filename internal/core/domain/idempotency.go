package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlayIdempotencyLog caches the result of a play keyed by the client's
// reference so a retried request returns the original outcome instead of
// charging the player twice.
type PlayIdempotencyLog struct {
	Key          string    `json:"key"` // Format: "player_id:reference"
	GameID       uuid.UUID `json:"game_id"`
	ResponseJSON []byte    `json:"response_json"` // Cached response to return
	CreatedAt    time.Time `json:"created_at"`
}

// BuildPlayIdempotencyKey constructs the standard key format.
func BuildPlayIdempotencyKey(playerID uuid.UUID, reference string) string {
	return playerID.String() + ":" + reference
}
