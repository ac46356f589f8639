package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// License is the operator's metered credit pool. Every paid play consumes
// credits; CreditsUsed is monotonic non-decreasing. Exactly one license row
// is active at a time and it is always addressed explicitly by that flag,
// never by insertion order.
type License struct {
	ID            uuid.UUID `json:"id"`
	Credits       int64     `json:"credits"`
	CreditsUsed   int64     `json:"credits_used"`
	CreditsValue  int64     `json:"credits_value"` // Wager amount covered by one credit
	GGRPercentage float64   `json:"ggr_percentage"`
	TotalEarnings int64     `json:"total_earnings"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreditsNeeded returns how many credits a wager of the given amount costs:
// ceil(amount / CreditsValue), or 1 when CreditsValue is not positive.
func (l *License) CreditsNeeded(amount int64) int64 {
	if l.CreditsValue <= 0 {
		return 1
	}
	return (amount + l.CreditsValue - 1) / l.CreditsValue
}

// HasCreditsFor returns true if the license is active and holds enough
// credits for a wager of the given amount.
func (l *License) HasCreditsFor(amount int64) bool {
	return l.IsActive && l.Credits >= l.CreditsNeeded(amount)
}

// EarningsFor returns the operator's GGR share of a wager, rounded to the
// nearest smallest currency unit.
func (l *License) EarningsFor(amount int64) int64 {
	return int64(math.Round(float64(amount) * l.GGRPercentage / 100))
}

// Consume applies one wager to the meter: credits down, usage and earnings up.
func (l *License) Consume(amount int64) {
	needed := l.CreditsNeeded(amount)
	l.Credits -= needed
	l.CreditsUsed += needed
	l.TotalEarnings += l.EarningsFor(amount)
}

// UsageRecord is one append-only audit entry of license credit consumption.
type UsageRecord struct {
	ID          uuid.UUID `json:"id"`
	LicenseID   uuid.UUID `json:"license_id"`
	PlayerID    uuid.UUID `json:"player_id"`
	ProductID   uuid.UUID `json:"product_id"`
	CreditsUsed int64     `json:"credits_used"`
	CreatedAt   time.Time `json:"created_at"`
}
