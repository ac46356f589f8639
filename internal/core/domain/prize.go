package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PrizeType distinguishes cash prizes from physical product prizes.
type PrizeType string

const (
	PrizeTypeMoney   PrizeType = "MONEY"
	PrizeTypeProduct PrizeType = "PRODUCT"
)

// Prize is one weighted entry in a product's ordered prize list.
// MONEY prizes carry Value; PRODUCT prizes carry ProductName and
// RedemptionValue (the cash-equivalent a winner may later choose).
type Prize struct {
	ID              uuid.UUID `json:"id"`
	ProductID       uuid.UUID `json:"product_id"`
	Type            PrizeType `json:"type"`
	Value           int64     `json:"value,omitempty"`
	ProductName     string    `json:"product_name,omitempty"`
	RedemptionValue int64     `json:"redemption_value,omitempty"`
	Probability     float64   `json:"probability"` // Percent
	SortOrder       int       `json:"sort_order"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// PayoutValue returns the cash amount credited immediately on a win:
// the value for MONEY prizes, zero for PRODUCT prizes (until redeemed).
func (p *Prize) PayoutValue() int64 {
	if p.Type == PrizeTypeMoney {
		return p.Value
	}
	return 0
}

// ValidatePrizeProbabilities checks that the active prizes of one product
// sum to at most 100 percent.
func ValidatePrizeProbabilities(prizes []Prize) error {
	var sum float64
	for _, prize := range prizes {
		if !prize.IsActive {
			continue
		}
		if prize.Probability < 0 {
			return fmt.Errorf("prize %s has negative probability %.2f", prize.ID, prize.Probability)
		}
		sum += prize.Probability
	}
	if sum > 100 {
		return fmt.Errorf("active prize probabilities sum to %.2f, exceeds 100", sum)
	}
	return nil
}
