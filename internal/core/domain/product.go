package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScratchCardProduct is a card product with its price, RTP tracking and
// lifetime play statistics.
//
// TotalRevenue/TotalPayouts include every play. RTPRevenue/RTPPayouts
// accumulate non-influencer plays only and are the sole inputs to
// CurrentRTP, so influencer plays never perturb the published RTP.
type ScratchCardProduct struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Price            int64     `json:"price"` // Smallest currency unit
	TargetRTP        float64   `json:"target_rtp"`
	CurrentRTP       float64   `json:"current_rtp"`
	TotalRevenue     int64     `json:"total_revenue"`
	TotalPayouts     int64     `json:"total_payouts"`
	TotalGamesPlayed int64     `json:"total_games_played"`
	RTPRevenue       int64     `json:"-"`
	RTPPayouts       int64     `json:"-"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ApplyPlay folds one completed play into the product statistics.
// Influencer plays move the lifetime totals but not the RTP accumulators,
// so CurrentRTP stays untouched for them.
func (p *ScratchCardProduct) ApplyPlay(stake, payout int64, influencer bool) {
	p.TotalRevenue += stake
	p.TotalPayouts += payout
	p.TotalGamesPlayed++
	if !influencer {
		p.RTPRevenue += stake
		p.RTPPayouts += payout
		p.CurrentRTP = computeRTP(p.RTPPayouts, p.RTPRevenue)
	}
}

// ApplyRedemptionPayout folds a cash redemption into the payout totals.
func (p *ScratchCardProduct) ApplyRedemptionPayout(amount int64, influencer bool) {
	p.TotalPayouts += amount
	if !influencer {
		p.RTPPayouts += amount
		p.CurrentRTP = computeRTP(p.RTPPayouts, p.RTPRevenue)
	}
}

// computeRTP returns payouts/revenue as a percentage, 0 when revenue is 0.
func computeRTP(payouts, revenue int64) float64 {
	if revenue == 0 {
		return 0
	}
	return float64(payouts) / float64(revenue) * 100
}

// ProductStats is the read-only statistics view of a product.
type ProductStats struct {
	ProductID        uuid.UUID `json:"product_id"`
	Price            int64     `json:"price"`
	TargetRTP        float64   `json:"target_rtp"`
	CurrentRTP       float64   `json:"current_rtp"`
	TotalRevenue     int64     `json:"total_revenue"`
	TotalPayouts     int64     `json:"total_payouts"`
	TotalGamesPlayed int64     `json:"total_games_played"`
}

// Stats returns the statistics view of the product.
func (p *ScratchCardProduct) Stats() ProductStats {
	return ProductStats{
		ProductID:        p.ID,
		Price:            p.Price,
		TargetRTP:        p.TargetRTP,
		CurrentRTP:       p.CurrentRTP,
		TotalRevenue:     p.TotalRevenue,
		TotalPayouts:     p.TotalPayouts,
		TotalGamesPlayed: p.TotalGamesPlayed,
	}
}
