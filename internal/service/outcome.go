package service

import (
	crand "crypto/rand"
	"math/rand/v2"
	"sync"

	"prize-scratch-engine/internal/core/domain"
	"prize-scratch-engine/internal/core/ports"
)

// RTP steering multipliers: boost win odds while the product pays out below
// its target, brake them while it pays out above.
const (
	rtpBoostMultiplier = 1.2
	rtpBrakeMultiplier = 0.8
)

// InfluencerBoostPolicy decides the extra odds multiplier an influencer
// account receives. It is a named policy so the business decision can be
// audited or swapped without touching the resolution algorithm.
type InfluencerBoostPolicy interface {
	Multiplier(isInfluencer bool) float64
}

// StaticBoostPolicy multiplies influencer odds by a fixed factor.
type StaticBoostPolicy struct {
	Factor float64
}

// Multiplier returns the factor for influencers and 1 for everyone else.
func (p StaticBoostPolicy) Multiplier(isInfluencer bool) float64 {
	if isInfluencer {
		return p.Factor
	}
	return 1
}

// DefaultBoostPolicy is the production influencer policy: 6x win odds.
func DefaultBoostPolicy() StaticBoostPolicy {
	return StaticBoostPolicy{Factor: 6}
}

// Outcome is the result of resolving one play.
type Outcome struct {
	IsWinner bool
	Prize    *domain.Prize
}

// OutcomeResolver maps (prize list, RTP position, player privilege, draw)
// to a win/lose decision. It is side-effect-free: the same inputs and draw
// always produce the same outcome.
type OutcomeResolver struct {
	policy InfluencerBoostPolicy
}

// NewOutcomeResolver creates a resolver with the given influencer policy.
func NewOutcomeResolver(policy InfluencerBoostPolicy) *OutcomeResolver {
	return &OutcomeResolver{policy: policy}
}

// Resolve walks the prize list in its fixed order, accumulating each active
// prize's probability scaled by the RTP multiplier. The first prize whose
// cumulative sum reaches the draw wins; an exhausted list is a loss, and a
// product without active prizes always loses.
func (r *OutcomeResolver) Resolve(prizes []domain.Prize, currentRTP, targetRTP float64, isInfluencer bool, draw float64) Outcome {
	multiplier := 1.0
	switch {
	case currentRTP < targetRTP:
		multiplier = rtpBoostMultiplier
	case currentRTP > targetRTP:
		multiplier = rtpBrakeMultiplier
	}
	multiplier *= r.policy.Multiplier(isInfluencer)

	cumulative := 0.0
	for i := range prizes {
		if !prizes[i].IsActive {
			continue
		}
		cumulative += prizes[i].Probability * multiplier
		if cumulative >= draw {
			return Outcome{IsWinner: true, Prize: &prizes[i]}
		}
	}
	return Outcome{}
}

// randDrawSource implements ports.DrawSource with a ChaCha8 generator seeded
// from crypto/rand. Safe for concurrent use.
type randDrawSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDrawSource creates the production draw source.
func NewDrawSource() ports.DrawSource {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("outcome: seeding draw source: " + err.Error())
	}
	return &randDrawSource{rng: rand.New(rand.NewChaCha8(seed))}
}

// Draw returns a uniform value in [0,100).
func (d *randDrawSource) Draw() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Float64() * 100
}
