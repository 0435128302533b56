// Package risk scores opportunity drafts. The score travels with the
// opportunity; emission policy is left to consumers.
package risk

import "github.com/you/arb-scan/internal/types"

// Engine produces a 0..1 score where higher means safer.
type Engine struct {
	maxSlippagePct float64
}

func NewEngine(maxSlippagePct float64) *Engine {
	if maxSlippagePct <= 0 {
		maxSlippagePct = 2.0
	}
	return &Engine{maxSlippagePct: maxSlippagePct}
}

func (e *Engine) Assess(o *types.Opportunity) float64 {
	score := 1.0

	// Synthetic legs cannot be traded; flag them near the floor.
	if o.Synthetic {
		return 0.1
	}

	// Slippage relative to the tolerated maximum.
	if o.SlippagePct > 0 {
		penalty := o.SlippagePct / e.maxSlippagePct
		if penalty > 0.6 {
			penalty = 0.6
		}
		score -= penalty
	}

	// Spreads beyond a few percent on spot CEX pairs are usually bad data.
	grossPct := (o.SellPrice - o.BuyPrice) / o.BuyPrice * 100
	if grossPct > 5.0 {
		score -= 0.3
	}

	if score < 0.1 {
		score = 0.1
	}
	return score
}
