package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/you/arb-scan/internal/types"
)

func TestAssess_CleanOpportunityScoresHigh(t *testing.T) {
	e := NewEngine(2.0)
	score := e.Assess(&types.Opportunity{
		BuyPrice:  100,
		SellPrice: 101,
	})
	assert.Equal(t, 1.0, score)
}

func TestAssess_SyntheticPinnedToFloor(t *testing.T) {
	e := NewEngine(2.0)
	score := e.Assess(&types.Opportunity{
		BuyPrice:  100,
		SellPrice: 101,
		Synthetic: true,
	})
	assert.Equal(t, 0.1, score)
}

func TestAssess_SlippagePenalty(t *testing.T) {
	e := NewEngine(2.0)

	mild := e.Assess(&types.Opportunity{BuyPrice: 100, SellPrice: 101, SlippagePct: 0.5})
	heavy := e.Assess(&types.Opportunity{BuyPrice: 100, SellPrice: 101, SlippagePct: 1.5})
	assert.Less(t, heavy, mild)

	// The penalty is capped, so huge slippage cannot drive the score below 0.4
	// on an otherwise clean opportunity.
	extreme := e.Assess(&types.Opportunity{BuyPrice: 100, SellPrice: 101, SlippagePct: 50})
	assert.InDelta(t, 0.4, extreme, 1e-9)
}

func TestAssess_SuspiciouslyWideSpread(t *testing.T) {
	e := NewEngine(2.0)

	normal := e.Assess(&types.Opportunity{BuyPrice: 100, SellPrice: 103})
	wide := e.Assess(&types.Opportunity{BuyPrice: 100, SellPrice: 110})
	assert.InDelta(t, 0.3, normal-wide, 1e-9)
}

func TestAssess_NeverBelowFloor(t *testing.T) {
	e := NewEngine(2.0)
	score := e.Assess(&types.Opportunity{
		BuyPrice:    100,
		SellPrice:   120,
		SlippagePct: 50,
	})
	assert.Equal(t, 0.1, score)
}

func TestNewEngine_DefaultTolerance(t *testing.T) {
	e := NewEngine(0)
	assert.Equal(t, 2.0, e.maxSlippagePct)
}
