package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
)

type flatFees struct{ pct float64 }

func (f flatFees) FeePercent(exchange, symbol string, maker bool) float64 { return f.pct }

type fixedRisk struct{ score float64 }

func (r fixedRisk) Assess(*types.Opportunity) float64 { return r.score }

func ticker(bid, ask float64) types.TickerSnapshot {
	return types.TickerSnapshot{Bid: bid, Ask: ask}
}

func TestEvaluate_Viable(t *testing.T) {
	e := New(0.5, flatFees{pct: 0.1}, fixedRisk{score: 0.9}, zap.NewNop())

	// Buy at 100, sell at 103: gross 3%, fees 0.2%, no slippage.
	opp, ok := e.Evaluate("BTC/USDT", "binance", "okx",
		ticker(99.9, 100), ticker(103, 103.1), 0)

	assert.True(t, ok)
	assert.InDelta(t, 2.8, opp.NetProfitPct, 1e-9)
	assert.Equal(t, "binance", opp.BuyExchange)
	assert.Equal(t, "okx", opp.SellExchange)
	assert.Equal(t, 100.0, opp.BuyPrice)
	assert.Equal(t, 103.0, opp.SellPrice)
	assert.Equal(t, 0.1, opp.BuyFeePct)
	assert.Equal(t, 0.1, opp.SellFeePct)
	assert.Equal(t, 0.9, opp.RiskScore)
	assert.False(t, opp.Ts.IsZero())
}

func TestEvaluate_InvertedSpread(t *testing.T) {
	e := New(0.5, flatFees{pct: 0.1}, nil, zap.NewNop())

	// Selling below the buy price is never an opportunity.
	_, ok := e.Evaluate("BTC/USDT", "binance", "okx",
		ticker(29990, 30000), ticker(29000, 29010), 0)
	assert.False(t, ok)
}

func TestEvaluate_ImplausiblyClosePrices(t *testing.T) {
	e := New(-10, flatFees{pct: 0}, nil, zap.NewNop())

	// Byte-identical quotes across venues are treated as bad data even
	// when the profit floor would otherwise admit them.
	_, ok := e.Evaluate("BTC/USDT", "binance", "okx",
		ticker(29999, 30000), ticker(30000, 30001), 0)
	assert.False(t, ok)
}

func TestEvaluate_FeesEraseThinSpread(t *testing.T) {
	e := New(0.5, flatFees{pct: 0.1}, nil, zap.NewNop())

	// Gross 0.3% minus 0.2% fees lands under the 0.5% floor.
	_, ok := e.Evaluate("BTC/USDT", "binance", "okx",
		ticker(99.9, 100), ticker(100.3, 100.4), 0)
	assert.False(t, ok)
}

func TestEvaluate_SlippageErasesSpread(t *testing.T) {
	e := New(0.5, flatFees{pct: 0.1}, nil, zap.NewNop())

	_, ok := e.Evaluate("BTC/USDT", "binance", "okx",
		ticker(99.9, 100), ticker(103, 103.1), 2.7)
	assert.False(t, ok)

	opp, ok := e.Evaluate("BTC/USDT", "binance", "okx",
		ticker(99.9, 100), ticker(103, 103.1), 1.0)
	assert.True(t, ok)
	assert.InDelta(t, 1.8, opp.NetProfitPct, 1e-9)
	assert.Equal(t, 1.0, opp.SlippagePct)
}

func TestEvaluate_ZeroPrices(t *testing.T) {
	e := New(0.5, flatFees{pct: 0.1}, nil, zap.NewNop())

	_, ok := e.Evaluate("BTC/USDT", "binance", "okx", ticker(0, 0), ticker(103, 103.1), 0)
	assert.False(t, ok)
	_, ok = e.Evaluate("BTC/USDT", "binance", "okx", ticker(99.9, 100), ticker(0, 0), 0)
	assert.False(t, ok)
}

func TestEvaluate_SyntheticLegPropagates(t *testing.T) {
	e := New(0.5, flatFees{pct: 0.1}, nil, zap.NewNop())

	buy := ticker(99.9, 100)
	buy.Synthetic = true
	opp, ok := e.Evaluate("BTC/USDT", "binance", "okx", buy, ticker(103, 103.1), 0)
	assert.True(t, ok)
	assert.True(t, opp.Synthetic)
}

func TestEvaluate_NilRiskAssessor(t *testing.T) {
	e := New(0.5, flatFees{pct: 0.1}, nil, zap.NewNop())

	opp, ok := e.Evaluate("BTC/USDT", "binance", "okx",
		ticker(99.9, 100), ticker(103, 103.1), 0)
	assert.True(t, ok)
	assert.Equal(t, 0.0, opp.RiskScore)
}
