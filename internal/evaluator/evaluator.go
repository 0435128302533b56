// Package evaluator decides whether a price discrepancy between two
// exchanges survives fees and slippage as a real opportunity.
package evaluator

import (
	"math"
	"time"

	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
)

// Prices closer than this relative gap are treated as unusable data, not
// as a trading signal.
const plausibilityEpsilon = 1e-6

// FeeSchedule supplies per-exchange trading fees as percentages.
type FeeSchedule interface {
	FeePercent(exchange, symbol string, maker bool) float64
}

// RiskAssessor scores a draft opportunity. The score is attached to the
// emitted opportunity but never gates emission.
type RiskAssessor interface {
	Assess(o *types.Opportunity) float64
}

type Evaluator struct {
	minProfitPct float64
	fees         FeeSchedule
	risk         RiskAssessor
	log          *zap.Logger
}

func New(minProfitPct float64, fees FeeSchedule, risk RiskAssessor, log *zap.Logger) *Evaluator {
	return &Evaluator{minProfitPct: minProfitPct, fees: fees, risk: risk, log: log}
}

// Evaluate computes fee- and slippage-adjusted profit for buying on one
// exchange and selling on another. The boolean reports viability.
func (e *Evaluator) Evaluate(
	symbol, buyExchange, sellExchange string,
	buyTicker, sellTicker types.TickerSnapshot,
	slippagePct float64,
) (types.Opportunity, bool) {
	buyAsk := buyTicker.Ask
	sellBid := sellTicker.Bid

	if buyAsk <= 0 || sellBid <= 0 {
		return types.Opportunity{}, false
	}
	if math.Abs(sellBid-buyAsk)/buyAsk < plausibilityEpsilon {
		// Identical quotes across venues mean a shared or broken feed.
		return types.Opportunity{}, false
	}

	buyFee := e.fees.FeePercent(buyExchange, symbol, false)
	sellFee := e.fees.FeePercent(sellExchange, symbol, false)

	netProfit := (sellBid-buyAsk)/buyAsk*100 - buyFee - sellFee - slippagePct
	if netProfit < e.minProfitPct {
		return types.Opportunity{}, false
	}

	opp := types.Opportunity{
		Symbol:       symbol,
		BuyExchange:  buyExchange,
		SellExchange: sellExchange,
		BuyPrice:     buyAsk,
		SellPrice:    sellBid,
		BuyFeePct:    buyFee,
		SellFeePct:   sellFee,
		SlippagePct:  slippagePct,
		NetProfitPct: netProfit,
		Synthetic:    buyTicker.Synthetic || sellTicker.Synthetic,
		Ts:           time.Now(),
	}
	if e.risk != nil {
		opp.RiskScore = e.risk.Assess(&opp)
	}

	e.log.Debug("viable opportunity",
		zap.String("symbol", symbol),
		zap.String("buy", buyExchange),
		zap.String("sell", sellExchange),
		zap.Float64("net_profit_pct", netProfit))
	return opp, true
}
