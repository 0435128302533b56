package scanner

import (
	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
)

// LogSink reports everything through the structured logger. It is the
// default sink and usually the first element of a MultiSink.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) OnOpportunity(opp types.Opportunity) {
	s.Log.Info("opportunity",
		zap.String("symbol", opp.Symbol),
		zap.String("buy_exchange", opp.BuyExchange),
		zap.String("sell_exchange", opp.SellExchange),
		zap.Float64("buy_price", opp.BuyPrice),
		zap.Float64("sell_price", opp.SellPrice),
		zap.Float64("net_profit_pct", opp.NetProfitPct),
		zap.Float64("slippage_pct", opp.SlippagePct),
		zap.Float64("optimal_size_usd", opp.OptimalSize),
		zap.Float64("risk_score", opp.RiskScore),
		zap.Bool("synthetic", opp.Synthetic),
		zap.Time("ts", opp.Ts),
	)
}

func (s LogSink) OnStatus(msg string) {
	s.Log.Info("scan status", zap.String("status", msg))
}

func (s LogSink) OnError(scope string, err error) {
	s.Log.Warn("scan error", zap.String("scope", scope), zap.Error(err))
}

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) OnOpportunity(opp types.Opportunity) {
	for _, s := range m {
		s.OnOpportunity(opp)
	}
}

func (m MultiSink) OnStatus(msg string) {
	for _, s := range m {
		s.OnStatus(msg)
	}
}

func (m MultiSink) OnError(scope string, err error) {
	for _, s := range m {
		s.OnError(scope, err)
	}
}
