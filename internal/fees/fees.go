// Package fees provides a static per-exchange fee schedule.
package fees

import "github.com/you/arb-scan/internal/config"

// Exchanges without a configured entry fall back to the common 0.1% taker rate.
const defaultFeePct = 0.1

// Schedule implements evaluator.FeeSchedule from the config fee table.
type Schedule struct {
	table map[string]config.FeeCfg
}

func NewSchedule(table map[string]config.FeeCfg) *Schedule {
	if table == nil {
		table = map[string]config.FeeCfg{}
	}
	return &Schedule{table: table}
}

func (s *Schedule) FeePercent(exchange, symbol string, maker bool) float64 {
	cfg, ok := s.table[exchange]
	if !ok {
		return defaultFeePct
	}
	if maker {
		if cfg.MakerPct > 0 {
			return cfg.MakerPct
		}
		return defaultFeePct
	}
	if cfg.TakerPct > 0 {
		return cfg.TakerPct
	}
	return defaultFeePct
}
