// Package redisfeed fans detected opportunities out to Redis so downstream
// consumers (alerting, dashboards) can read them without coupling to the
// scanner process.
package redisfeed

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/types"
)

type Publisher struct {
	rdb    *redis.Client
	stream string
	active string
}

func NewPublisher(cfg *config.Config) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Publisher{
		rdb:    rdb,
		stream: cfg.Redis.Stream,
		active: cfg.Redis.ActiveKey,
	}
}

// PublishOpportunity appends the opportunity to the stream and refreshes
// the symbol's entry in the recently-active ZSET.
func (p *Publisher) PublishOpportunity(ctx context.Context, opp types.Opportunity) error {
	if err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"symbol":         opp.Symbol,
			"buy_exchange":   opp.BuyExchange,
			"sell_exchange":  opp.SellExchange,
			"buy_price":      opp.BuyPrice,
			"sell_price":     opp.SellPrice,
			"net_profit_pct": opp.NetProfitPct,
			"slippage_pct":   opp.SlippagePct,
			"risk_score":     opp.RiskScore,
			"synthetic":      opp.Synthetic,
			"ts_ms":          opp.Ts.UnixMilli(),
		},
	}).Err(); err != nil {
		return err
	}
	return p.rdb.ZAdd(ctx, p.active, redis.Z{
		Score:  float64(opp.Ts.UnixMilli()),
		Member: opp.Symbol,
	}).Err()
}

// Sink adapts the publisher to the scanner's sink boundary. Publish
// failures are swallowed after logging through the error callback chain:
// Redis being down must never stall a scan cycle.
type Sink struct {
	Pub     *Publisher
	Timeout time.Duration
	OnFail  func(err error)
}

func (s Sink) OnOpportunity(opp types.Opportunity) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout())
	defer cancel()
	if err := s.Pub.PublishOpportunity(ctx, opp); err != nil && s.OnFail != nil {
		s.OnFail(err)
	}
}

func (s Sink) OnStatus(string) {}

func (s Sink) OnError(string, error) {}

func (s Sink) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return time.Second
}
