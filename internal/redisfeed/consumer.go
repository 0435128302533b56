package redisfeed

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/types"
)

type Consumer struct {
	rdb    *redis.Client
	stream string
	active string
}

func NewConsumer(cfg *config.Config) *Consumer {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Consumer{
		rdb:    rdb,
		stream: cfg.Redis.Stream,
		active: cfg.Redis.ActiveKey,
	}
}

// RecentSymbols returns symbols that produced opportunities after sinceMs.
func (c *Consumer) RecentSymbols(ctx context.Context, sinceMs int64) ([]string, error) {
	return c.rdb.ZRangeByScore(ctx, c.active, &redis.ZRangeBy{
		Min: strconv.FormatInt(sinceMs, 10),
		Max: "+inf",
	}).Result()
}

// ReadOpportunities reads stream entries starting from the given ID ("-"
// for everything) up to count items.
func (c *Consumer) ReadOpportunities(ctx context.Context, fromID string, count int64) ([]types.Opportunity, error) {
	if fromID == "" {
		fromID = "-"
	}
	msgs, err := c.rdb.XRangeN(ctx, c.stream, fromID, "+", count).Result()
	if err != nil {
		return nil, err
	}
	out := make([]types.Opportunity, 0, len(msgs))
	for _, m := range msgs {
		opp := types.Opportunity{
			Symbol:       str(m.Values, "symbol"),
			BuyExchange:  str(m.Values, "buy_exchange"),
			SellExchange: str(m.Values, "sell_exchange"),
			BuyPrice:     f64(m.Values, "buy_price"),
			SellPrice:    f64(m.Values, "sell_price"),
			NetProfitPct: f64(m.Values, "net_profit_pct"),
			SlippagePct:  f64(m.Values, "slippage_pct"),
			RiskScore:    f64(m.Values, "risk_score"),
			Synthetic:    str(m.Values, "synthetic") == "1" || str(m.Values, "synthetic") == "true",
		}
		if ms := i64(m.Values, "ts_ms"); ms > 0 {
			opp.Ts = time.UnixMilli(ms)
		}
		if opp.Symbol != "" {
			out = append(out, opp)
		}
	}
	return out, nil
}

func str(values map[string]interface{}, key string) string {
	if v, ok := values[key].(string); ok {
		return v
	}
	return ""
}

func f64(values map[string]interface{}, key string) float64 {
	v, err := strconv.ParseFloat(str(values, key), 64)
	if err != nil {
		return 0
	}
	return v
}

func i64(values map[string]interface{}, key string) int64 {
	v, err := strconv.ParseInt(str(values, key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
