package scanner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/evaluator"
	"github.com/you/arb-scan/internal/fees"
	"github.com/you/arb-scan/internal/marketcache"
	"github.com/you/arb-scan/internal/priority"
	"github.com/you/arb-scan/internal/symbols"
	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
)

type quote struct {
	bid, ask float64
}

// stubProvider serves fixed quotes per exchange and deep books at those
// quotes, so slippage stays negligible for the configured notional.
type stubProvider struct {
	mu       sync.Mutex
	quotes   map[string]quote // keyed by exchange
	panicsOn string
}

func (p *stubProvider) lookup(exchange string) (quote, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if exchange == p.panicsOn {
		panic("provider wiring broken for " + exchange)
	}
	q, ok := p.quotes[exchange]
	return q, ok
}

func (p *stubProvider) FetchTicker(_ context.Context, exchange, native string) (types.TickerSnapshot, error) {
	q, ok := p.lookup(exchange)
	if !ok {
		return types.TickerSnapshot{}, context.Canceled
	}
	return types.TickerSnapshot{
		Bid:       q.bid,
		Ask:       q.ask,
		Last:      0.5 * (q.bid + q.ask),
		Volume24h: 1e9,
		High24h:   q.ask * 1.05,
		Low24h:    q.bid * 0.95,
	}, nil
}

func (p *stubProvider) FetchOrderBook(_ context.Context, exchange, native string) (types.OrderBookSnapshot, error) {
	q, ok := p.lookup(exchange)
	if !ok {
		return types.OrderBookSnapshot{}, context.Canceled
	}
	return types.OrderBookSnapshot{
		Bids: []types.BookLevel{{Price: q.bid, Size: 100}},
		Asks: []types.BookLevel{{Price: q.ask, Size: 100}},
	}, nil
}

type captureSink struct {
	mu     sync.Mutex
	opps   []types.Opportunity
	errors []string
}

func (s *captureSink) OnOpportunity(opp types.Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opps = append(s.opps, opp)
}

func (s *captureSink) OnStatus(string) {}

func (s *captureSink) OnError(scope string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, scope)
}

func (s *captureSink) opportunities() []types.Opportunity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Opportunity, len(s.opps))
	copy(out, s.opps)
	return out
}

func newTestConfig(exchanges []string) *config.Config {
	cfg := &config.Config{
		Exchanges:        exchanges,
		DefaultSymbols:   []string{"BTC/USDT"},
		MinProfitPct:     1.0,
		TradeNotionalUSD: 10000,
	}
	cfg.Scan.IntervalMs = 50
	cfg.Scan.BatchSize = 20
	cfg.Scan.MaxTiers = 3
	cfg.Scan.CycleTimeoutMs = 2000
	cfg.Scan.ProviderTimeoutMs = 500
	cfg.Workers.Tier0 = 4
	cfg.Workers.Background = 2
	return cfg
}

func newTestScanner(cfg *config.Config, prov marketcache.Provider, sink Sink) *Scanner {
	log := zap.NewNop()
	cache := marketcache.New(prov, nil, 2*time.Second, 5*time.Second, log)
	eval := evaluator.New(cfg.MinProfitPct, fees.NewSchedule(nil), nil, log)
	prio := priority.New(priority.Weights{Volume: 0.5, Volatility: 0.3, History: 0.2}, time.Minute, nil)
	prio.Seed(cfg.DefaultSymbols)
	return New(cfg, cache, symbols.New(), eval, prio, sink, log)
}

func TestRunCycle_FindsBestCrossExchangeOpportunity(t *testing.T) {
	prov := &stubProvider{quotes: map[string]quote{
		"A": {bid: 29990, ask: 30000},
		"B": {bid: 30200, ask: 30210},
		"C": {bid: 28990, ask: 29000},
	}}
	sink := &captureSink{}
	sc := newTestScanner(newTestConfig([]string{"A", "B", "C"}), prov, sink)

	sc.RunCycle(context.Background())

	opps := sink.opportunities()
	require.NotEmpty(t, opps)

	// Buying on C and selling on B is the widest spread and must rank first.
	best := opps[0]
	assert.Equal(t, "BTC/USDT", best.Symbol)
	assert.Equal(t, "C", best.BuyExchange)
	assert.Equal(t, "B", best.SellExchange)
	// (30200-29000)/29000*100 - 0.2 fees, slippage negligible.
	assert.InDelta(t, 3.94, best.NetProfitPct, 0.01)
	assert.Greater(t, best.OptimalSize, 0.0)

	for i := 1; i < len(opps); i++ {
		assert.LessOrEqual(t, opps[i].NetProfitPct, opps[i-1].NetProfitPct, "opportunities sorted by profit")
	}
	assert.Equal(t, StateIdle, sc.State())
}

func TestRunCycle_TightSpreadGrid(t *testing.T) {
	// Three venues quoting within half a percent of each other: only the
	// widest pairing clears the profit floor after fees.
	prov := &stubProvider{quotes: map[string]quote{
		"A": {bid: 29990, ask: 30000},
		"B": {bid: 30080, ask: 30100},
		"C": {bid: 29940, ask: 29950},
	}}
	cfg := newTestConfig([]string{"A", "B", "C"})
	cfg.MinProfitPct = 0.2
	sink := &captureSink{}
	sc := newTestScanner(cfg, prov, sink)

	sc.RunCycle(context.Background())

	opps := sink.opportunities()
	require.Len(t, opps, 1)
	assert.Equal(t, "C", opps[0].BuyExchange)
	assert.Equal(t, "B", opps[0].SellExchange)
	// (30080-29950)/29950*100 - 0.2 fees.
	assert.InDelta(t, 0.234, opps[0].NetProfitPct, 0.001)
}

func TestRunCycle_DeduplicatesSpellings(t *testing.T) {
	prov := &stubProvider{quotes: map[string]quote{
		"A": {bid: 29990, ask: 30000},
		"B": {bid: 30600, ask: 30610},
	}}
	cfg := newTestConfig([]string{"A", "B"})
	// The same market under three spellings must yield one opportunity.
	cfg.DefaultSymbols = []string{"BTC/USDT", "BTCUSDT", "BTC-USDT"}
	sink := &captureSink{}
	sc := newTestScanner(cfg, prov, sink)

	sc.RunCycle(context.Background())

	opps := sink.opportunities()
	require.Len(t, opps, 1)
	assert.Equal(t, "BTC/USDT", opps[0].Symbol)
	assert.Equal(t, "A", opps[0].BuyExchange)
	assert.Equal(t, "B", opps[0].SellExchange)
}

func TestRunCycle_NoOpportunityOnAlignedPrices(t *testing.T) {
	prov := &stubProvider{quotes: map[string]quote{
		"A": {bid: 29995, ask: 30000},
		"B": {bid: 29995, ask: 30000},
	}}
	sink := &captureSink{}
	sc := newTestScanner(newTestConfig([]string{"A", "B"}), prov, sink)

	sc.RunCycle(context.Background())

	assert.Empty(t, sink.opportunities())
}

func TestRunCycle_PanickingExchangeIsIsolated(t *testing.T) {
	prov := &stubProvider{
		quotes: map[string]quote{
			"A": {bid: 29990, ask: 30000},
			"B": {bid: 30600, ask: 30610},
			"C": {bid: 1, ask: 2},
		},
		panicsOn: "C",
	}
	sink := &captureSink{}
	sc := newTestScanner(newTestConfig([]string{"A", "B", "C"}), prov, sink)

	sc.RunCycle(context.Background())

	// The A->B opportunity survives the C failures.
	opps := sink.opportunities()
	require.NotEmpty(t, opps)
	assert.Equal(t, "A", opps[0].BuyExchange)
	assert.Equal(t, "B", opps[0].SellExchange)
	assert.Equal(t, StateIdle, sc.State())
}

func TestRunCycle_CancelledContext(t *testing.T) {
	prov := &stubProvider{quotes: map[string]quote{
		"A": {bid: 29990, ask: 30000},
		"B": {bid: 30600, ask: 30610},
	}}
	sink := &captureSink{}
	sc := newTestScanner(newTestConfig([]string{"A", "B"}), prov, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sc.RunCycle(ctx)

	assert.Empty(t, sink.opportunities())
	assert.Equal(t, StateShuttingDown, sc.State())
}

func TestRun_StopsOnCancel(t *testing.T) {
	prov := &stubProvider{quotes: map[string]quote{
		"A": {bid: 29990, ask: 30000},
		"B": {bid: 30600, ask: 30610},
	}}
	sink := &captureSink{}
	sc := newTestScanner(newTestConfig([]string{"A", "B"}), prov, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sc.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scanner did not stop after cancellation")
	}
	assert.Equal(t, StateShuttingDown, sc.State())
	assert.NotEmpty(t, sink.opportunities())
}

func TestAggregator_FirstOpportunityWinsPerKey(t *testing.T) {
	agg := newAggregator()

	first := types.Opportunity{Symbol: "BTC/USDT", BuyExchange: "A", SellExchange: "B", NetProfitPct: 2}
	dupe := types.Opportunity{Symbol: "BTC/USDT", BuyExchange: "A", SellExchange: "B", NetProfitPct: 5}
	other := types.Opportunity{Symbol: "BTC/USDT", BuyExchange: "B", SellExchange: "A", NetProfitPct: 1}

	assert.True(t, agg.add(first))
	assert.False(t, agg.add(dupe))
	assert.True(t, agg.add(other), "opposite direction is a distinct opportunity")
	assert.Equal(t, 2, agg.len())

	snap := agg.snapshot()
	assert.Len(t, snap, 2)
	for _, o := range snap {
		if o.BuyExchange == "A" {
			assert.Equal(t, 2.0, o.NetProfitPct, "first entry per key is kept")
		}
	}
}

func TestState_Strings(t *testing.T) {
	assert.Equal(t, "IDLE", StateIdle.String())
	assert.Equal(t, "SCANNING", StateScanning.String())
	assert.Equal(t, "AGGREGATING", StateAggregating.String())
	assert.Equal(t, "PUBLISHED", StatePublished.String())
	assert.Equal(t, "SHUTTING_DOWN", StateShuttingDown.String())
}
