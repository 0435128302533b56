// Package scanner drives periodic, parallel, fault-isolated comparison of
// exchange pairs over prioritized symbol batches.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/evaluator"
	"github.com/you/arb-scan/internal/liquidity"
	"github.com/you/arb-scan/internal/marketcache"
	imetrics "github.com/you/arb-scan/internal/metrics"
	"github.com/you/arb-scan/internal/priority"
	"github.com/you/arb-scan/internal/symbols"
	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
)

// State of the scan loop, exposed for observability.
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateAggregating
	StatePublished
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateScanning:
		return "SCANNING"
	case StateAggregating:
		return "AGGREGATING"
	case StatePublished:
		return "PUBLISHED"
	case StateShuttingDown:
		return "SHUTTING_DOWN"
	default:
		return "UNKNOWN"
	}
}

// Sink is the external boundary receiving opportunities, status and errors.
type Sink interface {
	OnOpportunity(opp types.Opportunity)
	OnStatus(msg string)
	OnError(scope string, err error)
}

type Scanner struct {
	cfg   *config.Config
	log   *zap.Logger
	cache *marketcache.Cache
	norm  *symbols.Normalizer
	eval  *evaluator.Evaluator
	prio  *priority.Prioritizer
	sink  Sink

	state atomic.Int32
}

func New(
	cfg *config.Config,
	cache *marketcache.Cache,
	norm *symbols.Normalizer,
	eval *evaluator.Evaluator,
	prio *priority.Prioritizer,
	sink Sink,
	log *zap.Logger,
) *Scanner {
	return &Scanner{
		cfg:   cfg,
		log:   log,
		cache: cache,
		norm:  norm,
		eval:  eval,
		prio:  prio,
		sink:  sink,
	}
}

func (s *Scanner) State() State { return State(s.state.Load()) }

func (s *Scanner) setState(st State) { s.state.Store(int32(st)) }

// Run executes scan cycles on a fixed delay: the next cycle's timer starts
// only after the previous cycle finishes, so cycles never overlap. Blocks
// until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	s.log.Info("scanner starting",
		zap.Strings("exchanges", s.cfg.Exchanges),
		zap.Duration("interval", s.cfg.ScanInterval()))

	for {
		s.RunCycle(ctx)
		select {
		case <-ctx.Done():
			s.setState(StateShuttingDown)
			s.log.Info("scanner stopped")
			return
		case <-time.After(s.cfg.ScanInterval()):
		}
	}
}

// RunCycle executes one full scan cycle. Exported so callers can trigger an
// immediate scan outside the schedule.
func (s *Scanner) RunCycle(ctx context.Context) {
	if ctx.Err() != nil {
		s.setState(StateShuttingDown)
		return
	}
	start := time.Now()
	s.setState(StateScanning)

	cycleCtx, cancel := context.WithTimeout(ctx, s.cfg.CycleTimeout())
	defer cancel()

	agg := newAggregator()
	for tier := 0; tier < s.cfg.Scan.MaxTiers; tier++ {
		batch := s.prio.NextBatch(tier, s.cfg.Scan.BatchSize)
		if len(batch) == 0 {
			if tier == 0 {
				batch = s.cfg.DefaultSymbols
			} else {
				break
			}
		}
		s.scanBatch(cycleCtx, batch, tier, agg)
		if agg.len() > 0 || cycleCtx.Err() != nil {
			break
		}
	}

	s.setState(StateAggregating)
	opps := agg.snapshot()
	sort.Slice(opps, func(i, j int) bool { return opps[i].NetProfitPct > opps[j].NetProfitPct })

	for _, opp := range opps {
		s.sink.OnOpportunity(opp)
		s.prio.RecordOutcome(opp.Symbol, opp.NetProfitPct, true)
		imetrics.OpportunitiesFound.Inc()
	}
	s.refreshSignals()

	s.setState(StatePublished)
	imetrics.ScanCycles.Inc()
	imetrics.ScanCycleDuration.Observe(time.Since(start).Seconds())
	imetrics.LastCycleOpportunities.Set(float64(len(opps)))
	s.sink.OnStatus(fmt.Sprintf("cycle complete: %d opportunities in %s", len(opps), time.Since(start).Round(time.Millisecond)))

	s.setState(StateIdle)
}

// scanBatch fans every ordered pair of distinct exchanges out over a
// bounded worker pool. A pair failure never aborts sibling pairs.
func (s *Scanner) scanBatch(ctx context.Context, batch []string, tier int, agg *aggregator) {
	workers := s.cfg.Workers.Background
	if tier == 0 {
		workers = s.cfg.Workers.Tier0
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, buyEx := range s.cfg.Exchanges {
		for _, sellEx := range s.cfg.Exchanges {
			if buyEx == sellEx {
				continue
			}
			buyEx, sellEx := buyEx, sellEx
			wg.Add(1)
			go func() {
				defer wg.Done()
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					return
				}
				s.scanPair(ctx, buyEx, sellEx, batch, agg)
			}()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		// Partial results already aggregated stay; undrained tasks are
		// abandoned and their symbols come back in the next cycle.
		s.sink.OnStatus("scan cycle timed out, publishing partial results")
		s.log.Warn("worker pool did not drain before deadline", zap.Int("tier", tier))
	}
}

// scanPair evaluates every symbol in the batch for one (buy, sell) exchange
// pair. All failures are contained at this boundary.
func (s *Scanner) scanPair(ctx context.Context, buyEx, sellEx string, batch []string, agg *aggregator) {
	defer func() {
		if r := recover(); r != nil {
			s.sink.OnError("pair "+buyEx+"->"+sellEx, fmt.Errorf("panic: %v", r))
			s.log.Error("pair task panicked",
				zap.String("buy", buyEx), zap.String("sell", sellEx), zap.Any("panic", r))
		}
	}()

	for _, sym := range batch {
		if ctx.Err() != nil {
			return
		}
		canonical, buyNative, sellNative, ok := s.resolve(sym, buyEx, sellEx)
		if !ok {
			continue
		}

		opp, found := s.compareSymbol(ctx, canonical, buyEx, buyNative, sellEx, sellNative)
		if !found {
			continue
		}
		if !agg.add(opp) {
			// Another direction of the same pairwise comparison got here first.
			continue
		}
	}
}

// resolve maps a batch symbol onto its canonical form and per-exchange
// native spellings. Unparsable symbols are skipped for this pair.
func (s *Scanner) resolve(sym, buyEx, sellEx string) (canonical, buyNative, sellNative string, ok bool) {
	canonical = s.norm.Normalize(sym, buyEx)
	if canonical == "" {
		s.log.Debug("normalization miss", zap.String("symbol", sym), zap.String("exchange", buyEx))
		return "", "", "", false
	}
	buyNative = s.nativeFor(canonical, buyEx, sym)
	sellNative = s.nativeFor(canonical, sellEx, sym)
	return canonical, buyNative, sellNative, true
}

func (s *Scanner) nativeFor(canonical, exchange, fallback string) string {
	if native, ok := s.norm.Native(canonical, exchange); ok {
		return native
	}
	return fallback
}

// compareSymbol runs the full pipeline for one (symbol, buy, sell) triple:
// tickers, books, liquidity, slippage, evaluation.
func (s *Scanner) compareSymbol(ctx context.Context, symbol, buyEx, buyNative, sellEx, sellNative string) (types.Opportunity, bool) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout())
	defer cancel()

	buyTicker, err := s.cache.Ticker(fetchCtx, buyEx, symbol, buyNative)
	if err != nil {
		s.sink.OnError("ticker "+buyEx+" "+symbol, err)
		return types.Opportunity{}, false
	}
	sellTicker, err := s.cache.Ticker(fetchCtx, sellEx, symbol, sellNative)
	if err != nil {
		s.sink.OnError("ticker "+sellEx+" "+symbol, err)
		return types.Opportunity{}, false
	}

	// No gross spread means no need to touch the books.
	if sellTicker.Bid <= buyTicker.Ask {
		return types.Opportunity{}, false
	}

	buyBook, err := s.cache.OrderBook(fetchCtx, buyEx, symbol, buyNative)
	if err != nil {
		s.sink.OnError("book "+buyEx+" "+symbol, err)
		return types.Opportunity{}, false
	}
	sellBook, err := s.cache.OrderBook(fetchCtx, sellEx, symbol, sellNative)
	if err != nil {
		s.sink.OnError("book "+sellEx+" "+symbol, err)
		return types.Opportunity{}, false
	}

	slippagePct := liquidity.RoundTripSlippage(buyBook, sellBook, s.cfg.TradeNotionalUSD) * 100

	opp, viable := s.eval.Evaluate(symbol, buyEx, sellEx, buyTicker, sellTicker, slippagePct)
	if !viable {
		return types.Opportunity{}, false
	}
	opp.OptimalSize = liquidity.OptimalTradeSize(buyBook, sellBook)
	return opp, true
}

// refreshSignals feeds current cached 24h stats back into the prioritizer.
// Volume and volatility are aggregated per symbol across exchanges.
func (s *Scanner) refreshSignals() {
	type sig struct{ volume, volatility float64 }
	bySymbol := make(map[string]sig)
	for _, t := range s.cache.Tickers() {
		if t.Synthetic {
			continue
		}
		volatility := 0.0
		if t.Last > 0 && t.High24h > t.Low24h {
			volatility = (t.High24h - t.Low24h) / t.Last * 100
		}
		cur := bySymbol[t.Symbol]
		if t.Volume24h > cur.volume {
			cur.volume = t.Volume24h
		}
		if volatility > cur.volatility {
			cur.volatility = volatility
		}
		bySymbol[t.Symbol] = cur
	}
	for sym, v := range bySymbol {
		s.prio.UpdateSignal(sym, v.volume, v.volatility)
	}
}

// aggregator dedups opportunities by identity key within one cycle.
type aggregator struct {
	mu   sync.Mutex
	opps map[string]types.Opportunity
}

func newAggregator() *aggregator {
	return &aggregator{opps: make(map[string]types.Opportunity, 16)}
}

// add keeps the first opportunity per (symbol, buy, sell) key and reports
// whether the opportunity was retained.
func (a *aggregator) add(opp types.Opportunity) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := opp.Key()
	if _, exists := a.opps[key]; exists {
		return false
	}
	a.opps[key] = opp
	return true
}

func (a *aggregator) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.opps)
}

func (a *aggregator) snapshot() []types.Opportunity {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.Opportunity, 0, len(a.opps))
	for _, o := range a.opps {
		out = append(out, o)
	}
	return out
}
