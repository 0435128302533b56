// Package priority maintains a weighted ranking of canonical symbols and
// hands out ordered batches for scanning.
package priority

import (
	"sort"
	"sync"
	"time"
)

const historyCap = 100

type outcome struct {
	profitPct float64
	viable    bool
}

type record struct {
	symbol     string
	volume     float64
	volatility float64
	history    []outcome // bounded at historyCap, oldest dropped first
	histFreq   float64   // success rate x average viable profit
	score      float64
}

// Weights combine volume, volatility and historical arbitrage frequency
// into one priority score.
type Weights struct {
	Volume     float64
	Volatility float64
	History    float64
}

// Clock is injectable so recompute gating is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Prioritizer is safe for concurrent use. The sorted view is recomputed
// under the write lock at most once per recompute interval; readers take
// the read lock and may see a slightly stale but always consistent ranking.
type Prioritizer struct {
	mu      sync.RWMutex
	records map[string]*record
	sorted  []string

	weights       Weights
	recomputeMin  time.Duration
	lastRecompute time.Time
	clock         Clock
}

func New(weights Weights, recomputeMin time.Duration, clock Clock) *Prioritizer {
	if clock == nil {
		clock = systemClock{}
	}
	return &Prioritizer{
		records:      make(map[string]*record, 128),
		weights:      weights,
		recomputeMin: recomputeMin,
		clock:        clock,
	}
}

// Seed pins an initial set of symbols at maximum priority so the first
// cycles have something to scan before live signals arrive.
func (p *Prioritizer) Seed(symbols []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range symbols {
		r := p.records[s]
		if r == nil {
			r = &record{symbol: s}
			p.records[s] = r
		}
		r.score = 100
		r.volume = 100
		r.volatility = 50
	}
	p.recomputeLocked(true)
}

// UpdateSignal refreshes the rolling volume/volatility estimates for a symbol.
func (p *Prioritizer) UpdateSignal(symbol string, volume, volatility float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.records[symbol]
	if r == nil {
		r = &record{symbol: symbol}
		p.records[symbol] = r
	}
	r.volume = volume
	r.volatility = volatility
	r.score = p.scoreLocked(r)
	p.recomputeLocked(false)
}

// RecordOutcome appends a scan outcome to the bounded history and refreshes
// the historical frequency component.
func (p *Prioritizer) RecordOutcome(symbol string, profitPct float64, viable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.records[symbol]
	if r == nil {
		r = &record{symbol: symbol}
		p.records[symbol] = r
	}
	r.history = append(r.history, outcome{profitPct: profitPct, viable: viable})
	if len(r.history) > historyCap {
		r.history = r.history[len(r.history)-historyCap:]
	}

	viableCount := 0
	totalProfit := 0.0
	for _, o := range r.history {
		if o.viable {
			viableCount++
			totalProfit += o.profitPct
		}
	}
	successRate := float64(viableCount) / float64(len(r.history))
	avgProfit := 0.0
	if viableCount > 0 {
		avgProfit = totalProfit / float64(viableCount)
	}
	r.histFreq = successRate * avgProfit
	r.score = p.scoreLocked(r)
	p.recomputeLocked(false)
}

func (p *Prioritizer) scoreLocked(r *record) float64 {
	return r.volume*p.weights.Volume +
		r.volatility*p.weights.Volatility +
		r.histFreq*p.weights.History
}

// recomputeLocked rebuilds the sorted view, skipping the rebuild when the
// minimum interval has not elapsed (unless forced). Caller holds the write lock.
func (p *Prioritizer) recomputeLocked(force bool) {
	now := p.clock.Now()
	if !force && now.Sub(p.lastRecompute) < p.recomputeMin {
		return
	}
	sorted := make([]string, 0, len(p.records))
	for s := range p.records {
		sorted = append(sorted, s)
	}
	sort.Slice(sorted, func(i, j int) bool {
		ri, rj := p.records[sorted[i]], p.records[sorted[j]]
		if ri.score == rj.score {
			return sorted[i] < sorted[j]
		}
		return ri.score > rj.score
	})
	p.sorted = sorted
	p.lastRecompute = now
}

// NextBatch returns the tier-th slice of batchSize symbols from the current
// ranking. Tiers beyond the ranking yield an empty batch.
func (p *Prioritizer) NextBatch(tier, batchSize int) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if batchSize <= 0 || tier < 0 {
		return nil
	}
	start := tier * batchSize
	if start >= len(p.sorted) {
		return nil
	}
	end := start + batchSize
	if end > len(p.sorted) {
		end = len(p.sorted)
	}
	out := make([]string, end-start)
	copy(out, p.sorted[start:end])
	return out
}

// Score exposes the current score of one symbol, mostly for observability.
func (p *Prioritizer) Score(symbol string) (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.records[symbol]
	if !ok {
		return 0, false
	}
	return r.score, true
}
