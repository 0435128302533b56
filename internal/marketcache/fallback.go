package marketcache

import (
	"hash/fnv"

	"github.com/you/arb-scan/internal/types"
)

// FallbackSource synthesizes flagged snapshots when a provider has never
// delivered data for a pair. Synthetic values are deterministic in
// (exchange, symbol) and always carry Synthetic=true so no downstream stage
// can mistake them for live quotes.
type FallbackSource struct {
	clock Clock
}

func NewFallbackSource(clock Clock) *FallbackSource {
	return &FallbackSource{clock: clock}
}

func symbolHash(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// basePrice derives a stable price in [1000, 50000) from the symbol so that
// the same pair always falls back to the same level.
func basePrice(symbol string) float64 {
	return 1000.0 + float64(symbolHash(symbol)%49000)
}

func (f *FallbackSource) Ticker(exchange, symbol string) types.TickerSnapshot {
	px := basePrice(symbol)
	// A wide 0.2% spread keeps synthetic pairs from evaluating as
	// opportunities against each other.
	bid := px * 0.999
	ask := px * 1.001
	return types.TickerSnapshot{
		Exchange:   exchange,
		Symbol:     symbol,
		Bid:        bid,
		Ask:        ask,
		Last:       px,
		Synthetic:  true,
		CapturedAt: f.clock.Now(),
	}
}

func (f *FallbackSource) OrderBook(exchange, symbol string) types.OrderBookSnapshot {
	px := basePrice(symbol)
	bid := px * 0.999
	ask := px * 1.001

	// Five thinning levels per side, mirroring the shape of a real book.
	const levels = 5
	notionalPerSide := 100000.0
	bids := make([]types.BookLevel, 0, levels)
	asks := make([]types.BookLevel, 0, levels)
	for i := 0; i < levels; i++ {
		step := float64(i) * 0.005
		thin := 1.0 - float64(i)*0.15
		bids = append(bids, types.BookLevel{
			Price: bid * (1 - step),
			Size:  notionalPerSide / bid * thin / levels,
		})
		asks = append(asks, types.BookLevel{
			Price: ask * (1 + step),
			Size:  notionalPerSide / ask * thin / levels,
		})
	}
	return types.OrderBookSnapshot{
		Exchange:   exchange,
		Symbol:     symbol,
		Bids:       bids,
		Asks:       asks,
		Synthetic:  true,
		CapturedAt: f.clock.Now(),
	}
}
