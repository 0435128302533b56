// Package liquidity models order book depth, slippage-by-size curves and
// the largest trade a cross-exchange spread can absorb.
package liquidity

import (
	"math"
	"sort"

	"github.com/you/arb-scan/internal/types"
)

// Depth bands around mid price, as fractions.
var depthBands = []float64{0.005, 0.01, 0.02, 0.05, 0.10}

// Notional sizes (USD) the slippage curves are sampled at.
var slippageSizes = []float64{1000, 5000, 10000, 50000, 100000, 500000}

// Size ladder walked when searching for the optimal trade size.
var tradeSizeLadder = []float64{1000, 2500, 5000, 10000, 25000, 50000, 100000, 250000, 500000}

// Side selects which slippage curve a lookup reads.
type Side int

const (
	Buy Side = iota
	Sell
)

// Metrics summarizes one order book snapshot.
type Metrics struct {
	BestBid      float64
	BestAsk      float64
	Spread       float64
	SpreadPct    float64
	BidLiquidity float64 // cumulative notional within 2% below mid
	AskLiquidity float64 // cumulative notional within 2% above mid
	Available    float64 // min of the two sides
	Depth        map[float64]float64
	BuySlippage  map[float64]float64 // notional size -> slippage fraction
	SellSlippage map[float64]float64
	Volume24h    float64
	Synthetic    bool
}

// Compute derives liquidity metrics from one book and its matching ticker.
func Compute(book types.OrderBookSnapshot, ticker types.TickerSnapshot) Metrics {
	m := Metrics{
		Depth:        make(map[float64]float64, len(depthBands)),
		BuySlippage:  make(map[float64]float64, len(slippageSizes)),
		SellSlippage: make(map[float64]float64, len(slippageSizes)),
		Volume24h:    ticker.Volume24h,
		Synthetic:    book.Synthetic || ticker.Synthetic,
	}
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return m
	}

	m.BestBid = book.BestBid()
	m.BestAsk = book.BestAsk()
	mid := 0.5 * (m.BestBid + m.BestAsk)
	m.Spread = m.BestAsk - m.BestBid
	if mid > 0 {
		m.SpreadPct = m.Spread / mid
	}

	m.BidLiquidity = sideNotional(book.Bids, mid*0.98, false)
	m.AskLiquidity = sideNotional(book.Asks, mid*1.02, true)
	m.Available = math.Min(m.BidLiquidity, m.AskLiquidity)

	for _, band := range depthBands {
		bidDepth := sideNotional(book.Bids, mid*(1-band), false)
		askDepth := sideNotional(book.Asks, mid*(1+band), true)
		m.Depth[band] = math.Min(bidDepth, askDepth)
	}

	for _, size := range slippageSizes {
		m.BuySlippage[size] = SlippageForSize(book.Asks, size, m.BestAsk)
		m.SellSlippage[size] = SlippageForSize(book.Bids, size, m.BestBid)
	}
	return m
}

// sideNotional sums price*size for levels inside the price limit: at or
// below it for asks, at or above it for bids.
func sideNotional(levels []types.BookLevel, priceLimit float64, isAsk bool) float64 {
	total := 0.0
	for _, lv := range levels {
		if isAsk {
			if lv.Price <= priceLimit {
				total += lv.Price * lv.Size
			}
		} else {
			if lv.Price >= priceLimit {
				total += lv.Price * lv.Size
			}
		}
	}
	return total
}

// SlippageForSize walks book levels from best price outward until the
// target notional is filled, partially consuming the last level, and
// returns the fractional gap between the volume-weighted fill price and
// the best price. A book that cannot fill the target returns 1.0: an
// explicit insufficient-liquidity signal, not an error.
func SlippageForSize(levels []types.BookLevel, notional, basePrice float64) float64 {
	if basePrice <= 0 || len(levels) == 0 || notional <= 0 {
		return 1.0
	}
	var filledVolume, filledCost float64
	for _, lv := range levels {
		levelValue := lv.Price * lv.Size
		if filledCost+levelValue >= notional {
			remaining := notional - filledCost
			filledVolume += remaining / lv.Price
			filledCost += remaining
			break
		}
		filledVolume += lv.Size
		filledCost += levelValue
	}
	if filledCost < notional {
		return 1.0
	}
	avgPrice := filledCost / filledVolume
	return math.Abs(avgPrice-basePrice) / basePrice
}

// SlippageForSize reads the precomputed curve for an arbitrary notional,
// interpolating linearly between ladder points and clamping outside them.
func (m Metrics) SlippageForSize(notional float64, side Side) float64 {
	curve := m.BuySlippage
	if side == Sell {
		curve = m.SellSlippage
	}
	if len(curve) == 0 {
		return 1.0
	}

	sizes := make([]float64, 0, len(curve))
	for s := range curve {
		sizes = append(sizes, s)
	}
	sort.Float64s(sizes)

	if notional <= sizes[0] {
		return curve[sizes[0]]
	}
	last := sizes[len(sizes)-1]
	if notional >= last {
		return curve[last]
	}
	for i := 1; i < len(sizes); i++ {
		if notional <= sizes[i] {
			lo, hi := sizes[i-1], sizes[i]
			ratio := (notional - lo) / (hi - lo)
			return curve[lo] + ratio*(curve[hi]-curve[lo])
		}
	}
	return curve[last]
}

// RoundTripSlippage is the combined buy-side plus sell-side slippage for
// executing both legs of an arbitrage at the given notional.
func RoundTripSlippage(buyBook, sellBook types.OrderBookSnapshot, notional float64) float64 {
	buy := SlippageForSize(buyBook.Asks, notional, buyBook.BestAsk())
	sell := SlippageForSize(sellBook.Bids, notional, sellBook.BestBid())
	return buy + sell
}

// OptimalTradeSize grows a candidate notional through the size ladder until
// round-trip slippage erodes more than half of the raw cross-exchange
// spread, returning the largest size before that point (0 when even the
// smallest step erodes too much, or when there is no positive spread).
func OptimalTradeSize(buyBook, sellBook types.OrderBookSnapshot) float64 {
	buyAsk := buyBook.BestAsk()
	sellBid := sellBook.BestBid()
	if buyAsk <= 0 {
		return 0
	}
	spread := sellBid - buyAsk
	if spread <= 0 {
		return 0
	}
	spreadPct := spread / buyAsk

	optimal := 0.0
	for _, size := range tradeSizeLadder {
		total := RoundTripSlippage(buyBook, sellBook, size)
		if spreadPct-total < spreadPct*0.5 {
			break
		}
		optimal = size
	}
	return optimal
}
