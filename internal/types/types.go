package types

import "time"

// TickerSnapshot is an immutable top-of-book quote with 24h stats.
// Newer snapshots supersede older ones in the cache; they are never mutated.
type TickerSnapshot struct {
	Exchange   string
	Symbol     string // canonical
	Bid        float64
	Ask        float64
	Last       float64
	Volume24h  float64
	High24h    float64
	Low24h     float64
	Synthetic  bool // produced by the fallback source, never by a live feed
	CapturedAt time.Time
}

// Mid returns the mid price, or 0 if either side is missing.
func (t TickerSnapshot) Mid() float64 {
	if t.Bid <= 0 || t.Ask <= 0 {
		return 0
	}
	return 0.5 * (t.Bid + t.Ask)
}

// BookLevel is a single (price, size) entry on one side of an order book.
type BookLevel struct {
	Price float64
	Size  float64
}

// OrderBookSnapshot holds bids (descending price) and asks (ascending price).
type OrderBookSnapshot struct {
	Exchange   string
	Symbol     string // canonical
	Bids       []BookLevel
	Asks       []BookLevel
	Synthetic  bool
	CapturedAt time.Time
}

// BestBid returns the top bid price, or 0 for an empty side.
func (b OrderBookSnapshot) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

// BestAsk returns the top ask price, or 0 for an empty side.
func (b OrderBookSnapshot) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 0
	}
	return b.Asks[0].Price
}

// Opportunity is one detected, fee- and slippage-adjusted price discrepancy
// between two exchanges for a single canonical symbol.
type Opportunity struct {
	Symbol       string
	BuyExchange  string
	SellExchange string
	BuyPrice     float64
	SellPrice    float64
	BuyFeePct    float64
	SellFeePct   float64
	SlippagePct  float64
	NetProfitPct float64
	OptimalSize  float64 // largest notional (USD) the books absorb profitably
	RiskScore    float64 // supplied by the risk assessor, opaque here
	Synthetic    bool    // at least one leg was priced from fallback data
	Ts           time.Time
}

// Key identifies an opportunity for per-cycle deduplication.
func (o Opportunity) Key() string {
	return o.Symbol + "|" + o.BuyExchange + "|" + o.SellExchange
}
