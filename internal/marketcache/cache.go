// Package marketcache keeps freshness-bounded ticker and order book
// snapshots per (exchange, symbol) and shields the scan pipeline from
// provider outages.
package marketcache

import (
	"context"
	"sync"
	"time"

	imetrics "github.com/you/arb-scan/internal/metrics"
	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
)

// Provider is the external market data boundary. Implementations do the
// per-exchange wire work; the cache only cares about snapshots and errors.
type Provider interface {
	FetchTicker(ctx context.Context, exchange, nativeSymbol string) (types.TickerSnapshot, error)
	FetchOrderBook(ctx context.Context, exchange, nativeSymbol string) (types.OrderBookSnapshot, error)
}

// Clock lets tests control TTL expiry deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production clock.
var SystemClock Clock = systemClock{}

type tickerEntry struct {
	snap types.TickerSnapshot
}

type bookEntry struct {
	snap types.OrderBookSnapshot
}

// Cache is the single owner of its maps; callers never coordinate locks.
type Cache struct {
	provider  Provider
	fallback  *FallbackSource
	clock     Clock
	tickerTTL time.Duration
	bookTTL   time.Duration
	log       *zap.Logger

	mu      sync.RWMutex
	tickers map[string]tickerEntry
	books   map[string]bookEntry
}

func New(provider Provider, clock Clock, tickerTTL, bookTTL time.Duration, log *zap.Logger) *Cache {
	if clock == nil {
		clock = SystemClock
	}
	return &Cache{
		provider:  provider,
		fallback:  NewFallbackSource(clock),
		clock:     clock,
		tickerTTL: tickerTTL,
		bookTTL:   bookTTL,
		log:       log,
		tickers:   make(map[string]tickerEntry, 256),
		books:     make(map[string]bookEntry, 256),
	}
}

func cacheKey(exchange, symbol string) string { return exchange + ":" + symbol }

// Ticker returns a fresh snapshot, refetching on miss or TTL expiry. On
// provider failure the last-known snapshot is returned if present; otherwise
// a flagged synthetic snapshot keeps downstream stages operating.
func (c *Cache) Ticker(ctx context.Context, exchange, symbol, nativeSymbol string) (types.TickerSnapshot, error) {
	key := cacheKey(exchange, symbol)

	c.mu.RLock()
	e, ok := c.tickers[key]
	c.mu.RUnlock()
	if ok && c.clock.Now().Sub(e.snap.CapturedAt) <= c.tickerTTL {
		imetrics.CacheHits.Inc()
		return e.snap, nil
	}
	imetrics.CacheMisses.Inc()

	snap, err := c.provider.FetchTicker(ctx, exchange, nativeSymbol)
	if err == nil && snap.Bid > 0 && snap.Ask > 0 {
		snap.Exchange = exchange
		snap.Symbol = symbol
		if snap.CapturedAt.IsZero() {
			snap.CapturedAt = c.clock.Now()
		}
		c.mu.Lock()
		c.tickers[key] = tickerEntry{snap: snap}
		c.mu.Unlock()
		return snap, nil
	}

	imetrics.ProviderErrors.Inc()
	if err != nil {
		c.log.Warn("ticker fetch failed, degrading",
			zap.String("exchange", exchange),
			zap.String("symbol", symbol),
			zap.Error(err))
	}
	if ok {
		// Stale beats nothing; the capture timestamp tells the caller how stale.
		return e.snap, nil
	}

	imetrics.CacheFallbacks.Inc()
	fb := c.fallback.Ticker(exchange, symbol)
	c.mu.Lock()
	c.tickers[key] = tickerEntry{snap: fb}
	c.mu.Unlock()
	return fb, nil
}

// OrderBook mirrors Ticker with a slightly longer TTL.
func (c *Cache) OrderBook(ctx context.Context, exchange, symbol, nativeSymbol string) (types.OrderBookSnapshot, error) {
	key := cacheKey(exchange, symbol)

	c.mu.RLock()
	e, ok := c.books[key]
	c.mu.RUnlock()
	if ok && c.clock.Now().Sub(e.snap.CapturedAt) <= c.bookTTL {
		imetrics.CacheHits.Inc()
		return e.snap, nil
	}
	imetrics.CacheMisses.Inc()

	snap, err := c.provider.FetchOrderBook(ctx, exchange, nativeSymbol)
	if err == nil && len(snap.Bids) > 0 && len(snap.Asks) > 0 {
		snap.Exchange = exchange
		snap.Symbol = symbol
		if snap.CapturedAt.IsZero() {
			snap.CapturedAt = c.clock.Now()
		}
		c.mu.Lock()
		c.books[key] = bookEntry{snap: snap}
		c.mu.Unlock()
		return snap, nil
	}

	imetrics.ProviderErrors.Inc()
	if err != nil {
		c.log.Warn("order book fetch failed, degrading",
			zap.String("exchange", exchange),
			zap.String("symbol", symbol),
			zap.Error(err))
	}
	if ok {
		return e.snap, nil
	}

	imetrics.CacheFallbacks.Inc()
	fb := c.fallback.OrderBook(exchange, symbol)
	c.mu.Lock()
	c.books[key] = bookEntry{snap: fb}
	c.mu.Unlock()
	return fb, nil
}

// PutTicker lets a push feed (WebSocket) refresh the cache out of band.
func (c *Cache) PutTicker(snap types.TickerSnapshot) {
	if snap.Exchange == "" || snap.Symbol == "" || snap.Bid <= 0 || snap.Ask <= 0 {
		return
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = c.clock.Now()
	}
	c.mu.Lock()
	c.tickers[cacheKey(snap.Exchange, snap.Symbol)] = tickerEntry{snap: snap}
	c.mu.Unlock()
}

// Tickers returns the current snapshot for every cached (exchange, symbol).
// Used by the scanner to refresh priority signals without extra fetches.
func (c *Cache) Tickers() []types.TickerSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.TickerSnapshot, 0, len(c.tickers))
	for _, e := range c.tickers {
		out = append(out, e.snap)
	}
	return out
}
