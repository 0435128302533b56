// Package rest fetches tickers and order books over exchange REST APIs.
// It speaks the Binance-compatible spot API shape, which most of the
// configured venues expose either natively or through a gateway.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/you/arb-scan/internal/config"
	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
)

type Client struct {
	bases map[string]string
	log   *zap.Logger
	http  *http.Client
}

func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	bases := make(map[string]string, len(cfg.Providers))
	for ex, p := range cfg.Providers {
		bases[ex] = strings.TrimRight(p.RestURL, "/")
	}
	return &Client{bases: bases, log: log, http: &http.Client{Timeout: 6 * time.Second}}
}

func (c *Client) base(exchange string) (string, error) {
	b, ok := c.bases[exchange]
	if !ok || b == "" {
		return "", fmt.Errorf("no rest_url configured for exchange %q", exchange)
	}
	return b, nil
}

type tickerResp struct {
	Symbol    string `json:"symbol"`
	BidPrice  string `json:"bidPrice"`
	AskPrice  string `json:"askPrice"`
	LastPrice string `json:"lastPrice"`
	Volume    string `json:"quoteVolume"`
	HighPrice string `json:"highPrice"`
	LowPrice  string `json:"lowPrice"`
}

// FetchTicker pulls the 24hr ticker, which carries top-of-book plus the
// volume and range stats the prioritizer feeds on.
func (c *Client) FetchTicker(ctx context.Context, exchange, nativeSymbol string) (types.TickerSnapshot, error) {
	b, err := c.base(exchange)
	if err != nil {
		return types.TickerSnapshot{}, err
	}
	endpoint := b + "/api/v3/ticker/24hr?symbol=" + url.QueryEscape(nativeSymbol)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return types.TickerSnapshot{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return types.TickerSnapshot{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return types.TickerSnapshot{}, fmt.Errorf("ticker %s %d: %s", exchange, resp.StatusCode, string(body))
	}
	var tr tickerResp
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return types.TickerSnapshot{}, err
	}
	return types.TickerSnapshot{
		Exchange:   exchange,
		Bid:        f(tr.BidPrice),
		Ask:        f(tr.AskPrice),
		Last:       f(tr.LastPrice),
		Volume24h:  f(tr.Volume),
		High24h:    f(tr.HighPrice),
		Low24h:     f(tr.LowPrice),
		CapturedAt: time.Now(),
	}, nil
}

type depthResp struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
}

// FetchOrderBook pulls the top 50 levels per side, enough to cover the
// depth bands and slippage curve.
func (c *Client) FetchOrderBook(ctx context.Context, exchange, nativeSymbol string) (types.OrderBookSnapshot, error) {
	b, err := c.base(exchange)
	if err != nil {
		return types.OrderBookSnapshot{}, err
	}
	endpoint := b + "/api/v3/depth?limit=50&symbol=" + url.QueryEscape(nativeSymbol)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return types.OrderBookSnapshot{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return types.OrderBookSnapshot{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return types.OrderBookSnapshot{}, fmt.Errorf("depth %s %d: %s", exchange, resp.StatusCode, string(body))
	}
	var dr depthResp
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return types.OrderBookSnapshot{}, err
	}
	return types.OrderBookSnapshot{
		Exchange:   exchange,
		Bids:       levels(dr.Bids),
		Asks:       levels(dr.Asks),
		CapturedAt: time.Now(),
	}, nil
}

func levels(raw [][]string) []types.BookLevel {
	out := make([]types.BookLevel, 0, len(raw))
	for _, lv := range raw {
		if len(lv) < 2 {
			continue
		}
		price, size := f(lv[0]), f(lv[1])
		if price <= 0 || size <= 0 {
			continue
		}
		out = append(out, types.BookLevel{Price: price, Size: size})
	}
	return out
}

func f(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
