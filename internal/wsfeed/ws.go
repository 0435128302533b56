// Package wsfeed streams live book tickers over a WebSocket and pushes them
// into the market cache, so polling for those symbols becomes a cache hit.
package wsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Ticker is one top-of-book update as decoded off the wire.
type Ticker struct {
	Symbol string
	Bid    float64
	Ask    float64
	TS     time.Time
}

type WS struct {
	URL    string
	Dialer *websocket.Dialer
	conn   *websocket.Conn
	mu     sync.Mutex
}

func NewWS(url string) *WS {
	return &WS{
		URL: strings.TrimRight(url, "/"),
		Dialer: &websocket.Dialer{
			HandshakeTimeout:  15 * time.Second,
			EnableCompression: true,
		},
	}
}

func (w *WS) connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return nil
	}
	c, _, err := w.Dialer.DialContext(ctx, w.URL, nil)
	if err != nil {
		return err
	}
	w.conn = c

	_ = w.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})

	return nil
}

func (w *WS) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// bookTickerMsg covers the common JSON book-ticker shape: string-encoded
// prices under short keys, symbol under "s".
type bookTickerMsg struct {
	Symbol string `json:"s"`
	Bid    string `json:"b"`
	Ask    string `json:"a"`
	TimeMs int64  `json:"t"`
}

// SubscribeBookTicker subscribes to top-of-book updates for the given native
// symbols and returns a channel of decoded tickers. The channel closes when
// ctx is cancelled or the connection drops.
func (w *WS) SubscribeBookTicker(ctx context.Context, symbols []string) (<-chan Ticker, error) {
	if err := w.connect(ctx); err != nil {
		return nil, err
	}

	params := make([]string, 0, len(symbols))
	for _, s := range symbols {
		params = append(params, "bookTicker@"+strings.ToUpper(s))
	}
	sub := struct {
		ID     int      `json:"id"`
		Method string   `json:"method"`
		Params []string `json:"params"`
	}{ID: 1, Method: "SUBSCRIBE", Params: params}

	if err := w.conn.WriteJSON(sub); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan Ticker, 1024)

	go func() {
		defer close(out)
		defer w.Close()

		pingStop := make(chan struct{})
		go func() {
			t := time.NewTicker(20 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-pingStop:
					return
				case <-t.C:
					_ = w.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}()
		defer close(pingStop)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msgType, data, err := w.conn.ReadMessage()
			if err != nil {
				return
			}

			_ = w.conn.SetReadDeadline(time.Now().Add(90 * time.Second))

			if msgType != websocket.TextMessage {
				continue
			}

			var msg bookTickerMsg
			if json.Unmarshal(data, &msg) != nil || msg.Symbol == "" {
				// Subscription ack or unrelated frame.
				continue
			}

			var bid, ask float64
			if v, err := strconv.ParseFloat(msg.Bid, 64); err == nil {
				bid = v
			}
			if v, err := strconv.ParseFloat(msg.Ask, 64); err == nil {
				ask = v
			}
			if bid == 0 && ask == 0 {
				continue
			}

			ts := time.Now()
			if msg.TimeMs > 0 {
				ts = time.UnixMilli(msg.TimeMs)
			}

			out <- Ticker{
				Symbol: msg.Symbol,
				Bid:    bid,
				Ask:    ask,
				TS:     ts,
			}
		}
	}()

	return out, nil
}

// Pump drains the subscription into the cache via put, normalizing native
// symbols through normalize. Reconnects with backoff until ctx is cancelled.
func Pump(
	ctx context.Context,
	url, exchange string,
	symbols []string,
	normalize func(native string) string,
	put func(exchange, symbol string, bid, ask float64, ts time.Time),
	log *zap.Logger,
) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		ws := NewWS(url)
		ch, err := ws.SubscribeBookTicker(ctx, symbols)
		if err != nil {
			log.Warn("feed connect failed",
				zap.String("exchange", exchange), zap.Error(err))
		} else {
			backoff = time.Second
			for t := range ch {
				canonical := normalize(t.Symbol)
				if canonical == "" {
					continue
				}
				put(exchange, canonical, t.Bid, t.Ask, t.TS)
			}
			log.Info("feed disconnected", zap.String("exchange", exchange))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}
