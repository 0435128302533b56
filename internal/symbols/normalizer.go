// Package symbols canonicalizes per-exchange trading pair spellings so that
// quotes from different venues can be compared under one identifier.
package symbols

import (
	"strings"
	"sync"
)

// Asset aliases some exchanges use for otherwise standard asset codes.
var assetAliases = map[string]string{
	"XBT":    "BTC",
	"XDG":    "DOGE",
	"BCHABC": "BCH",
}

// Quote assets recognized when splitting concatenated spellings like BTCUSDT.
// Longest first so USDT wins over USD.
var quoteSuffixes = []string{"USDT", "USDC", "TUSD", "BUSD", "USD", "EUR", "BTC", "ETH"}

// Derivative markers that must survive normalization unmodified.
var derivativeMarkers = []string{"-PERP", "_PERP", "-SWAP", ".P"}

// Normalizer maps native exchange spellings onto canonical BASE/QUOTE symbols.
// Normalization is a pure function of (native, exchange), so the memo is
// append-only and never invalidated.
type Normalizer struct {
	mu     sync.RWMutex
	memo   map[string]string            // "exchange|native" -> canonical
	native map[string]map[string]string // canonical -> exchange -> native
}

func New() *Normalizer {
	return &Normalizer{
		memo:   make(map[string]string, 256),
		native: make(map[string]map[string]string, 128),
	}
}

// Normalize returns the canonical symbol for a native spelling. An empty
// result means the spelling could not be parsed into a trading pair.
func (n *Normalizer) Normalize(nativeSymbol, exchange string) string {
	key := exchange + "|" + nativeSymbol

	n.mu.RLock()
	if c, ok := n.memo[key]; ok {
		n.mu.RUnlock()
		return c
	}
	n.mu.RUnlock()

	canonical := normalizeImpl(nativeSymbol)

	n.mu.Lock()
	n.memo[key] = canonical
	if canonical != "" {
		m := n.native[canonical]
		if m == nil {
			m = make(map[string]string, 4)
			n.native[canonical] = m
		}
		if _, ok := m[exchange]; !ok {
			m[exchange] = nativeSymbol
		}
	}
	n.mu.Unlock()
	return canonical
}

// Native returns the native spelling previously observed for a canonical
// symbol on the given exchange.
func (n *Normalizer) Native(canonical, exchange string) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	m, ok := n.native[canonical]
	if !ok {
		return "", false
	}
	s, ok := m[exchange]
	return s, ok
}

func normalizeImpl(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return ""
	}

	// Derivative spellings pass through untouched apart from case folding.
	for _, marker := range derivativeMarkers {
		if strings.Contains(s, marker) {
			return s
		}
	}

	// Unify separators before splitting.
	for _, sep := range []string{"-", "_", ".", ":", " "} {
		s = strings.ReplaceAll(s, sep, "/")
	}

	base, quote := splitPair(s)
	if base == "" || quote == "" {
		return ""
	}

	if alias, ok := assetAliases[base]; ok {
		base = alias
	}
	// Spot USD pairs trade as USDT almost everywhere; unify the quote.
	if quote == "USD" {
		quote = "USDT"
	}
	return base + "/" + quote
}

func splitPair(s string) (base, quote string) {
	if i := strings.IndexByte(s, '/'); i > 0 {
		base, quote = s[:i], s[i+1:]
		// Collapse any residue from repeated separators.
		quote = strings.ReplaceAll(quote, "/", "")
		return base, quote
	}
	for _, q := range quoteSuffixes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return s[:len(s)-len(q)], q
		}
	}
	return "", ""
}
