package provider

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"quotefeed/model"

	"github.com/samber/lo"
)

var (
	//go:embed symbols.json
	symbols           []byte
	canonicalByTicker = make(map[string]string)
	tickerByCanonical = make(map[string]string)
)

// quoteSuffixes are the quote currencies stripped off exchange-style pairs
// before lookup. Longer suffixes come first so BTCUSDT does not lose a bare
// "usd" and keep the trailing t.
var quoteSuffixes = []string{"usdt", "usdc", "busd", "usd", "eur"}

func init() {
	err := json.Unmarshal(symbols, &canonicalByTicker)
	if err != nil {
		panic(err)
	}
	tickers := make([]string, 0, len(canonicalByTicker))
	for ticker := range canonicalByTicker {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	for _, ticker := range tickers {
		canonical := canonicalByTicker[ticker]
		if _, ok := tickerByCanonical[canonical]; !ok {
			tickerByCanonical[canonical] = ticker
		}
	}
}

// ResolveSymbol normalizes a raw, case-insensitive ticker into its canonical
// provider-agnostic ID. Exchange-style pairs lose their quote suffix first
// (BTCUSDT -> btc -> bitcoin). Tickers the table has never heard of resolve
// to themselves, so the feed still works for unknown listings.
func ResolveSymbol(raw string) model.Symbol {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := canonicalByTicker[lowered]; ok {
		return model.Symbol{Canonical: canonical, Raw: raw}
	}

	ticker := lowered
	for _, suffix := range quoteSuffixes {
		if trimmed := strings.TrimSuffix(ticker, suffix); trimmed != ticker && trimmed != "" {
			ticker = trimmed
			break
		}
	}
	if canonical, ok := canonicalByTicker[ticker]; ok {
		return model.Symbol{Canonical: canonical, Raw: raw}
	}
	return model.Symbol{Canonical: lowered, Raw: raw}
}

// ResolveSymbols resolves a ticker list in order, dropping inputs that
// normalize to a canonical ID already seen.
func ResolveSymbols(raws []string) []model.Symbol {
	resolved := lo.Map(raws, func(raw string, _ int) model.Symbol {
		return ResolveSymbol(raw)
	})
	return lo.UniqBy(resolved, func(s model.Symbol) string {
		return s.Canonical
	})
}

// ExchangeTicker renders a resolved symbol as an exchange trading pair in
// the given quote currency, e.g. bitcoin/USDT -> BTCUSDT. Symbols outside
// the static table keep the raw input when it already looks like a pair.
func ExchangeTicker(symbol model.Symbol, quote string) string {
	if ticker, ok := tickerByCanonical[symbol.Canonical]; ok {
		return strings.ToUpper(ticker + quote)
	}
	lowered := strings.ToLower(strings.TrimSpace(symbol.Raw))
	for _, suffix := range quoteSuffixes {
		if strings.HasSuffix(lowered, suffix) && len(lowered) > len(suffix) {
			return strings.ToUpper(lowered)
		}
	}
	return strings.ToUpper(lowered + quote)
}

// KnownSymbols returns a copy of the static ticker to canonical ID table.
func KnownSymbols() map[string]string {
	out := make(map[string]string, len(canonicalByTicker))
	for ticker, canonical := range canonicalByTicker {
		out[ticker] = canonical
	}
	return out
}

// UpdateSymbolsFile regenerates symbols.json from the aggregator's market
// ranking. Pages arrive in descending market cap order and existing entries
// win collisions, so btc stays bitcoin no matter how many forks reuse the
// ticker.
func UpdateSymbolsFile(ctx context.Context, aggregator *Aggregator, pages int) error {
	table := make(map[string]string, len(canonicalByTicker))
	for ticker, canonical := range canonicalByTicker {
		table[ticker] = canonical
	}

	for page := 1; page <= pages; page++ {
		markets, err := aggregator.Markets(ctx, page, 250)
		if err != nil {
			return err
		}
		for _, market := range markets {
			ticker := strings.ToLower(market.Symbol)
			if ticker == "" || market.ID == "" {
				continue
			}
			if _, ok := table[ticker]; !ok {
				table[ticker] = market.ID
			}
		}
	}

	fmt.Printf("Total symbols: %d\n", len(table))

	content, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal symbols: %v", err)
	}

	err = os.WriteFile("symbols.json", content, 0644)
	if err != nil {
		return fmt.Errorf("failed to write to file: %v", err)
	}

	return nil
}
