package reference

import (
	"context"

	"quotefeed/model"
)

// Provider is one upstream price source. FetchPrices issues a single network
// call per invocation and never retries on its own; retry policy belongs to
// the poll scheduler, fallback ordering to the fetcher chain.
type Provider interface {
	Name() string
	FetchPrices(ctx context.Context, symbols []model.Symbol) (model.PriceSnapshot, error)
}

// HistorySource returns an ordered historical price series for one symbol,
// oldest first.
type HistorySource interface {
	Series(ctx context.Context, symbol model.Symbol, timeframe model.Timeframe) ([]model.PricePoint, error)
}
