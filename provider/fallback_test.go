package provider

import (
	"context"
	"testing"
	"time"

	"quotefeed/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name        string
	snapshot    model.PriceSnapshot
	err         error
	calls       int
	lastSymbols []model.Symbol
}

func (f *fakeProvider) Name() string {
	return f.name
}

func (f *fakeProvider) FetchPrices(ctx context.Context, symbols []model.Symbol) (model.PriceSnapshot, error) {
	f.calls++
	f.lastSymbols = symbols
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

func snapshotOf(values map[string]float64) model.PriceSnapshot {
	snapshot := make(model.PriceSnapshot, len(values))
	for id, value := range values {
		snapshot[id] = model.PricePoint{Time: time.Now(), Value: value}
	}
	return snapshot
}

func TestFallbackFirstSuccessWins(t *testing.T) {
	primary := &fakeProvider{name: "primary", snapshot: snapshotOf(map[string]float64{"bitcoin": 64000})}
	secondary := &fakeProvider{name: "secondary", snapshot: snapshotOf(map[string]float64{"bitcoin": 63990})}
	aggregator := &fakeProvider{name: "aggregator", snapshot: snapshotOf(map[string]float64{"bitcoin": 63800})}

	chain := NewFallback(primary, secondary, aggregator)
	snapshot, err := chain.FetchPrices(context.Background(), pairs("BTC"))

	require.NoError(t, err)
	assert.Equal(t, 64000.0, snapshot["bitcoin"].Value)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, secondary.calls)
	assert.Equal(t, 0, aggregator.calls)
}

func TestFallbackMovesToNextStageOnFailure(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: &FetchError{Provider: "primary", Kind: KindTimeout}}
	secondary := &fakeProvider{name: "secondary", snapshot: snapshotOf(map[string]float64{"bitcoin": 63990})}
	aggregator := &fakeProvider{name: "aggregator", snapshot: snapshotOf(map[string]float64{"bitcoin": 63800})}

	chain := NewFallback(primary, secondary, aggregator)
	snapshot, err := chain.FetchPrices(context.Background(), pairs("BTC"))

	require.NoError(t, err)
	assert.Equal(t, 63990.0, snapshot["bitcoin"].Value)
	assert.Equal(t, 0, aggregator.calls)
}

func TestFallbackPartialSuccessIsUsedVerbatim(t *testing.T) {
	// primary only knows one of the two symbols; the chain must not consult
	// later stages to fill the gap
	primary := &fakeProvider{name: "primary", snapshot: snapshotOf(map[string]float64{"bitcoin": 64000})}
	secondary := &fakeProvider{name: "secondary", snapshot: snapshotOf(map[string]float64{"bitcoin": 63990, "ethereum": 3000})}

	chain := NewFallback(primary, secondary)
	snapshot, err := chain.FetchPrices(context.Background(), pairs("BTC", "ETH"))

	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, 64000.0, snapshot["bitcoin"].Value)
	assert.Equal(t, 0, secondary.calls)
}

func TestFallbackEmptySnapshotCountsAsFailure(t *testing.T) {
	primary := &fakeProvider{name: "primary", snapshot: model.PriceSnapshot{}}
	secondary := &fakeProvider{name: "secondary", snapshot: snapshotOf(map[string]float64{"bitcoin": 63990})}

	chain := NewFallback(primary, secondary)
	snapshot, err := chain.FetchPrices(context.Background(), pairs("BTC"))

	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 63990.0, snapshot["bitcoin"].Value)
}

func TestFallbackAllStagesFailed(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: &FetchError{Provider: "primary", Kind: KindTimeout}}
	secondary := &fakeProvider{name: "secondary", err: &FetchError{Provider: "secondary", Kind: KindTimeout}}
	aggregator := &fakeProvider{name: "aggregator", err: &FetchError{Provider: "aggregator", Kind: KindRateLimited}}

	chain := NewFallback(primary, secondary, aggregator)
	_, err := chain.FetchPrices(context.Background(), pairs("BTC"))

	require.Error(t, err)
	var allFailed *AllFailedError
	require.ErrorAs(t, err, &allFailed)
	assert.Equal(t, []FetchKind{KindTimeout, KindRateLimited}, allFailed.Kinds)
	assert.True(t, allFailed.HasKind(KindTimeout))
	assert.False(t, allFailed.HasKind(KindUnreachable))
}

func TestFallbackFetchOne(t *testing.T) {
	primary := &fakeProvider{name: "primary", snapshot: snapshotOf(map[string]float64{"bitcoin": 64000})}
	chain := NewFallback(primary)

	point, err := chain.FetchOne(context.Background(), ResolveSymbol("BTCUSDT"))
	require.NoError(t, err)
	assert.Equal(t, 64000.0, point.Value)

	_, err = chain.FetchOne(context.Background(), ResolveSymbol("ETH"))
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindMalformed, fetchErr.Kind)
}
