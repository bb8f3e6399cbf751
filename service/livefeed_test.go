package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quotefeed/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu    sync.Mutex
	calls int
	fail  bool
	value float64
}

func (f *stubFetcher) Name() string {
	return "stub"
}

func (f *stubFetcher) FetchPrices(ctx context.Context, symbols []model.Symbol) (model.PriceSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errors.New("upstream down")
	}
	f.value++
	snapshot := make(model.PriceSnapshot, len(symbols))
	for _, symbol := range symbols {
		snapshot[symbol.Canonical] = model.PricePoint{Time: time.Now(), Value: f.value}
	}
	return snapshot, nil
}

func (f *stubFetcher) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

type stubHistory struct {
	points []model.PricePoint
	err    error
}

func (h *stubHistory) Series(ctx context.Context, symbol model.Symbol, timeframe model.Timeframe) ([]model.PricePoint, error) {
	if h.err != nil {
		return nil, h.err
	}
	return h.points, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	prices []string
	errs   []error
}

func (n *recordingNotifier) Notify(message string) {}

func (n *recordingNotifier) OnPrice(symbol string, point model.PricePoint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prices = append(n.prices, symbol)
}

func (n *recordingNotifier) OnError(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
}

func (n *recordingNotifier) priceCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.prices)
}

func (n *recordingNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errs)
}

// withFastInterval lowers the cadence floor so subscription tests run in
// milliseconds. Tests sharing this must not run in parallel.
func withFastInterval(t *testing.T) {
	t.Helper()
	old := MinSubscriptionInterval
	MinSubscriptionInterval = 10 * time.Millisecond
	t.Cleanup(func() { MinSubscriptionInterval = old })
}

func TestSubscribeFailsFastOnBadInput(t *testing.T) {
	liveFeed := NewServiceLiveFeed(context.Background(), &stubFetcher{})
	defer liveFeed.Stop()

	_, err := liveFeed.Subscribe(nil, 5*time.Second)
	assert.ErrorIs(t, err, ErrNoSymbols)

	_, err = liveFeed.Subscribe([]string{"BTCUSDT"}, 500*time.Millisecond)
	assert.ErrorIs(t, err, ErrIntervalTooShort)

	// nothing was touched: no feed exists, no poller started
	assert.Empty(t, liveFeed.ActiveFeeds())
}

func TestSubscribeDeliversAndRecordsHistory(t *testing.T) {
	withFastInterval(t)
	fetcher := &stubFetcher{}
	liveFeed := NewServiceLiveFeed(context.Background(), fetcher)
	defer liveFeed.Stop()

	subscription, err := liveFeed.Subscribe([]string{"BTCUSDT"}, 20*time.Millisecond)
	require.NoError(t, err)

	select {
	case snapshot := <-subscription.Data:
		require.Contains(t, snapshot, "bitcoin")
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot arrived")
	}

	point, ok := liveFeed.CurrentValue("BTCUSDT")
	require.True(t, ok)
	assert.Greater(t, point.Value, 0.0)

	history := liveFeed.History("btc")
	require.NotEmpty(t, history)
	assert.Equal(t, point.Value, history[len(history)-1].Value)
}

func TestCurrentValueServesStaleData(t *testing.T) {
	fetcher := &stubFetcher{}
	liveFeed := NewServiceLiveFeed(context.Background(), fetcher)
	defer liveFeed.Stop()

	require.NoError(t, liveFeed.Preload(context.Background(), []string{"BTCUSDT"}))
	before, ok := liveFeed.CurrentValue("BTC")
	require.True(t, ok)

	// upstream dies; the last committed value stays readable
	fetcher.setFail(true)
	err := liveFeed.Preload(context.Background(), []string{"BTCUSDT"})
	require.Error(t, err)

	after, ok := liveFeed.CurrentValue("BTC")
	require.True(t, ok)
	assert.Equal(t, before.Value, after.Value)
}

func TestHistoryIsBoundedAndOrdered(t *testing.T) {
	fetcher := &stubFetcher{}
	liveFeed := NewServiceLiveFeed(context.Background(), fetcher, WithLiveFeedBufferSize(5))
	defer liveFeed.Stop()

	for i := 0; i < 7; i++ {
		require.NoError(t, liveFeed.Preload(context.Background(), []string{"BTC"}))
	}

	history := liveFeed.History("BTC")
	require.Len(t, history, 5)
	// the two oldest points were evicted; values 3..7 remain, oldest first
	assert.Equal(t, 3.0, history[0].Value)
	assert.Equal(t, 7.0, history[4].Value)
}

func TestHistoryUnknownSymbolIsEmpty(t *testing.T) {
	liveFeed := NewServiceLiveFeed(context.Background(), &stubFetcher{})
	defer liveFeed.Stop()

	assert.Empty(t, liveFeed.History("nothing-ever-fetched"))
	_, ok := liveFeed.CurrentValue("nothing-ever-fetched")
	assert.False(t, ok)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	withFastInterval(t)
	liveFeed := NewServiceLiveFeed(context.Background(), &stubFetcher{})
	defer liveFeed.Stop()

	subscription, err := liveFeed.Subscribe([]string{"BTC"}, 20*time.Millisecond)
	require.NoError(t, err)

	liveFeed.Unsubscribe(subscription.ID)
	liveFeed.Unsubscribe(subscription.ID)
	liveFeed.Unsubscribe("never-existed")

	closed := false
	for i := 0; i < 16; i++ {
		if _, ok := <-subscription.Data; !ok {
			closed = true
			break
		}
	}
	assert.True(t, closed)
}

func TestUpdateSwapsSubscription(t *testing.T) {
	withFastInterval(t)
	liveFeed := NewServiceLiveFeed(context.Background(), &stubFetcher{})
	defer liveFeed.Stop()

	subscription, err := liveFeed.Subscribe([]string{"BTC"}, 20*time.Millisecond)
	require.NoError(t, err)

	// invalid update leaves the original subscription running
	_, err = liveFeed.Update(subscription.ID, nil, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrNoSymbols)
	select {
	case _, ok := <-subscription.Data:
		require.True(t, ok, "subscription must survive a rejected update")
	case <-time.After(2 * time.Second):
		t.Fatal("original subscription stopped delivering")
	}

	replacement, err := liveFeed.Update(subscription.ID, []string{"ETH"}, 20*time.Millisecond)
	require.NoError(t, err)
	require.NotEqual(t, subscription.ID, replacement.ID)

	select {
	case snapshot := <-replacement.Data:
		assert.Contains(t, snapshot, "ethereum")
	case <-time.After(2 * time.Second):
		t.Fatal("replacement subscription never delivered")
	}
}

func TestHistorySeriesWalksSources(t *testing.T) {
	points := []model.PricePoint{{Time: time.Now(), Value: 64000}}
	broken := &stubHistory{err: errors.New("klines unavailable")}
	working := &stubHistory{points: points}

	liveFeed := NewServiceLiveFeed(context.Background(), &stubFetcher{},
		WithLiveFeedHistorySource(broken),
		WithLiveFeedHistorySource(working),
	)
	defer liveFeed.Stop()

	series, err := liveFeed.HistorySeries(context.Background(), "BTCUSDT", model.TimeframeWeek)
	require.NoError(t, err)
	assert.Equal(t, points, series)

	empty := NewServiceLiveFeed(context.Background(), &stubFetcher{},
		WithLiveFeedHistorySource(broken),
	)
	defer empty.Stop()

	_, err = empty.HistorySeries(context.Background(), "BTCUSDT", model.TimeframeWeek)
	assert.Error(t, err)
}

func TestPreloadHistoryWarmsBuffers(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	points := []model.PricePoint{
		{Time: base, Value: 61000},
		{Time: base.Add(time.Hour), Value: 62000},
		{Time: base.Add(2 * time.Hour), Value: 63000},
	}
	notifier := &recordingNotifier{}
	liveFeed := NewServiceLiveFeed(context.Background(), &stubFetcher{},
		WithLiveFeedHistorySource(&stubHistory{points: points}),
		WithLiveFeedNotifier(notifier),
	)
	defer liveFeed.Stop()

	err := liveFeed.PreloadHistory(context.Background(), []string{"BTCUSDT"}, model.TimeframeDay)
	require.NoError(t, err)

	assert.Equal(t, points, liveFeed.History("BTCUSDT"))

	point, ok := liveFeed.CurrentValue("btcusdt")
	require.True(t, ok)
	assert.Equal(t, 63000.0, point.Value)

	// Historical points are chart warmup, not live ticks.
	assert.Zero(t, notifier.priceCount())

	err = liveFeed.PreloadHistory(context.Background(), nil, model.TimeframeDay)
	assert.ErrorIs(t, err, ErrNoSymbols)

	failing := NewServiceLiveFeed(context.Background(), &stubFetcher{},
		WithLiveFeedHistorySource(&stubHistory{err: errors.New("klines unavailable")}),
	)
	defer failing.Stop()

	err = failing.PreloadHistory(context.Background(), []string{"BTCUSDT"}, model.TimeframeDay)
	assert.Error(t, err)
}

func TestNotifierObservesCommitsAndFailures(t *testing.T) {
	withFastInterval(t)
	fetcher := &stubFetcher{}
	notifier := &recordingNotifier{}
	liveFeed := NewServiceLiveFeed(context.Background(), fetcher, WithLiveFeedNotifier(notifier))
	defer liveFeed.Stop()

	require.NoError(t, liveFeed.Preload(context.Background(), []string{"BTC", "ETH"}))
	assert.Equal(t, 2, notifier.priceCount())

	fetcher.setFail(true)
	_, err := liveFeed.Subscribe([]string{"BTC"}, 10*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return notifier.errorCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}
