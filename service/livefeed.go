package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"quotefeed/feed"
	"quotefeed/model"
	"quotefeed/provider"
	"quotefeed/reference"
	"quotefeed/utils"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"
)

var (
	ErrNoSymbols        = errors.New("at least one symbol is required")
	ErrIntervalTooShort = errors.New("interval must be at least one second")
)

// MinSubscriptionInterval is the floor every subscription cadence must meet.
var MinSubscriptionInterval = time.Second

// DefaultBufferSize is how many points of rolling history each symbol keeps.
const DefaultBufferSize = 60

// ServiceLiveFeed is the public face of the price layer: it validates and
// owns subscriptions, runs the per-symbol rolling history, and answers
// current-value and history reads. It is the only writer to the history
// tables; everything downstream of the pollers funnels through apply.
type ServiceLiveFeed struct {
	ctx       context.Context
	fetcher   reference.Provider
	feed      *feed.QuoteFeedSubscription
	history   []reference.HistorySource
	notifiers []reference.Notifier

	bufferSize    int
	buffers       *model.ThreadSafeMap[string, *model.RingBuffer]
	lastValues    *model.ThreadSafeMap[string, model.PricePoint]
	subscriptions *model.ThreadSafeMap[string, *feed.Subscription]

	feedOptions []feed.QuoteFeedOption
}

type LiveFeedOption func(*ServiceLiveFeed)

// WithLiveFeedBufferSize overrides the rolling history depth per symbol.
func WithLiveFeedBufferSize(size int) LiveFeedOption {
	return func(s *ServiceLiveFeed) {
		if size > 0 {
			s.bufferSize = size
		}
	}
}

// WithLiveFeedNotifier attaches a notifier that sees every committed price
// and every failed polling cycle.
func WithLiveFeedNotifier(notifier reference.Notifier) LiveFeedOption {
	return func(s *ServiceLiveFeed) {
		s.notifiers = append(s.notifiers, notifier)
	}
}

// WithLiveFeedHistorySource appends a long-range history source. Sources are
// consulted in the order given, first non-empty series wins.
func WithLiveFeedHistorySource(source reference.HistorySource) LiveFeedOption {
	return func(s *ServiceLiveFeed) {
		s.history = append(s.history, source)
	}
}

// WithLiveFeedGracePeriod forwards the orphaned-feed grace period.
func WithLiveFeedGracePeriod(grace time.Duration) LiveFeedOption {
	return func(s *ServiceLiveFeed) {
		s.feedOptions = append(s.feedOptions, feed.WithGracePeriod(grace))
	}
}

// WithLiveFeedBackoffCeiling forwards the failure backoff cap.
func WithLiveFeedBackoffCeiling(ceiling time.Duration) LiveFeedOption {
	return func(s *ServiceLiveFeed) {
		s.feedOptions = append(s.feedOptions, feed.WithFeedBackoffCeiling(ceiling))
	}
}

func NewServiceLiveFeed(ctx context.Context, fetcher reference.Provider, options ...LiveFeedOption) *ServiceLiveFeed {
	s := &ServiceLiveFeed{
		ctx:           ctx,
		fetcher:       fetcher,
		bufferSize:    DefaultBufferSize,
		buffers:       model.NewThreadSafeMap[string, *model.RingBuffer](),
		lastValues:    model.NewThreadSafeMap[string, model.PricePoint](),
		subscriptions: model.NewThreadSafeMap[string, *feed.Subscription](),
	}
	for _, option := range options {
		option(s)
	}

	feedOptions := append([]feed.QuoteFeedOption{
		feed.WithCommitHook(s.apply),
		feed.WithErrorHook(s.onFeedError),
	}, s.feedOptions...)
	s.feed = feed.NewQuoteFeed(ctx, fetcher, feedOptions...)

	return s
}

// SetNotifier registers a notifier after construction, for notifiers that
// need the service themselves, like the telegram bot. Call it before the
// first Subscribe.
func (s *ServiceLiveFeed) SetNotifier(notifier reference.Notifier) {
	s.notifiers = append(s.notifiers, notifier)
}

// Subscribe validates the request, resolves the raw tickers and attaches a
// consumer to the matching feed. Validation fails fast, before any feed or
// poller state is touched.
func (s *ServiceLiveFeed) Subscribe(rawSymbols []string, interval time.Duration) (*feed.Subscription, error) {
	if len(rawSymbols) == 0 {
		return nil, ErrNoSymbols
	}
	if interval < MinSubscriptionInterval {
		return nil, ErrIntervalTooShort
	}

	symbols := provider.ResolveSymbols(rawSymbols)
	subscription := s.feed.Subscribe(symbols, interval)
	s.subscriptions.Set(subscription.ID, subscription)
	return subscription, nil
}

// Unsubscribe detaches a consumer by ID. Unknown or already-removed IDs are
// a no-op.
func (s *ServiceLiveFeed) Unsubscribe(id string) {
	subscription, ok := s.subscriptions.Get(id)
	if !ok {
		return
	}
	s.subscriptions.Delete(id)
	s.feed.Unsubscribe(subscription)
}

// Update replaces a subscription's symbol set and cadence by unsubscribing
// and resubscribing. The old channel closes and a fresh handle comes back; a
// short gap between the two is part of the contract. Validation runs first,
// so a bad request leaves the old subscription untouched.
func (s *ServiceLiveFeed) Update(id string, rawSymbols []string, interval time.Duration) (*feed.Subscription, error) {
	if len(rawSymbols) == 0 {
		return nil, ErrNoSymbols
	}
	if interval < MinSubscriptionInterval {
		return nil, ErrIntervalTooShort
	}
	s.Unsubscribe(id)
	return s.Subscribe(rawSymbols, interval)
}

// CurrentValue returns the last committed price for a ticker, however stale.
// The bool is false only when no fetch has ever succeeded for the symbol.
func (s *ServiceLiveFeed) CurrentValue(raw string) (model.PricePoint, bool) {
	symbol := provider.ResolveSymbol(raw)
	return s.lastValues.Get(symbol.Canonical)
}

// History returns a copy of the rolling in-memory window for a ticker,
// oldest first. At most the buffer depth, never an error: an unknown symbol
// simply has no points yet.
func (s *ServiceLiveFeed) History(raw string) []model.PricePoint {
	symbol := provider.ResolveSymbol(raw)
	buffer, ok := s.buffers.Get(symbol.Canonical)
	if !ok {
		return []model.PricePoint{}
	}
	return buffer.Points()
}

// HistorySeries loads a long-range series from the configured history
// sources, first non-empty answer wins.
func (s *ServiceLiveFeed) HistorySeries(ctx context.Context, raw string, timeframe model.Timeframe) ([]model.PricePoint, error) {
	symbol := provider.ResolveSymbol(raw)

	var lastErr error
	for _, source := range s.history {
		points, err := source.Series(ctx, symbol, timeframe)
		if err == nil && len(points) > 0 {
			return points, nil
		}
		if err != nil {
			lastErr = err
			utils.Log.Warnf("[SERVICE] history source failed for %s: %s", symbol.Canonical, err.Error())
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no history available for %s", symbol.Canonical)
	}
	return nil, lastErr
}

// Preload runs one synchronous fetch to warm the last-value table and the
// rolling buffers before any subscriber connects.
func (s *ServiceLiveFeed) Preload(ctx context.Context, rawSymbols []string) error {
	symbols := provider.ResolveSymbols(rawSymbols)
	if len(symbols) == 0 {
		return ErrNoSymbols
	}

	snapshot, err := s.fetcher.FetchPrices(ctx, symbols)
	if err != nil {
		return err
	}
	s.apply(snapshot)
	utils.Log.Infof("[SERVICE] preloaded %d prices", len(snapshot))
	return nil
}

// PreloadHistory seeds the rolling buffers from the history sources, oldest
// point first. Historical points never reach the notifiers. Call it before
// the first Subscribe, while the buffers have no other writer.
func (s *ServiceLiveFeed) PreloadHistory(ctx context.Context, rawSymbols []string, timeframe model.Timeframe) error {
	symbols := provider.ResolveSymbols(rawSymbols)
	if len(symbols) == 0 {
		return ErrNoSymbols
	}

	for _, symbol := range symbols {
		points, err := s.HistorySeries(ctx, symbol.Raw, timeframe)
		if err != nil {
			return err
		}

		buffer, ok := s.buffers.Get(symbol.Canonical)
		if !ok {
			buffer, _ = s.buffers.GetOrSet(symbol.Canonical, model.NewRingBuffer(s.bufferSize))
		}
		for _, point := range points {
			buffer.Add(point)
		}
		if _, ok := s.lastValues.Get(symbol.Canonical); !ok && len(points) > 0 {
			s.lastValues.Set(symbol.Canonical, points[len(points)-1])
		}
		utils.Log.Infof("[SERVICE] warmed %s with %d points", symbol.Canonical, len(points))
	}
	return nil
}

// ActiveFeeds lists the live feed keys.
func (s *ServiceLiveFeed) ActiveFeeds() []string {
	return s.feed.ActiveFeeds()
}

// Stop tears down every feed and closes all subscriber channels.
func (s *ServiceLiveFeed) Stop() {
	s.feed.Stop()
	utils.Log.Infof("[SERVICE] live feed stopped")
}

// apply is the single entry point for committed snapshots: rolling buffers,
// the last-value table and the notifiers all get updated here, before the
// feed fans the snapshot out to subscribers.
func (s *ServiceLiveFeed) apply(snapshot model.PriceSnapshot) {
	for id, point := range snapshot {
		buffer, ok := s.buffers.Get(id)
		if !ok {
			buffer, _ = s.buffers.GetOrSet(id, model.NewRingBuffer(s.bufferSize))
		}
		buffer.Add(point)
		s.lastValues.Set(id, point)

		for _, notifier := range s.notifiers {
			notifier.OnPrice(id, point)
		}
	}
}

func (s *ServiceLiveFeed) onFeedError(key string, err error) {
	for _, notifier := range s.notifiers {
		notifier.OnError(fmt.Errorf("feed %s: %w", key, err))
	}
}

// Summary renders a per-symbol digest of the rolling buffers plus a
// histogram of tick-to-tick moves.
func (s *ServiceLiveFeed) Summary() {
	buffer := bytes.NewBuffer(nil)
	table := tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"Symbol", "Points", "Last", "Min", "Max", "Avg", "Change"})
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)

	ids := s.buffers.Keys()
	sort.Strings(ids)

	changes := make([]float64, 0)
	totalPoints := 0
	for _, id := range ids {
		ringBuffer, ok := s.buffers.Get(id)
		if !ok {
			continue
		}
		values := ringBuffer.Values()
		if values.Length() == 0 {
			continue
		}

		sum := 0.0
		for _, value := range values {
			sum += value
		}
		last := values.Last(0)
		change := 0.0
		if values[0] != 0 {
			change = (last - values[0]) / values[0] * 100
		}
		for i := 1; i < values.Length(); i++ {
			if values[i-1] != 0 {
				changes = append(changes, (values[i]-values[i-1])/values[i-1]*100)
			}
		}
		totalPoints += values.Length()

		table.Append([]string{
			id,
			strconv.Itoa(values.Length()),
			fmt.Sprintf("%.4f", last),
			fmt.Sprintf("%.4f", values.Min()),
			fmt.Sprintf("%.4f", values.Max()),
			fmt.Sprintf("%.4f", sum/float64(values.Length())),
			fmt.Sprintf("%.2f %%", change),
		})
	}

	table.SetFooter([]string{"TOTAL", strconv.Itoa(totalPoints), "", "", "", "", ""})
	table.Render()
	fmt.Println(buffer.String())

	if len(changes) > 0 {
		fmt.Println("------ TICK MOVES (%) -------")
		hist := histogram.Hist(15, changes)
		histogram.Fprint(os.Stdout, hist, histogram.Linear(10))
		fmt.Println()
	}
}
