package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quotefeed/model"
	"quotefeed/reference"
	"quotefeed/utils"
	"quotefeed/utils/strutil"

	"github.com/StudioSol/set"
)

// DefaultGracePeriod is how long an orphaned feed keeps polling after its
// last subscriber left, so rapid unsubscribe/resubscribe churn does not tear
// the poller down and restart it.
const DefaultGracePeriod = 500 * time.Millisecond

// DefaultSubscriptionBuffer bounds how many undelivered snapshots queue up
// per subscriber before the oldest gets dropped.
const DefaultSubscriptionBuffer = 8

// Subscription is one consumer's handle on a feed. Updates arrive on Data;
// the channel closes on unsubscribe.
type Subscription struct {
	ID       string
	Symbols  []model.Symbol
	Interval time.Duration
	Data     chan model.PriceSnapshot

	key string

	mu     sync.Mutex
	closed bool
}

// push delivers without ever blocking the polling loop. When the consumer
// lags behind the buffer, the oldest queued snapshot is dropped: stale
// prices are worthless once a fresh one exists.
func (s *Subscription) push(snapshot model.PriceSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.Data <- snapshot:
			return
		default:
			select {
			case <-s.Data:
			default:
			}
		}
	}
}

func (s *Subscription) closeData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.Data)
}

type feedEntry struct {
	key           string
	symbols       []model.Symbol
	interval      time.Duration
	poller        *Poller
	subscriptions []*Subscription
	teardown      *time.Timer
}

// QuoteFeedSubscription owns one poller per distinct (symbol set, interval)
// pair and fans every committed snapshot out to that feed's subscribers.
// Subscribers never share channels and never block each other.
type QuoteFeedSubscription struct {
	mu      sync.Mutex
	ctx     context.Context
	fetcher reference.Provider

	Feeds   *set.LinkedHashSetString
	entries map[string]*feedEntry

	onCommit func(model.PriceSnapshot)
	onError  func(key string, err error)
	grace    time.Duration
	buffer   int
	ceiling  time.Duration
}

type QuoteFeedOption func(*QuoteFeedSubscription)

// WithCommitHook registers a callback invoked synchronously with every
// committed snapshot, before subscriber fan-out. The history layer hangs off
// this hook so a subscriber that reads history right after an update already
// sees that update included.
func WithCommitHook(hook func(model.PriceSnapshot)) QuoteFeedOption {
	return func(q *QuoteFeedSubscription) {
		q.onCommit = hook
	}
}

// WithErrorHook registers a callback for failed polling cycles, keyed by
// feed. Meant for operational alerting; subscriber channels never carry
// errors.
func WithErrorHook(hook func(key string, err error)) QuoteFeedOption {
	return func(q *QuoteFeedSubscription) {
		q.onError = hook
	}
}

// WithGracePeriod overrides how long an orphaned feed lingers.
func WithGracePeriod(grace time.Duration) QuoteFeedOption {
	return func(q *QuoteFeedSubscription) {
		q.grace = grace
	}
}

// WithSubscriptionBuffer overrides the per-subscriber channel depth.
func WithSubscriptionBuffer(buffer int) QuoteFeedOption {
	return func(q *QuoteFeedSubscription) {
		if buffer > 0 {
			q.buffer = buffer
		}
	}
}

// WithFeedBackoffCeiling overrides the failure backoff cap of every poller.
func WithFeedBackoffCeiling(ceiling time.Duration) QuoteFeedOption {
	return func(q *QuoteFeedSubscription) {
		q.ceiling = ceiling
	}
}

func NewQuoteFeed(ctx context.Context, fetcher reference.Provider, options ...QuoteFeedOption) *QuoteFeedSubscription {
	q := &QuoteFeedSubscription{
		ctx:     ctx,
		fetcher: fetcher,
		Feeds:   set.NewLinkedHashSetString(),
		entries: make(map[string]*feedEntry),
		grace:   DefaultGracePeriod,
		buffer:  DefaultSubscriptionBuffer,
		ceiling: DefaultBackoffCeiling,
	}
	for _, option := range options {
		option(q)
	}
	return q
}

// feedKey identifies a feed by its canonical symbol set and cadence. The
// same symbols in a different order land on the same key.
func feedKey(symbols []model.Symbol, interval time.Duration) string {
	ids := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		ids = append(ids, symbol.Canonical)
	}
	return fmt.Sprintf("%s--%s", strutil.JoinSorted(ids, ","), interval)
}

// Subscribe attaches a consumer to the feed for (symbols, interval),
// starting a poller when the feed does not exist yet. A feed inside its
// teardown grace period gets reused instead of restarted.
func (q *QuoteFeedSubscription) Subscribe(symbols []model.Symbol, interval time.Duration) *Subscription {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := feedKey(symbols, interval)
	entry, ok := q.entries[key]
	if !ok {
		entry = q.startFeed(key, symbols, interval)
	} else if entry.teardown != nil {
		entry.teardown.Stop()
		entry.teardown = nil
	}

	subscription := &Subscription{
		ID:       strutil.RandomString(12),
		Symbols:  symbols,
		Interval: interval,
		Data:     make(chan model.PriceSnapshot, q.buffer),
		key:      key,
	}
	entry.subscriptions = append(entry.subscriptions, subscription)
	utils.Log.Infof("[FEED] subscribed %s to %s", subscription.ID, key)
	return subscription
}

// Unsubscribe detaches a consumer and closes its channel. Safe to call any
// number of times. The feed itself survives for the grace period in case a
// replacement subscriber shows up.
func (q *QuoteFeedSubscription) Unsubscribe(subscription *Subscription) {
	if subscription == nil {
		return
	}

	q.mu.Lock()
	entry, ok := q.entries[subscription.key]
	if ok {
		kept := entry.subscriptions[:0]
		for _, s := range entry.subscriptions {
			if s.ID != subscription.ID {
				kept = append(kept, s)
			}
		}
		entry.subscriptions = kept
		if len(entry.subscriptions) == 0 && entry.teardown == nil {
			q.scheduleTeardown(entry)
		}
	}
	q.mu.Unlock()

	subscription.closeData()
}

// deliver hands one committed snapshot to every subscriber of a feed.
func (q *QuoteFeedSubscription) deliver(key string, snapshot model.PriceSnapshot) {
	q.mu.Lock()
	entry, ok := q.entries[key]
	if !ok {
		q.mu.Unlock()
		return
	}
	subscribers := make([]*Subscription, len(entry.subscriptions))
	copy(subscribers, entry.subscriptions)
	q.mu.Unlock()

	for _, subscription := range subscribers {
		subscription.push(snapshot)
	}
}

// startFeed creates and starts the poller for a new feed key. Caller holds
// the mutex.
func (q *QuoteFeedSubscription) startFeed(key string, symbols []model.Symbol, interval time.Duration) *feedEntry {
	entry := &feedEntry{
		key:      key,
		symbols:  symbols,
		interval: interval,
	}

	fetch := func(ctx context.Context) (model.PriceSnapshot, error) {
		return q.fetcher.FetchPrices(ctx, entry.symbols)
	}
	commit := func(snapshot model.PriceSnapshot) {
		if q.onCommit != nil {
			q.onCommit(snapshot)
		}
		q.deliver(key, snapshot)
	}

	pollerOptions := []PollerOption{WithBackoffCeiling(q.ceiling)}
	if q.onError != nil {
		pollerOptions = append(pollerOptions, WithPollerErrorHook(func(err error) {
			q.onError(key, err)
		}))
	}

	entry.poller = NewPoller(key, interval, fetch, commit, pollerOptions...)
	if err := entry.poller.Start(q.ctx); err != nil {
		utils.Log.Errorf("[FEED] starting poller for %s: %s", key, err.Error())
	}

	q.entries[key] = entry
	q.Feeds.Add(key)
	utils.Log.Infof("[FEED] feed started: %s", key)
	return entry
}

// scheduleTeardown arms the grace timer for a feed that just lost its last
// subscriber. Caller holds the mutex.
func (q *QuoteFeedSubscription) scheduleTeardown(entry *feedEntry) {
	entry.teardown = time.AfterFunc(q.grace, func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		current, ok := q.entries[entry.key]
		if !ok || current != entry || len(current.subscriptions) > 0 {
			return
		}
		current.poller.Stop()
		delete(q.entries, entry.key)
		q.Feeds.Remove(entry.key)
		utils.Log.Infof("[FEED] feed stopped: %s", entry.key)
	})
}

// ActiveFeeds lists the live feed keys in subscription order.
func (q *QuoteFeedSubscription) ActiveFeeds() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	keys := make([]string, 0, len(q.entries))
	for key := range q.Feeds.Iter() {
		if _, ok := q.entries[key]; ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// SubscriberCount reports how many consumers a feed currently has.
func (q *QuoteFeedSubscription) SubscriberCount(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.entries[key]
	if !ok {
		return 0
	}
	return len(entry.subscriptions)
}

// Stop tears down every feed immediately, closing all subscriber channels.
func (q *QuoteFeedSubscription) Stop() {
	q.mu.Lock()
	entries := make([]*feedEntry, 0, len(q.entries))
	for _, entry := range q.entries {
		entries = append(entries, entry)
	}
	q.entries = make(map[string]*feedEntry)
	q.mu.Unlock()

	for _, entry := range entries {
		if entry.teardown != nil {
			entry.teardown.Stop()
		}
		entry.poller.Stop()
		for _, subscription := range entry.subscriptions {
			subscription.closeData()
		}
		q.Feeds.Remove(entry.key)
		utils.Log.Infof("[FEED] feed stopped: %s", entry.key)
	}
}
