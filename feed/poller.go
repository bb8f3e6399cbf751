package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"quotefeed/model"
	"quotefeed/utils"

	"github.com/jpillora/backoff"
)

var ErrPollerNotIdle = errors.New("poller already started")

// DefaultBackoffCeiling caps the retry interval no matter how long the
// upstream stays down.
const DefaultBackoffCeiling = 60 * time.Second

type PollerState string

const (
	PollerIdle    PollerState = "idle"
	PollerRunning PollerState = "running"
	PollerStopped PollerState = "stopped"
)

// FetchFunc runs one polling cycle and returns the cycle's snapshot.
type FetchFunc func(ctx context.Context) (model.PriceSnapshot, error)

// CommitFunc receives the snapshot of a successful cycle.
type CommitFunc func(snapshot model.PriceSnapshot)

// Poller drives a single polling loop: an immediate first fetch, then the
// base interval between successful cycles. Consecutive failures double the
// wait up to the ceiling, and the first success snaps it back to the base
// interval. Fetches never overlap; the next one is only scheduled after the
// previous call returned.
type Poller struct {
	key      string
	interval time.Duration
	fetch    FetchFunc
	commit   CommitFunc
	ba       *backoff.Backoff

	mu     sync.Mutex
	state  PollerState
	cancel context.CancelFunc
	done   chan struct{}

	onError func(error)
	after   func(time.Duration) <-chan time.Time
}

type PollerOption func(*Poller)

// WithBackoffCeiling overrides the maximum retry interval.
func WithBackoffCeiling(ceiling time.Duration) PollerOption {
	return func(p *Poller) {
		p.ba.Max = ceiling
	}
}

// WithPollerErrorHook registers a callback for failed cycles. Failures stay
// inside the polling layer otherwise; subscribers only ever see data.
func WithPollerErrorHook(hook func(error)) PollerOption {
	return func(p *Poller) {
		p.onError = hook
	}
}

// NewPoller builds an idle poller. interval is both the steady-state cadence
// and the floor of the failure backoff.
func NewPoller(key string, interval time.Duration, fetch FetchFunc, commit CommitFunc, options ...PollerOption) *Poller {
	p := &Poller{
		key:      key,
		interval: interval,
		fetch:    fetch,
		commit:   commit,
		ba: &backoff.Backoff{
			Min:    interval,
			Max:    DefaultBackoffCeiling,
			Factor: 2,
		},
		state: PollerIdle,
		done:  make(chan struct{}),
		after: time.After,
	}
	for _, option := range options {
		option(p)
	}
	if p.ba.Max < p.ba.Min {
		p.ba.Max = p.ba.Min
	}
	return p
}

func (p *Poller) State() PollerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Done closes once the polling goroutine has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Start launches the polling loop. Valid only once, from idle.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != PollerIdle {
		p.mu.Unlock()
		return ErrPollerNotIdle
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.state = PollerRunning
	p.mu.Unlock()

	go p.loop(ctx)
	return nil
}

// Stop halts the loop without waiting for it. A fetch already in flight is
// left to finish on its own; its result gets discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PollerRunning {
		p.state = PollerStopped
		return
	}
	p.state = PollerStopped
	p.cancel()
}

func (p *Poller) running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == PollerRunning
}

// loop is strictly sequential: fetch, commit, wait, again. The first fetch
// fires immediately on start.
func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	for {
		snapshot, err := p.fetch(ctx)

		// the poller may have been stopped while the fetch was in flight;
		// a result that arrives after Stop is discarded
		if !p.running() {
			return
		}

		var delay time.Duration
		if err != nil {
			delay = p.ba.Duration()
			utils.Log.Warnf("[POLL] %s cycle failed, next attempt in %s: %s", p.key, delay, err.Error())
			if p.onError != nil {
				p.onError(err)
			}
		} else {
			p.ba.Reset()
			delay = p.interval
			if p.commit != nil {
				p.commit(snapshot)
			}
		}

		select {
		case <-p.after(delay):
		case <-ctx.Done():
			return
		}
	}
}
