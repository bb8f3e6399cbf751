package notification

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"quotefeed/model"
	"quotefeed/service"
	"quotefeed/utils"

	tb "gopkg.in/tucnak/telebot.v2"
)

// AlertRule fires a notification when a symbol crosses a bound. Zero bounds
// are inactive.
type AlertRule struct {
	Above float64
	Below float64
}

// breach returns the alert text for a crossing, or "" when the rule stays
// quiet.
func (rule AlertRule) breach(symbol string, value float64) string {
	switch {
	case rule.Above != 0 && value >= rule.Above:
		return fmt.Sprintf("%s crossed above %.4f: %.4f", symbol, rule.Above, value)
	case rule.Below != 0 && value <= rule.Below:
		return fmt.Sprintf("%s dropped below %.4f: %.4f", symbol, rule.Below, value)
	}
	return ""
}

// Telegram pushes price alerts and operational errors to a single chat and
// answers a few read-only commands against the live feed.
type Telegram struct {
	client   *tb.Bot
	user     *tb.User
	liveFeed *service.ServiceLiveFeed

	alerts        map[string]AlertRule
	alertCooldown time.Duration
	errorCooldown time.Duration

	mu          sync.Mutex
	lastAlertAt map[string]time.Time
	lastErrorAt time.Time
}

type TelegramOption func(*Telegram)

// WithTelegramAlerts installs threshold rules keyed by canonical symbol ID.
func WithTelegramAlerts(alerts map[string]AlertRule) TelegramOption {
	return func(t *Telegram) {
		t.alerts = alerts
	}
}

// WithTelegramAlertCooldown sets how long a symbol stays quiet after firing.
func WithTelegramAlertCooldown(cooldown time.Duration) TelegramOption {
	return func(t *Telegram) {
		t.alertCooldown = cooldown
	}
}

func NewTelegram(liveFeed *service.ServiceLiveFeed, token string, userID int, options ...TelegramOption) (*Telegram, error) {
	client, err := tb.NewBot(tb.Settings{
		Token:  token,
		Poller: &tb.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	telegram := &Telegram{
		client:        client,
		user:          &tb.User{ID: userID},
		liveFeed:      liveFeed,
		alerts:        map[string]AlertRule{},
		alertCooldown: 5 * time.Minute,
		errorCooldown: time.Minute,
		lastAlertAt:   map[string]time.Time{},
	}
	for _, option := range options {
		option(telegram)
	}

	client.Handle("/price", telegram.handlePrice)
	client.Handle("/history", telegram.handleHistory)
	client.Handle("/feeds", telegram.handleFeeds)
	client.Handle("/help", telegram.handleHelp)

	return telegram, nil
}

// Start blocks on the bot's long-poll loop; run it on its own goroutine.
func (t *Telegram) Start() {
	utils.Log.Infof("[NOTIFY] telegram bot started")
	t.client.Start()
}

func (t *Telegram) Notify(message string) {
	_, err := t.client.Send(t.user, message)
	if err != nil {
		utils.Log.Errorf("[NOTIFY] telegram send: %s", err.Error())
	}
}

// OnPrice checks the committed point against the alert rules. A rule stays
// quiet for the cooldown window after firing so a price oscillating around
// the bound does not flood the chat.
func (t *Telegram) OnPrice(symbol string, point model.PricePoint) {
	rule, ok := t.alerts[symbol]
	if !ok {
		return
	}

	reason := rule.breach(symbol, point.Value)
	if reason == "" {
		return
	}

	t.mu.Lock()
	last := t.lastAlertAt[symbol]
	if time.Since(last) < t.alertCooldown {
		t.mu.Unlock()
		return
	}
	t.lastAlertAt[symbol] = time.Now()
	t.mu.Unlock()

	t.Notify(reason)
}

// OnError forwards polling failures, at most one message per cooldown.
func (t *Telegram) OnError(err error) {
	t.mu.Lock()
	if time.Since(t.lastErrorAt) < t.errorCooldown {
		t.mu.Unlock()
		return
	}
	t.lastErrorAt = time.Now()
	t.mu.Unlock()

	t.Notify(fmt.Sprintf("feed error: %s", err.Error()))
}

func (t *Telegram) handlePrice(m *tb.Message) {
	ticker := strings.TrimSpace(m.Payload)
	if ticker == "" {
		t.Notify("usage: /price <ticker>")
		return
	}
	point, ok := t.liveFeed.CurrentValue(ticker)
	if !ok {
		t.Notify(fmt.Sprintf("no price yet for %s", ticker))
		return
	}
	t.Notify(fmt.Sprintf("%s: %.4f (as of %s)", ticker, point.Value, point.Time.Format("15:04:05")))
}

func (t *Telegram) handleHistory(m *tb.Message) {
	ticker := strings.TrimSpace(m.Payload)
	if ticker == "" {
		t.Notify("usage: /history <ticker>")
		return
	}
	points := t.liveFeed.History(ticker)
	if len(points) == 0 {
		t.Notify(fmt.Sprintf("no history yet for %s", ticker))
		return
	}

	tail := points
	if len(tail) > 10 {
		tail = tail[len(tail)-10:]
	}
	lines := make([]string, 0, len(tail)+1)
	lines = append(lines, fmt.Sprintf("%s, last %d of %d points:", ticker, len(tail), len(points)))
	for _, point := range tail {
		lines = append(lines, fmt.Sprintf("%s  %.4f", point.Time.Format("15:04:05"), point.Value))
	}
	t.Notify(strings.Join(lines, "\n"))
}

func (t *Telegram) handleFeeds(m *tb.Message) {
	feeds := t.liveFeed.ActiveFeeds()
	if len(feeds) == 0 {
		t.Notify("no active feeds")
		return
	}
	t.Notify("active feeds:\n" + strings.Join(feeds, "\n"))
}

func (t *Telegram) handleHelp(m *tb.Message) {
	t.Notify("/price <ticker>\n/history <ticker>\n/feeds")
}
