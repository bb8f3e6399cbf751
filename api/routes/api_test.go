package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"quotefeed/model"
	"quotefeed/service"

	"github.com/kataras/iris/v12"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticFetcher struct {
	mu    sync.Mutex
	value float64
}

func (f *staticFetcher) Name() string {
	return "static"
}

func (f *staticFetcher) FetchPrices(ctx context.Context, symbols []model.Symbol) (model.PriceSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value++
	snapshot := make(model.PriceSnapshot, len(symbols))
	for _, symbol := range symbols {
		snapshot[symbol.Canonical] = model.PricePoint{Time: time.Now(), Value: f.value}
	}
	return snapshot, nil
}

type staticHistory struct {
	points []model.PricePoint
}

func (h *staticHistory) Series(ctx context.Context, symbol model.Symbol, timeframe model.Timeframe) ([]model.PricePoint, error) {
	return h.points, nil
}

func newTestApp(t *testing.T, options ...service.LiveFeedOption) (*iris.Application, *service.ServiceLiveFeed) {
	t.Helper()
	liveFeed := service.NewServiceLiveFeed(context.Background(), &staticFetcher{}, options...)
	t.Cleanup(liveFeed.Stop)

	app := iris.New()
	ApiRoutes(app, liveFeed)
	require.NoError(t, app.Build())
	return app, liveFeed
}

func perform(t *testing.T, app *iris.Application, method, target, body string) map[string]interface{} {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	request := httptest.NewRequest(method, target, reader)
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	app.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusOK, recorder.Code)

	envelope := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope
}

func TestHealthAndRootRoutes(t *testing.T) {
	app, _ := newTestApp(t)

	for _, target := range []string{"/", "/health/live"} {
		envelope := perform(t, app, http.MethodGet, target, "")
		assert.Equal(t, "200", envelope["code"])
		assert.Equal(t, "welcome to quotefeed", envelope["error"])
	}
}

func TestQuoteLatestRoute(t *testing.T) {
	app, liveFeed := newTestApp(t)
	require.NoError(t, liveFeed.Preload(context.Background(), []string{"BTCUSDT"}))

	envelope := perform(t, app, http.MethodGet, "/v1/quote/latest?symbol=BTCUSDT", "")
	require.Equal(t, "0", envelope["code"])
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, "bitcoin", data["symbol"])
	assert.Equal(t, 1.0, data["value"])

	envelope = perform(t, app, http.MethodGet, "/v1/quote/latest", "")
	assert.Equal(t, "10401", envelope["code"])

	envelope = perform(t, app, http.MethodGet, "/v1/quote/latest?symbol=neverpolled", "")
	assert.Equal(t, "10404", envelope["code"])
}

func TestQuoteResolveRoute(t *testing.T) {
	app, _ := newTestApp(t)

	envelope := perform(t, app, http.MethodGet, "/v1/quote/resolve?symbol=ETHUSDT", "")
	require.Equal(t, "0", envelope["code"])
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, "ETHUSDT", data["raw"])
	assert.Equal(t, "ethereum", data["canonical"])
}

func TestSymbolsListRoute(t *testing.T) {
	app, _ := newTestApp(t)

	envelope := perform(t, app, http.MethodGet, "/v1/symbols/list", "")
	require.Equal(t, "0", envelope["code"])
	rows := envelope["data"].([]interface{})
	require.NotEmpty(t, rows)

	found := false
	for _, row := range rows {
		entry := row.(map[string]interface{})
		if entry["ticker"] == "BTCUSDT" {
			assert.Equal(t, "bitcoin", entry["canonical"])
			found = true
		}
	}
	assert.True(t, found, "BTCUSDT should be a known ticker")
}

func TestHistoryRoutes(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	points := []model.PricePoint{
		{Time: base, Value: 61000},
		{Time: base.Add(time.Hour), Value: 62000},
	}
	app, liveFeed := newTestApp(t, service.WithLiveFeedHistorySource(&staticHistory{points: points}))

	require.NoError(t, liveFeed.Preload(context.Background(), []string{"BTCUSDT"}))
	require.NoError(t, liveFeed.Preload(context.Background(), []string{"BTCUSDT"}))

	envelope := perform(t, app, http.MethodGet, "/v1/history/rolling?symbol=BTCUSDT", "")
	require.Equal(t, "0", envelope["code"])
	rows := envelope["data"].([]interface{})
	require.Len(t, rows, 2)
	first := rows[0].(map[string]interface{})
	second := rows[1].(map[string]interface{})
	assert.Less(t, first["value"].(float64), second["value"].(float64))

	envelope = perform(t, app, http.MethodGet, "/v1/history/series?symbol=BTCUSDT&timeframe=7d", "")
	require.Equal(t, "0", envelope["code"])
	rows = envelope["data"].([]interface{})
	assert.Len(t, rows, 2)

	envelope = perform(t, app, http.MethodGet, "/v1/history/series?symbol=BTCUSDT&timeframe=fortnight", "")
	assert.Equal(t, "10401", envelope["code"])

	envelope = perform(t, app, http.MethodGet, "/v1/history/rolling", "")
	assert.Equal(t, "10401", envelope["code"])
}

func TestSubscriptionRoutesLifecycle(t *testing.T) {
	app, _ := newTestApp(t)

	envelope := perform(t, app, http.MethodPost, "/v1/subscription/create",
		`{"symbols":["BTCUSDT","ETHUSDT"],"interval":"2s"}`)
	require.Equal(t, "0", envelope["code"])
	created := envelope["data"].(map[string]interface{})
	id := created["id"].(string)
	require.NotEmpty(t, id)
	assert.ElementsMatch(t, []interface{}{"bitcoin", "ethereum"}, created["symbols"].([]interface{}))
	assert.Equal(t, "2s", created["interval"])

	envelope = perform(t, app, http.MethodGet, "/v1/subscription/feeds", "")
	require.Equal(t, "0", envelope["code"])
	assert.Len(t, envelope["data"].([]interface{}), 1)

	envelope = perform(t, app, http.MethodPost, "/v1/subscription/update",
		`{"id":"`+id+`","symbols":["BTCUSDT"],"interval":"3s"}`)
	require.Equal(t, "0", envelope["code"])
	updated := envelope["data"].(map[string]interface{})
	assert.NotEqual(t, id, updated["id"])
	assert.Equal(t, "3s", updated["interval"])

	envelope = perform(t, app, http.MethodGet,
		"/v1/subscription/cancel?id="+updated["id"].(string), "")
	assert.Equal(t, "0", envelope["code"])

	// Unknown IDs cancel without complaint.
	envelope = perform(t, app, http.MethodGet, "/v1/subscription/cancel?id=ghost", "")
	assert.Equal(t, "0", envelope["code"])
}

func TestSubscriptionRoutesRejectBadInput(t *testing.T) {
	app, _ := newTestApp(t)

	envelope := perform(t, app, http.MethodPost, "/v1/subscription/create",
		`{"symbols":[],"interval":"2s"}`)
	assert.Equal(t, "10401", envelope["code"])

	envelope = perform(t, app, http.MethodPost, "/v1/subscription/create",
		`{"symbols":["BTCUSDT"],"interval":"nonsense"}`)
	assert.Equal(t, "10401", envelope["code"])

	envelope = perform(t, app, http.MethodPost, "/v1/subscription/create",
		`{"symbols":["BTCUSDT"],"interval":"200ms"}`)
	assert.Equal(t, "100", envelope["code"])

	envelope = perform(t, app, http.MethodGet, "/v1/subscription/cancel", "")
	assert.Equal(t, "10401", envelope["code"])
}
