package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quotefeed/internal/requestClient"
	"quotefeed/model"
)

const DefaultAggregatorURL = "https://api.coingecko.com/api/v3"

// Aggregator is the tertiary source, a CoinGecko style market data API.
// It lags the exchanges by a minute or two but knows nearly every canonical
// ID, so it backstops the whole chain.
type Aggregator struct {
	baseURL string
	vs      string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	now     func() time.Time
}

type AggregatorOption func(*Aggregator)

// WithAggregatorVsCurrency sets the fiat side of every quote. Defaults to usd.
func WithAggregatorVsCurrency(vs string) AggregatorOption {
	return func(a *Aggregator) {
		a.vs = strings.ToLower(vs)
	}
}

func WithAggregatorAPIKey(apiKey string) AggregatorOption {
	return func(a *Aggregator) {
		a.apiKey = apiKey
	}
}

// WithAggregatorTimeout overrides the per-call deadline. Defaults to 15s.
func WithAggregatorTimeout(timeout time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		a.timeout = timeout
	}
}

func WithAggregatorClient(client *http.Client) AggregatorOption {
	return func(a *Aggregator) {
		a.client = client
	}
}

func NewAggregator(baseURL string, options ...AggregatorOption) *Aggregator {
	if baseURL == "" {
		baseURL = DefaultAggregatorURL
	}
	provider := &Aggregator{
		baseURL: strings.TrimRight(baseURL, "/"),
		vs:      "usd",
		timeout: 15 * time.Second,
		client:  requestClient.New(),
		now:     time.Now,
	}
	for _, option := range options {
		option(provider)
	}
	return provider
}

func (a *Aggregator) Name() string {
	return "aggregator"
}

// FetchPrices asks for every canonical ID in one simple/price call. IDs the
// aggregator does not track simply fall out of the snapshot.
func (a *Aggregator) FetchPrices(ctx context.Context, symbols []model.Symbol) (model.PriceSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ids := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		ids = append(ids, symbol.Canonical)
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		a.baseURL, url.QueryEscape(strings.Join(ids, ",")), a.vs)

	quotes := make(map[string]map[string]float64)
	if ferr := a.get(ctx, endpoint, &quotes); ferr != nil {
		return nil, ferr
	}

	snapshot := make(model.PriceSnapshot, len(quotes))
	now := a.now()
	for id, quote := range quotes {
		value, ok := quote[a.vs]
		if !ok {
			continue
		}
		snapshot[id] = model.PricePoint{Time: now, Value: value}
	}
	return snapshot, nil
}

// Series loads the market_chart price history for one symbol. Points come
// back in millisecond timestamp order.
func (a *Aggregator) Series(ctx context.Context, symbol model.Symbol, timeframe model.Timeframe) ([]model.PricePoint, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=%s&days=%d",
		a.baseURL, url.PathEscape(symbol.Canonical), a.vs, timeframe.Days())

	var chart struct {
		Prices [][]float64 `json:"prices"`
	}
	if ferr := a.get(ctx, endpoint, &chart); ferr != nil {
		return nil, ferr
	}

	points := make([]model.PricePoint, 0, len(chart.Prices))
	for _, pair := range chart.Prices {
		if len(pair) < 2 {
			continue
		}
		points = append(points, model.PricePoint{
			Time:  time.UnixMilli(int64(pair[0])),
			Value: pair[1],
		})
	}
	return points, nil
}

// Market is one row of the aggregator's market-cap ranking.
type Market struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	CurrentPrice float64 `json:"current_price"`
}

// Markets reads one page of the coins/markets ranking, descending by cap.
func (a *Aggregator) Markets(ctx context.Context, page int, perPage int) ([]Market, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/coins/markets?vs_currency=%s&order=market_cap_desc&per_page=%d&page=%d",
		a.baseURL, a.vs, perPage, page)

	var markets []Market
	if ferr := a.get(ctx, endpoint, &markets); ferr != nil {
		return nil, ferr
	}
	return markets, nil
}

func (a *Aggregator) get(ctx context.Context, endpoint string, target interface{}) *FetchError {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &FetchError{Provider: a.Name(), Kind: KindMalformed, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return classify(a.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(a.Name(), resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &FetchError{Provider: a.Name(), Kind: KindMalformed, Err: err}
	}
	return nil
}
