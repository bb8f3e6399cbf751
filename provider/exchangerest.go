package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quotefeed/internal/requestClient"
	"quotefeed/model"
)

// ExchangeREST is the secondary source: a generic exchange REST gateway.
// The endpoint is expected to answer
//
//	GET {base}/ticker?symbols=BTCUSD,ETHUSD
//
// with a flat JSON object mapping each pair to its last trade price.
type ExchangeREST struct {
	name    string
	baseURL string
	quote   string
	timeout time.Duration
	client  *http.Client
	now     func() time.Time
}

type ExchangeRESTOption func(*ExchangeREST)

// WithExchangeRESTQuote sets the quote currency used to build trading pairs.
// Defaults to USD.
func WithExchangeRESTQuote(quote string) ExchangeRESTOption {
	return func(e *ExchangeREST) {
		e.quote = quote
	}
}

// WithExchangeRESTTimeout overrides the per-call deadline. Defaults to 15s.
func WithExchangeRESTTimeout(timeout time.Duration) ExchangeRESTOption {
	return func(e *ExchangeREST) {
		e.timeout = timeout
	}
}

func WithExchangeRESTClient(client *http.Client) ExchangeRESTOption {
	return func(e *ExchangeREST) {
		e.client = client
	}
}

func NewExchangeREST(name string, baseURL string, options ...ExchangeRESTOption) *ExchangeREST {
	provider := &ExchangeREST{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		quote:   "USD",
		timeout: 15 * time.Second,
		client:  requestClient.New(),
		now:     time.Now,
	}
	for _, option := range options {
		option(provider)
	}
	return provider
}

func (e *ExchangeREST) Name() string {
	return e.name
}

// FetchPrices reads every pair in one batched call. Pairs missing from the
// response are skipped, never surfaced as errors.
func (e *ExchangeREST) FetchPrices(ctx context.Context, symbols []model.Symbol) (model.PriceSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	pairs := make([]string, 0, len(symbols))
	canonicalByPair := make(map[string]string, len(symbols))
	for _, symbol := range symbols {
		pair := ExchangeTicker(symbol, e.quote)
		canonicalByPair[pair] = symbol.Canonical
		pairs = append(pairs, pair)
	}

	endpoint, err := url.Parse(e.baseURL + "/ticker")
	if err != nil {
		return nil, &FetchError{Provider: e.name, Kind: KindMalformed, Err: err}
	}
	query := endpoint.Query()
	query.Set("symbols", strings.Join(pairs, ","))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &FetchError{Provider: e.name, Kind: KindMalformed, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, classify(e.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(e.name, resp.StatusCode)
	}

	var tickers map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&tickers); err != nil {
		return nil, &FetchError{Provider: e.name, Kind: KindMalformed, Err: err}
	}

	snapshot := make(model.PriceSnapshot, len(tickers))
	now := e.now()
	for pair, value := range tickers {
		canonical, ok := canonicalByPair[strings.ToUpper(pair)]
		if !ok {
			continue
		}
		snapshot[canonical] = model.PricePoint{Time: now, Value: value}
	}
	return snapshot, nil
}
