package provider

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"quotefeed/model"
	"quotefeed/utils"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

var ErrRateLimitExceeded int64 = -1003

// Binance is the primary price source. It reads spot tickers straight from
// the exchange, which makes it the freshest stage of the chain and also the
// first one to throttle under load.
type Binance struct {
	ctx     context.Context
	client  *binance.Client
	quote   string
	timeout time.Duration
	now     func() time.Time

	Testnet   bool
	DebugMode bool
	BaseURL   string

	APIKey    string
	APISecret string

	ProxyOption ProxyOption
}

type ProxyOption struct {
	Status bool
	Url    string
}

type BinanceOption func(*Binance)

func WithBinanceTestnet() BinanceOption {
	return func(b *Binance) {
		b.Testnet = true
	}
}

func WithBinanceDebugMode() BinanceOption {
	return func(b *Binance) {
		b.DebugMode = true
	}
}

// WithBinanceCredentials will set the credentials for Binance spot
func WithBinanceCredentials(key, secret string) BinanceOption {
	return func(b *Binance) {
		b.APIKey = key
		b.APISecret = secret
	}
}

func WithBinanceProxy(proxyUrl string) BinanceOption {
	return func(b *Binance) {
		b.ProxyOption = ProxyOption{
			Status: true,
			Url:    proxyUrl,
		}
	}
}

// WithBinanceBaseURL points the client at a different endpoint, e.g. a
// regional mirror.
func WithBinanceBaseURL(url string) BinanceOption {
	return func(b *Binance) {
		b.BaseURL = url
	}
}

// WithBinanceQuote sets the quote currency used to build trading pairs.
// Defaults to USDT.
func WithBinanceQuote(quote string) BinanceOption {
	return func(b *Binance) {
		b.quote = quote
	}
}

// WithBinanceTimeout overrides the per-call deadline. Defaults to 15s.
func WithBinanceTimeout(timeout time.Duration) BinanceOption {
	return func(b *Binance) {
		b.timeout = timeout
	}
}

// NewBinance will create a new Binance instance and verify connectivity.
func NewBinance(ctx context.Context, options ...BinanceOption) (*Binance, error) {
	provider := &Binance{
		ctx:     ctx,
		quote:   "USDT",
		timeout: 15 * time.Second,
		now:     time.Now,
	}
	for _, option := range options {
		option(provider)
	}

	binance.UseTestnet = provider.Testnet

	if provider.ProxyOption.Status {
		provider.client = binance.NewProxiedClient(provider.APIKey, provider.APISecret, provider.ProxyOption.Url)
	} else {
		provider.client = binance.NewClient(provider.APIKey, provider.APISecret)
	}

	provider.client.Debug = provider.DebugMode
	if provider.BaseURL != "" {
		provider.client.BaseURL = provider.BaseURL
	}

	err := provider.client.NewPingService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance ping fail: %w", err)
	}

	return provider, nil
}

func (b *Binance) Name() string {
	return "binance"
}

// FetchPrices reads the ticker for every symbol in one batched call. Pairs
// the exchange does not list are skipped; unparsable prices are logged and
// skipped as well, never surfaced.
func (b *Binance) FetchPrices(ctx context.Context, symbols []model.Symbol) (model.PriceSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	pairs := make([]string, 0, len(symbols))
	canonicalByPair := make(map[string]string, len(symbols))
	for _, symbol := range symbols {
		pair := ExchangeTicker(symbol, b.quote)
		canonicalByPair[pair] = symbol.Canonical
		pairs = append(pairs, pair)
	}

	prices, err := b.client.NewListPricesService().Symbols(pairs).Do(ctx)
	if err != nil {
		return nil, b.classify(err)
	}

	snapshot := make(model.PriceSnapshot, len(prices))
	now := b.now()
	for _, price := range prices {
		canonical, ok := canonicalByPair[price.Symbol]
		if !ok {
			continue
		}
		value, err := strconv.ParseFloat(price.Price, 64)
		if err != nil {
			utils.Log.Warnf("[PROVIDER] binance returned a bad price for %s: %s", price.Symbol, price.Price)
			continue
		}
		snapshot[canonical] = model.PricePoint{Time: now, Value: value}
	}
	return snapshot, nil
}

// Series loads a closing-price history for one symbol from exchange klines.
func (b *Binance) Series(ctx context.Context, symbol model.Symbol, timeframe model.Timeframe) ([]model.PricePoint, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	interval, hours := klineInterval(timeframe)
	limit := timeframe.Days() * 24 / hours

	klines, err := b.client.NewKlinesService().
		Symbol(ExchangeTicker(symbol, b.quote)).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, b.classify(err)
	}

	points := make([]model.PricePoint, 0, len(klines))
	for _, kline := range klines {
		value, err := strconv.ParseFloat(kline.Close, 64)
		if err != nil {
			utils.Log.Warnf("[PROVIDER] binance returned a bad close for %s: %s", symbol.Canonical, kline.Close)
			continue
		}
		points = append(points, model.PricePoint{
			Time:  time.UnixMilli(kline.CloseTime),
			Value: value,
		})
	}
	return points, nil
}

// klineInterval picks a candle width that keeps the series around a few
// dozen points regardless of timeframe.
func klineInterval(timeframe model.Timeframe) (string, int) {
	switch timeframe {
	case model.TimeframeDay:
		return "1h", 1
	case model.TimeframeWeek:
		return "4h", 4
	case model.TimeframeMonth:
		return "12h", 12
	default:
		return "1d", 24
	}
}

// classify translates client errors. Structured API errors mean the exchange
// answered, so they are either throttling or a request the exchange rejects.
func (b *Binance) classify(err error) *FetchError {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == ErrRateLimitExceeded {
			return &FetchError{Provider: b.Name(), Kind: KindRateLimited, Err: err}
		}
		return &FetchError{Provider: b.Name(), Kind: KindMalformed, Err: err}
	}
	return classify(b.Name(), err)
}
