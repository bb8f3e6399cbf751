package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"
	str2duration "github.com/xhit/go-str2duration/v2"

	"quotefeed/internal/redisClient"
	"quotefeed/model"
	"quotefeed/notification"
	"quotefeed/provider"
	"quotefeed/reference"
	"quotefeed/serv"
	"quotefeed/service"
	"quotefeed/utils"
	"quotefeed/utils/config"
)

func main() {
	var (
		ctx              = context.Background()
		feedSymbols      = viper.GetStringSlice("feed.symbols")
		feedInterval     = viper.GetString("feed.interval")
		bufferSize       = viper.GetInt("feed.bufferSize")
		gracePeriod      = viper.GetString("feed.gracePeriod")
		backoffCeiling   = viper.GetString("feed.backoffCeiling")
		cacheTTL         = viper.GetString("providers.cacheTTL")
		binanceStatus    = viper.GetBool("providers.binance.status")
		binanceQuote     = viper.GetString("providers.binance.quote")
		binanceTestnet   = viper.GetBool("providers.binance.testnet")
		exchangeStatus   = viper.GetBool("providers.exchange.status")
		exchangeName     = viper.GetString("providers.exchange.name")
		exchangeUrl      = viper.GetString("providers.exchange.url")
		exchangeQuote    = viper.GetString("providers.exchange.quote")
		aggregatorUrl    = viper.GetString("providers.aggregator.url")
		aggregatorVs     = viper.GetString("providers.aggregator.vsCurrency")
		aggregatorApiKey = viper.GetString("providers.aggregator.apiKey")
		proxyStatus      = viper.GetBool("proxy.status")
		proxyUrl         = viper.GetString("proxy.url")
		telegramStatus   = viper.GetBool("telegram.status")
		telegramToken    = viper.GetString("telegram.token")
		telegramUser     = viper.GetInt("telegram.user")
		redisStatus      = viper.GetBool("redis.status")
		redisPrefix      = viper.GetString("redis.prefix")
		alertsSetting    = viper.GetStringMap("alerts")
		historyFiles     = viper.GetStringMapString("history.files")
		warmupSetting    = viper.GetString("feed.warmup")
	)

	interval, err := str2duration.ParseDuration(feedInterval)
	if err != nil {
		utils.Log.Fatalf("[SETUP] invalid feed.interval %q: %s", feedInterval, err.Error())
	}

	// Provider chain, fastest and most direct source first.
	providers := []reference.Provider{}
	var binance *provider.Binance
	if binanceStatus {
		binanceOptions := []provider.BinanceOption{}
		if binanceQuote != "" {
			binanceOptions = append(binanceOptions, provider.WithBinanceQuote(binanceQuote))
		}
		if binanceTestnet {
			binanceOptions = append(binanceOptions, provider.WithBinanceTestnet())
		}
		if proxyStatus {
			binanceOptions = append(binanceOptions, provider.WithBinanceProxy(proxyUrl))
		}
		binance, err = provider.NewBinance(ctx, binanceOptions...)
		if err != nil {
			utils.Log.Warnf("[SETUP] binance unavailable, continuing without it: %s", err.Error())
		} else {
			providers = append(providers, binance)
		}
	}
	if exchangeStatus {
		exchangeOptions := []provider.ExchangeRESTOption{}
		if exchangeQuote != "" {
			exchangeOptions = append(exchangeOptions, provider.WithExchangeRESTQuote(exchangeQuote))
		}
		providers = append(providers, provider.NewExchangeREST(exchangeName, exchangeUrl, exchangeOptions...))
	}
	aggregatorOptions := []provider.AggregatorOption{}
	if aggregatorVs != "" {
		aggregatorOptions = append(aggregatorOptions, provider.WithAggregatorVsCurrency(aggregatorVs))
	}
	if aggregatorApiKey != "" {
		aggregatorOptions = append(aggregatorOptions, provider.WithAggregatorAPIKey(aggregatorApiKey))
	}
	if aggregatorUrl == "" {
		aggregatorUrl = provider.DefaultAggregatorURL
	}
	aggregator := provider.NewAggregator(aggregatorUrl, aggregatorOptions...)
	providers = append(providers, aggregator)

	var fetcher reference.Provider = provider.NewFallback(providers...)
	if cacheTTL != "" {
		ttl, err := str2duration.ParseDuration(cacheTTL)
		if err != nil {
			utils.Log.Fatalf("[SETUP] invalid providers.cacheTTL %q: %s", cacheTTL, err.Error())
		}
		cached, err := provider.NewCached(fetcher, ttl)
		if err != nil {
			utils.Log.Fatalf("[SETUP] price cache init failed: %s", err.Error())
		}
		defer cached.Close()
		fetcher = cached
	}

	serviceOptions := []service.LiveFeedOption{
		service.WithLiveFeedHistorySource(aggregator),
	}
	if binance != nil {
		serviceOptions = append(serviceOptions, service.WithLiveFeedHistorySource(binance))
	}
	if len(historyFiles) > 0 {
		symbolFiles := []provider.SymbolFile{}
		for symbol, file := range historyFiles {
			symbolFiles = append(symbolFiles, provider.SymbolFile{Symbol: symbol, File: file})
		}
		csvSource, err := provider.NewCSVSource(symbolFiles...)
		if err != nil {
			utils.Log.Fatalf("[SETUP] history files init failed: %s", err.Error())
		}
		serviceOptions = append(serviceOptions, service.WithLiveFeedHistorySource(csvSource))
	}
	if bufferSize > 0 {
		serviceOptions = append(serviceOptions, service.WithLiveFeedBufferSize(bufferSize))
	}
	if gracePeriod != "" {
		grace, err := str2duration.ParseDuration(gracePeriod)
		if err != nil {
			utils.Log.Fatalf("[SETUP] invalid feed.gracePeriod %q: %s", gracePeriod, err.Error())
		}
		serviceOptions = append(serviceOptions, service.WithLiveFeedGracePeriod(grace))
	}
	if backoffCeiling != "" {
		ceiling, err := str2duration.ParseDuration(backoffCeiling)
		if err != nil {
			utils.Log.Fatalf("[SETUP] invalid feed.backoffCeiling %q: %s", backoffCeiling, err.Error())
		}
		serviceOptions = append(serviceOptions, service.WithLiveFeedBackoffCeiling(ceiling))
	}
	if redisStatus {
		serviceOptions = append(serviceOptions, service.WithLiveFeedNotifier(
			notification.NewRedisPublisher(redisClient.New(), redisPrefix),
		))
	}

	liveFeed := service.NewServiceLiveFeed(ctx, fetcher, serviceOptions...)

	if telegramStatus {
		alerts := map[string]notification.AlertRule{}
		for symbol, val := range alertsSetting {
			valMap, ok := val.(map[string]interface{})
			if !ok {
				log.Fatalf("invalid alert format for symbol %s: %v", symbol, val)
			}
			rule := notification.AlertRule{}
			if above, ok := valMap["above"].(float64); ok {
				rule.Above = above
			}
			if below, ok := valMap["below"].(float64); ok {
				rule.Below = below
			}
			alerts[symbol] = rule
		}
		var telegram reference.Telegram
		telegram, err = notification.NewTelegram(liveFeed, telegramToken, telegramUser,
			notification.WithTelegramAlerts(alerts))
		if err != nil {
			utils.Log.Fatalf("[SETUP] telegram init failed: %s", err.Error())
		}
		liveFeed.SetNotifier(telegram)
		go telegram.Start()
	}

	if warmupSetting != "" {
		timeframe, err := model.ParseTimeframe(warmupSetting)
		if err != nil {
			utils.Log.Fatalf("[SETUP] invalid feed.warmup %q: %s", warmupSetting, err.Error())
		}
		if err := liveFeed.PreloadHistory(ctx, feedSymbols, timeframe); err != nil {
			utils.Log.Warnf("[SETUP] history warmup failed: %s", err.Error())
		}
	}
	if err := liveFeed.Preload(ctx, feedSymbols); err != nil {
		utils.Log.Warnf("[SETUP] preload failed: %s", err.Error())
	}
	subscription, err := liveFeed.Subscribe(feedSymbols, interval)
	if err != nil {
		utils.Log.Fatalf("[SETUP] subscribe failed: %s", err.Error())
	}
	utils.Log.Infof("[SETUP] feed %s running every %s", subscription.ID, interval)

	// Drain the daemon subscription; readers go through the HTTP surface,
	// redis and telegram.
	go func() {
		for range subscription.Data {
		}
	}()

	if viper.GetString("listen.http") != "" {
		go serv.StartHttpServer(liveFeed)
	}

	config.Watch(func() {
		utils.Log.Infof("[SETUP] configuration reloaded")
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Log.Infof("[SETUP] shutting down")
	liveFeed.Summary()
	liveFeed.Stop()
}
