package main

import (
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"quotefeed/download"
	"quotefeed/model"
	"quotefeed/provider"
	"quotefeed/reference"
)

func main() {
	app := &cli.App{
		Name:     "quotefeed",
		HelpName: "quotefeed",
		Usage:    "Utilities for the price feed",
		Commands: []*cli.Command{
			{
				Name:     "download",
				HelpName: "download",
				Usage:    "Download historical price series to CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "symbol",
						Aliases:  []string{"s"},
						Usage:    "eg. BTCUSDT (empty downloads every known symbol)",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "timeframe",
						Aliases:  []string{"t"},
						Usage:    "eg. 7d (one of 1d, 7d, 30d, 90d, 365d)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "eg. ./btc.csv",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"x"},
						Usage:    "aggregator or binance",
						Value:    "aggregator",
						Required: false,
					},
				},
				Action: func(c *cli.Context) error {
					timeframe, err := model.ParseTimeframe(c.String("timeframe"))
					if err != nil {
						return err
					}

					var source reference.HistorySource
					if c.String("source") == "binance" {
						source, err = provider.NewBinance(c.Context)
						if err != nil {
							return err
						}
					} else {
						source = newAggregator()
					}

					options := []download.Option{download.WithTimeframe(timeframe)}
					symbol := c.String("symbol")
					if len(symbol) == 0 {
						for ticker := range provider.KnownSymbols() {
							output := fmt.Sprintf("./testdata/%s-%s.csv", ticker, timeframe)
							err := download.NewDownloader(source).Download(c.Context, ticker, output, options...)
							if err != nil {
								return err
							}
						}
						return nil
					}
					output := c.String("output")
					if len(output) == 0 {
						output = fmt.Sprintf("./testdata/%s-%s.csv", symbol, timeframe)
					}
					return download.NewDownloader(source).Download(c.Context, symbol, output, options...)
				},
			},
			{
				Name:     "symbols",
				HelpName: "symbols",
				Usage:    "List or refresh the ticker resolution table",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:     "update",
						Aliases:  []string{"u"},
						Usage:    "refresh symbols.json from the aggregator markets listing",
						Required: false,
					},
					&cli.IntFlag{
						Name:     "pages",
						Aliases:  []string{"p"},
						Usage:    "market pages to scan when updating (250 symbols each)",
						Value:    4,
						Required: false,
					},
				},
				Action: func(c *cli.Context) error {
					if c.Bool("update") {
						return provider.UpdateSymbolsFile(c.Context, newAggregator(), c.Int("pages"))
					}
					known := provider.KnownSymbols()
					tickers := make([]string, 0, len(known))
					for ticker := range known {
						tickers = append(tickers, ticker)
					}
					sort.Strings(tickers)

					table := tablewriter.NewWriter(os.Stdout)
					table.SetHeader([]string{"Ticker", "Canonical ID"})
					for _, ticker := range tickers {
						table.Append([]string{ticker, known[ticker]})
					}
					table.Render()
					return nil
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func newAggregator() *provider.Aggregator {
	url := viper.GetString("providers.aggregator.url")
	if url == "" {
		url = provider.DefaultAggregatorURL
	}
	options := []provider.AggregatorOption{}
	if vs := viper.GetString("providers.aggregator.vsCurrency"); vs != "" {
		options = append(options, provider.WithAggregatorVsCurrency(vs))
	}
	if apiKey := viper.GetString("providers.aggregator.apiKey"); apiKey != "" {
		options = append(options, provider.WithAggregatorAPIKey(apiKey))
	}
	return provider.NewAggregator(url, options...)
}
