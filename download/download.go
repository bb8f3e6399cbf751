package download

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"

	"quotefeed/model"
	"quotefeed/provider"
	"quotefeed/reference"
	"quotefeed/utils"
)

// Downloader exports historical price series to CSV files.
type Downloader struct {
	source reference.HistorySource
}

func NewDownloader(source reference.HistorySource) Downloader {
	return Downloader{source: source}
}

type Parameters struct {
	Timeframe model.Timeframe
}

type Option func(*Parameters)

func WithTimeframe(timeframe model.Timeframe) Option {
	return func(parameters *Parameters) {
		parameters.Timeframe = timeframe
	}
}

// Download fetches the series for one ticker and writes it to output as
// time,value rows, oldest first.
func (d Downloader) Download(ctx context.Context, rawSymbol, output string, options ...Option) error {
	parameters := &Parameters{Timeframe: model.TimeframeMonth}
	for _, option := range options {
		option(parameters)
	}

	symbol := provider.ResolveSymbol(rawSymbol)
	points, err := d.source.Series(ctx, symbol, parameters.Timeframe)
	if err != nil {
		return fmt.Errorf("download %s: %w", symbol.Canonical, err)
	}
	if len(points) == 0 {
		return fmt.Errorf("download %s: empty series", symbol.Canonical)
	}

	recordFile, err := os.Create(output)
	if err != nil {
		return err
	}
	defer func() {
		_ = recordFile.Close()
	}()

	writer := csv.NewWriter(recordFile)
	if err := writer.Write([]string{"time", "value"}); err != nil {
		return err
	}

	progressBar := progressbar.Default(int64(len(points)))
	for _, point := range points {
		err := writer.Write([]string{
			point.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(point.Value, 'f', -1, 64),
		})
		if err != nil {
			return err
		}
		if err := progressBar.Add(1); err != nil {
			utils.Log.Warnf("update progressbar fail: %v", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	utils.Log.Infof("[DOWNLOAD] wrote %d points for %s to %s", len(points), symbol.Canonical, output)
	return nil
}
