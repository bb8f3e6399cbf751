package provider

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/samber/lo"

	"quotefeed/model"
)

var ErrNoSeries = errors.New("no series for symbol")

// SymbolFile binds one ticker to a CSV file holding its series.
type SymbolFile struct {
	Symbol string
	File   string
}

// CSVSource serves historical series from local files in the format the
// downloader writes: an optional time,value header, then one point per row
// with an RFC3339 or unix-second timestamp. Useful offline and in tests.
type CSVSource struct {
	series map[string][]model.PricePoint
}

func NewCSVSource(files ...SymbolFile) (*CSVSource, error) {
	source := &CSVSource{
		series: make(map[string][]model.PricePoint),
	}

	for _, symbolFile := range files {
		csvFile, err := os.Open(symbolFile.File)
		if err != nil {
			return nil, err
		}
		csvLines, err := csv.NewReader(csvFile).ReadAll()
		_ = csvFile.Close()
		if err != nil {
			return nil, err
		}

		headerMap, hasHeaders := parseHeaders(csvLines)
		if hasHeaders {
			csvLines = csvLines[1:]
		}

		points := make([]model.PricePoint, 0, len(csvLines))
		for _, line := range csvLines {
			pointTime, err := parsePointTime(line[headerMap["time"]])
			if err != nil {
				return nil, err
			}
			value, err := strconv.ParseFloat(line[headerMap["value"]], 64)
			if err != nil {
				return nil, err
			}
			points = append(points, model.PricePoint{Time: pointTime, Value: value})
		}
		source.series[ResolveSymbol(symbolFile.Symbol).Canonical] = points
	}

	return source, nil
}

// parseHeaders maps each column label onto its index. Files with a numeric
// or timestamp first cell carry no header row and use the default layout.
func parseHeaders(csvLines [][]string) (map[string]int, bool) {
	headerMap := map[string]int{"time": 0, "value": 1}
	if len(csvLines) == 0 {
		return headerMap, false
	}
	if _, err := parsePointTime(csvLines[0][0]); err == nil {
		return headerMap, false
	}
	for index, header := range csvLines[0] {
		headerMap[header] = index
	}
	return headerMap, true
}

func parsePointTime(cell string) (time.Time, error) {
	if unix, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, cell)
}

// Series returns the stored points inside the timeframe window, measured
// back from the newest point in the file.
func (c *CSVSource) Series(_ context.Context, symbol model.Symbol, timeframe model.Timeframe) ([]model.PricePoint, error) {
	points, ok := c.series[symbol.Canonical]
	if !ok || len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSeries, symbol.Canonical)
	}
	start := points[len(points)-1].Time.Add(-time.Duration(timeframe.Days()) * 24 * time.Hour)
	return lo.Filter(points, func(point model.PricePoint, _ int) bool {
		return point.Time.After(start)
	}), nil
}
