// Package feed loads chart series from files.
package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/samber/lo"
	"github.com/xhit/go-str2duration/v2"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	defaultHeaderMap    = map[string]int{
		"time": 0, "open": 1, "close": 2, "low": 3, "high": 4, "volume": 5,
	}
	timeLayouts = []string{time.RFC3339, time.DateTime, time.DateOnly}
)

type options struct {
	id         string
	limit      string
	timeframe  string
	resampleTo string
}

type Option func(*options)

// WithID names the series; the file name is used by default.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithLimit keeps only the bars within duration of the last one, e.g. "30d".
func WithLimit(duration string) Option {
	return func(o *options) {
		o.limit = duration
	}
}

// WithResample aggregates bars of timeframe into bars of target, e.g. "1h"
// into "1d". Incomplete trailing periods are dropped.
func WithResample(timeframe, target string) Option {
	return func(o *options) {
		o.timeframe = timeframe
		o.resampleTo = target
	}
}

// LoadCSV reads a series from a CSV file.
func LoadCSV(path string, opts ...Option) (*core.Series, error) {
	csvFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer csvFile.Close()

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ReadCSV(csvFile, append([]Option{WithID(id)}, opts...)...)
}

// ReadCSV reads a series in the layout
//
//	time,open,close,low,high,volume[,metadata...]
//
// The header row is optional; without one the default column order is used
// and there is no metadata. Time is unix seconds or an RFC 3339, date-time
// or date string.
func ReadCSV(r io.Reader, opts ...Option) (*core.Series, error) {
	o := options{id: "csv"}
	for _, opt := range opts {
		opt(&o)
	}

	csvLines, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(csvLines) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInsufficientData)
	}

	headerMap, additionalHeaders, hasCustomHeaders := parseHeaders(csvLines[0])
	if hasCustomHeaders {
		csvLines = csvLines[1:]
	} else if len(csvLines[0]) < len(defaultHeaderMap) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(defaultHeaderMap), len(csvLines[0]))
	}
	for _, column := range []string{"time", "open", "close", "low", "high", "volume"} {
		if _, ok := headerMap[column]; !ok {
			return nil, fmt.Errorf("missing column %q", column)
		}
	}

	bars := make([]core.Bar, 0, len(csvLines))
	for i, line := range csvLines {
		bar, err := parseBarFromLine(line, headerMap, additionalHeaders)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		bars = append(bars, bar)
	}

	if o.resampleTo != "" && o.resampleTo != o.timeframe {
		if bars, err = resample(bars, o.timeframe, o.resampleTo); err != nil {
			return nil, err
		}
	}

	if o.limit != "" {
		if bars, err = limit(bars, o.limit); err != nil {
			return nil, err
		}
	}

	return core.NewSeries(o.id, bars)
}

// parseHeaders reports the column index of every header, the non OHLCV
// headers, and whether the first row was a header at all.
func parseHeaders(headers []string) (headerMap map[string]int, additional []string, hasCustomHeaders bool) {
	if _, err := parseTime(headers[0]); err == nil {
		return defaultHeaderMap, nil, false
	}

	headerMap = make(map[string]int)
	for index, header := range headers {
		header = strings.ToLower(strings.TrimSpace(header))
		headerMap[header] = index

		if _, exists := defaultHeaderMap[header]; !exists {
			additional = append(additional, header)
		}
	}

	return headerMap, additional, true
}

func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if timestamp, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(timestamp, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", value)
}

func parseBarFromLine(line []string, headerMap map[string]int, additionalHeaders []string) (core.Bar, error) {
	timestamp, err := parseTime(line[headerMap["time"]])
	if err != nil {
		return core.Bar{}, err
	}

	bar := core.Bar{Time: timestamp}
	fields := []struct {
		name string
		dst  *float64
	}{
		{"open", &bar.Open},
		{"close", &bar.Close},
		{"low", &bar.Low},
		{"high", &bar.High},
		{"volume", &bar.Volume},
	}
	for _, field := range fields {
		if *field.dst, err = strconv.ParseFloat(strings.TrimSpace(line[headerMap[field.name]]), 64); err != nil {
			return core.Bar{}, fmt.Errorf("%s: %w", field.name, err)
		}
	}

	if len(additionalHeaders) > 0 {
		bar.Metadata = make(map[string]float64, len(additionalHeaders))
		for _, header := range additionalHeaders {
			raw := strings.TrimSpace(line[headerMap[header]])
			if raw == "" {
				bar.Metadata[header] = math.NaN()
				continue
			}
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return core.Bar{}, fmt.Errorf("%s: %w", header, err)
			}
			bar.Metadata[header] = value
		}
	}

	return bar, nil
}

func limit(bars []core.Bar, duration string) ([]core.Bar, error) {
	d, err := str2duration.ParseDuration(duration)
	if err != nil {
		return nil, fmt.Errorf("invalid limit: %w", err)
	}
	if len(bars) == 0 {
		return bars, nil
	}

	start := bars[len(bars)-1].Time.Add(-d)
	return lo.Filter(bars, func(bar core.Bar, _ int) bool {
		return bar.Time.After(start)
	}), nil
}
