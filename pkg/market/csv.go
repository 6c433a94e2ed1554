package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
)

// DefaultMaxMissingRatio drops a ticker column with more than 20% missing history
const DefaultMaxMissingRatio = 0.2

// CleanOptions controls how a raw price table is turned into a Panel
type CleanOptions struct {
	MaxMissingRatio float64
}

// rawRow is one parsed CSV line; missing prices are NaN
type rawRow struct {
	date   time.Time
	prices []float64
}

// LoadPanelFile reads a wide CSV (date,T1,T2,...) from disk
func LoadPanelFile(path string, opts CleanOptions) (*Panel, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price file: %w", err)
	}
	defer file.Close()

	return LoadPanelCSV(file, opts)
}

// LoadPanelCSV parses a wide price table and applies the cleaning contract:
// drop ticker columns missing more than MaxMissingRatio of their rows, then
// drop rows that still have a missing value.
func LoadPanelCSV(r io.Reader, opts CleanOptions) (*Panel, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: expected a date column and at least one ticker, got %d columns",
			stats.ErrInvalidInput, len(header))
	}
	tickers := make([]string, len(header)-1)
	for i, h := range header[1:] {
		tickers[i] = strings.TrimSpace(h)
	}

	rows := make([]rawRow, 0, 1024)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", line, err)
		}

		row, err := parseRow(record, len(tickers))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].date.Before(rows[j].date)
	})
	for i := 1; i < len(rows); i++ {
		if rows[i].date.Equal(rows[i-1].date) {
			return nil, fmt.Errorf("%w: duplicate date %s", stats.ErrInvalidInput, rows[i].date.Format("2006-01-02"))
		}
	}

	return cleanPanel(rows, tickers, opts)
}

func cleanPanel(rows []rawRow, tickers []string, opts CleanOptions) (*Panel, error) {
	maxMissing := opts.MaxMissingRatio
	if maxMissing <= 0 {
		maxMissing = DefaultMaxMissingRatio
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: price table has no rows", stats.ErrInsufficientData)
	}

	keep := make([]int, 0, len(tickers))
	for c, ticker := range tickers {
		missing := 0
		for _, row := range rows {
			if math.IsNaN(row.prices[c]) {
				missing++
			}
		}
		ratio := float64(missing) / float64(len(rows))
		if ratio > maxMissing {
			log.Warn().Str("component", "market").Str("ticker", ticker).
				Float64("missing_ratio", ratio).Msg("dropping ticker with too much missing history")
			continue
		}
		keep = append(keep, c)
	}

	index := make([]time.Time, 0, len(rows))
	columns := make(map[string][]float64, len(keep))
	kept := make([]string, 0, len(keep))
	for _, c := range keep {
		kept = append(kept, tickers[c])
		columns[tickers[c]] = make([]float64, 0, len(rows))
	}

	dropped := 0
	for _, row := range rows {
		complete := true
		for _, c := range keep {
			if math.IsNaN(row.prices[c]) {
				complete = false
				break
			}
		}
		if !complete {
			dropped++
			continue
		}
		index = append(index, row.date)
		for _, c := range keep {
			columns[tickers[c]] = append(columns[tickers[c]], row.prices[c])
		}
	}

	if len(index) == 0 || len(kept) == 0 {
		return nil, fmt.Errorf("%w: no data left after cleaning", stats.ErrInsufficientData)
	}

	log.Debug().Str("component", "market").Int("rows", len(index)).Int("dropped_rows", dropped).
		Int("tickers", len(kept)).Msg("price panel loaded")

	return NewPanel(index, kept, columns)
}

func parseRow(record []string, ntickers int) (rawRow, error) {
	if len(record) != ntickers+1 {
		return rawRow{}, fmt.Errorf("%w: expected %d fields, got %d", stats.ErrInvalidInput, ntickers+1, len(record))
	}

	date, err := parseDate(strings.TrimSpace(record[0]))
	if err != nil {
		return rawRow{}, err
	}

	prices := make([]float64, ntickers)
	for i, field := range record[1:] {
		prices[i] = parsePrice(field)
	}
	return rawRow{date: date, prices: prices}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", stats.ErrInvalidInput, s)
}

// parsePrice maps empty or unparseable cells to NaN (missing)
func parsePrice(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}
