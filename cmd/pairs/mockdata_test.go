package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/discovery"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/market"
)

func TestWriteMockPrices(t *testing.T) {
	var buf bytes.Buffer
	opts := mockOptions{
		Start:   time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), // Saturday
		Days:    300,
		Tickers: []string{"GLD", "SLV", "XOM"},
		Seed:    7,
	}
	require.NoError(t, writeMockPrices(&buf, opts))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 301)
	assert.Equal(t, "date,GLD,SLV,XOM", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-08,"), "first row should roll to Monday")

	panel, err := market.LoadPanelCSV(strings.NewReader(buf.String()), market.CleanOptions{MaxMissingRatio: 0.2})
	require.NoError(t, err)
	assert.Equal(t, 300, panel.Len())
	for _, d := range panel.Index() {
		assert.NotEqual(t, time.Saturday, d.Weekday())
		assert.NotEqual(t, time.Sunday, d.Weekday())
	}

	cfg := discovery.DefaultConfig()
	cfg.Workers = 2
	screener, err := discovery.NewScreener(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	candidates, err := screener.Screen(context.Background(), panel, nil)
	require.NoError(t, err)

	found := false
	for _, c := range candidates {
		if c.Name() == "GLD/SLV" {
			found = true
		}
	}
	assert.True(t, found, "generated pair should be cointegrated")
}

func TestWriteMockPrices_Reproducible(t *testing.T) {
	opts := mockOptions{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Days: 20, Tickers: []string{"A", "B"}, Seed: 1}
	var a, b bytes.Buffer
	require.NoError(t, writeMockPrices(&a, opts))
	require.NoError(t, writeMockPrices(&b, opts))
	assert.Equal(t, a.String(), b.String())
}

func TestWriteMockPrices_MissingCells(t *testing.T) {
	var buf bytes.Buffer
	opts := mockOptions{
		Start:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:        200,
		Tickers:     []string{"A", "B"},
		Seed:        3,
		MissingRate: 0.05,
	}
	require.NoError(t, writeMockPrices(&buf, opts))
	assert.Contains(t, buf.String(), ",,")

	panel, err := market.LoadPanelCSV(strings.NewReader(buf.String()), market.CleanOptions{MaxMissingRatio: 0.2})
	require.NoError(t, err)
	assert.Less(t, panel.Len(), 200)
}

func TestWriteMockPrices_Invalid(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		opts mockOptions
	}{
		{"no days", mockOptions{Start: start, Tickers: []string{"A"}}},
		{"no tickers", mockOptions{Start: start, Days: 10}},
		{"bad missing rate", mockOptions{Start: start, Days: 10, Tickers: []string{"A"}, MissingRate: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, writeMockPrices(&bytes.Buffer{}, tt.opts))
		})
	}
}

func TestSplitTickers(t *testing.T) {
	assert.Equal(t, []string{"GLD", "SLV"}, splitTickers(" GLD, ,SLV,"))
	assert.Nil(t, splitTickers(""))
}

func TestMockDataCmd_WritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "prices.csv")
	cmd := newMockDataCmd()
	cmd.SetArgs([]string{"--output", out, "--days", "50", "--tickers", "KO,PEP", "--seed", "5"})
	require.NoError(t, cmd.Execute())

	panel, err := market.LoadPanelFile(out, market.CleanOptions{MaxMissingRatio: 0.2})
	require.NoError(t, err)
	assert.Equal(t, 50, panel.Len())
	assert.ElementsMatch(t, []string{"KO", "PEP"}, panel.Tickers())
}

func TestMockDataCmd_BadStartDate(t *testing.T) {
	cmd := newMockDataCmd()
	cmd.SetArgs([]string{"--output", filepath.Join(t.TempDir(), "p.csv"), "--start-date", "2024/01/01"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	assert.Error(t, cmd.Execute())
}
