package market

import (
	"fmt"
	"math"
	"time"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
)

// Panel is a set of gap-free price columns over one common timestamp index
type Panel struct {
	index   []time.Time
	tickers []string
	columns map[string][]float64
}

// NewPanel builds a panel; tickers fixes the column order. Every column must
// have one finite value per index entry.
func NewPanel(index []time.Time, tickers []string, columns map[string][]float64) (*Panel, error) {
	for i := 1; i < len(index); i++ {
		if !index[i].After(index[i-1]) {
			return nil, fmt.Errorf("%w: panel index not strictly increasing at %d", stats.ErrInvalidInput, i)
		}
	}

	p := &Panel{
		index:   append([]time.Time(nil), index...),
		tickers: make([]string, 0, len(tickers)),
		columns: make(map[string][]float64, len(tickers)),
	}
	for _, t := range tickers {
		col, ok := columns[t]
		if !ok {
			return nil, fmt.Errorf("%w: panel has no column %q", stats.ErrInvalidInput, t)
		}
		if _, dup := p.columns[t]; dup {
			return nil, fmt.Errorf("%w: duplicate ticker %q", stats.ErrInvalidInput, t)
		}
		if len(col) != len(index) {
			return nil, fmt.Errorf("%w: column %q has %d values for %d timestamps",
				stats.ErrInvalidInput, t, len(col), len(index))
		}
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: column %q has a missing value at %d", stats.ErrInvalidInput, t, i)
			}
		}
		p.tickers = append(p.tickers, t)
		p.columns[t] = append([]float64(nil), col...)
	}
	return p, nil
}

// Len returns the number of rows
func (p *Panel) Len() int {
	return len(p.index)
}

// Tickers returns the column names in panel order
func (p *Panel) Tickers() []string {
	return append([]string(nil), p.tickers...)
}

// Has reports whether the panel carries ticker
func (p *Panel) Has(ticker string) bool {
	_, ok := p.columns[ticker]
	return ok
}

// Index returns a copy of the shared timestamp index
func (p *Panel) Index() []time.Time {
	return append([]time.Time(nil), p.index...)
}

// Series returns the price series of one ticker
func (p *Panel) Series(ticker string) (PriceSeries, error) {
	col, ok := p.columns[ticker]
	if !ok {
		return PriceSeries{}, fmt.Errorf("%w: ticker %q not in panel", stats.ErrInvalidInput, ticker)
	}
	return NewPriceSeries(ticker, p.index, col)
}

// Pair returns the aligned pair (first, second)
func (p *Panel) Pair(first, second string) (Pair, error) {
	if first == second {
		return Pair{}, fmt.Errorf("%w: pair needs two distinct tickers, got %q twice", stats.ErrInvalidInput, first)
	}
	s1, err := p.Series(first)
	if err != nil {
		return Pair{}, err
	}
	s2, err := p.Series(second)
	if err != nil {
		return Pair{}, err
	}
	return NewPair(s1, s2)
}
