// Package market holds the aligned price data handed to the pairs engine
package market

import (
	"fmt"
	"time"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
)

// PriceSeries 一个品种的有序价格序列 (timestamp, price)
// Immutable once constructed; accessors return copies.
type PriceSeries struct {
	name       string
	timestamps []time.Time
	values     []float64
}

// NewPriceSeries 创建价格序列，时间戳必须严格递增
func NewPriceSeries(name string, timestamps []time.Time, values []float64) (PriceSeries, error) {
	if len(timestamps) != len(values) {
		return PriceSeries{}, fmt.Errorf("%w: series %q has %d timestamps and %d prices",
			stats.ErrInvalidInput, name, len(timestamps), len(values))
	}
	for i := 1; i < len(timestamps); i++ {
		if !timestamps[i].After(timestamps[i-1]) {
			return PriceSeries{}, fmt.Errorf("%w: series %q timestamps not strictly increasing at %d",
				stats.ErrInvalidInput, name, i)
		}
	}

	ts := make([]time.Time, len(timestamps))
	copy(ts, timestamps)
	vs := make([]float64, len(values))
	copy(vs, values)

	return PriceSeries{name: name, timestamps: ts, values: vs}, nil
}

// Name returns the ticker symbol
func (s PriceSeries) Name() string {
	return s.name
}

// Len 返回数据点数量
func (s PriceSeries) Len() int {
	return len(s.values)
}

// Values 获取所有价格（副本）
func (s PriceSeries) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Timestamps 获取所有时间戳（副本）
func (s PriceSeries) Timestamps() []time.Time {
	out := make([]time.Time, len(s.timestamps))
	copy(out, s.timestamps)
	return out
}

// Last 获取最新的数据点
func (s PriceSeries) Last() (float64, bool) {
	if len(s.values) == 0 {
		return 0, false
	}
	return s.values[len(s.values)-1], true
}

// Pair is two price series sharing one timestamp index
type Pair struct {
	First  PriceSeries
	Second PriceSeries
}

// NewPair validates that both series share an identical, ordered index
func NewPair(first, second PriceSeries) (Pair, error) {
	if first.Len() != second.Len() {
		return Pair{}, fmt.Errorf("%w: pair %s/%s length mismatch (%d vs %d)",
			stats.ErrInvalidInput, first.name, second.name, first.Len(), second.Len())
	}
	for i := range first.timestamps {
		if !first.timestamps[i].Equal(second.timestamps[i]) {
			return Pair{}, fmt.Errorf("%w: pair %s/%s misaligned at index %d (%s vs %s)",
				stats.ErrInvalidInput, first.name, second.name, i,
				first.timestamps[i].Format(time.RFC3339), second.timestamps[i].Format(time.RFC3339))
		}
	}
	return Pair{First: first, Second: second}, nil
}

// Len returns the number of aligned observations
func (p Pair) Len() int {
	return p.First.Len()
}

// Name returns "T1/T2"
func (p Pair) Name() string {
	return p.First.name + "/" + p.Second.name
}
