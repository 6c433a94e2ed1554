// Package signal turns a z-scored spread into a position series
package signal

import (
	"fmt"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
)

// Position is the spread position held after a step
type Position int

const (
	// PositionShort 做空 spread (卖 leg1, 买 leg2)
	PositionShort Position = -1
	// PositionFlat 空仓
	PositionFlat Position = 0
	// PositionLong 做多 spread (买 leg1, 卖 leg2)
	PositionLong Position = 1
)

// String returns the string representation of Position
func (p Position) String() string {
	switch p {
	case PositionShort:
		return "Short"
	case PositionFlat:
		return "Flat"
	case PositionLong:
		return "Long"
	default:
		return "Unknown"
	}
}

// Config 信号阈值
type Config struct {
	EntryThreshold float64 `yaml:"entry_threshold"` // 开仓 |z| 阈值
	ExitThreshold  float64 `yaml:"exit_threshold"`  // 平仓阈值
}

// DefaultConfig returns entry 2.0, exit 0.0
func DefaultConfig() Config {
	return Config{EntryThreshold: 2.0, ExitThreshold: 0.0}
}

// Validate requires entry > exit
func (c Config) Validate() error {
	if !(c.EntryThreshold > c.ExitThreshold) {
		return fmt.Errorf("%w: entry threshold %g must exceed exit threshold %g",
			stats.ErrInvalidInput, c.EntryThreshold, c.ExitThreshold)
	}
	return nil
}

// transition fires when cond holds for the current z-score.
// NaN makes every comparison false, so the state is kept.
type transition struct {
	cond func(z float64, c Config) bool
	to   Position
}

// transitions 状态转移表; LONG 与 SHORT 之间没有直接转移
var transitions = map[Position][]transition{
	PositionFlat: {
		{cond: func(z float64, c Config) bool { return z < -c.EntryThreshold }, to: PositionLong},
		{cond: func(z float64, c Config) bool { return z > c.EntryThreshold }, to: PositionShort},
	},
	PositionLong: {
		{cond: func(z float64, c Config) bool { return z >= -c.ExitThreshold }, to: PositionFlat},
	},
	PositionShort: {
		{cond: func(z float64, c Config) bool { return z <= c.ExitThreshold }, to: PositionFlat},
	},
}

// Step returns the position after observing z while holding current
func Step(current Position, z float64, cfg Config) Position {
	for _, tr := range transitions[current] {
		if tr.cond(z, cfg) {
			return tr.to
		}
	}
	return current
}

// Generator runs the state machine over a whole z-score series
type Generator struct {
	cfg Config
}

// NewGenerator validates cfg and creates a generator
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg}, nil
}

// Generate starts flat and returns one position per input, in input order
func (g *Generator) Generate(zscores []float64) []Position {
	positions := make([]Position, len(zscores))
	state := PositionFlat
	for i, z := range zscores {
		state = Step(state, z, g.cfg)
		positions[i] = state
	}
	return positions
}

// Float64s converts positions to -1/0/1 floats
func Float64s(positions []Position) []float64 {
	out := make([]float64, len(positions))
	for i, p := range positions {
		out[i] = float64(p)
	}
	return out
}

// Trades counts position changes (entries and exits)
func Trades(positions []Position) int {
	trades := 0
	prev := PositionFlat
	for _, p := range positions {
		if p != prev {
			trades++
		}
		prev = p
	}
	return trades
}
