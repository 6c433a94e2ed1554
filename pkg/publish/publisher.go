// Package publish sends discovery and experiment results to NATS as
// protobuf-encoded google.protobuf.Struct messages
package publish

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/discovery"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/experiment"
)

// Conn is the part of *nats.Conn the publisher needs
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher 结果发布器
type Publisher struct {
	conn   Conn
	prefix string
	logger zerolog.Logger
}

// NewPublisher wraps an existing connection
func NewPublisher(conn Conn, prefix string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		prefix: prefix,
		logger: logger.With().Str("component", "publisher").Logger(),
	}
}

// Connect dials NATS at addr. The returned close function drains the connection.
func Connect(addr, prefix string, logger zerolog.Logger) (*Publisher, func(), error) {
	nc, err := nats.Connect(addr, nats.Name("pairs-engine"), nats.Timeout(2*time.Second))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	p := NewPublisher(nc, prefix, logger)
	p.logger.Info().Str("addr", addr).Msg("connected to NATS")

	closeFn := func() {
		if err := nc.Drain(); err != nil {
			p.logger.Warn().Err(err).Msg("failed to drain NATS connection")
		}
	}
	return p, closeFn, nil
}

// DiscoverySubject returns {prefix}.discovery
func (p *Publisher) DiscoverySubject() string {
	return p.prefix + ".discovery"
}

// ExperimentSubject returns {prefix}.experiment.{t1}.{t2}
func (p *Publisher) ExperimentSubject(pair string) string {
	t1, t2, _ := strings.Cut(pair, "/")
	return fmt.Sprintf("%s.experiment.%s.%s", p.prefix, subjectToken(t1), subjectToken(t2))
}

// PublishCandidates publishes a discovery run
func (p *Publisher) PublishCandidates(candidates []discovery.PairCandidate) error {
	msg, err := CandidatesMessage(candidates)
	if err != nil {
		return err
	}
	return p.publish(p.DiscoverySubject(), msg)
}

// PublishExperiment publishes one experiment summary
func (p *Publisher) PublishExperiment(res *experiment.Result) error {
	msg, err := ExperimentMessage(res)
	if err != nil {
		return err
	}
	return p.publish(p.ExperimentSubject(res.Pair), msg)
}

func (p *Publisher) publish(subject string, msg *structpb.Struct) error {
	data, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	p.logger.Debug().Str("subject", subject).Int("bytes", len(data)).Msg("published")
	return nil
}

// CandidatesMessage encodes candidates in rank order
func CandidatesMessage(candidates []discovery.PairCandidate) (*structpb.Struct, error) {
	list := make([]any, len(candidates))
	for i, c := range candidates {
		list[i] = map[string]any{
			"rank":        i + 1,
			"ticker1":     c.Ticker1,
			"ticker2":     c.Ticker2,
			"correlation": c.Correlation,
			"p_value":     c.PValue,
			"t_stat":      number(c.TStat),
			"hedge_ratio": c.HedgeRatio,
			"critical_values": map[string]any{
				"1%":  c.CriticalValues.OnePct,
				"5%":  c.CriticalValues.FivePct,
				"10%": c.CriticalValues.TenPct,
			},
		}
	}
	msg, err := structpb.NewStruct(map[string]any{
		"count":      len(candidates),
		"candidates": list,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build discovery message: %w", err)
	}
	return msg, nil
}

// ExperimentMessage encodes the summary of an experiment, not its series
func ExperimentMessage(res *experiment.Result) (*structpb.Struct, error) {
	st := res.Statistics
	fields := map[string]any{
		"name":                    res.Name,
		"pair":                    res.Pair,
		"start":                   res.Start.Format(time.DateOnly),
		"end":                     res.End.Format(time.DateOnly),
		"mode":                    string(res.Mode),
		"estimator":               string(res.Estimator),
		"hedge_ratio":             res.HedgeRatio,
		"final_cumulative_return": st.FinalCumulativeReturn,
		"annualized_return":       st.AnnualizedReturn,
		"sharpe_ratio":            st.SharpeRatio,
		"sortino_ratio":           st.SortinoRatio,
		"max_drawdown":            st.MaxDrawdown,
		"total_trades":            st.TotalTrades,
		"position_changes":        st.PositionChanges,
		"win_rate":                st.WinRate,
	}
	if res.Cointegration != nil {
		fields["p_value"] = res.Cointegration.PValue
		fields["t_stat"] = number(res.Cointegration.TStat)
	}
	if d := res.Decision; d != nil {
		reasons := make([]any, len(d.Reasons))
		for i, r := range d.Reasons {
			reasons[i] = r
		}
		fields["reasons"] = reasons
		fields["quality"] = map[string]any{
			"half_life":             number(d.Metrics.HalfLife),
			"hurst_exponent":        number(d.Metrics.HurstExponent),
			"correlation_stability": number(d.Metrics.CorrelationStability),
			"overall_score":         d.Metrics.OverallScore,
		}
	}

	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build experiment message: %w", err)
	}
	return msg, nil
}

// number maps NaN and ±Inf to a null value; structpb would otherwise carry
// them as the strings "NaN" and "Infinity" once decoded
func number(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// subjectToken keeps tickers such as BRK.B from adding subject levels
func subjectToken(s string) string {
	return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(s)
}
