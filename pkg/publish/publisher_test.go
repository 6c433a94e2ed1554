package publish

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/backtest"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/discovery"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/experiment"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/stats"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/quality"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/regime"
	"github.com/zachmacsmith/QuantFinanceToyProject/pkg/strategy/spread"
)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	sent []message
	err  error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, message{subject: subject, data: data})
	return nil
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var s structpb.Struct
	require.NoError(t, proto.Unmarshal(data, &s))
	return s.AsMap()
}

func TestPublishCandidates(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "pairs", zerolog.Nop())

	candidates := []discovery.PairCandidate{
		{Ticker1: "GLD", Ticker2: "SLV", Correlation: 0.93, PValue: 0.004, TStat: -4.1, HedgeRatio: 1.7,
			CriticalValues: stats.CriticalValues{OnePct: -3.9, FivePct: -3.34, TenPct: -3.05}},
		{Ticker1: "KO", Ticker2: "PEP", Correlation: 0.88, PValue: 0.03, TStat: -3.5, HedgeRatio: 0.4},
	}
	require.NoError(t, p.PublishCandidates(candidates))
	require.Len(t, conn.sent, 1)
	assert.Equal(t, "pairs.discovery", conn.sent[0].subject)

	got := decode(t, conn.sent[0].data)
	assert.Equal(t, 2.0, got["count"])
	list := got["candidates"].([]any)
	require.Len(t, list, 2)
	first := list[0].(map[string]any)
	assert.Equal(t, "GLD", first["ticker1"])
	assert.Equal(t, 1.0, first["rank"])
	assert.Equal(t, 0.004, first["p_value"])
	assert.Equal(t, -3.34, first["critical_values"].(map[string]any)["5%"])
}

func TestPublishExperiment(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "pairs", zerolog.Nop())

	res := &experiment.Result{
		Name:       "metals",
		Pair:       "BRK.B/SPY",
		Mode:       experiment.ModeAdaptive,
		Estimator:  spread.KindKalman,
		HedgeRatio: 0.8,
		Decision: &regime.Decision{
			Estimator: spread.KindKalman,
			Reasons:   []string{"long half-life"},
			Metrics:   quality.Metrics{HalfLife: math.Inf(1), OverallScore: 30},
		},
		Start:      time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
		Statistics: backtest.Statistics{FinalCumulativeReturn: 1.12, TotalTrades: 4, PositionChanges: 7},
	}
	require.NoError(t, p.PublishExperiment(res))
	require.Len(t, conn.sent, 1)
	assert.Equal(t, "pairs.experiment.BRK_B.SPY", conn.sent[0].subject)

	got := decode(t, conn.sent[0].data)
	assert.Equal(t, "kalman", got["estimator"])
	assert.Equal(t, 1.12, got["final_cumulative_return"])
	assert.Equal(t, 4.0, got["total_trades"])
	assert.Equal(t, 7.0, got["position_changes"])
	assert.Equal(t, "2021-03-01", got["start"])
	assert.Equal(t, "2023-02-28", got["end"])
	assert.Equal(t, []any{"long half-life"}, got["reasons"])
	q := got["quality"].(map[string]any)
	halfLife, ok := q["half_life"]
	require.True(t, ok, "infinite half-life is kept as an explicit null")
	assert.Nil(t, halfLife)
	assert.Equal(t, 30.0, q["overall_score"])
	_, hasP := got["p_value"]
	assert.False(t, hasP)
}

func TestPublish_ConnError(t *testing.T) {
	p := NewPublisher(&fakeConn{err: errors.New("connection closed")}, "pairs", zerolog.Nop())
	err := p.PublishCandidates(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pairs.discovery")
}

func TestPublishCandidates_NonFiniteTStat(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "pairs", zerolog.Nop())

	// perfectly collinear pairs carry t = -Inf and p = 0
	candidates := []discovery.PairCandidate{
		{Ticker1: "X", Ticker2: "Y", Correlation: 1, PValue: 0, TStat: math.Inf(-1), HedgeRatio: 0.5},
	}
	require.NoError(t, p.PublishCandidates(candidates))
	require.Len(t, conn.sent, 1)

	var s structpb.Struct
	require.NoError(t, proto.Unmarshal(conn.sent[0].data, &s))
	first := s.Fields["candidates"].GetListValue().GetValues()[0].GetStructValue()
	_, isNull := first.Fields["t_stat"].GetKind().(*structpb.Value_NullValue)
	assert.True(t, isNull)
	assert.Equal(t, 0.0, first.Fields["p_value"].GetNumberValue())
	assert.Equal(t, 0.5, first.Fields["hedge_ratio"].GetNumberValue())
}
