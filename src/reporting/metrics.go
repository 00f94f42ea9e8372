package reporting

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/quantpods/backtester/src/backtester/engine"
)

const tradingDaysPerYear = 252

// Metrics summarizes one equity curve over a run.
type Metrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	FinalValue       float64 `json:"final_value"`
	InitialValue     float64 `json:"initial_value"`
}

// ComputeMetrics derives per-portfolio performance from the equity history.
// Annualization is linear (total return scaled by 252 over the period
// count) while the drawdown series compounds simple returns against a
// running maximum; both follow the reporting conventions this engine's
// results are compared against.
func ComputeMetrics(history []engine.EquitySnapshot) map[string]Metrics {
	metrics := make(map[string]Metrics)
	if len(history) < 2 {
		return metrics
	}

	for _, column := range historyColumns(history) {
		values := make([]float64, 0, len(history))
		for _, snapshot := range history {
			values = append(values, snapshot.Values[column])
		}

		returns := simpleReturns(values)
		if len(returns) == 0 {
			continue
		}

		initial := values[0]
		final := values[len(values)-1]

		totalReturn := 0.0
		if initial != 0 {
			totalReturn = (final/initial - 1) * 100
		}

		annualized := totalReturn * (tradingDaysPerYear / float64(len(returns)))

		volatility := 0.0
		if stddev, err := stats.StandardDeviationSample(stats.Float64Data(returns)); err == nil {
			volatility = stddev * math.Sqrt(tradingDaysPerYear) * 100
		}

		sharpe := 0.0
		if volatility > 0 {
			sharpe = annualized / volatility
		}

		metrics[column] = Metrics{
			TotalReturn:      totalReturn,
			AnnualizedReturn: annualized,
			Volatility:       volatility,
			SharpeRatio:      sharpe,
			MaxDrawdown:      maxDrawdown(returns),
			FinalValue:       final,
			InitialValue:     initial,
		}
	}

	return metrics
}

// simpleReturns computes period-over-period percentage changes. A zero base
// value yields a zero return rather than an infinity.
func simpleReturns(values []float64) []float64 {
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}

		returns = append(returns, values[i]/values[i-1]-1)
	}

	return returns
}

// maxDrawdown compounds the return series and measures the deepest drop
// from its running maximum, in percent.
func maxDrawdown(returns []float64) float64 {
	cumulative := 1.0
	runningMax := 1.0
	deepest := 0.0

	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > runningMax {
			runningMax = cumulative
		}

		drawdown := cumulative/runningMax - 1
		if drawdown < deepest {
			deepest = drawdown
		}
	}

	return deepest * 100
}

func historyColumns(history []engine.EquitySnapshot) []string {
	seen := make(map[string]bool)
	columns := make([]string, 0)

	for _, snapshot := range history {
		for column := range snapshot.Values {
			if !seen[column] {
				seen[column] = true
				columns = append(columns, column)
			}
		}
	}

	sort.Strings(columns)

	return columns
}
