package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpods/backtester/src/backtester/risk"
	"github.com/quantpods/backtester/src/eventmodels"
)

func TestBuildLimit(t *testing.T) {
	t.Run("position", func(t *testing.T) {
		limit, err := buildLimit(LimitConfig{Type: "position", Max: 100, Instrument: "AAPL", Severity: "warning"})
		require.NoError(t, err)
		assert.Equal(t, risk.LimitKindPosition, limit.Kind)
		assert.Equal(t, eventmodels.Instrument("AAPL"), limit.Instrument)
		assert.Equal(t, eventmodels.RiskSeverityWarning, limit.Severity)
	})

	t.Run("exposure percent", func(t *testing.T) {
		limit, err := buildLimit(LimitConfig{Type: "exposure", Max: 30, Percent: true, Severity: "critical"})
		require.NoError(t, err)
		assert.Equal(t, risk.LimitKindExposure, limit.Kind)
		assert.True(t, limit.IsPercent)
		assert.Equal(t, eventmodels.RiskSeverityCritical, limit.Severity)
	})

	t.Run("unknown type", func(t *testing.T) {
		limit, err := buildLimit(LimitConfig{Type: "volatility", Max: 10})
		assert.Error(t, err)
		assert.Equal(t, risk.Limit{}, limit)
	})

	t.Run("unknown severity defaults to warning", func(t *testing.T) {
		limit, err := buildLimit(LimitConfig{Type: "drawdown", Max: 20, Severity: "fatal"})
		require.NoError(t, err)
		assert.Equal(t, eventmodels.RiskSeverityWarning, limit.Severity)
	})
}
