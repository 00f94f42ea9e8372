package engine

import (
	"fmt"
	"time"

	"github.com/quantpods/backtester/src/backtester/models"
)

const (
	DefaultInitialCapital = 1000000.0
	DefaultCommissionRate = 0.001
	DefaultSlippageRate   = 0.0005
)

// Config holds the parameters of one simulation run. A zero commission or
// slippage rate is a valid, frictionless setting; NewConfig seeds the
// defaults above.
type Config struct {
	StartDate      time.Time     `yaml:"start_date" json:"start_date"`
	EndDate        time.Time     `yaml:"end_date" json:"end_date"`
	Step           time.Duration `yaml:"step" json:"step"`
	InitialCapital float64       `yaml:"initial_capital" json:"initial_capital"`
	CommissionRate float64       `yaml:"commission_rate" json:"commission_rate"`
	SlippageRate   float64       `yaml:"slippage_rate" json:"slippage_rate"`
}

// NewConfig returns a run config for the window with the default capital,
// commission and slippage settings and a one day step.
func NewConfig(startDate, endDate time.Time) Config {
	return Config{
		StartDate:      startDate,
		EndDate:        endDate,
		Step:           models.DefaultStep,
		InitialCapital: DefaultInitialCapital,
		CommissionRate: DefaultCommissionRate,
		SlippageRate:   DefaultSlippageRate,
	}
}

func (c *Config) Validate() error {
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}

	if c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("end date %s is before start date %s", c.EndDate.Format(time.RFC3339), c.StartDate.Format(time.RFC3339))
	}

	if c.InitialCapital == 0 {
		c.InitialCapital = DefaultInitialCapital
	}
	if c.InitialCapital < 0 {
		return fmt.Errorf("initial capital must be positive, got %v", c.InitialCapital)
	}

	if c.CommissionRate < 0 {
		return fmt.Errorf("commission rate must not be negative, got %v", c.CommissionRate)
	}

	if c.SlippageRate < 0 {
		return fmt.Errorf("slippage rate must not be negative, got %v", c.SlippageRate)
	}

	if c.Step <= 0 {
		c.Step = models.DefaultStep
	}

	return nil
}
