package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quantpods/backtester/src/backtester/engine"
	"github.com/quantpods/backtester/src/backtester/risk"
	"github.com/quantpods/backtester/src/data"
	"github.com/quantpods/backtester/src/eventmodels"
	"github.com/quantpods/backtester/src/eventpubsub"
	"github.com/quantpods/backtester/src/reporting"
	"github.com/quantpods/backtester/src/strategies"
	"github.com/quantpods/backtester/src/utils"
)

// generateBars builds a seeded random walk of weekday bars so repeated runs
// of the demo produce identical results.
func generateBars(instrument eventmodels.Instrument, startDate, endDate time.Time, seed int64) []*data.Bar {
	rng := rand.New(rand.NewSource(seed))

	var bars []*data.Bar
	price := 100.0

	for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}

		price *= 1 + rng.NormFloat64()*0.015 + 0.0005

		bars = append(bars, &data.Bar{
			Timestamp:  day,
			Instrument: instrument,
			Open:       price,
			High:       price * (1 + rng.Float64()*0.01),
			Low:        price * (1 - rng.Float64()*0.01),
			Close:      price,
			Volume:     1000000 + rng.Float64()*9000000,
		})
	}

	return bars
}

func main() {
	if err := utils.InitEnvironmentVariables(); err != nil {
		log.Warnf("failed to load environment: %v", err)
	}

	startDate := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)
	instruments := []eventmodels.Instrument{"AAPL", "MSFT", "GOOGL", "AMZN"}

	dataManager := data.NewManager()
	for i, instrument := range instruments {
		feed := data.NewMemoryFeed(string(instrument), generateBars(instrument, startDate, endDate, int64(42+i)))
		if err := dataManager.RegisterFeed(string(instrument), feed); err != nil {
			log.Fatalf("failed to register feed %s: %v", instrument, err)
		}
	}
	dataManager.LoadData(startDate, endDate, instruments)

	riskManager := risk.NewManager()
	riskManager.AddGlobalLimit(risk.NewLeverageLimit(2.0, eventmodels.RiskSeverityCritical))

	config := engine.NewConfig(startDate, endDate)
	backtest, err := engine.NewBacktestEngine(config, dataManager, riskManager, eventpubsub.NewBus())
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}

	strategySet := []*strategies.MovingAverageCross{
		strategies.NewMovingAverageCross("ma_fast", instruments, 5, 20, 100),
		strategies.NewMovingAverageCross("ma_slow", instruments, 20, 50, 100),
	}

	for _, strategy := range strategySet {
		if err := backtest.RegisterStrategy(strategy); err != nil {
			log.Fatalf("failed to register strategy %s: %v", strategy.ID(), err)
		}

		riskManager.AddStrategyLimit(strategy.ID(), risk.NewDrawdownLimit(20.0, eventmodels.RiskSeverityCritical))
		for _, instrument := range instruments {
			riskManager.AddStrategyLimit(strategy.ID(), risk.NewPositionLimit(10000, instrument, eventmodels.RiskSeverityWarning))
			riskManager.AddStrategyLimit(strategy.ID(), risk.NewExposureLimit(30.0, instrument, true, eventmodels.RiskSeverityWarning))
		}

		log.Infof("registered strategy: %s", strategy.ID())
	}

	log.Info("starting backtest")

	stats, err := backtest.Run()
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	log.Infof("processed %d events, %d orders (%d filled, %d rejected) in %v",
		stats.EventsProcessed, stats.TotalOrders, stats.FilledOrders, stats.RejectedOrders, stats.SimulationTime)

	history := backtest.EquityHistory()
	fmt.Println(reporting.RenderSummary(reporting.ComputeMetrics(history)))

	if err := os.MkdirAll("results", 0755); err != nil {
		log.Fatalf("failed to create results directory: %v", err)
	}

	equityFile, err := os.Create("results/equity_curves.csv")
	if err != nil {
		log.Fatalf("failed to create equity curve file: %v", err)
	}
	defer equityFile.Close()

	if err := reporting.ExportEquityCurves(history, equityFile); err != nil {
		log.Fatalf("failed to export equity curves: %v", err)
	}

	transactionsFile, err := os.Create("results/transactions.csv")
	if err != nil {
		log.Fatalf("failed to create transactions file: %v", err)
	}
	defer transactionsFile.Close()

	if err := reporting.ExportTransactions(backtest.PortfolioManager().Combined().GetTransactions(), transactionsFile); err != nil {
		log.Fatalf("failed to export transactions: %v", err)
	}

	log.Info("backtest completed, results written to results/")
}
