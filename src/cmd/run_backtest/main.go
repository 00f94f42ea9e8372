package main

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/quantpods/backtester/src/backtester/engine"
	"github.com/quantpods/backtester/src/backtester/models"
	"github.com/quantpods/backtester/src/backtester/risk"
	"github.com/quantpods/backtester/src/data"
	"github.com/quantpods/backtester/src/eventmodels"
	"github.com/quantpods/backtester/src/eventpubsub"
	"github.com/quantpods/backtester/src/reporting"
	"github.com/quantpods/backtester/src/strategies"
	"github.com/quantpods/backtester/src/utils"
)

type FeedConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type LimitConfig struct {
	Type       string  `yaml:"type"`
	Max        float64 `yaml:"max"`
	Instrument string  `yaml:"instrument"`
	Percent    bool    `yaml:"percent"`
	Severity   string  `yaml:"severity"`
}

type StrategyConfig struct {
	ID           string        `yaml:"id"`
	Instruments  []string      `yaml:"instruments"`
	FastWindow   int           `yaml:"fast_window"`
	SlowWindow   int           `yaml:"slow_window"`
	PositionSize float64       `yaml:"position_size"`
	Limits       []LimitConfig `yaml:"limits"`
}

type OutputConfig struct {
	EquityCSV       string `yaml:"equity_csv"`
	TransactionsCSV string `yaml:"transactions_csv"`
}

type RunConfig struct {
	StartDate      string           `yaml:"start_date"`
	EndDate        string           `yaml:"end_date"`
	Step           string           `yaml:"step"`
	InitialCapital float64          `yaml:"initial_capital"`
	CommissionRate float64          `yaml:"commission_rate"`
	SlippageRate   float64          `yaml:"slippage_rate"`
	Feeds          []FeedConfig     `yaml:"feeds"`
	Strategies     []StrategyConfig `yaml:"strategies"`
	GlobalLimits   []LimitConfig    `yaml:"global_limits"`
	Outputs        OutputConfig     `yaml:"outputs"`
}

type RunArgs struct {
	ConfigFile string
}

func loadRunConfig(path string) (*RunConfig, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loadRunConfig: failed to read %s: %w", path, err)
	}

	var config RunConfig
	if err := yaml.Unmarshal(payload, &config); err != nil {
		return nil, fmt.Errorf("loadRunConfig: failed to parse %s: %w", path, err)
	}

	return &config, nil
}

func parseSeverity(value string) eventmodels.RiskSeverity {
	switch value {
	case "info":
		return eventmodels.RiskSeverityInfo
	case "critical":
		return eventmodels.RiskSeverityCritical
	default:
		return eventmodels.RiskSeverityWarning
	}
}

func buildLimit(config LimitConfig) (risk.Limit, error) {
	severity := parseSeverity(config.Severity)
	instrument := eventmodels.Instrument(config.Instrument)

	switch config.Type {
	case "position":
		return risk.NewPositionLimit(config.Max, instrument, severity), nil
	case "exposure":
		return risk.NewExposureLimit(config.Max, instrument, config.Percent, severity), nil
	case "drawdown":
		return risk.NewDrawdownLimit(config.Max, severity), nil
	case "leverage":
		return risk.NewLeverageLimit(config.Max, severity), nil
	default:
		return risk.Limit{}, fmt.Errorf("buildLimit: unknown limit type: %s", config.Type)
	}
}

func buildEngineConfig(config *RunConfig) (engine.Config, error) {
	startDate, err := utils.ParseDate(config.StartDate)
	if err != nil {
		return engine.Config{}, fmt.Errorf("buildEngineConfig: invalid start_date: %w", err)
	}

	endDate, err := utils.ParseDate(config.EndDate)
	if err != nil {
		return engine.Config{}, fmt.Errorf("buildEngineConfig: invalid end_date: %w", err)
	}

	engineConfig := engine.NewConfig(startDate, endDate)

	if config.Step != "" {
		step, err := time.ParseDuration(config.Step)
		if err != nil {
			return engine.Config{}, fmt.Errorf("buildEngineConfig: invalid step: %w", err)
		}
		engineConfig.Step = step
	}

	if config.InitialCapital > 0 {
		engineConfig.InitialCapital = config.InitialCapital
	}

	engineConfig.CommissionRate = config.CommissionRate
	engineConfig.SlippageRate = config.SlippageRate

	return engineConfig, nil
}

func toInstruments(symbols []string) []eventmodels.Instrument {
	instruments := make([]eventmodels.Instrument, 0, len(symbols))
	for _, symbol := range symbols {
		instruments = append(instruments, eventmodels.Instrument(symbol))
	}
	return instruments
}

func run(args RunArgs) error {
	if err := utils.InitEnvironmentVariables(); err != nil {
		log.Warnf("run: failed to load environment: %v", err)
	}

	runConfig, err := loadRunConfig(args.ConfigFile)
	if err != nil {
		return err
	}

	if len(runConfig.Strategies) == 0 {
		return fmt.Errorf("run: config %s declares no strategies", args.ConfigFile)
	}

	engineConfig, err := buildEngineConfig(runConfig)
	if err != nil {
		return err
	}

	dataManager := data.NewManager()
	for _, feedConfig := range runConfig.Feeds {
		feed := data.NewCSVFeed(feedConfig.Name, feedConfig.Path)
		if err := dataManager.RegisterFeed(feedConfig.Name, feed); err != nil {
			return fmt.Errorf("run: failed to register feed %s: %w", feedConfig.Name, err)
		}
	}

	dataManager.LoadData(engineConfig.StartDate, engineConfig.EndDate, nil)

	riskManager := risk.NewManager()
	for _, limitConfig := range runConfig.GlobalLimits {
		limit, err := buildLimit(limitConfig)
		if err != nil {
			return err
		}
		riskManager.AddGlobalLimit(limit)
	}

	backtest, err := engine.NewBacktestEngine(engineConfig, dataManager, riskManager, eventpubsub.NewBus())
	if err != nil {
		return fmt.Errorf("run: failed to create engine: %w", err)
	}

	for _, strategyConfig := range runConfig.Strategies {
		instruments := toInstruments(strategyConfig.Instruments)
		if len(instruments) == 0 {
			instruments = dataManager.GetAvailableInstruments()
		}

		strategy := strategies.NewMovingAverageCross(
			strategyConfig.ID,
			instruments,
			strategyConfig.FastWindow,
			strategyConfig.SlowWindow,
			strategyConfig.PositionSize,
		)

		if err := backtest.RegisterStrategy(strategy); err != nil {
			return fmt.Errorf("run: failed to register strategy %s: %w", strategyConfig.ID, err)
		}

		for _, limitConfig := range strategyConfig.Limits {
			limit, err := buildLimit(limitConfig)
			if err != nil {
				return err
			}
			riskManager.AddStrategyLimit(strategyConfig.ID, limit)
		}
	}

	stats, err := backtest.Run()
	if err != nil {
		return fmt.Errorf("run: backtest failed: %w", err)
	}

	log.Infof("run: processed %d events, %d orders (%d filled, %d rejected) in %v",
		stats.EventsProcessed, stats.TotalOrders, stats.FilledOrders, stats.RejectedOrders, stats.SimulationTime)

	history := backtest.EquityHistory()
	fmt.Println(reporting.RenderSummary(reporting.ComputeMetrics(history)))

	if runConfig.Outputs.EquityCSV != "" {
		if err := exportEquityCurves(history, runConfig.Outputs.EquityCSV); err != nil {
			return err
		}
	}

	if runConfig.Outputs.TransactionsCSV != "" {
		transactions := backtest.PortfolioManager().Combined().GetTransactions()
		if err := exportTransactions(transactions, runConfig.Outputs.TransactionsCSV); err != nil {
			return err
		}
	}

	return nil
}

func exportEquityCurves(history []engine.EquitySnapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("exportEquityCurves: failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := reporting.ExportEquityCurves(history, f); err != nil {
		return fmt.Errorf("exportEquityCurves: failed to write %s: %w", path, err)
	}

	log.Infof("exportEquityCurves: wrote %s", path)
	return nil
}

func exportTransactions(transactions []models.Transaction, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("exportTransactions: failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := reporting.ExportTransactions(transactions, f); err != nil {
		return fmt.Errorf("exportTransactions: failed to write %s: %w", path, err)
	}

	log.Infof("exportTransactions: wrote %s", path)
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "run_backtest",
	Short: "Run a multi-strategy backtest described by a yaml run config",
	Run: func(cmd *cobra.Command, args []string) {
		configFile, err := cmd.Flags().GetString("config")
		if err != nil {
			log.Fatalf("error getting config: %v", err)
		}

		if err := run(RunArgs{
			ConfigFile: configFile,
		}); err != nil {
			log.Fatalf("error running command: %v", err)
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(new(string), "config", "", "Path to the yaml run config.")

	rootCmd.MarkFlagRequired("config")

	cobra.CheckErr(rootCmd.Execute())
}
