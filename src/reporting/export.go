package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/quantpods/backtester/src/backtester/engine"
	"github.com/quantpods/backtester/src/backtester/models"
)

// EquityCurveRow is one (timestamp, portfolio, value) observation in the
// exported long-format equity table.
type EquityCurveRow struct {
	Timestamp string  `csv:"timestamp"`
	Portfolio string  `csv:"portfolio"`
	Value     float64 `csv:"value"`
}

// ExportEquityCurves writes the equity history as long-format CSV, one row
// per portfolio per timestamp.
func ExportEquityCurves(history []engine.EquitySnapshot, w io.Writer) error {
	rows := make([]*EquityCurveRow, 0, len(history))

	for _, snapshot := range history {
		for _, column := range historyColumns(history) {
			value, found := snapshot.Values[column]
			if !found {
				continue
			}

			rows = append(rows, &EquityCurveRow{
				Timestamp: snapshot.Timestamp.Format(time.RFC3339),
				Portfolio: column,
				Value:     value,
			})
		}
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to export equity curves: %w", err)
	}

	return nil
}

// ExportTransactions writes a portfolio's transaction log as CSV.
func ExportTransactions(transactions []models.Transaction, w io.Writer) error {
	rows := make([]*models.Transaction, 0, len(transactions))
	for i := range transactions {
		rows = append(rows, &transactions[i])
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to export transactions: %w", err)
	}

	return nil
}
