package reporting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RenderSummary formats per-portfolio metrics as a console table.
func RenderSummary(metrics map[string]Metrics) string {
	display := &strings.Builder{}
	p := message.NewPrinter(language.English)

	table := tablewriter.NewWriter(display)
	table.SetHeader([]string{"Portfolio", "Total Return", "Annualized", "Volatility", "Sharpe", "Max Drawdown", "Final Value"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetColumnSeparator("")

	display.WriteString("Performance Summary:\n")

	columns := make([]string, 0, len(metrics))
	for column := range metrics {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	for _, column := range columns {
		m := metrics[column]
		table.Append([]string{
			column,
			fmt.Sprintf("%.2f%%", m.TotalReturn),
			fmt.Sprintf("%.2f%%", m.AnnualizedReturn),
			fmt.Sprintf("%.2f%%", m.Volatility),
			fmt.Sprintf("%.2f", m.SharpeRatio),
			fmt.Sprintf("%.2f%%", m.MaxDrawdown),
			fmt.Sprintf("$%s", p.Sprintf("%.2f", m.FinalValue)),
		})
	}

	table.Render()

	return display.String()
}
