package reporting

import (
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/position"
)

// ConsoleReporter renders portfolio and strategy summaries as terminal
// tables.
type ConsoleReporter struct{}

// NewConsoleReporter creates a console reporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// PrintPortfolioSummary renders the capital state and session stats.
func (r *ConsoleReporter) PrintPortfolioSummary(store *position.Store) {
	stats := store.Stats()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("PORTFOLIO SUMMARY")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"💰 Total Capital", fmt.Sprintf("$%.2f", store.TotalCapital())},
		{"💵 Available", fmt.Sprintf("$%.2f", store.AvailableCapital())},
		{"📦 Invested", fmt.Sprintf("$%.2f", store.InvestedCapital())},
		{"📈 Peak Capital", fmt.Sprintf("$%.2f", store.PeakCapital())},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"🔄 Closed Trades", fmt.Sprintf("%d", stats.Trades)},
		{"✅ Win Rate", fmt.Sprintf("%.1f%%", stats.WinRate()*100)},
		{"📊 Avg Win", fmt.Sprintf("$%.2f", stats.AvgWin())},
		{"📉 Avg Loss", fmt.Sprintf("$%.2f", stats.AvgLoss())},
	})

	if best, ok := store.BestTrade(); ok {
		t.AppendSeparator()
		t.AppendRow(table.Row{"🏆 Best Trade",
			fmt.Sprintf("%s $%.2f (%.2f%%)", best.Symbol, best.PnL, best.PnLPct)})
	}
	if worst, ok := store.WorstTrade(); ok {
		t.AppendRow(table.Row{"💀 Worst Trade",
			fmt.Sprintf("%s $%.2f (%.2f%%)", worst.Symbol, worst.PnL, worst.PnLPct)})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

// PrintOpenPositions renders the open position table.
func (r *ConsoleReporter) PrintOpenPositions(store *position.Store, prices map[string]float64) {
	positions := store.Positions()
	if len(positions) == 0 {
		fmt.Println("No open positions.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("OPEN POSITIONS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Strategy", "Shares", "Entry", "Stop", "Price", "P&L %"})

	for _, pos := range positions {
		price, ok := prices[pos.Symbol]
		pnlCell := "-"
		priceCell := "-"
		if ok && price > 0 {
			priceCell = fmt.Sprintf("$%.2f", price)
			pnlCell = fmt.Sprintf("%.2f%%", pos.ProfitPct(price))
		}
		t.AppendRow(table.Row{
			pos.Symbol,
			pos.Strategy,
			fmt.Sprintf("%d/%d", pos.CurrentShares, pos.InitialShares),
			fmt.Sprintf("$%.2f", pos.EntryPrice),
			fmt.Sprintf("$%.2f", pos.StopLoss),
			priceCell,
			pnlCell,
		})
	}

	t.Render()
	fmt.Println()
}

// PrintStrategyStats renders the per-strategy performance table with
// expectancy.
func (r *ConsoleReporter) PrintStrategyStats(store *position.Store) {
	strategyStats := store.StrategyStats()
	if len(strategyStats) == 0 {
		fmt.Println("No closed trades yet.")
		return
	}

	names := make([]string, 0, len(strategyStats))
	for name := range strategyStats {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("STRATEGY PERFORMANCE")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Strategy", "Trades", "Win Rate", "Total P&L", "Expectancy"})

	for _, name := range names {
		stats := strategyStats[name]
		t.AppendRow(table.Row{
			name,
			fmt.Sprintf("%d", stats.Trades),
			fmt.Sprintf("%.1f%%", stats.WinRate()*100),
			fmt.Sprintf("$%.2f", stats.TotalPnL),
			fmt.Sprintf("$%.2f", stats.Expectancy()),
		})
	}

	t.Render()
	fmt.Println()
}
