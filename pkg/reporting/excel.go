package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/position"
)

// ExcelReporter writes the trade journal workbook.
type ExcelReporter struct{}

// NewExcelReporter creates an Excel reporter.
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

// excelStyles holds the style IDs used across sheets.
type excelStyles struct {
	Header   int
	Currency int
	Percent  int
}

// WriteTradeJournal writes the full trade history and per-strategy summary
// to an xlsx workbook.
func (r *ExcelReporter) WriteTradeJournal(store *position.Store, path string) error {
	// Ensure directory exists before creating file
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const tradesSheet = "Trades"
	const strategiesSheet = "Strategies"

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	fx.NewSheet(strategiesSheet)

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeTradesSheet(fx, tradesSheet, store.History(), styles); err != nil {
		return err
	}
	if err := r.writeStrategiesSheet(fx, strategiesSheet, store, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	// Header style - dark background with white text
	styles.Header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.Currency, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7, // Currency format with $ symbol
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.Percent, err = fx.NewStyle(&excelize.Style{
		NumFmt: 10, // Percentage with two decimals
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	return styles, err
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, history []position.TradeRecord, styles excelStyles) error {
	headers := []string{"Symbol", "Strategy", "Entry Price", "Exit Price", "Shares",
		"P&L", "P&L %", "Reason", "Entry Time", "Exit Time", "Holding Days", "Final"}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, header)
		fx.SetCellStyle(sheet, cell, cell, styles.Header)
	}

	for i, rec := range history {
		row := i + 2
		values := []interface{}{
			rec.Symbol,
			rec.Strategy,
			rec.EntryPrice,
			rec.ExitPrice,
			rec.Shares,
			rec.PnL,
			rec.PnLPct / 100,
			string(rec.Reason),
			rec.EntryTime.Format("2006-01-02 15:04"),
			rec.ExitTime.Format("2006-01-02 15:04"),
			rec.HoldingDays,
			rec.Final,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			fx.SetCellValue(sheet, cell, value)
		}

		for _, col := range []int{3, 4, 6} {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			fx.SetCellStyle(sheet, cell, cell, styles.Currency)
		}
		cell, _ := excelize.CoordinatesToCellName(7, row)
		fx.SetCellStyle(sheet, cell, cell, styles.Percent)
	}

	fx.SetColWidth(sheet, "A", "L", 14)
	return nil
}

func (r *ExcelReporter) writeStrategiesSheet(fx *excelize.File, sheet string, store *position.Store, styles excelStyles) error {
	headers := []string{"Strategy", "Trades", "Wins", "Losses", "Win Rate", "Total P&L", "Expectancy"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, header)
		fx.SetCellStyle(sheet, cell, cell, styles.Header)
	}

	row := 2
	for name, stats := range store.StrategyStats() {
		values := []interface{}{
			name,
			stats.Trades,
			stats.Wins,
			stats.Losses,
			stats.WinRate(),
			stats.TotalPnL,
			stats.Expectancy(),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			fx.SetCellValue(sheet, cell, value)
		}

		cell, _ := excelize.CoordinatesToCellName(5, row)
		fx.SetCellStyle(sheet, cell, cell, styles.Percent)
		for _, col := range []int{6, 7} {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			fx.SetCellStyle(sheet, cell, cell, styles.Currency)
		}
		row++
	}

	fx.SetColWidth(sheet, "A", "G", 14)
	return nil
}
