package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/position"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/state"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/pkg/reporting"
)

func main() {
	var (
		stateDir = flag.String("state-dir", "state", "Directory holding engine snapshots")
		session  = flag.String("session", "risk-engine", "Engine session name")
		outDir   = flag.String("out", "reports", "Output directory for exports")
		noExcel  = flag.Bool("no-excel", false, "Skip the Excel trade journal")
		noJSON   = flag.Bool("no-json", false, "Skip the JSON session report")
	)
	flag.Parse()

	persist := state.NewPersistence(nil, *stateDir, *session)
	loaded, err := persist.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load state: %v", err)
	}
	if loaded == nil {
		log.Fatalf("❌ No snapshot found for session %q in %s", *session, *stateDir)
	}

	store := position.NewStore(loaded.Portfolio.TotalCapital)
	if err := store.Restore(loaded.Portfolio); err != nil {
		log.Fatalf("❌ Snapshot is not restorable: %v", err)
	}

	fmt.Printf("Session %s — last updated %s, regime %s\n\n",
		*session, loaded.LastUpdated.Format("2006-01-02 15:04:05"), loaded.Regime)

	console := reporting.NewConsoleReporter()
	console.PrintPortfolioSummary(store)
	console.PrintOpenPositions(store, nil)
	console.PrintStrategyStats(store)

	stamp := time.Now().Format("20060102_150405")

	if !*noExcel {
		path := filepath.Join(*outDir, fmt.Sprintf("%s_trades_%s.xlsx", *session, stamp))
		if err := reporting.NewExcelReporter().WriteTradeJournal(store, path); err != nil {
			log.Fatalf("❌ Excel export failed: %v", err)
		}
		fmt.Printf("📊 Trade journal written to %s\n", path)
	}

	if !*noJSON {
		path := filepath.Join(*outDir, fmt.Sprintf("%s_report_%s.json", *session, stamp))
		if err := reporting.NewJSONReporter().WriteReport(store, path); err != nil {
			log.Fatalf("❌ JSON report failed: %v", err)
		}
		fmt.Printf("📄 Session report written to %s\n", path)
	}
}
