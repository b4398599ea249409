package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/allocator"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/engine"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/exitengine"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/logger"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/marketdata"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/monitoring"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/notifications"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/position"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/regime"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/risk"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/state"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/strategy"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/pkg/config"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/pkg/reporting"
)

func main() {
	var (
		configPath = flag.String("config", "config.json", "Path to engine configuration file")
		envFile    = flag.String("env", ".env", "Path to environment file")
	)
	flag.Parse()

	// Load environment file if present; real env vars still win.
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load env file %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	if err := run(cfg); err != nil && err != context.Canceled {
		log.Fatalf("❌ Engine error: %v", err)
	}
}

func run(cfg *config.Config) error {
	fileLog, err := logger.NewLogger(cfg.Session)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer fileLog.Close()

	persist := state.NewPersistence(fileLog, cfg.Persistence.StateDir, cfg.Session)
	if err := persist.Initialize(); err != nil {
		return err
	}

	store := position.NewStore(cfg.InitialCapital)

	riskCfg := risk.DefaultConfig()
	riskCfg.MaxDailyLossPct = cfg.Risk.MaxDailyLossPct
	riskCfg.MinorDrawdownPct = cfg.Risk.MinorDrawdownPct
	riskCfg.MajorDrawdownPct = cfg.Risk.MajorDrawdownPct
	riskCfg.HardDrawdownPct = cfg.Risk.HardDrawdownPct
	riskCfg.PauseDuration = time.Duration(cfg.Risk.PauseHours) * time.Hour
	riskCfg.MarketCrashPct = cfg.Risk.MarketCrashPct
	guardrails := risk.New(riskCfg, cfg.InitialCapital)

	alloc := allocator.New(allocator.Config{
		MaxRiskPerTrade:  cfg.Allocator.MaxRiskPerTrade,
		KellyScale:       cfg.Allocator.KellyScale,
		KellyMinTrades:   cfg.Allocator.KellyMinTrades,
		MaxPositionPct:   cfg.Allocator.MaxPositionPct,
		MinPositionValue: cfg.Allocator.MinPositionValue,
	})

	strategies := strategy.DefaultRegistry()

	detectorCfg := regime.DefaultDetectorConfig()
	detectorCfg.CheckInterval = time.Duration(cfg.Regime.CheckIntervalMinutes) * time.Minute
	detector := regime.NewDetector(detectorCfg)

	market := marketdata.NewBybitSource(marketdata.BybitConfig{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		Testnet:   cfg.Exchange.Testnet,
		Category:  cfg.Exchange.Category,
	})

	health := monitoring.NewHealthChecker()

	eng, err := engine.New(engine.Config{
		CycleInterval:     cfg.CycleInterval(),
		PriceWorkers:      cfg.Engine.PriceWorkers,
		OpportunityBuffer: cfg.Engine.OpportunityBuffer,
		BenchmarkSymbol:   cfg.Engine.BenchmarkSymbol,
		BenchmarkBars:     cfg.Engine.BenchmarkBars,
	}, engine.Deps{
		Store:      store,
		Allocator:  alloc,
		Guardrails: guardrails,
		Exits:      exitengine.New(store, strategies, fileLog),
		Detector:   detector,
		Router:     regime.NewRouter(),
		Strategies: strategies,
		Market:     market,
		Persist:    persist,
		Log:        fileLog,
		Health:     health,
	})
	if err != nil {
		return err
	}

	if notifier := buildNotifier(cfg); notifier != nil {
		eng.AddObserver(engine.NewNotificationObserver(notifier))
	}

	// Resume the previous session if a snapshot exists.
	loaded, err := persist.Load()
	if err != nil {
		fileLog.Warning("could not load previous state, starting clean: %v", err)
	} else if err := eng.RestoreState(loaded); err != nil {
		return fmt.Errorf("failed to restore state: %w", err)
	}

	if cfg.Monitoring.Enabled {
		startMonitoringServers(cfg, health)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("🚀 Risk engine running (session %s, capital $%.2f)", cfg.Session, store.TotalCapital())
	err = eng.Run(ctx)

	// Final summary on the way out.
	console := reporting.NewConsoleReporter()
	console.PrintPortfolioSummary(store)
	console.PrintStrategyStats(store)

	return err
}

func buildNotifier(cfg *config.Config) notifications.Notifier {
	var notifiers []notifications.Notifier
	if cfg.Notifications.TelegramToken != "" && cfg.Notifications.TelegramChatID != "" {
		notifiers = append(notifiers,
			notifications.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID))
	}
	if cfg.Notifications.DiscordWebhook != "" {
		notifiers = append(notifiers,
			notifications.NewDiscordNotifier(cfg.Notifications.DiscordWebhook))
	}

	switch len(notifiers) {
	case 0:
		log.Println("Notifications disabled (no Telegram or Discord configured)")
		return nil
	case 1:
		return notifiers[0]
	default:
		return notifications.NewMultiNotifier(notifiers...)
	}
}

func startMonitoringServers(cfg *config.Config, health *monitoring.HealthChecker) {
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
		mux := http.NewServeMux()
		mux.Handle("/metrics", monitoring.NewMetricsHandler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("Metrics server stopped: %v", err)
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.HealthPort)
		mux := http.NewServeMux()
		mux.Handle("/health", health)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("Health server stopped: %v", err)
		}
	}()
}
