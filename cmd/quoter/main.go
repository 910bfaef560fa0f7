package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/quotelab/kalshi-avellaneda/internal/adapters/inbound/kalshi_ws"
	"github.com/quotelab/kalshi-avellaneda/internal/adapters/kalshi_auth"
	"github.com/quotelab/kalshi-avellaneda/internal/adapters/outbound/kalshi_http"
	"github.com/quotelab/kalshi-avellaneda/internal/config"
	"github.com/quotelab/kalshi-avellaneda/internal/core/quote"
	"github.com/quotelab/kalshi-avellaneda/internal/core/reconcile"
	"github.com/quotelab/kalshi-avellaneda/internal/core/strategy"
	"github.com/quotelab/kalshi-avellaneda/internal/events"
	"github.com/quotelab/kalshi-avellaneda/internal/journal"
	"github.com/quotelab/kalshi-avellaneda/internal/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))

	configPath := flag.String("config", cfg.StrategiesPath, "path to the strategies YAML file")
	flag.Parse()

	telemetry.Infof("Starting quoter  env=%s  api=%s", cfg.Env, cfg.KalshiBaseURL)

	strategies, err := config.LoadStrategies(*configPath)
	if err != nil {
		telemetry.Errorf("Strategies config: %v", err)
		os.Exit(1)
	}

	// ── Kalshi auth + clients ───────────────────────────────────
	signer, err := kalshi_auth.NewSignerFromFile(cfg.KalshiKeyID, cfg.KalshiKeyFile)
	if err != nil {
		telemetry.Errorf("Kalshi auth: %v", err)
		os.Exit(1)
	}

	client := kalshi_http.NewClient(cfg.KalshiBaseURL, signer, cfg.MinCallInterval)
	gateway := kalshi_http.NewGateway(client)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if balance, err := client.GetBalance(ctx); err != nil {
		telemetry.Warnf("Balance fetch failed: %v", err)
	} else {
		telemetry.Infof("[Kalshi] balance: $%.2f", float64(balance)/100.0)
	}

	// ── Event bus + journal ─────────────────────────────────────
	bus := events.NewBus()

	if cfg.JournalPath != "" {
		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			telemetry.Warnf("Journal disabled: %v", err)
		} else {
			store.Subscribe(bus)
			defer store.Close()
			telemetry.Infof("Journal at %s", cfg.JournalPath)
		}
	}

	// ── Ticker feed (observational) ─────────────────────────────
	ws := kalshi_ws.NewClient(cfg.KalshiWSURL, signer, bus)
	markets := make([]string, 0, len(strategies))
	for _, sc := range strategies {
		markets = append(markets, sc.MarketTicker)
	}
	if err := ws.SubscribeTickers(markets); err != nil {
		telemetry.Warnf("Kalshi WS subscribe: %v", err)
	}
	go func() {
		if err := ws.Connect(ctx); err != nil {
			telemetry.Warnf("Kalshi WS: %v", err)
		}
	}()

	// ── Strategy fan-out ────────────────────────────────────────
	telemetry.Infof("Starting %d strategies:", len(strategies))

	var wg sync.WaitGroup
	for name, sc := range strategies {
		telemetry.Infof("- %s  market=%s side=%s", name, sc.MarketTicker, sc.TradeSide)

		log, err := telemetry.OpenStrategyLogger(name, cfg.LogDir, telemetry.ParseLogLevel(sc.LogLevel))
		if err != nil {
			telemetry.Errorf("Strategy %s logger: %v", name, err)
			os.Exit(1)
		}

		engine, err := quote.NewEngine(sc.Params())
		if err != nil {
			telemetry.Errorf("Strategy %s: %v", name, err)
			os.Exit(1)
		}

		rec := reconcile.New(gateway, bus, log, reconcile.Config{
			Strategy:   name,
			MarketID:   sc.MarketTicker,
			TradeSide:  engine.Side(),
			Expiration: sc.Expiration(),
		})
		loop := strategy.NewLoop(strategy.LoopConfig{
			Name:     name,
			MarketID: sc.MarketTicker,
			Interval: sc.Interval(),
			Horizon:  sc.Horizon(),
		}, gateway, engine, rec, bus, log)

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer log.Close()
			if err := loop.Run(ctx); err != nil {
				log.Errorf("run: %v", err)
			}
		}()
	}

	wg.Wait()

	telemetry.Infof("All strategies stopped  cycles=%d  placed=%d  cancelled=%d  rejected=%d  skipped=%d",
		telemetry.Metrics.QuoteCycles.Value(),
		telemetry.Metrics.OrdersPlaced.Value(),
		telemetry.Metrics.OrdersCancelled.Value(),
		telemetry.Metrics.OrderRejections.Value(),
		telemetry.Metrics.PlacementsSkipped.Value(),
	)
}
