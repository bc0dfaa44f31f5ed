package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/config"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/detector"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/engine"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/inventory"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/logger"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/marketdata"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/news"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/storage"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("Failed to load timezone %s: %v", cfg.Monitor.Timezone, err)
	}

	store, err := storage.New(cfg.Storage.MaxAlerts, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	marketClient := marketdata.NewClient(
		cfg.Market.ChartAPIURL,
		cfg.Market.Symbol,
		cfg.Market.Timeout,
		cfg.Market.MaxRetries,
	)

	var newsClient engine.NewsSource
	if cfg.News.Enabled {
		newsClient = news.NewClient(cfg.News.FeedURL, cfg.News.Timeout)
	}

	var invClient detector.InventorySource
	if cfg.Macro.Enabled && !cfg.Inventory.SimulateActual {
		invClient = inventory.NewClient(
			cfg.Inventory.APIURL,
			cfg.Inventory.SeriesID,
			cfg.Inventory.APIKey,
			cfg.Inventory.Timeout,
		)
	}

	detectors, err := buildDetectors(cfg, invClient)
	if err != nil {
		logger.Fatal("Failed to build detectors: %v", err)
	}

	var telegramClient *telegram.Client
	var notifier engine.Notifier
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		telegramClient.SetAlertHistory(store)
		notifier = telegramClient
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	eng := engine.New(marketClient, newsClient, notifier, store,
		engine.SystemClock(), loc, detectors, engine.Config{
			Interval:           cfg.Market.Interval,
			LookbackBars:       cfg.Market.LookbackBars,
			CheckpointInterval: cfg.Monitor.CheckpointInterval,
			NewsEnabled:        cfg.News.Enabled,
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		eng.Shutdown()
		cancel()
	}()

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
		if err := telegramClient.SendStartup(cfg.Monitor.Timezone); err != nil {
			logger.Warn("Failed to send startup notification: %v", err)
		}
	}

	logger.Info("Starting monitoring service (interval: %v, symbol: %s, timezone: %s, detectors: %d)",
		cfg.Monitor.PollInterval, cfg.Market.Symbol, cfg.Monitor.Timezone, len(detectors))

	ticker := time.NewTicker(cfg.Monitor.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Monitoring cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
			if consecutiveFailures >= cfg.Monitor.MaxConsecutiveFailures {
				// Never die silently: one final notification, then exit.
				if telegramClient != nil {
					if sendErr := telegramClient.SendFatal(err, consecutiveFailures); sendErr != nil {
						logger.Warn("Failed to send fatal notification to Telegram: %v", sendErr)
					}
				}
				eng.Shutdown()
				logger.Fatal("Aborting after %d consecutive cycle failures: %v", consecutiveFailures, err)
			}
		} else {
			if consecutiveFailures > 0 && telegramClient != nil {
				if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
					logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
				}
			}
			consecutiveFailures = 0
		}
	}

	logger.Debug("Running initial monitoring cycle")
	handleCycleResult(eng.RunCycle(ctx))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled monitoring cycle")
			handleCycleResult(eng.RunCycle(ctx))
		}
	}
}

// buildDetectors assembles the detector set in its fixed execution order.
func buildDetectors(cfg *config.Config, invClient detector.InventorySource) ([]detector.Detector, error) {
	session, err := detector.NewSession(cfg.Sessions)
	if err != nil {
		return nil, err
	}

	detectors := []detector.Detector{
		session,
		&detector.Volatility{
			ThresholdPct: cfg.Monitor.Volatility1hPct,
			Cooldown:     cfg.Monitor.VolCooldown,
		},
		&detector.RSIExtreme{
			Period:     cfg.Monitor.RSIPeriod,
			Overbought: cfg.Monitor.RSIOverbought,
			Oversold:   cfg.Monitor.RSIOversold,
		},
		&detector.Breakout{
			Lookback: cfg.Monitor.BreakoutLookback,
			Cooldown: cfg.Monitor.BreakoutCooldown,
		},
		&detector.Reversal{
			Period:     cfg.Monitor.RSIPeriod,
			Overbought: cfg.Monitor.RSIOverbought,
			Oversold:   cfg.Monitor.RSIOversold,
			Margin:     cfg.Monitor.RSIMargin,
			Cooldown:   cfg.Monitor.ReversalCooldown,
		},
	}

	if cfg.Macro.Enabled {
		macro, err := detector.NewMacro(cfg.Macro, cfg.Inventory, invClient)
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, macro)
	}

	if cfg.News.Enabled {
		detectors = append(detectors, &detector.News{Keywords: cfg.News.Keywords})
	}

	if cfg.Digest.Enabled {
		digest, err := detector.NewDigest(cfg.Digest, cfg.Monitor, cfg.Inventory)
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, digest)
	}

	return detectors, nil
}
