package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gw/pm-maker/internal/config"
	"github.com/gw/pm-maker/internal/exchange"
	"github.com/gw/pm-maker/internal/feed"
	"github.com/gw/pm-maker/internal/journal"
	"github.com/gw/pm-maker/internal/maker"
)

func main() {
	market := flag.String("market", "", "market search query (overrides MARKET_QUERY)")
	journalPath := flag.String("journal", "", "session journal path (overrides JOURNAL_PATH)")
	live := flag.Bool("live", false, "place real orders (overrides DRY_RUN)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Load config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	// CLI overrides
	if *market != "" {
		cfg.MarketQuery = *market
	}
	if *journalPath != "" {
		cfg.JournalPath = *journalPath
	}
	if *live {
		cfg.DryRun = false
		if err := cfg.Validate(); err != nil {
			slog.Error("config error", "err", err)
			os.Exit(1)
		}
	}

	slog.Info("market maker starting",
		"platform", cfg.Platform,
		"query", cfg.MarketQuery,
		"dry_run", cfg.DryRun,
	)

	// Init venue adapter
	exch, err := exchange.New(cfg)
	if err != nil {
		slog.Error("exchange init failed", "err", err)
		os.Exit(1)
	}

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	// Select the market to make
	mkt, err := exch.FindMarket(ctx, cfg.MarketQuery, cfg.MarketIndex)
	if err != nil {
		slog.Error("market selection failed", "err", err)
		os.Exit(1)
	}
	slog.Info("selected market",
		"title", mkt.Title,
		"id", mkt.ID,
		"outcome", mkt.OutcomeID,
		"price", mkt.OutcomePrice,
		"volume", mkt.Volume,
		"liquidity", mkt.Liquidity,
	)

	// Optional reference-price feed
	ref := feed.New(cfg, mkt.OutcomeID)
	if ref != nil {
		go func() {
			if err := ref.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("feed error", "feed", ref.Name(), "err", err)
			}
		}()
	}

	// Optional session journal
	var store *journal.Store
	if cfg.JournalPath != "" {
		store, err = journal.Open(cfg.JournalPath)
		if err != nil {
			slog.Error("journal init failed", "err", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	// Run the quoting loop until the stop signal
	m := maker.New(cfg, exch, mkt, ref, store)
	if err := m.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("market maker error", "err", err)
		os.Exit(1)
	}

	slog.Info("market maker stopped")
}
