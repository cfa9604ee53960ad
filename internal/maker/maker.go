// Package maker implements the quoting-and-inventory engine: fair price
// from the book, inventory-skewed quotes, the two order slots, and the
// single-threaded polling loop that drives them.
package maker

import (
	"context"
	"log/slog"
	"time"

	"github.com/gw/pm-maker/internal/config"
	"github.com/gw/pm-maker/internal/exchange"
	"github.com/gw/pm-maker/internal/feed"
	"github.com/gw/pm-maker/internal/journal"
)

// MarketMaker runs one strategy on one outcome. All mutable state (position,
// order slots, statistics) is owned by the loop goroutine; cycles never
// overlap, so no locking is needed.
type MarketMaker struct {
	cfg    *config.Config
	exch   exchange.Exchange
	market *exchange.Market
	ref    feed.ReferenceFeed // may be nil
	store  *journal.Store     // may be nil

	sessionID int64
	inv       *Inventory
	orders    *OrderManager
	stats     Stats

	// lastFair is the most recent fair price, seeded from the market
	// snapshot. It is the fallback when the book has an empty side and no
	// fresh feed price exists.
	lastFair float64
}

func New(cfg *config.Config, exch exchange.Exchange, market *exchange.Market, ref feed.ReferenceFeed, store *journal.Store) *MarketMaker {
	inv := NewInventory(exch, market.OutcomeID)
	m := &MarketMaker{
		cfg:      cfg,
		exch:     exch,
		market:   market,
		ref:      ref,
		store:    store,
		inv:      inv,
		lastFair: market.OutcomePrice,
	}
	m.orders = NewOrderManager(exch, cfg, market, inv, &m.stats)
	return m
}

// Stats returns the accumulated run statistics.
func (m *MarketMaker) Stats() Stats { return m.stats }

// Run executes quoting cycles until ctx is canceled, then cancels resting
// orders and reports final statistics.
func (m *MarketMaker) Run(ctx context.Context) error {
	slog.Info("market maker starting",
		"platform", m.cfg.Platform,
		"market", m.market.Title,
		"outcome", m.market.OutcomeID,
		"target_spread", m.cfg.TargetSpread,
		"order_size", m.cfg.OrderSize,
		"max_inventory", m.cfg.MaxInventory,
		"interval", m.cfg.UpdateInterval,
		"dry_run", m.cfg.DryRun,
	)
	if m.cfg.DryRun {
		slog.Warn("dry run mode — no real orders will be placed")
	}

	if m.store != nil {
		id, err := m.store.BeginSession(ctx, m.cfg.Platform, m.market.Title, m.cfg.DryRun)
		if err != nil {
			slog.Warn("could not begin journal session", "err", err)
		} else {
			m.sessionID = id
			m.orders.SetJournal(m.store, id)
		}
	}

	ticker := time.NewTicker(m.cfg.UpdateInterval)
	defer ticker.Stop()

	m.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			m.teardown()
			return ctx.Err()
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick is one quoting cycle: reconcile fills, refresh the position, and if
// under the inventory cap replace both quotes around the new fair price.
func (m *MarketMaker) tick(ctx context.Context) {
	m.orders.ReconcileFills(ctx)

	position := m.inv.Refresh(ctx)
	slog.Info("cycle", "inventory", position)

	if m.inv.AtCapacity(m.cfg.MaxInventory) {
		slog.Warn("max inventory reached, pausing quoting", "position", position, "cap", m.cfg.MaxInventory)
		m.orders.CancelAll(ctx)
		return
	}

	book, err := m.exch.FetchOrderBook(ctx, m.market.OutcomeID)
	if err != nil {
		slog.Warn("could not fetch order book, skipping cycle", "err", err)
		return
	}

	fair := FairPrice(book, m.referencePrice())
	m.lastFair = fair

	quote := ComputeQuote(fair, position, m.cfg)
	slog.Info("quoting", "fair", fair, "bid", quote.Bid, "ask", quote.Ask, "spread", quote.Spread())

	m.orders.CancelAll(ctx)
	m.orders.Place(ctx, exchange.Buy, quote.Bid, m.cfg.OrderSize)
	m.orders.Place(ctx, exchange.Sell, quote.Ask, m.cfg.OrderSize)

	m.recordCycle(ctx, fair, quote, position)

	if m.stats.TradesCompleted > 0 {
		slog.Info("stats",
			"trades", m.stats.TradesCompleted,
			"profit", m.stats.TotalProfit,
			"avg_profit", m.stats.TotalProfit/float64(m.stats.TradesCompleted),
		)
	}
}

// referencePrice prefers a fresh feed price over the last computed fair.
func (m *MarketMaker) referencePrice() float64 {
	if m.ref != nil && !m.ref.IsStale() {
		return m.ref.LastPrice()
	}
	return m.lastFair
}

func (m *MarketMaker) recordCycle(ctx context.Context, fair float64, quote Quote, inventory int) {
	if m.store == nil || m.sessionID == 0 {
		return
	}
	err := m.store.RecordCycle(ctx, &journal.Cycle{
		SessionID: m.sessionID,
		Time:      time.Now(),
		Fair:      fair,
		Bid:       quote.Bid,
		Ask:       quote.Ask,
		Inventory: inventory,
	})
	if err != nil {
		slog.Warn("journal write failed", "err", err)
	}
}

// teardown runs after the stop signal: one final cancel pass and the
// end-of-run report. Uses a fresh context since the loop's is canceled.
func (m *MarketMaker) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping, cancelling open orders")
	m.orders.CancelAll(ctx)

	slog.Info("final statistics",
		"trades", m.stats.TradesCompleted,
		"profit", m.stats.TotalProfit,
		"ending_inventory", m.inv.Position(),
	)
	if m.stats.TradesCompleted > 0 {
		slog.Info("avg profit per trade", "value", m.stats.TotalProfit/float64(m.stats.TradesCompleted))
	}

	if m.store != nil && m.sessionID != 0 {
		if err := m.store.EndSession(ctx, m.sessionID, m.stats.TradesCompleted, m.stats.TotalProfit, m.inv.Position()); err != nil {
			slog.Warn("could not close journal session", "err", err)
		}
	}
}
