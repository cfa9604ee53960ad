package maker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gw/pm-maker/internal/config"
	"github.com/gw/pm-maker/internal/exchange"
	"github.com/gw/pm-maker/internal/journal"
)

// Stats accumulates over the process lifetime; reset only on restart.
type Stats struct {
	TotalProfit     float64
	TradesCompleted int
}

// OrderManager owns the two live order slots (bid, ask) and drives each
// through EMPTY → PLACED → (FILLED | CANCELED) → EMPTY. Fills are the only
// events that mutate inventory and statistics.
type OrderManager struct {
	exch   exchange.Exchange
	cfg    *config.Config
	market *exchange.Market
	inv    *Inventory
	stats  *Stats

	store     *journal.Store // may be nil
	sessionID int64

	bid *exchange.OpenOrder
	ask *exchange.OpenOrder
}

func NewOrderManager(exch exchange.Exchange, cfg *config.Config, market *exchange.Market, inv *Inventory, stats *Stats) *OrderManager {
	return &OrderManager{
		exch:   exch,
		cfg:    cfg,
		market: market,
		inv:    inv,
		stats:  stats,
	}
}

// SetJournal attaches a session journal. Recording failures are logged and
// never affect the state machine.
func (om *OrderManager) SetJournal(store *journal.Store, sessionID int64) {
	om.store = store
	om.sessionID = sessionID
}

// CancelAll cancels every open order for the managed outcome, best effort:
// an individual cancel failure is logged and the rest proceed. Both local
// slots are reset regardless; cancels are idempotent at the venue and the
// next cycle re-attempts anything left resting.
func (om *OrderManager) CancelAll(ctx context.Context) {
	if om.cfg.DryRun {
		om.bid, om.ask = nil, nil
		return
	}

	open, err := om.exch.FetchOpenOrders(ctx, om.market.ID)
	if err != nil {
		slog.Warn("could not fetch open orders", "err", err)
		om.bid, om.ask = nil, nil
		return
	}

	for _, o := range open {
		if o.OutcomeID != om.market.OutcomeID {
			continue
		}
		if err := om.exch.CancelOrder(ctx, o.ID); err != nil {
			slog.Warn("cancel failed", "order", o.ID, "err", err)
			continue
		}
		slog.Debug("canceled order", "order", o.ID, "side", o.Side)
	}

	om.bid, om.ask = nil, nil
}

// Place submits a limit order and fills the matching slot. On venue failure
// the slot stays empty; the next cycle retries naturally.
func (om *OrderManager) Place(ctx context.Context, side exchange.Side, price float64, size int) {
	var order *exchange.OpenOrder
	if om.cfg.DryRun {
		order = &exchange.OpenOrder{
			ID:        "dry-run-" + uuid.NewString(),
			OutcomeID: om.market.OutcomeID,
			Side:      side,
			Price:     price,
			Size:      size,
			Status:    exchange.StatusOpen,
		}
		slog.Info("[dry run] would place order", "side", side, "size", size, "price", price)
	} else {
		var err error
		order, err = om.exch.CreateOrder(ctx, om.market.ID, om.market.OutcomeID, side, price, size)
		if err != nil {
			slog.Warn("order placement failed", "side", side, "price", price, "err", err)
			return
		}
		slog.Info("placed order", "side", side, "size", size, "price", price, "order", order.ID)
	}

	if side == exchange.Buy {
		om.bid = order
	} else {
		om.ask = order
	}
}

// ReconcileFills queries the venue for each non-empty slot and applies any
// fill to inventory, profit, and the trade counter. Runs before quoting so
// the cycle's inventory reflects the latest observed fills. Query failures
// leave the slot unchanged.
func (om *OrderManager) ReconcileFills(ctx context.Context) {
	if om.cfg.DryRun {
		return
	}
	om.bid = om.reconcileSlot(ctx, om.bid, exchange.Buy)
	om.ask = om.reconcileSlot(ctx, om.ask, exchange.Sell)
}

func (om *OrderManager) reconcileSlot(ctx context.Context, order *exchange.OpenOrder, side exchange.Side) *exchange.OpenOrder {
	if order == nil {
		return nil
	}

	state, err := om.exch.FetchOrder(ctx, order.ID)
	if err != nil {
		slog.Warn("could not check order status", "order", order.ID, "err", err)
		return order
	}
	if state.Status != exchange.StatusFilled {
		return order
	}

	slog.Info("order filled", "side", side, "order", order.ID, "amount", state.FilledAmount)

	if side == exchange.Buy {
		om.inv.Apply(state.FilledAmount)
	} else {
		om.inv.Apply(-state.FilledAmount)

		// Profit is credited only when a sell completes a round trip, so
		// the very first fill of a run never counts even if it is a sell.
		if om.stats.TradesCompleted > 0 {
			profit := om.cfg.TargetSpread * float64(state.FilledAmount)
			om.stats.TotalProfit += profit
			slog.Info("round trip completed", "profit", profit)
		}
	}
	om.stats.TradesCompleted++

	om.recordFill(ctx, order, side, state.FilledAmount)
	return nil
}

func (om *OrderManager) recordFill(ctx context.Context, order *exchange.OpenOrder, side exchange.Side, amount int) {
	if om.store == nil {
		return
	}
	err := om.store.RecordFill(ctx, &journal.Fill{
		SessionID: om.sessionID,
		Time:      time.Now(),
		OrderID:   order.ID,
		Side:      string(side),
		Price:     order.Price,
		Size:      amount,
	})
	if err != nil {
		slog.Warn("journal write failed", "err", err)
	}
}

// OpenSlots reports the current (bid, ask) slots; nil means EMPTY.
func (om *OrderManager) OpenSlots() (bid, ask *exchange.OpenOrder) {
	return om.bid, om.ask
}
