package maker

import (
	"github.com/gw/pm-maker/internal/config"
	"github.com/gw/pm-maker/internal/exchange"
)

// Valid quote prices for a binary outcome.
const (
	priceFloor = 0.01
	priceCeil  = 0.99
)

// Quote is one cycle's bid/ask pair. Immutable once computed.
type Quote struct {
	Bid float64
	Ask float64
}

// Spread returns ask minus bid.
func (q Quote) Spread() float64 { return q.Ask - q.Bid }

// FairPrice estimates true value as the book midpoint. A missing book or an
// empty side falls back to lastKnown (the last traded/quoted price for the
// outcome). Never fails; the result is always in [0, 1].
func FairPrice(book *exchange.OrderBook, lastKnown float64) float64 {
	if book == nil {
		return clampUnit(lastKnown)
	}
	bestBid, okBid := book.BestBid()
	bestAsk, okAsk := book.BestAsk()
	if !okBid || !okAsk {
		return clampUnit(lastKnown)
	}
	return clampUnit((bestBid.Price + bestAsk.Price) / 2)
}

// ComputeQuote derives the bid/ask pair around fair with the inventory skew
// applied, clamped to [0.01, 0.99] and re-widened to the minimum spread.
// Pure function of its arguments.
func ComputeQuote(fair float64, inventory int, cfg *config.Config) Quote {
	// Long inventory pushes both quotes down to encourage selling; short
	// pushes them up to encourage buying.
	skew := 0.0
	if abs(inventory) > cfg.RebalanceThreshold {
		skew = -float64(inventory) * cfg.InventoryAdjustmentFactor
	}

	adjusted := fair + skew
	bid := clampPrice(adjusted - cfg.TargetSpread/2)
	ask := clampPrice(adjusted + cfg.TargetSpread/2)

	if ask-bid < cfg.MinSpread {
		// Recenter around the clamped pair and re-widen symmetrically.
		mid := (bid + ask) / 2
		half := cfg.MinSpread / 2
		bid = clampPrice(mid - half)
		ask = clampPrice(mid + half)

		// Recentering may have pushed one side against a bound; pin that
		// side and take the full spread from the other.
		if ask-bid < cfg.MinSpread {
			if bid <= priceFloor {
				bid = priceFloor
				ask = clampPrice(bid + cfg.MinSpread)
			} else if ask >= priceCeil {
				ask = priceCeil
				bid = clampPrice(ask - cfg.MinSpread)
			}
		}
	}

	return Quote{Bid: bid, Ask: ask}
}

func clampPrice(p float64) float64 {
	if p < priceFloor {
		return priceFloor
	}
	if p > priceCeil {
		return priceCeil
	}
	return p
}

func clampUnit(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
