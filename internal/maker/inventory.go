package maker

import (
	"context"
	"log/slog"

	"github.com/gw/pm-maker/internal/exchange"
)

// Inventory tracks the signed position for the quoted outcome. The venue's
// report is authoritative; local fills adjust the value between polls, and a
// failed query keeps the last known value (stale but available).
type Inventory struct {
	exch      exchange.Exchange
	outcomeID string
	position  int
}

func NewInventory(exch exchange.Exchange, outcomeID string) *Inventory {
	return &Inventory{exch: exch, outcomeID: outcomeID}
}

// Refresh queries the venue and returns the current position. On failure it
// logs and returns the last known value instead of propagating the error.
func (inv *Inventory) Refresh(ctx context.Context) int {
	pos, err := inv.exch.FetchPosition(ctx, inv.outcomeID)
	if err != nil {
		slog.Warn("could not fetch position, using last known", "err", err, "position", inv.position)
		return inv.position
	}
	inv.position = pos
	return pos
}

// Position returns the last known value without querying the venue.
func (inv *Inventory) Position() int { return inv.position }

// Apply adjusts the position by a confirmed fill.
func (inv *Inventory) Apply(delta int) { inv.position += delta }

// AtCapacity reports whether the position has reached the inventory cap.
func (inv *Inventory) AtCapacity(maxInventory int) bool {
	return abs(inv.position) >= maxInventory
}
