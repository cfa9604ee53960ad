package exchange

import (
	"context"
	"fmt"

	"github.com/gw/pm-maker/internal/config"
)

// Side of an order from the maker's perspective on the YES outcome.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderStatus values reported by FetchOrder.
type OrderStatus string

const (
	StatusOpen     OrderStatus = "open"
	StatusFilled   OrderStatus = "filled"
	StatusCanceled OrderStatus = "canceled"
)

// Level is one price level of an order book side.
type Level struct {
	Price float64
	Size  float64
}

// OrderBook for a single outcome. Bids are sorted descending by price and
// asks ascending, so the best quote on each side is the first element.
type OrderBook struct {
	Bids []Level
	Asks []Level
}

// BestBid returns the top bid level, or false if the side is empty.
func (b *OrderBook) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the top ask level, or false if the side is empty.
func (b *OrderBook) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

// Market is the selected market with its YES outcome.
type Market struct {
	ID           string
	Title        string
	OutcomeID    string
	OutcomePrice float64 // last traded/quoted price for the YES outcome
	Volume       float64
	Liquidity    float64
}

// OpenOrder is a live (or just-created) limit order at the venue.
type OpenOrder struct {
	ID        string
	OutcomeID string
	Side      Side
	Price     float64
	Size      int
	Status    OrderStatus
}

// OrderState is the point-in-time status of an order as reported by the venue.
type OrderState struct {
	Status       OrderStatus
	FilledAmount int
}

// Exchange is the venue collaborator the maker is polymorphic over.
// Implementations must not retry internally; the loop owns recovery policy.
type Exchange interface {
	// FindMarket searches the venue and returns the index-th match,
	// focused on its YES outcome.
	FindMarket(ctx context.Context, query string, index int) (*Market, error)

	FetchOrderBook(ctx context.Context, outcomeID string) (*OrderBook, error)

	// FetchPosition returns the signed contract count for the outcome.
	// Positive is long, negative is short; no position is 0.
	FetchPosition(ctx context.Context, outcomeID string) (int, error)

	FetchOpenOrders(ctx context.Context, marketID string) ([]OpenOrder, error)

	CreateOrder(ctx context.Context, marketID, outcomeID string, side Side, price float64, size int) (*OpenOrder, error)

	CancelOrder(ctx context.Context, orderID string) error

	FetchOrder(ctx context.Context, orderID string) (*OrderState, error)
}

// New selects the venue adapter once at construction. No other code
// branches on the platform string.
func New(cfg *config.Config) (Exchange, error) {
	switch cfg.Platform {
	case config.PlatformPolymarket:
		return NewPolymarket(cfg), nil
	case config.PlatformKalshi:
		return NewKalshi(cfg)
	case config.PlatformLimitless:
		return NewLimitless(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %q", cfg.Platform)
	}
}
