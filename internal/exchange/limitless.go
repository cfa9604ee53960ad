package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gw/pm-maker/internal/config"
)

const limitlessBaseURL = "https://api.limitless.exchange"

// Limitless uses plain API-key header auth and quotes prices directly as
// probabilities in [0, 1].
type Limitless struct {
	cfg     *config.Config
	http    *http.Client
	baseURL string
}

func NewLimitless(cfg *config.Config) *Limitless {
	return &Limitless{
		cfg:     cfg,
		http:    newHTTPClient(),
		baseURL: limitlessBaseURL,
	}
}

// --- API types ---

type limitlessMarket struct {
	Slug      string  `json:"slug"`
	Title     string  `json:"title"`
	YesToken  string  `json:"yesTokenId"`
	LastPrice float64 `json:"lastPrice"`
	Volume    float64 `json:"volume"`
	Liquidity float64 `json:"liquidity"`
}

type limitlessLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

type limitlessOrder struct {
	ID         string  `json:"id"`
	TokenID    string  `json:"tokenId"`
	Side       string  `json:"side"`
	Price      float64 `json:"price"`
	Size       int     `json:"size"`
	FilledSize int     `json:"filledSize"`
	Status     string  `json:"status"` // "open", "filled", "cancelled"
}

// --- Exchange implementation ---

func (l *Limitless) FindMarket(ctx context.Context, query string, index int) (*Market, error) {
	params := url.Values{}
	params.Set("query", query)

	var result struct {
		Markets []limitlessMarket `json:"markets"`
	}
	if err := l.get(ctx, "/markets/search", params, &result); err != nil {
		return nil, fmt.Errorf("searching markets: %w", err)
	}

	if len(result.Markets) == 0 {
		return nil, fmt.Errorf("no markets found for query: %q", query)
	}
	if index >= len(result.Markets) {
		return nil, fmt.Errorf("market index %d out of range (found %d markets)", index, len(result.Markets))
	}

	m := result.Markets[index]
	return &Market{
		ID:           m.Slug,
		Title:        m.Title,
		OutcomeID:    m.YesToken,
		OutcomePrice: m.LastPrice,
		Volume:       m.Volume,
		Liquidity:    m.Liquidity,
	}, nil
}

func (l *Limitless) FetchOrderBook(ctx context.Context, outcomeID string) (*OrderBook, error) {
	var result struct {
		Bids []limitlessLevel `json:"bids"`
		Asks []limitlessLevel `json:"asks"`
	}
	if err := l.get(ctx, "/orderbook/"+outcomeID, nil, &result); err != nil {
		return nil, fmt.Errorf("fetching orderbook: %w", err)
	}

	book := &OrderBook{}
	for _, lvl := range result.Bids {
		book.Bids = append(book.Bids, Level{Price: lvl.Price, Size: lvl.Size})
	}
	for _, lvl := range result.Asks {
		book.Asks = append(book.Asks, Level{Price: lvl.Price, Size: lvl.Size})
	}
	sort.Slice(book.Bids, func(i, j int) bool { return book.Bids[i].Price > book.Bids[j].Price })
	sort.Slice(book.Asks, func(i, j int) bool { return book.Asks[i].Price < book.Asks[j].Price })
	return book, nil
}

func (l *Limitless) FetchPosition(ctx context.Context, outcomeID string) (int, error) {
	var result struct {
		Positions []struct {
			TokenID string  `json:"tokenId"`
			Size    float64 `json:"size"`
		} `json:"positions"`
	}
	if err := l.get(ctx, "/portfolio/positions", nil, &result); err != nil {
		return 0, fmt.Errorf("fetching positions: %w", err)
	}

	for _, p := range result.Positions {
		if p.TokenID == outcomeID {
			return int(p.Size), nil
		}
	}
	return 0, nil
}

func (l *Limitless) FetchOpenOrders(ctx context.Context, marketID string) ([]OpenOrder, error) {
	params := url.Values{}
	params.Set("market", marketID)
	params.Set("status", "open")

	var result struct {
		Orders []limitlessOrder `json:"orders"`
	}
	if err := l.get(ctx, "/orders", params, &result); err != nil {
		return nil, fmt.Errorf("fetching open orders: %w", err)
	}

	orders := make([]OpenOrder, 0, len(result.Orders))
	for _, o := range result.Orders {
		orders = append(orders, limitlessOrderToLocal(o))
	}
	return orders, nil
}

func (l *Limitless) CreateOrder(ctx context.Context, marketID, outcomeID string, side Side, price float64, size int) (*OpenOrder, error) {
	payload := map[string]interface{}{
		"market":  marketID,
		"tokenId": outcomeID,
		"side":    string(side),
		"type":    "limit",
		"price":   price,
		"size":    size,
	}

	var result struct {
		Order limitlessOrder `json:"order"`
	}
	if err := l.post(ctx, "/orders", payload, &result); err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	return &OpenOrder{
		ID:        result.Order.ID,
		OutcomeID: outcomeID,
		Side:      side,
		Price:     price,
		Size:      size,
		Status:    StatusOpen,
	}, nil
}

func (l *Limitless) CancelOrder(ctx context.Context, orderID string) error {
	req, _, err := jsonRequest(ctx, http.MethodDelete, l.baseURL, "/orders/"+orderID, nil)
	if err != nil {
		return err
	}
	l.auth(req)
	if err := doJSON(l.http, req, nil); err != nil {
		return fmt.Errorf("canceling order %s: %w", orderID, err)
	}
	return nil
}

func (l *Limitless) FetchOrder(ctx context.Context, orderID string) (*OrderState, error) {
	var result struct {
		Order limitlessOrder `json:"order"`
	}
	if err := l.get(ctx, "/orders/"+orderID, nil, &result); err != nil {
		return nil, fmt.Errorf("fetching order %s: %w", orderID, err)
	}

	return &OrderState{
		Status:       limitlessStatusToLocal(result.Order.Status),
		FilledAmount: result.Order.FilledSize,
	}, nil
}

// --- HTTP helpers ---

func (l *Limitless) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := getRequest(ctx, l.baseURL, path, params)
	if err != nil {
		return err
	}
	l.auth(req)
	return doJSON(l.http, req, out)
}

func (l *Limitless) post(ctx context.Context, path string, payload, out interface{}) error {
	req, _, err := jsonRequest(ctx, http.MethodPost, l.baseURL, path, payload)
	if err != nil {
		return err
	}
	l.auth(req)
	return doJSON(l.http, req, out)
}

func (l *Limitless) auth(req *http.Request) {
	req.Header.Set("X-API-Key", l.cfg.LimitlessAPIKey)
}

// --- helpers ---

func limitlessOrderToLocal(o limitlessOrder) OpenOrder {
	side := Buy
	if o.Side == "sell" {
		side = Sell
	}
	return OpenOrder{
		ID:        o.ID,
		OutcomeID: o.TokenID,
		Side:      side,
		Price:     o.Price,
		Size:      o.Size,
		Status:    limitlessStatusToLocal(o.Status),
	}
}

func limitlessStatusToLocal(status string) OrderStatus {
	switch strings.ToLower(status) {
	case "filled":
		return StatusFilled
	case "cancelled", "canceled":
		return StatusCanceled
	default:
		return StatusOpen
	}
}
