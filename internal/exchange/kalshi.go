package exchange

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/gw/pm-maker/internal/config"
)

// Kalshi trades binary markets in whole cents; prices are converted to
// dollar probabilities at this boundary. The market ticker doubles as the
// outcome ID: quoting the YES side of one market.
type Kalshi struct {
	cfg            *config.Config
	privKey        *rsa.PrivateKey
	http           *http.Client
	baseURL        string
	basePathPrefix string
}

func NewKalshi(cfg *config.Config) (*Kalshi, error) {
	var key *rsa.PrivateKey
	if !cfg.DryRun {
		var err error
		key, err = loadPrivateKey(cfg.KalshiPrivKeyPath)
		if err != nil {
			return nil, fmt.Errorf("loading kalshi key: %w", err)
		}
	}

	parsed, err := url.Parse(cfg.KalshiBaseURL())
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	return &Kalshi{
		cfg:            cfg,
		privKey:        key,
		http:           newHTTPClient(),
		baseURL:        cfg.KalshiBaseURL(),
		basePathPrefix: parsed.Path,
	}, nil
}

// --- API types ---

type kalshiMarket struct {
	Ticker       string `json:"ticker"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	LastPrice    int    `json:"last_price"`
	Volume       int    `json:"volume"`
	Liquidity    int    `json:"liquidity"`
	OpenInterest int    `json:"open_interest"`
}

type kalshiOrder struct {
	OrderID           string `json:"order_id"`
	Ticker            string `json:"ticker"`
	Action            string `json:"action"` // "buy" or "sell"
	Side              string `json:"side"`   // "yes" or "no"
	YesPrice          int    `json:"yes_price"`
	Quantity          int    `json:"quantity"`
	FilledQuantity    int    `json:"filled_quantity"`
	RemainingQuantity int    `json:"remaining_quantity"`
	Status            string `json:"status"` // "resting", "canceled", "executed", "pending"
}

// --- Exchange implementation ---

func (k *Kalshi) FindMarket(ctx context.Context, query string, index int) (*Market, error) {
	params := url.Values{}
	params.Set("status", "open")
	params.Set("limit", "200")

	var result struct {
		Markets []kalshiMarket `json:"markets"`
	}
	if err := k.get(ctx, "/markets", params, &result); err != nil {
		return nil, fmt.Errorf("searching markets: %w", err)
	}

	var matches []kalshiMarket
	for _, m := range result.Markets {
		if strings.Contains(strings.ToLower(m.Title), strings.ToLower(query)) {
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no markets found for query: %q", query)
	}
	if index >= len(matches) {
		return nil, fmt.Errorf("market index %d out of range (found %d markets)", index, len(matches))
	}

	m := matches[index]
	return &Market{
		ID:           m.Ticker,
		Title:        m.Title,
		OutcomeID:    m.Ticker,
		OutcomePrice: centsToDollars(m.LastPrice),
		Volume:       float64(m.Volume),
		Liquidity:    centsToDollars(m.Liquidity),
	}, nil
}

func (k *Kalshi) FetchOrderBook(ctx context.Context, outcomeID string) (*OrderBook, error) {
	var result struct {
		Orderbook struct {
			Yes [][2]int `json:"yes"`
			No  [][2]int `json:"no"`
		} `json:"orderbook"`
	}
	path := fmt.Sprintf("/markets/%s/orderbook", outcomeID)
	if err := k.get(ctx, path, nil, &result); err != nil {
		return nil, fmt.Errorf("fetching orderbook: %w", err)
	}

	// The venue reports resting YES bids and resting NO bids. A NO bid at
	// price p is a YES ask at 100-p.
	book := &OrderBook{}
	for _, lvl := range result.Orderbook.Yes {
		book.Bids = append(book.Bids, Level{Price: centsToDollars(lvl[0]), Size: float64(lvl[1])})
	}
	for _, lvl := range result.Orderbook.No {
		book.Asks = append(book.Asks, Level{Price: centsToDollars(100 - lvl[0]), Size: float64(lvl[1])})
	}
	sort.Slice(book.Bids, func(i, j int) bool { return book.Bids[i].Price > book.Bids[j].Price })
	sort.Slice(book.Asks, func(i, j int) bool { return book.Asks[i].Price < book.Asks[j].Price })
	return book, nil
}

func (k *Kalshi) FetchPosition(ctx context.Context, outcomeID string) (int, error) {
	params := url.Values{}
	params.Set("ticker", outcomeID)

	var result struct {
		MarketPositions []struct {
			Ticker   string `json:"ticker"`
			Position int    `json:"position"` // signed: positive YES, negative NO
		} `json:"market_positions"`
	}
	if err := k.get(ctx, "/portfolio/positions", params, &result); err != nil {
		return 0, fmt.Errorf("fetching positions: %w", err)
	}

	for _, p := range result.MarketPositions {
		if p.Ticker == outcomeID {
			return p.Position, nil
		}
	}
	return 0, nil
}

func (k *Kalshi) FetchOpenOrders(ctx context.Context, marketID string) ([]OpenOrder, error) {
	params := url.Values{}
	params.Set("ticker", marketID)
	params.Set("status", "resting")
	params.Set("limit", "200")

	var result struct {
		Orders []kalshiOrder `json:"orders"`
	}
	if err := k.get(ctx, "/portfolio/orders", params, &result); err != nil {
		return nil, fmt.Errorf("fetching open orders: %w", err)
	}

	orders := make([]OpenOrder, 0, len(result.Orders))
	for _, o := range result.Orders {
		orders = append(orders, kalshiOrderToLocal(o))
	}
	return orders, nil
}

func (k *Kalshi) CreateOrder(ctx context.Context, marketID, outcomeID string, side Side, price float64, size int) (*OpenOrder, error) {
	payload := map[string]interface{}{
		"ticker":          outcomeID,
		"client_order_id": uuid.NewString(),
		"action":          string(side),
		"side":            "yes",
		"type":            "limit",
		"count":           size,
		"yes_price":       dollarsToCents(price),
	}

	var result struct {
		Order kalshiOrder `json:"order"`
	}
	if err := k.post(ctx, "/portfolio/orders", payload, &result); err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	return &OpenOrder{
		ID:        result.Order.OrderID,
		OutcomeID: outcomeID,
		Side:      side,
		Price:     price,
		Size:      size,
		Status:    StatusOpen,
	}, nil
}

func (k *Kalshi) CancelOrder(ctx context.Context, orderID string) error {
	if err := k.del(ctx, "/portfolio/orders/"+orderID); err != nil {
		return fmt.Errorf("canceling order %s: %w", orderID, err)
	}
	return nil
}

func (k *Kalshi) FetchOrder(ctx context.Context, orderID string) (*OrderState, error) {
	var result struct {
		Order kalshiOrder `json:"order"`
	}
	if err := k.get(ctx, "/portfolio/orders/"+orderID, nil, &result); err != nil {
		return nil, fmt.Errorf("fetching order %s: %w", orderID, err)
	}

	return &OrderState{
		Status:       kalshiStatusToLocal(result.Order.Status),
		FilledAmount: result.Order.FilledQuantity,
	}, nil
}

// --- HTTP helpers ---

func (k *Kalshi) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := getRequest(ctx, k.baseURL, path, params)
	if err != nil {
		return err
	}
	if err := k.sign(req, http.MethodGet, path); err != nil {
		return err
	}
	return doJSON(k.http, req, out)
}

func (k *Kalshi) post(ctx context.Context, path string, payload, out interface{}) error {
	req, _, err := jsonRequest(ctx, http.MethodPost, k.baseURL, path, payload)
	if err != nil {
		return err
	}
	if err := k.sign(req, http.MethodPost, path); err != nil {
		return err
	}
	return doJSON(k.http, req, out)
}

func (k *Kalshi) del(ctx context.Context, path string) error {
	req, _, err := jsonRequest(ctx, http.MethodDelete, k.baseURL, path, nil)
	if err != nil {
		return err
	}
	if err := k.sign(req, http.MethodDelete, path); err != nil {
		return err
	}
	return doJSON(k.http, req, nil)
}

func (k *Kalshi) sign(req *http.Request, method, path string) error {
	if k.privKey == nil {
		return nil // dry run never reaches authenticated endpoints
	}
	headers, err := authHeaders(k.cfg.KalshiAPIKeyID, k.privKey, method, k.basePathPrefix+path)
	if err != nil {
		return err
	}
	for key, v := range headers {
		req.Header.Set(key, v)
	}
	return nil
}

// --- helpers ---

func centsToDollars(c int) float64 { return float64(c) / 100.0 }

func dollarsToCents(d float64) int { return int(d*100 + 0.5) }

func kalshiOrderToLocal(o kalshiOrder) OpenOrder {
	side := Buy
	if o.Action == "sell" {
		side = Sell
	}
	return OpenOrder{
		ID:        o.OrderID,
		OutcomeID: o.Ticker,
		Side:      side,
		Price:     centsToDollars(o.YesPrice),
		Size:      o.Quantity,
		Status:    kalshiStatusToLocal(o.Status),
	}
}

func kalshiStatusToLocal(status string) OrderStatus {
	switch status {
	case "executed":
		return StatusFilled
	case "canceled":
		return StatusCanceled
	default:
		return StatusOpen
	}
}
