package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gw/pm-maker/internal/config"
)

const (
	polyGammaURL = "https://gamma-api.polymarket.com"
	polyClobURL  = "https://clob.polymarket.com"
	polyDataURL  = "https://data-api.polymarket.com"
)

// Polymarket talks to the Gamma API for market discovery, the CLOB API for
// books and orders, and the data API for positions.
type Polymarket struct {
	cfg      *config.Config
	http     *http.Client
	gammaURL string
	clobURL  string
	dataURL  string
}

func NewPolymarket(cfg *config.Config) *Polymarket {
	return &Polymarket{
		cfg:      cfg,
		http:     newHTTPClient(),
		gammaURL: polyGammaURL,
		clobURL:  polyClobURL,
		dataURL:  polyDataURL,
	}
}

// --- API types ---

// gammaMarket is a market row from the Gamma API. Prices and token IDs
// arrive as JSON-encoded strings inside strings.
type gammaMarket struct {
	ConditionID   string `json:"conditionId"`
	Question      string `json:"question"`
	OutcomePrices string `json:"outcomePrices"`
	ClobTokenIDs  string `json:"clobTokenIds"`
	Volume        string `json:"volume"`
	Liquidity     string `json:"liquidity"`
}

type clobBookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type clobBook struct {
	Bids []clobBookLevel `json:"bids"`
	Asks []clobBookLevel `json:"asks"`
}

type clobOrder struct {
	ID           string `json:"id"`
	AssetID      string `json:"asset_id"`
	Side         string `json:"side"` // "BUY" or "SELL"
	Price        string `json:"price"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	Status       string `json:"status"` // "LIVE", "MATCHED", "CANCELED"
}

type dataPosition struct {
	Asset string  `json:"asset"`
	Size  float64 `json:"size"`
}

// --- Exchange implementation ---

func (p *Polymarket) FindMarket(ctx context.Context, query string, index int) (*Market, error) {
	params := url.Values{}
	params.Set("closed", "false")
	params.Set("limit", "200")

	req, err := getRequest(ctx, p.gammaURL, "/markets", params)
	if err != nil {
		return nil, err
	}

	var rows []gammaMarket
	if err := doJSON(p.http, req, &rows); err != nil {
		return nil, fmt.Errorf("searching markets: %w", err)
	}

	var matches []gammaMarket
	for _, m := range rows {
		if strings.Contains(strings.ToLower(m.Question), strings.ToLower(query)) {
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
	tokens, err := decodeStringArray(m.ClobTokenIDs)
	if err != nil || len(tokens) == 0 {
		return nil, fmt.Errorf("market %s has no outcome tokens: %v", m.ConditionID, err)
	}
	prices, err := decodeStringArray(m.OutcomePrices)
	if err != nil || len(prices) == 0 {
		return nil, fmt.Errorf("market %s has no outcome prices: %v", m.ConditionID, err)
	}

	// First token/price pair is the YES outcome.
	yesPrice, _ := strconv.ParseFloat(prices[0], 64)
	volume, _ := strconv.ParseFloat(m.Volume, 64)
	liquidity, _ := strconv.ParseFloat(m.Liquidity, 64)

	return &Market{
		ID:           m.ConditionID,
		Title:        m.Question,
		OutcomeID:    tokens[0],
		OutcomePrice: yesPrice,
		Volume:       volume,
		Liquidity:    liquidity,
	}, nil
}

func (p *Polymarket) FetchOrderBook(ctx context.Context, outcomeID string) (*OrderBook, error) {
	params := url.Values{}
	params.Set("token_id", outcomeID)

	req, err := getRequest(ctx, p.clobURL, "/book", params)
	if err != nil {
		return nil, err
	}

	var raw clobBook
	if err := doJSON(p.http, req, &raw); err != nil {
		return nil, fmt.Errorf("fetching book: %w", err)
	}

	book := &OrderBook{
		Bids: parseLevels(raw.Bids),
		Asks: parseLevels(raw.Asks),
	}
	// CLOB levels are not guaranteed top-first.
	sort.Slice(book.Bids, func(i, j int) bool { return book.Bids[i].Price > book.Bids[j].Price })
	sort.Slice(book.Asks, func(i, j int) bool { return book.Asks[i].Price < book.Asks[j].Price })
	return book, nil
}

func (p *Polymarket) FetchPosition(ctx context.Context, outcomeID string) (int, error) {
	params := url.Values{}
	params.Set("user", p.cfg.PolyAddress)

	req, err := getRequest(ctx, p.dataURL, "/positions", params)
	if err != nil {
		return 0, err
	}

	var rows []dataPosition
	if err := doJSON(p.http, req, &rows); err != nil {
		return 0, fmt.Errorf("fetching positions: %w", err)
	}

	for _, pos := range rows {
		if pos.Asset == outcomeID {
			return int(pos.Size), nil
		}
	}
	return 0, nil
}

func (p *Polymarket) FetchOpenOrders(ctx context.Context, marketID string) ([]OpenOrder, error) {
	params := url.Values{}
	params.Set("market", marketID)

	req, err := getRequest(ctx, p.clobURL, "/data/orders", params)
	if err != nil {
		return nil, err
	}
	if err := p.sign(req, nil); err != nil {
		return nil, err
	}

	var rows []clobOrder
	if err := doJSON(p.http, req, &rows); err != nil {
		return nil, fmt.Errorf("fetching open orders: %w", err)
	}

	orders := make([]OpenOrder, 0, len(rows))
	for _, o := range rows {
		orders = append(orders, clobOrderToLocal(o))
	}
	return orders, nil
}

func (p *Polymarket) CreateOrder(ctx context.Context, marketID, outcomeID string, side Side, price float64, size int) (*OpenOrder, error) {
	payload := map[string]interface{}{
		"market":   marketID,
		"asset_id": outcomeID,
		"side":     strings.ToUpper(string(side)),
		"price":    strconv.FormatFloat(price, 'f', 2, 64),
		"size":     strconv.Itoa(size),
		"type":     "GTC",
	}

	req, body, err := jsonRequest(ctx, http.MethodPost, p.clobURL, "/order", payload)
	if err != nil {
		return nil, err
	}
	if err := p.sign(req, body); err != nil {
		return nil, err
	}

	var resp struct {
		Success bool   `json:"success"`
		OrderID string `json:"orderID"`
		Error   string `json:"errorMsg"`
	}
	if err := doJSON(p.http, req, &resp); err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("order rejected: %s", resp.Error)
	}

	return &OpenOrder{
		ID:        resp.OrderID,
		OutcomeID: outcomeID,
		Side:      side,
		Price:     price,
		Size:      size,
		Status:    StatusOpen,
	}, nil
}

func (p *Polymarket) CancelOrder(ctx context.Context, orderID string) error {
	payload := map[string]string{"orderID": orderID}

	req, body, err := jsonRequest(ctx, http.MethodDelete, p.clobURL, "/order", payload)
	if err != nil {
		return err
	}
	if err := p.sign(req, body); err != nil {
		return err
	}

	if err := doJSON(p.http, req, nil); err != nil {
		return fmt.Errorf("canceling order %s: %w", orderID, err)
	}
	return nil
}

func (p *Polymarket) FetchOrder(ctx context.Context, orderID string) (*OrderState, error) {
	req, err := getRequest(ctx, p.clobURL, "/data/order/"+orderID, nil)
	if err != nil {
		return nil, err
	}
	if err := p.sign(req, nil); err != nil {
		return nil, err
	}

	var o clobOrder
	if err := doJSON(p.http, req, &o); err != nil {
		return nil, fmt.Errorf("fetching order %s: %w", orderID, err)
	}

	matched, _ := strconv.ParseFloat(o.SizeMatched, 64)
	return &OrderState{
		Status:       clobStatusToLocal(o.Status),
		FilledAmount: int(matched),
	}, nil
}

// sign attaches the CLOB L2 auth headers: an HMAC over
// timestamp + method + path + body with the API secret.
func (p *Polymarket) sign(req *http.Request, body []byte) error {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	msg := ts + req.Method + req.URL.Path
	if len(body) > 0 {
		msg += string(body)
	}

	secret, err := base64.URLEncoding.DecodeString(p.cfg.PolyAPISecret)
	if err != nil {
		return fmt.Errorf("decoding api secret: %w", err)
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(msg))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("POLY_ADDRESS", p.cfg.PolyAddress)
	req.Header.Set("POLY_API_KEY", p.cfg.PolyAPIKey)
	req.Header.Set("POLY_PASSPHRASE", p.cfg.PolyPassphrase)
	req.Header.Set("POLY_TIMESTAMP", ts)
	req.Header.Set("POLY_SIGNATURE", sig)
	return nil
}

// --- helpers ---

// decodeStringArray parses Gamma's stringified JSON arrays, e.g.
// "[\"0.52\", \"0.48\"]".
func decodeStringArray(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func parseLevels(raw []clobBookLevel) []Level {
	levels := make([]Level, 0, len(raw))
	for _, l := range raw {
		price, err1 := strconv.ParseFloat(l.Price, 64)
		size, err2 := strconv.ParseFloat(l.Size, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, Level{Price: price, Size: size})
	}
	return levels
}

func clobOrderToLocal(o clobOrder) OpenOrder {
	price, _ := strconv.ParseFloat(o.Price, 64)
	size, _ := strconv.ParseFloat(o.OriginalSize, 64)
	side := Buy
	if strings.EqualFold(o.Side, "SELL") {
		side = Sell
	}
	return OpenOrder{
		ID:        o.ID,
		OutcomeID: o.AssetID,
		Side:      side,
		Price:     price,
		Size:      int(size),
		Status:    clobStatusToLocal(o.Status),
	}
}

func clobStatusToLocal(status string) OrderStatus {
	switch strings.ToUpper(status) {
	case "MATCHED":
		return StatusFilled
	case "CANCELED":
		return StatusCanceled
	default:
		return StatusOpen
	}
}
