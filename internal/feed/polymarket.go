package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const polymarketWSURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

// PolymarketFeed streams last-trade prices for one CLOB token from the
// public market channel.
type PolymarketFeed struct {
	baseFeed
	tokenID string
	wsURL   string
}

func NewPolymarketFeed(tokenID string) *PolymarketFeed {
	return &PolymarketFeed{
		baseFeed: baseFeed{name: "polymarket"},
		tokenID:  tokenID,
		wsURL:    polymarketWSURL,
	}
}

type polymarketSubscribe struct {
	Type      string   `json:"type"`
	AssetsIDs []string `json:"assets_ids"`
}

type polymarketEvent struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Price     string `json:"price"`
}

// Run maintains the WebSocket connection with automatic reconnection.
func (f *PolymarketFeed) Run(ctx context.Context) error {
	for {
		if err := f.connect(ctx); err != nil {
			slog.Warn("polymarket ws disconnected", "err", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
			slog.Info("polymarket ws reconnecting...")
		}
	}
}

func (f *PolymarketFeed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := polymarketSubscribe{
		Type:      "market",
		AssetsIDs: []string{f.tokenID},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		// Events arrive both singly and batched in arrays.
		var events []polymarketEvent
		if err := json.Unmarshal(msg, &events); err != nil {
			var single polymarketEvent
			if err := json.Unmarshal(msg, &single); err != nil {
				continue
			}
			events = []polymarketEvent{single}
		}

		for _, ev := range events {
			if ev.EventType != "last_trade_price" || ev.AssetID != f.tokenID {
				continue
			}
			price, err := strconv.ParseFloat(ev.Price, 64)
			if err != nil {
				continue
			}
			f.setPrice(price)
			slog.Debug("ws last trade", "token", f.tokenID, "price", price)
		}
	}
}
