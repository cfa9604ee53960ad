package exchange

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gw/pm-maker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func polyTestConfig() *config.Config {
	return &config.Config{
		Platform:       config.PlatformPolymarket,
		PolyAPIKey:     "key",
		PolyAPISecret:  base64.URLEncoding.EncodeToString([]byte("secret")),
		PolyPassphrase: "pass",
		PolyAddress:    "0xabc",
	}
}

// newTestPolymarket points all three API hosts at one test server.
func newTestPolymarket(srv *httptest.Server) *Polymarket {
	p := NewPolymarket(polyTestConfig())
	p.gammaURL = srv.URL
	p.clobURL = srv.URL
	p.dataURL = srv.URL
	return p
}

func TestPolymarketFindMarket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("closed"))
		json.NewEncoder(w).Encode([]gammaMarket{
			{
				ConditionID:   "cond-1",
				Question:      "Will BTC close above 100k?",
				OutcomePrices: `["0.52", "0.48"]`,
				ClobTokenIDs:  `["tok-yes", "tok-no"]`,
				Volume:        "12345.6",
				Liquidity:     "789.0",
			},
			{
				ConditionID:   "cond-2",
				Question:      "Will it rain in NYC tomorrow?",
				OutcomePrices: `["0.30", "0.70"]`,
				ClobTokenIDs:  `["tok-rain-yes", "tok-rain-no"]`,
			},
		})
	}))
	defer srv.Close()
	p := newTestPolymarket(srv)

	mkt, err := p.FindMarket(context.Background(), "btc", 0)
	require.NoError(t, err)

	assert.Equal(t, "cond-1", mkt.ID)
	assert.Equal(t, "Will BTC close above 100k?", mkt.Title)
	assert.Equal(t, "tok-yes", mkt.OutcomeID)
	assert.InDelta(t, 0.52, mkt.OutcomePrice, 1e-9)
	assert.InDelta(t, 12345.6, mkt.Volume, 1e-9)
	assert.InDelta(t, 789.0, mkt.Liquidity, 1e-9)
}

func TestPolymarketFindMarketNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]gammaMarket{})
	}))
	defer srv.Close()
	p := newTestPolymarket(srv)

	_, err := p.FindMarket(context.Background(), "nonexistent", 0)
	assert.ErrorContains(t, err, "no markets found")
}

func TestPolymarketFindMarketIndexOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]gammaMarket{{
			ConditionID:   "cond-1",
			Question:      "Will BTC close above 100k?",
			OutcomePrices: `["0.52"]`,
			ClobTokenIDs:  `["tok-yes"]`,
		}})
	}))
	defer srv.Close()
	p := newTestPolymarket(srv)

	_, err := p.FindMarket(context.Background(), "btc", 3)
	assert.ErrorContains(t, err, "out of range")
}

func TestPolymarketFetchOrderBookSortsLevels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/book", r.URL.Path)
		assert.Equal(t, "tok-yes", r.URL.Query().Get("token_id"))
		json.NewEncoder(w).Encode(clobBook{
			Bids: []clobBookLevel{{Price: "0.48", Size: "50"}, {Price: "0.50", Size: "100"}},
			Asks: []clobBookLevel{{Price: "0.56", Size: "40"}, {Price: "0.54", Size: "80"}},
		})
	}))
	defer srv.Close()
	p := newTestPolymarket(srv)

	book, err := p.FetchOrderBook(context.Background(), "tok-yes")
	require.NoError(t, err)

	best, ok := book.BestBid()
	require.True(t, ok)
	assert.InDelta(t, 0.50, best.Price, 1e-9)
	best, ok = book.BestAsk()
	require.True(t, ok)
	assert.InDelta(t, 0.54, best.Price, 1e-9)
}

func TestPolymarketFetchOrderBookSkipsBadLevels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(clobBook{
			Bids: []clobBookLevel{{Price: "not-a-number", Size: "50"}, {Price: "0.50", Size: "100"}},
		})
	}))
	defer srv.Close()
	p := newTestPolymarket(srv)

	book, err := p.FetchOrderBook(context.Background(), "tok-yes")
	require.NoError(t, err)
	assert.Len(t, book.Bids, 1)
}

func TestPolymarketFetchPosition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/positions", r.URL.Path)
		assert.Equal(t, "0xabc", r.URL.Query().Get("user"))
		json.NewEncoder(w).Encode([]dataPosition{
			{Asset: "tok-other", Size: 99},
			{Asset: "tok-yes", Size: 25},
		})
	}))
	defer srv.Close()
	p := newTestPolymarket(srv)

	pos, err := p.FetchPosition(context.Background(), "tok-yes")
	require.NoError(t, err)
	assert.Equal(t, 25, pos)
}

func TestPolymarketFetchPositionDefaultsToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]dataPosition{})
	}))
	defer srv.Close()
	p := newTestPolymarket(srv)

	pos, err := p.FetchPosition(context.Background(), "tok-yes")
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
}

func TestPolymarketCreateOrder(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/order", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
		assert.NotEmpty(t, r.Header.Get("POLY_TIMESTAMP"))
		assert.Equal(t, "key", r.Header.Get("POLY_API_KEY"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "orderID": "ord-1"})
	}))
	defer srv.Close()
	p := newTestPolymarket(srv)

	order, err := p.CreateOrder(context.Background(), "cond-1", "tok-yes", Buy, 0.50, 10)
	require.NoError(t, err)

	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, StatusOpen, order.Status)
	assert.Equal(t, "BUY", got["side"])
	assert.Equal(t, "0.50", got["price"])
	assert.Equal(t, "10", got["size"])
	assert.Equal(t, "GTC", got["type"])
}

func TestPolymarketCreateOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "errorMsg": "insufficient balance"})
	}))
	defer srv.Close()
	p := newTestPolymarket(srv)

	_, err := p.CreateOrder(context.Background(), "cond-1", "tok-yes", Buy, 0.50, 10)
	assert.ErrorContains(t, err, "insufficient balance")
}

func TestPolymarketFetchOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/order/ord-1", r.URL.Path)
		json.NewEncoder(w).Encode(clobOrder{
			ID:          "ord-1",
			Status:      "MATCHED",
			SizeMatched: "10",
		})
	}))
	defer srv.Close()
	p := newTestPolymarket(srv)

	state, err := p.FetchOrder(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, state.Status)
	assert.Equal(t, 10, state.FilledAmount)
}

func TestPolymarketErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	p := newTestPolymarket(srv)

	_, err := p.FetchOrderBook(context.Background(), "tok-yes")
	assert.Error(t, err)
}

func TestClobStatusToLocal(t *testing.T) {
	assert.Equal(t, StatusFilled, clobStatusToLocal("MATCHED"))
	assert.Equal(t, StatusCanceled, clobStatusToLocal("CANCELED"))
	assert.Equal(t, StatusOpen, clobStatusToLocal("LIVE"))
	assert.Equal(t, StatusOpen, clobStatusToLocal(""))
}

func TestDecodeStringArray(t *testing.T) {
	out, err := decodeStringArray(`["0.52", "0.48"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.52", "0.48"}, out)

	out, err = decodeStringArray("")
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = decodeStringArray("not json")
	assert.Error(t, err)
}
