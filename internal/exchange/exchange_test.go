package exchange

import (
	"testing"

	"github.com/gw/pm-maker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsAdapter(t *testing.T) {
	exch, err := New(&config.Config{Platform: config.PlatformPolymarket})
	require.NoError(t, err)
	assert.IsType(t, &Polymarket{}, exch)

	exch, err = New(&config.Config{Platform: config.PlatformKalshi, KalshiEnv: "prod", DryRun: true})
	require.NoError(t, err)
	assert.IsType(t, &Kalshi{}, exch)

	exch, err = New(&config.Config{Platform: config.PlatformLimitless})
	require.NoError(t, err)
	assert.IsType(t, &Limitless{}, exch)
}

func TestNewRejectsUnknownPlatform(t *testing.T) {
	_, err := New(&config.Config{Platform: "predictit"})
	assert.ErrorContains(t, err, "unsupported platform")
}

func TestOrderBookBestLevels(t *testing.T) {
	book := &OrderBook{
		Bids: []Level{{Price: 0.50, Size: 100}, {Price: 0.48, Size: 50}},
		Asks: []Level{{Price: 0.54, Size: 80}},
	}

	bid, ok := book.BestBid()
	require.True(t, ok)
	assert.InDelta(t, 0.50, bid.Price, 1e-9)

	ask, ok := book.BestAsk()
	require.True(t, ok)
	assert.InDelta(t, 0.54, ask.Price, 1e-9)

	empty := &OrderBook{}
	_, ok = empty.BestBid()
	assert.False(t, ok)
	_, ok = empty.BestAsk()
	assert.False(t, ok)
}
