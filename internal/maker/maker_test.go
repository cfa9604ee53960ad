package maker

import (
	"context"
	"testing"

	"github.com/gw/pm-maker/internal/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMaker(fake *fakeExchange) *MarketMaker {
	cfg := testConfig()
	cfg.DryRun = false
	return New(cfg, fake, testMarket(), nil, nil)
}

func balancedBook() *exchange.OrderBook {
	return &exchange.OrderBook{
		Bids: []exchange.Level{{Price: 0.50, Size: 100}},
		Asks: []exchange.Level{{Price: 0.54, Size: 100}},
	}
}

func TestTickPlacesQuotesAroundFair(t *testing.T) {
	fake := newFakeExchange()
	fake.book = balancedBook()
	m := newTestMaker(fake)

	m.tick(context.Background())

	require.Len(t, fake.created, 2)
	assert.Equal(t, exchange.Buy, fake.created[0].Side)
	assert.InDelta(t, 0.50, fake.created[0].Price, 1e-9)
	assert.Equal(t, exchange.Sell, fake.created[1].Side)
	assert.InDelta(t, 0.54, fake.created[1].Price, 1e-9)
	assert.Equal(t, 10, fake.created[0].Size)
}

func TestTickAtCapacityPausesQuoting(t *testing.T) {
	fake := newFakeExchange()
	fake.book = balancedBook()
	fake.position = 100
	m := newTestMaker(fake)

	m.tick(context.Background())

	assert.Empty(t, fake.created)
	assert.Equal(t, 0, fake.bookCalls)
	// the pause still cancels whatever is resting
	assert.Equal(t, 1, fake.openCalls)
}

func TestTickShortCapacityAlsoPauses(t *testing.T) {
	fake := newFakeExchange()
	fake.book = balancedBook()
	fake.position = -100
	m := newTestMaker(fake)

	m.tick(context.Background())

	assert.Empty(t, fake.created)
}

func TestTickBookFailureSkipsCycle(t *testing.T) {
	fake := newFakeExchange()
	fake.bookErr = assert.AnError
	m := newTestMaker(fake)

	m.tick(context.Background())

	assert.Empty(t, fake.created)
	assert.Equal(t, 0, fake.openCalls)
}

func TestTickEmptyBookFallsBackToLastFair(t *testing.T) {
	fake := newFakeExchange()
	fake.book = &exchange.OrderBook{}
	m := newTestMaker(fake)

	// lastFair is seeded from the market snapshot price (0.60).
	m.tick(context.Background())

	require.Len(t, fake.created, 2)
	assert.InDelta(t, 0.58, fake.created[0].Price, 1e-9)
	assert.InDelta(t, 0.62, fake.created[1].Price, 1e-9)
}

func TestTickSkewsQuotesWhenLong(t *testing.T) {
	fake := newFakeExchange()
	fake.book = balancedBook()
	fake.position = 60
	m := newTestMaker(fake)

	m.tick(context.Background())

	require.Len(t, fake.created, 2)
	assert.Less(t, fake.created[0].Price, 0.50)
	assert.Less(t, fake.created[1].Price, 0.54)
}

func TestTickReplacesQuotesEachCycle(t *testing.T) {
	fake := newFakeExchange()
	fake.book = balancedBook()
	m := newTestMaker(fake)
	ctx := context.Background()

	m.tick(ctx)
	m.tick(ctx)

	// first cycle's pair canceled, second cycle's pair resting
	assert.Len(t, fake.created, 4)
	assert.Len(t, fake.canceled, 2)
	assert.Len(t, fake.open, 2)
}

func TestTickAppliesFillBeforeQuoting(t *testing.T) {
	fake := newFakeExchange()
	fake.book = balancedBook()
	m := newTestMaker(fake)
	ctx := context.Background()

	m.tick(ctx)
	require.Len(t, fake.created, 2)
	bidID := fake.created[0].ID
	fake.states[bidID] = &exchange.OrderState{Status: exchange.StatusFilled, FilledAmount: 10}
	// the venue reflects the fill too
	fake.position = 10
	// remove the filled order so the cancel pass does not touch it
	_ = fake.CancelOrder(ctx, bidID)
	fake.canceled = nil

	m.tick(ctx)

	assert.Equal(t, 10, m.inv.Position())
	assert.Equal(t, 1, m.Stats().TradesCompleted)
}
