package maker

import (
	"context"
	"fmt"

	"github.com/gw/pm-maker/internal/exchange"
)

// fakeExchange is a scripted venue for the state-machine tests. Fields are
// set directly by each test; call counters verify which venue operations a
// code path actually performed.
type fakeExchange struct {
	book      *exchange.OrderBook
	bookErr   error
	bookCalls int

	position    int
	positionErr error

	open      []exchange.OpenOrder
	openErr   error
	openCalls int

	states   map[string]*exchange.OrderState
	stateErr map[string]error

	createErr error
	created   []exchange.OpenOrder
	nextID    int

	canceled  []string
	cancelErr map[string]error
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		states:    map[string]*exchange.OrderState{},
		stateErr:  map[string]error{},
		cancelErr: map[string]error{},
	}
}

func (f *fakeExchange) FindMarket(ctx context.Context, query string, index int) (*exchange.Market, error) {
	return &exchange.Market{ID: "mkt-1", Title: query, OutcomeID: "tok-yes", OutcomePrice: 0.60}, nil
}

func (f *fakeExchange) FetchOrderBook(ctx context.Context, outcomeID string) (*exchange.OrderBook, error) {
	f.bookCalls++
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return f.book, nil
}

func (f *fakeExchange) FetchPosition(ctx context.Context, outcomeID string) (int, error) {
	if f.positionErr != nil {
		return 0, f.positionErr
	}
	return f.position, nil
}

func (f *fakeExchange) FetchOpenOrders(ctx context.Context, marketID string) ([]exchange.OpenOrder, error) {
	f.openCalls++
	if f.openErr != nil {
		return nil, f.openErr
	}
	out := make([]exchange.OpenOrder, len(f.open))
	copy(out, f.open)
	return out, nil
}

func (f *fakeExchange) CreateOrder(ctx context.Context, marketID, outcomeID string, side exchange.Side, price float64, size int) (*exchange.OpenOrder, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	order := exchange.OpenOrder{
		ID:        fmt.Sprintf("ord-%d", f.nextID),
		OutcomeID: outcomeID,
		Side:      side,
		Price:     price,
		Size:      size,
		Status:    exchange.StatusOpen,
	}
	f.created = append(f.created, order)
	f.open = append(f.open, order)
	return &order, nil
}

func (f *fakeExchange) CancelOrder(ctx context.Context, orderID string) error {
	if err := f.cancelErr[orderID]; err != nil {
		return err
	}
	f.canceled = append(f.canceled, orderID)
	for i, o := range f.open {
		if o.ID == orderID {
			f.open = append(f.open[:i], f.open[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeExchange) FetchOrder(ctx context.Context, orderID string) (*exchange.OrderState, error) {
	if err := f.stateErr[orderID]; err != nil {
		return nil, err
	}
	if state, ok := f.states[orderID]; ok {
		return state, nil
	}
	return &exchange.OrderState{Status: exchange.StatusOpen}, nil
}
