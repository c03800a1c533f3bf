package trader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/helmos/coin-robot/client/local"
	"github.com/helmos/coin-robot/internal/api"
	"github.com/helmos/coin-robot/internal/model"
	"github.com/helmos/coin-robot/internal/storage"
)

type recorder struct {
	mutex    sync.Mutex
	messages []string
}

func (r *recorder) Send(message string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.messages = append(r.messages, message)
}

func fastSettings() Settings {
	s := defaultSettings()
	s.TradeFraction = 0.2
	s.RetryDelay = time.Millisecond
	s.PollDelay = time.Millisecond
	return s
}

func newTestTrader(t *testing.T, exchange api.Exchange, balance float64) *Trader {
	t.Helper()
	tr, err := New(model.BTC, exchange, storage.NewVoid(), &recorder{},
		WithSettings(fastSettings()), WithBalance(balance))
	assert.NoError(t, err)
	return tr
}

func TestTrader_ProfitCompounding(t *testing.T) {

	ctx := context.Background()
	exchange := local.NewExchange()
	exchange.SetBalance(model.BTC, 10000)
	tr := newTestTrader(t, exchange, 10000)

	// long 100 -> 110
	exchange.SetPrice(model.BTC, 100)
	assert.True(t, tr.Open(ctx, model.Long, 100))
	status := tr.Status()
	assert.True(t, status.Trading)
	assert.Equal(t, model.Long, status.Side)
	assert.Equal(t, 100.0, status.OpenPrice)
	assert.Equal(t, 100.0, status.OpenVolume)

	exchange.SetPrice(model.BTC, 110)
	assert.True(t, tr.Close(ctx, 110))
	status = tr.Status()
	assert.False(t, status.Trading)
	assert.Equal(t, 11000.0, status.Balance)
	assert.InDelta(t, 0.1, status.Profit, 1e-9)

	// short 110 -> 99
	assert.True(t, tr.Open(ctx, model.Short, 110))
	exchange.SetPrice(model.BTC, 99)
	assert.True(t, tr.Close(ctx, 99))
	status = tr.Status()
	assert.Equal(t, 12100.0, status.Balance)
	assert.InDelta(t, 0.1, status.Profit, 1e-9)
}

func TestTrader_OpenRejections(t *testing.T) {

	ctx := context.Background()

	t.Run("no-balance", func(t *testing.T) {
		tr := newTestTrader(t, local.NewExchange(), 0)
		assert.False(t, tr.Open(ctx, model.Long, 100))
		assert.False(t, tr.Status().Trading)
	})

	t.Run("size-rounds-to-zero", func(t *testing.T) {
		exchange := local.NewExchange().WithStrictLots()
		exchange.SetPrice(model.BTC, 30000)
		tr := newTestTrader(t, exchange, 1)
		assert.False(t, tr.Open(ctx, model.Long, 30000))
		assert.False(t, tr.Status().Trading)
	})

	t.Run("insufficient-margin", func(t *testing.T) {
		exchange := local.NewExchange()
		exchange.SetPrice(model.BTC, 100)
		exchange.FailOpen(api.ErrInsufficientMargin)
		tr := newTestTrader(t, exchange, 10000)
		assert.False(t, tr.Open(ctx, model.Long, 100))
		assert.False(t, tr.Status().Trading)
	})
}

func TestTrader_CloseWithoutVolume(t *testing.T) {
	tr := newTestTrader(t, local.NewExchange(), 10000)
	assert.False(t, tr.Close(context.Background(), 100))
}

func TestTrader_CloseAlreadyFlat(t *testing.T) {

	ctx := context.Background()
	exchange := local.NewExchange()
	exchange.SetBalance(model.BTC, 5000)
	tr := newTestTrader(t, exchange, 10000)

	// the exchange holds no position, only the local state says open
	tr.mutex.Lock()
	tr.trading = true
	tr.side = model.Long
	tr.openPrice = 100
	tr.openVolume = 10
	tr.mutex.Unlock()

	assert.True(t, tr.Close(ctx, 110))
	status := tr.Status()
	assert.False(t, status.Trading)
	assert.Equal(t, 5000.0, status.Balance)
}

func TestTrader_PseudoTrading(t *testing.T) {

	ctx := context.Background()
	// no price set, touching the exchange would fail
	exchange := local.NewExchange()
	tr, err := New(model.BTC, exchange, storage.NewVoid(), &recorder{},
		WithSettings(fastSettings()), WithBalance(10000), WithPseudoTrading())
	assert.NoError(t, err)

	assert.True(t, tr.Open(ctx, model.Long, 100))
	status := tr.Status()
	assert.True(t, status.Trading)
	assert.True(t, status.Pseudo)
	assert.Equal(t, 100.0, status.OpenPrice)

	assert.True(t, tr.Close(ctx, 110))
	status = tr.Status()
	assert.False(t, status.Trading)
	assert.False(t, status.Pseudo)
	assert.InDelta(t, 0.1, status.Profit, 1e-9)
	// the simulated cycle leaves the balance untouched
	assert.Equal(t, 10000.0, status.Balance)

	// the budget is spent, the next open is real
	exchange.SetPrice(model.BTC, 100)
	assert.True(t, tr.Open(ctx, model.Long, 100))
	assert.False(t, tr.Status().Pseudo)
}

func TestTrader_CanTrade(t *testing.T) {

	now := time.Date(2021, 1, 25, 12, 0, 0, 0, time.UTC)
	tr, err := New(model.BTC, local.NewExchange(), storage.NewVoid(), &recorder{},
		WithClock(func() time.Time { return now }))
	assert.NoError(t, err)

	assert.True(t, tr.CanTrade())

	tr.Stop()
	assert.False(t, tr.CanTrade())
	tr.Start()
	assert.True(t, tr.CanTrade())

	tr.ResumeAfter(now.Add(time.Hour))
	assert.False(t, tr.CanTrade())

	now = now.Add(2 * time.Hour)
	assert.True(t, tr.CanTrade())

	// a stop wins over an expired cooldown
	tr.Stop()
	assert.False(t, tr.CanTrade())
}

func TestTrader_StopLossPrice(t *testing.T) {

	tr := newTestTrader(t, local.NewExchange(), 10000)

	_, ok := tr.StopLossPrice()
	assert.False(t, ok)

	tr.mutex.Lock()
	tr.side = model.Long
	tr.openPrice = 100
	tr.mutex.Unlock()

	price, ok := tr.StopLossPrice()
	assert.True(t, ok)
	assert.InDelta(t, 99.984, price, 1e-9)

	tr.mutex.Lock()
	tr.side = model.Short
	tr.mutex.Unlock()

	price, ok = tr.StopLossPrice()
	assert.True(t, ok)
	assert.InDelta(t, 100.016, price, 1e-9)
}

func TestTrader_RefreshBalance(t *testing.T) {

	exchange := local.NewExchange()
	exchange.SetBalance(model.BTC, 123)
	// transient failures are retried without bound
	exchange.FailBalanceTimes(2)

	tr := newTestTrader(t, exchange, 0)
	tr.RefreshBalance(context.Background())
	assert.Equal(t, 123.0, tr.Status().Balance)
}

type fixedStore struct {
	storage.Void
	records []storage.Record
}

func (s fixedStore) Open(_ context.Context) ([]storage.Record, error) {
	return s.records, nil
}

func TestInitTraders(t *testing.T) {

	ctx := context.Background()
	exchange := local.NewExchange()
	exchange.SetBalance(model.ETH, 500)

	store := fixedStore{records: []storage.Record{{
		ID:                "row-1",
		Coin:              model.BTC,
		Side:              model.Short,
		OpenPlanPrice:     100,
		OpenPlanVolume:    10,
		BalanceBeforeOpen: 1000,
		OpenTime:          time.Date(2021, 1, 25, 12, 0, 0, 0, time.UTC),
	}}}

	traders, err := InitTraders(ctx, []model.Coin{model.BTC, model.ETH}, exchange, store, &recorder{},
		WithSettings(fastSettings()))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(traders))

	restored := traders[model.BTC].Status()
	assert.True(t, restored.Trading)
	assert.Equal(t, model.Short, restored.Side)
	// the plan values stand in when the fills were never read back
	assert.Equal(t, 100.0, restored.OpenPrice)
	assert.Equal(t, 10.0, restored.OpenVolume)
	assert.Equal(t, 1000.0, restored.Balance)

	fresh := traders[model.ETH].Status()
	assert.False(t, fresh.Trading)
	assert.Equal(t, 500.0, fresh.Balance)
}
