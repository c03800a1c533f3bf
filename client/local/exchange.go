// Package local is an in-memory exchange used for simulation and tests.
// It fills market orders immediately at the current price and tracks a
// virtual margin account per coin.
package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/helmos/coin-robot/internal/api"
	"github.com/helmos/coin-robot/internal/model"
)

// lotSizeFactor shaves a margin of safety off the requested notional
// before converting it into contracts, like the live exchange does.
const lotSizeFactor = 0.98

// stepDecimals is the per coin contract size granularity.
var stepDecimals = map[model.Coin]int32{
	model.BTC:   3,
	model.ETH:   3,
	model.BCH:   3,
	model.LTC:   3,
	model.DASH:  3,
	model.LINK:  2,
	model.BNB:   2,
	model.XRP:   1,
	model.EOS:   1,
	model.DOT:   1,
	model.ADA:   0,
	model.UNI:   0,
	model.SUSHI: 0,
	model.DOGE:  0,
}

type position struct {
	side  model.Side
	price float64
	size  float64
}

// Exchange is the local api.Exchange implementation.
type Exchange struct {
	mutex     sync.Mutex
	prices    map[model.Coin]float64
	balances  map[model.Coin]float64
	positions map[model.Coin]position
	orders    map[string]model.Order
	history   map[api.CoinPeriod][]model.Tick
	stream    chan api.StreamTick

	// strictLots applies the live lot sizing rules instead of an exact division.
	strictLots bool

	failOpen    error
	failClose   error
	failBalance int
	failHistory map[api.CoinPeriod]error
}

// NewExchange creates an empty local exchange.
func NewExchange() *Exchange {
	return &Exchange{
		prices:      make(map[model.Coin]float64),
		balances:    make(map[model.Coin]float64),
		positions:   make(map[model.Coin]position),
		orders:      make(map[string]model.Order),
		history:     make(map[api.CoinPeriod][]model.Tick),
		stream:      make(chan api.StreamTick, 64),
		failHistory: make(map[api.CoinPeriod]error),
	}
}

// WithStrictLots enables the live lot sizing rules.
func (e *Exchange) WithStrictLots() *Exchange {
	e.strictLots = true
	return e
}

// SetPrice sets the current market price for the coin.
func (e *Exchange) SetPrice(coin model.Coin, price float64) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.prices[coin] = price
}

// SetBalance seeds the margin account of the coin.
func (e *Exchange) SetBalance(coin model.Coin, balance float64) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.balances[coin] = balance
}

// SetHistory seeds the historical ticks for a (coin, period) pair.
func (e *Exchange) SetHistory(coin model.Coin, period model.Period, ticks []model.Tick) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.history[api.CoinPeriod{Coin: coin, Period: period}] = ticks
}

// FailHistory scripts a history error for a (coin, period) pair.
func (e *Exchange) FailHistory(coin model.Coin, period model.Period, err error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.failHistory[api.CoinPeriod{Coin: coin, Period: period}] = err
}

// FailOpen scripts the next open calls to fail with the given error.
func (e *Exchange) FailOpen(err error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.failOpen = err
}

// FailClose scripts the next close calls to fail with the given error.
func (e *Exchange) FailClose(err error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.failClose = err
}

// FailBalanceTimes makes the next n balance fetches fail.
func (e *Exchange) FailBalanceTimes(n int) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.failBalance = n
}

// Feed pushes a tick into the realtime stream.
func (e *Exchange) Feed(coin model.Coin, period model.Period, tick model.Tick) {
	e.stream <- api.StreamTick{Coin: coin, Period: period, Tick: tick}
}

// CloseStream terminates the realtime stream.
func (e *Exchange) CloseStream() {
	close(e.stream)
}

func (e *Exchange) History(_ context.Context, coin model.Coin, period model.Period) ([]model.Tick, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	key := api.CoinPeriod{Coin: coin, Period: period}
	if err, ok := e.failHistory[key]; ok && err != nil {
		return nil, err
	}
	ticks, ok := e.history[key]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", coin, period, api.ErrSymbolNotFound)
	}
	return ticks, nil
}

func (e *Exchange) Stream(ctx context.Context, _ []api.CoinPeriod) (<-chan api.StreamTick, error) {
	out := make(chan api.StreamTick)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case tick, ok := <-e.stream:
				if !ok {
					return
				}
				select {
				case <-ctx.Done():
					return
				case out <- tick:
				}
			}
		}
	}()
	return out, nil
}

// SizeForBalance converts the notional into a contract size.
// In strict mode it mirrors the live rules, a 2 percent safety margin and
// truncation to the coin's step granularity. The default mode divides
// exactly, which keeps simulations arithmetically clean.
func (e *Exchange) SizeForBalance(coin model.Coin, notional, price float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("invalid price for %s: %f", coin, price)
	}
	if !e.strictLots {
		return notional / price, nil
	}
	decimals, ok := stepDecimals[coin]
	if !ok {
		return 0, fmt.Errorf("no lot size rule for coin: %s", coin)
	}
	size := decimal.NewFromFloat(notional * lotSizeFactor).
		Div(decimal.NewFromFloat(price)).
		Truncate(decimals)
	f, _ := size.Float64()
	return f, nil
}

func (e *Exchange) Open(_ context.Context, coin model.Coin, side model.Side, size float64) (string, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.failOpen != nil {
		return "", e.failOpen
	}
	price, ok := e.prices[coin]
	if !ok {
		return "", fmt.Errorf("%s: %w", coin, api.ErrSymbolNotFound)
	}
	id := uuid.New().String()
	e.orders[id] = model.Order{
		ID:             id,
		Coin:           coin,
		Side:           side,
		Volume:         size,
		Price:          price,
		ExecutedVolume: size,
		AvgPrice:       price,
		Turnover:       price * size,
		Status:         model.OrderFilled,
		Time:           time.Now(),
	}
	e.positions[coin] = position{side: side, price: price, size: size}
	log.Debug().Str("coin", string(coin)).Str("side", side.String()).Float64("price", price).Float64("size", size).Msg("local open")
	return id, nil
}

func (e *Exchange) Close(_ context.Context, coin model.Coin, side model.Side, size float64) (string, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.failClose != nil {
		return "", e.failClose
	}
	pos, ok := e.positions[coin]
	if !ok {
		return "", fmt.Errorf("%s: %w", coin, api.ErrNothingToClose)
	}
	price, ok := e.prices[coin]
	if !ok {
		return "", fmt.Errorf("%s: %w", coin, api.ErrSymbolNotFound)
	}
	pnl := pos.side.Sign() * (price - pos.price) * pos.size
	e.balances[coin] += pnl
	delete(e.positions, coin)

	id := uuid.New().String()
	e.orders[id] = model.Order{
		ID:             id,
		Coin:           coin,
		Side:           side,
		Volume:         size,
		Price:          price,
		ExecutedVolume: size,
		AvgPrice:       price,
		Turnover:       price * size,
		Status:         model.OrderFilled,
		Time:           time.Now(),
	}
	log.Debug().Str("coin", string(coin)).Float64("price", price).Float64("pnl", pnl).Msg("local close")
	return id, nil
}

func (e *Exchange) Order(_ context.Context, coin model.Coin, id string) (model.Order, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	order, ok := e.orders[id]
	if !ok {
		return model.Order{}, fmt.Errorf("unknown order for %s: %s", coin, id)
	}
	return order, nil
}

func (e *Exchange) Balance(_ context.Context, coin model.Coin) (float64, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.failBalance > 0 {
		e.failBalance--
		return 0, fmt.Errorf("balance unavailable for %s", coin)
	}
	balance, ok := e.balances[coin]
	if !ok {
		return 0, fmt.Errorf("%s: %w", coin, api.ErrSymbolNotFound)
	}
	return balance, nil
}
