// Package trader implements the per-coin position lifecycle state machine,
// flat to open and back, synchronized against the remote exchange.
package trader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/helmos/coin-robot/internal/api"
	"github.com/helmos/coin-robot/internal/metrics"
	"github.com/helmos/coin-robot/internal/model"
	"github.com/helmos/coin-robot/internal/storage"
)

const (
	// feePercent is the combined open plus close fee used for the stop loss price.
	feePercent = 0.08 / 100

	defaultTradeFraction = 1.0
	defaultOpenRetries   = 5
	defaultCloseRetries  = 3
	defaultReadRetries   = 3
	defaultRetryDelay    = 2 * time.Second
	defaultPollDelay     = time.Second
	// defaultPseudoBudget simulates the first open/close cycle after a
	// (re)start instead of sending it to the exchange.
	defaultPseudoBudget = 1
)

// Settings tune the trader retry and sizing behaviour.
type Settings struct {
	TradeFraction float64
	OpenRetries   uint
	CloseRetries  uint
	ReadRetries   uint
	RetryDelay    time.Duration
	PollDelay     time.Duration
	PseudoBudget  int
}

// DefaultSettings returns the stock settings, callers tweak what they need.
func DefaultSettings() Settings {
	return defaultSettings()
}

func defaultSettings() Settings {
	return Settings{
		TradeFraction: defaultTradeFraction,
		OpenRetries:   defaultOpenRetries,
		CloseRetries:  defaultCloseRetries,
		ReadRetries:   defaultReadRetries,
		RetryDelay:    defaultRetryDelay,
		PollDelay:     defaultPollDelay,
		PseudoBudget:  0,
	}
}

// Status is a read-only snapshot of the trader state.
type Status struct {
	Coin        model.Coin
	Leverage    int
	Trading     bool
	Pseudo      bool
	Side        model.Side
	Balance     float64
	OpenPrice   float64
	OpenVolume  float64
	OpenTime    time.Time
	ClosePrice  float64
	CloseTime   time.Time
	Profit      float64
	Trades      int
	Stopped     bool
	ResumeAfter time.Time
}

// Trader drives open and close for one coin.
// All position fields of a transition are updated together under the lock,
// a control-plane read never observes a transition half way through.
type Trader struct {
	coin     model.Coin
	leverage int

	exchange api.Exchange
	store    storage.Positions
	notifier api.Notifier
	settings Settings

	mutex       sync.Mutex
	balance     float64
	trading     bool
	pseudo      bool
	side        model.Side
	openPrice   float64
	openVolume  float64
	openTime    time.Time
	closePrice  float64
	closeTime   time.Time
	profit      float64
	trades      int
	recordID    string
	stopped     bool
	resumeAfter time.Time

	now func() time.Time
}

// Option configures a Trader.
type Option func(*Trader)

// WithSettings overrides the default settings.
func WithSettings(settings Settings) Option {
	return func(t *Trader) {
		t.settings = settings
	}
}

// WithPseudoTrading simulates the first trades after start instead of
// placing them, to avoid acting on stale startup state.
func WithPseudoTrading() Option {
	return func(t *Trader) {
		t.settings.PseudoBudget = defaultPseudoBudget
	}
}

// WithBalance seeds the balance without an exchange round trip.
func WithBalance(balance float64) Option {
	return func(t *Trader) {
		t.balance = balance
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Trader) {
		t.now = now
	}
}

// New creates a trader for the coin. The leverage comes from the
// hardcoded per coin table and unknown coins are rejected.
func New(coin model.Coin, exchange api.Exchange, store storage.Positions, notifier api.Notifier, opts ...Option) (*Trader, error) {
	leverage, err := model.LeverageFor(coin)
	if err != nil {
		return nil, fmt.Errorf("could not create trader: %w", err)
	}
	t := &Trader{
		coin:     coin,
		leverage: leverage,
		exchange: exchange,
		store:    store,
		notifier: notifier,
		settings: defaultSettings(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Coin returns the coin of the trader.
func (t *Trader) Coin() model.Coin {
	return t.coin
}

// Status returns a consistent snapshot of the trader state.
func (t *Trader) Status() Status {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return Status{
		Coin:        t.coin,
		Leverage:    t.leverage,
		Trading:     t.trading,
		Pseudo:      t.pseudo,
		Side:        t.side,
		Balance:     t.balance,
		OpenPrice:   t.openPrice,
		OpenVolume:  t.openVolume,
		OpenTime:    t.openTime,
		ClosePrice:  t.closePrice,
		CloseTime:   t.closeTime,
		Profit:      t.profit,
		Trades:      t.trades,
		Stopped:     t.stopped,
		ResumeAfter: t.resumeAfter,
	}
}

// CanTrade reports whether a new position may be opened.
// A stop always wins, a cooldown suppresses entry until it expires.
func (t *Trader) CanTrade() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.stopped {
		return false
	}
	if !t.resumeAfter.IsZero() {
		return !t.now().Before(t.resumeAfter)
	}
	return true
}

// Stop suppresses future opens. An in-flight order is not aborted.
func (t *Trader) Stop() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.stopped = true
}

// Start lifts a stop.
func (t *Trader) Start() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.stopped = false
}

// ResumeAfter suppresses opens until the given time.
func (t *Trader) ResumeAfter(until time.Time) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.resumeAfter = until
}

// StopLossPrice returns the price at which the position should be cut,
// derived from the fee total scaled down by the leverage. It returns
// false when there is no open position.
func (t *Trader) StopLossPrice() (float64, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.openPrice == 0 || t.side == model.NoSide {
		return 0, false
	}
	tolerance := feePercent / float64(t.leverage)
	switch t.side {
	case model.Long:
		return t.openPrice - tolerance*t.openPrice, true
	case model.Short:
		return t.openPrice + tolerance*t.openPrice, true
	}
	return 0, false
}

// Open opens a position at the given market price.
// It returns false when nothing was opened, the caller may try again
// on the next tick.
func (t *Trader) Open(ctx context.Context, side model.Side, price float64) bool {
	t.mutex.Lock()
	balance := t.balance
	trades := t.trades
	budget := t.settings.PseudoBudget
	t.mutex.Unlock()

	if balance <= 0 {
		log.Warn().Str("coin", string(t.coin)).Float64("balance", balance).Msg("balance not enough to open")
		return false
	}

	notional := balance * t.settings.TradeFraction * float64(t.leverage)
	size, err := t.exchange.SizeForBalance(t.coin, notional, price)
	if err != nil || size == 0 {
		log.Warn().Str("coin", string(t.coin)).Float64("notional", notional).Err(err).Msg("no tradeable size")
		return false
	}

	if trades < budget {
		return t.pseudoOpen(side, price)
	}

	orderID, err := retry.DoWithData(
		func() (string, error) {
			id, err := t.exchange.Open(ctx, t.coin, side, size)
			if errors.Is(err, api.ErrInsufficientMargin) {
				return "", retry.Unrecoverable(err)
			}
			return id, err
		},
		retry.Context(ctx),
		retry.Attempts(t.settings.OpenRetries),
		retry.Delay(t.settings.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, api.ErrInsufficientMargin) {
			log.Warn().Str("coin", string(t.coin)).Err(err).Msg("open rejected, insufficient margin")
			t.notify(fmt.Sprintf("%s: open rejected, insufficient margin", t.coin))
			return false
		}
		log.Error().Str("coin", string(t.coin)).Err(err).Msg("could not place open order")
		t.notify(fmt.Sprintf("%s: could not place open order: %s", t.coin, err))
		metrics.Observer.IncrementErrors(string(t.coin), "open")
		return false
	}

	order, err := t.awaitOrder(ctx, orderID)
	if err != nil {
		log.Error().Str("coin", string(t.coin)).Str("order", orderID).Err(err).Msg("could not read open order")
		t.notify(fmt.Sprintf("%s: could not read open order: %s", t.coin, err))
		return false
	}
	if !order.Filled() {
		log.Warn().Str("coin", string(t.coin)).Str("order", orderID).Str("status", string(order.Status)).Msg("open order not fully filled")
		t.notify(fmt.Sprintf("%s: open order not fully filled: %s", t.coin, order.Status))
		return false
	}

	record := storage.Record{
		Coin:              t.coin,
		Side:              side,
		OpenPrice:         order.AvgPrice,
		OpenPlanPrice:     price,
		OpenVolume:        order.ExecutedVolume,
		OpenPlanVolume:    size,
		OpenFee:           order.Fee,
		BalanceBeforeOpen: balance,
		OpenOrderID:       orderID,
		OpenTime:          t.now(),
	}
	recordID, err := t.store.Insert(ctx, record)
	if err != nil {
		// the position exists on the exchange, losing the row must not lose the trade
		log.Error().Str("coin", string(t.coin)).Str("order", orderID).Err(err).Msg("could not persist open")
		t.notify(fmt.Sprintf("%s: could not persist open: %s", t.coin, err))
	}

	openPrice := order.AvgPrice
	if openPrice == 0 {
		openPrice = price
	}
	openVolume := order.ExecutedVolume
	if openVolume == 0 {
		openVolume = size
	}

	t.mutex.Lock()
	t.trading = true
	t.pseudo = false
	t.trades++
	t.side = side
	t.openPrice = openPrice
	t.openVolume = openVolume
	t.openTime = t.now()
	t.recordID = recordID
	t.mutex.Unlock()

	metrics.Observer.IncrementTrades(string(t.coin), side.String(), "open")
	t.notify(openMessage(t.coin, side, openPrice, openVolume))
	return true
}

// Close closes the open position at the given market price.
func (t *Trader) Close(ctx context.Context, price float64) bool {
	t.mutex.Lock()
	pseudo := t.pseudo
	side := t.side
	closeVolume := t.openVolume
	openPrice := t.openPrice
	openTime := t.openTime
	recordID := t.recordID
	t.mutex.Unlock()

	if pseudo {
		return t.pseudoClose(price)
	}

	if closeVolume == 0 {
		log.Error().Str("coin", string(t.coin)).Msg("no open volume to close")
		t.notify(fmt.Sprintf("%s: no open volume to close", t.coin))
		return false
	}

	orderID, err := retry.DoWithData(
		func() (string, error) {
			id, err := t.exchange.Close(ctx, t.coin, side, closeVolume)
			if errors.Is(err, api.ErrNothingToClose) {
				// already flat on the exchange side, nothing left to do there
				return "", nil
			}
			return id, err
		},
		retry.Context(ctx),
		retry.Attempts(t.settings.CloseRetries),
		retry.Delay(t.settings.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		log.Error().Str("coin", string(t.coin)).Err(err).Msg("could not place close order")
		t.notify(fmt.Sprintf("%s: could not place close order: %s", t.coin, err))
		metrics.Observer.IncrementErrors(string(t.coin), "close")
		return false
	}

	closePrice := price
	var closeFee float64
	if orderID == "" {
		log.Warn().Str("coin", string(t.coin)).Msg("nothing to close on the exchange")
	} else {
		// best effort, the position is already closed on the exchange
		order, err := retry.DoWithData(
			func() (model.Order, error) {
				return t.exchange.Order(ctx, t.coin, orderID)
			},
			retry.Context(ctx),
			retry.Attempts(t.settings.ReadRetries),
			retry.Delay(t.settings.RetryDelay),
			retry.DelayType(retry.FixedDelay),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			log.Error().Str("coin", string(t.coin)).Str("order", orderID).Err(err).Msg("could not read close order")
			t.notify(fmt.Sprintf("%s: could not read close order: %s", t.coin, err))
		} else if order.AvgPrice != 0 {
			closePrice = order.AvgPrice
			closeFee = order.Fee
		}
	}

	newBalance := t.mustBalance(ctx)

	if recordID != "" {
		// Update replaces the whole row, so the open side fields ride along.
		record := storage.Record{
			ID:                recordID,
			Coin:              t.coin,
			Side:              side,
			OpenPrice:         openPrice,
			OpenVolume:        closeVolume,
			OpenTime:          openTime,
			ClosePrice:        closePrice,
			ClosePlanPrice:    price,
			CloseFee:          closeFee,
			BalanceAfterClose: newBalance,
			CloseOrderID:      orderID,
			Closed:            true,
			CloseTime:         t.now(),
		}
		if err := t.store.Update(ctx, record); err != nil {
			// best effort, the close already happened on the exchange
			log.Error().Str("coin", string(t.coin)).Str("record", recordID).Err(err).Msg("could not persist close")
			t.notify(fmt.Sprintf("%s: could not persist close: %s", t.coin, err))
		}
	}

	t.mutex.Lock()
	t.closePrice = closePrice
	t.closeTime = t.now()
	t.profit = profit(side, t.openPrice, closePrice)
	t.trading = false
	t.balance = newBalance
	t.openPrice = 0
	t.openVolume = 0
	t.openTime = time.Time{}
	t.recordID = ""
	t.mutex.Unlock()

	metrics.Observer.IncrementTrades(string(t.coin), side.String(), "close")
	metrics.Observer.SetBalance(string(t.coin), newBalance)
	t.notify(closeMessage(t.coin, side, closePrice, closeVolume))
	return true
}

// RefreshBalance re-fetches the account balance, retrying without bound.
func (t *Trader) RefreshBalance(ctx context.Context) {
	balance := t.mustBalance(ctx)
	t.mutex.Lock()
	t.balance = balance
	t.mutex.Unlock()
	metrics.Observer.SetBalance(string(t.coin), balance)
}

func (t *Trader) pseudoOpen(side model.Side, price float64) bool {
	log.Debug().Str("coin", string(t.coin)).Str("side", side.String()).Msg("pseudo open")
	t.mutex.Lock()
	t.trading = true
	t.pseudo = true
	t.trades++
	t.side = side
	t.openPrice = price
	t.openTime = t.now()
	t.mutex.Unlock()
	t.notify(fmt.Sprintf("%s: pseudo open %s at %v", t.coin, side, price))
	return true
}

func (t *Trader) pseudoClose(price float64) bool {
	log.Debug().Str("coin", string(t.coin)).Msg("pseudo close")
	t.mutex.Lock()
	t.closePrice = price
	t.closeTime = t.now()
	t.profit = profit(t.side, t.openPrice, price)
	t.trading = false
	t.pseudo = false
	t.openPrice = 0
	t.openVolume = 0
	t.openTime = time.Time{}
	t.recordID = ""
	t.mutex.Unlock()
	t.notify(fmt.Sprintf("%s: pseudo close at %v", t.coin, price))
	return true
}

// awaitOrder polls the order until it reaches a terminal state.
// The poll is a wait, not an error retry, so it has no attempt bound.
func (t *Trader) awaitOrder(ctx context.Context, orderID string) (model.Order, error) {
	for {
		order, err := retry.DoWithData(
			func() (model.Order, error) {
				return t.exchange.Order(ctx, t.coin, orderID)
			},
			retry.Context(ctx),
			retry.Attempts(t.settings.ReadRetries),
			retry.Delay(t.settings.RetryDelay),
			retry.DelayType(retry.FixedDelay),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			return model.Order{}, err
		}
		if order.Status.Terminal() {
			return order, nil
		}
		select {
		case <-ctx.Done():
			return model.Order{}, ctx.Err()
		case <-time.After(t.settings.PollDelay):
		}
	}
}

// mustBalance fetches the balance with unlimited retry.
func (t *Trader) mustBalance(ctx context.Context) float64 {
	balance, _ := retry.DoWithData(
		func() (float64, error) {
			b, err := t.exchange.Balance(ctx, t.coin)
			if err != nil {
				log.Warn().Str("coin", string(t.coin)).Err(err).Msg("retry balance fetch")
			}
			return b, err
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(t.settings.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	return balance
}

func (t *Trader) notify(message string) {
	if t.notifier == nil {
		return
	}
	t.notifier.Send(message)
}

func profit(side model.Side, openPrice, closePrice float64) float64 {
	if openPrice == 0 {
		return 0
	}
	switch side {
	case model.Long:
		return (closePrice - openPrice) / openPrice
	case model.Short:
		return (openPrice - closePrice) / openPrice
	}
	return 0
}

func openMessage(coin model.Coin, side model.Side, price, volume float64) string {
	return fmt.Sprintf("`%s`%s`open:%s`     `price:%v`     `volume:%v`", coin, pad(coin), side, price, volume)
}

func closeMessage(coin model.Coin, side model.Side, price, volume float64) string {
	return fmt.Sprintf("`%s`%s`close:%s`     `price:%v`     `volume:%v`", coin, pad(coin), side, price, volume)
}

func pad(coin model.Coin) string {
	n := 13 - len(coin)
	if n < 0 {
		n = 0
	}
	return strings.Repeat(" ", n)
}
