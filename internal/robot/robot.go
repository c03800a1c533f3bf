// Package robot wires the candle engine, the traders and the strategies
// into the realtime processing loop.
package robot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/helmos/coin-robot/internal/api"
	"github.com/helmos/coin-robot/internal/metrics"
	"github.com/helmos/coin-robot/internal/model"
	"github.com/helmos/coin-robot/internal/series"
	"github.com/helmos/coin-robot/internal/storage"
	"github.com/helmos/coin-robot/internal/strategy"
	"github.com/helmos/coin-robot/internal/trader"
)

const (
	defaultNotifyGap        = 30 * time.Minute
	defaultBootstrapDelay   = 3 * time.Second
	defaultStreamRetryDelay = 5 * time.Second
)

// Config describes which coins to watch and which ones to trade.
type Config struct {
	// Coins are all watched coins, traded or not.
	Coins []model.Coin
	// Periods are the tracked bucket widths, finest first.
	Periods []model.Period
	// TradeCoins maps a coin to the sides it may be opened on.
	TradeCoins map[model.Coin][]model.Side
	// NotifyGap rate-limits repeated notifications per key.
	NotifyGap time.Duration
	// BootstrapDelay is the pause between history bootstrap retries.
	BootstrapDelay time.Duration
	// StreamRetryDelay is the pause before a stream reconnect.
	StreamRetryDelay time.Duration
}

func (c *Config) withDefaults() {
	if c.NotifyGap == 0 {
		c.NotifyGap = defaultNotifyGap
	}
	if c.BootstrapDelay == 0 {
		c.BootstrapDelay = defaultBootstrapDelay
	}
	if c.StreamRetryDelay == 0 {
		c.StreamRetryDelay = defaultStreamRetryDelay
	}
}

// Robot owns one container and, for traded coins, one trader per coin.
// All engine state is mutated only by the Run loop, the traders also
// accept control-plane calls.
type Robot struct {
	exchange   api.Exchange
	store      storage.Positions
	notifier   api.Notifier
	config     Config
	strategies []strategy.Strategy
	traderOpts []trader.Option

	containers map[model.Coin]*series.Container
	traders    map[model.Coin]*trader.Trader
	lastNotify map[string]time.Time
	now        func() time.Time
}

// New creates a robot. Traders are initialized on Run.
func New(exchange api.Exchange, store storage.Positions, notifier api.Notifier, config Config, strategies []strategy.Strategy, traderOpts ...trader.Option) *Robot {
	config.withDefaults()
	r := &Robot{
		exchange:   exchange,
		store:      store,
		notifier:   notifier,
		config:     config,
		strategies: strategies,
		traderOpts: traderOpts,
		containers: make(map[model.Coin]*series.Container, len(config.Coins)),
		traders:    make(map[model.Coin]*trader.Trader),
		lastNotify: make(map[string]time.Time),
		now:        time.Now,
	}
	for _, coin := range config.Coins {
		r.containers[coin] = series.NewContainer(coin, exchange, config.Periods)
	}
	return r
}

// Trader exposes the trader of the coin for the control plane.
func (r *Robot) Trader(coin model.Coin) (*trader.Trader, bool) {
	t, ok := r.traders[coin]
	return t, ok
}

// Container exposes the candle container of the coin.
func (r *Robot) Container(coin model.Coin) (*series.Container, bool) {
	c, ok := r.containers[coin]
	return c, ok
}

// Run bootstraps the history, restores the traders and processes the
// realtime stream until the context is cancelled.
func (r *Robot) Run(ctx context.Context) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}
	if err := r.initTraders(ctx); err != nil {
		return err
	}

	pairs := make([]api.CoinPeriod, 0, len(r.containers)*len(r.config.Periods))
	for coin := range r.containers {
		for _, period := range r.config.Periods {
			pairs = append(pairs, api.CoinPeriod{Coin: coin, Period: period})
		}
	}

	for {
		stream, err := r.exchange.Stream(ctx, pairs)
		if err != nil {
			if errors.Is(err, api.ErrSymbolNotFound) {
				return fmt.Errorf("could not subscribe: %w", err)
			}
			log.Error().Err(err).Msg("could not open stream")
			if !r.pause(ctx, r.config.StreamRetryDelay) {
				return ctx.Err()
			}
			continue
		}
		for st := range stream {
			r.process(ctx, st)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Msg("stream ended, reconnecting")
		if !r.pause(ctx, r.config.StreamRetryDelay) {
			return ctx.Err()
		}
	}
}

// bootstrap loads the history for every coin, retrying transient failures.
// A pair unknown to the exchange drops that coin instead of blocking the rest.
func (r *Robot) bootstrap(ctx context.Context) error {
	for coin, container := range r.containers {
		for {
			err := container.Bootstrap(ctx)
			if err == nil {
				break
			}
			if errors.Is(err, api.ErrSymbolNotFound) {
				log.Warn().Str("coin", string(coin)).Err(err).Msg("dropping unknown symbol")
				delete(r.containers, coin)
				break
			}
			log.Warn().Str("coin", string(coin)).Err(err).Msg("history bootstrap failed, retrying")
			if !r.pause(ctx, r.config.BootstrapDelay) {
				return ctx.Err()
			}
		}
	}
	return nil
}

func (r *Robot) initTraders(ctx context.Context) error {
	coins := make([]model.Coin, 0, len(r.config.TradeCoins))
	for coin := range r.config.TradeCoins {
		if _, ok := r.containers[coin]; ok {
			coins = append(coins, coin)
		}
	}
	traders, err := trader.InitTraders(ctx, coins, r.exchange, r.store, r.notifier, r.traderOpts...)
	if err != nil {
		return fmt.Errorf("could not init traders: %w", err)
	}
	r.traders = traders
	return nil
}

func (r *Robot) process(ctx context.Context, st api.StreamTick) {
	container, ok := r.containers[st.Coin]
	if !ok {
		return
	}
	container.Ingest(st.Tick, st.Period)
	metrics.Observer.IncrementTicks(string(st.Coin), string(st.Period))

	r.health(st.Coin, container)

	if _, ok := r.config.TradeCoins[st.Coin]; ok {
		r.trade(ctx, st.Coin, container)
	}
}

func (r *Robot) trade(ctx context.Context, coin model.Coin, container *series.Container) {
	t, ok := r.traders[coin]
	if !ok || !t.CanTrade() {
		return
	}
	price := container.CurrentPrice()
	if price == 0 {
		return
	}
	status := t.Status()
	if !status.Trading {
		r.tryOpen(ctx, coin, container, t, price)
		return
	}
	r.tryClose(ctx, coin, container, t, status, price)
}

func (r *Robot) tryOpen(ctx context.Context, coin model.Coin, container *series.Container, t *trader.Trader, price float64) {
	sides := r.config.TradeCoins[coin]
	for _, side := range sides {
		for _, s := range r.strategies {
			var open bool
			var why string
			switch side {
			case model.Long:
				open, why = s.ShouldOpenLong(container)
			case model.Short:
				open, why = s.ShouldOpenShort(container)
			default:
				continue
			}
			if open {
				log.Info().Str("coin", string(coin)).Str("side", side.String()).Str("strategy", s.Name()).Str("why", why).Msg("opening")
				t.Open(ctx, side, price)
				return
			}
			log.Debug().Str("coin", string(coin)).Str("side", side.String()).Str("strategy", s.Name()).Str("why", why).Msg("not opening")
		}
	}
}

func (r *Robot) tryClose(ctx context.Context, coin model.Coin, container *series.Container, t *trader.Trader, status trader.Status, price float64) {
	for _, s := range r.strategies {
		var close bool
		var why string
		switch status.Side {
		case model.Long:
			close, why = s.ShouldCloseLong(container, status)
		case model.Short:
			close, why = s.ShouldCloseShort(container, status)
		default:
			return
		}
		if close {
			log.Info().Str("coin", string(coin)).Str("strategy", s.Name()).Str("why", why).Msg("closing")
			t.Close(ctx, price)
			return
		}
		log.Debug().Str("coin", string(coin)).Str("strategy", s.Name()).Str("why", why).Msg("not closing")
	}
}

// health sends a rate-limited liveness note per coin.
func (r *Robot) health(coin model.Coin, container *series.Container) {
	r.notifyLimited(
		fmt.Sprintf("health:%s", coin),
		fmt.Sprintf("%s: alive, price %v", coin, container.CurrentPrice()),
	)
}

// notifyLimited drops messages for a key sent more often than NotifyGap.
func (r *Robot) notifyLimited(key, message string) {
	if r.notifier == nil {
		return
	}
	now := r.now()
	if last, ok := r.lastNotify[key]; ok && now.Sub(last) < r.config.NotifyGap {
		return
	}
	r.lastNotify[key] = now
	r.notifier.Send(message)
}

func (r *Robot) pause(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
