package series

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/helmos/coin-robot/internal/api"
	"github.com/helmos/coin-robot/internal/model"
)

// Container owns one Series per configured period for a single coin
// and bootstraps each from historical data before accepting live ticks.
type Container struct {
	coin         model.Coin
	periods      []model.Period
	series       map[model.Period]*Series
	exchange     api.Exchange
	bootstrapped bool
}

// NewContainer creates a container with one series per period.
// The first period is the finest one and acts as the price reference.
func NewContainer(coin model.Coin, exchange api.Exchange, periods []model.Period, opts ...Option) *Container {
	c := &Container{
		coin:     coin,
		periods:  append([]model.Period(nil), periods...),
		series:   make(map[model.Period]*Series, len(periods)),
		exchange: exchange,
	}
	for _, p := range periods {
		c.series[p] = NewSeries(coin, p, opts...)
	}
	return c
}

// Coin returns the coin of the container.
func (c *Container) Coin() model.Coin {
	return c.coin
}

// Periods returns the configured periods in order.
func (c *Container) Periods() []model.Period {
	return append([]model.Period(nil), c.periods...)
}

// Get returns the series for the given period.
// Callers always state which period they want, there is no implicit default.
func (c *Container) Get(period model.Period) (*Series, bool) {
	s, ok := c.series[period]
	return s, ok
}

// CurrentPrice returns the latest close of the finest period, 0 when empty.
func (c *Container) CurrentPrice() float64 {
	if len(c.periods) == 0 {
		return 0
	}
	s, ok := c.series[c.periods[0]]
	if !ok {
		return 0
	}
	last, ok := s.Last()
	if !ok {
		return 0
	}
	return last.Close
}

// Bootstrap loads the history of every period into its series.
// It is all-or-nothing, any failure clears every period's state before the
// error propagates, and idempotent, a second call after success is a no-op.
func (c *Container) Bootstrap(ctx context.Context) error {
	if c.bootstrapped {
		return nil
	}
	for _, period := range c.periods {
		ticks, err := c.exchange.History(ctx, c.coin, period)
		if err != nil {
			c.clear()
			return fmt.Errorf("could not bootstrap %s %s: %w", c.coin, period, err)
		}
		s := c.series[period]
		for _, tick := range ticks {
			s.Ingest(tick)
		}
		log.Info().
			Str("coin", string(c.coin)).
			Str("period", string(period)).
			Int("candles", s.Size()).
			Msg("bootstrapped series")
	}
	c.bootstrapped = true
	return nil
}

// Bootstrapped reports whether the history bootstrap completed.
func (c *Container) Bootstrapped() bool {
	return c.bootstrapped
}

// Ingest routes a tick to the given periods, or fans it out to every
// configured period when none are given.
func (c *Container) Ingest(tick model.Tick, periods ...model.Period) {
	if len(periods) == 0 {
		periods = c.periods
	}
	for _, p := range periods {
		if s, ok := c.series[p]; ok {
			s.Ingest(tick)
		}
	}
}

func (c *Container) clear() {
	for _, s := range c.series {
		s.Clear()
	}
	c.bootstrapped = false
}
