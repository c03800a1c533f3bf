package strategy

import (
	"fmt"

	"github.com/helmos/coin-robot/internal/model"
	"github.com/helmos/coin-robot/internal/series"
	"github.com/helmos/coin-robot/internal/trader"
)

// DirectionRun opens when the last Run candles of the decision period all
// moved the same way and closes on the first candle against the position.
type DirectionRun struct {
	Period model.Period
	Run    int
}

// NewDirectionRun creates the strategy for the given period and run length.
func NewDirectionRun(period model.Period, run int) DirectionRun {
	if run <= 0 {
		run = 3
	}
	return DirectionRun{Period: period, Run: run}
}

func (d DirectionRun) Name() string {
	return fmt.Sprintf("direction-run-%s-%d", d.Period, d.Run)
}

func (d DirectionRun) ShouldOpenLong(container *series.Container) (bool, string) {
	return d.run(container, model.Up)
}

func (d DirectionRun) ShouldOpenShort(container *series.Container) (bool, string) {
	return d.run(container, model.Down)
}

func (d DirectionRun) ShouldCloseLong(container *series.Container, _ trader.Status) (bool, string) {
	return d.lastAgainst(container, model.Down)
}

func (d DirectionRun) ShouldCloseShort(container *series.Container, _ trader.Status) (bool, string) {
	return d.lastAgainst(container, model.Up)
}

func (d DirectionRun) run(container *series.Container, direction model.Direction) (bool, string) {
	s, ok := container.Get(d.Period)
	if !ok {
		return false, fmt.Sprintf("no series for period %s", d.Period)
	}
	if s.Size() < d.Run {
		return false, fmt.Sprintf("only %d of %d candles", s.Size(), d.Run)
	}
	for i := -d.Run; i < 0; i++ {
		c, _ := s.At(i)
		if c.Direction() != direction {
			return false, fmt.Sprintf("candle %d is %s, not %s", i, c.Direction(), direction)
		}
	}
	return true, fmt.Sprintf("last %d candles all %s", d.Run, direction)
}

func (d DirectionRun) lastAgainst(container *series.Container, direction model.Direction) (bool, string) {
	s, ok := container.Get(d.Period)
	if !ok {
		return false, fmt.Sprintf("no series for period %s", d.Period)
	}
	last, ok := s.Last()
	if !ok {
		return false, "no candles yet"
	}
	if last.Direction() == direction {
		return true, fmt.Sprintf("last candle turned %s", direction)
	}
	return false, fmt.Sprintf("last candle is %s", last.Direction())
}
