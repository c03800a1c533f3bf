package model

import (
	"time"

	coinmath "github.com/helmos/coin-robot/internal/math"
)

// Direction classifies a candle by its open to close movement.
type Direction byte

const (
	// NoDirection means there is not enough data to classify the candle.
	NoDirection Direction = iota
	// Up means the close is above the open.
	Up
	// Flat means the close equals the open.
	Flat
	// Down means the close is below the open.
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Flat:
		return "flat"
	case Down:
		return "down"
	}
	return ""
}

// Candle is one OHLCV bucket for a fixed period.
// It is mutated in place while it is the newest bucket of its series
// and implicitly sealed once a tick starts a later bucket.
type Candle struct {
	Period  Period    `json:"period"`
	Start   time.Time `json:"start"`
	Open    float64   `json:"open"`
	Close   float64   `json:"close"`
	High    float64   `json:"high"`
	Low     float64   `json:"low"`
	Volume  float64   `json:"volume"`
	Final   bool      `json:"final"`
	Updated time.Time `json:"updated"`
}

// NewCandle seeds a candle from the first tick of its bucket.
func NewCandle(period Period, start time.Time, tick Tick) Candle {
	open := tick.Open
	if open == 0 {
		open = tick.Close
	}
	high := tick.High
	if high == 0 {
		high = tick.Close
	}
	low := tick.Low
	if low == 0 {
		low = tick.Close
	}
	return Candle{
		Period:  period,
		Start:   start,
		Open:    open,
		Close:   tick.Close,
		High:    high,
		Low:     low,
		Volume:  tick.Volume,
		Final:   tick.Final,
		Updated: tick.Time,
	}
}

// Apply folds a same-bucket tick into the candle.
// The open is set once by the first tick and never moves, high and low
// track the running extremes of the bucket.
func (c *Candle) Apply(tick Tick) {
	c.Close = tick.Close
	high := tick.High
	if high == 0 {
		high = tick.Close
	}
	low := tick.Low
	if low == 0 {
		low = tick.Close
	}
	if high > c.High {
		c.High = high
	}
	if low < c.Low {
		c.Low = low
	}
	c.Volume = tick.Volume
	c.Final = tick.Final
	c.Updated = tick.Time
}

// Direction returns the candle movement classification.
func (c Candle) Direction() Direction {
	switch {
	case c.Open == 0 && c.Close == 0:
		return NoDirection
	case c.Close > c.Open:
		return Up
	case c.Close < c.Open:
		return Down
	}
	return Flat
}

// Percent returns the open to close change in percent, rounded to 2 decimals.
func (c Candle) Percent() float64 {
	if c.Open == 0 {
		return 0.0
	}
	return coinmath.Round(100*(c.Close-c.Open)/c.Open, 2)
}
