package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/helmos/coin-robot/internal/model"
)

func TestSeries_SecondsFittingCondition(t *testing.T) {

	s := NewSeries(model.BTC, model.Min1)

	s.Ingest(tick(at(15, 43, 1), 5))
	s.Ingest(tick(at(15, 43, 10), 9))
	s.Ingest(tick(at(15, 43, 30), 20))

	assert.Equal(t, 29, s.SecondsFittingCondition(func(close float64) bool { return close <= 20 }))
	assert.Equal(t, 0, s.SecondsFittingCondition(func(close float64) bool { return close > 30 }))
}

func TestSeries_SecondsGreaterThanOpen(t *testing.T) {

	s := NewSeries(model.BTC, model.Min1)

	s.Ingest(model.Tick{Coin: model.BTC, Time: at(15, 43, 1), Open: 5, Close: 5})
	s.Ingest(model.Tick{Coin: model.BTC, Time: at(15, 43, 10), Open: 5, Close: 9})
	s.Ingest(model.Tick{Coin: model.BTC, Time: at(15, 43, 30), Open: 5, Close: 20})

	assert.Equal(t, 20, s.SecondsGreaterThanOpen())

	s.Ingest(model.Tick{Coin: model.BTC, Time: at(15, 43, 30), Open: 5, Close: 3})
	assert.Equal(t, 0, s.SecondsGreaterThanOpen())
}

func TestSeries_SecondsGreaterThanOpen_BucketBoundary(t *testing.T) {

	s := NewSeries(model.BTC, model.Min5)

	s.Ingest(model.Tick{Coin: model.BTC, Time: at(15, 43, 1), Open: 5, Close: 5})
	s.Ingest(model.Tick{Coin: model.BTC, Time: at(15, 43, 10), Open: 5, Close: 9})
	s.Ingest(model.Tick{Coin: model.BTC, Time: at(15, 45, 30), Open: 6, Close: 20})

	// only the newest tick is inside the current bucket,
	// the elapsed time is measured from the bucket start
	assert.Equal(t, 30, s.SecondsGreaterThanOpen())
}

func TestSeries_SecondsLessThanOpen(t *testing.T) {

	s := NewSeries(model.BTC, model.Min1)

	s.Ingest(model.Tick{Coin: model.BTC, Time: at(15, 43, 1), Open: 5, Close: 3})
	s.Ingest(model.Tick{Coin: model.BTC, Time: at(15, 43, 10), Open: 5, Close: 4})
	s.Ingest(model.Tick{Coin: model.BTC, Time: at(15, 43, 30), Open: 5, Close: 4})

	assert.Equal(t, 29, s.SecondsLessThanOpen())
}

// crossSeries feeds the closes 1..10,-50 into a fresh series tracking
// windows 5 and 9, which makes the two averages cross exactly once
// between the last two candles.
func crossSeries(t *testing.T) *Series {
	t.Helper()
	s := NewSeries(model.BTC, model.Min1, WithWindows(5, 9))
	start := at(18, 54, 0)
	for i, close := range []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, -50} {
		s.Ingest(tick(start.Add(time.Duration(i)*time.Minute), close))
	}
	return s
}

func TestSeries_MaCrossPointCount(t *testing.T) {

	s := crossSeries(t)

	for _, lookback := range []int{2, 3, 4} {
		assert.Equal(t, 1, s.MaCrossPointCount(lookback, []int{5, 9}))
	}
}

func TestSeries_MaCrossPointCount_NoCross(t *testing.T) {

	s := NewSeries(model.BTC, model.Min1, WithWindows(2, 4))
	start := at(10, 0, 0)
	for i := 0; i < 8; i++ {
		s.Ingest(tick(start.Add(time.Duration(i)*time.Minute), float64(i+1)))
	}

	// strictly increasing closes keep the short average above the long one
	assert.Equal(t, 0, s.MaCrossPointCount(4, []int{2, 4}))
}

func TestSeries_HasMaCrossed(t *testing.T) {

	s := crossSeries(t)

	assert.True(t, s.HasMaCrossed(5, 9, -2, -1))
	assert.True(t, s.HasMaCrossed(9, 5, -2, -1))
	assert.False(t, s.HasMaCrossed(5, 9, -3, -2))
	// missing values never report a crossing
	assert.False(t, s.HasMaCrossed(5, 9, -4, -1))
}

func TestSeries_MaCrossedByCandle(t *testing.T) {

	s := crossSeries(t)

	// both averages at -2 sit between the candle at -2 (10,10) and the
	// candle at -1 (-50,-50), so the drop sweeps over them
	crossed := s.MaCrossedByCandle(-2, -1, []int{5, 9})
	assert.True(t, crossed[5])
	assert.True(t, crossed[9])

	// the candle at -2 (open=close=10) touches neither average
	crossed = s.MaCrossedByCandle(-3, -2, []int{5, 9})
	assert.False(t, crossed[5])
	assert.False(t, crossed[9])
}

func TestSeries_MaCrossedByCandle_Gap(t *testing.T) {

	s := NewSeries(model.BTC, model.Min1, WithWindows(2))
	start := at(11, 0, 0)
	for i, close := range []float64{10, 2, 8} {
		s.Ingest(tick(start.Add(time.Duration(i)*time.Minute), close))
	}

	// the window-2 average at -2 is 6, which no candle range contains,
	// it lies in the gap between (2,2) and (8,8)
	crossed := s.MaCrossedByCandle(-2, -1, []int{2})
	assert.True(t, crossed[2])

	// the newest candle alone reports nothing, its range misses both values
	crossed = s.MaCrossedByCandle(-1, -1, []int{2})
	assert.False(t, crossed[2])
}
