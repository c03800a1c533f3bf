package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/helmos/coin-robot/internal/model"
)

func tick(t time.Time, price float64) model.Tick {
	return model.NewTick(model.BTC, t, price)
}

func at(hour, min, sec int) time.Time {
	return time.Date(2021, 1, 25, hour, min, sec, 0, time.UTC)
}

func TestSeries_Ingest(t *testing.T) {

	s := NewSeries(model.BTC, model.Min1)

	s.Ingest(tick(at(15, 43, 1), 5))
	s.Ingest(tick(at(15, 43, 10), 9))
	s.Ingest(tick(at(15, 50, 30), 20))

	assert.Equal(t, 2, s.Size())
	assert.Equal(t, 3, len(s.Ticks()))

	first, ok := s.At(0)
	assert.True(t, ok)
	assert.Equal(t, at(15, 43, 0), first.Start)
	assert.Equal(t, 5.0, first.Open)
	assert.Equal(t, 9.0, first.Close)

	last, ok := s.Last()
	assert.True(t, ok)
	assert.Equal(t, at(15, 50, 0), last.Start)
	assert.Equal(t, 20.0, last.Open)
	assert.Equal(t, 20.0, last.Close)
}

func TestSeries_IngestRollover(t *testing.T) {

	s := NewSeries(model.BTC, model.Min1)

	// candle count tracks the distinct bucket starts
	start := at(10, 0, 0)
	for i := 0; i < 10; i++ {
		s.Ingest(tick(start.Add(time.Duration(i)*time.Minute), float64(i+1)))
		s.Ingest(tick(start.Add(time.Duration(i)*time.Minute+30*time.Second), float64(i+1)))
	}
	assert.Equal(t, 10, s.Size())
	assert.Equal(t, 20, len(s.Ticks()))
}

func TestSeries_MovingAverage(t *testing.T) {

	s := NewSeries(model.BTC, model.Min1, WithWindows(3))

	start := at(10, 0, 0)
	for i, close := range []float64{1, 2, 3, 4} {
		s.Ingest(tick(start.Add(time.Duration(i)*time.Minute), close))
	}

	assert.Equal(t, 2, s.MaSize(3))

	v, ok := s.Ma(3, -2)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	v, ok = s.Ma(3, -1)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)

	// same-bucket update recomputes in place instead of appending
	s.Ingest(tick(start.Add(3*time.Minute+30*time.Second), 7))
	assert.Equal(t, 2, s.MaSize(3))
	v, _ = s.Ma(3, -1)
	assert.Equal(t, 4.0, v)

	// recomputing on unchanged input yields the identical value
	s.Ingest(tick(start.Add(3*time.Minute+40*time.Second), 7))
	w, _ := s.Ma(3, -1)
	assert.Equal(t, v, w)
}

func TestSeries_ReverseMovingAverage(t *testing.T) {

	s := NewSeries(model.BTC, model.Min1, WithWindows(2))

	start := at(10, 0, 0)
	// each bucket opens at i+1 and closes at i+2
	for i := 0; i < 4; i++ {
		s.Ingest(tick(start.Add(time.Duration(i)*time.Minute), float64(i+1)))
		s.Ingest(tick(start.Add(time.Duration(i)*time.Minute+20*time.Second), float64(i+2)))
	}

	v, ok := s.Ma(2, -1)
	assert.True(t, ok)
	assert.Equal(t, 4.5, v)

	r, ok := s.MaR(2, -1)
	assert.True(t, ok)
	assert.Equal(t, 3.5, r)
}

func TestSeries_MacdWarmUp(t *testing.T) {

	s := NewSeries(model.BTC, model.Min1)

	start := at(10, 0, 0)
	// defaults need 2 x slow(40) closes before any entry shows up
	for i := 0; i < 79; i++ {
		s.Ingest(tick(start.Add(time.Duration(i)*time.Minute), float64(100+i%7)))
		assert.Equal(t, 0, s.MacdSize())
	}

	s.Ingest(tick(start.Add(79*time.Minute), 100))
	assert.Equal(t, 1, s.MacdSize())

	// same-bucket update overwrites, rollover appends
	s.Ingest(tick(start.Add(79*time.Minute+30*time.Second), 101))
	assert.Equal(t, 1, s.MacdSize())
	s.Ingest(tick(start.Add(80*time.Minute), 102))
	assert.Equal(t, 2, s.MacdSize())
}

func TestSeries_OutOfOrderTick(t *testing.T) {

	s := NewSeries(model.BTC, model.Min1, WithWindows(1))

	s.Ingest(tick(at(15, 43, 1), 5))
	s.Ingest(tick(at(15, 50, 30), 20))

	candles := s.Candles()
	maBefore, _ := s.Ma(1, -1)
	maSize := s.MaSize(1)

	s.Ingest(tick(at(15, 40, 0), 999))

	// the stale tick lands in the buffer but mutates nothing else
	assert.Equal(t, 3, len(s.Ticks()))
	assert.Equal(t, candles, s.Candles())
	assert.Equal(t, maSize, s.MaSize(1))
	maAfter, _ := s.Ma(1, -1)
	assert.Equal(t, maBefore, maAfter)
	assert.Equal(t, 0, s.MacdSize())
}

func TestSeries_Eviction(t *testing.T) {

	s := NewSeries(model.BTC, model.Min1, WithCapacity(3), WithWindows(2))

	start := at(10, 0, 0)
	for i := 0; i < 5; i++ {
		s.Ingest(tick(start.Add(time.Duration(i)*time.Minute), float64(i+1)))
	}

	assert.Equal(t, 3, s.Size())
	first, _ := s.At(0)
	assert.Equal(t, 3.0, first.Close)
}
