// Package series implements the streaming candle aggregation engine,
// one bounded candle sequence per (coin, period) pair with incrementally
// maintained moving averages and a MACD series.
package series

import (
	"math"
	"sort"

	talib "github.com/markcheno/go-talib"
	"github.com/rs/zerolog/log"

	"github.com/helmos/coin-robot/internal/buffer"
	coinmath "github.com/helmos/coin-robot/internal/math"
	"github.com/helmos/coin-robot/internal/model"
)

const (
	// DefaultCapacity covers roughly a month of one minute candles.
	DefaultCapacity = 60 * 24 * 30

	defaultMacdFast   = 20
	defaultMacdSlow   = 40
	defaultMacdSignal = 15
)

// DefaultWindows are the moving average windows tracked when none are configured.
var DefaultWindows = []int{20, 40, 60}

// Macd is one MACD triple.
type Macd struct {
	Dif  float64 `json:"dif"`
	Dea  float64 `json:"dea"`
	Hist float64 `json:"hist"`
}

// Series is the bounded candle sequence for one (coin, period) pair,
// together with the derived indicator series and a raw tick ring used
// for sub-candle queries.
type Series struct {
	coin    model.Coin
	period  model.Period
	candles *buffer.Ring[model.Candle]
	ticks   *buffer.Ring[model.Tick]

	windows []int
	ma      map[int]*buffer.Ring[float64]
	// maR mirrors ma on the open price, used when evaluating shorts.
	maR map[int]*buffer.Ring[float64]

	macdFast   int
	macdSlow   int
	macdSignal int
	macd       *buffer.Ring[Macd]
}

// Option configures a Series.
type Option func(*Series)

// WithWindows sets the moving average windows to track.
func WithWindows(windows ...int) Option {
	return func(s *Series) {
		s.windows = windows
	}
}

// WithCapacity sets the candle buffer capacity.
func WithCapacity(capacity int) Option {
	return func(s *Series) {
		s.candles = buffer.NewRing[model.Candle](capacity)
	}
}

// WithMacd sets the MACD periods.
func WithMacd(fast, slow, signal int) Option {
	return func(s *Series) {
		s.macdFast = fast
		s.macdSlow = slow
		s.macdSignal = signal
	}
}

// NewSeries creates a series for the given coin and period.
func NewSeries(coin model.Coin, period model.Period, opts ...Option) *Series {
	s := &Series{
		coin:       coin,
		period:     period,
		candles:    buffer.NewRing[model.Candle](DefaultCapacity),
		ticks:      buffer.NewRing[model.Tick](period.TickBufferSize()),
		windows:    DefaultWindows,
		macdFast:   defaultMacdFast,
		macdSlow:   defaultMacdSlow,
		macdSignal: defaultMacdSignal,
	}
	for _, opt := range opts {
		opt(s)
	}
	windows := make([]int, 0, len(s.windows))
	seen := make(map[int]bool)
	for _, w := range s.windows {
		if w > 0 && !seen[w] {
			seen[w] = true
			windows = append(windows, w)
		}
	}
	sort.Ints(windows)
	s.windows = windows
	s.ma = make(map[int]*buffer.Ring[float64], len(windows))
	s.maR = make(map[int]*buffer.Ring[float64], len(windows))
	for _, w := range windows {
		s.ma[w] = buffer.NewRing[float64](s.candleCapacity())
		s.maR[w] = buffer.NewRing[float64](s.candleCapacity())
	}
	s.macd = buffer.NewRing[Macd](s.candleCapacity())
	return s
}

func (s *Series) candleCapacity() int {
	if s.candles == nil {
		return DefaultCapacity
	}
	return s.candles.Capacity()
}

// Coin returns the coin of the series.
func (s *Series) Coin() model.Coin {
	return s.coin
}

// Period returns the bucket width of the series.
func (s *Series) Period() model.Period {
	return s.period
}

// Windows returns the tracked moving average windows, ascending.
func (s *Series) Windows() []int {
	out := make([]int, len(s.windows))
	copy(out, s.windows)
	return out
}

// Ingest folds one tick into the series.
// A tick starting a later bucket rolls a new candle over, a same-bucket tick
// updates the open candle in place and an out-of-order tick is discarded.
func (s *Series) Ingest(tick model.Tick) {
	start := s.period.Truncate(tick.Time)
	rollover := false
	if last, ok := s.candles.Last(); !ok || start.After(last.Start) {
		s.candles.Push(model.NewCandle(s.period, start, tick))
		rollover = true
	} else if start.Equal(last.Start) {
		last.Apply(tick)
		s.candles.SetLast(last)
	} else {
		log.Warn().
			Str("coin", string(s.coin)).
			Str("period", string(s.period)).
			Time("tick", tick.Time).
			Time("bucket", start).
			Time("last", last.Start).
			Msg("discarding out of order tick")
		s.ticks.Push(tick)
		return
	}
	s.ticks.Push(tick)

	for _, w := range s.windows {
		s.updateMa(w, rollover)
	}
	s.updateMacd(rollover)
}

// Size returns the number of stored candles.
func (s *Series) Size() int {
	return s.candles.Size()
}

// Last returns the newest candle.
func (s *Series) Last() (model.Candle, bool) {
	return s.candles.Last()
}

// At returns the candle at the given position, negative positions
// addressing from the newest candle.
func (s *Series) At(i int) (model.Candle, bool) {
	return s.candles.At(i)
}

// Candles returns the stored candles ordered oldest first.
func (s *Series) Candles() []model.Candle {
	return s.candles.Values()
}

// Ticks returns the buffered raw ticks ordered oldest first.
func (s *Series) Ticks() []model.Tick {
	return s.ticks.Values()
}

// Ma returns the moving average value for the window at the given position.
func (s *Series) Ma(window, i int) (float64, bool) {
	ring, ok := s.ma[window]
	if !ok {
		return 0, false
	}
	return ring.At(i)
}

// MaR returns the open price moving average for the window at the given position.
func (s *Series) MaR(window, i int) (float64, bool) {
	ring, ok := s.maR[window]
	if !ok {
		return 0, false
	}
	return ring.At(i)
}

// MaSize returns the number of values in the window's moving average series.
func (s *Series) MaSize(window int) int {
	ring, ok := s.ma[window]
	if !ok {
		return 0
	}
	return ring.Size()
}

// MacdAt returns the MACD triple at the given position.
func (s *Series) MacdAt(i int) (Macd, bool) {
	return s.macd.At(i)
}

// MacdSize returns the number of MACD entries.
func (s *Series) MacdSize() int {
	return s.macd.Size()
}

// Clear drops all candles, ticks and indicator values.
func (s *Series) Clear() {
	s.candles.Clear()
	s.ticks.Clear()
	for _, w := range s.windows {
		s.ma[w].Clear()
		s.maR[w].Clear()
	}
	s.macd.Clear()
}

// updateMa recomputes the trailing mean over the last window candles
// from scratch rather than patching the previous value.
func (s *Series) updateMa(window int, rollover bool) {
	if s.candles.Size() < window {
		return
	}
	closes := make([]float64, 0, window)
	opens := make([]float64, 0, window)
	for i := -window; i < 0; i++ {
		c, _ := s.candles.At(i)
		closes = append(closes, c.Close)
		opens = append(opens, c.Open)
	}
	maValue := coinmath.Mean(closes)
	maRValue := coinmath.Mean(opens)
	if rollover || s.ma[window].Size() == 0 {
		s.ma[window].Push(maValue)
		s.maR[window].Push(maRValue)
	} else {
		s.ma[window].SetLast(maValue)
		s.maR[window].SetLast(maRValue)
	}
}

func (s *Series) updateMacd(rollover bool) {
	need := 2 * s.macdSlow
	if s.macdFast > s.macdSlow {
		need = 2 * s.macdFast
	}
	if s.candles.Size() < need {
		return
	}
	closes := make([]float64, 0, need)
	for i := -need; i < 0; i++ {
		c, _ := s.candles.At(i)
		closes = append(closes, c.Close)
	}
	dif, dea, hist := talib.Macd(closes, s.macdFast, s.macdSlow, s.macdSignal)
	value := Macd{
		Dif:  dif[len(dif)-1],
		Dea:  dea[len(dea)-1],
		Hist: hist[len(hist)-1],
	}
	// indicator warm-up inside the window yields NaN, keep the series clean
	if math.IsNaN(value.Dif) || math.IsNaN(value.Dea) || math.IsNaN(value.Hist) {
		return
	}
	if rollover || s.macd.Size() == 0 {
		s.macd.Push(value)
	} else {
		s.macd.SetLast(value)
	}
}
