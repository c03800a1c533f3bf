package series

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SecondsFittingCondition walks the tick buffer backward from the newest tick
// while the predicate holds on the tick close and returns the elapsed seconds
// between the first and the last qualifying tick. Fewer than two qualifying
// ticks yield 0.
func (s *Series) SecondsFittingCondition(fn func(close float64) bool) int {
	ticks := s.ticks.Values()
	var start, end time.Time
	for i := len(ticks) - 1; i >= 0; i-- {
		if !fn(ticks[i].Close) {
			break
		}
		if i == len(ticks)-1 {
			end = ticks[i].Time
		} else {
			start = ticks[i].Time
		}
	}
	if start.IsZero() || end.IsZero() {
		return 0
	}
	return int(end.Sub(start).Seconds())
}

// SecondsGreaterThanOpen returns for how long the price stayed strictly above
// the open of the current candle.
func (s *Series) SecondsGreaterThanOpen() int {
	return s.secondsVsOpen(func(close, open float64) bool { return close > open })
}

// SecondsLessThanOpen returns for how long the price stayed strictly below
// the open of the current candle.
func (s *Series) SecondsLessThanOpen() int {
	return s.secondsVsOpen(func(close, open float64) bool { return close < open })
}

// secondsVsOpen walks the tick buffer backward only within the current
// candle's bucket. When every in-bucket tick qualifies the elapsed time is
// measured from the bucket start itself.
func (s *Series) secondsVsOpen(cmp func(close, open float64) bool) int {
	last, ok := s.candles.Last()
	if !ok {
		return 0
	}
	ticks := s.ticks.Values()
	var start, end time.Time
	for i := len(ticks) - 1; i >= 0; i-- {
		tick := ticks[i]
		if !s.period.Truncate(tick.Time).Equal(last.Start) {
			break
		}
		if !cmp(tick.Close, last.Open) {
			break
		}
		if i == len(ticks)-1 {
			end = tick.Time
		} else {
			start = tick.Time
		}
	}
	if end.IsZero() {
		return 0
	}
	if start.IsZero() {
		return int(end.Sub(last.Start).Seconds())
	}
	return int(end.Sub(start).Seconds())
}

// MaCrossPointCount counts moving average crossings within the last lookback
// candles. For every unordered pair of windows each adjacent index step is
// checked for a sign change in the difference of the two series. A step
// touching zero at one end counts once per pair and value, a proper sign
// change counts once per step.
func (s *Series) MaCrossPointCount(lookback int, windows []int) int {
	if len(windows) == 0 {
		windows = s.windows
	}
	crossings := make(map[string]struct{})
	for i := 0; i < len(windows); i++ {
		for j := i + 1; j < len(windows); j++ {
			w1, w2 := windows[i], windows[j]
			if w1 > w2 {
				w1, w2 = w2, w1
			}
			pair := fmt.Sprintf("%d-%d", w1, w2)
			for start := -lookback; start < -1; start++ {
				end := start + 1
				a1, ok1 := s.Ma(w1, start)
				a2, ok2 := s.Ma(w2, start)
				b1, ok3 := s.Ma(w1, end)
				b2, ok4 := s.Ma(w2, end)
				if !ok1 || !ok2 || !ok3 || !ok4 {
					continue
				}
				a := a1 - a2
				b := b1 - b2
				switch {
				case a == 0 && b == 0:
					// the two averages run together, not a crossing
				case a == 0:
					crossings[fmt.Sprintf("%s:%v", pair, a1)] = struct{}{}
				case b == 0:
					crossings[fmt.Sprintf("%s:%v", pair, b1)] = struct{}{}
				case a*b < 0:
					crossings[fmt.Sprintf("%s:%s", pair, uuid.New().String())] = struct{}{}
				}
			}
		}
	}
	return len(crossings)
}

// HasMaCrossed reports whether the two moving averages cross between the
// start and end positions. The comparison is symmetric in both series.
func (s *Series) HasMaCrossed(w1, w2, startIndex, endIndex int) bool {
	a1, ok1 := s.Ma(w1, startIndex)
	a2, ok2 := s.Ma(w2, startIndex)
	b1, ok3 := s.Ma(w1, endIndex)
	b2, ok4 := s.Ma(w2, endIndex)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	a := a1 - a2
	b := b1 - b2
	if a == 0 && b == 0 {
		return false
	}
	return a == 0 || b == 0 || a*b < 0
}

// MaCrossedByCandle returns the windows whose moving average value falls
// within a candle's open to close range anywhere in [startIndex, endIndex],
// or within the gap between consecutive candles whose ranges do not overlap.
// Positions are negative, addressing from the newest candle.
func (s *Series) MaCrossedByCandle(startIndex, endIndex int, windows []int) map[int]bool {
	if len(windows) == 0 {
		windows = s.windows
	}
	crossed := make(map[int]bool)
	collect := func(index int, v1, v2 float64) {
		lo, hi := v1, v2
		if lo > hi {
			lo, hi = hi, lo
		}
		for _, w := range windows {
			v, ok := s.Ma(w, index)
			if !ok {
				continue
			}
			if lo <= v && v <= hi {
				crossed[w] = true
			}
		}
	}
	for i := startIndex; i <= endIndex; i++ {
		c, ok := s.candles.At(i)
		if !ok {
			continue
		}
		collect(i, c.Open, c.Close)
		if i == endIndex {
			continue
		}
		next, ok := s.candles.At(i + 1)
		if !ok {
			continue
		}
		curMin, curMax := minMax(c.Open, c.Close)
		nextMin, nextMax := minMax(next.Open, next.Close)
		switch {
		case curMax < nextMin:
			collect(i, curMax, nextMin)
		case curMin > nextMax:
			collect(i, curMin, nextMax)
		}
	}
	return crossed
}

func minMax(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}
