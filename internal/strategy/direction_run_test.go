package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/helmos/coin-robot/internal/model"
	"github.com/helmos/coin-robot/internal/series"
	"github.com/helmos/coin-robot/internal/trader"
)

// feed builds a container whose 1min series saw one candle per close,
// each candle opening at the previous close.
func feed(t *testing.T, closes []float64) *series.Container {
	t.Helper()
	c := series.NewContainer(model.BTC, nil, []model.Period{model.Min1})
	start := time.Date(2021, 1, 25, 10, 0, 0, 0, time.UTC)
	prev := closes[0]
	for i, close := range closes {
		ts := start.Add(time.Duration(i) * time.Minute)
		c.Ingest(model.Tick{Coin: model.BTC, Time: ts, Open: prev, Close: close})
		prev = close
	}
	return c
}

func TestDirectionRun_Open(t *testing.T) {

	d := NewDirectionRun(model.Min1, 3)

	up := feed(t, []float64{10, 11, 12, 13})
	ok, why := d.ShouldOpenLong(up)
	assert.True(t, ok, why)
	ok, _ = d.ShouldOpenShort(up)
	assert.False(t, ok)

	mixed := feed(t, []float64{10, 11, 9, 13})
	ok, _ = d.ShouldOpenLong(mixed)
	assert.False(t, ok)

	short := feed(t, []float64{10, 11})
	ok, why = d.ShouldOpenLong(short)
	assert.False(t, ok)
	assert.Contains(t, why, "candles")
}

func TestDirectionRun_Close(t *testing.T) {

	d := NewDirectionRun(model.Min1, 3)

	down := feed(t, []float64{10, 11, 12, 11})
	ok, _ := d.ShouldCloseLong(down, trader.Status{Side: model.Long})
	assert.True(t, ok)
	ok, _ = d.ShouldCloseShort(down, trader.Status{Side: model.Short})
	assert.False(t, ok)
}
