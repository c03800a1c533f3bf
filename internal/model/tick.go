package model

import (
	"encoding/json"
	"time"
)

// Tick is a single price sample from the exchange.
// It is immutable once constructed.
type Tick struct {
	Coin   Coin            `json:"coin"`
	Time   time.Time       `json:"time"`
	Event  time.Time       `json:"event,omitempty"`
	Open   float64         `json:"open"`
	Close  float64         `json:"close"`
	High   float64         `json:"high"`
	Low    float64         `json:"low"`
	Volume float64         `json:"volume"`
	Amount float64         `json:"amount"`
	Final  bool            `json:"final"`
	Raw    json.RawMessage `json:"-"`
}

// NewTick creates a tick from a single price point.
func NewTick(coin Coin, t time.Time, price float64) Tick {
	return Tick{
		Coin:  coin,
		Time:  t,
		Open:  price,
		Close: price,
		High:  price,
		Low:   price,
	}
}
