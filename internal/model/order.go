package model

import "time"

// OrderStatus is the exchange-side order state.
type OrderStatus string

const (
	OrderNew             OrderStatus = "NEW"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCanceled        OrderStatus = "CANCELED"
	OrderExpired         OrderStatus = "EXPIRED"
	OrderRejected        OrderStatus = "REJECTED"
)

// Terminal reports whether the order will not change state anymore.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderPartiallyFilled, OrderFilled, OrderCanceled, OrderExpired, OrderRejected:
		return true
	}
	return false
}

// Order is the exchange-side view of a placed order.
// It is never mutated locally, only replaced by a fresher read.
type Order struct {
	ID             string      `json:"id"`
	Coin           Coin        `json:"coin"`
	Side           Side        `json:"side"`
	Volume         float64     `json:"volume"`
	Price          float64     `json:"price"`
	Leverage       int         `json:"leverage"`
	ExecutedVolume float64     `json:"executed_volume"`
	AvgPrice       float64     `json:"avg_price"`
	Turnover       float64     `json:"turnover"`
	Fee            float64     `json:"fee"`
	Status         OrderStatus `json:"status"`
	Time           time.Time   `json:"time"`
}

// Filled reports whether the order was fully executed.
func (o Order) Filled() bool {
	return o.Status == OrderFilled
}
