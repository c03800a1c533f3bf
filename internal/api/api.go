// Package api holds the interfaces of the external collaborators
// and the error taxonomy shared across the engine.
package api

import (
	"context"
	"errors"

	"github.com/helmos/coin-robot/internal/model"
)

var (
	// ErrInsufficientMargin is a non-retryable open rejection reported by the exchange.
	ErrInsufficientMargin = errors.New("insufficient margin")
	// ErrNothingToClose means the position is already flat on the exchange side.
	ErrNothingToClose = errors.New("nothing to close")
	// ErrSymbolNotFound means the trading pair does not exist on the exchange.
	ErrSymbolNotFound = errors.New("symbol not found")
)

// CoinPeriod identifies one (coin, period) subscription.
type CoinPeriod struct {
	Coin   model.Coin
	Period model.Period
}

// StreamTick is one realtime update routed to a (coin, period) pair.
type StreamTick struct {
	Coin   model.Coin
	Period model.Period
	Tick   model.Tick
}

// Exchange abstracts the remote exchange.
// Implementations own the wire protocol, reconnects and signing.
type Exchange interface {
	// History returns historical ticks for the pair, most recent last.
	// Fails with ErrSymbolNotFound if the pair does not exist.
	History(ctx context.Context, coin model.Coin, period model.Period) ([]model.Tick, error)
	// Stream delivers realtime ticks for the given pairs until the context
	// is cancelled or the connection drops. Callers reconnect by calling again.
	Stream(ctx context.Context, pairs []CoinPeriod) (<-chan StreamTick, error)
	// SizeForBalance converts a notional amount into a valid order size
	// for the coin, applying the coin specific lot step rules.
	SizeForBalance(coin model.Coin, notional, price float64) (float64, error)
	// Open places a market order and returns the order id.
	Open(ctx context.Context, coin model.Coin, side model.Side, size float64) (string, error)
	// Close places a closing market order. It may return an empty id
	// together with ErrNothingToClose when there is no position left.
	Close(ctx context.Context, coin model.Coin, side model.Side, size float64) (string, error)
	// Order reads back the current state of an order.
	Order(ctx context.Context, coin model.Coin, id string) (model.Order, error)
	// Balance returns the available account balance for the coin's margin account.
	Balance(ctx context.Context, coin model.Coin) (float64, error)
}

// Notifier is the fire-and-forget message channel.
// Implementations swallow and log their own failures.
type Notifier interface {
	Send(message string)
}
