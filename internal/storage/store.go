// Package storage defines the position persistence contract.
// The engine only needs one row per position, inserted on open and
// updated once on the matching close.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/helmos/coin-robot/internal/model"
)

var (
	// ErrNotFound means the record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCouldNotSave means the record could not be written.
	ErrCouldNotSave = errors.New("could not save")
)

// Record is one persisted position row.
type Record struct {
	ID                string     `json:"id"`
	Coin              model.Coin `json:"coin"`
	Side              model.Side `json:"side"`
	OpenPrice         float64    `json:"open_price"`
	OpenPlanPrice     float64    `json:"open_plan_price"`
	OpenVolume        float64    `json:"open_volume"`
	OpenPlanVolume    float64    `json:"open_plan_volume"`
	OpenFee           float64    `json:"open_fee"`
	ClosePrice        float64    `json:"close_price"`
	ClosePlanPrice    float64    `json:"close_plan_price"`
	CloseFee          float64    `json:"close_fee"`
	BalanceBeforeOpen float64    `json:"balance_before_open"`
	BalanceAfterClose float64    `json:"balance_after_close"`
	OpenOrderID       string     `json:"open_order_id"`
	CloseOrderID      string     `json:"close_order_id"`
	Closed            bool       `json:"closed"`
	OpenTime          time.Time  `json:"open_time"`
	CloseTime         time.Time  `json:"close_time"`
}

// Positions persists position rows.
type Positions interface {
	// Insert stores a new row and returns its assigned key.
	Insert(ctx context.Context, record Record) (string, error)
	// Update overwrites the row with the given key.
	Update(ctx context.Context, record Record) error
	// Open returns the rows that are not closed yet.
	Open(ctx context.Context) ([]Record, error)
}

// Void is a no-op Positions implementation.
type Void struct{}

// NewVoid creates a no-op position store.
func NewVoid() Void {
	return Void{}
}

func (v Void) Insert(_ context.Context, _ Record) (string, error) {
	return "", nil
}

func (v Void) Update(_ context.Context, _ Record) error {
	return nil
}

func (v Void) Open(_ context.Context) ([]Record, error) {
	return nil, nil
}
