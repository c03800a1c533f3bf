package trader

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/helmos/coin-robot/internal/api"
	"github.com/helmos/coin-robot/internal/model"
	"github.com/helmos/coin-robot/internal/storage"
)

// InitTraders builds one trader per coin.
// Open positions found in the store are restored as trading, every other
// coin starts flat with a freshly fetched balance, so that the first open
// does not have to wait for a balance round trip.
func InitTraders(ctx context.Context, coins []model.Coin, exchange api.Exchange, store storage.Positions, notifier api.Notifier, opts ...Option) (map[model.Coin]*Trader, error) {
	traders := make(map[model.Coin]*Trader, len(coins))

	records, err := store.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read open positions: %w", err)
	}
	for _, record := range records {
		t, err := New(record.Coin, exchange, store, notifier, opts...)
		if err != nil {
			return nil, err
		}
		openPrice := record.OpenPrice
		if openPrice == 0 {
			openPrice = record.OpenPlanPrice
		}
		openVolume := record.OpenVolume
		if openVolume == 0 {
			openVolume = record.OpenPlanVolume
		}
		t.mutex.Lock()
		t.trading = true
		t.trades = 1
		t.side = record.Side
		t.balance = record.BalanceBeforeOpen
		t.openPrice = openPrice
		t.openVolume = openVolume
		t.openTime = record.OpenTime
		t.recordID = record.ID
		t.mutex.Unlock()
		traders[record.Coin] = t
		log.Info().
			Str("coin", string(record.Coin)).
			Str("side", record.Side.String()).
			Float64("price", openPrice).
			Msg("restored open position")
	}

	for _, coin := range coins {
		if _, ok := traders[coin]; ok {
			continue
		}
		t, err := New(coin, exchange, store, notifier, opts...)
		if err != nil {
			return nil, err
		}
		t.RefreshBalance(ctx)
		traders[coin] = t
	}
	return traders, nil
}
