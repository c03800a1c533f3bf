package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	localclient "github.com/helmos/coin-robot/client/local"
	"github.com/helmos/coin-robot/infra/config"
	"github.com/helmos/coin-robot/internal/api"
	"github.com/helmos/coin-robot/internal/model"
	"github.com/helmos/coin-robot/internal/robot"
	"github.com/helmos/coin-robot/internal/storage"
	jsonstore "github.com/helmos/coin-robot/internal/storage/json"
	"github.com/helmos/coin-robot/internal/strategy"
	"github.com/helmos/coin-robot/internal/trader"
	localuser "github.com/helmos/coin-robot/user/local"
	"github.com/helmos/coin-robot/user/telegram"
)

func main() {

	ctx, cnl := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cnl()

	var raw config.Robot
	config.MustLoad("robot", &raw)

	cfg, err := raw.Parse(model.NewRegistry())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	var store storage.Positions = storage.NewVoid()
	if cfg.StorePath != "" {
		s, err := jsonstore.NewStore(cfg.StorePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.StorePath).Msg("could not open position store")
		}
		store = s
	}

	var notifier api.Notifier = localuser.NewNotifier()
	if cfg.Telegram {
		bot, err := telegram.NewBot()
		if err != nil {
			log.Fatal().Err(err).Msg("could not create telegram bot")
		}
		notifier = bot
	}

	// the wire protocol clients live behind api.Exchange,
	// the local exchange stands in until one is configured
	exchange := localclient.NewExchange().WithStrictLots()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":8080", nil); err != nil {
			log.Error().Err(err).Msg("metrics endpoint failed")
		}
	}()

	settings := trader.DefaultSettings()
	if cfg.TradeFraction > 0 {
		settings.TradeFraction = cfg.TradeFraction
	}
	opts := []trader.Option{trader.WithSettings(settings)}
	if cfg.PseudoTrading {
		opts = append(opts, trader.WithPseudoTrading())
	}

	strategies := make([]strategy.Strategy, 0, 1)
	if len(cfg.Periods) > 0 {
		strategies = append(strategies, strategy.NewDirectionRun(cfg.Periods[0], 3))
	}

	r := robot.New(exchange, store, notifier, robot.Config{
		Coins:      cfg.Coins,
		Periods:    cfg.Periods,
		TradeCoins: cfg.TradeCoins,
		NotifyGap:  cfg.NotifyGap,
	}, strategies, opts...)

	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("robot stopped")
	}
}
