// Package config loads the process configuration from yaml files.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/helmos/coin-robot/internal/model"
)

const path = "infra/config"

// MustLoad loads the config for the given key.
func MustLoad(key string, v interface{}) {
	b, err := os.ReadFile(fmt.Sprintf("%s/%s.yml", path, key))
	if err != nil {
		panic(fmt.Sprintf("could not load config for %s: %s", key, err.Error()))
	}
	if err := yaml.Unmarshal(b, v); err != nil {
		panic(fmt.Sprintf("could not unmarshal the config for %s: %s", key, err.Error()))
	}
	log.Info().Str("config", key).Msg("loaded config")
}

// Robot is the raw process configuration.
type Robot struct {
	Coins         []string `yaml:"coins"`
	Periods       []string `yaml:"periods"`
	Trade         []Trade  `yaml:"trade"`
	NotifyTimeGap string   `yaml:"notify_time_gap"`
	PseudoTrading bool     `yaml:"pseudo_trading"`
	TradeFraction float64  `yaml:"trade_fraction"`
	StorePath     string   `yaml:"store_path"`
	Telegram      bool     `yaml:"telegram"`
}

// Trade names one tradeable coin and its allowed sides.
type Trade struct {
	Coin  string   `yaml:"coin"`
	Sides []string `yaml:"sides"`
}

// Parsed is the validated configuration.
type Parsed struct {
	Coins         []model.Coin
	Periods       []model.Period
	TradeCoins    map[model.Coin][]model.Side
	NotifyGap     time.Duration
	PseudoTrading bool
	TradeFraction float64
	StorePath     string
	Telegram      bool
}

// Parse validates the raw configuration against the coin registry
// and the period table.
func (r Robot) Parse(registry *model.Registry) (Parsed, error) {
	p := Parsed{
		TradeCoins:    make(map[model.Coin][]model.Side),
		PseudoTrading: r.PseudoTrading,
		TradeFraction: r.TradeFraction,
		StorePath:     r.StorePath,
		Telegram:      r.Telegram,
	}
	for _, code := range r.Coins {
		coin, err := registry.Lookup(code)
		if err != nil {
			return Parsed{}, err
		}
		p.Coins = append(p.Coins, coin)
	}
	for _, code := range r.Periods {
		period, err := model.ParsePeriod(code)
		if err != nil {
			return Parsed{}, err
		}
		p.Periods = append(p.Periods, period)
	}
	for _, trade := range r.Trade {
		coin, err := registry.Lookup(trade.Coin)
		if err != nil {
			return Parsed{}, err
		}
		sides := make([]model.Side, 0, len(trade.Sides))
		for _, s := range trade.Sides {
			side, err := parseSide(s)
			if err != nil {
				return Parsed{}, err
			}
			sides = append(sides, side)
		}
		p.TradeCoins[coin] = sides
	}
	if r.NotifyTimeGap != "" {
		gap, err := ParseDuration(r.NotifyTimeGap)
		if err != nil {
			return Parsed{}, err
		}
		p.NotifyGap = gap
	}
	return p, nil
}

var durationPattern = regexp.MustCompile(`^(\d+)\s*(s|sec|m|min|h|hour)$`)

// ParseDuration parses a structured magnitude plus unit duration,
// e.g. '30s', '3min', '1h'. Nothing is ever evaluated as code.
func ParseDuration(val string) (time.Duration, error) {
	match := durationPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(val)))
	if match == nil {
		return 0, fmt.Errorf("unsupported duration: %s", val)
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, fmt.Errorf("unsupported duration: %s", val)
	}
	switch match[2] {
	case "s", "sec":
		return time.Duration(n) * time.Second, nil
	case "m", "min":
		return time.Duration(n) * time.Minute, nil
	case "h", "hour":
		return time.Duration(n) * time.Hour, nil
	}
	return 0, fmt.Errorf("unsupported duration: %s", val)
}

func parseSide(val string) (model.Side, error) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "long":
		return model.Long, nil
	case "short":
		return model.Short, nil
	}
	return model.NoSide, fmt.Errorf("unsupported side: %s", val)
}
