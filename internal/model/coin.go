package model

import (
	"fmt"
	"strings"
)

// Coin defines a custom coin type
type Coin string

const (
	// NoCoin is a undefined coin
	NoCoin Coin = ""
	// BTC represents bitcoin
	BTC Coin = "BTC"
	// ETH represents the ethereum token
	ETH Coin = "ETH"
	// UNI represents the uniswap token
	UNI Coin = "UNI"
	// ADA represents cardano
	ADA Coin = "ADA"
	// BCH represents bitcoin cash
	BCH Coin = "BCH"
	// LTC represents litecoin
	LTC Coin = "LTC"
	// LINK represents chainlink
	LINK Coin = "LINK"
	// BNB represents the binance token
	BNB Coin = "BNB"
	// DOT represents polkadot
	DOT Coin = "DOT"
	// XRP represents the xrp token
	XRP Coin = "XRP"
	// EOS represents eos
	EOS Coin = "EOS"
	// DOGE represents dogecoin
	DOGE Coin = "DOGE"
	// SUSHI represents the sushiswap token
	SUSHI Coin = "SUSHI"
	// DASH represents dash
	DASH Coin = "DASH"
)

// coreCoins is the fixed set the registry always knows about.
var coreCoins = []Coin{BTC, ETH, UNI, ADA, BCH, LTC, LINK, BNB, DOT, XRP, EOS, DOGE, SUSHI, DASH}

// Registry resolves normalized coin codes into typed coins.
// It is built once at startup from the core set plus any symbols
// discovered from the exchange, and is read-only afterwards.
type Registry struct {
	coins map[string]Coin
}

// NewRegistry creates a registry from the core coin set merged with the given discovered codes.
func NewRegistry(discovered ...string) *Registry {
	coins := make(map[string]Coin, len(coreCoins)+len(discovered))
	for _, c := range coreCoins {
		coins[string(c)] = c
	}
	for _, code := range discovered {
		code = normalize(code)
		if code == "" {
			continue
		}
		if _, ok := coins[code]; !ok {
			coins[code] = Coin(code)
		}
	}
	return &Registry{coins: coins}
}

// Lookup returns the coin for the given code, failing on unknown codes.
func (r *Registry) Lookup(code string) (Coin, error) {
	if c, ok := r.coins[normalize(code)]; ok {
		return c, nil
	}
	return NoCoin, fmt.Errorf("unknown coin: %s", code)
}

// Coins returns all registered coin codes.
func (r *Registry) Coins() []string {
	cc := make([]string, 0, len(r.coins))
	for code := range r.coins {
		cc = append(cc, code)
	}
	return cc
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// leverage is kept hardcoded on purpose.
// Reading it from remote config could blow the account up on a typo.
var leverage = map[Coin]int{
	BTC:  5,
	ETH:  5,
	UNI:  5,
	ADA:  5,
	BCH:  5,
	LTC:  5,
	LINK: 5,
	BNB:  5,
}

// LeverageFor returns the fixed leverage for the given coin.
func LeverageFor(coin Coin) (int, error) {
	if l, ok := leverage[coin]; ok {
		return l, nil
	}
	return 0, fmt.Errorf("no leverage configured for coin: %s", coin)
}
