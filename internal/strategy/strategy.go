// Package strategy defines the pluggable decision policy consumed by the
// orchestrator. Strategies read the engine output, they never mutate it.
package strategy

import (
	"github.com/helmos/coin-robot/internal/series"
	"github.com/helmos/coin-robot/internal/trader"
)

// Strategy decides on position entry and exit.
// Every decision comes with a human readable rationale for the logs.
type Strategy interface {
	Name() string
	ShouldOpenLong(container *series.Container) (bool, string)
	ShouldOpenShort(container *series.Container) (bool, string)
	ShouldCloseLong(container *series.Container, status trader.Status) (bool, string)
	ShouldCloseShort(container *series.Container, status trader.Status) (bool, string)
}
