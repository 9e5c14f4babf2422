package strategy

import (
	"fmt"
	"strings"
)

// Names lists the registered strategy ids.
func Names() []string {
	return []string{"momentum", "trend", "mean_reversion"}
}

// New returns a fresh instance of the strategy registered under name,
// configured with its defaults.
func New(name string) (Strategy, error) {
	switch name {
	case "momentum":
		return NewMomentum(), nil
	case "trend":
		return NewTrend(), nil
	case "mean_reversion":
		return NewMeanReversion(), nil
	}
	return nil, fmt.Errorf("unknown strategy %q (available: %s)", name, strings.Join(Names(), ", "))
}
