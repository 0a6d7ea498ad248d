package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/ChandanVasu/ShopGold-sub000/internal/shared/apperr"
)

const (
	ModeSandbox    = "sandbox"
	ModeProduction = "production"
)

// Config is an immutable per-gateway settings snapshot. It is fetched once
// per operation and passed into the adapter constructor, so signature
// computation stays a pure function of (payload, snapshot).
type Config struct {
	Enabled bool
	Mode    string
	Keys    map[string]string
}

func (c Config) Production() bool { return c.Mode == ModeProduction }

func (c Config) Key(name string) string { return c.Keys[name] }

// Require reports a configuration error naming the missing secret fields.
// An enabled gateway with absent required fields never falls back silently.
func (c Config) Require(gw Gateway, names ...string) error {
	var missing []string
	for _, n := range names {
		if strings.TrimSpace(c.Keys[n]) == "" {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return apperr.ConfigErr(fmt.Sprintf("gateway %s is missing configuration: %s", gw, strings.Join(missing, ", ")))
	}
	return nil
}

// Settings is the external settings-store boundary.
type Settings interface {
	Gateway(ctx context.Context, gw Gateway) (Config, error)
}
