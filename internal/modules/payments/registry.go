package payments

import (
	"fmt"
	"net/http"

	"github.com/ChandanVasu/ShopGold-sub000/internal/shared/apperr"
)

type Factory func(cfg Config, hc *http.Client) (Adapter, error)

// Registry maps the gateway enumeration to adapter constructors. Adding a
// gateway is one variant plus one factory, not a new conditional at every
// call site.
type Registry struct {
	factories map[Gateway]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[Gateway]Factory{
		GatewayStripe:   newStripe,
		GatewayPhonePe:  newPhonePe,
		GatewayRazorpay: newRazorpay,
		GatewayPayU:     newPayU,
		GatewayCashfree: newCashfree,
		GatewayPaytm:    newPaytm,
	}}
}

// Register overrides a factory; tests use this to stub a gateway.
func (r *Registry) Register(gw Gateway, f Factory) {
	r.factories[gw] = f
}

// Adapter builds a gateway adapter from a config snapshot. A disabled
// gateway is a configuration error before any factory runs.
func (r *Registry) Adapter(gw Gateway, cfg Config, hc *http.Client) (Adapter, error) {
	f, ok := r.factories[gw]
	if !ok {
		return nil, apperr.ConfigErr(fmt.Sprintf("unknown gateway %q", gw))
	}
	if !cfg.Enabled {
		return nil, apperr.ConfigErr(fmt.Sprintf("gateway %s is not enabled", gw))
	}
	return f(cfg, hc)
}
