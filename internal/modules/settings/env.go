// Package settings reads per-gateway configuration from the environment.
// The generic settings store that feeds these variables is an external
// system; this package is only the consumption boundary.
package settings

import (
	"context"
	"os"
	"strings"
	"unicode"

	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/payments"
)

// gatewayKeys lists the config fields each gateway may carry. apiBase is an
// override used by sandboxes and tests.
var gatewayKeys = map[payments.Gateway][]string{
	payments.GatewayStripe:   {"secretKey", "webhookSecret", "apiBase"},
	payments.GatewayPhonePe:  {"merchantId", "saltKey", "saltIndex", "apiBase"},
	payments.GatewayRazorpay: {"keyId", "keySecret", "webhookSecret", "apiBase"},
	payments.GatewayPayU:     {"merchantKey", "salt", "apiBase"},
	payments.GatewayCashfree: {"appId", "secretKey", "apiBase"},
	payments.GatewayPaytm:    {"mid", "merchantKey", "website", "apiBase"},
}

type Env struct {
	lookup func(string) string
}

func NewEnv() *Env { return &Env{lookup: os.Getenv} }

// Gateway snapshots PAYU_ENABLED, PAYU_MODE, PAYU_MERCHANT_KEY, ... into an
// immutable payments.Config.
func (e *Env) Gateway(ctx context.Context, gw payments.Gateway) (payments.Config, error) {
	prefix := strings.ToUpper(string(gw)) + "_"

	mode := e.lookup(prefix + "MODE")
	if mode == "" {
		mode = payments.ModeSandbox
	}

	keys := map[string]string{}
	for _, k := range gatewayKeys[gw] {
		if v := e.lookup(prefix + envSuffix(k)); v != "" {
			keys[k] = v
		}
	}

	return payments.Config{
		Enabled: e.lookup(prefix+"ENABLED") == "true",
		Mode:    mode,
		Keys:    keys,
	}, nil
}

// envSuffix converts a camelCase key name to ENV_CASE (secretKey -> SECRET_KEY).
func envSuffix(key string) string {
	var b strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
