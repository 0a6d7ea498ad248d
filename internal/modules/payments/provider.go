package payments

import (
	"context"
	"net/http"

	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/orders"
)

type Gateway string

const (
	GatewayStripe   Gateway = "stripe"
	GatewayPhonePe  Gateway = "phonepe"
	GatewayRazorpay Gateway = "razorpay"
	GatewayPayU     Gateway = "payu"
	GatewayCashfree Gateway = "cashfree"
	GatewayPaytm    Gateway = "paytm"
)

func ParseGateway(s string) (Gateway, bool) {
	switch Gateway(s) {
	case GatewayStripe, GatewayPhonePe, GatewayRazorpay, GatewayPayU, GatewayCashfree, GatewayPaytm:
		return Gateway(s), true
	}
	return "", false
}

type Customer struct {
	Name  string
	Email string
	Phone string
}

type SessionRequest struct {
	OrderID   string // internal order id, reused as the merchant reference
	Amount    float64
	Currency  string
	Customer  Customer
	ReturnURL string
}

type Session struct {
	ExternalRef string // provider-assigned session/order/transaction id
	RedirectURL string
	Token       string // client-side token where the provider issues one
	Raw         map[string]any
}

type Outcome struct {
	Status      string // orders.StatusPending|StatusCompleted|StatusFailed
	ExternalRef string
	TxnID       string
	Method      string
	Raw         map[string]any
}

func (o Outcome) Terminal() bool {
	return o.Status == orders.StatusCompleted || o.Status == orders.StatusFailed
}

// Meta is the append-only provider_meta contribution of this outcome.
func (o Outcome) Meta() map[string]any {
	m := map[string]any{}
	if o.TxnID != "" {
		m["external_txn_id"] = o.TxnID
	}
	if o.Method != "" {
		m["method"] = o.Method
	}
	for k, v := range o.Raw {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return m
}

// Ack is the provider-mandated webhook acknowledgement. What counts as
// acknowledged differs per gateway, so it is part of the Adapter contract.
type Ack struct {
	Status      int
	ContentType string
	Body        string
}

type Adapter interface {
	Name() Gateway

	// CreateSession performs exactly one signed call to the provider's
	// order-creation endpoint.
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)

	// Verify queries the provider for the current state of a session. A
	// pending outcome is not terminal and must not be persisted as such.
	Verify(ctx context.Context, sessionRef string) (Outcome, error)

	// ParseCallback validates the embedded signature against the exact raw
	// bytes before interpreting any field of the payload.
	ParseCallback(body []byte, headers http.Header) (Outcome, error)

	// Ack reports the acknowledgement this provider expects, regardless of
	// whether the internal transition applied.
	Ack(applied bool) Ack
}
