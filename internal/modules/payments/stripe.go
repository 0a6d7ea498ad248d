package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/orders"
	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/payments/signing"
	"github.com/ChandanVasu/ShopGold-sub000/internal/shared/apperr"
)

const stripeSignatureHeader = "Stripe-Signature"

// stripeAdapter drives the card processor via hosted checkout sessions.
// Webhooks carry an HMAC-SHA256 over "t.body" in the signature header,
// keyed by a webhook-specific secret.
type stripeAdapter struct {
	hc            *http.Client
	base          string
	secretKey     string
	webhookSecret string
}

func newStripe(cfg Config, hc *http.Client) (Adapter, error) {
	if err := cfg.Require(GatewayStripe, "secretKey", "webhookSecret"); err != nil {
		return nil, err
	}
	base := cfg.Key("apiBase")
	if base == "" {
		base = "https://api.stripe.com"
	}
	return &stripeAdapter{
		hc:            hc,
		base:          base,
		secretKey:     cfg.Key("secretKey"),
		webhookSecret: cfg.Key("webhookSecret"),
	}, nil
}

func (a *stripeAdapter) Name() Gateway { return GatewayStripe }

type stripeSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	PaymentIntent string `json:"payment_intent"`
}

func (a *stripeAdapter) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	body, _ := json.Marshal(map[string]any{
		"amount":           minorUnits(req.Amount),
		"currency":         strings.ToLower(req.Currency),
		"customer_email":   req.Customer.Email,
		"client_reference": req.OrderID,
		"success_url":      req.ReturnURL,
	})

	status, respBody, err := send(ctx, a.hc, http.MethodPost, a.base+"/v1/checkout/sessions", map[string]string{
		"Authorization": "Bearer " + a.secretKey,
		"Content-Type":  "application/json",
	}, body)
	if err != nil {
		return Session{}, apperr.UpstreamErr("Card processor is unreachable.", err)
	}
	if status < 200 || status >= 300 {
		return Session{}, apperr.UpstreamErr("Card processor rejected the session.", upstreamBody(status, respBody))
	}

	var s stripeSession
	if err := json.Unmarshal(respBody, &s); err != nil || s.ID == "" {
		return Session{}, apperr.UpstreamErr("Card processor returned an unreadable session.", err)
	}

	return Session{
		ExternalRef: s.ID,
		RedirectURL: s.URL,
		Raw:         map[string]any{"session_status": s.Status},
	}, nil
}

func (a *stripeAdapter) Verify(ctx context.Context, sessionRef string) (Outcome, error) {
	status, respBody, err := send(ctx, a.hc, http.MethodGet, a.base+"/v1/checkout/sessions/"+sessionRef, map[string]string{
		"Authorization": "Bearer " + a.secretKey,
	}, nil)
	if err != nil {
		return Outcome{}, apperr.UpstreamErr("Card processor is unreachable.", err)
	}
	if status < 200 || status >= 300 {
		return Outcome{}, apperr.UpstreamErr("Card processor status query failed.", upstreamBody(status, respBody))
	}

	var s stripeSession
	if err := json.Unmarshal(respBody, &s); err != nil {
		return Outcome{}, apperr.UpstreamErr("Card processor returned an unreadable status.", err)
	}

	out := Outcome{Status: orders.StatusPending, ExternalRef: s.ID, TxnID: s.PaymentIntent, Method: "card"}
	switch {
	case s.Status == "complete" && s.PaymentStatus == "paid":
		out.Status = orders.StatusCompleted
	case s.Status == "expired":
		out.Status = orders.StatusFailed
	}
	return out, nil
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		SessionID     string `json:"session_id"`
		PaymentIntent string `json:"payment_intent"`
		Method        string `json:"method"`
	} `json:"data"`
}

// ParseCallback checks the "t=<unix>,v1=<hex>" signature header byte-for-byte
// against HMAC-SHA256("t.body") before reading any payload field.
func (a *stripeAdapter) ParseCallback(body []byte, headers http.Header) (Outcome, error) {
	header := headers.Get(stripeSignatureHeader)
	ts, got, ok := splitStripeSignature(header)
	if !ok {
		return Outcome{}, apperr.SignatureErr("Missing or malformed signature header.")
	}

	msg := make([]byte, 0, len(ts)+1+len(body))
	msg = append(msg, ts...)
	msg = append(msg, '.')
	msg = append(msg, body...)
	want := signing.HMACSHA256Hex([]byte(a.webhookSecret), msg)
	if !signing.Equal(want, got) {
		return Outcome{}, apperr.SignatureErr("Webhook signature mismatch.")
	}

	var ev stripeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return Outcome{}, apperr.InvalidErr("Unreadable webhook payload.", nil)
	}

	out := Outcome{
		ExternalRef: ev.Data.SessionID,
		TxnID:       ev.Data.PaymentIntent,
		Method:      ev.Data.Method,
		Raw:         map[string]any{"event_id": ev.ID},
	}
	switch ev.Type {
	case "payment.succeeded":
		out.Status = orders.StatusCompleted
	case "payment.failed":
		out.Status = orders.StatusFailed
	default:
		out.Status = orders.StatusPending
	}
	if out.Method == "" {
		out.Method = "card"
	}
	return out, nil
}

func (a *stripeAdapter) Ack(applied bool) Ack {
	return Ack{Status: http.StatusOK, ContentType: "application/json", Body: `{"received":true}`}
}

func splitStripeSignature(header string) (ts, sig string, ok bool) {
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				return "", "", false
			}
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return "", "", false
	}
	return ts, sig, true
}
