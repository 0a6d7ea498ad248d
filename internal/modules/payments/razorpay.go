package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/orders"
	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/payments/signing"
	"github.com/ChandanVasu/ShopGold-sub000/internal/shared/apperr"
)

const razorpaySignatureHeader = "X-Razorpay-Signature"

// razorpayAdapter creates server-side orders over basic auth and
// authenticates webhooks with HMAC-SHA256(body, webhookSecret) hex.
type razorpayAdapter struct {
	hc            *http.Client
	base          string
	keyID         string
	keySecret     string
	webhookSecret string
}

func newRazorpay(cfg Config, hc *http.Client) (Adapter, error) {
	if err := cfg.Require(GatewayRazorpay, "keyId", "keySecret", "webhookSecret"); err != nil {
		return nil, err
	}
	base := cfg.Key("apiBase")
	if base == "" {
		base = "https://api.razorpay.com"
	}
	return &razorpayAdapter{
		hc:            hc,
		base:          base,
		keyID:         cfg.Key("keyId"),
		keySecret:     cfg.Key("keySecret"),
		webhookSecret: cfg.Key("webhookSecret"),
	}, nil
}

func (a *razorpayAdapter) Name() Gateway { return GatewayRazorpay }

func (a *razorpayAdapter) authHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(a.keyID+":"+a.keySecret))
}

func (a *razorpayAdapter) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	body, _ := json.Marshal(map[string]any{
		"amount":   minorUnits(req.Amount),
		"currency": req.Currency,
		"receipt":  req.OrderID,
		"notes": map[string]string{
			"email": req.Customer.Email,
			"phone": req.Customer.Phone,
		},
	})

	status, respBody, err := send(ctx, a.hc, http.MethodPost, a.base+"/v1/orders", map[string]string{
		"Authorization": a.authHeader(),
		"Content-Type":  "application/json",
	}, body)
	if err != nil {
		return Session{}, apperr.UpstreamErr("Payment gateway is unreachable.", err)
	}
	if status < 200 || status >= 300 {
		return Session{}, apperr.UpstreamErr("Payment gateway rejected the order.", upstreamBody(status, respBody))
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil || resp.ID == "" {
		return Session{}, apperr.UpstreamErr("Payment gateway returned an unreadable order.", err)
	}

	// Checkout happens client-side; the storefront needs the order id and
	// the public key, not a redirect URL.
	return Session{
		ExternalRef: resp.ID,
		Token:       resp.ID,
		Raw:         map[string]any{"key_id": a.keyID, "order_status": resp.Status},
	}, nil
}

func (a *razorpayAdapter) Verify(ctx context.Context, sessionRef string) (Outcome, error) {
	status, respBody, err := send(ctx, a.hc, http.MethodGet, a.base+"/v1/orders/"+sessionRef+"/payments", map[string]string{
		"Authorization": a.authHeader(),
	}, nil)
	if err != nil {
		return Outcome{}, apperr.UpstreamErr("Payment gateway is unreachable.", err)
	}
	if status < 200 || status >= 300 {
		return Outcome{}, apperr.UpstreamErr("Payment gateway status query failed.", upstreamBody(status, respBody))
	}

	var resp struct {
		Items []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Method string `json:"method"`
		} `json:"items"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return Outcome{}, apperr.UpstreamErr("Payment gateway returned an unreadable status.", err)
	}

	out := Outcome{Status: orders.StatusPending, ExternalRef: sessionRef}
	for _, p := range resp.Items {
		switch p.Status {
		case "captured":
			return Outcome{Status: orders.StatusCompleted, ExternalRef: sessionRef, TxnID: p.ID, Method: p.Method}, nil
		case "failed":
			out = Outcome{Status: orders.StatusFailed, ExternalRef: sessionRef, TxnID: p.ID, Method: p.Method}
		}
	}
	return out, nil
}

func (a *razorpayAdapter) ParseCallback(body []byte, headers http.Header) (Outcome, error) {
	got := headers.Get(razorpaySignatureHeader)
	if got == "" {
		return Outcome{}, apperr.SignatureErr("Missing webhook signature header.")
	}
	want := signing.HMACSHA256Hex([]byte(a.webhookSecret), body)
	if !signing.Equal(want, got) {
		return Outcome{}, apperr.SignatureErr("Webhook signature mismatch.")
	}

	var ev struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
					Method  string `json:"method"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &ev); err != nil {
		return Outcome{}, apperr.InvalidErr("Unreadable webhook payload.", nil)
	}

	out := Outcome{
		Status:      orders.StatusPending,
		ExternalRef: ev.Payload.Payment.Entity.OrderID,
		TxnID:       ev.Payload.Payment.Entity.ID,
		Method:      ev.Payload.Payment.Entity.Method,
		Raw:         map[string]any{"event": ev.Event},
	}
	switch ev.Event {
	case "payment.captured":
		out.Status = orders.StatusCompleted
	case "payment.failed":
		out.Status = orders.StatusFailed
	}
	return out, nil
}

func (a *razorpayAdapter) Ack(applied bool) Ack {
	return Ack{Status: http.StatusOK, ContentType: "application/json", Body: `{"status":"ok"}`}
}
