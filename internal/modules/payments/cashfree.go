package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/orders"
	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/payments/signing"
	"github.com/ChandanVasu/ShopGold-sub000/internal/shared/apperr"
)

const (
	cashfreeAPIVersion      = "2023-08-01"
	cashfreeTimestampHeader = "x-cf-timestamp"
	cashfreeSigHeader       = "x-cf-signature"
	cashfreeWebhookTS       = "x-webhook-timestamp"
	cashfreeWebhookSig      = "x-webhook-signature"
)

// cashfreeAdapter signs every request with base64(HMAC-SHA256(body+ts)) and
// a fresh literal timestamp; the API version header is mandatory.
type cashfreeAdapter struct {
	hc     *http.Client
	base   string
	appID  string
	secret string
	now    func() time.Time
}

func newCashfree(cfg Config, hc *http.Client) (Adapter, error) {
	if err := cfg.Require(GatewayCashfree, "appId", "secretKey"); err != nil {
		return nil, err
	}
	base := cfg.Key("apiBase")
	if base == "" {
		base = "https://sandbox.cashfree.com/pg"
		if cfg.Production() {
			base = "https://api.cashfree.com/pg"
		}
	}
	return &cashfreeAdapter{
		hc:     hc,
		base:   base,
		appID:  cfg.Key("appId"),
		secret: cfg.Key("secretKey"),
		now:    time.Now,
	}, nil
}

func (a *cashfreeAdapter) Name() Gateway { return GatewayCashfree }

func (a *cashfreeAdapter) headers(body []byte) map[string]string {
	ts := strconv.FormatInt(a.now().Unix(), 10)
	return map[string]string{
		"Content-Type":          "application/json",
		"x-api-version":         cashfreeAPIVersion,
		"x-client-id":           a.appID,
		cashfreeTimestampHeader: ts,
		cashfreeSigHeader:       signing.CashfreeSignature(body, ts, a.secret),
	}
}

type cashfreeOrder struct {
	CFOrderID        json.Number `json:"cf_order_id"`
	OrderID          string      `json:"order_id"`
	OrderStatus      string      `json:"order_status"`
	PaymentSessionID string      `json:"payment_session_id"`
}

func (a *cashfreeAdapter) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	body, _ := json.Marshal(map[string]any{
		"order_id":       req.OrderID,
		"order_amount":   req.Amount,
		"order_currency": req.Currency,
		"customer_details": map[string]string{
			"customer_id":    req.OrderID,
			"customer_name":  req.Customer.Name,
			"customer_email": req.Customer.Email,
			"customer_phone": req.Customer.Phone,
		},
		"order_meta": map[string]string{"return_url": req.ReturnURL},
	})

	status, respBody, err := send(ctx, a.hc, http.MethodPost, a.base+"/orders", a.headers(body), body)
	if err != nil {
		return Session{}, apperr.UpstreamErr("Payment gateway is unreachable.", err)
	}
	if status < 200 || status >= 300 {
		return Session{}, apperr.UpstreamErr("Payment gateway rejected the order.", upstreamBody(status, respBody))
	}

	var resp cashfreeOrder
	if err := json.Unmarshal(respBody, &resp); err != nil || resp.OrderID == "" {
		return Session{}, apperr.UpstreamErr("Payment gateway returned an unreadable order.", err)
	}
	return Session{
		ExternalRef: resp.OrderID,
		Token:       resp.PaymentSessionID,
		Raw:         map[string]any{"cf_order_id": resp.CFOrderID.String()},
	}, nil
}

func (a *cashfreeAdapter) Verify(ctx context.Context, sessionRef string) (Outcome, error) {
	status, respBody, err := send(ctx, a.hc, http.MethodGet, a.base+"/orders/"+sessionRef, a.headers(nil), nil)
	if err != nil {
		return Outcome{}, apperr.UpstreamErr("Payment gateway is unreachable.", err)
	}
	if status < 200 || status >= 300 {
		return Outcome{}, apperr.UpstreamErr("Payment gateway status query failed.", upstreamBody(status, respBody))
	}

	var resp cashfreeOrder
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return Outcome{}, apperr.UpstreamErr("Payment gateway returned an unreadable status.", err)
	}

	out := Outcome{Status: orders.StatusPending, ExternalRef: resp.OrderID, TxnID: resp.CFOrderID.String()}
	switch resp.OrderStatus {
	case "PAID":
		out.Status = orders.StatusCompleted
	case "EXPIRED", "TERMINATED":
		out.Status = orders.StatusFailed
	}
	return out, nil
}

func (a *cashfreeAdapter) ParseCallback(body []byte, headers http.Header) (Outcome, error) {
	ts := headers.Get(cashfreeWebhookTS)
	got := headers.Get(cashfreeWebhookSig)
	if ts == "" || got == "" {
		return Outcome{}, apperr.SignatureErr("Missing webhook signature headers.")
	}
	want := signing.CashfreeSignature(body, ts, a.secret)
	if !signing.Equal(want, got) {
		return Outcome{}, apperr.SignatureErr("Webhook signature mismatch.")
	}

	var ev struct {
		Type string `json:"type"`
		Data struct {
			Order struct {
				OrderID string `json:"order_id"`
			} `json:"order"`
			Payment struct {
				CFPaymentID  json.Number `json:"cf_payment_id"`
				PaymentGroup string      `json:"payment_group"`
			} `json:"payment"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &ev); err != nil {
		return Outcome{}, apperr.InvalidErr("Unreadable webhook payload.", nil)
	}

	out := Outcome{
		Status:      orders.StatusPending,
		ExternalRef: ev.Data.Order.OrderID,
		TxnID:       ev.Data.Payment.CFPaymentID.String(),
		Method:      ev.Data.Payment.PaymentGroup,
		Raw:         map[string]any{"webhook_type": ev.Type},
	}
	switch ev.Type {
	case "PAYMENT_SUCCESS_WEBHOOK":
		out.Status = orders.StatusCompleted
	case "PAYMENT_FAILED_WEBHOOK", "PAYMENT_USER_DROPPED_WEBHOOK":
		out.Status = orders.StatusFailed
	}
	return out, nil
}

func (a *cashfreeAdapter) Ack(applied bool) Ack {
	return Ack{Status: http.StatusOK, ContentType: "application/json", Body: `{"status":"OK"}`}
}
