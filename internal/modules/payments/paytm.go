package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/orders"
	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/payments/signing"
	"github.com/ChandanVasu/ShopGold-sub000/internal/shared/apperr"
)

// paytmAdapter wraps every payload in {head:{signature}, body:{...}} where
// the signature is sha256 of the exact serialized body plus the merchant key.
// The body is kept as raw bytes end to end so the checksum never depends on
// re-serialization.
type paytmAdapter struct {
	hc          *http.Client
	base        string
	mid         string
	merchantKey string
	website     string
}

func newPaytm(cfg Config, hc *http.Client) (Adapter, error) {
	if err := cfg.Require(GatewayPaytm, "mid", "merchantKey"); err != nil {
		return nil, err
	}
	base := cfg.Key("apiBase")
	if base == "" {
		base = "https://securegw-stage.paytm.in"
		if cfg.Production() {
			base = "https://securegw.paytm.in"
		}
	}
	website := cfg.Key("website")
	if website == "" {
		website = "WEBSTAGING"
		if cfg.Production() {
			website = "DEFAULT"
		}
	}
	return &paytmAdapter{
		hc:          hc,
		base:        base,
		mid:         cfg.Key("mid"),
		merchantKey: cfg.Key("merchantKey"),
		website:     website,
	}, nil
}

func (a *paytmAdapter) Name() Gateway { return GatewayPaytm }

type paytmEnvelope struct {
	Head struct {
		Signature string `json:"signature"`
	} `json:"head"`
	Body json.RawMessage `json:"body"`
}

func (a *paytmAdapter) wrap(body []byte) []byte {
	env := map[string]any{
		"head": map[string]string{"signature": signing.PaytmChecksum(body, a.merchantKey)},
		"body": json.RawMessage(body),
	}
	out, _ := json.Marshal(env)
	return out
}

func (a *paytmAdapter) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	body, _ := json.Marshal(map[string]any{
		"requestType": "Payment",
		"mid":         a.mid,
		"websiteName": a.website,
		"orderId":     req.OrderID,
		"callbackUrl": req.ReturnURL,
		"txnAmount": map[string]string{
			"value":    majorString(req.Amount),
			"currency": req.Currency,
		},
		"userInfo": map[string]string{
			"custId": req.Customer.Email,
			"mobile": req.Customer.Phone,
		},
	})

	endpoint := a.base + "/theia/api/v1/initiateTransaction?mid=" + url.QueryEscape(a.mid) +
		"&orderId=" + url.QueryEscape(req.OrderID)

	status, respBody, err := send(ctx, a.hc, http.MethodPost, endpoint, map[string]string{
		"Content-Type": "application/json",
	}, a.wrap(body))
	if err != nil {
		return Session{}, apperr.UpstreamErr("Payment gateway is unreachable.", err)
	}
	if status < 200 || status >= 300 {
		return Session{}, apperr.UpstreamErr("Payment gateway rejected the transaction.", upstreamBody(status, respBody))
	}

	var resp struct {
		Body struct {
			ResultInfo struct {
				ResultStatus string `json:"resultStatus"`
				ResultMsg    string `json:"resultMsg"`
			} `json:"resultInfo"`
			TxnToken string `json:"txnToken"`
		} `json:"body"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return Session{}, apperr.UpstreamErr("Payment gateway returned an unreadable response.", err)
	}
	if resp.Body.ResultInfo.ResultStatus != "S" {
		return Session{}, apperr.UpstreamErr("Payment gateway rejected the transaction.", upstreamBody(status, respBody))
	}

	return Session{
		ExternalRef: req.OrderID,
		Token:       resp.Body.TxnToken,
		RedirectURL: a.base + "/theia/api/v1/showPaymentPage?mid=" + url.QueryEscape(a.mid) +
			"&orderId=" + url.QueryEscape(req.OrderID),
	}, nil
}

type paytmTxnBody struct {
	ResultInfo struct {
		ResultStatus string `json:"resultStatus"`
	} `json:"resultInfo"`
	OrderID     string `json:"orderId"`
	TxnID       string `json:"txnId"`
	PaymentMode string `json:"paymentMode"`
	BankTxnID   string `json:"bankTxnId"`
}

func (b paytmTxnBody) outcome() Outcome {
	out := Outcome{
		Status:      orders.StatusPending,
		ExternalRef: b.OrderID,
		TxnID:       b.TxnID,
		Method:      b.PaymentMode,
	}
	if b.BankTxnID != "" {
		out.Raw = map[string]any{"bank_txn_id": b.BankTxnID}
	}
	switch b.ResultInfo.ResultStatus {
	case "TXN_SUCCESS":
		out.Status = orders.StatusCompleted
	case "TXN_FAILURE":
		out.Status = orders.StatusFailed
	}
	return out
}

// Verify re-keys a separate status-check body with the same checksum scheme.
func (a *paytmAdapter) Verify(ctx context.Context, sessionRef string) (Outcome, error) {
	body, _ := json.Marshal(map[string]string{
		"mid":     a.mid,
		"orderId": sessionRef,
	})

	status, respBody, err := send(ctx, a.hc, http.MethodPost, a.base+"/v3/order/status", map[string]string{
		"Content-Type": "application/json",
	}, a.wrap(body))
	if err != nil {
		return Outcome{}, apperr.UpstreamErr("Payment gateway is unreachable.", err)
	}
	if status < 200 || status >= 300 {
		return Outcome{}, apperr.UpstreamErr("Payment gateway status query failed.", upstreamBody(status, respBody))
	}

	var resp struct {
		Body paytmTxnBody `json:"body"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return Outcome{}, apperr.UpstreamErr("Payment gateway returned an unreadable status.", err)
	}
	if resp.Body.OrderID == "" {
		resp.Body.OrderID = sessionRef
	}
	return resp.Body.outcome(), nil
}

func (a *paytmAdapter) ParseCallback(body []byte, headers http.Header) (Outcome, error) {
	var env paytmEnvelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Body) == 0 {
		return Outcome{}, apperr.SignatureErr("Malformed callback envelope.")
	}
	if env.Head.Signature == "" {
		return Outcome{}, apperr.SignatureErr("Missing callback signature.")
	}

	want := signing.PaytmChecksum(env.Body, a.merchantKey)
	if !signing.Equal(want, env.Head.Signature) {
		return Outcome{}, apperr.SignatureErr("Callback checksum mismatch.")
	}

	var b paytmTxnBody
	if err := json.Unmarshal(env.Body, &b); err != nil {
		return Outcome{}, apperr.InvalidErr("Unreadable callback payload.", nil)
	}
	return b.outcome(), nil
}

func (a *paytmAdapter) Ack(applied bool) Ack {
	return Ack{Status: http.StatusOK, ContentType: "text/plain", Body: "OK"}
}
