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

const (
	phonePeVerifyHeader = "X-VERIFY"
	phonePePayPath      = "/pg/v1/pay"
	phonePeStatusPath   = "/pg/v1/status/"
)

// phonePeAdapter is the wallet/redirect gateway. Every call carries an
// X-VERIFY of sha256(base64Payload + path + saltKey) hex with the salt index
// appended after "###"; status checks sign the path with an empty payload.
type phonePeAdapter struct {
	hc         *http.Client
	base       string
	merchantID string
	saltKey    string
	saltIndex  string
}

func newPhonePe(cfg Config, hc *http.Client) (Adapter, error) {
	if err := cfg.Require(GatewayPhonePe, "merchantId", "saltKey", "saltIndex"); err != nil {
		return nil, err
	}
	base := cfg.Key("apiBase")
	if base == "" {
		base = "https://api-preprod.phonepe.com/apis/pg-sandbox"
		if cfg.Production() {
			base = "https://api.phonepe.com/apis/hermes"
		}
	}
	return &phonePeAdapter{
		hc:         hc,
		base:       base,
		merchantID: cfg.Key("merchantId"),
		saltKey:    cfg.Key("saltKey"),
		saltIndex:  cfg.Key("saltIndex"),
	}, nil
}

func (a *phonePeAdapter) Name() Gateway { return GatewayPhonePe }

func (a *phonePeAdapter) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	payload, _ := json.Marshal(map[string]any{
		"merchantId":            a.merchantID,
		"merchantTransactionId": req.OrderID,
		"merchantUserId":        req.Customer.Email,
		"amount":                minorUnits(req.Amount),
		"redirectUrl":           req.ReturnURL,
		"redirectMode":          "REDIRECT",
		"mobileNumber":          req.Customer.Phone,
		"paymentInstrument":     map[string]string{"type": "PAY_PAGE"},
	})
	b64 := base64.StdEncoding.EncodeToString(payload)
	body, _ := json.Marshal(map[string]string{"request": b64})

	status, respBody, err := send(ctx, a.hc, http.MethodPost, a.base+phonePePayPath, map[string]string{
		"Content-Type":      "application/json",
		phonePeVerifyHeader: signing.PhonePeVerify(b64, phonePePayPath, a.saltKey, a.saltIndex),
	}, body)
	if err != nil {
		return Session{}, apperr.UpstreamErr("Wallet gateway is unreachable.", err)
	}
	if status < 200 || status >= 300 {
		return Session{}, apperr.UpstreamErr("Wallet gateway rejected the payment request.", upstreamBody(status, respBody))
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			MerchantTransactionID string `json:"merchantTransactionId"`
			InstrumentResponse    struct {
				RedirectInfo struct {
					URL string `json:"url"`
				} `json:"redirectInfo"`
			} `json:"instrumentResponse"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil || !resp.Success {
		return Session{}, apperr.UpstreamErr("Wallet gateway did not open a session.", upstreamBody(status, respBody))
	}

	ref := resp.Data.MerchantTransactionID
	if ref == "" {
		ref = req.OrderID
	}
	return Session{
		ExternalRef: ref,
		RedirectURL: resp.Data.InstrumentResponse.RedirectInfo.URL,
	}, nil
}

func (a *phonePeAdapter) Verify(ctx context.Context, sessionRef string) (Outcome, error) {
	path := phonePeStatusPath + a.merchantID + "/" + sessionRef

	status, respBody, err := send(ctx, a.hc, http.MethodGet, a.base+path, map[string]string{
		"Content-Type":      "application/json",
		"X-MERCHANT-ID":     a.merchantID,
		phonePeVerifyHeader: signing.PhonePeVerify("", path, a.saltKey, a.saltIndex),
	}, nil)
	if err != nil {
		return Outcome{}, apperr.UpstreamErr("Wallet gateway is unreachable.", err)
	}
	if status < 200 || status >= 300 {
		return Outcome{}, apperr.UpstreamErr("Wallet gateway status query failed.", upstreamBody(status, respBody))
	}

	var resp phonePeResult
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return Outcome{}, apperr.UpstreamErr("Wallet gateway returned an unreadable status.", err)
	}
	return resp.outcome(sessionRef), nil
}

type phonePeResult struct {
	Code string `json:"code"`
	Data struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		TransactionID         string `json:"transactionId"`
		PaymentInstrument     struct {
			Type string `json:"type"`
		} `json:"paymentInstrument"`
	} `json:"data"`
}

func (r phonePeResult) outcome(fallbackRef string) Outcome {
	ref := r.Data.MerchantTransactionID
	if ref == "" {
		ref = fallbackRef
	}
	out := Outcome{
		Status:      orders.StatusPending,
		ExternalRef: ref,
		TxnID:       r.Data.TransactionID,
		Method:      r.Data.PaymentInstrument.Type,
		Raw:         map[string]any{"code": r.Code},
	}
	switch r.Code {
	case "PAYMENT_SUCCESS":
		out.Status = orders.StatusCompleted
	case "PAYMENT_ERROR", "PAYMENT_DECLINED", "TIMED_OUT":
		out.Status = orders.StatusFailed
	}
	return out
}

// ParseCallback: the notification body is {"response": "<base64>"} and the
// X-VERIFY header signs that base64 string with the salt key alone.
func (a *phonePeAdapter) ParseCallback(body []byte, headers http.Header) (Outcome, error) {
	got := headers.Get(phonePeVerifyHeader)
	if got == "" {
		return Outcome{}, apperr.SignatureErr("Missing X-VERIFY header.")
	}

	var envelope struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Response == "" {
		return Outcome{}, apperr.SignatureErr("Malformed callback envelope.")
	}

	want := signing.PhonePeVerify(envelope.Response, "", a.saltKey, a.saltIndex)
	if !signing.Equal(want, got) {
		return Outcome{}, apperr.SignatureErr("Callback signature mismatch.")
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Response)
	if err != nil {
		return Outcome{}, apperr.InvalidErr("Unreadable callback payload.", nil)
	}
	var resp phonePeResult
	if err := json.Unmarshal(decoded, &resp); err != nil {
		return Outcome{}, apperr.InvalidErr("Unreadable callback payload.", nil)
	}
	return resp.outcome(""), nil
}

func (a *phonePeAdapter) Ack(applied bool) Ack {
	return Ack{Status: http.StatusOK, ContentType: "application/json", Body: `{"success":true}`}
}
