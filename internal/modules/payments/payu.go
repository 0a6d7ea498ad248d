package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/orders"
	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/payments/signing"
	"github.com/ChandanVasu/ShopGold-sub000/internal/shared/apperr"
)

// payuAdapter is the concatenated-field gateway: every hash is a SHA-512 of
// a fixed pipe-joined field order plus the salt. Inbound notifications are
// form-encoded and carry the reverse-order hash in the "hash" field.
type payuAdapter struct {
	hc   *http.Client
	base string
	key  string
	salt string
}

func newPayU(cfg Config, hc *http.Client) (Adapter, error) {
	if err := cfg.Require(GatewayPayU, "merchantKey", "salt"); err != nil {
		return nil, err
	}
	base := cfg.Key("apiBase")
	if base == "" {
		base = "https://test.payu.in"
		if cfg.Production() {
			base = "https://secure.payu.in"
		}
	}
	return &payuAdapter{hc: hc, base: base, key: cfg.Key("merchantKey"), salt: cfg.Key("salt")}, nil
}

func (a *payuAdapter) Name() Gateway { return GatewayPayU }

// requestHash: key|txnid|amount|productinfo|firstname|email|udf1..udf5|x5 empty|salt
func (a *payuAdapter) requestHash(txnid, amount, productinfo, firstname, email string) string {
	fields := []string{a.key, txnid, amount, productinfo, firstname, email,
		"", "", "", "", "", "", "", "", "", ""}
	return signing.PayUHash(fields, a.salt)
}

func (a *payuAdapter) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	amount := majorString(req.Amount)
	productinfo := "order " + req.OrderID
	form := url.Values{
		"key":         {a.key},
		"txnid":       {req.OrderID},
		"amount":      {amount},
		"productinfo": {productinfo},
		"firstname":   {req.Customer.Name},
		"email":       {req.Customer.Email},
		"phone":       {req.Customer.Phone},
		"surl":        {req.ReturnURL},
		"furl":        {req.ReturnURL},
		"hash":        {a.requestHash(req.OrderID, amount, productinfo, req.Customer.Name, req.Customer.Email)},
	}

	// The hosted flow answers the form post with a redirect to the payment
	// page; keep the Location instead of following it.
	hc := *a.hc
	hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+"/_payment", strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, apperr.Wrap(err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := hc.Do(httpReq)
	if err != nil {
		return Session{}, apperr.UpstreamErr("Payment gateway is unreachable.", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Session{}, apperr.UpstreamErr("Payment gateway rejected the transaction.", upstreamBody(resp.StatusCode, nil))
	}

	redirect := resp.Header.Get("Location")
	if redirect == "" {
		redirect = a.base + "/_payment"
	}
	return Session{ExternalRef: req.OrderID, RedirectURL: redirect}, nil
}

func (a *payuAdapter) Verify(ctx context.Context, sessionRef string) (Outcome, error) {
	cmd := "verify_payment"
	form := url.Values{
		"key":     {a.key},
		"command": {cmd},
		"var1":    {sessionRef},
		"hash":    {signing.PayUHash([]string{a.key, cmd, sessionRef}, a.salt)},
	}

	status, respBody, err := send(ctx, a.hc, http.MethodPost, a.base+"/merchant/postservice?form=2", map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}, []byte(form.Encode()))
	if err != nil {
		return Outcome{}, apperr.UpstreamErr("Payment gateway is unreachable.", err)
	}
	if status < 200 || status >= 300 {
		return Outcome{}, apperr.UpstreamErr("Payment gateway status query failed.", upstreamBody(status, respBody))
	}

	var resp struct {
		TransactionDetails map[string]struct {
			Status   string `json:"status"`
			MihpayID string `json:"mihpayid"`
			Mode     string `json:"mode"`
		} `json:"transaction_details"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return Outcome{}, apperr.UpstreamErr("Payment gateway returned an unreadable status.", err)
	}

	det, ok := resp.TransactionDetails[sessionRef]
	if !ok {
		return Outcome{Status: orders.StatusPending, ExternalRef: sessionRef}, nil
	}
	return Outcome{
		Status:      payuStatus(det.Status),
		ExternalRef: sessionRef,
		TxnID:       det.MihpayID,
		Method:      det.Mode,
	}, nil
}

// ParseCallback recomputes the response hash from the inbound form fields:
// salt|status|x5 empty|udf5..udf1|email|firstname|productinfo|amount|txnid|key.
func (a *payuAdapter) ParseCallback(body []byte, headers http.Header) (Outcome, error) {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return Outcome{}, apperr.SignatureErr("Malformed callback body.")
	}
	got := form.Get("hash")
	if got == "" {
		return Outcome{}, apperr.SignatureErr("Missing callback hash.")
	}

	fields := []string{
		form.Get("status"),
		"", "", "", "", "",
		form.Get("udf5"), form.Get("udf4"), form.Get("udf3"), form.Get("udf2"), form.Get("udf1"),
		form.Get("email"), form.Get("firstname"), form.Get("productinfo"),
		form.Get("amount"), form.Get("txnid"), a.key,
	}
	want := signing.PayUResponseHash(a.salt, fields)
	if !signing.Equal(want, got) {
		return Outcome{}, apperr.SignatureErr("Callback hash mismatch.")
	}

	return Outcome{
		Status:      payuStatus(form.Get("status")),
		ExternalRef: form.Get("txnid"),
		TxnID:       form.Get("mihpayid"),
		Method:      form.Get("mode"),
		Raw:         map[string]any{"bank_ref_num": form.Get("bank_ref_num")},
	}, nil
}

func (a *payuAdapter) Ack(applied bool) Ack {
	return Ack{Status: http.StatusOK, ContentType: "text/plain", Body: "success"}
}

func payuStatus(s string) string {
	switch strings.ToLower(s) {
	case "success":
		return orders.StatusCompleted
	case "failure", "failed":
		return orders.StatusFailed
	}
	return orders.StatusPending
}
