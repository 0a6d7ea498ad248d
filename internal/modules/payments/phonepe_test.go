package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/orders"
	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/payments/signing"
	"github.com/ChandanVasu/ShopGold-sub000/internal/shared/apperr"
)

func phonePeTestAdapter(t *testing.T, base string) Adapter {
	t.Helper()
	a, err := newPhonePe(testCfg(map[string]string{
		"merchantId": "M1",
		"saltKey":    "salt-key",
		"saltIndex":  "1",
		"apiBase":    base,
	}), testClient())
	require.NoError(t, err)
	return a
}

func TestPhonePe_CreateSession_SignsPayPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, phonePePayPath, r.URL.Path)

		var envelope struct {
			Request string `json:"request"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&envelope))

		// header must sign base64(payload) + path + salt
		want := signing.PhonePeVerify(envelope.Request, phonePePayPath, "salt-key", "1")
		assert.Equal(t, want, r.Header.Get(phonePeVerifyHeader))

		decoded, err := base64.StdEncoding.DecodeString(envelope.Request)
		require.NoError(t, err)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(decoded, &payload))
		assert.Equal(t, "ord-1", payload["merchantTransactionId"])
		assert.EqualValues(t, 12345, payload["amount"]) // paise

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"merchantTransactionId": "ord-1",
				"instrumentResponse": map[string]any{
					"redirectInfo": map[string]string{"url": "https://pay.example/redirect"},
				},
			},
		})
	}))
	defer srv.Close()

	a := phonePeTestAdapter(t, srv.URL)
	sess, err := a.CreateSession(context.Background(), SessionRequest{
		OrderID:  "ord-1",
		Amount:   123.45,
		Currency: "INR",
		Customer: Customer{Email: "jane@example.com", Phone: "9990001111"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", sess.ExternalRef)
	assert.Equal(t, "https://pay.example/redirect", sess.RedirectURL)
}

func TestPhonePe_Verify_SignsStatusPathWithEmptyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := phonePeStatusPath + "M1/ord-1"
		require.Equal(t, path, r.URL.Path)
		assert.Equal(t, signing.PhonePeVerify("", path, "salt-key", "1"), r.Header.Get(phonePeVerifyHeader))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": "PAYMENT_SUCCESS",
			"data": map[string]any{
				"merchantTransactionId": "ord-1",
				"transactionId":         "T123",
				"paymentInstrument":     map[string]string{"type": "UPI"},
			},
		})
	}))
	defer srv.Close()

	a := phonePeTestAdapter(t, srv.URL)
	out, err := a.Verify(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCompleted, out.Status)
	assert.Equal(t, "T123", out.TxnID)
	assert.Equal(t, "UPI", out.Method)
}

func TestPhonePe_Verify_PendingIsNotTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "PAYMENT_PENDING", "data": map[string]any{}})
	}))
	defer srv.Close()

	a := phonePeTestAdapter(t, srv.URL)
	out, err := a.Verify(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, out.Status)
	assert.False(t, out.Terminal())
}

func phonePeCallback(t *testing.T, code, ref string) ([]byte, string) {
	t.Helper()
	inner, err := json.Marshal(map[string]any{
		"code": code,
		"data": map[string]any{
			"merchantTransactionId": ref,
			"transactionId":         "T123",
			"paymentInstrument":     map[string]string{"type": "UPI"},
		},
	})
	require.NoError(t, err)
	b64 := base64.StdEncoding.EncodeToString(inner)
	body, err := json.Marshal(map[string]string{"response": b64})
	require.NoError(t, err)
	return body, signing.PhonePeVerify(b64, "", "salt-key", "1")
}

func TestPhonePe_ParseCallback(t *testing.T) {
	a := phonePeTestAdapter(t, "http://unused")

	t.Run("valid", func(t *testing.T) {
		body, sig := phonePeCallback(t, "PAYMENT_SUCCESS", "ord-1")
		h := http.Header{}
		h.Set(phonePeVerifyHeader, sig)

		out, err := a.ParseCallback(body, h)
		require.NoError(t, err)
		assert.Equal(t, orders.StatusCompleted, out.Status)
		assert.Equal(t, "ord-1", out.ExternalRef)
	})

	t.Run("failed payment", func(t *testing.T) {
		body, sig := phonePeCallback(t, "PAYMENT_ERROR", "ord-1")
		h := http.Header{}
		h.Set(phonePeVerifyHeader, sig)

		out, err := a.ParseCallback(body, h)
		require.NoError(t, err)
		assert.Equal(t, orders.StatusFailed, out.Status)
	})

	t.Run("tampered response", func(t *testing.T) {
		_, sig := phonePeCallback(t, "PAYMENT_SUCCESS", "ord-1")
		other, _ := phonePeCallback(t, "PAYMENT_SUCCESS", "ord-2")
		h := http.Header{}
		h.Set(phonePeVerifyHeader, sig)

		_, err := a.ParseCallback(other, h)
		assert.True(t, apperr.IsKind(err, apperr.Signature))
	})

	t.Run("missing header", func(t *testing.T) {
		body, _ := phonePeCallback(t, "PAYMENT_SUCCESS", "ord-1")
		_, err := a.ParseCallback(body, http.Header{})
		assert.True(t, apperr.IsKind(err, apperr.Signature))
	})
}
