package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/orders"
	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/payments/signing"
	"github.com/ChandanVasu/ShopGold-sub000/internal/shared/apperr"
)

func razorpayTestAdapter(t *testing.T, base string) Adapter {
	t.Helper()
	a, err := newRazorpay(testCfg(map[string]string{
		"keyId":         "rzp_test_key",
		"keySecret":     "rzp_secret",
		"webhookSecret": "whsec",
		"apiBase":       base,
	}), testClient())
	require.NoError(t, err)
	return a
}

func TestRazorpay_CreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "rzp_secret", pass)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(129900), body["amount"])
		assert.Equal(t, "INR", body["currency"])
		assert.Equal(t, "ord-1", body["receipt"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":     "order_Abc123",
			"status": "created",
		})
	}))
	defer srv.Close()

	a := razorpayTestAdapter(t, srv.URL)
	sess, err := a.CreateSession(context.Background(), SessionRequest{
		OrderID:  "ord-1",
		Amount:   1299,
		Currency: "INR",
		Customer: Customer{Email: "jane@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order_Abc123", sess.ExternalRef)
	assert.Equal(t, "rzp_test_key", sess.Raw["key_id"])
	assert.Empty(t, sess.RedirectURL)
}

func TestRazorpay_Verify(t *testing.T) {
	payments := `{"items":[{"id":"pay_1","status":"failed","method":"card"},{"id":"pay_2","status":"captured","method":"upi"}]}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/orders/order_Abc123/payments", r.URL.Path)
		fmt.Fprint(w, payments)
	}))
	defer srv.Close()

	a := razorpayTestAdapter(t, srv.URL)
	out, err := a.Verify(context.Background(), "order_Abc123")
	require.NoError(t, err)

	// a captured attempt wins over an earlier failed one
	assert.Equal(t, orders.StatusCompleted, out.Status)
	assert.Equal(t, "pay_2", out.TxnID)
	assert.Equal(t, "upi", out.Method)
}

func TestRazorpay_Verify_AllFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"id":"pay_1","status":"failed","method":"card"}]}`)
	}))
	defer srv.Close()

	a := razorpayTestAdapter(t, srv.URL)
	out, err := a.Verify(context.Background(), "order_Abc123")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusFailed, out.Status)
	assert.Equal(t, "pay_1", out.TxnID)
}

func razorpayEvent(t *testing.T, event string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": event,
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]string{
					"id":       "pay_9",
					"order_id": "order_Abc123",
					"method":   "upi",
				},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func TestRazorpay_ParseCallback(t *testing.T) {
	a := razorpayTestAdapter(t, "http://unused")
	sign := func(body []byte) http.Header {
		h := http.Header{}
		h.Set(razorpaySignatureHeader, signing.HMACSHA256Hex([]byte("whsec"), body))
		return h
	}

	t.Run("captured", func(t *testing.T) {
		body := razorpayEvent(t, "payment.captured")
		out, err := a.ParseCallback(body, sign(body))
		require.NoError(t, err)
		assert.Equal(t, orders.StatusCompleted, out.Status)
		assert.Equal(t, "order_Abc123", out.ExternalRef)
		assert.Equal(t, "pay_9", out.TxnID)
	})

	t.Run("failed", func(t *testing.T) {
		body := razorpayEvent(t, "payment.failed")
		out, err := a.ParseCallback(body, sign(body))
		require.NoError(t, err)
		assert.Equal(t, orders.StatusFailed, out.Status)
	})

	t.Run("unrelated event stays pending", func(t *testing.T) {
		body := razorpayEvent(t, "order.paid")
		out, err := a.ParseCallback(body, sign(body))
		require.NoError(t, err)
		assert.Equal(t, orders.StatusPending, out.Status)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := a.ParseCallback(razorpayEvent(t, "payment.captured"), http.Header{})
		assert.True(t, apperr.IsKind(err, apperr.Signature))
	})

	t.Run("tampered body", func(t *testing.T) {
		body := razorpayEvent(t, "payment.captured")
		headers := sign(body)
		for i := range body {
			mutated := append([]byte(nil), body...)
			mutated[i] ^= 0x01
			_, err := a.ParseCallback(mutated, headers)
			assert.Error(t, err, "byte %d", i)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		body := razorpayEvent(t, "payment.captured")
		h := http.Header{}
		h.Set(razorpaySignatureHeader, signing.HMACSHA256Hex([]byte("other"), body))
		_, err := a.ParseCallback(body, h)
		assert.True(t, apperr.IsKind(err, apperr.Signature))
	})
}
