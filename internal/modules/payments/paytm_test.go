package payments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/orders"
	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/payments/signing"
	"github.com/ChandanVasu/ShopGold-sub000/internal/shared/apperr"
)

func paytmTestAdapter(t *testing.T, base string) Adapter {
	t.Helper()
	a, err := newPaytm(testCfg(map[string]string{
		"mid":         "MID1",
		"merchantKey": "mkey",
		"apiBase":     base,
	}), testClient())
	require.NoError(t, err)
	return a
}

func TestPaytm_CreateSession_ChecksumOverExactBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/theia/api/v1/initiateTransaction", r.URL.Path)
		assert.Equal(t, "MID1", r.URL.Query().Get("mid"))
		assert.Equal(t, "ord-1", r.URL.Query().Get("orderId"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var env paytmEnvelope
		require.NoError(t, json.Unmarshal(raw, &env))

		// checksum covers the serialized body bytes exactly as sent
		assert.Equal(t, signing.PaytmChecksum(env.Body, "mkey"), env.Head.Signature)

		var body map[string]any
		require.NoError(t, json.Unmarshal(env.Body, &body))
		assert.Equal(t, "Payment", body["requestType"])
		if amt, ok := body["txnAmount"].(map[string]any); assert.True(t, ok) {
			assert.Equal(t, "50.00", amt["value"])
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"body": map[string]any{
				"resultInfo": map[string]string{"resultStatus": "S"},
				"txnToken":   "tok_1",
			},
		})
	}))
	defer srv.Close()

	a := paytmTestAdapter(t, srv.URL)
	sess, err := a.CreateSession(context.Background(), SessionRequest{
		OrderID:  "ord-1",
		Amount:   50,
		Currency: "INR",
		Customer: Customer{Email: "jane@example.com", Phone: "9990001111"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", sess.ExternalRef)
	assert.Equal(t, "tok_1", sess.Token)
	assert.Contains(t, sess.RedirectURL, "showPaymentPage")
}

func TestPaytm_Verify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3/order/status", r.URL.Path)

		var env paytmEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		assert.Equal(t, signing.PaytmChecksum(env.Body, "mkey"), env.Head.Signature)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"body": map[string]any{
				"resultInfo":  map[string]string{"resultStatus": "TXN_SUCCESS"},
				"orderId":     "ord-1",
				"txnId":       "T456",
				"paymentMode": "UPI",
			},
		})
	}))
	defer srv.Close()

	a := paytmTestAdapter(t, srv.URL)
	out, err := a.Verify(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCompleted, out.Status)
	assert.Equal(t, "T456", out.TxnID)
}

func paytmCallback(t *testing.T, key, result, ref string) []byte {
	t.Helper()
	inner, err := json.Marshal(map[string]any{
		"resultInfo":  map[string]string{"resultStatus": result},
		"orderId":     ref,
		"txnId":       "T456",
		"paymentMode": "UPI",
	})
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{
		"head": map[string]string{"signature": signing.PaytmChecksum(inner, key)},
		"body": json.RawMessage(inner),
	})
	require.NoError(t, err)
	return body
}

func TestPaytm_ParseCallback(t *testing.T) {
	a := paytmTestAdapter(t, "http://unused")

	t.Run("valid", func(t *testing.T) {
		out, err := a.ParseCallback(paytmCallback(t, "mkey", "TXN_SUCCESS", "ord-1"), http.Header{})
		require.NoError(t, err)
		assert.Equal(t, orders.StatusCompleted, out.Status)
		assert.Equal(t, "ord-1", out.ExternalRef)
	})

	t.Run("failure result", func(t *testing.T) {
		out, err := a.ParseCallback(paytmCallback(t, "mkey", "TXN_FAILURE", "ord-1"), http.Header{})
		require.NoError(t, err)
		assert.Equal(t, orders.StatusFailed, out.Status)
	})

	t.Run("wrong merchant key", func(t *testing.T) {
		_, err := a.ParseCallback(paytmCallback(t, "otherkey", "TXN_SUCCESS", "ord-1"), http.Header{})
		assert.True(t, apperr.IsKind(err, apperr.Signature))
	})

	t.Run("tampered body keeps old signature", func(t *testing.T) {
		body := paytmCallback(t, "mkey", "TXN_FAILURE", "ord-1")
		var env map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(body, &env))

		good := paytmCallback(t, "mkey", "TXN_SUCCESS", "ord-1")
		var goodEnv map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(good, &goodEnv))

		// success body, failure signature
		swapped, err := json.Marshal(map[string]json.RawMessage{
			"head": env["head"],
			"body": goodEnv["body"],
		})
		require.NoError(t, err)

		_, perr := a.ParseCallback(swapped, http.Header{})
		assert.True(t, apperr.IsKind(perr, apperr.Signature))
	})

	t.Run("missing signature", func(t *testing.T) {
		body := []byte(`{"head":{},"body":{"orderId":"ord-1"}}`)
		_, err := a.ParseCallback(body, http.Header{})
		assert.True(t, apperr.IsKind(err, apperr.Signature))
	})
}
