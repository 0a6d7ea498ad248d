// mockwebhook signs and sends a provider callback against a local server,
// one scheme per gateway. Useful for exercising the webhook path without a
// real provider account.
package main

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/payments/signing"
)

func main() {
	gateway := flag.String("gateway", "stripe", "Gateway (stripe, phonepe, razorpay, payu, cashfree, paytm)")
	baseURL := flag.String("url", "http://localhost:8080", "Server base URL")
	secret := flag.String("secret", os.Getenv("MOCK_WEBHOOK_SECRET"), "Gateway webhook secret / salt / merchant key")
	saltIndex := flag.String("salt-index", "1", "Salt index (phonepe)")
	merchantKey := flag.String("merchant-key", "", "Merchant key (payu; defaults to -secret)")
	ref := flag.String("ref", "ord_"+randomHex(8), "External reference / order id")
	txnID := flag.String("txn-id", "txn_"+randomHex(8), "Provider transaction id")
	amount := flag.Float64("amount", 50.00, "Amount in major units")
	success := flag.Bool("success", true, "Report a successful payment")
	dryRun := flag.Bool("dry-run", false, "Only print body and headers, don't send")

	flag.Parse()

	if *secret == "" {
		fmt.Fprintf(os.Stderr, "Error: secret not provided and MOCK_WEBHOOK_SECRET not set\n")
		os.Exit(1)
	}
	if *merchantKey == "" {
		*merchantKey = *secret
	}

	body, headers, contentType, err := buildCallback(*gateway, *secret, *saltIndex, *merchantKey, *ref, *txnID, *amount, *success)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Body: %s\n", string(body))
	for k, v := range headers {
		fmt.Printf("%s: %s\n", k, v)
	}

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	endpoint := *baseURL + "/payment/" + *gateway + "/webhook"
	fmt.Printf("\nSending to %s...\n", endpoint)

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", string(respBody))

	if resp.StatusCode >= 300 {
		os.Exit(1)
	}
}

func buildCallback(gateway, secret, saltIndex, merchantKey, ref, txnID string, amount float64, success bool) ([]byte, map[string]string, string, error) {
	switch gateway {
	case "stripe":
		evType := "payment.succeeded"
		if !success {
			evType = "payment.failed"
		}
		body, _ := json.Marshal(map[string]any{
			"id":   "evt_" + randomHex(8),
			"type": evType,
			"data": map[string]string{
				"session_id":     ref,
				"payment_intent": txnID,
				"method":         "card",
			},
		})
		t := strconv.FormatInt(time.Now().Unix(), 10)
		msg := append(append([]byte(t), '.'), body...)
		sig := signing.HMACSHA256Hex([]byte(secret), msg)
		return body, map[string]string{"Stripe-Signature": "t=" + t + ",v1=" + sig}, "application/json", nil

	case "phonepe":
		code := "PAYMENT_SUCCESS"
		if !success {
			code = "PAYMENT_ERROR"
		}
		inner, _ := json.Marshal(map[string]any{
			"code": code,
			"data": map[string]any{
				"merchantTransactionId": ref,
				"transactionId":         txnID,
				"paymentInstrument":     map[string]string{"type": "UPI"},
			},
		})
		b64 := base64.StdEncoding.EncodeToString(inner)
		body, _ := json.Marshal(map[string]string{"response": b64})
		return body, map[string]string{"X-VERIFY": signing.PhonePeVerify(b64, "", secret, saltIndex)}, "application/json", nil

	case "razorpay":
		event := "payment.captured"
		status := "captured"
		if !success {
			event = "payment.failed"
			status = "failed"
		}
		body, _ := json.Marshal(map[string]any{
			"event": event,
			"payload": map[string]any{
				"payment": map[string]any{
					"entity": map[string]any{
						"id":       txnID,
						"order_id": ref,
						"status":   status,
						"method":   "upi",
					},
				},
			},
		})
		return body, map[string]string{"X-Razorpay-Signature": signing.HMACSHA256Hex([]byte(secret), body)}, "application/json", nil

	case "payu":
		status := "success"
		if !success {
			status = "failure"
		}
		amt := strconv.FormatFloat(amount, 'f', 2, 64)
		form := url.Values{
			"status":      {status},
			"txnid":       {ref},
			"amount":      {amt},
			"productinfo": {"order " + ref},
			"firstname":   {"Test"},
			"email":       {"test@example.com"},
			"mihpayid":    {txnID},
			"mode":        {"UPI"},
		}
		fields := []string{status, "", "", "", "", "", "", "", "", "", "",
			"test@example.com", "Test", "order " + ref, amt, ref, merchantKey}
		form.Set("hash", signing.PayUResponseHash(secret, fields))
		return []byte(form.Encode()), nil, "application/x-www-form-urlencoded", nil

	case "cashfree":
		evType := "PAYMENT_SUCCESS_WEBHOOK"
		if !success {
			evType = "PAYMENT_FAILED_WEBHOOK"
		}
		body, _ := json.Marshal(map[string]any{
			"type": evType,
			"data": map[string]any{
				"order":   map[string]string{"order_id": ref},
				"payment": map[string]any{"cf_payment_id": txnID, "payment_group": "upi"},
			},
		})
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		return body, map[string]string{
			"x-webhook-timestamp": ts,
			"x-webhook-signature": signing.CashfreeSignature(body, ts, secret),
		}, "application/json", nil

	case "paytm":
		result := "TXN_SUCCESS"
		if !success {
			result = "TXN_FAILURE"
		}
		inner, _ := json.Marshal(map[string]any{
			"resultInfo":  map[string]string{"resultStatus": result},
			"orderId":     ref,
			"txnId":       txnID,
			"paymentMode": "UPI",
		})
		body, _ := json.Marshal(map[string]any{
			"head": map[string]string{"signature": signing.PaytmChecksum(inner, merchantKey)},
			"body": json.RawMessage(inner),
		})
		return body, nil, "application/json", nil
	}

	return nil, nil, "", fmt.Errorf("unknown gateway %q", gateway)
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "0000000000000000"[:n*2]
	}
	return hex.EncodeToString(b)
}
