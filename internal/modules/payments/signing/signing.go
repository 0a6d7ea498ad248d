// Package signing holds the per-gateway message-authentication primitives.
// Everything here is a pure function of (bytes, secret material); no I/O.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

func HMACSHA256Hex(secret, msg []byte) string {
	m := hmac.New(sha256.New, secret)
	m.Write(msg)
	return hex.EncodeToString(m.Sum(nil))
}

func HMACSHA256Base64(secret, msg []byte) string {
	m := hmac.New(sha256.New, secret)
	m.Write(msg)
	return base64.StdEncoding.EncodeToString(m.Sum(nil))
}

func SHA256Hex(msg []byte) string {
	sum := sha256.Sum256(msg)
	return hex.EncodeToString(sum[:])
}

func SHA512Hex(msg []byte) string {
	sum := sha512.Sum512(msg)
	return hex.EncodeToString(sum[:])
}

// Equal compares two signature strings in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// PhonePeVerify builds the X-VERIFY value:
// sha256(base64Payload + path + saltKey) hex, then "###" and the salt index.
// Status checks use the same construction with an empty payload.
func PhonePeVerify(base64Payload, path, saltKey, saltIndex string) string {
	return SHA256Hex([]byte(base64Payload+path+saltKey)) + "###" + saltIndex
}

// PayUHash is the request hash: sha512 of the pipe-joined ordered fields
// followed by the salt.
func PayUHash(fields []string, salt string) string {
	return SHA512Hex([]byte(strings.Join(fields, "|") + "|" + salt))
}

// PayUResponseHash recomputes the inbound hash, which PayU builds salt-first
// over the reversed field order.
func PayUResponseHash(salt string, fields []string) string {
	return SHA512Hex([]byte(salt + "|" + strings.Join(fields, "|")))
}

// CashfreeSignature signs bodyJSON with the literal unix timestamp appended,
// base64-encoded. Every request is re-signed with a fresh timestamp.
func CashfreeSignature(body []byte, ts, secret string) string {
	msg := make([]byte, 0, len(body)+len(ts))
	msg = append(msg, body...)
	msg = append(msg, ts...)
	return HMACSHA256Base64([]byte(secret), msg)
}

// PaytmChecksum keys the serialized body with the merchant key.
func PaytmChecksum(bodyJSON []byte, merchantKey string) string {
	msg := make([]byte, 0, len(bodyJSON)+len(merchantKey))
	msg = append(msg, bodyJSON...)
	msg = append(msg, merchantKey...)
	return SHA256Hex(msg)
}
