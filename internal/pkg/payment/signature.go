package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature checks a hex-encoded HMAC-SHA256 signature over data.
// The comparison is constant time and any malformed input verifies as false;
// this function never reports why a signature failed.
func VerifySignature(data []byte, providedSignature, secret string) bool {
	sig := strings.TrimSpace(providedSignature)
	if sig == "" || secret == "" {
		return false
	}

	decoded, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return hmac.Equal(mac.Sum(nil), decoded)
}

// CheckoutAttestation builds the byte sequence the gateway signs when the
// client-side checkout completes: "<orderID>|<paymentID>", signed with the
// API key secret. Webhook payloads are signed over the raw body with the
// separate webhook secret; the two must never be interchanged.
func CheckoutAttestation(orderID, paymentID string) []byte {
	return []byte(orderID + "|" + paymentID)
}
