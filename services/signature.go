package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureMode controls what happens when webhook signature verification
// fails: Strict rejects the delivery with 401, Permissive logs and continues.
// Permissive exists for local testing against manually crafted payloads and
// must not be used in production.
type SignatureMode string

const (
	SignatureModeStrict     SignatureMode = "strict"
	SignatureModePermissive SignatureMode = "permissive"
)

// ParseSignatureMode maps a config value to a mode, defaulting to strict.
func ParseSignatureMode(s string) SignatureMode {
	if strings.EqualFold(s, string(SignatureModePermissive)) {
		return SignatureModePermissive
	}
	return SignatureModeStrict
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature of a webhook
// payload against the shared secret. The header format is
// "sha256=<hex-encoded-hmac>" computed over the exact raw request bytes.
// A missing signature or unconfigured secret always fails.
func VerifyWebhookSignature(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}

	if !strings.HasPrefix(signature, "sha256=") {
		return false
	}
	receivedMAC := strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))

	// Constant-time comparison to prevent timing attacks
	return hmac.Equal([]byte(receivedMAC), []byte(expectedMAC))
}
