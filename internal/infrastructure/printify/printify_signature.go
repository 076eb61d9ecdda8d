package printify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/roastery/backend/internal/domain/fulfillment"
)

// SignatureHeader carries the HMAC of a webhook body
const SignatureHeader = "X-Pfy-Signature"

const signaturePrefix = "sha256="

// SignatureVerifier checks webhook HMAC-SHA256 signatures
type SignatureVerifier struct{}

// NewSignatureVerifier creates a verifier
func NewSignatureVerifier() *SignatureVerifier {
	return &SignatureVerifier{}
}

// Verify checks signature against the HMAC-SHA256 of payload under secret.
// The signature may carry a "sha256=" prefix.
func (v *SignatureVerifier) Verify(secret string, payload []byte, signature string) error {
	if secret == "" {
		return fulfillment.ErrWebhookSecretMissing
	}
	provided := strings.TrimPrefix(strings.TrimSpace(signature), signaturePrefix)
	decoded, err := hex.DecodeString(provided)
	if err != nil || len(decoded) == 0 {
		return fulfillment.ErrInvalidWebhookSignature
	}
	if !hmac.Equal(computeHMAC(secret, payload), decoded) {
		return fulfillment.ErrInvalidWebhookSignature
	}
	return nil
}

// Sign returns the header value for payload, as the provider sends it
func Sign(secret string, payload []byte) string {
	return signaturePrefix + hex.EncodeToString(computeHMAC(secret, payload))
}

func computeHMAC(secret string, payload []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}
