package printify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roastery/backend/internal/domain/fulfillment"
)

func TestSignatureVerifier_Verify(t *testing.T) {
	verifier := NewSignatureVerifier()
	payload := []byte(`{"type":"order:updated","data":{"id":"ord-1","status":"shipped"}}`)
	secret := "whsec_test"
	signature := Sign(secret, payload)

	tests := []struct {
		name      string
		secret    string
		payload   []byte
		signature string
		wantErr   error
	}{
		{"valid with prefix", secret, payload, signature, nil},
		{"valid without prefix", secret, payload, signature[len("sha256="):], nil},
		{"tampered body", secret, []byte(`{"type":"order:canceled"}`), signature, fulfillment.ErrInvalidWebhookSignature},
		{"wrong secret", "other", payload, signature, fulfillment.ErrInvalidWebhookSignature},
		{"not hex", secret, payload, "sha256=zzzz", fulfillment.ErrInvalidWebhookSignature},
		{"empty signature", secret, payload, "", fulfillment.ErrInvalidWebhookSignature},
		{"no secret configured", "", payload, signature, fulfillment.ErrWebhookSecretMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifier.Verify(tt.secret, tt.payload, tt.signature)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
