package fulfillment

import (
	"errors"

	"github.com/roastery/backend/internal/domain/provider"
)

var (
	// Lookup errors
	ErrOrderNotFound          = errors.New("fulfillment: order not found")
	ErrShippingRecordNotFound = errors.New("fulfillment: shipping record not found")
	ErrRecordNotFound         = errors.New("fulfillment: fulfillment record not found")

	// Submission errors
	ErrAlreadySubmitted       = errors.New("fulfillment: order already submitted to provider")
	ErrSubmissionInProgress   = errors.New("fulfillment: order submission already in progress")
	ErrOrderNotSubmittable    = errors.New("fulfillment: order is not in a submittable status")
	ErrOrderHasNoItems        = errors.New("fulfillment: order has no line items")
	ErrLineItemNotFulfillable = errors.New("fulfillment: line item has no provider product or variant id")
	ErrInvalidShippingAddress = errors.New("fulfillment: invalid shipping address")

	// Reconciliation errors
	ErrNotYetSubmitted = errors.New("fulfillment: order not yet submitted to provider")
	ErrInvalidStatus   = errors.New("fulfillment: invalid order status")

	// Shipping errors
	ErrTrackingNumberRequired = errors.New("fulfillment: tracking number is required")

	// Webhook errors
	ErrInvalidWebhookPayload   = errors.New("fulfillment: invalid webhook payload")
	ErrInvalidWebhookSignature = errors.New("fulfillment: invalid webhook signature")
	ErrWebhookSecretMissing    = errors.New("fulfillment: webhook secret not configured")
)

// ErrorKind groups errors by how the caller should react.
type ErrorKind string

const (
	KindConfig    ErrorKind = "config"
	KindTransport ErrorKind = "transport"
	KindData      ErrorKind = "data"
	KindConflict  ErrorKind = "conflict"
	KindDuplicate ErrorKind = "duplicate"
	KindNotFound  ErrorKind = "not_found"
	KindAuth      ErrorKind = "auth"
	KindUnknown   ErrorKind = "unknown"
)

// Classify maps an error to its kind. Config and transport errors are the
// actionable ones; data errors are reported per item.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, provider.ErrCredentialsMissing), errors.Is(err, ErrWebhookSecretMissing):
		return KindConfig
	case provider.IsTransportError(err):
		return KindTransport
	case errors.Is(err, ErrAlreadySubmitted):
		return KindDuplicate
	case errors.Is(err, ErrSubmissionInProgress), errors.Is(err, ErrOrderNotSubmittable):
		return KindConflict
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrRecordNotFound),
		errors.Is(err, provider.ErrProviderOrderNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidWebhookSignature):
		return KindAuth
	case errors.Is(err, ErrLineItemNotFulfillable), errors.Is(err, ErrOrderHasNoItems),
		errors.Is(err, ErrInvalidShippingAddress), errors.Is(err, ErrTrackingNumberRequired),
		errors.Is(err, ErrInvalidWebhookPayload), errors.Is(err, ErrNotYetSubmitted),
		errors.Is(err, ErrInvalidStatus):
		return KindData
	default:
		return KindUnknown
	}
}
