package dto

import (
	"errors"
	"net/http"

	"github.com/roastery/backend/internal/domain/catalog"
	"github.com/roastery/backend/internal/domain/fulfillment"
	"github.com/roastery/backend/internal/domain/provider"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation and input error codes
const (
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized     = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired     = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid     = "ERR_TOKEN_INVALID"
	ErrCodeInvalidSignature = "ERR_INVALID_SIGNATURE"
)

// Resource error codes
const (
	ErrCodeNotFound = "ERR_NOT_FOUND"
	ErrCodeConflict = "ERR_CONFLICT"
)

// Fulfillment error codes
const (
	// ErrCodeFulfillmentNotConfigured is used when provider credentials or the webhook secret are missing
	ErrCodeFulfillmentNotConfigured = "ERR_FULFILLMENT_NOT_CONFIGURED"
	// ErrCodeProviderUnavailable is used when the provider could not be reached or answered badly
	ErrCodeProviderUnavailable = "ERR_PROVIDER_UNAVAILABLE"
	// ErrCodeInvalidFulfillmentData is used when local or provider data cannot be fulfilled
	ErrCodeInvalidFulfillmentData = "ERR_INVALID_FULFILLMENT_DATA"
	// ErrCodeAlreadySubmitted is used for a second submission of the same order
	ErrCodeAlreadySubmitted = "ERR_ALREADY_SUBMITTED"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeTokenExpired:     http.StatusUnauthorized,
	ErrCodeTokenInvalid:     http.StatusUnauthorized,
	ErrCodeInvalidSignature: http.StatusUnauthorized,

	ErrCodeNotFound: http.StatusNotFound,
	ErrCodeConflict: http.StatusConflict,

	ErrCodeFulfillmentNotConfigured: http.StatusServiceUnavailable,
	ErrCodeProviderUnavailable:      http.StatusBadGateway,
	ErrCodeInvalidFulfillmentData:   http.StatusUnprocessableEntity,
	ErrCodeAlreadySubmitted:         http.StatusConflict,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to API codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":        ErrCodeNotFound,
	"INVALID_INPUT":    ErrCodeInvalidInput,
	"INVALID_STATE":    ErrCodeConflict,
	"INVALID_SETTINGS": ErrCodeValidation,
	"UNAUTHORIZED":     ErrCodeUnauthorized,
	"VALIDATION_ERROR": ErrCodeValidation,
	"BAD_REQUEST":      ErrCodeBadRequest,
	"INTERNAL_ERROR":   ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}

// kindErrorCodes maps fulfillment error kinds to API codes
var kindErrorCodes = map[fulfillment.ErrorKind]string{
	fulfillment.KindConfig:    ErrCodeFulfillmentNotConfigured,
	fulfillment.KindTransport: ErrCodeProviderUnavailable,
	fulfillment.KindData:      ErrCodeInvalidFulfillmentData,
	fulfillment.KindDuplicate: ErrCodeAlreadySubmitted,
	fulfillment.KindConflict:  ErrCodeConflict,
	fulfillment.KindNotFound:  ErrCodeNotFound,
	fulfillment.KindAuth:      ErrCodeInvalidSignature,
}

// ErrorCodeFor returns the API error code for a service error. Catalog
// sentinels are folded into the fulfillment kinds they behave like.
func ErrorCodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, provider.ErrProviderProductNotFound):
		return ErrCodeNotFound
	case errors.Is(err, catalog.ErrMalformedListing), errors.Is(err, catalog.ErrInvalidPrice),
		errors.Is(err, catalog.ErrInvalidProductName), errors.Is(err, catalog.ErrMissingExternalID),
		errors.Is(err, catalog.ErrFieldTooLong):
		return ErrCodeInvalidFulfillmentData
	}
	if code, ok := kindErrorCodes[fulfillment.Classify(err)]; ok {
		return code
	}
	return ErrCodeInternal
}
