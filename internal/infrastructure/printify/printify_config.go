package printify

import (
	"errors"
	"strings"
)

// PrintifyConfig holds configuration for the Printify REST API.
// Credentials are not part of it; they are passed on every call.
type PrintifyConfig struct {
	// APIBaseURL is the API root including the version segment
	APIBaseURL string
	// TimeoutSeconds bounds every HTTP request
	TimeoutSeconds int
	// RequestsPerSecond is the client-side rate limit
	RequestsPerSecond float64
	// Burst is the token bucket size
	Burst int
	// PageSize is the products.json page size
	PageSize int
	// UserAgent identifies the storefront to the provider
	UserAgent string
}

const (
	// PrintifyProductionAPIURL is the production API endpoint
	PrintifyProductionAPIURL = "https://api.printify.com/v1"

	defaultTimeoutSeconds    = 15
	defaultRequestsPerSecond = 5
	defaultBurst             = 10
	defaultPageSize          = 50
	maxPageSize              = 50
	defaultUserAgent         = "roastery-backend"
)

// Errors for Printify configuration
var (
	ErrPrintifyConfigInvalidURL       = errors.New("printify: api base url must be http or https")
	ErrPrintifyConfigInvalidRateLimit = errors.New("printify: requests per second cannot be negative")
)

// NewPrintifyConfig creates a configuration with defaults
func NewPrintifyConfig() *PrintifyConfig {
	return &PrintifyConfig{
		APIBaseURL:        PrintifyProductionAPIURL,
		TimeoutSeconds:    defaultTimeoutSeconds,
		RequestsPerSecond: defaultRequestsPerSecond,
		Burst:             defaultBurst,
		PageSize:          defaultPageSize,
		UserAgent:         defaultUserAgent,
	}
}

// Validate validates the configuration and fills in defaults
func (c *PrintifyConfig) Validate() error {
	if c.APIBaseURL == "" {
		c.APIBaseURL = PrintifyProductionAPIURL
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return ErrPrintifyConfigInvalidURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.RequestsPerSecond < 0 {
		return ErrPrintifyConfigInvalidRateLimit
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = defaultRequestsPerSecond
	}
	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.PageSize <= 0 || c.PageSize > maxPageSize {
		c.PageSize = defaultPageSize
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	return nil
}
