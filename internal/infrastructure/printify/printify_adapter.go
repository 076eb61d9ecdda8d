package printify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/roastery/backend/internal/domain/provider"
	"github.com/roastery/backend/internal/infrastructure/telemetry"
)

// maxResponseSize is the maximum allowed response size from the Printify API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxProductPages stops a misbehaving pagination loop
const maxProductPages = 200

// errNotFound is translated to the caller's resource-specific sentinel
var errNotFound = errors.New("printify: resource not found")

// PrintifyAdapter implements the FulfillmentProvider and CatalogProvider ports
// against the Printify REST API
type PrintifyAdapter struct {
	config     *PrintifyConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *telemetry.FulfillmentMetrics
	logger     *zap.Logger
}

// NewPrintifyAdapter creates a new adapter with the given configuration
func NewPrintifyAdapter(config *PrintifyConfig, logger *zap.Logger) (*PrintifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PrintifyAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		logger:  logger.Named("printify"),
	}, nil
}

// WithMetrics records provider call latency on m
func (a *PrintifyAdapter) WithMetrics(m *telemetry.FulfillmentMetrics) *PrintifyAdapter {
	a.metrics = m
	return a
}

// ---------------------------------------------------------------------------
// FulfillmentProvider implementation
// ---------------------------------------------------------------------------

// CreateOrder opens a fulfillment order
func (a *PrintifyAdapter) CreateOrder(ctx context.Context, creds provider.Credentials, req provider.CreateOrderRequest) (*provider.Order, error) {
	body, err := a.doRequest(ctx, creds, "create_order", http.MethodPost, "/orders.json", nil, req)
	if err != nil {
		return nil, err
	}

	var resp PrintifyCreateOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrProviderInvalidResponse, err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: create order response has no id", provider.ErrProviderInvalidResponse)
	}

	return &provider.Order{
		ID:         resp.ID,
		ExternalID: req.ExternalID,
		Status:     resp.Status,
		Raw:        body,
	}, nil
}

// GetOrder reads the current state of a fulfillment order
func (a *PrintifyAdapter) GetOrder(ctx context.Context, creds provider.Credentials, providerOrderID string) (*provider.Order, error) {
	if err := validateID(providerOrderID); err != nil {
		return nil, err
	}
	body, err := a.doRequest(ctx, creds, "get_order", http.MethodGet, "/orders/"+url.PathEscape(providerOrderID)+".json", nil, nil)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s", provider.ErrProviderOrderNotFound, providerOrderID)
		}
		return nil, err
	}
	return decodeOrder(body)
}

// CancelOrder cancels a fulfillment order that has not gone to production
func (a *PrintifyAdapter) CancelOrder(ctx context.Context, creds provider.Credentials, providerOrderID string) (*provider.Order, error) {
	if err := validateID(providerOrderID); err != nil {
		return nil, err
	}
	body, err := a.doRequest(ctx, creds, "cancel_order", http.MethodPost, "/orders/"+url.PathEscape(providerOrderID)+"/cancel.json", nil, nil)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s", provider.ErrProviderOrderNotFound, providerOrderID)
		}
		return nil, err
	}
	return decodeOrder(body)
}

// GetShipments reads the shipments of a fulfillment order
func (a *PrintifyAdapter) GetShipments(ctx context.Context, creds provider.Credentials, providerOrderID string) ([]provider.Shipment, error) {
	if err := validateID(providerOrderID); err != nil {
		return nil, err
	}
	body, err := a.doRequest(ctx, creds, "get_shipping", http.MethodGet, "/orders/"+url.PathEscape(providerOrderID)+"/shipping.json", nil, nil)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s", provider.ErrProviderOrderNotFound, providerOrderID)
		}
		return nil, err
	}

	// The endpoint has returned both a bare array and an object wrapper.
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var shipments []PrintifyShipment
		if err := json.Unmarshal(trimmed, &shipments); err != nil {
			return nil, fmt.Errorf("%w: %v", provider.ErrProviderInvalidResponse, err)
		}
		return convertShipments(shipments), nil
	}
	var resp PrintifyShippingResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrProviderInvalidResponse, err)
	}
	return convertShipments(resp.Shipments), nil
}

// ---------------------------------------------------------------------------
// CatalogProvider implementation
// ---------------------------------------------------------------------------

// ListProducts returns every product of the shop, following pagination
func (a *PrintifyAdapter) ListProducts(ctx context.Context, creds provider.Credentials) ([]provider.Product, error) {
	var products []provider.Product

	for page := 1; page <= maxProductPages; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("limit", strconv.Itoa(a.config.PageSize))

		body, err := a.doRequest(ctx, creds, "list_products", http.MethodGet, "/products.json", query, nil)
		if err != nil {
			return nil, err
		}

		var resp PrintifyProductPage
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", provider.ErrProviderInvalidResponse, err)
		}
		for _, raw := range resp.Data {
			products = append(products, decodeProduct(raw))
		}

		if resp.LastPage <= page || len(resp.Data) == 0 {
			return products, nil
		}
	}

	a.logger.Warn("Product pagination stopped at page limit", zap.Int("max_pages", maxProductPages))
	return products, nil
}

// GetProduct returns one product
func (a *PrintifyAdapter) GetProduct(ctx context.Context, creds provider.Credentials, providerProductID string) (*provider.Product, error) {
	if err := validateID(providerProductID); err != nil {
		return nil, err
	}
	body, err := a.doRequest(ctx, creds, "get_product", http.MethodGet, "/products/"+url.PathEscape(providerProductID)+".json", nil, nil)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s", provider.ErrProviderProductNotFound, providerProductID)
		}
		return nil, err
	}
	product := decodeProduct(body)
	return &product, nil
}

// ---------------------------------------------------------------------------
// HTTP helpers
// ---------------------------------------------------------------------------

// doRequest performs one authenticated shop-scoped call and classifies failures
func (a *PrintifyAdapter) doRequest(ctx context.Context, creds provider.Credentials, operation, method, path string, query url.Values, payload any) ([]byte, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "printify."+operation,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("http.method", method),
	)
	defer span.End()

	if err := a.limiter.Wait(ctx); err != nil {
		err = fmt.Errorf("%w: rate limiter: %v", provider.ErrProviderUnavailable, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	endpoint := a.config.APIBaseURL + "/shops/" + url.PathEscape(creds.ShopID) + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("printify: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("printify: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", a.config.UserAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json;charset=utf-8")
	}

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: %v", provider.ErrProviderUnavailable, err)
		telemetry.RecordError(span, err)
		a.metrics.RecordProviderCall(ctx, operation, "unavailable", time.Since(start))
		a.logger.Warn("Printify request failed",
			zap.String("operation", operation),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		err = fmt.Errorf("%w: failed to read response: %v", provider.ErrProviderUnavailable, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, "http.status_code", resp.StatusCode)
	a.logger.Debug("Printify request",
		zap.String("operation", operation),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		telemetry.RecordError(span, err)
		a.metrics.RecordProviderCall(ctx, operation, strconv.Itoa(resp.StatusCode), time.Since(start))
		return nil, err
	}
	a.metrics.RecordProviderCall(ctx, operation, "ok", time.Since(start))
	return body, nil
}

// classifyStatus maps HTTP status codes onto provider error sentinels
func classifyStatus(status int, body []byte) error {
	if status < 400 {
		return nil
	}
	detail := errorDetail(body)
	switch {
	case status == http.StatusNotFound:
		return errNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d %s", provider.ErrProviderAuthFailed, status, detail)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", provider.ErrProviderRateLimited, status)
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d %s", provider.ErrProviderUnavailable, status, detail)
	default:
		return fmt.Errorf("%w: HTTP %d %s", provider.ErrProviderRequestFailed, status, detail)
	}
}

// errorDetail extracts a short message from an error body
func errorDetail(body []byte) string {
	var resp PrintifyErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Message != "" {
		return resp.Message
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func decodeOrder(body []byte) (*provider.Order, error) {
	var order PrintifyOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrProviderInvalidResponse, err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: order has no id", provider.ErrProviderInvalidResponse)
	}
	return &provider.Order{
		ID:         order.ID,
		ExternalID: order.ExternalID,
		Status:     order.Status,
		Shipments:  convertShipments(order.Shipments),
		Raw:        body,
	}, nil
}

// validateID rejects identifiers that would escape the resource path
func validateID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "/?#") {
		return fmt.Errorf("%w: invalid identifier %q", provider.ErrProviderRequestFailed, id)
	}
	return nil
}

// Ensure PrintifyAdapter implements the provider ports
var (
	_ provider.FulfillmentProvider = (*PrintifyAdapter)(nil)
	_ provider.CatalogProvider     = (*PrintifyAdapter)(nil)
)
