package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roastery/backend/internal/domain/provider"
	"github.com/roastery/backend/internal/domain/shared"
)

// FulfillmentSettingsView is the operator view of provider settings. Secrets
// are masked.
type FulfillmentSettingsView struct {
	APIKey                  string `json:"api_key"`
	APIKeyConfigured        bool   `json:"api_key_configured"`
	ShopID                  string `json:"shop_id"`
	WebhookURL              string `json:"webhook_url"`
	WebhookSecretConfigured bool   `json:"webhook_secret_configured"`
}

// UpdateFulfillmentSettingsInput carries the values to change. Nil fields are
// left as they are.
type UpdateFulfillmentSettingsInput struct {
	APIKey        *string `json:"api_key" validate:"omitempty,min=8,max=2048"`
	ShopID        *string `json:"shop_id" validate:"omitempty,numeric,max=32"`
	WebhookURL    *string `json:"webhook_url" validate:"omitempty,url,max=512"`
	WebhookSecret *string `json:"webhook_secret" validate:"omitempty,min=16,max=256"`
}

// FulfillmentSettingsService reads provider settings from storage on every
// call, falling back to static configuration for blank values. It is the
// credentials and webhook secret source of the fulfillment services.
type FulfillmentSettingsService struct {
	repo     provider.SettingsRepository
	fallback provider.Settings
	validate *validator.Validate
	logger   *zap.Logger
}

// FulfillmentSettingsServiceConfig contains dependencies for FulfillmentSettingsService
type FulfillmentSettingsServiceConfig struct {
	Repo     provider.SettingsRepository
	Fallback provider.Settings
	Validate *validator.Validate
	Logger   *zap.Logger
}

// NewFulfillmentSettingsService creates a new FulfillmentSettingsService
func NewFulfillmentSettingsService(cfg FulfillmentSettingsServiceConfig) *FulfillmentSettingsService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := cfg.Validate
	if validate == nil {
		validate = validator.New()
	}
	return &FulfillmentSettingsService{
		repo:     cfg.Repo,
		fallback: cfg.Fallback,
		validate: validate,
		logger:   logger,
	}
}

// Load returns stored settings merged with the static fallback
func (s *FulfillmentSettingsService) Load(ctx context.Context) (provider.Settings, error) {
	values, err := s.repo.GetMany(ctx, provider.SettingKeys)
	if err != nil {
		return provider.Settings{}, fmt.Errorf("failed to load fulfillment settings: %w", err)
	}
	return provider.SettingsFromMap(values).Merge(s.fallback), nil
}

// Credentials implements provider.CredentialsSource
func (s *FulfillmentSettingsService) Credentials(ctx context.Context) (provider.Credentials, error) {
	current, err := s.Load(ctx)
	if err != nil {
		return provider.Credentials{}, err
	}
	creds := current.Credentials()
	if err := creds.Validate(); err != nil {
		return provider.Credentials{}, err
	}
	return creds, nil
}

// WebhookSecret returns the configured webhook secret, or "" when none is set
func (s *FulfillmentSettingsService) WebhookSecret(ctx context.Context) (string, error) {
	current, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(current.WebhookSecret), nil
}

// Get returns the masked operator view
func (s *FulfillmentSettingsService) Get(ctx context.Context) (*FulfillmentSettingsView, error) {
	current, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return toView(current), nil
}

// Update stores the provided values. Changes apply to the next provider call.
func (s *FulfillmentSettingsService) Update(ctx context.Context, input UpdateFulfillmentSettingsInput) (*FulfillmentSettingsView, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, shared.NewDomainError("INVALID_SETTINGS", err.Error()).WithCause(err)
	}

	values := make(map[string]string)
	set := func(key string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			values[key] = strings.TrimSpace(*v)
		}
	}
	set(provider.SettingAPIKey, input.APIKey)
	set(provider.SettingShopID, input.ShopID)
	set(provider.SettingWebhookURL, input.WebhookURL)
	set(provider.SettingWebhookSecret, input.WebhookSecret)

	if len(values) > 0 {
		if err := s.repo.Upsert(ctx, values); err != nil {
			return nil, fmt.Errorf("failed to save fulfillment settings: %w", err)
		}
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		s.logger.Info("Fulfillment settings updated", zap.Strings("keys", keys))
	}
	return s.Get(ctx)
}

func toView(current provider.Settings) *FulfillmentSettingsView {
	return &FulfillmentSettingsView{
		APIKey:                  maskSecret(current.APIKey),
		APIKeyConfigured:        strings.TrimSpace(current.APIKey) != "",
		ShopID:                  current.ShopID,
		WebhookURL:              current.WebhookURL,
		WebhookSecretConfigured: strings.TrimSpace(current.WebhookSecret) != "",
	}
}

// maskSecret keeps the last four characters
func maskSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}
