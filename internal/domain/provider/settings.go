package provider

import (
	"context"
	"errors"
	"strings"
)

// Setting keys stored in the app_settings table.
const (
	SettingAPIKey        = "fulfillment.api_key"
	SettingShopID        = "fulfillment.shop_id"
	SettingWebhookURL    = "fulfillment.webhook_url"
	SettingWebhookSecret = "fulfillment.webhook_secret"
)

// SettingKeys lists every key owned by the provider context.
var SettingKeys = []string{SettingAPIKey, SettingShopID, SettingWebhookURL, SettingWebhookSecret}

var ErrUnknownSettingKey = errors.New("provider: unknown setting key")

// Settings is the operator-editable provider configuration.
type Settings struct {
	APIKey        string
	ShopID        string
	WebhookURL    string
	WebhookSecret string
}

// Credentials extracts the call credentials.
func (s Settings) Credentials() Credentials {
	return Credentials{APIKey: s.APIKey, ShopID: s.ShopID}
}

// Merge fills blank fields of s from fallback.
func (s Settings) Merge(fallback Settings) Settings {
	if strings.TrimSpace(s.APIKey) == "" {
		s.APIKey = fallback.APIKey
	}
	if strings.TrimSpace(s.ShopID) == "" {
		s.ShopID = fallback.ShopID
	}
	if strings.TrimSpace(s.WebhookURL) == "" {
		s.WebhookURL = fallback.WebhookURL
	}
	if strings.TrimSpace(s.WebhookSecret) == "" {
		s.WebhookSecret = fallback.WebhookSecret
	}
	return s
}

// ToMap converts settings into key/value pairs. Blank values are skipped.
func (s Settings) ToMap() map[string]string {
	values := make(map[string]string, len(SettingKeys))
	for key, value := range map[string]string{
		SettingAPIKey:        s.APIKey,
		SettingShopID:        s.ShopID,
		SettingWebhookURL:    s.WebhookURL,
		SettingWebhookSecret: s.WebhookSecret,
	} {
		if strings.TrimSpace(value) != "" {
			values[key] = strings.TrimSpace(value)
		}
	}
	return values
}

// SettingsFromMap builds Settings from stored key/value pairs.
func SettingsFromMap(values map[string]string) Settings {
	return Settings{
		APIKey:        values[SettingAPIKey],
		ShopID:        values[SettingShopID],
		WebhookURL:    values[SettingWebhookURL],
		WebhookSecret: values[SettingWebhookSecret],
	}
}

// SettingsRepository persists provider settings as key/value rows.
type SettingsRepository interface {
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
	Upsert(ctx context.Context, values map[string]string) error
}
