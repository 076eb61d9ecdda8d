package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/roastery/backend/internal/domain/provider"
	"github.com/roastery/backend/internal/domain/shared"
)

// MockSettingsRepository is a mock implementation of provider.SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockSettingsRepository) Upsert(ctx context.Context, values map[string]string) error {
	args := m.Called(ctx, values)
	return args.Error(0)
}

func strPtr(s string) *string { return &s }

func TestFulfillmentSettingsService_Credentials(t *testing.T) {
	ctx := context.Background()

	t.Run("stored values win over fallback", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		repo.On("GetMany", mock.Anything, provider.SettingKeys).Return(map[string]string{
			provider.SettingAPIKey: "db-key",
		}, nil)
		svc := NewFulfillmentSettingsService(FulfillmentSettingsServiceConfig{
			Repo:     repo,
			Fallback: provider.Settings{APIKey: "env-key", ShopID: "777"},
		})

		creds, err := svc.Credentials(ctx)
		require.NoError(t, err)
		assert.Equal(t, "db-key", creds.APIKey)
		assert.Equal(t, "777", creds.ShopID)
	})

	t.Run("missing credentials", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		repo.On("GetMany", mock.Anything, provider.SettingKeys).Return(map[string]string{}, nil)
		svc := NewFulfillmentSettingsService(FulfillmentSettingsServiceConfig{Repo: repo})

		_, err := svc.Credentials(ctx)
		assert.ErrorIs(t, err, provider.ErrCredentialsMissing)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		repo.On("GetMany", mock.Anything, provider.SettingKeys).Return(nil, errors.New("db down"))
		svc := NewFulfillmentSettingsService(FulfillmentSettingsServiceConfig{Repo: repo})

		_, err := svc.Credentials(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, provider.ErrCredentialsMissing)
	})
}

func TestFulfillmentSettingsService_RotationAppliesOnNextCall(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSettingsRepository)
	repo.On("GetMany", mock.Anything, provider.SettingKeys).Return(map[string]string{
		provider.SettingAPIKey: "old-key", provider.SettingShopID: "1",
	}, nil).Once()
	repo.On("GetMany", mock.Anything, provider.SettingKeys).Return(map[string]string{
		provider.SettingAPIKey: "new-key", provider.SettingShopID: "1",
	}, nil).Once()
	svc := NewFulfillmentSettingsService(FulfillmentSettingsServiceConfig{Repo: repo})

	first, err := svc.Credentials(ctx)
	require.NoError(t, err)
	second, err := svc.Credentials(ctx)
	require.NoError(t, err)

	assert.Equal(t, "old-key", first.APIKey)
	assert.Equal(t, "new-key", second.APIKey)
}

func TestFulfillmentSettingsService_WebhookSecret(t *testing.T) {
	repo := new(MockSettingsRepository)
	repo.On("GetMany", mock.Anything, provider.SettingKeys).Return(map[string]string{}, nil)
	svc := NewFulfillmentSettingsService(FulfillmentSettingsServiceConfig{
		Repo:     repo,
		Fallback: provider.Settings{WebhookSecret: " from-env-secret "},
	})

	secret, err := svc.WebhookSecret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-env-secret", secret)
}

func TestFulfillmentSettingsService_GetMasks(t *testing.T) {
	repo := new(MockSettingsRepository)
	repo.On("GetMany", mock.Anything, provider.SettingKeys).Return(map[string]string{
		provider.SettingAPIKey:        "eyJ0eXAiOiJKV1QiLCJhbGciOiJSUzI1NiJ9.abcd",
		provider.SettingShopID:        "12345",
		provider.SettingWebhookSecret: "super-secret-value",
	}, nil)
	svc := NewFulfillmentSettingsService(FulfillmentSettingsServiceConfig{Repo: repo})

	view, err := svc.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "********abcd", view.APIKey)
	assert.True(t, view.APIKeyConfigured)
	assert.Equal(t, "12345", view.ShopID)
	assert.True(t, view.WebhookSecretConfigured)
}

func TestFulfillmentSettingsService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("stores provided values", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		repo.On("Upsert", mock.Anything, map[string]string{
			provider.SettingAPIKey: "new-api-key-value",
			provider.SettingShopID: "999",
		}).Return(nil).Once()
		repo.On("GetMany", mock.Anything, provider.SettingKeys).Return(map[string]string{
			provider.SettingAPIKey: "new-api-key-value",
			provider.SettingShopID: "999",
		}, nil)
		svc := NewFulfillmentSettingsService(FulfillmentSettingsServiceConfig{Repo: repo})

		view, err := svc.Update(ctx, UpdateFulfillmentSettingsInput{
			APIKey: strPtr(" new-api-key-value "),
			ShopID: strPtr("999"),
		})
		require.NoError(t, err)
		assert.Equal(t, "999", view.ShopID)
		repo.AssertExpectations(t)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		repo := new(MockSettingsRepository)
		svc := NewFulfillmentSettingsService(FulfillmentSettingsServiceConfig{Repo: repo})

		_, err := svc.Update(ctx, UpdateFulfillmentSettingsInput{WebhookURL: strPtr("not a url")})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_SETTINGS", domainErr.Code)
		var fieldErrs validator.ValidationErrors
		assert.ErrorAs(t, err, &fieldErrs)
		repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "*****", maskSecret("short"))
	assert.Equal(t, "********6789", maskSecret("0123456789"))
}
