package catalog

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mugFields() SyncedFields {
	return SyncedFields{
		ExternalProductID: "prod-mug",
		Name:              "Roastery Mug",
		Description:       "11oz ceramic",
		Price:             PriceFromMinorUnits(1599),
		ImageURL:          "https://images.example/mug.png",
		Visible:           true,
		Snapshot:          `{"id":"prod-mug"}`,
	}
}

func TestPriceFromMinorUnits(t *testing.T) {
	assert.True(t, decimal.RequireFromString("15.99").Equal(PriceFromMinorUnits(1599)))
	assert.True(t, decimal.RequireFromString("0.05").Equal(PriceFromMinorUnits(5)))
	assert.True(t, decimal.RequireFromString("20").Equal(PriceFromMinorUnits(2000)))
}

func TestNewSyncedProduct(t *testing.T) {
	now := time.Now()
	p, err := NewSyncedProduct(mugFields(), now)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, CategoryMerchandise, p.Category)
	assert.Equal(t, "prod-mug", p.ExternalProductID)
	assert.True(t, p.IsExternal())
	assert.True(t, p.InStock)
	require.NotNil(t, p.LastSyncedAt)
	assert.Equal(t, now, *p.LastSyncedAt)
}

func TestNewSyncedProduct_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SyncedFields)
		want   error
	}{
		{"missing external id", func(f *SyncedFields) { f.ExternalProductID = "" }, ErrMissingExternalID},
		{"missing name", func(f *SyncedFields) { f.Name = " " }, ErrInvalidProductName},
		{"zero price", func(f *SyncedFields) { f.Price = decimal.Zero }, ErrInvalidPrice},
		{"negative price", func(f *SyncedFields) { f.Price = decimal.NewFromInt(-1) }, ErrInvalidPrice},
		{"price overflows column", func(f *SyncedFields) { f.Price = PriceFromMinorUnits(1_000_000_000_000) }, ErrInvalidPrice},
		{"long name", func(f *SyncedFields) { f.Name = strings.Repeat("x", MaxNameLength+1) }, ErrFieldTooLong},
		{"long external id", func(f *SyncedFields) { f.ExternalProductID = strings.Repeat("a", MaxExternalIDLength+1) }, ErrFieldTooLong},
		{"long image url", func(f *SyncedFields) { f.ImageURL = "https://images.example/" + strings.Repeat("a", MaxImageURLLength) }, ErrFieldTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mugFields()
			tt.mutate(&f)
			_, err := NewSyncedProduct(f, time.Now())
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestProduct_ApplySyncPreservesLocalFields(t *testing.T) {
	p, err := NewSyncedProduct(mugFields(), time.Now())
	require.NoError(t, err)
	p.Category = "gifts"
	id := p.ID

	f := mugFields()
	f.Name = "Roastery Mug v2"
	f.Price = PriceFromMinorUnits(1299)
	f.Visible = false

	require.NoError(t, p.ApplySync(f, time.Now()))
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "gifts", p.Category)
	assert.Equal(t, "Roastery Mug v2", p.Name)
	assert.True(t, decimal.RequireFromString("12.99").Equal(p.Price))
	assert.False(t, p.InStock)

	other := mugFields()
	other.ExternalProductID = "prod-tee"
	assert.ErrorIs(t, p.ApplySync(other, time.Now()), ErrMalformedListing)
}

func TestSyncRun_Finish(t *testing.T) {
	run := NewSyncRun(time.Now())
	run.Processed = 3
	run.Finish(time.Now())
	assert.Equal(t, SyncStatusSuccess, run.Status)

	run = NewSyncRun(time.Now())
	run.Processed = 2
	run.RecordFailure("prod-bad", ErrInvalidPrice)
	run.Finish(time.Now())
	assert.Equal(t, SyncStatusPartial, run.Status)
	require.Len(t, run.Failures, 1)
	assert.Equal(t, "prod-bad", run.Failures[0].ExternalProductID)

	run = NewSyncRun(time.Now())
	run.RecordFailure("prod-bad", ErrInvalidPrice)
	run.Finish(time.Now())
	assert.Equal(t, SyncStatusFailed, run.Status)
	assert.True(t, run.Status.IsValid())
}

func TestSyncedFields_ValidateAtColumnLimits(t *testing.T) {
	f := mugFields()
	f.Name = strings.Repeat("é", MaxNameLength)
	f.ExternalProductID = strings.Repeat("a", MaxExternalIDLength)
	f.ImageURL = strings.Repeat("u", MaxImageURLLength)
	f.Price = PriceFromMinorUnits(999_999_999_999)

	assert.NoError(t, f.Validate())
}
