package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/roastery/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CategoryMerchandise is the category given to products imported from the
// fulfillment provider.
const CategoryMerchandise = "merchandise"

var (
	ErrProductNotFound    = errors.New("catalog: product not found")
	ErrInvalidProductName = errors.New("catalog: product name is required")
	ErrInvalidPrice       = errors.New("catalog: product price must be positive")
	ErrMissingExternalID  = errors.New("catalog: external product id is required")
	ErrMalformedListing   = errors.New("catalog: malformed provider listing")
	ErrFieldTooLong       = errors.New("catalog: field exceeds column length")
)

// Column limits of the products table.
const (
	MaxNameLength       = 255
	MaxExternalIDLength = 64
	MaxImageURLLength   = 1024
)

// maxPrice is the first value a decimal(12,2) column cannot hold.
var maxPrice = decimal.New(1, 10)

// Product is a storefront catalog entry. ExternalProductID is empty for
// locally authored products; otherwise it identifies the provider product this
// row represents, and no other row may carry the same value.
type Product struct {
	shared.BaseEntity
	Name              string
	Description       string
	Price             decimal.Decimal
	ImageURL          string
	Category          string
	InStock           bool
	ExternalProductID string
	ProviderSnapshot  string
	LastSyncedAt      *time.Time
}

// IsExternal reports whether the product was imported from the provider.
func (p *Product) IsExternal() bool {
	return p.ExternalProductID != ""
}

// SyncedFields are the values the provider owns for an imported product.
type SyncedFields struct {
	ExternalProductID string
	Name              string
	Description       string
	Price             decimal.Decimal
	ImageURL          string
	Visible           bool
	Snapshot          string
}

// Validate checks the fields before they reach storage.
func (f SyncedFields) Validate() error {
	if strings.TrimSpace(f.ExternalProductID) == "" {
		return ErrMissingExternalID
	}
	if strings.TrimSpace(f.Name) == "" {
		return ErrInvalidProductName
	}
	if !f.Price.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidPrice, f.Price)
	}
	if f.Price.GreaterThanOrEqual(maxPrice) {
		return fmt.Errorf("%w: %s exceeds %s", ErrInvalidPrice, f.Price, maxPrice)
	}
	if err := checkLength("external id", strings.TrimSpace(f.ExternalProductID), MaxExternalIDLength); err != nil {
		return err
	}
	if err := checkLength("name", strings.TrimSpace(f.Name), MaxNameLength); err != nil {
		return err
	}
	return checkLength("image url", f.ImageURL, MaxImageURLLength)
}

func checkLength(field, value string, limit int) error {
	if n := utf8.RuneCountInString(value); n > limit {
		return fmt.Errorf("%w: %s has %d characters, limit %d", ErrFieldTooLong, field, n, limit)
	}
	return nil
}

// NewSyncedProduct creates the local row for a provider product.
func NewSyncedProduct(f SyncedFields, syncedAt time.Time) (*Product, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	p := &Product{
		BaseEntity:        shared.NewBaseEntity(),
		Category:          CategoryMerchandise,
		ExternalProductID: strings.TrimSpace(f.ExternalProductID),
	}
	p.setSynced(f, syncedAt)
	return p, nil
}

// ApplySync overwrites the provider-owned fields in place. Identity, category
// and other local fields are left untouched.
func (p *Product) ApplySync(f SyncedFields, syncedAt time.Time) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if p.ExternalProductID != strings.TrimSpace(f.ExternalProductID) {
		return fmt.Errorf("%w: listing %s applied to product %s", ErrMalformedListing, f.ExternalProductID, p.ExternalProductID)
	}
	p.setSynced(f, syncedAt)
	p.UpdatedAt = syncedAt
	return nil
}

func (p *Product) setSynced(f SyncedFields, syncedAt time.Time) {
	p.Name = strings.TrimSpace(f.Name)
	p.Description = f.Description
	p.Price = f.Price
	p.ImageURL = f.ImageURL
	p.InStock = f.Visible
	p.ProviderSnapshot = f.Snapshot
	synced := syncedAt
	p.LastSyncedAt = &synced
}

// PriceFromMinorUnits converts integer cents to the catalog's decimal major units.
func PriceFromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
