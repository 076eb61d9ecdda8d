package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository is the persistence port for catalog products.
type ProductRepository interface {
	// FindByID returns ErrProductNotFound when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByExternalID returns ErrProductNotFound when absent.
	FindByExternalID(ctx context.Context, externalID string) (*Product, error)

	// CreateSynced inserts an imported product. If a row with the same external
	// id appeared concurrently, that row's provider-owned fields are updated
	// instead and product.ID is set to the existing id.
	CreateSynced(ctx context.Context, product *Product) error

	// UpdateSynced writes only the provider-owned fields of an existing product.
	UpdateSynced(ctx context.Context, product *Product) error
}
