package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/roastery/backend/internal/domain/catalog"
	"github.com/roastery/backend/internal/domain/provider"
	"github.com/roastery/backend/internal/infrastructure/telemetry"
)

// Product outcomes, used in metrics
const (
	outcomeCreated = "created"
	outcomeUpdated = "updated"
	outcomeFailed  = "failed"
)

// SyncAllResult summarises one full catalog import
type SyncAllResult struct {
	RunID     uuid.UUID             `json:"run_id"`
	Status    catalog.SyncStatus    `json:"status"`
	Total     int                   `json:"total"`
	Processed int                   `json:"processed"`
	Created   int                   `json:"created"`
	Updated   int                   `json:"updated"`
	Failed    []catalog.SyncFailure `json:"failed"`
}

// SyncOneResult is the local product after a single refresh
type SyncOneResult struct {
	ProductID         uuid.UUID       `json:"product_id"`
	ExternalProductID string          `json:"external_product_id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	InStock           bool            `json:"in_stock"`
	Created           bool            `json:"created"`
}

// CatalogSync imports provider products into the storefront catalog. Each
// provider product maps to exactly one local row keyed by external id, so a
// rerun updates in place.
type CatalogSync struct {
	products    catalog.ProductRepository
	runs        catalog.SyncRunRepository
	provider    provider.CatalogProvider
	credentials provider.CredentialsSource
	metrics     *telemetry.FulfillmentMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// CatalogSyncConfig contains dependencies for CatalogSync
type CatalogSyncConfig struct {
	Products    catalog.ProductRepository
	Runs        catalog.SyncRunRepository
	Provider    provider.CatalogProvider
	Credentials provider.CredentialsSource
	Metrics     *telemetry.FulfillmentMetrics
	Logger      *zap.Logger
}

// NewCatalogSync creates a new CatalogSync
func NewCatalogSync(cfg CatalogSyncConfig) *CatalogSync {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogSync{
		products:    cfg.Products,
		runs:        cfg.Runs,
		provider:    cfg.Provider,
		credentials: cfg.Credentials,
		metrics:     cfg.Metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// SyncAll lists every provider product and upserts it. A product that cannot
// be mapped or written is skipped and reported; it never aborts the run. Errors
// are returned when the listing cannot be fetched or when the run is cut short
// by cancellation or a lost database connection, which is saved as FAILED.
func (s *CatalogSync) SyncAll(ctx context.Context) (result *SyncAllResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog", "sync_all")
	defer span.End()
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
	}()

	creds, err := s.credentials.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	listed, err := s.provider.ListProducts(ctx, creds)
	if err != nil {
		s.logger.Error("Failed to list provider products", zap.Error(err))
		return nil, err
	}

	run := catalog.NewSyncRun(s.now())
	run.Total = len(listed)

	var upsertErr error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("catalog_sync_all"), func(ctx context.Context) {
		upsertErr = s.upsertAll(ctx, listed, run)
	})
	if upsertErr != nil {
		run.Abort(s.now())
		s.saveRun(ctx, run)
		s.logger.Error("Catalog sync aborted",
			zap.String("run_id", run.ID.String()),
			zap.Int("processed", run.Processed),
			zap.Int("total", run.Total),
			zap.Error(upsertErr),
		)
		return nil, upsertErr
	}

	run.Finish(s.now())
	s.saveRun(ctx, run)

	telemetry.SetAttribute(span, "processed", run.Processed)
	s.logger.Info("Catalog sync finished",
		zap.String("status", string(run.Status)),
		zap.Int("total", run.Total),
		zap.Int("processed", run.Processed),
		zap.Int("created", run.Created),
		zap.Int("updated", run.Updated),
		zap.Int("failed", len(run.Failures)),
	)

	failed := run.Failures
	if failed == nil {
		failed = []catalog.SyncFailure{}
	}
	return &SyncAllResult{
		RunID:     run.ID,
		Status:    run.Status,
		Total:     run.Total,
		Processed: run.Processed,
		Created:   run.Created,
		Updated:   run.Updated,
		Failed:    failed,
	}, nil
}

func (s *CatalogSync) saveRun(ctx context.Context, run *catalog.SyncRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Save(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("Failed to save catalog sync run", zap.String("run_id", run.ID.String()), zap.Error(err))
	}
}

// upsertAll applies every listing to run. Per-product errors are recorded on
// run; only errors that would fail every remaining product stop the loop.
func (s *CatalogSync) upsertAll(ctx context.Context, listed []provider.Product, run *catalog.SyncRun) error {
	for i := range listed {
		if err := ctx.Err(); err != nil {
			return err
		}
		created, err := s.upsert(ctx, &listed[i])
		if err != nil {
			run.RecordFailure(listed[i].ID, err)
			if isBatchError(ctx, err) {
				return err
			}
			s.metrics.RecordCatalogProduct(ctx, outcomeFailed)
			s.logger.Warn("Skipping provider product",
				zap.String("external_product_id", listed[i].ID),
				zap.Error(err),
			)
			continue
		}
		run.Processed++
		if created {
			run.Created++
		} else {
			run.Updated++
		}
	}
	return nil
}

// SyncOne refreshes a single provider product.
func (s *CatalogSync) SyncOne(ctx context.Context, externalProductID string) (result *SyncOneResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog", "sync_one",
		telemetry.WithAttribute("external_product_id", externalProductID),
	)
	defer span.End()
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
	}()

	if strings.TrimSpace(externalProductID) == "" {
		return nil, catalog.ErrMissingExternalID
	}

	creds, err := s.credentials.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	listing, err := s.provider.GetProduct(ctx, creds, externalProductID)
	if err != nil {
		return nil, err
	}

	created, err := s.upsert(ctx, listing)
	if err != nil {
		if isDataError(err) {
			s.metrics.RecordCatalogProduct(ctx, outcomeFailed)
		}
		return nil, err
	}

	product, err := s.products.FindByExternalID(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	return &SyncOneResult{
		ProductID:         product.ID,
		ExternalProductID: product.ExternalProductID,
		Name:              product.Name,
		Price:             product.Price,
		InStock:           product.InStock,
		Created:           created,
	}, nil
}

// ListRuns returns the most recent sync runs, newest first. Without a run
// store the history is empty.
func (s *CatalogSync) ListRuns(ctx context.Context, limit int) ([]catalog.SyncRun, error) {
	if s.runs == nil {
		return []catalog.SyncRun{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.runs.ListRecent(ctx, limit)
}

// upsert writes one listing and reports whether a new row was created
func (s *CatalogSync) upsert(ctx context.Context, listing *provider.Product) (bool, error) {
	fields, err := syncedFields(listing)
	if err != nil {
		return false, err
	}
	now := s.now()

	existing, err := s.products.FindByExternalID(ctx, fields.ExternalProductID)
	switch {
	case err == nil:
		if err := existing.ApplySync(fields, now); err != nil {
			return false, err
		}
		if err := s.products.UpdateSynced(ctx, existing); err != nil {
			return false, fmt.Errorf("failed to update product %s: %w", fields.ExternalProductID, err)
		}
		s.metrics.RecordCatalogProduct(ctx, outcomeUpdated)
		return false, nil
	case errors.Is(err, catalog.ErrProductNotFound):
		product, err := catalog.NewSyncedProduct(fields, now)
		if err != nil {
			return false, err
		}
		if err := s.products.CreateSynced(ctx, product); err != nil {
			return false, fmt.Errorf("failed to create product %s: %w", fields.ExternalProductID, err)
		}
		s.metrics.RecordCatalogProduct(ctx, outcomeCreated)
		return true, nil
	default:
		return false, fmt.Errorf("failed to look up product %s: %w", fields.ExternalProductID, err)
	}
}

// syncedFields derives the catalog values from a provider listing
func syncedFields(p *provider.Product) (catalog.SyncedFields, error) {
	if p.DecodeErr != nil {
		return catalog.SyncedFields{}, fmt.Errorf("%w: %v", catalog.ErrMalformedListing, p.DecodeErr)
	}
	if len(p.Variants) == 0 {
		return catalog.SyncedFields{}, fmt.Errorf("%w: no variants", catalog.ErrMalformedListing)
	}
	cents, ok := lowestPrice(p.Variants)
	if !ok || cents <= 0 {
		return catalog.SyncedFields{}, fmt.Errorf("%w: got %d cents", catalog.ErrInvalidPrice, cents)
	}
	return catalog.SyncedFields{
		ExternalProductID: p.ID,
		Name:              p.Title,
		Description:       p.Description,
		Price:             catalog.PriceFromMinorUnits(cents),
		ImageURL:          primaryImage(p.Images),
		Visible:           p.Visible,
		Snapshot:          string(p.Raw),
	}, nil
}

// lowestPrice returns the cheapest enabled variant, or the cheapest variant
// when none is enabled
func lowestPrice(variants []provider.ProductVariant) (int64, bool) {
	var (
		enabledMin, anyMin int64
		hasEnabled, hasAny bool
	)
	for _, v := range variants {
		if !hasAny || v.Price < anyMin {
			anyMin, hasAny = v.Price, true
		}
		if v.IsEnabled && (!hasEnabled || v.Price < enabledMin) {
			enabledMin, hasEnabled = v.Price, true
		}
	}
	if hasEnabled {
		return enabledMin, true
	}
	return anyMin, hasAny
}

func primaryImage(images []provider.ProductImage) string {
	for _, img := range images {
		if img.IsDefault {
			return img.Src
		}
	}
	if len(images) > 0 {
		return images[0].Src
	}
	return ""
}

func isDataError(err error) bool {
	return errors.Is(err, catalog.ErrMalformedListing) ||
		errors.Is(err, catalog.ErrInvalidPrice) ||
		errors.Is(err, catalog.ErrInvalidProductName) ||
		errors.Is(err, catalog.ErrMissingExternalID) ||
		errors.Is(err, catalog.ErrFieldTooLong)
}

// isBatchError reports whether err ends the whole run rather than one product.
func isBatchError(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
