package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roastery/backend/internal/domain/fulfillment"
)

// ShippingRecordStore records shipments idempotently. The first values recorded
// for a (order, tracking number) pair win; later observations are no-ops.
type ShippingRecordStore struct {
	repo   fulfillment.ShippingRecordRepository
	logger *zap.Logger
}

// NewShippingRecordStore creates a new ShippingRecordStore
func NewShippingRecordStore(repo fulfillment.ShippingRecordRepository, logger *zap.Logger) *ShippingRecordStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShippingRecordStore{repo: repo, logger: logger}
}

// Upsert returns the canonical record for info.TrackingNumber on orderID,
// inserting it if this is the first observation. created reports whether a
// row was inserted by this call.
func (s *ShippingRecordStore) Upsert(ctx context.Context, orderID uuid.UUID, info fulfillment.ShippingInfo) (record *fulfillment.ShippingRecord, created bool, err error) {
	candidate, err := fulfillment.NewShippingRecord(orderID, info)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.repo.FindByOrderAndTracking(ctx, orderID, candidate.TrackingNumber)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, fulfillment.ErrShippingRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up shipping record: %w", err)
	}

	inserted, err := s.repo.InsertIfAbsent(ctx, candidate)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert shipping record: %w", err)
	}
	if inserted {
		s.logger.Info("Shipping record created",
			zap.String("order_id", orderID.String()),
			zap.String("carrier", candidate.Carrier),
			zap.String("tracking_number", candidate.TrackingNumber),
		)
		return candidate, true, nil
	}

	// Another channel recorded the same shipment between the lookup and the insert.
	existing, err = s.repo.FindByOrderAndTracking(ctx, orderID, candidate.TrackingNumber)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reload shipping record: %w", err)
	}
	return existing, false, nil
}

// List returns every shipment recorded for orderID
func (s *ShippingRecordStore) List(ctx context.Context, orderID uuid.UUID) ([]fulfillment.ShippingRecord, error) {
	return s.repo.ListByOrder(ctx, orderID)
}
