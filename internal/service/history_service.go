package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// HistoryService records consumed order events into the order history
type HistoryService struct {
	repo   store.TxRepository
	logger *zap.Logger
}

func NewHistoryService(repo store.TxRepository) *HistoryService {
	return &HistoryService{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

// RecordEvent appends event to its order's history exactly once. Events for
// orders that no longer exist are marked processed and dropped.
func (s *HistoryService) RecordEvent(ctx context.Context, event *models.OrderEvent) error {
	ctx, span := util.StartSpan(ctx, "HistoryService.RecordEvent")
	defer span.End()

	result := "recorded"
	err := s.repo.InTx(ctx, func(r store.Repository) error {
		processed, err := r.IsEventProcessed(ctx, event.EventID)
		if err != nil {
			return fmt.Errorf("failed to check event: %w", err)
		}
		if processed {
			result = "duplicate"
			return nil
		}

		_, err = r.GetOrderByID(ctx, event.OrderID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			result = "orphaned"
		case err != nil:
			return err
		default:
			entry := &models.OrderHistoryEntry{
				OrderID:       event.OrderID,
				EventID:       event.EventID,
				EventType:     event.EventType,
				Status:        event.Status,
				PaymentStatus: event.PaymentStatus,
				OccurredAt:    event.Timestamp,
			}
			if err := r.AppendOrderHistory(ctx, entry); err != nil {
				return fmt.Errorf("failed to append order history: %w", err)
			}
		}

		return r.MarkEventProcessed(ctx, event.EventID, event.EventType)
	})
	if err != nil {
		util.EventsConsumedTotal.WithLabelValues(event.EventType, "error").Inc()
		return util.RecordError(span, err)
	}

	util.EventsConsumedTotal.WithLabelValues(event.EventType, result).Inc()
	if result != "recorded" {
		s.logger.Info("Skipped order event",
			zap.String("event_id", event.EventID),
			zap.String("reason", result))
	}
	return nil
}
