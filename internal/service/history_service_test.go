package service

import (
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEventOnce(t *testing.T) {
	f := newOrderFixture(t, OrderOptions{})
	order := f.place(t)
	_, err := f.orders.UpdateStatus(ctx, order.ID, models.OrderStatusProcessing)
	require.NoError(t, err)

	history := NewHistoryService(f.repo)
	for _, event := range f.publisher.events {
		require.NoError(t, history.RecordEvent(ctx, event))
	}
	// redelivery
	for _, event := range f.publisher.events {
		require.NoError(t, history.RecordEvent(ctx, event))
	}

	entries, err := f.orders.History(ctx, f.user, order.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.EventTypeOrderPlaced, entries[0].EventType)
	assert.Equal(t, models.OrderStatusPending, entries[0].Status)
	assert.Equal(t, models.EventTypeOrderStatusChanged, entries[1].EventType)
	assert.Equal(t, models.OrderStatusProcessing, entries[1].Status)

	stranger := seedUser(t, f.repo, models.RoleUser)
	_, err = f.orders.History(ctx, stranger, order.ID)
	assert.Error(t, err)
}

func TestRecordEventForMissingOrder(t *testing.T) {
	f := newOrderFixture(t, OrderOptions{})
	history := NewHistoryService(f.repo)

	event := &models.OrderEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-x", EventType: models.EventTypeOrderPlaced, Timestamp: time.Now()},
		OrderID:   404,
	}
	require.NoError(t, history.RecordEvent(ctx, event))

	processed, err := f.repo.IsEventProcessed(ctx, "evt-x")
	require.NoError(t, err)
	assert.True(t, processed)
}
