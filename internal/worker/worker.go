package worker

import (
	"context"
	"log"

	"storefront/internal/broker"
	"storefront/internal/service"
)

// OrderEventWorker consumes order events into the order history
type OrderEventWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewOrderEventWorker creates a new order event worker
func NewOrderEventWorker(consumer *broker.Consumer, history *service.HistoryService) *OrderEventWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderEvent(history.RecordEvent)

	return &OrderEventWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start blocks consuming events until ctx is cancelled
func (w *OrderEventWorker) Start(ctx context.Context) error {
	log.Println("Starting order event worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *OrderEventWorker) Stop() error {
	log.Println("Stopping order event worker...")
	return w.consumer.Close()
}
