package worker

import (
	"context"

	"painel/internal/amqp"
	"painel/internal/log"
)

// Invalidator drops a cached dataset.
type Invalidator interface {
	Invalidate()
}

// Consumer delivers refresh notifications until ctx is done.
type Consumer interface {
	ConsumeDatasetRefreshed(ctx context.Context, handler func(context.Context, *amqp.DatasetRefreshedMessage) error) error
}

// RefreshListener invalidates the server's dataset cache whenever the
// importer announces a new snapshot.
type RefreshListener struct {
	cache  Invalidator
	logger *log.Logger
}

func NewRefreshListener(cache Invalidator, logger *log.Logger) *RefreshListener {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &RefreshListener{cache: cache, logger: logger.WithComponent(log.ComponentAMQP)}
}

// Handle processes one notification.
func (l *RefreshListener) Handle(ctx context.Context, msg *amqp.DatasetRefreshedMessage) error {
	l.cache.Invalidate()
	l.logger.InfoContext(ctx, "Dataset cache invalidated",
		log.FieldOperation, log.OpInvalidate,
		log.FieldMessageID, msg.ID,
		log.FieldSource, msg.Source,
		log.FieldRows, msg.TotalRows())
	return nil
}

// Listen consumes notifications until ctx is cancelled.
func (l *RefreshListener) Listen(ctx context.Context, consumer Consumer) error {
	return consumer.ConsumeDatasetRefreshed(ctx, l.Handle)
}
