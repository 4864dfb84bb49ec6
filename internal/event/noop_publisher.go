package event

import (
	"context"
	"log/slog"
)

// NoopPublisher is wired when events are disabled in configuration.
type NoopPublisher struct {
	logger *slog.Logger
}

func NewNoopPublisher(logger *slog.Logger) EventPublisher {
	return &NoopPublisher{logger: logger.With("component", "NoopPublisher")}
}

func (p *NoopPublisher) PublishCustomerCreated(ctx context.Context, event CustomerCreatedEvent) error {
	p.logger.DebugContext(ctx, "Event publishing disabled, dropping event.", "routingKey", routingKeyCustomerCreated)
	return nil
}

func (p *NoopPublisher) PublishLoanDecided(ctx context.Context, event LoanDecidedEvent) error {
	p.logger.DebugContext(ctx, "Event publishing disabled, dropping event.", "routingKey", routingKeyLoanDecided)
	return nil
}

func (p *NoopPublisher) PublishAccountTransaction(ctx context.Context, event AccountTransactionEvent) error {
	p.logger.DebugContext(ctx, "Event publishing disabled, dropping event.", "routingKey", routingKeyAccountTransaction)
	return nil
}
