package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nilemart/backend/internal/config"
	"github.com/nilemart/backend/internal/event"
	"github.com/nilemart/backend/internal/messaging"
	"github.com/nilemart/backend/internal/worker"
)

var workerTracer = otel.Tracer("github.com/nilemart/backend/worker/order")

// Module registers the order event consumer.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewEventHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewEventHandler consumes the order event stream. Creation and capture
// events stand in for customer notification; cancellations are logged for
// the ops trail.
func NewEventHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var env event.Envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		span.SetAttributes(attribute.String("event.type", env.Type))

		switch env.Type {
		case event.TypeOrderCreated:
			logger.Info("order placed",
				zap.Int64("order_id", env.OrderID),
				zap.String("number", env.OrderNumber),
			)
		case event.TypeOrderCancelled:
			logger.Info("order cancelled",
				zap.Int64("order_id", env.OrderID),
				zap.String("number", env.OrderNumber),
			)
		case event.TypePaymentCaptured:
			logger.Info("payment captured",
				zap.Int64("order_id", env.OrderID),
				zap.String("provider", env.Provider),
				zap.String("provider_ref", env.ProviderRef),
				zap.String("amount", env.Amount.String()),
				zap.String("currency", env.Currency),
			)
		case event.TypeOrderUpdated:
			logger.Debug("order status updated",
				zap.Int64("order_id", env.OrderID),
				zap.String("status", string(env.Status)),
			)
		default:
			logger.Warn("unknown event type", zap.String("type", env.Type))
		}

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
