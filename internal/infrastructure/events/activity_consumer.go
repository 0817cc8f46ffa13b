package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/contracts"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

// ActivityConsumer copies published activity events into an archive store.
type ActivityConsumer struct {
	rabbitmq *messaging.RabbitMQ
	archive  domain.ActivityRepository
	logger   logging.Logger
}

func NewActivityConsumer(rabbitmq *messaging.RabbitMQ, archive domain.ActivityRepository, logger logging.Logger) *ActivityConsumer {
	return &ActivityConsumer{
		rabbitmq: rabbitmq,
		archive:  archive,
		logger:   logger,
	}
}

func (c *ActivityConsumer) Listen(ctx context.Context) error {
	return c.rabbitmq.ConsumeMessages(ctx, messaging.AuditQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		return c.Handle(ctx, msg.Body)
	})
}

// Handle decodes one delivery body and archives the event. Errors dead-letter the delivery.
func (c *ActivityConsumer) Handle(ctx context.Context, body []byte) error {
	event, err := DecodeActivity(body)
	if err != nil {
		c.logger.Warn(logging.RabbitMQ, logging.Consume, "failed to decode activity event", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return err
	}

	if err := c.archive.Append(ctx, &event); err != nil {
		c.logger.Error(logging.RabbitMQ, logging.Consume, "failed to archive activity event", map[logging.ExtraKey]any{
			logging.NodeOrdinal:  event.Node,
			logging.Action:       string(event.Action),
			logging.ErrorMessage: err.Error(),
		})
		return err
	}

	c.logger.Debug(logging.RabbitMQ, logging.Consume, "activity event archived", map[logging.ExtraKey]any{
		logging.NodeOrdinal: event.Node,
		logging.UserID:      event.UserID,
		logging.Action:      string(event.Action),
	})
	return nil
}

func DecodeActivity(body []byte) (domain.ActivityEvent, error) {
	var message contracts.AmqpMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return domain.ActivityEvent{}, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	var payload messaging.ActivityEventData
	if err := json.Unmarshal(message.Data, &payload); err != nil {
		return domain.ActivityEvent{}, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return payload.ToDomain()
}
