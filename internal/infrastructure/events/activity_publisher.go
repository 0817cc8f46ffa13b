package events

import (
	"context"
	"encoding/json"

	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/contracts"
	"github.com/hilthontt/nodeline/internal/infrastructure/messaging"
)

// MessagePublisher is satisfied by *messaging.RabbitMQ.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, routingKey string, message contracts.AmqpMessage) error
}

type ActivityPublisher struct {
	publisher MessagePublisher
}

func NewActivityPublisher(publisher MessagePublisher) *ActivityPublisher {
	return &ActivityPublisher{
		publisher: publisher,
	}
}

func (p *ActivityPublisher) PublishActivity(ctx context.Context, event domain.ActivityEvent) error {
	data, err := json.Marshal(messaging.NewActivityEventData(event))
	if err != nil {
		return err
	}

	return p.publisher.PublishMessage(ctx, contracts.RoutingKeyFor(string(event.Action)), contracts.AmqpMessage{
		OwnerID: event.UserID,
		Data:    data,
	})
}
