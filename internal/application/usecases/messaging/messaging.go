package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/infrastructure/metrics"
	"github.com/hilthontt/nodeline/internal/infrastructure/tracing"
	"github.com/hilthontt/nodeline/internal/infrastructure/validate"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultMaxBodyLength = 500

var tracer = tracing.GetTracer("nodeline/messaging")

type SendRequest struct {
	FromNode int
	ToNode   int
	ToUser   string
	Body     string
	Page     bool
}

// Delivery is the outcome of a send. AutoReply is shown to the sender only and never stored.
type Delivery struct {
	Message   domain.Message
	AutoReply string
}

// Notifier pushes a stored message to live subscribers. It must not block.
type Notifier interface {
	Notify(message domain.Message)
}

// AutoReplies is the lookup side of the auto-reply directory.
type AutoReplies interface {
	Get(ctx context.Context, userID string) (string, bool, error)
}

type UseCase interface {
	Send(ctx context.Context, req SendRequest) (Delivery, error)
	Broadcast(ctx context.Context, fromNode int, body string) (Delivery, error)
	Page(ctx context.Context, fromNode int, fromUser, toUser, body string) (Delivery, error)
	UnreadFor(ctx context.Context, ordinal int) ([]domain.Message, error)
}

type messagingUseCase struct {
	registry     domain.NodeRegistry
	repository   domain.MessageRepository
	autoReplies  AutoReplies
	notifier     Notifier
	metrics      *metrics.Metrics
	logger       logging.Logger
	clock        domain.Clock
	validateBody validate.Validator
}

func NewUseCase(
	registry domain.NodeRegistry,
	repository domain.MessageRepository,
	autoReplies AutoReplies,
	notifier Notifier,
	metrics *metrics.Metrics,
	logger logging.Logger,
	clock domain.Clock,
	maxBodyLength int,
) UseCase {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if maxBodyLength <= 0 {
		maxBodyLength = DefaultMaxBodyLength
	}
	return &messagingUseCase{
		registry:     registry,
		repository:   repository,
		autoReplies:  autoReplies,
		notifier:     notifier,
		metrics:      metrics,
		logger:       logger,
		clock:        clock,
		validateBody: validate.Compose(validate.Required(), validate.MaxRunes(maxBodyLength)),
	}
}

func (uc *messagingUseCase) Send(ctx context.Context, req SendRequest) (Delivery, error) {
	ctx, span := tracer.Start(ctx, "messaging.Send")
	defer span.End()

	body := strings.TrimSpace(req.Body)
	if err := uc.validateBody(body); err != nil {
		return Delivery{}, domain.NewValidationError("body", err.Error())
	}

	sender, err := uc.registry.Get(ctx, req.FromNode)
	if err != nil {
		return Delivery{}, err
	}
	if !sender.IsOccupied() {
		return Delivery{}, fmt.Errorf("sender node %d: %w", req.FromNode, domain.ErrNodeUnoccupied)
	}

	to, toUser, err := uc.resolve(ctx, req)
	if err != nil {
		span.RecordError(err)
		return Delivery{}, err
	}
	span.SetAttributes(
		attribute.Int("node.from", sender.Ordinal),
		attribute.String("target.kind", string(to.Kind())),
	)

	msg := domain.NewMessage(sender.Ordinal, sender.Occupant, to, toUser, body, req.Page, uc.clock.Now())
	if err := uc.repository.Create(ctx, msg); err != nil {
		return Delivery{}, fmt.Errorf("failed to store message: %w", err)
	}

	stored := msg.Clone()
	if uc.notifier != nil {
		uc.notifier.Notify(stored)
	}
	uc.metrics.MessageSent(kindOf(stored))

	delivery := Delivery{Message: stored}
	if toUser != "" && uc.autoReplies != nil {
		reply, ok, err := uc.autoReplies.Get(ctx, toUser)
		if err != nil {
			uc.logger.Warn(logging.Messaging, logging.AutoReply, "auto-reply lookup failed", map[logging.ExtraKey]any{
				logging.UserID:       toUser,
				logging.ErrorMessage: err.Error(),
			})
		} else if ok {
			delivery.AutoReply = reply
		}
	}

	uc.logger.Debug(logging.Messaging, logging.Send, "message stored", map[logging.ExtraKey]any{
		logging.NodeOrdinal: sender.Ordinal,
		"Target":            string(to.Kind()),
		"Page":              req.Page,
	})

	return delivery, nil
}

// resolve picks the target: an explicit node wins, then a user id, else broadcast.
func (uc *messagingUseCase) resolve(ctx context.Context, req SendRequest) (domain.Target, string, error) {
	switch {
	case req.ToNode != 0:
		target, err := uc.registry.Get(ctx, req.ToNode)
		if err != nil {
			return domain.Target{}, "", err
		}
		if req.Page && !target.IsOccupied() {
			return domain.Target{}, "", fmt.Errorf("node %d: %w", req.ToNode, domain.ErrRecipientOffline)
		}
		return domain.Direct(target.Ordinal), target.Occupant, nil

	case req.ToUser != "":
		toUser := strings.TrimSpace(req.ToUser)
		node, online, err := uc.registry.FindByOccupant(ctx, toUser)
		if err != nil {
			return domain.Target{}, "", err
		}
		if !online {
			if req.Page {
				return domain.Target{}, "", fmt.Errorf("user %s: %w", toUser, domain.ErrRecipientOffline)
			}
			// Kept for the user's next session.
			return domain.Direct(0), toUser, nil
		}
		return domain.Direct(node.Ordinal), toUser, nil

	default:
		if req.Page {
			return domain.Target{}, "", domain.NewValidationError("toUser", "a page needs a recipient")
		}
		return domain.Broadcast(), "", nil
	}
}

func (uc *messagingUseCase) Broadcast(ctx context.Context, fromNode int, body string) (Delivery, error) {
	return uc.Send(ctx, SendRequest{FromNode: fromNode, Body: body})
}

func (uc *messagingUseCase) Page(ctx context.Context, fromNode int, fromUser, toUser, body string) (Delivery, error) {
	if strings.TrimSpace(toUser) == "" {
		return Delivery{}, domain.NewValidationError("toUser", "this field is required")
	}
	if fromUser != "" {
		sender, err := uc.registry.Get(ctx, fromNode)
		if err != nil {
			return Delivery{}, err
		}
		if sender.Occupant != fromUser {
			return Delivery{}, domain.NewValidationError("fromUser", fmt.Sprintf("does not occupy node %d", fromNode))
		}
	}
	return uc.Send(ctx, SendRequest{FromNode: fromNode, ToUser: toUser, Body: body, Page: true})
}

// UnreadFor returns and marks read the messages pending for the node's current occupant.
func (uc *messagingUseCase) UnreadFor(ctx context.Context, ordinal int) ([]domain.Message, error) {
	node, err := uc.registry.Get(ctx, ordinal)
	if err != nil {
		return nil, err
	}
	if !node.IsOccupied() {
		return nil, fmt.Errorf("node %d: %w", ordinal, domain.ErrNodeUnoccupied)
	}

	messages, err := uc.repository.TakeUnread(ctx, ordinal, node.Occupant)
	if err != nil {
		return nil, err
	}

	if len(messages) > 0 {
		uc.logger.Debug(logging.Messaging, logging.Delivery, "unread messages fetched", map[logging.ExtraKey]any{
			logging.NodeOrdinal: ordinal,
			logging.Count:       len(messages),
		})
	}
	return messages, nil
}

func kindOf(msg domain.Message) string {
	switch {
	case msg.Page:
		return "page"
	case msg.To.IsBroadcast():
		return "broadcast"
	default:
		return "direct"
	}
}
