package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hilthontt/nodeline/internal/domain"
)

// messageRepository never drops a message. Delivered direct messages stay
// in the log but are skipped by TakeUnread.
type messageRepository struct {
	messages []*domain.Message // creation order
	mu       *sync.RWMutex
}

func NewMessageRepository() domain.MessageRepository {
	return &messageRepository{
		messages: make([]*domain.Message, 0, 64),
		mu:       &sync.RWMutex{},
	}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	if message == nil {
		return domain.ErrInvalidInput
	}

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	stored := message.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, &stored)
	return nil
}

func (r *messageRepository) TakeUnread(ctx context.Context, ordinal int, occupant string) ([]domain.Message, error) {
	if ordinal < 1 {
		return nil, domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	unread := make([]domain.Message, 0)
	for _, msg := range r.messages {
		if !msg.UnreadBy(ordinal, occupant) {
			continue
		}
		msg.MarkReadBy(ordinal)
		unread = append(unread, msg.Clone())
	}

	sort.SliceStable(unread, func(i, j int) bool {
		return unread[i].CreatedAt.Before(unread[j].CreatedAt)
	})

	return unread, nil
}
