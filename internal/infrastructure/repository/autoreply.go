package repository

import (
	"context"
	"sync"

	"github.com/hilthontt/nodeline/internal/domain"
)

type autoReplyRepository struct {
	configs map[string]domain.AutoReplyConfig // userID -> config
	mu      *sync.RWMutex
}

func NewAutoReplyRepository() domain.AutoReplyRepository {
	return &autoReplyRepository{
		configs: make(map[string]domain.AutoReplyConfig),
		mu:      &sync.RWMutex{},
	}
}

func (r *autoReplyRepository) Get(ctx context.Context, userID string) (domain.AutoReplyConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[userID]
	if !ok {
		return domain.AutoReplyConfig{}, domain.ErrAutoReplyNotFound
	}
	return cfg, nil
}

func (r *autoReplyRepository) Upsert(ctx context.Context, config domain.AutoReplyConfig) error {
	if config.UserID == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[config.UserID] = config
	return nil
}

func (r *autoReplyRepository) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.configs, userID)
	return nil
}
