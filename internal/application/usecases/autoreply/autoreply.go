package autoreply

import (
	"context"
	"errors"
	"strings"

	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
)

type UseCase interface {
	// Get returns the reply text when the user has an enabled auto-reply.
	Get(ctx context.Context, userID string) (string, bool, error)
	Config(ctx context.Context, userID string) (domain.AutoReplyConfig, error)
	Set(ctx context.Context, userID string, enabled bool, message string) (domain.AutoReplyConfig, error)
	Remove(ctx context.Context, userID string) error
}

type autoReplyUseCase struct {
	repository domain.AutoReplyRepository
	logger     logging.Logger
	clock      domain.Clock
}

func NewUseCase(repository domain.AutoReplyRepository, logger logging.Logger, clock domain.Clock) UseCase {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &autoReplyUseCase{
		repository: repository,
		logger:     logger,
		clock:      clock,
	}
}

func (uc *autoReplyUseCase) Get(ctx context.Context, userID string) (string, bool, error) {
	cfg, err := uc.repository.Get(ctx, userID)
	if errors.Is(err, domain.ErrAutoReplyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !cfg.Enabled || cfg.Message == "" {
		return "", false, nil
	}
	return cfg.Message, true, nil
}

func (uc *autoReplyUseCase) Config(ctx context.Context, userID string) (domain.AutoReplyConfig, error) {
	if userID == "" {
		return domain.AutoReplyConfig{}, domain.NewValidationError("userId", "this field is required")
	}
	return uc.repository.Get(ctx, userID)
}

func (uc *autoReplyUseCase) Set(ctx context.Context, userID string, enabled bool, message string) (domain.AutoReplyConfig, error) {
	cfg := domain.AutoReplyConfig{
		UserID:    strings.TrimSpace(userID),
		Enabled:   enabled,
		Message:   strings.TrimSpace(message),
		UpdatedAt: uc.clock.Now(),
	}
	if err := cfg.Validate(); err != nil {
		return domain.AutoReplyConfig{}, err
	}

	if err := uc.repository.Upsert(ctx, cfg); err != nil {
		return domain.AutoReplyConfig{}, err
	}

	uc.logger.Info(logging.Messaging, logging.AutoReply, "auto-reply updated", map[logging.ExtraKey]any{
		logging.UserID: cfg.UserID,
		"Enabled":      cfg.Enabled,
	})

	return cfg, nil
}

func (uc *autoReplyUseCase) Remove(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.NewValidationError("userId", "this field is required")
	}
	return uc.repository.Delete(ctx, userID)
}
