package domain

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxAutoReplyLength = 160

type AutoReplyConfig struct {
	UserID    string    `json:"userId"`
	Enabled   bool      `json:"enabled"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c AutoReplyConfig) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return NewValidationError("userId", "this field is required")
	}
	if c.Enabled && strings.TrimSpace(c.Message) == "" {
		return NewValidationError("message", "required when auto-reply is enabled")
	}
	if utf8.RuneCountInString(c.Message) > MaxAutoReplyLength {
		return NewValidationError("message", "must be no more than 160 characters")
	}
	return nil
}

type AutoReplyRepository interface {
	Get(ctx context.Context, userID string) (AutoReplyConfig, error)
	Upsert(ctx context.Context, config AutoReplyConfig) error
	Delete(ctx context.Context, userID string) error
}
