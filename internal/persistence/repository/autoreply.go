package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const autoReplyKeyPrefix = "nodeline:autoreply:"

type autoReplyRepository struct {
	client *redis.Client
	tracer trace.Tracer
}

func NewAutoReplyRepository(client *redis.Client, tracer trace.Tracer) domain.AutoReplyRepository {
	return &autoReplyRepository{
		client: client,
		tracer: tracer,
	}
}

func autoReplyKey(userID string) string {
	return autoReplyKeyPrefix + userID
}

func (r *autoReplyRepository) Get(ctx context.Context, userID string) (domain.AutoReplyConfig, error) {
	ctx, span := r.tracer.Start(ctx, "autoReplyRepository.Get")
	defer span.End()

	span.SetAttributes(attribute.String("user.id", userID))

	data, err := r.client.Get(ctx, autoReplyKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("autoreply.found", false))
		return domain.AutoReplyConfig{}, domain.ErrAutoReplyNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get auto-reply")
		return domain.AutoReplyConfig{}, err
	}

	var cfg domain.AutoReplyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		span.RecordError(err)
		return domain.AutoReplyConfig{}, fmt.Errorf("failed to decode auto-reply for %s: %w", userID, err)
	}
	return cfg, nil
}

func (r *autoReplyRepository) Upsert(ctx context.Context, config domain.AutoReplyConfig) error {
	ctx, span := r.tracer.Start(ctx, "autoReplyRepository.Upsert")
	defer span.End()

	if config.UserID == "" {
		return domain.ErrInvalidInput
	}
	span.SetAttributes(attribute.String("user.id", config.UserID))

	data, err := json.Marshal(config)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, autoReplyKey(config.UserID), data, 0).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to store auto-reply")
		return err
	}

	span.SetStatus(codes.Ok, "auto-reply stored")
	return nil
}

func (r *autoReplyRepository) Delete(ctx context.Context, userID string) error {
	ctx, span := r.tracer.Start(ctx, "autoReplyRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("user.id", userID))

	if err := r.client.Del(ctx, autoReplyKey(userID)).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete auto-reply")
		return err
	}
	return nil
}
