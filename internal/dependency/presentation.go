package dependency

import (
	"context"
	"errors"

	"github.com/hilthontt/nodeline/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/nodeline/internal/presentation/api"
	activityHandler "github.com/hilthontt/nodeline/internal/presentation/handler/activity"
	autoRepliesHandler "github.com/hilthontt/nodeline/internal/presentation/handler/autoreplies"
	healthHandler "github.com/hilthontt/nodeline/internal/presentation/handler/health"
	messagesHandler "github.com/hilthontt/nodeline/internal/presentation/handler/messages"
	nodesHandler "github.com/hilthontt/nodeline/internal/presentation/handler/nodes"
	sessionsHandler "github.com/hilthontt/nodeline/internal/presentation/handler/sessions"
)

func (c *Container) initPresentation() {
	c.LimiterStore = ratelimiter.NewInMemory()
	if c.RedisClient != nil {
		c.LimiterStore = ratelimiter.NewRedis(c.RedisClient)
	}
	c.RateLimiter = ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: c.Config.RateLimiter.MaxRatePerSecond,
		MaxBurst:         c.Config.RateLimiter.MaxBurst,
		Store:            c.LimiterStore,
		BucketTTL:        c.Config.RateLimiter.CacheTTL,
		SourceHeaderKey:  c.Config.RateLimiter.SourceHeaderKey,
	})

	handlers := api.Handlers{
		Sessions:    sessionsHandler.NewHandler(c.SessionUC, c.Logger),
		Nodes:       nodesHandler.NewHandler(c.SessionUC, c.Logger),
		Messages:    messagesHandler.NewHandler(c.MessagingUC, c.SessionUC, c.WSCore, c.Logger),
		AutoReplies: autoRepliesHandler.NewHandler(c.AutoReplyUC, c.Logger),
		Activity:    activityHandler.NewHandler(c.ActivityUC, c.Logger),
		Health:      healthHandler.NewHandler(c.probes()),
	}

	c.App = api.NewApplication(*c.Config, handlers, c.Logger, c.Metrics, c.Registry, c.RateLimiter)
}

var errClosed = errors.New("connection closed")

func (c *Container) probes() map[string]healthHandler.Probe {
	probes := map[string]healthHandler.Probe{}
	if c.Mongo != nil {
		probes["mongodb"] = c.Mongo.Ping
	}
	if c.RedisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return c.RedisClient.Ping(ctx).Err()
		}
	}
	if c.RabbitMQ != nil {
		probes["rabbitmq"] = func(ctx context.Context) error {
			if c.RabbitMQ.IsClosed() {
				return errClosed
			}
			return nil
		}
	}
	return probes
}
