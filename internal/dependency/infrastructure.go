package dependency

import (
	"context"
	"fmt"

	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/infrastructure/messaging"
	"github.com/hilthontt/nodeline/internal/infrastructure/tracing"
	"github.com/hilthontt/nodeline/internal/persistence/db"
	"github.com/hilthontt/nodeline/internal/version"
)

func (c *Container) initInfrastructure(ctx context.Context) error {
	stop, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version.Version,
		Environment:    c.Config.Tracing.Environment,
		Endpoint:       c.Config.Tracing.Endpoint,
		SampleRatio:    c.Config.Tracing.SampleRatio,
	}, c.Config.Tracing.Enabled)
	if err != nil {
		c.Logger.Warn(logging.General, logging.Startup, "tracing disabled", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	} else {
		c.tracingStop = stop
	}

	if c.Config.Activity.Store == "mongo" {
		if err := c.connectMongo(ctx); err != nil {
			return err
		}
	}

	if c.Config.AutoReply.Store == "redis" {
		client, err := db.NewRedisClient(ctx, &db.RedisConfig{
			Addr:     c.Config.Redis.Addr,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		if err != nil {
			return err
		}
		c.RedisClient = client
		c.Logger.Info(logging.Redis, logging.Startup, "connected to redis", map[logging.ExtraKey]any{
			"Addr": c.Config.Redis.Addr,
		})
	}

	if c.Config.RabbitMQ.Enabled {
		rmq, err := messaging.NewRabbitMQ(c.Config.RabbitMQ.URI)
		if err != nil {
			return err
		}
		c.RabbitMQ = rmq
		c.Logger.Info(logging.RabbitMQ, logging.Startup, "connected to rabbitmq", nil)
	}

	return nil
}

func (c *Container) connectMongo(ctx context.Context) error {
	if c.Mongo != nil {
		return nil
	}

	m, err := db.ConnectMongo(ctx, db.MongoConfig{
		URI:      c.Config.Mongo.URI,
		Database: c.Config.Mongo.Database,
		Timeout:  c.Config.Mongo.Timeout,
	})
	if err != nil {
		return fmt.Errorf("mongo: %w", err)
	}

	c.Mongo = m
	c.Logger.Info(logging.MongoDB, logging.Startup, "connected to mongodb", map[logging.ExtraKey]any{
		"Database": m.Database().Name(),
	})
	return nil
}
