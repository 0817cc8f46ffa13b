package dependency

import (
	"context"
	"errors"
	"fmt"

	activityUseCase "github.com/hilthontt/nodeline/internal/application/usecases/activity"
	autoReplyUseCase "github.com/hilthontt/nodeline/internal/application/usecases/autoreply"
	messagingUseCase "github.com/hilthontt/nodeline/internal/application/usecases/messaging"
	reaperUseCase "github.com/hilthontt/nodeline/internal/application/usecases/reaper"
	sessionUseCase "github.com/hilthontt/nodeline/internal/application/usecases/session"
	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/configs"
	"github.com/hilthontt/nodeline/internal/infrastructure/jobs"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/infrastructure/messaging"
	"github.com/hilthontt/nodeline/internal/infrastructure/metrics"
	"github.com/hilthontt/nodeline/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/nodeline/internal/infrastructure/tracing"
	"github.com/hilthontt/nodeline/internal/infrastructure/ws"
	"github.com/hilthontt/nodeline/internal/persistence/db"
	"github.com/hilthontt/nodeline/internal/presentation/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const serviceName = "nodeline"

// Container wires every component of the service from one Config.
type Container struct {
	Config *configs.Config
	Logger logging.Logger
	Clock  domain.Clock

	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Mongo       *db.Mongo
	RedisClient *redis.Client
	RabbitMQ    *messaging.RabbitMQ
	tracingStop tracing.ShutdownFunc

	NodeRegistry  domain.NodeRegistry
	UserRepo      domain.UserRepository
	MessageRepo   domain.MessageRepository
	ActivityRepo  domain.ActivityRepository
	AutoReplyRepo domain.AutoReplyRepository

	WSCore *ws.Core

	ActivityUC  activityUseCase.UseCase
	AutoReplyUC autoReplyUseCase.UseCase
	SessionUC   sessionUseCase.UseCase
	ReaperUC    reaperUseCase.UseCase
	MessagingUC messagingUseCase.UseCase

	ReaperJob    *jobs.ReaperJob
	LimiterStore ratelimiter.BucketStore
	RateLimiter  ratelimiter.Limiter
	App          *api.Application
}

func NewContainer(ctx context.Context, cfg *configs.Config) (*Container, error) {
	c := &Container{
		Config: cfg,
		Clock:  domain.SystemClock{},
	}

	c.Logger = logging.NewLogger(&logging.LoggerConfig{
		FilePath: cfg.Logger.FilePath,
		Encoding: cfg.Logger.Encoding,
		Level:    cfg.Logger.Level,
		Logger:   cfg.Logger.Logger,
	})
	c.Logger.Info(logging.General, logging.Startup, "initializing nodeline dependencies", nil)

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = metrics.New(c.Registry)

	if err := c.initInfrastructure(ctx); err != nil {
		c.Close(context.Background())
		return nil, fmt.Errorf("error initializing infrastructure: %w", err)
	}

	if err := c.initRepositories(ctx); err != nil {
		c.Close(context.Background())
		return nil, fmt.Errorf("error initializing repositories: %w", err)
	}

	c.initWebSocket()
	c.initUseCases()
	c.initPresentation()

	c.Logger.Info(logging.General, logging.Startup, "all dependencies initialized", nil)

	return c, nil
}

// Start launches the background goroutines: websocket core and reaper.
func (c *Container) Start(ctx context.Context) {
	go c.WSCore.Run(ctx)

	c.ReaperJob = jobs.NewReaperJob(c.ReaperUC, c.Logger, c.Config.Reaper.Interval, c.Config.Reaper.Timeout())
	go c.ReaperJob.Start(ctx)
}

func (c *Container) Close(ctx context.Context) error {
	var errs []error

	if c.ReaperJob != nil {
		c.ReaperJob.Stop()
	}
	if c.LimiterStore != nil {
		errs = append(errs, c.LimiterStore.Close())
	}
	if c.RabbitMQ != nil {
		c.RabbitMQ.Close()
	}
	if c.RedisClient != nil {
		errs = append(errs, c.RedisClient.Close())
	}
	if c.Mongo != nil {
		errs = append(errs, c.Mongo.Close(ctx))
	}
	if c.tracingStop != nil {
		errs = append(errs, c.tracingStop(ctx))
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	return errors.Join(errs...)
}
