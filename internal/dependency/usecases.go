package dependency

import (
	activityUseCase "github.com/hilthontt/nodeline/internal/application/usecases/activity"
	autoReplyUseCase "github.com/hilthontt/nodeline/internal/application/usecases/autoreply"
	messagingUseCase "github.com/hilthontt/nodeline/internal/application/usecases/messaging"
	reaperUseCase "github.com/hilthontt/nodeline/internal/application/usecases/reaper"
	sessionUseCase "github.com/hilthontt/nodeline/internal/application/usecases/session"
	"github.com/hilthontt/nodeline/internal/infrastructure/events"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
)

func (c *Container) initUseCases() {
	var publisher activityUseCase.EventPublisher
	if c.RabbitMQ != nil {
		publisher = events.NewActivityPublisher(c.RabbitMQ)
	}

	c.ActivityUC = activityUseCase.NewUseCase(c.ActivityRepo, publisher, c.Metrics, c.Logger, c.Clock)
	c.AutoReplyUC = autoReplyUseCase.NewUseCase(c.AutoReplyRepo, c.Logger, c.Clock)
	c.SessionUC = sessionUseCase.NewUseCase(
		c.NodeRegistry,
		c.UserRepo,
		c.ActivityUC,
		c.AutoReplyUC,
		c.Metrics,
		c.Logger,
		c.Clock,
		sessionUseCase.Options{
			AcquireRetries: c.Config.Nodes.AcquireRetries,
			Live:           c.WSCore,
		},
	)
	c.ReaperUC = reaperUseCase.NewUseCase(c.NodeRegistry, c.SessionUC, c.Metrics, c.Logger, c.Clock)
	c.MessagingUC = messagingUseCase.NewUseCase(
		c.NodeRegistry,
		c.MessageRepo,
		c.AutoReplyUC,
		c.WSCore,
		c.Metrics,
		c.Logger,
		c.Clock,
		c.Config.Messages.MaxBodyLength,
	)

	c.Logger.Info(logging.General, logging.Startup, "use cases initialized", nil)
}
