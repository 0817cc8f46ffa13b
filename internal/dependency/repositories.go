package dependency

import (
	"context"
	"fmt"

	"github.com/hilthontt/nodeline/internal/domain"
	memoryRepository "github.com/hilthontt/nodeline/internal/infrastructure/repository"
	"github.com/hilthontt/nodeline/internal/infrastructure/tracing"
	persistenceRepository "github.com/hilthontt/nodeline/internal/persistence/repository"
)

func (c *Container) initRepositories(ctx context.Context) error {
	c.NodeRegistry = memoryRepository.NewNodeRegistry(c.Config.Nodes.SeedCount, capacityPolicy(c.Config.Nodes.MaxNodes))
	c.UserRepo = memoryRepository.NewUserRepository()
	c.MessageRepo = memoryRepository.NewMessageRepository()

	switch c.Config.Activity.Store {
	case "mongo":
		repo := persistenceRepository.NewActivityEventRepository(c.Mongo.Database())
		if err := repo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("failed to ensure activity indexes: %w", err)
		}
		c.ActivityRepo = repo
	default:
		c.ActivityRepo = memoryRepository.NewActivityRepository()
	}

	switch c.Config.AutoReply.Store {
	case "redis":
		c.AutoReplyRepo = persistenceRepository.NewAutoReplyRepository(c.RedisClient, tracing.GetTracer("nodeline/autoreply"))
	default:
		c.AutoReplyRepo = memoryRepository.NewAutoReplyRepository()
	}

	return nil
}

func capacityPolicy(maxNodes int) domain.CapacityPolicy {
	if maxNodes > 0 {
		return domain.Bounded(maxNodes)
	}
	return domain.Unbounded()
}
