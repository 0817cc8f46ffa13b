package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/hilthontt/nodeline/internal/application/usecases/reaper"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
)

type ReaperJob struct {
	reaper   reaper.UseCase
	logger   logging.Logger
	interval time.Duration
	timeout  time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewReaperJob(reaper reaper.UseCase, logger logging.Logger, interval, timeout time.Duration) *ReaperJob {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReaperJob{
		reaper:   reaper,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
		stopChan: make(chan struct{}),
	}
}

func (j *ReaperJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info(logging.Pool, logging.Startup, "reaper job started", map[logging.ExtraKey]any{
		"Interval":       j.interval.String(),
		logging.Duration: j.timeout.String(),
	})

	for {
		select {
		case <-ticker.C:
			j.runSweep(ctx)
		case <-j.stopChan:
			j.logger.Info(logging.Pool, logging.Shutdown, "reaper job stopped", nil)
			return
		case <-ctx.Done():
			j.logger.Info(logging.Pool, logging.Shutdown, "reaper job context cancelled", nil)
			return
		}
	}
}

func (j *ReaperJob) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
}

func (j *ReaperJob) runSweep(ctx context.Context) {
	startTime := time.Now()

	reclaimed, err := j.reaper.Sweep(ctx, j.timeout)
	if err != nil {
		j.logger.Error(logging.Pool, logging.Sweep, "reaper sweep finished with errors", map[logging.ExtraKey]any{
			logging.Count:        reclaimed,
			logging.Latency:      time.Since(startTime).String(),
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	j.logger.Debug(logging.Pool, logging.Sweep, "reaper sweep completed", map[logging.ExtraKey]any{
		logging.Count:   reclaimed,
		logging.Latency: time.Since(startTime).String(),
	})
}
