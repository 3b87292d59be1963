package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/yusufpr/akrab_bot/internal/service"
	"github.com/yusufpr/akrab_bot/utils"
)

// Scheduler runs the background jobs: keeping the catalog cache warm and
// sweeping purchases whose provider callback never arrived.
type Scheduler struct {
	cron       *cron.Cron
	svc        *service.Service
	sweepAfter time.Duration
	logger     *utils.Logger
}

func NewScheduler(svc *service.Service, sweepAfter time.Duration, logger *utils.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		svc:        svc,
		sweepAfter: sweepAfter,
		logger:     logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.cron.AddFunc("*/5 * * * *", func() {
		if err := s.svc.Catalog().Refresh(ctx); err != nil {
			s.logger.Warnf("[CRON] Catalog refresh failed: %v", err)
		}
	})

	s.cron.AddFunc("*/10 * * * *", func() {
		swept, err := s.svc.SweepStalePurchases(ctx, s.sweepAfter)
		if err != nil {
			s.logger.Errorf("[CRON] Stale purchase sweep failed: %v", err)
			return
		}
		if swept > 0 {
			s.logger.Infof("[CRON] Swept %d stale purchases", swept)
		}
	})

	s.cron.Start()
	s.logger.Info("Scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
