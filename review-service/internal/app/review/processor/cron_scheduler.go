package processor

import (
	"context"

	"jobber/pkg/logger"
	"jobber/review-service/internal/app/review/service"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CronScheduler периодически переотправляет в Kafka события,
// которые не удалось опубликовать при создании отзыва
type CronScheduler struct {
	cron      *cron.Cron
	reviewSvc service.ReviewServiceInterface
	log       zerolog.Logger
}

func NewCronScheduler(reviewSvc service.ReviewServiceInterface) *CronScheduler {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	return &CronScheduler{
		cron:      c,
		reviewSvc: reviewSvc,
		log:       logger.With().Str("component", "event-relay").Logger(),
	}
}

func (s *CronScheduler) Start(ctx context.Context, schedule string) error {
	s.log.Info().Str("schedule", schedule).Msg("Starting review event relay")

	if _, err := s.cron.AddFunc(schedule, func() { s.relay(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *CronScheduler) relay(ctx context.Context) {
	relayed, err := s.reviewSvc.RelayPendingEvents(ctx)
	if err != nil {
		s.log.Error().Err(err).Int("relayed", relayed).Msg("Failed to relay pending review events")
		return
	}
	if relayed > 0 {
		s.log.Info().Int("relayed", relayed).Msg("Pending review events relayed")
	}
}

func (s *CronScheduler) Stop() {
	s.log.Info().Msg("Stopping review event relay...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Review event relay stopped")
}

func (s *CronScheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}
