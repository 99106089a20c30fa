package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/metno-forecast/norwegianweather/internal/weather"
)

// Updater runs one forecast update cycle.
type Updater interface {
	Update(ctx context.Context) error
}

// Scheduler periodically runs the forecast update cycle.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Updater
	interval  time.Duration
	log       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(service Updater, interval time.Duration, log *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		interval:  interval,
		log:       log.With("component", "scheduler"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the update job and starts the underlying scheduler. The
// first run happens immediately. Runs never overlap: a run that is due while
// the previous one is still going is skipped.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.run)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.log.Info("scheduler started", "interval", s.interval)
	return nil
}

func (s *Scheduler) run() {
	s.log.Debug("running forecast update job")
	err := s.service.Update(s.ctx)
	switch {
	case err == nil:
	case errors.Is(err, weather.ErrUpdateInProgress):
		s.log.Debug("previous update still running, skipping")
	default:
		s.log.Error("forecast update failed", "error", err)
	}
}

// Stop cancels a running update and stops future runs.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
