// Package scheduler runs the server's periodic jobs on gocron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotInitialized = errors.New("scheduler not initialized")
	ErrEmptyJobName   = errors.New("job name is required")
	ErrEmptyCronExpr  = errors.New("cron expression is required")
	ErrNilTask        = errors.New("job task is required")
)

const defaultJobTimeout = time.Minute

// Task is one run of a job. The context carries the job logger and the run deadline.
type Task func(ctx context.Context) error

type JobSpec struct {
	Name    string
	Cron    string
	Timeout time.Duration
	Task    Task
}

func (j JobSpec) validate() error {
	switch {
	case strings.TrimSpace(j.Name) == "":
		return ErrEmptyJobName
	case strings.TrimSpace(j.Cron) == "":
		return ErrEmptyCronExpr
	case j.Task == nil:
		return ErrNilTask
	}
	return nil
}

type Service struct {
	cron  gocron.Scheduler
	clock clockwork.Clock

	stopOnce sync.Once
	stopErr  error
}

func onPanic(jobID uuid.UUID, jobName string, recovered any) {
	log.Error().
		Str("job_id", jobID.String()).
		Str("job_name", jobName).
		Str("panic", fmt.Sprint(recovered)).
		Msg("Scheduled job panicked")
}

// New builds a stopped scheduler. A nil clock means wall-clock time.
func New(clock clockwork.Clock) (*Service, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	cron, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(gocron.AfterJobRunsWithPanic(onPanic)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Service{cron: cron, clock: clock}, nil
}

func (s *Service) Start() {
	if s == nil {
		return
	}
	log.Info().Int("jobs", len(s.cron.Jobs())).Msg("Scheduler starting")
	s.cron.Start()
}

// Stop waits for running jobs and is safe to call more than once.
func (s *Service) Stop() error {
	if s == nil {
		return ErrNotInitialized
	}
	s.stopOnce.Do(func() {
		log.Info().Msg("Scheduler stopping")
		s.stopErr = s.cron.Shutdown()
	})
	return s.stopErr
}

// Register adds a cron job. Runs of one job never overlap; a run still going when the
// next tick fires makes the scheduler skip that tick.
func (s *Service) Register(spec JobSpec) (gocron.Job, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if spec.Timeout <= 0 {
		spec.Timeout = defaultJobTimeout
	}

	job, err := s.cron.NewJob(
		gocron.CronJob(spec.Cron, false),
		gocron.NewTask(s.run, spec),
		gocron.WithName(spec.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("register job %s: %w", spec.Name, err)
	}
	log.Info().Str("job_name", spec.Name).Str("cron", spec.Cron).Msg("Scheduled job registered")
	return job, nil
}

func (s *Service) run(spec JobSpec) {
	logger := log.With().Str("job_name", spec.Name).Logger()
	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background()), spec.Timeout)
	defer cancel()

	started := s.clock.Now()
	if err := spec.Task(ctx); err != nil {
		logger.Error().Err(err).Dur("elapsed", s.clock.Since(started)).Msg("Scheduled job failed")
		return
	}
	logger.Debug().Dur("elapsed", s.clock.Since(started)).Msg("Scheduled job finished")
}

func (s *Service) Jobs() []gocron.Job {
	if s == nil {
		return nil
	}
	return s.cron.Jobs()
}
