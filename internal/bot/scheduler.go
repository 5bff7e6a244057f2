package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/edgard/adviserbot/internal/bot/tasks"
	"github.com/edgard/adviserbot/internal/config"
	"github.com/edgard/adviserbot/internal/conversation"
	apperrors "github.com/edgard/adviserbot/internal/errors"
	"github.com/edgard/adviserbot/internal/profile"
)

// AdviceCreator generates one piece of advice for a profile.
type AdviceCreator interface {
	CreateAdvice(ctx context.Context, p *profile.Profile) (string, error)
}

// AdviceDeps are the collaborators of advice delivery.
type AdviceDeps struct {
	Store     profile.Store
	Generator AdviceCreator
	Sender    conversation.Sender
	Messages  config.MessagesConfig
}

// adviceJob is the live delivery task of one user.
type adviceJob struct {
	id       uuid.UUID
	interval time.Duration
	cancel   context.CancelFunc
}

// Scheduler runs the cron maintenance tasks and one advice delivery job per
// subscribed user on a shared gocron scheduler.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc
	deps      AdviceDeps

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	advice  map[int64]*adviceJob
}

// NewScheduler creates a scheduler on UTC. opts are passed to gocron after
// the defaults, e.g. a fake clock in tests.
func NewScheduler(
	logger *slog.Logger,
	cfg *config.SchedulerConfig,
	taskMap map[string]tasks.ScheduledTaskFunc,
	deps AdviceDeps,
	opts ...gocron.SchedulerOption,
) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = &config.SchedulerConfig{}
	}

	opts = append([]gocron.SchedulerOption{
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(logger.With("component", "gocron")),
	}, opts...)
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		logger:    logger.With("component", "scheduler"),
		cfg:       cfg,
		taskMap:   taskMap,
		deps:      deps,
		ctx:       ctx,
		cancel:    cancel,
		advice:    make(map[int64]*adviceJob),
	}, nil
}

// RegisterTasks adds maintenance tasks. It must be called before Start.
func (s *Scheduler) RegisterTasks(taskMap map[string]tasks.ScheduledTaskFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taskMap == nil {
		s.taskMap = make(map[string]tasks.ScheduledTaskFunc, len(taskMap))
	}
	for name, fn := range taskMap {
		s.taskMap[name] = fn
	}
}

// Start schedules the enabled maintenance tasks and starts ticking. Advice
// jobs added before Start run once it is called.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler is already running")
	}

	scheduledCount := 0
	for taskName, taskConfig := range s.cfg.Tasks {
		if !taskConfig.Enabled {
			s.logger.Info("Skipping disabled task", "task_name", taskName)
			continue
		}

		taskFunc, exists := s.taskMap[taskName]
		if !exists {
			s.logger.Warn("Scheduled task configured but not found in registry, skipping", "task_name", taskName)
			continue
		}

		_, err := s.scheduler.NewJob(
			gocron.CronJob(taskConfig.Schedule, true),
			gocron.NewTask(s.runTask, taskName, taskFunc),
			gocron.WithName(taskName),
			gocron.WithTags("maintenance"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			s.logger.Error("Failed to schedule task", "task_name", taskName, "schedule", taskConfig.Schedule, "error", err)
			continue
		}

		s.logger.Info("Scheduled task", "task_name", taskName, "schedule", taskConfig.Schedule)
		scheduledCount++
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks_scheduled", scheduledCount, "advice_jobs", len(s.advice))

	return nil
}

func (s *Scheduler) runTask(name string, taskFunc tasks.ScheduledTaskFunc) {
	s.logger.Info("Running scheduled task", "task_name", name)
	startTime := time.Now()
	if err := taskFunc(s.ctx); err != nil {
		s.logger.Error("Scheduled task failed", "task_name", name, "error", err)
	}
	s.logger.Info("Finished scheduled task", "task_name", name, "duration", time.Since(startTime))
}

// Stop cancels in-flight advice cycles and waits for running jobs to return.
func (s *Scheduler) Stop() error {
	s.cancel()

	s.mu.Lock()
	running := s.running
	s.running = false
	s.mu.Unlock()

	if !running {
		return nil
	}

	// Not under s.mu: a finishing cycle may still unsubscribe its user.
	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully")
	}

	s.mu.Lock()
	for userID, job := range s.advice {
		job.cancel()
		delete(s.advice, userID)
	}
	s.mu.Unlock()
	return err
}

// Subscribe starts advice delivery for userID: one advice right away, then
// one every 86400/frequency seconds. A user who already has a job keeps it;
// if the frequency changed the job's interval is updated in place.
func (s *Scheduler) Subscribe(ctx context.Context, userID int64) error {
	p, err := s.deps.Store.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if p == nil {
		s.notify(ctx, userID, s.deps.Messages.ProfileNotFound)
		return apperrors.NewProfileNotFound(userID)
	}
	return s.schedule(p, true)
}

// Restore subscribes every persisted profile. It is called at startup since
// jobs do not survive a restart. Restored jobs wait one interval before the
// first delivery so a redeploy does not flood users.
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	profiles, err := s.deps.Store.ListProfiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list profiles: %w", err)
	}

	restored := 0
	for _, p := range profiles {
		if err := s.schedule(p, false); err != nil {
			s.logger.Error("Failed to restore advice job", "user_id", p.UserID, "error", err)
			continue
		}
		restored++
	}

	s.logger.Info("Advice jobs restored", "count", restored)
	return restored, nil
}

func (s *Scheduler) schedule(p *profile.Profile, immediate bool) error {
	userID := p.UserID
	interval := p.Interval()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.advice[userID]; ok {
		if existing.interval == interval {
			s.logger.Debug("Advice job already running", "user_id", userID)
			return nil
		}

		jobCtx, cancel := context.WithCancel(s.ctx)
		_, err := s.scheduler.Update(existing.id,
			gocron.DurationJob(interval),
			gocron.NewTask(func() { s.runCycle(jobCtx, userID) }),
			adviceJobOptions(userID)...,
		)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to update advice job for user %d: %w", userID, err)
		}

		existing.cancel()
		existing.cancel = cancel
		s.logger.Info("Advice interval updated", "user_id", userID, "from", existing.interval, "to", interval)
		existing.interval = interval
		return nil
	}

	opts := adviceJobOptions(userID)
	if immediate {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	jobCtx, cancel := context.WithCancel(s.ctx)
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.runCycle(jobCtx, userID) }),
		opts...,
	)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to schedule advice job for user %d: %w", userID, err)
	}

	s.advice[userID] = &adviceJob{id: job.ID(), interval: interval, cancel: cancel}
	s.logger.Info("Advice job scheduled", "user_id", userID, "interval", interval)
	return nil
}

func adviceJobOptions(userID int64) []gocron.JobOption {
	return []gocron.JobOption{
		gocron.WithName(fmt.Sprintf("advice:%d", userID)),
		gocron.WithTags("advice"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
}

// Unsubscribe stops the user's advice job. It reports whether one existed.
func (s *Scheduler) Unsubscribe(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.advice[userID]
	if !ok {
		return false
	}
	if err := s.scheduler.RemoveJob(job.id); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		s.logger.Error("Failed to remove advice job", "user_id", userID, "error", err)
	}
	job.cancel()
	delete(s.advice, userID)
	s.logger.Info("Advice job removed", "user_id", userID)
	return true
}

// Subscribers is the number of live advice jobs.
func (s *Scheduler) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.advice)
}

// Interval reports the delivery interval of the user's job.
func (s *Scheduler) Interval(userID int64) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.advice[userID]
	if !ok {
		return 0, false
	}
	return job.interval, true
}

// runCycle generates and delivers one advice. The profile is read fresh so
// edits apply to the next cycle. A failed cycle is reported to the user and
// the job keeps running; a missing profile ends the job.
func (s *Scheduler) runCycle(ctx context.Context, userID int64) {
	if ctx.Err() != nil {
		return
	}
	if timeout := s.cfg.AdviceTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	log := s.logger.With("user_id", userID)
	startTime := time.Now()

	p, err := s.deps.Store.GetProfile(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "Skipping advice cycle, profile unavailable", "error", err)
		return
	}
	if p == nil {
		log.WarnContext(ctx, "Profile disappeared, stopping advice job")
		s.notify(ctx, userID, s.deps.Messages.ProfileNotFound)
		s.Unsubscribe(userID)
		return
	}

	text, err := s.deps.Generator.CreateAdvice(ctx, p)
	if err != nil {
		if ctx.Err() != nil && s.ctx.Err() != nil {
			return
		}
		log.ErrorContext(ctx, "Advice generation failed", "error", err, "code", apperrors.Code(err), "duration", time.Since(startTime))
		s.notify(ctx, userID, s.deps.Messages.AdviceFailed)
		return
	}

	if header := s.deps.Messages.AdviceHeader; header != "" {
		text = header + "\n\n" + text
	}
	s.notify(ctx, userID, text)
	log.InfoContext(ctx, "Advice delivered", "duration", time.Since(startTime))
}

func (s *Scheduler) notify(ctx context.Context, userID int64, text string) {
	if err := s.deps.Sender.Send(ctx, userID, conversation.Reply{Text: text}); err != nil {
		s.logger.ErrorContext(ctx, "Failed to deliver message", "user_id", userID, "error", err)
	}
}

var _ conversation.Subscriber = (*Scheduler)(nil)
