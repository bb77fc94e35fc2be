package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/observability"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

const reminderSweepBatch = 100

// ReminderConfig tunes reminder scheduling.
type ReminderConfig struct {
	LeadTime      time.Duration
	SweepInterval time.Duration
}

// ReminderService schedules due-date reminders and delivers them as notifications.
type ReminderService interface {
	ReminderScheduler
	ListActive(ctx context.Context, userID uint) ([]dto.ReminderResponse, error)
	DeliverDue(ctx context.Context) (int, error)
	Sweep(ctx context.Context) error
	Run(ctx context.Context)
}

type reminderService struct {
	reminders repository.ReminderRepository
	tasks     repository.TaskRepository
	publisher NotificationPublisher
	cfg       ReminderConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewReminderService constructs the reminder scheduler and sweeper.
func NewReminderService(reminders repository.ReminderRepository, tasks repository.TaskRepository, publisher NotificationPublisher, cfg ReminderConfig, logger zerolog.Logger) ReminderService {
	if cfg.LeadTime <= 0 {
		cfg.LeadTime = 24 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &reminderService{
		reminders: reminders,
		tasks:     tasks,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With().Str("component", "reminder_service").Logger(),
		now:       time.Now,
	}
}

// EnsureTaskReminders creates one reminder per recipient of a task with a future due date.
// Existing reminders are left untouched; the count of newly created rows is returned.
func (s *reminderService) EnsureTaskReminders(ctx context.Context, task models.Task) (int, error) {
	now := s.now().UTC()
	if task.ID == 0 || task.DueDate == nil || task.IsClosed() || !task.DueDate.After(now) {
		return 0, nil
	}

	scheduledAt := task.DueDate.Add(-s.cfg.LeadTime)
	if scheduledAt.Before(now) {
		scheduledAt = now
	}

	created := 0
	for _, userID := range reminderRecipients(task) {
		reminder := models.Reminder{
			UserID:      userID,
			Title:       fmt.Sprintf("%q is due %s", task.Name, task.DueDate.UTC().Format(time.RFC1123)),
			ScheduledAt: scheduledAt,
			IsActive:    true,
		}
		reminder.SetRelated(models.TaskRef(task.ID))

		inserted, err := s.reminders.CreateIfAbsent(ctx, &reminder)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}

	return created, nil
}

func (s *reminderService) ListActive(ctx context.Context, userID uint) ([]dto.ReminderResponse, error) {
	reminders, err := s.reminders.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewReminderResponseSlice(reminders), nil
}

// DeliverDue publishes a reminder notification for every due active reminder, then deactivates it.
func (s *reminderService) DeliverDue(ctx context.Context) (int, error) {
	due, err := s.reminders.ListDue(ctx, s.now().UTC(), reminderSweepBatch)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, reminder := range due {
		if _, err := s.publisher.Publish(ctx, NotificationInput{
			UserID:  reminder.UserID,
			Type:    models.NotificationTypeReminder,
			Message: reminder.Title,
			Related: reminder.Related(),
		}); err != nil {
			s.logger.Warn().Err(err).Uint("reminder_id", reminder.ID).Msg("failed to deliver reminder")
			continue
		}

		if _, err := s.reminders.Deactivate(ctx, reminder.ID); err != nil {
			s.logger.Warn().Err(err).Uint("reminder_id", reminder.ID).Msg("failed to deactivate reminder")
			continue
		}

		delivered++
		observability.RemindersDelivered().Inc()
	}

	return delivered, nil
}

// Sweep schedules reminders for open tasks and delivers the ones that are due.
func (s *reminderService) Sweep(ctx context.Context) error {
	tasks, err := s.tasks.ListOpenDueAfter(ctx, s.now().UTC())
	if err != nil {
		return fmt.Errorf("list open tasks: %w", err)
	}

	for _, task := range tasks {
		if _, err := s.EnsureTaskReminders(ctx, task); err != nil {
			s.logger.Warn().Err(err).Uint("task_id", task.ID).Msg("failed to schedule task reminders")
		}
	}

	delivered, err := s.DeliverDue(ctx)
	if err != nil {
		return fmt.Errorf("deliver reminders: %w", err)
	}
	if delivered > 0 {
		s.logger.Info().Int("delivered", delivered).Msg("reminders delivered")
	}

	return nil
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *reminderService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.cfg.SweepInterval).Msg("reminder sweeper started")
	for {
		if err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("reminder sweep failed")
		}

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reminder sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

func reminderRecipients(task models.Task) []uint {
	recipients := make([]uint, 0, 1)
	seen := map[uint]struct{}{}
	add := func(id uint) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}

	add(task.ResponsibleID)
	if task.Project != nil {
		for _, id := range task.Project.ParticipantIDs() {
			add(id)
		}
	}
	return recipients
}
