package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/observability"
	"github.com/noah-isme/gema-grading-api/pkg/jobs"
)

// EventKind names a workflow transition that may produce notifications or reminders.
type EventKind string

const (
	EventTaskCreated           EventKind = "task.created"
	EventTaskClosed            EventKind = "task.closed"
	EventSubmissionCreated     EventKind = "submission.created"
	EventSubmissionGraded      EventKind = "submission.graded"
	EventSubmissionReturned    EventKind = "submission.returned"
	EventExamSubmissionCreated EventKind = "exam_submission.created"
	EventExamSubmissionGraded  EventKind = "exam_submission.graded"
)

const (
	jobTypeNotification  = "notification.publish"
	jobTypeTaskReminders = "reminders.ensure"
)

// WorkflowEvent is a snapshot of the entities involved in a completed transition.
type WorkflowEvent struct {
	Kind           EventKind
	ActorID        uint
	Task           models.Task
	Submission     models.Submission
	Exam           models.Exam
	ExamSubmission models.ExamSubmission
	// StudentIDs lists distinct students with submissions, used when a task closes.
	StudentIDs []uint
	Reason     string
}

// Dispatcher turns workflow events into side effects. Errors are advisory; callers log them.
type Dispatcher interface {
	Dispatch(ctx context.Context, event WorkflowEvent) error
}

// ReminderScheduler creates due-date reminders for a task.
type ReminderScheduler interface {
	EnsureTaskReminders(ctx context.Context, task models.Task) (int, error)
}

// NotificationDispatcher publishes notifications derived from workflow events, either inline
// or through a retrying job queue.
type NotificationDispatcher struct {
	publisher NotificationPublisher
	reminders ReminderScheduler
	queue     *jobs.Queue
	logger    zerolog.Logger
}

// NewNotificationDispatcher returns a dispatcher that delivers synchronously.
func NewNotificationDispatcher(publisher NotificationPublisher, reminders ReminderScheduler, logger zerolog.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		publisher: publisher,
		reminders: reminders,
		logger:    logger.With().Str("component", "notification_dispatcher").Logger(),
	}
}

// NewQueuedDispatcher returns a dispatcher that delivers on a worker pool with bounded retries.
// The queue must be started before events are dispatched.
func NewQueuedDispatcher(publisher NotificationPublisher, reminders ReminderScheduler, cfg jobs.QueueConfig, logger zerolog.Logger) *NotificationDispatcher {
	d := NewNotificationDispatcher(publisher, reminders, logger)
	cfg.Logger = d.logger
	cfg.OnFailure = func(job jobs.Job, err error) {
		observability.DispatchFailures().WithLabelValues(job.Type).Inc()
		d.logger.Error().Err(err).Str("job_id", job.ID).Str("type", job.Type).Msg("dispatch dropped after retries")
	}
	d.queue = jobs.NewQueue("notifications", d.handle, cfg)
	return d
}

// Start launches the worker pool when the dispatcher is queued.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	if d.queue != nil {
		d.queue.Start(ctx)
	}
}

// Stop drains workers when the dispatcher is queued.
func (d *NotificationDispatcher) Stop() {
	if d.queue != nil {
		d.queue.Stop()
	}
}

// Dispatch fans the event out into one job per notification plus reminder scheduling.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, event WorkflowEvent) error {
	pending := make([]jobs.Job, 0, 4)
	for _, input := range notificationsFor(event) {
		pending = append(pending, jobs.Job{Type: jobTypeNotification, Payload: input})
	}
	if event.Kind == EventTaskCreated && d.reminders != nil {
		pending = append(pending, jobs.Job{Type: jobTypeTaskReminders, Payload: event.Task})
	}

	var errs []error
	for _, job := range pending {
		if d.queue == nil {
			if err := d.handle(ctx, job); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := d.queue.Enqueue(job); err != nil {
			observability.DispatchFailures().WithLabelValues(job.Type).Inc()
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (d *NotificationDispatcher) handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobTypeNotification:
		input, ok := job.Payload.(NotificationInput)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
		}
		if _, err := d.publisher.Publish(ctx, input); err != nil {
			return fmt.Errorf("publish %s notification to user %d: %w", input.Type, input.UserID, err)
		}
		return nil
	case jobTypeTaskReminders:
		task, ok := job.Payload.(models.Task)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
		}
		created, err := d.reminders.EnsureTaskReminders(ctx, task)
		if err != nil {
			return fmt.Errorf("schedule reminders for task %d: %w", task.ID, err)
		}
		d.logger.Debug().Uint("task_id", task.ID).Int("created", created).Msg("task reminders scheduled")
		return nil
	default:
		return fmt.Errorf("unknown dispatch job type %q", job.Type)
	}
}

// dispatchEvent hands the event to the dispatcher and logs failures without surfacing them.
func dispatchEvent(ctx context.Context, dispatcher Dispatcher, logger zerolog.Logger, event WorkflowEvent) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Dispatch(ctx, event); err != nil {
		logger.Warn().Err(err).Str("event", string(event.Kind)).Msg("notification dispatch failed")
	}
}

// notificationsFor derives the recipients and messages for an event.
func notificationsFor(event WorkflowEvent) []NotificationInput {
	switch event.Kind {
	case EventSubmissionCreated:
		task := event.Task
		submission := event.Submission
		ref := models.SubmissionRef(submission.ID)
		message := fmt.Sprintf("New submission for %q (attempt %d)", task.Name, submission.Attempt)

		inputs := make([]NotificationInput, 0, 2)
		if task.TutorID != nil && *task.TutorID != 0 {
			inputs = append(inputs, NotificationInput{UserID: *task.TutorID, Type: models.NotificationTypeSubmission, Message: message, Related: ref})
		}
		responsible := task.ResponsibleID
		isTutor := task.TutorID != nil && *task.TutorID == responsible
		if responsible != 0 && responsible != submission.StudentID && !isTutor {
			inputs = append(inputs, NotificationInput{UserID: responsible, Type: models.NotificationTypeSubmission, Message: message, Related: ref})
		}
		return inputs

	case EventSubmissionGraded:
		submission := event.Submission
		message := fmt.Sprintf("Your submission for %q was graded", event.Task.Name)
		if submission.Grade != nil {
			message = fmt.Sprintf("Your submission for %q was graded: %s", event.Task.Name, formatScore(*submission.Grade))
		}
		return []NotificationInput{{
			UserID:  submission.StudentID,
			Type:    models.NotificationTypeGrade,
			Message: message,
			Related: models.SubmissionRef(submission.ID),
		}}

	case EventSubmissionReturned:
		message := fmt.Sprintf("Your submission for %q was returned for revision", event.Task.Name)
		if event.Reason != "" {
			message += ": " + event.Reason
		}
		return []NotificationInput{{
			UserID:  event.Submission.StudentID,
			Type:    models.NotificationTypeReturned,
			Message: message,
			Related: models.SubmissionRef(event.Submission.ID),
		}}

	case EventTaskClosed:
		message := fmt.Sprintf("Task %q has been closed", event.Task.Name)
		inputs := make([]NotificationInput, 0, len(event.StudentIDs))
		seen := make(map[uint]struct{}, len(event.StudentIDs))
		for _, studentID := range event.StudentIDs {
			if studentID == 0 {
				continue
			}
			if _, ok := seen[studentID]; ok {
				continue
			}
			seen[studentID] = struct{}{}
			inputs = append(inputs, NotificationInput{UserID: studentID, Type: models.NotificationTypeTaskClosed, Message: message, Related: models.TaskRef(event.Task.ID)})
		}
		return inputs

	case EventExamSubmissionCreated:
		if event.Exam.OwnerID == 0 {
			return nil
		}
		return []NotificationInput{{
			UserID:  event.Exam.OwnerID,
			Type:    models.NotificationTypeExamSubmission,
			Message: fmt.Sprintf("New submission for exam %q", event.Exam.Title),
			Related: models.ExamSubmissionRef(event.ExamSubmission.ID),
		}}

	case EventExamSubmissionGraded:
		message := fmt.Sprintf("Your exam %q was graded", event.Exam.Title)
		if event.ExamSubmission.Score != nil {
			message = fmt.Sprintf("Your exam %q was graded: %s", event.Exam.Title, formatScore(*event.ExamSubmission.Score))
		}
		return []NotificationInput{{
			UserID:  event.ExamSubmission.StudentID,
			Type:    models.NotificationTypeExamGrade,
			Message: message,
			Related: models.ExamSubmissionRef(event.ExamSubmission.ID),
		}}
	}

	return nil
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
