package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

type failingRecorder struct {
	mu      sync.Mutex
	actions []string
}

func (r *failingRecorder) Record(_ context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, entry.Action)
	return dto.ActivityResponse{}, errors.New("audit store offline")
}

type failingDispatcher struct {
	mu     sync.Mutex
	events []EventKind
}

func (d *failingDispatcher) Dispatch(_ context.Context, event WorkflowEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event.Kind)
	return errors.New("broker unavailable")
}

func TestWorkflowSurvivesSideEffectFailures(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seedScenario(t)
	ctx := context.Background()

	recorder := &failingRecorder{}
	dispatcher := &failingDispatcher{}
	users := repository.NewUserRepository(f.db)
	projects := repository.NewProjectRepository(f.db)
	validate := validator.New(validator.WithRequiredStructEnabled())

	grading := NewGradingService(f.taskRepo, f.submissionRepo, users, recorder, dispatcher, nil, validate, GradingConfig{MaxGrade: 100}, testLogger())
	tasks := NewTaskService(f.taskRepo, f.submissionRepo, projects, users, recorder, dispatcher, validate, testLogger())

	submission, err := grading.Submit(ctx, 1, 3, dto.SubmissionCreateRequest{Content: "my answer"})
	require.NoError(t, err)
	require.Equal(t, string(models.SubmissionStatusSubmitted), submission.Status)

	graded, err := grading.Grade(ctx, submission.ID, 2, dto.GradeSubmissionRequest{Grade: floatPointer(88), Feedback: "good work"})
	require.NoError(t, err)
	require.Equal(t, string(models.SubmissionStatusGraded), graded.Status)

	closed, err := tasks.CloseTask(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, string(models.TaskStatusClosed), closed.Status)

	stored, err := f.submissionRepo.GetByID(ctx, submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusGraded, stored.Status)
	require.NotNil(t, stored.Grade)
	require.Equal(t, 88.0, *stored.Grade)
	require.NotNil(t, stored.GradedAt)

	task, err := f.taskRepo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusClosed, task.Status)

	require.Equal(t, []string{ActionSubmissionCreated, ActionSubmissionGraded, ActionTaskClosed}, recorder.actions)
	require.Equal(t, []EventKind{EventSubmissionCreated, EventSubmissionGraded, EventTaskClosed}, dispatcher.events)
	require.Empty(t, f.notificationsFor(t, 2, models.NotificationTypeSubmission))
}
