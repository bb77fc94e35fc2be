package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
)

func TestStudentDashboardAggregatesLatestAttempts(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seedScenario(t)
	ctx := context.Background()

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, f.taskRepo.Create(ctx, &models.Task{Name: "Overdue worksheet", Status: models.TaskStatusOpen, Priority: models.TaskPriorityHigh, ResponsibleID: 3, DueDate: &past}))

	first, err := f.grading.Submit(ctx, 1, 3, dto.SubmissionCreateRequest{Content: "first try"})
	require.NoError(t, err)
	_, err = f.grading.ReturnSubmission(ctx, first.ID, 2, dto.ReturnSubmissionRequest{Reason: "incomplete"})
	require.NoError(t, err)
	second, err := f.grading.Submit(ctx, 1, 3, dto.SubmissionCreateRequest{Content: "second try"})
	require.NoError(t, err)
	_, err = f.grading.Grade(ctx, second.ID, 2, dto.GradeSubmissionRequest{Grade: floatPointer(90)})
	require.NoError(t, err)

	dashboard := NewStudentDashboardService(f.taskRepo, f.submissionRepo, nil, time.Minute, testLogger())
	response, err := dashboard.GetDashboard(ctx, 3)
	require.NoError(t, err)

	require.Equal(t, 2, response.Summary.TotalTasks)
	require.Equal(t, 1, response.Summary.Graded)
	require.Equal(t, 1, response.Summary.Pending)
	require.Equal(t, 1, response.Summary.Overdue)
	require.Equal(t, 90.0, response.Summary.AverageGrade)
	require.Equal(t, 50.0, response.Summary.CompletionRate)

	require.Len(t, response.Pending, 1)
	require.Equal(t, "Overdue worksheet", response.Pending[0].Name)
	require.True(t, response.Pending[0].Overdue)

	require.Len(t, response.RecentSubmissions, 2)
	require.Equal(t, second.ID, response.RecentSubmissions[0].SubmissionID)
}

func TestStudentDashboardCacheInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newWorkflowFixture(t)
	f.seedScenario(t)
	ctx := context.Background()

	dashboard := NewStudentDashboardService(f.taskRepo, f.submissionRepo, client, time.Minute, testLogger())
	f.grading.(*gradingService).dashboard = dashboard

	empty, err := dashboard.GetDashboard(ctx, 3)
	require.NoError(t, err)
	require.Zero(t, empty.Summary.Submitted)
	require.True(t, mr.Exists(dashboardCacheKey(3)))

	_, err = f.grading.Submit(ctx, 1, 3, dto.SubmissionCreateRequest{Content: "answer"})
	require.NoError(t, err)
	require.False(t, mr.Exists(dashboardCacheKey(3)))

	refreshed, err := dashboard.GetDashboard(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, 1, refreshed.Summary.Submitted)

	mr.FastForward(2 * time.Minute)
	require.False(t, mr.Exists(dashboardCacheKey(3)))
}
