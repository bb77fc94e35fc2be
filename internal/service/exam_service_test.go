package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	appErrors "github.com/noah-isme/gema-grading-api/pkg/errors"
)

func createPublishedExam(t *testing.T, f *workflowFixture) dto.ExamResponse {
	t.Helper()
	ctx := context.Background()

	exam, err := f.exams.CreateExam(ctx, 2, dto.ExamCreateRequest{
		Title:    "Midterm",
		MaxScore: 50,
		Questions: []dto.ExamQuestionRequest{
			{Prompt: "2 + 2 = ?", Kind: "choice", CorrectAnswer: "4", Points: 5},
			{Prompt: "Explain the quadratic formula", Kind: "text"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, string(models.ExamStatusDraft), exam.Status)
	require.Len(t, exam.Questions, 2)

	published, err := f.exams.PublishExam(ctx, exam.ID, 2)
	require.NoError(t, err)
	require.Equal(t, string(models.ExamStatusPublished), published.Status)

	fetched, err := f.exams.GetExam(ctx, exam.ID)
	require.NoError(t, err)
	return fetched
}

func TestExamSubmitAndGrade(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seedScenario(t)
	ctx := context.Background()
	exam := createPublishedExam(t, f)

	choiceID := strconv.FormatUint(uint64(exam.Questions[0].ID), 10)
	textID := strconv.FormatUint(uint64(exam.Questions[1].ID), 10)

	submission, err := f.exams.SubmitExam(ctx, exam.ID, 3, dto.ExamSubmitRequest{Answers: map[string]string{
		choiceID: " 4 ",
		textID:   "it solves ax^2 + bx + c = 0",
	}})
	require.NoError(t, err)
	require.Equal(t, 5.0, submission.AutoScore)
	require.Equal(t, "4", submission.Answers[choiceID])
	require.Nil(t, submission.Score)

	ownerNotifications := f.notificationsFor(t, 2, models.NotificationTypeExamSubmission)
	require.Len(t, ownerNotifications, 1)
	require.Equal(t, models.ExamSubmissionRef(submission.ID), ownerNotifications[0].Related())

	_, err = f.exams.GradeExamSubmission(ctx, submission.ID, 3, dto.ExamGradeRequest{Score: floatPointer(40)})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.exams.GradeExamSubmission(ctx, submission.ID, 2, dto.ExamGradeRequest{Score: floatPointer(51)})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	graded, err := f.exams.GradeExamSubmission(ctx, submission.ID, 2, dto.ExamGradeRequest{Score: floatPointer(42), Review: "clear reasoning"})
	require.NoError(t, err)
	require.Equal(t, string(models.SubmissionStatusGraded), graded.Status)
	require.Equal(t, 42.0, *graded.Score)
	require.Equal(t, uint(2), graded.Version)

	stale := uint(1)
	_, err = f.exams.GradeExamSubmission(ctx, submission.ID, 2, dto.ExamGradeRequest{Score: floatPointer(45), ExpectedVersion: &stale})
	require.ErrorIs(t, err, appErrors.ErrConflict)

	require.Len(t, f.notificationsFor(t, 3, models.NotificationTypeExamGrade), 1)
	require.Equal(t, []string{ActionExamSubmissionCreated, ActionExamSubmissionGraded}, f.activityActions(t, "exam_submission", submission.ID))

	_, err = f.exams.GradeExamSubmission(ctx, 999, 2, dto.ExamGradeRequest{Score: floatPointer(1)})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestExamSubmitRejectsUnknownQuestions(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seedScenario(t)
	exam := createPublishedExam(t, f)

	_, err := f.exams.SubmitExam(context.Background(), exam.ID, 3, dto.ExamSubmitRequest{Answers: map[string]string{"9999": "4"}})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.exams.SubmitExam(context.Background(), exam.ID, 3, dto.ExamSubmitRequest{Answers: map[string]string{"first": "4"}})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestExamLifecycle(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seedScenario(t)
	ctx := context.Background()

	draft, err := f.exams.CreateExam(ctx, 2, dto.ExamCreateRequest{
		Title:     "Quiz",
		Questions: []dto.ExamQuestionRequest{{Prompt: "Name a prime", Kind: "text"}},
	})
	require.NoError(t, err)
	require.Equal(t, 100.0, draft.MaxScore)

	questionID := strconv.FormatUint(uint64(draft.Questions[0].ID), 10)
	_, err = f.exams.SubmitExam(ctx, draft.ID, 3, dto.ExamSubmitRequest{Answers: map[string]string{questionID: "7"}})
	require.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = f.exams.PublishExam(ctx, draft.ID, 3)
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.exams.PublishExam(ctx, draft.ID, 2)
	require.NoError(t, err)

	closed, err := f.exams.CloseExam(ctx, draft.ID, 2)
	require.NoError(t, err)
	require.Equal(t, string(models.ExamStatusClosed), closed.Status)

	_, err = f.exams.CloseExam(ctx, draft.ID, 2)
	require.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = f.exams.SubmitExam(ctx, draft.ID, 3, dto.ExamSubmitRequest{Answers: map[string]string{questionID: "7"}})
	require.ErrorIs(t, err, appErrors.ErrConflict)

	require.Equal(t, []string{ActionExamClosed}, f.activityActions(t, "exam", draft.ID))
}

func TestExamWindowAndAuthoring(t *testing.T) {
	f := newWorkflowFixture(t)
	f.seedScenario(t)
	ctx := context.Background()

	_, err := f.exams.CreateExam(ctx, 3, dto.ExamCreateRequest{
		Title:     "Student exam",
		Questions: []dto.ExamQuestionRequest{{Prompt: "?", Kind: "text"}},
	})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.exams.CreateExam(ctx, 2, dto.ExamCreateRequest{
		Title:     "No key",
		Questions: []dto.ExamQuestionRequest{{Prompt: "Pick one", Kind: "choice"}},
	})
	requireStatus(t, err, 400)

	starts := time.Now().Add(-2 * time.Hour)
	ends := time.Now().Add(-time.Hour)
	_, err = f.exams.CreateExam(ctx, 2, dto.ExamCreateRequest{
		Title:     "Backwards",
		StartsAt:  &ends,
		EndsAt:    &starts,
		Questions: []dto.ExamQuestionRequest{{Prompt: "?", Kind: "text"}},
	})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	expired, err := f.exams.CreateExam(ctx, 2, dto.ExamCreateRequest{
		Title:     "Yesterday",
		StartsAt:  &starts,
		EndsAt:    &ends,
		Questions: []dto.ExamQuestionRequest{{Prompt: "?", Kind: "text"}},
	})
	require.NoError(t, err)
	_, err = f.exams.PublishExam(ctx, expired.ID, 2)
	require.NoError(t, err)

	questionID := strconv.FormatUint(uint64(expired.Questions[0].ID), 10)
	_, err = f.exams.SubmitExam(ctx, expired.ID, 3, dto.ExamSubmitRequest{Answers: map[string]string{questionID: "late"}})
	require.ErrorIs(t, err, appErrors.ErrConflict)
}
