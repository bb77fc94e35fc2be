package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmissionTransitions(t *testing.T) {
	require.True(t, SubmissionStatusSubmitted.CanTransition(SubmissionStatusGraded))
	require.True(t, SubmissionStatusGraded.CanTransition(SubmissionStatusGraded))
	require.True(t, SubmissionStatusSubmitted.CanTransition(SubmissionStatusReturned))
	require.False(t, SubmissionStatusGraded.CanTransition(SubmissionStatusSubmitted))
	require.False(t, SubmissionStatusReturned.CanTransition(SubmissionStatusGraded))
	require.False(t, SubmissionStatus("archived").Valid())
}

func TestTaskTransitions(t *testing.T) {
	require.True(t, TaskStatusOpen.CanTransition(TaskStatusClosed))
	require.True(t, TaskStatusInProgress.CanTransition(TaskStatusOpen))
	require.False(t, TaskStatusClosed.CanTransition(TaskStatusOpen))
	require.False(t, TaskStatusGraded.CanTransition(TaskStatusOpen))
	require.True(t, TaskStatusSubmitted.Valid())
	require.False(t, TaskStatus("done").Valid())
}

func TestTaskAuthorization(t *testing.T) {
	tutor := uint(2)
	task := Task{
		ResponsibleID: 1,
		TutorID:       &tutor,
		Project:       &Project{Participants: []User{{ID: 3}}},
	}

	require.True(t, task.CanSubmit(1))
	require.True(t, task.CanSubmit(3))
	require.False(t, task.CanSubmit(4))
	require.True(t, task.CanGrade(1))
	require.True(t, task.CanGrade(2))
	require.False(t, task.CanGrade(3))
	require.False(t, task.CanGrade(0))

	task.Project = nil
	require.False(t, task.CanSubmit(3))
}

func TestTaskEffectiveMaxGrade(t *testing.T) {
	require.Equal(t, 100.0, Task{}.EffectiveMaxGrade(0))
	require.Equal(t, 80.0, Task{}.EffectiveMaxGrade(80))

	ceiling := 20.0
	require.Equal(t, 20.0, Task{MaxGrade: &ceiling}.EffectiveMaxGrade(100))
}

func TestSubmissionGradingConsistent(t *testing.T) {
	require.True(t, Submission{}.GradingConsistent())

	grade := 90.0
	feedback := "ok"
	now := time.Now()
	grader := uint(2)
	require.True(t, Submission{Grade: &grade, Feedback: &feedback, GradedAt: &now, GradedBy: &grader}.GradingConsistent())
	require.False(t, Submission{Grade: &grade}.GradingConsistent())
}

func TestRelatedRefs(t *testing.T) {
	ref := SubmissionRef(7)
	require.True(t, ref.Valid())
	require.Equal(t, "submission:7", ref.String())
	require.False(t, RelatedRef{Kind: "Submision", ID: 7}.Valid())

	var n Notification
	n.SetRelated(ExamSubmissionRef(4))
	require.Equal(t, ExamSubmissionRef(4), n.Related())
}

func TestExamAcceptsAnswersWithinWindow(t *testing.T) {
	now := time.Now()
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)
	exam := Exam{Status: ExamStatusPublished, StartsAt: &start, EndsAt: &end}

	require.True(t, exam.AcceptsAnswers(now))
	require.False(t, exam.AcceptsAnswers(end.Add(time.Minute)))

	exam.Status = ExamStatusDraft
	require.False(t, exam.AcceptsAnswers(now))
}

func TestExamQuestionScore(t *testing.T) {
	q := ExamQuestion{Kind: QuestionKindChoice, CorrectAnswer: "B", Points: 2}
	require.Equal(t, 2.0, q.Score(" b "))
	require.Equal(t, 0.0, q.Score("a"))
	require.Equal(t, 0.0, ExamQuestion{Kind: QuestionKindText, CorrectAnswer: "x", Points: 5}.Score("x"))
}
