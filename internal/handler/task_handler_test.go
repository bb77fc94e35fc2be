package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/dto"
)

func createTask(t *testing.T, a *testApp, responsibleID uint, due *time.Time) dto.TaskResponse {
	t.Helper()

	tutor := tutorID
	resp, env := a.do(t, http.MethodPost, "/api/v2/tasks", tutorID, "tutor", dto.TaskCreateRequest{
		Name:          "Quadratic equations",
		Description:   "Solve <b>all</b> exercises<script>alert(1)</script>",
		ResponsibleID: responsibleID,
		TutorID:       &tutor,
		DueDate:       due,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)

	var task dto.TaskResponse
	decodeData(t, env, &task)
	return task
}

func TestTaskSubmissionGradingFlow(t *testing.T) {
	a := setupGradingApp(t)
	task := createTask(t, a, studentID, nil)
	require.Equal(t, "open", task.Status)
	require.NotContains(t, task.Description, "<script>")

	submitPath := fmt.Sprintf("/api/v2/tasks/%d/submissions", task.ID)

	resp, env := a.do(t, http.MethodPost, submitPath, otherStudentID, "student", dto.SubmissionCreateRequest{Content: "not mine"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Equal(t, "FORBIDDEN", env.Code)

	resp, env = a.do(t, http.MethodPost, submitPath, studentID, "student", dto.SubmissionCreateRequest{
		Content: "x = 2 or x = 3",
		Files:   []dto.FileRequest{{Filename: "work.pdf", Size: 2048, Path: "uploads/work.pdf", ContentType: "application/pdf"}},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	var submission dto.SubmissionResponse
	decodeData(t, env, &submission)
	require.Equal(t, 1, submission.Attempt)
	require.Equal(t, "submitted", submission.Status)
	require.Len(t, submission.Files, 1)

	gradePath := fmt.Sprintf("/api/v2/submissions/%d/grade", submission.ID)

	resp, _ = a.do(t, http.MethodPatch, gradePath, studentID, "student", dto.GradeSubmissionRequest{Grade: floatRef(100)})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, env = a.do(t, http.MethodPatch, gradePath, tutorID, "tutor", dto.GradeSubmissionRequest{Grade: floatRef(150)})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "VALIDATION_ERROR", env.Code)

	resp, env = a.do(t, http.MethodPatch, gradePath, tutorID, "tutor", dto.GradeSubmissionRequest{Grade: floatRef(85), Feedback: "Good work"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var graded dto.SubmissionResponse
	decodeData(t, env, &graded)
	require.Equal(t, "graded", graded.Status)
	require.Equal(t, 85.0, *graded.Grade)
	require.Equal(t, tutorID, *graded.GradedBy)

	stale := submission.Version
	resp, env = a.do(t, http.MethodPatch, gradePath, tutorID, "tutor", dto.GradeSubmissionRequest{Grade: floatRef(90), ExpectedVersion: &stale})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.Equal(t, "CONFLICT", env.Code)

	resp, env = a.do(t, http.MethodGet, "/api/v2/notifications", studentID, "student", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var notifications []dto.NotificationResponse
	decodeData(t, env, &notifications)
	require.Len(t, notifications, 1)
	require.Equal(t, "grade", notifications[0].Type)
	require.Equal(t, "submission", string(notifications[0].Related.Kind))

	resp, _ = a.do(t, http.MethodPost, fmt.Sprintf("/api/v2/tasks/%d/close", task.ID), tutorID, "tutor", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, env = a.do(t, http.MethodPost, submitPath, studentID, "student", dto.SubmissionCreateRequest{Content: "late"})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.Equal(t, "task is closed", env.Message)
}

func TestTaskRoutesRequireStaff(t *testing.T) {
	a := setupGradingApp(t)

	resp, env := a.do(t, http.MethodPost, "/api/v2/tasks", studentID, "student", dto.TaskCreateRequest{Name: "Sneaky", ResponsibleID: studentID})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.False(t, env.Success)

	resp, _ = a.do(t, http.MethodPost, "/api/v2/tasks", tutorID, "tutor", dto.TaskCreateRequest{Name: "x", ResponsibleID: studentID})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = a.do(t, http.MethodGet, "/api/v2/tasks/abc", tutorID, "tutor", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, env = a.do(t, http.MethodGet, "/api/v2/tasks/404", tutorID, "tutor", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NOT_FOUND", env.Code)

	resp, _ = a.do(t, http.MethodGet, "/api/v2/tasks", 0, "", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestTaskStatusAndListing(t *testing.T) {
	a := setupGradingApp(t)
	task := createTask(t, a, studentID, nil)
	createTask(t, a, otherStudentID, nil)

	resp, env := a.do(t, http.MethodPatch, fmt.Sprintf("/api/v2/tasks/%d/status", task.ID), tutorID, "tutor", dto.TaskStatusUpdateRequest{Status: "in_progress"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)

	resp, env = a.do(t, http.MethodGet, "/api/v2/tasks?page=1&page_size=10", tutorID, "tutor", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var staffView []dto.TaskResponse
	decodeData(t, env, &staffView)
	require.Len(t, staffView, 2)

	var meta dto.PaginationMeta
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	require.Equal(t, int64(2), meta.TotalItems)

	resp, env = a.do(t, http.MethodGet, "/api/v2/tasks", studentID, "student", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var studentView []dto.TaskResponse
	decodeData(t, env, &studentView)
	require.Len(t, studentView, 1)
	require.Equal(t, "in_progress", studentView[0].Status)

	resp, _ = a.do(t, http.MethodGet, "/api/v2/tasks?project_id=abc", tutorID, "tutor", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmissionResponseContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("testdata", "submission_response.schema.json"))
	require.NoError(t, err)
	schema, err := jsonschema.NewCompiler().Compile("file://" + schemaPath)
	require.NoError(t, err)

	a := setupGradingApp(t)
	task := createTask(t, a, studentID, nil)

	_, env := a.do(t, http.MethodPost, fmt.Sprintf("/api/v2/tasks/%d/submissions", task.ID), studentID, "student", dto.SubmissionCreateRequest{Content: "answer"})
	var submission dto.SubmissionResponse
	decodeData(t, env, &submission)

	requests := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodGet, fmt.Sprintf("/api/v2/submissions/%d", submission.ID), nil},
		{http.MethodPost, fmt.Sprintf("/api/v2/submissions/%d/return", submission.ID), dto.ReturnSubmissionRequest{Reason: "show your steps"}},
	}

	for _, r := range requests {
		resp, env := a.do(t, r.method, r.path, tutorID, "tutor", r.body)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)

		raw, err := json.Marshal(env)
		require.NoError(t, err)
		var document interface{}
		require.NoError(t, json.Unmarshal(raw, &document))
		require.NoError(t, schema.Validate(document))
	}
}

func floatRef(v float64) *float64 {
	return &v
}

func TestLegacyTeacherRoleActsAsTutor(t *testing.T) {
	a := setupGradingApp(t)
	task := createTask(t, a, studentID, nil)

	resp, env := a.do(t, http.MethodPost, fmt.Sprintf("/api/v2/tasks/%d/submissions", task.ID), studentID, "student", dto.SubmissionCreateRequest{Content: "answer"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)
	var submission dto.SubmissionResponse
	decodeData(t, env, &submission)

	resp, env = a.do(t, http.MethodGet, "/api/v2/submissions", tutorID, " Teacher ", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
	var listed []dto.SubmissionResponse
	decodeData(t, env, &listed)
	require.Len(t, listed, 1, "staff listings include other users' work")

	resp, env = a.do(t, http.MethodPatch, fmt.Sprintf("/api/v2/submissions/%d/grade", submission.ID), tutorID, "TEACHER", dto.GradeSubmissionRequest{Grade: floatRef(64)})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)
}
