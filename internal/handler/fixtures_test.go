package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/config"
	"github.com/noah-isme/gema-grading-api/internal/database"
	"github.com/noah-isme/gema-grading-api/internal/handler"
	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	"github.com/noah-isme/gema-grading-api/internal/router"
	"github.com/noah-isme/gema-grading-api/internal/service"
)

const (
	tutorID        = uint(2)
	studentID      = uint(3)
	otherStudentID = uint(4)
)

type testApp struct {
	app           *fiber.App
	db            *gorm.DB
	notifications service.NotificationService
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
}

// headerIdentity stands in for JWT validation: X-User-ID and X-User-Role become request locals.
func headerIdentity(c *fiber.Ctx) error {
	if raw := c.Get("X-User-ID"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fiber.ErrUnauthorized
		}
		c.Locals("user_id", uint(id))
	}
	if role := c.Get("X-User-Role"); role != "" {
		c.Locals("user_role", role)
	}
	return c.Next()
}

func setupGradingApp(t *testing.T) *testApp {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.ConnectSQLite(fmt.Sprintf("file:handler_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, user := range []models.User{
		{ID: 1, Username: "u1", Email: "u1@example.com", Role: models.UserRoleAdmin, Status: models.UserStatusActive},
		{ID: tutorID, Username: "u2", Email: "u2@example.com", Role: models.UserRoleTutor, Status: models.UserStatusActive},
		{ID: studentID, Username: "u3", Email: "u3@example.com", Role: models.UserRoleStudent, Status: models.UserStatusActive},
		{ID: otherStudentID, Username: "u4", Email: "u4@example.com", Role: models.UserRoleStudent, Status: models.UserStatusActive},
	} {
		require.NoError(t, db.Create(&user).Error)
	}

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	taskRepo := repository.NewTaskRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	userRepo := repository.NewUserRepository(db)

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), nil, "", nil, logger)
	reminders := service.NewReminderService(repository.NewReminderRepository(db), taskRepo, notifications, service.ReminderConfig{LeadTime: 24 * time.Hour}, logger)
	dispatcher := service.NewNotificationDispatcher(notifications, reminders, logger)
	dashboard := service.NewStudentDashboardService(taskRepo, submissionRepo, nil, time.Minute, logger)
	grading := service.NewGradingService(taskRepo, submissionRepo, userRepo, activity, dispatcher, dashboard, validate, service.GradingConfig{MaxGrade: 100}, logger)
	tasks := service.NewTaskService(taskRepo, submissionRepo, repository.NewProjectRepository(db), userRepo, activity, dispatcher, validate, logger)
	exams := service.NewExamService(repository.NewExamRepository(db), userRepo, activity, dispatcher, validate, logger)

	app := fiber.New()
	app.Use(middleware.CorrelationID())

	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		TaskHandler:             handler.NewTaskHandler(tasks, grading, logger),
		SubmissionHandler:       handler.NewSubmissionHandler(grading, logger),
		ExamHandler:             handler.NewExamHandler(exams, logger),
		NotificationHandler:     handler.NewNotificationHandler(notifications, logger, time.Second),
		ReminderHandler:         handler.NewReminderHandler(reminders, logger),
		StudentDashboardHandler: handler.NewStudentDashboardHandler(dashboard, logger),
		ActivityHandler:         handler.NewActivityHandler(activity, logger),
		JWTMiddleware:           headerIdentity,
	})

	return &testApp{app: app, db: db, notifications: notifications}
}

func (a *testApp) do(t *testing.T, method, path string, userID uint, role string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("X-User-ID", strconv.FormatUint(uint64(userID), 10))
		req.Header.Set("X-User-Role", role)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)

	var out envelope
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func decodeData(t *testing.T, env envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, target))
}
