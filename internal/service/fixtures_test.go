package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/database"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	appErrors "github.com/noah-isme/gema-grading-api/pkg/errors"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func floatPointer(v float64) *float64 {
	return &v
}

// requireStatus asserts the HTTP status the error maps to, covering raw validator errors.
func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, appErrors.FromError(err).Status)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

type workflowFixture struct {
	db               *gorm.DB
	taskRepo         repository.TaskRepository
	submissionRepo   repository.SubmissionRepository
	notificationRepo repository.NotificationRepository
	reminderRepo     repository.ReminderRepository
	activityRepo     repository.ActivityLogRepository
	examRepo         repository.ExamRepository
	notifications    NotificationService
	reminders        ReminderService
	grading          GradingService
	tasks            TaskService
	exams            ExamService
}

// newWorkflowFixture wires every workflow service against one in-memory database with a
// synchronous dispatcher, so side effects are visible as soon as a call returns.
func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()

	db := newTestDB(t)
	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := testLogger()

	f := &workflowFixture{
		db:               db,
		taskRepo:         repository.NewTaskRepository(db),
		submissionRepo:   repository.NewSubmissionRepository(db),
		notificationRepo: repository.NewNotificationRepository(db),
		reminderRepo:     repository.NewReminderRepository(db),
		activityRepo:     repository.NewActivityLogRepository(db),
		examRepo:         repository.NewExamRepository(db),
	}
	users := repository.NewUserRepository(db)
	projects := repository.NewProjectRepository(db)

	activity := NewActivityService(f.activityRepo, logger)
	f.notifications = NewNotificationService(f.notificationRepo, nil, "", nil, logger)
	f.reminders = NewReminderService(f.reminderRepo, f.taskRepo, f.notifications, ReminderConfig{LeadTime: 24 * time.Hour}, logger)
	dispatcher := NewNotificationDispatcher(f.notifications, f.reminders, logger)

	f.grading = NewGradingService(f.taskRepo, f.submissionRepo, users, activity, dispatcher, nil, validate, GradingConfig{MaxGrade: 100}, logger)
	f.tasks = NewTaskService(f.taskRepo, f.submissionRepo, projects, users, activity, dispatcher, validate, logger)
	f.exams = NewExamService(f.examRepo, users, activity, dispatcher, validate, logger)

	return f
}

// seedScenario creates U1 (responsible), U2 (tutor), U3 (participant student) and task 1.
func (f *workflowFixture) seedScenario(t *testing.T) models.Task {
	t.Helper()

	users := []models.User{
		{ID: 1, Username: "u1", Email: "u1@example.com", Role: models.UserRoleStudent, Status: models.UserStatusActive},
		{ID: 2, Username: "u2", Email: "u2@example.com", Role: models.UserRoleTutor, Status: models.UserStatusActive},
		{ID: 3, Username: "u3", Email: "u3@example.com", Role: models.UserRoleStudent, Status: models.UserStatusActive},
		{ID: 4, Username: "u4", Email: "u4@example.com", Role: models.UserRoleStudent, Status: models.UserStatusActive},
	}
	for i := range users {
		require.NoError(t, f.db.Create(&users[i]).Error)
	}

	tutorID := uint(2)
	project := models.Project{Name: "Algebra", Status: models.ProjectStatusActive, TutorID: &tutorID}
	projects := repository.NewProjectRepository(f.db)
	require.NoError(t, projects.Create(context.Background(), &project))
	require.NoError(t, projects.AddParticipant(context.Background(), project.ID, 3))

	task := models.Task{
		ID:            1,
		Name:          "Quadratic equations",
		Priority:      models.TaskPriorityMedium,
		Status:        models.TaskStatusOpen,
		ResponsibleID: 1,
		TutorID:       &tutorID,
		ProjectID:     &project.ID,
	}
	require.NoError(t, f.taskRepo.Create(context.Background(), &task))

	return task
}

func (f *workflowFixture) notificationsFor(t *testing.T, userID uint, kind models.NotificationType) []models.Notification {
	t.Helper()

	var out []models.Notification
	require.NoError(t, f.db.Where("user_id = ? AND type = ?", userID, kind).Order("id ASC").Find(&out).Error)
	return out
}

func (f *workflowFixture) activityActions(t *testing.T, entityType string, entityID uint) []string {
	t.Helper()

	var entries []models.ActivityLog
	require.NoError(t, f.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).Order("id ASC").Find(&entries).Error)
	actions := make([]string, 0, len(entries))
	for _, entry := range entries {
		actions = append(actions, entry.Action)
	}
	return actions
}
