package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// TaskFilter describes pagination & search options.
type TaskFilter struct {
	Search        string
	Status        *models.TaskStatus
	ProjectID     *uint
	ResponsibleID *uint
	TutorID       *uint
	Sort          string
	Page          int
	PageSize      int
}

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)
	ListForStudent(ctx context.Context, studentID uint) ([]models.Task, error)
	ListOpenDueAfter(ctx context.Context, reference time.Time) ([]models.Task, error)
	GetByID(ctx context.Context, id uint) (models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	UpdateStatus(ctx context.Context, id uint, from, to models.TaskStatus) error
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository instantiates a GORM-backed repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Task{}).
		Preload("Project").
		Preload("Project.Participants")
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Task{})

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}

	if filter.ResponsibleID != nil {
		query = query.Where("responsible_id = ?", *filter.ResponsibleID)
	}

	if filter.TutorID != nil {
		query = query.Where("tutor_id = ?", *filter.TutorID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(normalizeTaskSort(filter.Sort))

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var tasks []models.Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

func (r *taskRepository) ListForStudent(ctx context.Context, studentID uint) ([]models.Task, error) {
	participations := r.db.Table("project_participants").Select("project_id").Where("user_id = ?", studentID)

	var tasks []models.Task
	if err := r.db.WithContext(ctx).
		Where("responsible_id = ?", studentID).
		Or("project_id IN (?)", participations).
		Order("due_date ASC").
		Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *taskRepository) ListOpenDueAfter(ctx context.Context, reference time.Time) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.baseQuery(ctx).
		Where("status <> ?", models.TaskStatusClosed).
		Where("due_date IS NOT NULL AND due_date > ?", reference).
		Order("due_date ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *taskRepository) GetByID(ctx context.Context, id uint) (models.Task, error) {
	var task models.Task
	if err := r.baseQuery(ctx).First(&task, id).Error; err != nil {
		return models.Task{}, err
	}

	return task, nil
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit("Project").Create(task).Error
}

// UpdateStatus moves the task from one status to another and fails with ErrStaleVersion
// when the stored status is no longer from.
func (r *taskRepository) UpdateStatus(ctx context.Context, id uint, from, to models.TaskStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}

func normalizeTaskSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "-due_date", "due_date:desc", "due_date.desc":
		return "due_date DESC"
	case "updated_at", "updated_at:asc", "updated_at.asc":
		return "updated_at ASC"
	case "-updated_at", "updated_at:desc", "updated_at.desc":
		return "updated_at DESC"
	case "name", "name:asc", "name.asc":
		return "name ASC"
	case "-name", "name:desc", "name.desc":
		return "name DESC"
	default:
		return "due_date ASC"
	}
}
