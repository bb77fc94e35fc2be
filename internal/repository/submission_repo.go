package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// ErrStaleVersion indicates a compare-and-swap update lost against a concurrent writer.
var ErrStaleVersion = errors.New("stale version")

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	TaskID    *uint
	StudentID *uint
	Status    *models.SubmissionStatus
	Page      int
	PageSize  int
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	CountAttempts(ctx context.Context, taskID, studentID uint) (int64, error)
	ListStudentIDsByTask(ctx context.Context, taskID uint) ([]uint, error)
	Create(ctx context.Context, submission *models.Submission) error
	UpdateVersioned(ctx context.Context, submission *models.Submission, expectedVersion uint) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Files").
		Preload("Task").
		Preload("Task.Project").
		Preload("Task.Project.Participants")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.TaskID != nil {
		query = query.Where("task_id = ?", *filter.TaskID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var submissions []models.Submission
	if err := query.Preload("Files").Order("submitted_at DESC").Order("id DESC").Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) CountAttempts(ctx context.Context, taskID, studentID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("task_id = ? AND student_id = ?", taskID, studentID).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (r *submissionRepository) ListStudentIDsByTask(ctx context.Context, taskID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("task_id = ?", taskID).
		Distinct("student_id").
		Pluck("student_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.Version == 0 {
		submission.Version = 1
	}
	return r.db.WithContext(ctx).Omit("Task").Create(submission).Error
}

// UpdateVersioned persists the grading fields of submission when the stored version still
// equals expectedVersion, bumping the version on success.
func (r *submissionRepository) UpdateVersioned(ctx context.Context, submission *models.Submission, expectedVersion uint) error {
	submission.Version = expectedVersion + 1
	submission.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND version = ?", submission.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":     submission.Status,
			"grade":      submission.Grade,
			"feedback":   submission.Feedback,
			"graded_at":  submission.GradedAt,
			"graded_by":  submission.GradedBy,
			"version":    submission.Version,
			"updated_at": submission.UpdatedAt,
		})
	if result.Error != nil {
		submission.Version = expectedVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		submission.Version = expectedVersion
		return ErrStaleVersion
	}

	return nil
}
