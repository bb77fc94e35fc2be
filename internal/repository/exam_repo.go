package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// ExamRepository defines persistence operations for exams, questions and exam submissions.
type ExamRepository interface {
	GetByID(ctx context.Context, id uint) (models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	UpdateStatus(ctx context.Context, id uint, from, to models.ExamStatus) error

	GetSubmission(ctx context.Context, id uint) (models.ExamSubmission, error)
	ListSubmissions(ctx context.Context, examID uint) ([]models.ExamSubmission, error)
	CreateSubmission(ctx context.Context, submission *models.ExamSubmission) error
	UpdateSubmissionVersioned(ctx context.Context, submission *models.ExamSubmission, expectedVersion uint) error
}

type examRepository struct {
	db *gorm.DB
}

// NewExamRepository instantiates a GORM-backed repository.
func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) GetByID(ctx context.Context, id uint) (models.Exam, error) {
	var exam models.Exam
	if err := r.db.WithContext(ctx).
		Preload("Questions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC").Order("id ASC")
		}).
		First(&exam, id).Error; err != nil {
		return models.Exam{}, err
	}

	return exam, nil
}

func (r *examRepository) Create(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).Create(exam).Error
}

func (r *examRepository) UpdateStatus(ctx context.Context, id uint, from, to models.ExamStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Exam{}).
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

func (r *examRepository) GetSubmission(ctx context.Context, id uint) (models.ExamSubmission, error) {
	var submission models.ExamSubmission
	if err := r.db.WithContext(ctx).
		Preload("Exam").
		First(&submission, id).Error; err != nil {
		return models.ExamSubmission{}, err
	}

	return submission, nil
}

func (r *examRepository) ListSubmissions(ctx context.Context, examID uint) ([]models.ExamSubmission, error) {
	var submissions []models.ExamSubmission
	if err := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("submitted_at DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *examRepository) CreateSubmission(ctx context.Context, submission *models.ExamSubmission) error {
	if submission.Version == 0 {
		submission.Version = 1
	}
	return r.db.WithContext(ctx).Omit("Exam").Create(submission).Error
}

func (r *examRepository) UpdateSubmissionVersioned(ctx context.Context, submission *models.ExamSubmission, expectedVersion uint) error {
	submission.Version = expectedVersion + 1
	submission.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&models.ExamSubmission{}).
		Where("id = ? AND version = ?", submission.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":      submission.Status,
			"score":       submission.Score,
			"review":      submission.Review,
			"reviewed_at": submission.ReviewedAt,
			"reviewed_by": submission.ReviewedBy,
			"version":     submission.Version,
			"updated_at":  submission.UpdatedAt,
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
