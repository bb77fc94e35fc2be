package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// ProjectRepository defines data operations for projects and their participants.
type ProjectRepository interface {
	GetByID(ctx context.Context, id uint) (models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	AddParticipant(ctx context.Context, projectID, userID uint) error
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository instantiates the repository.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) GetByID(ctx context.Context, id uint) (models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Preload("Participants").First(&project, id).Error; err != nil {
		return models.Project{}, err
	}

	return project, nil
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *projectRepository) AddParticipant(ctx context.Context, projectID, userID uint) error {
	return r.db.WithContext(ctx).
		Table("project_participants").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(map[string]interface{}{"project_id": projectID, "user_id": userID}).Error
}
