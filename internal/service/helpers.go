package service

import (
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	appErrors "github.com/noah-isme/gema-grading-api/pkg/errors"
)

// Actor identifies the authenticated caller of a read operation.
type Actor struct {
	ID   uint
	Role models.UserRole
}

// IsStaff reports whether the actor may see other users' work.
func (a Actor) IsStaff() bool {
	return a.Role == models.UserRoleTutor || a.Role == models.UserRoleAdmin
}

// translateStoreError maps repository sentinels onto the API error taxonomy.
func translateStoreError(err error, notFoundMessage string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, notFoundMessage)
	case errors.Is(err, repository.ErrStaleVersion):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "resource was modified concurrently")
	default:
		return err
	}
}

func failSpan(span trace.Span, err error, status string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	return err
}

func uintPtr(v uint) *uint {
	return &v
}
