package dto

import (
	"time"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// ActivityListRequest defines filters for retrieving activity logs.
type ActivityListRequest struct {
	Page       int
	PageSize   int
	ActorID    uint
	Action     string
	EntityType string
	EntityID   uint
	Since      *time.Time
	Until      *time.Time
}

// ActivityResponse serializes activity log entries.
type ActivityResponse struct {
	ID         uint                   `json:"id"`
	ActorID    uint                   `json:"actor_id"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   uint                   `json:"entity_id"`
	OldValues  map[string]interface{} `json:"old_values"`
	NewValues  map[string]interface{} `json:"new_values"`
	CreatedAt  time.Time              `json:"created_at"`
}

// ActivityListResponse wraps paginated activity logs.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewActivityResponse converts a model into an activity DTO.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	return ActivityResponse{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		OldValues:  map[string]interface{}(entry.OldValues),
		NewValues:  map[string]interface{}(entry.NewValues),
		CreatedAt:  entry.CreatedAt,
	}
}
