package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog captures an auditable workflow mutation. Rows are never updated or deleted.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null;index" json:"actor_id"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:64;not null;index:idx_activity_entity" json:"entity_type"`
	EntityID   uint              `gorm:"not null;index:idx_activity_entity" json:"entity_id"`
	OldValues  datatypes.JSONMap `gorm:"type:json" json:"old_values"`
	NewValues  datatypes.JSONMap `gorm:"type:json" json:"new_values"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}
