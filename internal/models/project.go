package models

import "time"

// ProjectStatus enumerates project states.
type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusArchived ProjectStatus = "archived"
)

// Project groups tasks under an optional tutor and a set of participants.
type Project struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	Name         string        `gorm:"size:255;not null" json:"name"`
	Status       ProjectStatus `gorm:"size:16;not null;default:active" json:"status"`
	TutorID      *uint         `gorm:"index" json:"tutor_id"`
	StartDate    *time.Time    `json:"start_date"`
	EndDate      *time.Time    `json:"end_date"`
	Participants []User        `gorm:"many2many:project_participants" json:"participants,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// HasParticipant reports whether the user participates in the project.
func (p Project) HasParticipant(userID uint) bool {
	for _, participant := range p.Participants {
		if participant.ID == userID {
			return true
		}
	}
	return false
}

// ParticipantIDs lists participant identifiers in their stored order.
func (p Project) ParticipantIDs() []uint {
	ids := make([]uint, 0, len(p.Participants))
	for _, participant := range p.Participants {
		ids = append(ids, participant.ID)
	}
	return ids
}
