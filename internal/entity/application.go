package entity

import (
	"time"

	"github.com/google/uuid"
)

// DecisionStatus is shared by invitations, applications and vacancy responses.
// A row leaves pending exactly once.
type DecisionStatus string

const (
	DecisionPending  DecisionStatus = "pending"
	DecisionAccepted DecisionStatus = "accepted"
	DecisionRejected DecisionStatus = "rejected"
)

func (s DecisionStatus) Terminal() bool {
	return s != DecisionPending
}

type Invitation struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TeamID    uint           `gorm:"not null;uniqueIndex:idx_invitation_pending,where:status = 'pending'" json:"team_id"`
	Team      *Team          `gorm:"constraint:OnDelete:CASCADE" json:"team,omitempty"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_invitation_pending,where:status = 'pending';index" json:"user_id"`
	Status    DecisionStatus `gorm:"size:25;not null;default:pending" json:"status"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

type TeamApplication struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	TeamID        uint           `gorm:"not null;index" json:"team_id"`
	Team          *Team          `gorm:"constraint:OnDelete:CASCADE" json:"team,omitempty"`
	CompetitionID uint           `gorm:"not null;index" json:"competition_id"`
	Status        DecisionStatus `gorm:"size:25;not null;default:pending" json:"status"`
	Reason        *string        `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

type UserApplication struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_user_application_live,where:status <> 'rejected'" json:"user_id"`
	Profile       *Profile       `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	CompetitionID uint           `gorm:"not null;uniqueIndex:idx_user_application_live,where:status <> 'rejected';index" json:"competition_id"`
	Competition   *Competition   `gorm:"constraint:OnDelete:CASCADE" json:"competition,omitempty"`
	Status        DecisionStatus `gorm:"size:25;not null;default:pending" json:"status"`
	Reason        *string        `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

type VacancyResponse struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TeamID    uint           `gorm:"not null;index" json:"team_id"`
	Team      *Team          `gorm:"constraint:OnDelete:CASCADE" json:"team,omitempty"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Profile   *Profile       `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	Text      string         `gorm:"type:text;not null" json:"text"`
	Status    DecisionStatus `gorm:"size:25;not null;default:pending" json:"status"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
