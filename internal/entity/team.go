package entity

import (
	"time"

	"github.com/google/uuid"
)

type Team struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	CompetitionID  uint         `gorm:"not null;index" json:"competition_id"`
	Competition    *Competition `gorm:"constraint:OnDelete:CASCADE" json:"competition,omitempty"`
	Name           string       `gorm:"size:100;not null" json:"name"`
	Description    string       `gorm:"type:text" json:"description"`
	CaptainID      *uuid.UUID   `gorm:"type:uuid;index" json:"captain_id"`
	Captain        *Profile     `gorm:"foreignKey:CaptainID;references:UserID;constraint:OnDelete:SET NULL" json:"captain,omitempty"`
	IsPrivate      bool         `gorm:"default:false" json:"is_private"`
	MaxMembers     int          `gorm:"not null" json:"max_members"`
	CurrentMembers int          `gorm:"not null;default:1" json:"current_members"`
	Members        []TeamMember `gorm:"constraint:OnDelete:CASCADE" json:"members,omitempty"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (t *Team) IsFull() bool {
	return t.CurrentMembers >= t.MaxMembers
}

func (t *Team) IsCaptain(userID uuid.UUID) bool {
	return t.CaptainID != nil && *t.CaptainID == userID
}

type TeamMember struct {
	TeamID   uint      `gorm:"primaryKey" json:"team_id"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	Profile  *Profile  `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}
