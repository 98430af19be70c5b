package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationInvitation        = "invitation"
	NotificationInvitationReply   = "invitation_reply"
	NotificationTeamApplication   = "team_application"
	NotificationUserApplication   = "user_application"
	NotificationVacancyResponse   = "vacancy_response"
	NotificationCompetitionResult = "competition_result"
	NotificationModeration        = "moderation"
	NotificationBroadcast         = "broadcast"
)

type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_notifications_user,priority:1" json:"user_id"`
	Type      string    `gorm:"size:50;not null" json:"type"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	EntityID  *uint     `json:"entity_id,omitempty"`
	IsRead    bool      `gorm:"default:false;index:idx_notifications_user,priority:2" json:"is_read"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}
