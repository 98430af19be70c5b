package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CompetitionStatus string

const (
	StatusPending      CompetitionStatus = "pending"
	StatusUpcoming     CompetitionStatus = "upcoming"
	StatusWaiting      CompetitionStatus = "waiting"
	StatusRegistration CompetitionStatus = "registration"
	StatusRunning      CompetitionStatus = "running"
	StatusFinished     CompetitionStatus = "finished"
	StatusCompleted    CompetitionStatus = "completed"
)

type CompetitionKind string

const (
	KindIndividual CompetitionKind = "individual"
	KindTeam       CompetitionKind = "team"
)

type CompetitionFormat string

const (
	FormatOnline  CompetitionFormat = "online"
	FormatOffline CompetitionFormat = "offline"
)

type Competition struct {
	ID                    uint                      `gorm:"primaryKey" json:"id"`
	Name                  string                    `gorm:"size:100;not null" json:"name"`
	Description           string                    `gorm:"type:text" json:"description"`
	DisciplineID          uint                      `gorm:"not null;index" json:"discipline_id"`
	Discipline            *Discipline               `gorm:"constraint:OnDelete:RESTRICT" json:"discipline,omitempty"`
	Kind                  CompetitionKind           `gorm:"size:10;not null;index" json:"kind"`
	Format                CompetitionFormat         `gorm:"size:10;not null;index" json:"format"`
	MaxParticipants       int                       `gorm:"not null" json:"max_participants"`
	MaxParticipantsInTeam int                       `gorm:"not null;default:1" json:"max_participants_in_team"`
	MinAge                int                       `gorm:"not null;default:0" json:"min_age"`
	MaxAge                int                       `gorm:"not null;default:100" json:"max_age"`
	Permissions           datatypes.JSONSlice[uint] `gorm:"type:jsonb;not null;default:'[]'" json:"permissions"`
	Status                CompetitionStatus         `gorm:"size:25;not null;default:pending;index" json:"status"`
	Dates                 *CompetitionDate          `gorm:"foreignKey:CompetitionID;constraint:OnDelete:CASCADE" json:"dates,omitempty"`
	CreatedAt             time.Time                 `gorm:"autoCreateTime" json:"created_at"`
}

// AllowsRegion reports whether regionID appears in the permission list.
func (c *Competition) AllowsRegion(regionID uint) bool {
	for _, id := range c.Permissions {
		if id == regionID {
			return true
		}
	}
	return false
}

type CompetitionDate struct {
	CompetitionID     uint      `gorm:"primaryKey" json:"-"`
	RegistrationStart time.Time `gorm:"not null" json:"registration_start"`
	RegistrationEnd   time.Time `gorm:"not null" json:"registration_end"`
	StartDate         time.Time `gorm:"not null" json:"start_date"`
	EndDate           time.Time `gorm:"not null" json:"end_date"`
}

var ErrInvalidDateWindow = errors.New("dates must satisfy registration_start < registration_end <= start_date < end_date")

func (d CompetitionDate) Validate() error {
	if !d.RegistrationStart.Before(d.RegistrationEnd) ||
		d.RegistrationEnd.After(d.StartDate) ||
		!d.StartDate.Before(d.EndDate) {
		return ErrInvalidDateWindow
	}
	return nil
}

// PermissionsStatus is the display projection of a permission list:
// 0 empty, 1 partial, 2 covers every region.
func PermissionsStatus(permissions []uint, fullRegionCount int) int {
	switch {
	case len(permissions) == 0:
		return 0
	case len(permissions) >= fullRegionCount:
		return 2
	default:
		return 1
	}
}

type CompetitionParticipant struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	CompetitionID uint         `gorm:"not null;uniqueIndex:idx_participant_unique,priority:1" json:"competition_id"`
	Competition   *Competition `gorm:"constraint:OnDelete:CASCADE" json:"competition,omitempty"`
	UserID        uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_participant_unique,priority:2;index" json:"user_id"`
	Profile       *Profile     `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	// Result is the final place, 0 until results are distributed.
	Result    int       `gorm:"not null;default:0" json:"result"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type CompetitionOrganizer struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	UserID        uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_organizer_unique,priority:1" json:"user_id"`
	CompetitionID uint         `gorm:"not null;uniqueIndex:idx_organizer_unique,priority:2;index" json:"competition_id"`
	Competition   *Competition `gorm:"constraint:OnDelete:CASCADE" json:"competition,omitempty"`
	Rated         bool         `gorm:"not null;default:false" json:"rated"`
}
