package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role int

const (
	RoleOrdinary Role = iota
	RoleRegionalRep
	RoleModerator
)

func (r Role) Valid() bool {
	return r >= RoleOrdinary && r <= RoleModerator
}

func (r Role) String() string {
	switch r {
	case RoleRegionalRep:
		return "regional_representative"
	case RoleModerator:
		return "moderator"
	default:
		return "ordinary"
	}
}

// Privileged roles need a moderator's approval before they can sign in.
func (r Role) NeedsApproval() bool {
	return r != RoleOrdinary
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	NickName     string    `gorm:"size:50;uniqueIndex;not null" json:"nick_name"`
	Email        *string   `gorm:"size:100;uniqueIndex" json:"email,omitempty"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	DateJoined   time.Time `gorm:"autoCreateTime" json:"date_joined"`
	Profile      *Profile  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type Profile struct {
	UserID     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	Surname    string     `gorm:"size:100;not null" json:"surname"`
	Name       string     `gorm:"size:100;not null" json:"name"`
	Patronymic *string    `gorm:"size:100" json:"patronymic,omitempty"`
	RegionID   uint       `gorm:"not null;index" json:"region_id"`
	Region     *Region    `gorm:"constraint:OnDelete:RESTRICT" json:"region,omitempty"`
	Role       Role       `gorm:"not null;default:0;index" json:"role"`
	Birthday   *time.Time `gorm:"type:date" json:"birthday,omitempty"`
	TgUsername *string    `gorm:"size:64;index" json:"tg_username,omitempty"`
	IsApproved bool       `gorm:"default:false" json:"is_approved"`
	Rating     float64    `gorm:"default:0;index" json:"rating"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (p *Profile) FullName() string {
	name := p.Surname + " " + p.Name
	if p.Patronymic != nil && *p.Patronymic != "" {
		name += " " + *p.Patronymic
	}
	return name
}

type UserDisciplineStats struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	UserID            uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_user_discipline,priority:1" json:"user_id"`
	DisciplineID      uint        `gorm:"not null;uniqueIndex:idx_user_discipline,priority:2" json:"discipline_id"`
	Discipline        *Discipline `gorm:"constraint:OnDelete:CASCADE" json:"discipline,omitempty"`
	CompetitionsCount int         `gorm:"default:0" json:"competitions_count"`
	PointsCount       float64     `gorm:"default:0" json:"points_count"`
}

func (UserDisciplineStats) TableName() string {
	return "user_discipline_stats"
}
