package dto

import (
	"time"

	"codedepartament.ru/sbp/internal/entity"
)

type CreateTeamRequest struct {
	CompetitionID uint   `json:"competition_id" binding:"required"`
	Name          string `json:"name" binding:"required,max=100"`
	Description   string `json:"description" binding:"max=2000"`
	IsPrivate     bool   `json:"is_private"`
	// CaptainID is required when a moderator creates a team for someone else.
	CaptainID *string `json:"captain_id" binding:"omitempty,uuid"`
}

type InviteRequest struct {
	TeamID uint   `json:"team_id" binding:"required"`
	UserID string `json:"user_id" binding:"required,uuid"`
}

type RespondRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

type TeamApplicationRequest struct {
	TeamID uint `json:"team_id" binding:"required"`
}

type TeamApplicationDecisionRequest struct {
	Accept *bool   `json:"accept" binding:"required"`
	Reason *string `json:"reason" binding:"omitempty,max=1000"`
}

type VacancyResponseRequest struct {
	TeamID uint   `json:"team_id" binding:"required"`
	Text   string `json:"text" binding:"required,max=2000"`
}

type PublicTeamsQuery struct {
	CompetitionID *uint `form:"competition_id"`
}

type MemberResponse struct {
	UserID     string  `json:"user_id"`
	Surname    string  `json:"surname"`
	Name       string  `json:"name"`
	Patronymic *string `json:"patronymic,omitempty"`
	TgUsername *string `json:"tg_username,omitempty"`
	IsCaptain  bool    `json:"is_captain"`
}

type TeamResponse struct {
	ID              uint             `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	CompetitionID   uint             `json:"competition_id"`
	CompetitionName string           `json:"competition_name"`
	CaptainID       *string          `json:"captain_id"`
	IsPrivate       bool             `json:"is_private"`
	MaxMembers      int              `json:"max_members"`
	CurrentMembers  int              `json:"current_members"`
	Members         []MemberResponse `json:"members"`
	IsRegistered    *bool            `json:"is_registered,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

func NewTeamResponse(t *entity.Team) TeamResponse {
	resp := TeamResponse{
		ID:             t.ID,
		Name:           t.Name,
		Description:    t.Description,
		CompetitionID:  t.CompetitionID,
		IsPrivate:      t.IsPrivate,
		MaxMembers:     t.MaxMembers,
		CurrentMembers: t.CurrentMembers,
		Members:        make([]MemberResponse, 0, len(t.Members)),
		CreatedAt:      t.CreatedAt,
	}
	if t.Competition != nil {
		resp.CompetitionName = t.Competition.Name
	}
	if t.CaptainID != nil {
		id := t.CaptainID.String()
		resp.CaptainID = &id
	}
	for _, m := range t.Members {
		mr := MemberResponse{UserID: m.UserID.String(), IsCaptain: t.IsCaptain(m.UserID)}
		if m.Profile != nil {
			mr.Surname = m.Profile.Surname
			mr.Name = m.Profile.Name
			mr.Patronymic = m.Profile.Patronymic
			mr.TgUsername = m.Profile.TgUsername
		}
		resp.Members = append(resp.Members, mr)
	}
	return resp
}
