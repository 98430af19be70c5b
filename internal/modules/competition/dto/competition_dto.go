package dto

import (
	"encoding/json"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	commonDto "codedepartament.ru/sbp/pkg/dto"
)

type DatesRequest struct {
	RegistrationStart time.Time `json:"registration_start" binding:"required"`
	RegistrationEnd   time.Time `json:"registration_end" binding:"required"`
	StartDate         time.Time `json:"start_date" binding:"required"`
	EndDate           time.Time `json:"end_date" binding:"required"`
}

type CreateCompetitionRequest struct {
	Name                  string       `json:"name" binding:"required,max=100"`
	Description           string       `json:"description" binding:"max=10000"`
	DisciplineID          uint         `json:"discipline_id" binding:"required"`
	Kind                  string       `json:"kind" binding:"required,oneof=individual team"`
	Format                string       `json:"format" binding:"required,oneof=online offline"`
	MaxParticipants       int          `json:"max_participants" binding:"required,min=1"`
	MaxParticipantsInTeam int          `json:"max_participants_in_team" binding:"omitempty,min=1"`
	MinAge                int          `json:"min_age" binding:"min=0,max=100"`
	MaxAge                int          `json:"max_age" binding:"omitempty,min=0,max=100"`
	Permissions           Permissions  `json:"permissions"`
	Dates                 DatesRequest `json:"dates" binding:"required"`
}

// Permissions accepts either [1, 2] or [{"id": 1}, {"id": 2}].
type Permissions []uint

func (p *Permissions) UnmarshalJSON(data []byte) error {
	var ids []uint
	if err := json.Unmarshal(data, &ids); err == nil {
		*p = ids
		return nil
	}

	var refs []struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(data, &refs); err != nil {
		return err
	}
	out := make([]uint, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.ID)
	}
	*p = out
	return nil
}

type ListQuery struct {
	commonDto.PageQuery
	Status       *string `form:"status" binding:"omitempty,oneof=upcoming waiting registration running finished completed"`
	DisciplineID *uint   `form:"discipline_id"`
	Kind         *string `form:"kind" binding:"omitempty,oneof=individual team"`
	Format       *string `form:"format" binding:"omitempty,oneof=online offline"`
}

type DecisionRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

type ApplicationDecisionRequest struct {
	Accept *bool   `json:"accept" binding:"required"`
	Reason *string `json:"reason" binding:"omitempty,max=1000"`
}

type CreateApplicationRequest struct {
	CompetitionID uint `json:"competition_id" binding:"required"`
}

type StatusRefreshRequest struct {
	// Time defaults to the server clock when omitted.
	Time *time.Time `json:"time"`
}

type StatusChange struct {
	ID             uint                     `json:"id"`
	Name           string                   `json:"name"`
	OriginalStatus entity.CompetitionStatus `json:"original_status"`
	NewStatus      entity.CompetitionStatus `json:"new_status"`
	StatusChanged  bool                     `json:"status_changed"`
}

type StatusReport struct {
	ClientTime          time.Time      `json:"client_time"`
	ServerTime          time.Time      `json:"server_time"`
	CompetitionsUpdated int            `json:"competitions_updated"`
	Competitions        []StatusChange `json:"competitions"`
}

type ResultEntry struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Place  int    `json:"place" binding:"required,min=1"`
}

type DistributeResultsRequest struct {
	Results []ResultEntry `json:"results" binding:"required,min=1,dive"`
}

type CompetitionResponse struct {
	entity.Competition
	PermissionsStatus int `json:"permissions_status"`
}

type OrganizedCompetition struct {
	ID         uint                     `json:"id"`
	Name       string                   `json:"name"`
	Discipline string                   `json:"discipline"`
	Kind       entity.CompetitionKind   `json:"kind"`
	Status     entity.CompetitionStatus `json:"status"`
	Rated      bool                     `json:"rated"`
}

type ParticipantResponse struct {
	UserID   string         `json:"user_id"`
	FullName string         `json:"full_name"`
	Region   *entity.Region `json:"region,omitempty"`
	Result   int            `json:"result"`
}
