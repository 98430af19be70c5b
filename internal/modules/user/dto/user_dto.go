package dto

import (
	"time"

	"codedepartament.ru/sbp/internal/entity"
)

const DateLayout = "2006-01-02"

type RegisterRequest struct {
	NickName   string  `json:"nick_name" binding:"required,min=3,max=50"`
	Email      *string `json:"email" binding:"omitempty,email,max=100"`
	Password   string  `json:"password" binding:"required,min=8,max=72"`
	Surname    string  `json:"surname" binding:"required,max=100"`
	Name       string  `json:"name" binding:"required,max=100"`
	Patronymic *string `json:"patronymic" binding:"omitempty,max=100"`
	RegionID   uint    `json:"region_id" binding:"required"`
	Role       int     `json:"role" binding:"min=0,max=2"`
	Birthday   string  `json:"birthday" binding:"omitempty,datetime=2006-01-02"`
	TgUsername *string `json:"tg_username" binding:"omitempty,max=64"`
}

type LoginRequest struct {
	// Login is a nick name or an email.
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token,omitempty"`
	TokenType   string       `json:"token_type,omitempty"`
	ExpiresIn   int64        `json:"expires_in,omitempty"`
	User        *entity.User `json:"user"`
	Message     string       `json:"message,omitempty"`
}

type UpdateProfileRequest struct {
	Email      *string `json:"email" binding:"omitempty,email,max=100"`
	Surname    *string `json:"surname" binding:"omitempty,min=1,max=100"`
	Name       *string `json:"name" binding:"omitempty,min=1,max=100"`
	Patronymic *string `json:"patronymic" binding:"omitempty,max=100"`
	Birthday   *string `json:"birthday" binding:"omitempty,datetime=2006-01-02"`
	TgUsername *string `json:"tg_username" binding:"omitempty,max=64"`
	// RegionID is accepted only when it matches the stored region.
	RegionID *uint `json:"region_id"`
	// Rating is rejected if sent.
	Rating *float64 `json:"rating"`
}

type DisciplineStat struct {
	DisciplineID      uint    `json:"discipline_id"`
	Discipline        string  `json:"discipline"`
	CompetitionsCount int     `json:"competitions_count"`
	PointsCount       float64 `json:"points_count"`
}

type ProfileResponse struct {
	ID         string           `json:"id"`
	NickName   string           `json:"nick_name"`
	Email      *string          `json:"email,omitempty"`
	DateJoined time.Time        `json:"date_joined"`
	Surname    string           `json:"surname"`
	Name       string           `json:"name"`
	Patronymic *string          `json:"patronymic,omitempty"`
	Region     *entity.Region   `json:"region"`
	Role       int              `json:"role"`
	RoleName   string           `json:"role_name"`
	Birthday   *string          `json:"birthday,omitempty"`
	TgUsername *string          `json:"tg_username,omitempty"`
	IsApproved bool             `json:"is_approved"`
	Rating     float64          `json:"rating"`
	Stats      []DisciplineStat `json:"discipline_stats"`
}

type HistoryItem struct {
	CompetitionID uint    `json:"competition_id"`
	Name          string  `json:"name"`
	Discipline    string  `json:"discipline"`
	Kind          string  `json:"kind"`
	EndDate       *string `json:"end_date,omitempty"`
	Result        int     `json:"result"`
	Participants  int     `json:"participants"`
}

type HistoryStats struct {
	Total   int     `json:"total"`
	Wins    int     `json:"wins"`
	Podiums int     `json:"podiums"`
	Rating  float64 `json:"rating"`
}

type HistoryResponse struct {
	Items []HistoryItem `json:"items"`
	Stats HistoryStats  `json:"stats"`
}

type ApprovalDecisionRequest struct {
	Approve *bool `json:"approve" binding:"required"`
}

type UserSummary struct {
	ID         string         `json:"id"`
	NickName   string         `json:"nick_name"`
	FullName   string         `json:"full_name"`
	Region     *entity.Region `json:"region,omitempty"`
	Role       int            `json:"role"`
	Rating     float64        `json:"rating"`
	TgUsername *string        `json:"tg_username,omitempty"`
	Email      *string        `json:"email,omitempty"`
}

type RepresentativesQuery struct {
	RegionID *uint `form:"region_id"`
}
