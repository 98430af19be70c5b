package dto

// Participation is one participant row as the rating formula sees it.
type Participation struct {
	Place     int
	FieldSize int
}

type LeaderboardEntry struct {
	Position int     `json:"position"`
	UserID   string  `json:"user_id"`
	NickName string  `json:"nick_name"`
	Rating   float64 `json:"rating"`
}

type RankResponse struct {
	UserID string  `json:"user_id"`
	Rating float64 `json:"rating"`
	Rank   int     `json:"rank"`
	Total  int64   `json:"total"`
}

type LeaderboardQuery struct {
	Offset int `form:"offset" binding:"omitempty,min=0"`
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
}
