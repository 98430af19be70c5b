package dto

type CompetitionSearchQuery struct {
	Q            string  `form:"q" binding:"max=200"`
	Status       *string `form:"status" binding:"omitempty,oneof=upcoming waiting registration running finished completed"`
	Kind         *string `form:"kind" binding:"omitempty,oneof=individual team"`
	Format       *string `form:"format" binding:"omitempty,oneof=online offline"`
	DisciplineID *uint   `form:"discipline_id"`
	// RegionID narrows to competitions whose permission list names the region.
	RegionID *uint `form:"region_id"`
	Limit    int64 `form:"limit" binding:"omitempty,min=1,max=100"`
}

type NewsSearchQuery struct {
	Q     string `form:"q" binding:"required,max=200"`
	Limit int64  `form:"limit" binding:"omitempty,min=1,max=100"`
}

type CompetitionHit struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Discipline   string `json:"discipline"`
	DisciplineID uint   `json:"discipline_id"`
	Kind         string `json:"kind"`
	Format       string `json:"format"`
	Status       string `json:"status"`
	Permissions  []uint `json:"permissions"`
	MinAge       int    `json:"min_age"`
	MaxAge       int    `json:"max_age"`
	StartDate    int64  `json:"start_date"`
}

type NewsHit struct {
	ID        uint    `json:"id"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	ImageURL  *string `json:"image_url,omitempty"`
	CreatedAt int64   `json:"created_at"`
}
