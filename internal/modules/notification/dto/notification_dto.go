package dto

type ListQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

type BroadcastRequest struct {
	Usernames []string `json:"usernames" binding:"required,min=1,dive,required,max=64"`
	Text      string   `json:"text" binding:"required,max=4096"`
}

type BroadcastResult struct {
	Sent   []string          `json:"sent"`
	Failed map[string]string `json:"failed"`
}
