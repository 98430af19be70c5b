package dto

type ExportQuery struct {
	CompetitionID *uint `form:"competition_id" binding:"omitempty,min=1"`
}

type SheetsExportResponse struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	Tab           string `json:"tab"`
	Rows          int64  `json:"rows"`
}
