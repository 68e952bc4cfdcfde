package dto

import "github.com/noah-isme/attendance-analyzer/internal/models"

// AnalyzeRequest is the payload for POST /attendance/analyze.
type AnalyzeRequest struct {
	Label      string                    `json:"label" validate:"omitempty,max=120"`
	Rows       []models.RawAttendanceRow `json:"rows" validate:"attendance_rows"`
	Thresholds []float64                 `json:"thresholds" validate:"omitempty,max=10,dive,gt=0,lt=1"`
	Save       bool                      `json:"save"`
}

// AnalyzeResponse pairs the analytics result with the stored report ID, if any.
type AnalyzeResponse struct {
	ReportID string                 `json:"report_id,omitempty"`
	Result   models.AnalyticsResult `json:"result"`
}

// ReportListRequest captures query parameters for GET /attendance/reports.
type ReportListRequest struct {
	Label    string `form:"label" validate:"omitempty,max=120"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}
