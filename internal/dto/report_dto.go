package dto

import (
	"report-go/internal/models"
)

// ReportResponse 报表响应
type ReportResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	FileName  string `json:"file_name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// NewReportResponse 从模型构建响应
func NewReportResponse(report *models.Report) ReportResponse {
	return ReportResponse{
		ID:        report.ID,
		Name:      report.Name,
		FileName:  report.StoredName,
		CreatedAt: report.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt: report.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// NewReportListResponse 从模型列表构建响应
func NewReportListResponse(reports []models.Report) []ReportResponse {
	responses := make([]ReportResponse, len(reports))
	for i := range reports {
		responses[i] = NewReportResponse(&reports[i])
	}
	return responses
}
