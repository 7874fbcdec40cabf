package dto

import (
	"time"

	"github.com/noah-isme/ams-academy-api/internal/models"
)

// ReportRequest captures POST /reports payload.
type ReportRequest struct {
	Type      models.ReportType   `json:"type" validate:"required,oneof=payroll cashflow"`
	Format    models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	TeacherID *string             `json:"teacherId,omitempty"`
	DateFrom  *time.Time          `json:"dateFrom,omitempty"`
	DateTo    *time.Time          `json:"dateTo,omitempty"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Type      models.ReportType   `json:"type"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
