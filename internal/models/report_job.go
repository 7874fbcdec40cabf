package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportType names the dataset a report job renders.
type ReportType string

const (
	ReportTypePayroll  ReportType = "payroll"
	ReportTypeCashflow ReportType = "cashflow"
)

// ReportFormat is the file format of a rendered report.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ContentType is the MIME type served on download.
func (f ReportFormat) ContentType() string {
	switch f {
	case ReportFormatPDF:
		return "application/pdf"
	case ReportFormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// ReportStatus is the lifecycle state of a report job.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// Final reports whether no worker will touch the job again.
func (s ReportStatus) Final() bool {
	return s == ReportStatusFinished || s == ReportStatusFailed
}

// ReportJob is a queued payroll or cash-flow export.
type ReportJob struct {
	ID           string          `db:"id" json:"id"`
	Type         ReportType      `db:"type" json:"type"`
	Params       ReportJobParams `db:"params" json:"params"`
	Status       ReportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
}

// Downloadable is true while a finished job still links its file.
func (j ReportJob) Downloadable() bool {
	return j.Status == ReportStatusFinished && j.ResultURL != nil
}

// ReportJobParams is the period and teacher filter, stored as JSONB.
type ReportJobParams struct {
	Format    ReportFormat `json:"format"`
	TeacherID *string      `json:"teacherId,omitempty"`
	DateFrom  *time.Time   `json:"dateFrom,omitempty"`
	DateTo    *time.Time   `json:"dateTo,omitempty"`
}

// Value implements driver.Valuer.
func (p ReportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal report job params: %w", err)
	}
	return data, nil
}

// Scan implements sql.Scanner. NULL and empty columns decode to zero params.
func (p *ReportJobParams) Scan(value interface{}) error {
	*p = ReportJobParams{}
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan report job params: unsupported type %T", value)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("scan report job params: %w", err)
	}
	return nil
}
