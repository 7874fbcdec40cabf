package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/payroll"
	"github.com/noah-isme/ams-academy-api/pkg/export"
	"github.com/noah-isme/ams-academy-api/pkg/storage"
)

type payrollReporter interface {
	Summary(ctx context.Context, period PayrollPeriod) (*payroll.Summary, bool, error)
	TeacherEarnings(ctx context.Context, teacherID string, period PayrollPeriod) (*payroll.Earnings, bool, error)
}

type cashflowSource interface {
	ListAll(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	Summary(ctx context.Context, filter models.TransactionFilter) (*models.CashSummary, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	// Settings supplies the school name printed in report titles. SchoolName
	// is used when it is nil or fails.
	Settings   settingsReader
	SchoolName string
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	payroll  payrollReporter
	cashflow cashflowSource
	storage  fileStorage
	csv      renderer
	pdf      renderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// NewExportService constructs an ExportService. Nil renderers fall back to the
// default CSV and PDF exporters.
func NewExportService(payroll payrollReporter, cashflow cashflowSource, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.SchoolName == "" {
		cfg.SchoolName = models.DefaultSchoolName
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		payroll:  payroll,
		cashflow: cashflow,
		storage:  storage,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Generate builds the dataset for job, renders it and stores the file behind a signed URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Debug("report rendered", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("bytes", len(payload)))

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	scope := "todos"
	if job.Params.TeacherID != nil && *job.Params.TeacherID != "" {
		scope = sanitizeFilename(*job.Params.TeacherID)
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, error) {
	switch job.Type {
	case models.ReportTypePayroll:
		if job.Params.TeacherID != nil && *job.Params.TeacherID != "" {
			return s.buildTeacherPayrollDataset(ctx, *job.Params.TeacherID, job.Params)
		}
		return s.buildPayrollDataset(ctx, job.Params)
	case models.ReportTypeCashflow:
		return s.buildCashflowDataset(ctx, job.Params)
	default:
		return export.Dataset{}, fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) schoolName(ctx context.Context) string {
	if s.cfg.Settings != nil {
		settings, err := s.cfg.Settings.Get(ctx)
		if err == nil && settings != nil && settings.Name != "" {
			return settings.Name
		}
		if err != nil {
			s.logger.Warn("school settings unavailable for report title", zap.Error(err))
		}
	}
	return s.cfg.SchoolName
}

func (s *ExportService) buildPayrollDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	summary, _, err := s.payroll.Summary(ctx, PayrollPeriod{From: params.DateFrom, To: params.DateTo})
	if err != nil {
		return export.Dataset{}, err
	}
	rows := make([]map[string]string, 0, len(summary.Teachers))
	for _, earnings := range summary.Teachers {
		rows = append(rows, map[string]string{
			"Profesor":   displayName(earnings.TeacherName, earnings.TeacherID),
			"Clases":     fmt.Sprintf("%d", earnings.Classes),
			"Sin tarifa": fmt.Sprintf("%d", earnings.Unconfigured),
			"Total":      export.FormatPesos(earnings.Total),
		})
	}
	if len(summary.Unassigned) > 0 {
		rows = append(rows, map[string]string{
			"Profesor":   "Sin profesor asignado",
			"Clases":     fmt.Sprintf("%d", len(summary.Unassigned)),
			"Sin tarifa": fmt.Sprintf("%d", len(summary.Unassigned)),
			"Total":      export.FormatPesos(0),
		})
	}
	return export.Dataset{
		Title:    fmt.Sprintf("%s - Liquidación de profesores", s.schoolName(ctx)),
		Subtitle: periodLabel(params.DateFrom, params.DateTo),
		Headers:  []string{"Profesor", "Clases", "Sin tarifa", "Total"},
		Rows:     rows,
		Footer:   map[string]string{"Profesor": "Total", "Total": export.FormatPesos(summary.Total)},
	}, nil
}

func (s *ExportService) buildTeacherPayrollDataset(ctx context.Context, teacherID string, params models.ReportJobParams) (export.Dataset, error) {
	earnings, _, err := s.payroll.TeacherEarnings(ctx, teacherID, PayrollPeriod{From: params.DateFrom, To: params.DateTo})
	if err != nil {
		return export.Dataset{}, err
	}
	rows := make([]map[string]string, 0, len(earnings.LineItems))
	for _, line := range earnings.LineItems {
		amount := export.FormatPesos(line.Amount)
		if !line.Configured {
			amount = "Sin tarifa"
		}
		rows = append(rows, map[string]string{
			"Fecha":     line.Date.UTC().Format(attendanceDateLayout),
			"Alumno":    line.StudentID,
			"Modalidad": line.Modality.Label(),
			"Clave":     string(line.Key),
			"Monto":     amount,
		})
	}
	return export.Dataset{
		Title:    fmt.Sprintf("%s - Liquidación de %s", s.schoolName(ctx), displayName(earnings.TeacherName, earnings.TeacherID)),
		Subtitle: periodLabel(params.DateFrom, params.DateTo),
		Headers:  []string{"Fecha", "Alumno", "Modalidad", "Clave", "Monto"},
		Rows:     rows,
		Footer:   map[string]string{"Fecha": "Total", "Monto": export.FormatPesos(earnings.Total)},
	}, nil
}

func (s *ExportService) buildCashflowDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	filter := models.TransactionFilter{DateFrom: params.DateFrom, DateTo: params.DateTo}
	transactions, err := s.cashflow.ListAll(ctx, filter)
	if err != nil {
		return export.Dataset{}, err
	}
	totals, err := s.cashflow.Summary(ctx, filter)
	if err != nil {
		return export.Dataset{}, err
	}
	totals.Net = totals.Income - totals.Expense

	rows := make([]map[string]string, 0, len(transactions))
	for _, tx := range transactions {
		kind := "Ingreso"
		if tx.Type == models.TransactionExpense {
			kind = "Egreso"
		}
		method := ""
		if tx.Method != nil {
			method = *tx.Method
		}
		rows = append(rows, map[string]string{
			"Fecha":       tx.Date.UTC().Format(attendanceDateLayout),
			"Tipo":        kind,
			"Categoría":   tx.Category,
			"Descripción": tx.Description,
			"Método":      method,
			"Monto":       export.FormatPesos(tx.Amount),
		})
	}
	subtitle := fmt.Sprintf("%s | Ingresos %s | Egresos %s",
		periodLabel(params.DateFrom, params.DateTo), export.FormatPesos(totals.Income), export.FormatPesos(totals.Expense))
	return export.Dataset{
		Title:    fmt.Sprintf("%s - Flujo de caja", s.schoolName(ctx)),
		Subtitle: subtitle,
		Headers:  []string{"Fecha", "Tipo", "Categoría", "Descripción", "Método", "Monto"},
		Rows:     rows,
		Footer:   map[string]string{"Descripción": "Neto", "Monto": export.FormatPesos(totals.Net)},
	}, nil
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func periodLabel(from, to *time.Time) string {
	switch {
	case from == nil && to == nil:
		return "Todo el período"
	case from == nil:
		return "Hasta " + to.UTC().Format(attendanceDateLayout)
	case to == nil:
		return "Desde " + from.UTC().Format(attendanceDateLayout)
	default:
		return from.UTC().Format(attendanceDateLayout) + " a " + to.UTC().Format(attendanceDateLayout)
	}
}
