package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/noah-isme/ams-academy-api/internal/models"
)

// Advice kinds, also used as the metrics label.
const (
	AdviceReengagement = "reengagement"
	AdviceAttendance   = "attendance"
)

const (
	reengagementPrompt   = "Genera un mensaje breve y empático para reconectar con un alumno inactivo llamado %s que estudiaba %s. Nota previa: \"%s\". El mensaje debe ser para WhatsApp y ofrecer una clase de prueba o descuento para retomar. Responde solo con el texto del mensaje."
	reengagementFallback = "¡Hola! Te extrañamos en la escuela. ¿Te gustaría volver a tus clases de música? Tenemos promociones especiales este mes."
	attendancePrompt     = "Analiza la situación del alumno %s que tiene %d faltas consecutivas. Sugiere una acción administrativa o pedagógica."
	attendanceFallback   = "Se recomienda contactar al alumno para verificar el motivo del ausentismo."
)

var (
	errEmptyCompletion = errors.New("advice: empty completion")
	errNoAdviceClient  = errors.New("advice: client not configured")
)

// AdviceConfig configures the Gemini endpoint. Endpoint and APIVersion
// override the SDK defaults when set.
type AdviceConfig struct {
	Enabled    bool
	Endpoint   string
	APIVersion string
	APIKey     string
	Model      string
	Timeout    time.Duration
}

// Advice is a generated suggestion. Fallback is true when the static text was used.
type Advice struct {
	StudentID string `json:"student_id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Fallback  bool   `json:"fallback"`
}

type adviceStudentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// AdviceService drafts messages for administrators with a generative model.
// Any failure degrades to a fixed message.
type AdviceService struct {
	students adviceStudentFinder
	client   *genai.Client
	cfg      AdviceConfig
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewAdviceService constructs the advice service. The Gemini client is only
// built when advice is enabled and a key is configured; the API key travels
// in a request header, never in the URL.
func NewAdviceService(students adviceStudentFinder, httpClient *http.Client, cfg AdviceConfig, metrics *MetricsService, logger *zap.Logger) *AdviceService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AdviceService{students: students, cfg: cfg, metrics: metrics, logger: logger}
	if !cfg.Enabled || cfg.APIKey == "" {
		return svc
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.Endpoint,
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		logger.Warn("advice client unavailable, using fallback messages", zap.Error(err))
		return svc
	}
	svc.client = client
	return svc
}

// Reengagement drafts a WhatsApp message inviting an inactive student back.
func (s *AdviceService) Reengagement(ctx context.Context, studentID string) (*Advice, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	prompt := fmt.Sprintf(reengagementPrompt, student.FullName(), student.Instrument, student.Notes)
	return s.advise(ctx, studentID, AdviceReengagement, prompt, reengagementFallback), nil
}

// Attendance suggests an action for a student's absence streak.
func (s *AdviceService) Attendance(ctx context.Context, studentID string) (*Advice, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	prompt := fmt.Sprintf(attendancePrompt, student.FullName(), student.ConsecutiveAbsences)
	return s.advise(ctx, studentID, AdviceAttendance, prompt, attendanceFallback), nil
}

func (s *AdviceService) advise(ctx context.Context, studentID, kind, prompt, fallback string) *Advice {
	advice := &Advice{StudentID: studentID, Kind: kind}
	if !s.cfg.Enabled || s.cfg.APIKey == "" {
		advice.Message, advice.Fallback = fallback, true
		s.metrics.RecordAdviceFallback(kind)
		return advice
	}
	text, err := s.generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("advice generation failed", zap.String("kind", kind), zap.String("student_id", studentID), zap.Error(err))
		advice.Message, advice.Fallback = fallback, true
		s.metrics.RecordAdviceFallback(kind)
		return advice
	}
	advice.Message = text
	return advice
}

func (s *AdviceService) generate(ctx context.Context, prompt string) (string, error) {
	if s.client == nil {
		return "", errNoAdviceClient
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.client.Models.GenerateContent(ctx, s.cfg.Model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate advice: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errEmptyCompletion
	}
	return text, nil
}
