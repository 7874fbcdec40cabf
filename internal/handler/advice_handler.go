package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-academy-api/internal/service"
	"github.com/noah-isme/ams-academy-api/pkg/response"
)

type adviceService interface {
	Reengagement(ctx context.Context, studentID string) (*service.Advice, error)
	Attendance(ctx context.Context, studentID string) (*service.Advice, error)
}

// AdviceHandler serves generated messages about a student.
type AdviceHandler struct {
	advice adviceService
}

// NewAdviceHandler constructs AdviceHandler.
func NewAdviceHandler(advice adviceService) *AdviceHandler {
	return &AdviceHandler{advice: advice}
}

// Reengagement godoc
// @Summary Draft a re-engagement message for an inactive student
// @Tags Advice
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/advice/reengagement [post]
func (h *AdviceHandler) Reengagement(c *gin.Context) {
	advice, err := h.advice.Reengagement(c.Request.Context(), c.Param("id"))
	h.respond(c, advice, err)
}

// Attendance godoc
// @Summary Analyse a student's absences
// @Tags Advice
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/advice/attendance [post]
func (h *AdviceHandler) Attendance(c *gin.Context) {
	advice, err := h.advice.Attendance(c.Request.Context(), c.Param("id"))
	h.respond(c, advice, err)
}

func (h *AdviceHandler) respond(c *gin.Context, advice *service.Advice, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, advice, nil, map[string]interface{}{"fallback": advice.Fallback})
}
