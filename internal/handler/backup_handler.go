package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/pkg/response"
)

type backupService interface {
	Export(ctx context.Context) (*models.Backup, error)
	Import(ctx context.Context, backup *models.Backup) error
}

// BackupHandler exports and restores the whole academy state.
type BackupHandler struct {
	service backupService
}

// NewBackupHandler constructs BackupHandler.
func NewBackupHandler(service backupService) *BackupHandler {
	return &BackupHandler{service: service}
}

// Export godoc
// @Summary Download a full JSON backup
// @Tags Backup
// @Produce json
// @Success 200 {object} models.Backup
// @Router /backup [get]
func (h *BackupHandler) Export(c *gin.Context) {
	backup, err := h.service.Export(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("ams_backup_%s.json", backup.ExportDate.UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, backup)
}

// Import godoc
// @Summary Restore a backup, replacing all data
// @Tags Backup
// @Accept json
// @Produce json
// @Param payload body models.Backup true "Backup document"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /backup [post]
func (h *BackupHandler) Import(c *gin.Context) {
	var backup models.Backup
	if err := c.ShouldBindJSON(&backup); err != nil {
		response.Error(c, invalidPayload(err, "invalid backup file"))
		return
	}
	if err := h.service.Import(c.Request.Context(), &backup); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"students":     len(backup.Students),
		"teachers":     len(backup.Teachers),
		"attendance":   len(backup.Attendance),
		"transactions": len(backup.Transactions),
		"restoredAt":   time.Now().UTC(),
	}, nil)
}
