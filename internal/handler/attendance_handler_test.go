package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/service"
)

type attendanceServiceMock struct {
	markReq    service.MarkAttendanceRequest
	lastFilter models.AttendanceFilter
}

func (m *attendanceServiceMock) Mark(ctx context.Context, req service.MarkAttendanceRequest) (*models.AttendanceMark, error) {
	m.markReq = req
	return &models.AttendanceMark{}, nil
}

func (m *attendanceServiceMock) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	m.lastFilter = filter
	return []models.AttendanceRecord{}, nil
}

func TestAttendanceHandlerMark(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(svc)

	body := `{"student_id":"stu-1","teacher_id":"t1","date":"2024-03-04","status":"absent","modality":"SUELTA"}`
	c, w := newGinContext(http.MethodPut, "/attendance", []byte(body))
	handler.Mark(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AttendanceStatusAbsent, svc.markReq.Status)
	assert.Equal(t, "2024-03-04", svc.markReq.Date)
}

func TestAttendanceHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(svc)

	c, w := newGinContext(http.MethodGet, "/attendance?teacherId=t1&status=PRESENT&from=2024-03-01", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t1", svc.lastFilter.TeacherID)
	require.NotNil(t, svc.lastFilter.Status)
	assert.Equal(t, models.AttendanceStatusPresent, *svc.lastFilter.Status)
	require.NotNil(t, svc.lastFilter.DateFrom)
	assert.Nil(t, svc.lastFilter.DateTo)
}

func TestAttendanceHandlerRejectsBadInput(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(svc)

	c, w := newGinContext(http.MethodGet, "/attendance?to=yesterday", nil)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPut, "/attendance", []byte(`{"student_id":`))
	handler.Mark(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.markReq.StudentID)
}
