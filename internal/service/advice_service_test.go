package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/ams-academy-api/internal/models"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

func adviceStudents() *mockStudentRepo {
	return &mockStudentRepo{students: map[string]models.Student{
		"s1": {ID: "s1", FirstName: "Lucia", LastName: "Perez", Instrument: "Piano", Notes: "Dejó por exámenes", ConsecutiveAbsences: 3},
	}}
}

type geminiRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

func promptOf(t *testing.T, r *http.Request) string {
	var req geminiRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	require.NotEmpty(t, req.Contents)
	require.NotEmpty(t, req.Contents[0].Parts)
	return req.Contents[0].Parts[0].Text
}

func adviceConfig(endpoint, key string) AdviceConfig {
	return AdviceConfig{Enabled: true, Endpoint: endpoint, APIVersion: "v1beta", APIKey: key, Model: "test-model"}
}

func TestAdviceServiceGeneratesMessage(t *testing.T) {
	var gotPrompt, gotPath, gotHeaderKey, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotHeaderKey = r.Header.Get("x-goog-api-key")
		gotPrompt = promptOf(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":" ¡Hola Lucia! "}]}}]}`))
	}))
	defer server.Close()

	svc := NewAdviceService(adviceStudents(), server.Client(), adviceConfig(server.URL, "secret"), NewMetricsService(), nil)

	advice, err := svc.Reengagement(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, advice.Fallback)
	assert.Equal(t, "¡Hola Lucia!", advice.Message)
	assert.Equal(t, "/v1beta/models/test-model:generateContent", gotPath)
	assert.Equal(t, "secret", gotHeaderKey)
	assert.NotContains(t, gotQuery, "secret")
	assert.Contains(t, gotPrompt, "Lucia Perez")
	assert.Contains(t, gotPrompt, "Piano")
	assert.Contains(t, gotPrompt, "Dejó por exámenes")
}

func TestAdviceServiceFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewAdviceService(adviceStudents(), server.Client(), adviceConfig(server.URL, "secret"), nil, nil)

	advice, err := svc.Attendance(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, advice.Fallback)
	assert.Equal(t, attendanceFallback, advice.Message)
}

func TestAdviceServiceEmptyCompletionFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.Contains(promptOf(t, r), "3 faltas consecutivas"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	svc := NewAdviceService(adviceStudents(), server.Client(), adviceConfig(server.URL, "k"), nil, nil)

	advice, err := svc.Attendance(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, advice.Fallback)
}

func TestAdviceServiceTimeoutFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	cfg := adviceConfig(server.URL, "k")
	cfg.Timeout = 20 * time.Millisecond
	svc := NewAdviceService(adviceStudents(), server.Client(), cfg, nil, nil)

	advice, err := svc.Reengagement(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, advice.Fallback)
	assert.Equal(t, reengagementFallback, advice.Message)
}

func TestAdviceServiceDisabled(t *testing.T) {
	svc := NewAdviceService(adviceStudents(), nil, AdviceConfig{}, nil, nil)

	advice, err := svc.Reengagement(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, advice.Fallback)

	_, err = svc.Attendance(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAdviceServiceNeverLogsAPIKey(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := adviceConfig("http://127.0.0.1:1", "SUPERSECRET123")
	cfg.Timeout = time.Second
	svc := NewAdviceService(adviceStudents(), nil, cfg, nil, zap.New(core))

	advice, err := svc.Attendance(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, advice.Fallback)

	entries := logs.All()
	require.NotEmpty(t, entries)
	for _, entry := range entries {
		assert.NotContains(t, entry.Message, "SUPERSECRET123")
		for key, value := range entry.ContextMap() {
			assert.NotContains(t, fmt.Sprint(value), "SUPERSECRET123", key)
		}
	}
}
