package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"seedpull/internal/config"
	"seedpull/internal/controller"
	"seedpull/internal/mocks"
	"seedpull/internal/models"
	"seedpull/internal/sanitizer"
	"seedpull/internal/session"
)

func testSnapshot() controller.Snapshot {
	percent := 42
	return controller.Snapshot{
		Jobs: []models.Job{
			{ID: 1, Type: models.JobTypePointTransfer, Filename: "/home/user/files/a.mkv", IsRunning: true,
				TransferState: &models.TransferState{Percent: &percent}},
			{ID: 2, Type: models.JobTypeTreeMirror, Filename: "/home/user/files/Show.S01"},
		},
		Queue: []models.QueueEntry{{Position: 1, Command: "queue pget -c -O /data /home/user/files/b.mkv"}},
		State: "ready",
	}
}

func TestCreateJob_Success(t *testing.T) {
	h, mockController, _ := setupTestHandlers(t)

	mockController.EXPECT().
		RequestTransfer(mock.Anything, "a.mkv").
		Return(&models.Transfer{ID: 123, Name: "a.mkv", Type: models.JobTypePointTransfer}, nil).
		Once()

	req := httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader(`{"filename":"a.mkv"}`))
	rec := httptest.NewRecorder()

	h.CreateJob(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	response := decodeResponse(t, rec)
	assert.True(t, response.Success)
	assert.Equal(t, "Transfer queued successfully", response.Message)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(123), data["id"])
}

func TestCreateJob_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"filename":`},
		{"missing filename", `{}`},
		{"blank filename", `{"filename":"   "}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h, _, _ := setupTestHandlers(t)

			req := httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader(test.body))
			rec := httptest.NewRecorder()

			h.CreateJob(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, decodeResponse(t, rec).Success)
		})
	}
}

func TestCreateJob_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"escapes root", fmt.Errorf("plan: %w", sanitizer.ErrEscapesRoot), http.StatusBadRequest},
		{"absolute", sanitizer.ErrAbsolutePath, http.StatusBadRequest},
		{"not on remote", controller.ErrNotOnRemote, http.StatusNotFound},
		{"low disk", controller.ErrInsufficientDisk, http.StatusInsufficientStorage},
		{"session failed", session.ErrSessionFailed, http.StatusServiceUnavailable},
		{"recovering", session.ErrSessionRecovering, http.StatusServiceUnavailable},
		{"not started", session.ErrNotStarted, http.StatusServiceUnavailable},
		{"timeout", session.ErrCommandTimeout, http.StatusServiceUnavailable},
		{"other", errors.New("database is locked"), http.StatusInternalServerError},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h, mockController, _ := setupTestHandlers(t)
			mockController.EXPECT().RequestTransfer(mock.Anything, "x").Return(nil, test.err).Once()

			req := httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader(`{"filename":"x"}`))
			rec := httptest.NewRecorder()

			h.CreateJob(rec, req)

			assert.Equal(t, test.status, rec.Code)
		})
	}
}

func TestCreateJob_RateLimited(t *testing.T) {
	mockController := mocks.NewMockJobController(t)
	cfg := &config.Config{API: config.APIConfig{EnqueueRatePerSecond: 0.001, EnqueueBurst: 1}}
	h := NewHandlers(mockController, nil, cfg, nil)

	mockController.EXPECT().
		RequestTransfer(mock.Anything, "a.mkv").
		Return(&models.Transfer{Name: "a.mkv"}, nil).
		Once()

	rec := httptest.NewRecorder()
	h.CreateJob(rec, httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader(`{"filename":"a.mkv"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.CreateJob(rec, httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader(`{"filename":"a.mkv"}`)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestGetJobs(t *testing.T) {
	h, mockController, _ := setupTestHandlers(t)
	mockController.EXPECT().Snapshot().Return(testSnapshot())

	rec := httptest.NewRecorder()
	h.GetJobs(rec, httptest.NewRequest("GET", "/api/v1/jobs", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	jobs, ok := decodeResponse(t, rec).Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, jobs, 2)

	rec = httptest.NewRecorder()
	h.GetJobs(rec, httptest.NewRequest("GET", "/api/v1/jobs?running=true", nil))

	jobs, ok = decodeResponse(t, rec).Data.([]interface{})
	require.True(t, ok)
	require.Len(t, jobs, 1)
	job := jobs[0].(map[string]interface{})
	assert.Equal(t, float64(1), job["id"])
	assert.Equal(t, float64(42), job["transfer_state"].(map[string]interface{})["percent"])
}

func TestGetLiveJobs(t *testing.T) {
	h, mockController, _ := setupTestHandlers(t)
	mockController.EXPECT().Refresh(mock.Anything).Return(testSnapshot()).Once()

	rec := httptest.NewRecorder()
	h.GetLiveJobs(rec, httptest.NewRequest("GET", "/api/v1/jobs/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	data, ok := decodeResponse(t, rec).Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ready", data["state"])
	assert.Len(t, data["jobs"], 2)
}

func TestGetQueue(t *testing.T) {
	h, mockController, _ := setupTestHandlers(t)
	mockController.EXPECT().Snapshot().Return(testSnapshot()).Once()

	rec := httptest.NewRecorder()
	h.GetQueue(rec, httptest.NewRequest("GET", "/api/v1/jobs/queue", nil))

	queue, ok := decodeResponse(t, rec).Data.([]interface{})
	require.True(t, ok)
	require.Len(t, queue, 1)
	assert.Equal(t, float64(1), queue[0].(map[string]interface{})["position"])
}

func TestGetJobSummary_Success(t *testing.T) {
	h, mockController, _ := setupTestHandlers(t)

	mockController.EXPECT().
		Summary().
		Return(&models.JobSummary{InProgress: 2, Queued: 1, Completed: 10, BytesRemaining: 4096}, nil).
		Once()

	rec := httptest.NewRecorder()
	h.GetJobSummary(rec, httptest.NewRequest("GET", "/api/v1/jobs/summary", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	data, ok := decodeResponse(t, rec).Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["in_progress"])
	assert.Equal(t, float64(10), data["completed"])
	assert.Equal(t, float64(4096), data["bytes_remaining"])
}

func TestGetJobSummary_Error(t *testing.T) {
	h, mockController, _ := setupTestHandlers(t)
	mockController.EXPECT().Summary().Return(nil, errors.New("database error")).Once()

	rec := httptest.NewRecorder()
	h.GetJobSummary(rec, httptest.NewRequest("GET", "/api/v1/jobs/summary", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetTransfers(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected models.TransferFilter
	}{
		{"defaults", "", models.TransferFilter{Limit: 50}},
		{"filters", "?status=completed&limit=10&offset=20&sort_by=name&sort_order=asc",
			models.TransferFilter{
				Status: []models.TransferStatus{models.TransferStatusCompleted},
				Limit:  10, Offset: 20, SortBy: "name", SortOrder: "asc",
			}},
		{"out of range", "?limit=5000&offset=-1", models.TransferFilter{Limit: 50}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h, mockController, _ := setupTestHandlers(t)
			mockController.EXPECT().Transfers(test.expected).Return(nil, nil).Once()

			rec := httptest.NewRecorder()
			h.GetTransfers(rec, httptest.NewRequest("GET", "/api/v1/transfers"+test.query, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			data, ok := decodeResponse(t, rec).Data.([]interface{})
			require.True(t, ok)
			assert.Empty(t, data)
		})
	}
}

func TestGetTransfers_Error(t *testing.T) {
	h, mockController, _ := setupTestHandlers(t)
	mockController.EXPECT().Transfers(mock.Anything).Return(nil, errors.New("database error")).Once()

	rec := httptest.NewRecorder()
	h.GetTransfers(rec, httptest.NewRequest("GET", "/api/v1/transfers", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
