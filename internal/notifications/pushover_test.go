package notifications

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"seedpull/internal/config"
	"seedpull/internal/models"
	"seedpull/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

func createTestConfig(enabled bool) *config.Config {
	return &config.Config{
		Notifications: config.NotificationsConfig{
			Pushover: config.PushoverConfig{
				Enabled:       enabled,
				Token:         "test-token",
				User:          "test-user",
				Priority:      0,
				RetryInterval: 30 * time.Second,
				ExpireTime:    300 * time.Second,
			},
		},
	}
}

// capturingServer records the last request and answers with response
func capturingServer(t *testing.T, captured *pushoverRequest, response pushoverResponse) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "seedpull/1.0", r.Header.Get("User-Agent"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}))
}

func newTestNotifier(t *testing.T, enabled bool) (*PushoverNotifier, *pushoverRequest) {
	t.Helper()
	var captured pushoverRequest
	server := capturingServer(t, &captured, pushoverResponse{Status: 1, Request: "test-request-id"})
	t.Cleanup(server.Close)

	notifier := NewPushoverNotifier(createTestConfig(enabled), nil)
	notifier.apiURL = server.URL
	return notifier, &captured
}

func TestNewPushoverNotifier(t *testing.T) {
	cfg := createTestConfig(true)

	notifier := NewPushoverNotifier(cfg, nil)

	assert.NotNil(t, notifier)
	assert.Equal(t, cfg, notifier.config)
	assert.True(t, notifier.IsEnabled())
	assert.Equal(t, pushoverAPIURL, notifier.apiURL)
	assert.Equal(t, 30*time.Second, notifier.httpClient.Timeout)
}

func TestNotifySessionFailed_Mismatch(t *testing.T) {
	notifier, captured := newTestNotifier(t, true)

	cause := fmt.Errorf("%w: %w", session.ErrSessionFailed, &session.MismatchError{
		MissingLocally:  []string{"New.Show.S02"},
		MissingRemotely: []string{"Old.mkv"},
	})

	require.NoError(t, notifier.NotifySessionFailed("seedbox.example.com", cause))
	assert.Equal(t, 2, captured.Priority)
	assert.Equal(t, "siren", captured.Sound)
	assert.Equal(t, 30, captured.Retry)
	assert.Equal(t, 300, captured.Expire)
	assert.Equal(t, "Seedpull Alert: Session failed", captured.Title)
	assert.Contains(t, captured.Message, "Host: seedbox.example.com")
	assert.Contains(t, captured.Message, "Only on remote: New.Show.S02")
	assert.Contains(t, captured.Message, "Only in mirror: Old.mkv")
}

func TestNotifySessionFailed_OtherCause(t *testing.T) {
	notifier, captured := newTestNotifier(t, true)

	require.NoError(t, notifier.NotifySessionFailed("seedbox", session.ErrHostKeyRejected))
	assert.Equal(t, 1, captured.Priority)
	assert.Equal(t, "persistent", captured.Sound)
	assert.NotContains(t, captured.Message, "Only on remote")
}

func TestNotifyHostKeyRecovery(t *testing.T) {
	notifier, captured := newTestNotifier(t, true)

	require.NoError(t, notifier.NotifyHostKeyRecovery("seedbox.example.com"))
	assert.Equal(t, 0, captured.Priority)
	assert.Contains(t, captured.Message, "seedbox.example.com")
}

func TestNotifyTransferCompleted(t *testing.T) {
	notifier, captured := newTestNotifier(t, true)

	enqueued := time.Now().Add(-10 * time.Minute)
	completed := enqueued.Add(10 * time.Minute)
	transfer := &models.Transfer{
		ID:          7,
		Name:        "Movie.2016.mkv",
		Type:        models.JobTypePointTransfer,
		RemotePath:  "/home/user/files/Movie.2016.mkv",
		EnqueuedAt:  enqueued,
		CompletedAt: &completed,
	}

	require.NoError(t, notifier.NotifyTransferCompleted(transfer, 3*1024*1024*1024))
	assert.Equal(t, -1, captured.Priority)
	assert.Equal(t, "none", captured.Sound)
	assert.Contains(t, captured.Message, "Size: 3.0 GiB")
	assert.Contains(t, captured.Message, "Duration: 10m0s")
	assert.Contains(t, captured.Message, "Transfer ID: 7")
}

func TestDisabledNotifierSendsNothing(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	notifier := NewPushoverNotifier(createTestConfig(false), nil)
	notifier.apiURL = server.URL

	assert.NoError(t, notifier.NotifySessionFailed("host", errors.New("boom")))
	assert.NoError(t, notifier.NotifyHostKeyRecovery("host"))
	assert.NoError(t, notifier.NotifyTransferCompleted(&models.Transfer{Name: "a"}, 0))
	assert.NoError(t, notifier.NotifySystemAlert("t", "m", 0))
	assert.False(t, called)
}

func TestNotifySystemAlert_Priorities(t *testing.T) {
	tests := []struct {
		name          string
		priority      int
		expectedSound string
		hasRetry      bool
	}{
		{"lowest priority", -2, "none", false},
		{"low priority", -1, "none", false},
		{"normal priority", 0, "pushover", false},
		{"high priority", 1, "persistent", false},
		{"emergency priority", 2, "siren", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier, captured := newTestNotifier(t, true)

			err := notifier.NotifySystemAlert("Test", "Test message", tt.priority)

			assert.NoError(t, err)
			assert.Equal(t, tt.expectedSound, captured.Sound)
			assert.Equal(t, tt.priority, captured.Priority)

			if tt.hasRetry {
				assert.Equal(t, 30, captured.Retry)
				assert.Equal(t, 300, captured.Expire)
			} else {
				assert.Equal(t, 0, captured.Retry)
				assert.Equal(t, 0, captured.Expire)
			}
		})
	}
}

func TestSendNotification_APIError(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(pushoverResponse{
			Status: 0,
			Errors: []string{"invalid token", "user not found"},
		})
	}))
	defer mockServer.Close()

	notifier := NewPushoverNotifier(createTestConfig(true), nil)
	notifier.apiURL = mockServer.URL

	err := notifier.sendNotification(pushoverRequest{Token: "invalid-token", User: "invalid-user", Message: "Test"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pushover API error")
	assert.Contains(t, err.Error(), "invalid token")
}

func TestSendNotification_HTTPError(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer mockServer.Close()

	notifier := NewPushoverNotifier(createTestConfig(true), nil)
	notifier.apiURL = mockServer.URL

	err := notifier.sendNotification(pushoverRequest{Message: "Test"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode pushover response")
}
