package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"seedpull/internal/config"
	"seedpull/internal/models"
	"seedpull/internal/session"
)

type PushoverNotifier struct {
	config     *config.Config
	httpClient *http.Client
	enabled    bool
	apiURL     string
	logger     *slog.Logger
}

type pushoverRequest struct {
	Token     string `json:"token"`
	User      string `json:"user"`
	Message   string `json:"message"`
	Title     string `json:"title,omitempty"`
	Priority  int    `json:"priority,omitempty"`
	URL       string `json:"url,omitempty"`
	URLTitle  string `json:"url_title,omitempty"`
	Device    string `json:"device,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Sound     string `json:"sound,omitempty"`
	Retry     int    `json:"retry,omitempty"`
	Expire    int    `json:"expire,omitempty"`
}

type pushoverResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors,omitempty"`
	Receipt string   `json:"receipt,omitempty"`
}

const pushoverAPIURL = "https://api.pushover.net/1/messages.json"

func NewPushoverNotifier(cfg *config.Config, logger *slog.Logger) *PushoverNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &PushoverNotifier{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		enabled: cfg.GetNotifications().Pushover.Enabled,
		apiURL:  pushoverAPIURL,
		logger:  logger.With("component", "notifications"),
	}
}

func (p *PushoverNotifier) IsEnabled() bool {
	return p.enabled
}

// NotifySessionFailed reports a session that can no longer run. A listing
// mismatch is sent at emergency priority.
func (p *PushoverNotifier) NotifySessionFailed(host string, cause error) error {
	if !p.enabled {
		return nil
	}

	priority := 1
	var mismatch *session.MismatchError
	if errors.As(cause, &mismatch) {
		priority = 2
	}

	return p.NotifySystemAlert("Session failed", buildSessionFailedMessage(host, cause), priority)
}

func (p *PushoverNotifier) NotifyHostKeyRecovery(host string) error {
	if !p.enabled {
		return nil
	}

	message := fmt.Sprintf("Host key for %s was rejected.\nThe key has been re-seeded into known_hosts and the session is re-verifying.", host)
	return p.NotifySystemAlert("Host key re-seeded", message, 0)
}

// NotifyTransferCompleted announces a finished download at low priority
func (p *PushoverNotifier) NotifyTransferCompleted(transfer *models.Transfer, size int64) error {
	if !p.enabled {
		return nil
	}

	cfg := p.config.GetNotifications().Pushover

	req := pushoverRequest{
		Token:     cfg.Token,
		User:      cfg.User,
		Message:   buildTransferCompletedMessage(transfer, size),
		Title:     fmt.Sprintf("Seedpull Transfer Completed: %s", transfer.Name),
		Priority:  -1,
		Timestamp: time.Now().Unix(),
		Sound:     "none",
	}

	return p.sendNotification(req)
}

func (p *PushoverNotifier) NotifySystemAlert(title, message string, priority int) error {
	if !p.enabled {
		return nil
	}

	cfg := p.config.GetNotifications().Pushover

	req := pushoverRequest{
		Token:     cfg.Token,
		User:      cfg.User,
		Message:   message,
		Title:     fmt.Sprintf("Seedpull Alert: %s", title),
		Priority:  priority,
		Timestamp: time.Now().Unix(),
		Sound:     "pushover",
	}

	switch priority {
	case -2, -1:
		req.Sound = "none"
	case 1:
		req.Sound = "persistent"
	case 2:
		req.Sound = "siren"
		req.Retry = int(cfg.RetryInterval.Seconds())
		req.Expire = int(cfg.ExpireTime.Seconds())
	}

	return p.sendNotification(req)
}

func (p *PushoverNotifier) sendNotification(req pushoverRequest) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal pushover request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "seedpull/1.0")

	p.logger.Debug("sending pushover notification",
		"title", req.Title,
		"priority", req.Priority)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send pushover notification: %w", err)
	}
	defer resp.Body.Close()

	var pushoverResp pushoverResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushoverResp); err != nil {
		return fmt.Errorf("failed to decode pushover response: %w", err)
	}

	if pushoverResp.Status != 1 {
		return fmt.Errorf("pushover API error: %s", strings.Join(pushoverResp.Errors, ", "))
	}

	p.logger.Info("pushover notification sent successfully",
		"request_id", pushoverResp.Request,
		"receipt", pushoverResp.Receipt)

	return nil
}

func buildSessionFailedMessage(host string, cause error) string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("Host: %s\n", host))
	msg.WriteString(fmt.Sprintf("Error: %v\n", cause))

	var mismatch *session.MismatchError
	if errors.As(cause, &mismatch) {
		if len(mismatch.MissingLocally) > 0 {
			msg.WriteString(fmt.Sprintf("Only on remote: %s\n", strings.Join(mismatch.MissingLocally, ", ")))
		}
		if len(mismatch.MissingRemotely) > 0 {
			msg.WriteString(fmt.Sprintf("Only in mirror: %s\n", strings.Join(mismatch.MissingRemotely, ", ")))
		}
	}

	msg.WriteString("Seedpull has stopped queueing transfers.")
	return msg.String()
}

func buildTransferCompletedMessage(transfer *models.Transfer, size int64) string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("Name: %s\n", transfer.Name))
	msg.WriteString(fmt.Sprintf("Type: %s\n", transfer.Type))
	msg.WriteString(fmt.Sprintf("Remote Path: %s\n", transfer.RemotePath))

	if size > 0 {
		msg.WriteString(fmt.Sprintf("Size: %s\n", humanize.IBytes(uint64(size))))
	}

	if transfer.CompletedAt != nil && !transfer.EnqueuedAt.IsZero() {
		msg.WriteString(fmt.Sprintf("Duration: %s\n", transfer.CompletedAt.Sub(transfer.EnqueuedAt).Round(time.Second)))
	}

	msg.WriteString(fmt.Sprintf("Transfer ID: %d", transfer.ID))
	return msg.String()
}
