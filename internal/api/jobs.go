package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"seedpull/internal/controller"
	"seedpull/internal/models"
	"seedpull/internal/sanitizer"
	"seedpull/internal/session"
)

type CreateJobRequest struct {
	Filename string `json:"filename"`
}

// GetJobs returns the jobs from the latest status poll
func (h *Handlers) GetJobs(w http.ResponseWriter, r *http.Request) {
	snap := h.controller.Snapshot()

	jobs := snap.Jobs
	if r.URL.Query().Get("running") == "true" {
		running := make([]models.Job, 0, len(jobs))
		for _, job := range jobs {
			if job.IsRunning {
				running = append(running, job)
			}
		}
		jobs = running
	}

	h.writeSuccess(w, http.StatusOK, jobs, "")
}

// GetLiveJobs asks lftp for a fresh report. Requests faster than the status
// interval get the cached one.
func (h *Handlers) GetLiveJobs(w http.ResponseWriter, r *http.Request) {
	snap := h.controller.Refresh(r.Context())
	h.writeSuccess(w, http.StatusOK, snap, "")
}

func (h *Handlers) GetQueue(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, http.StatusOK, h.controller.Snapshot().Queue, "")
}

func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	if !h.enqueueLimiter.Allow() {
		w.Header().Set("Retry-After", "1")
		h.writeError(w, http.StatusTooManyRequests, "too many requests", nil)
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON payload", err)
		return
	}

	if strings.TrimSpace(req.Filename) == "" {
		h.writeError(w, http.StatusBadRequest, "filename is required", nil)
		return
	}

	transfer, err := h.controller.RequestTransfer(r.Context(), req.Filename)
	if err != nil {
		status, message := classifyEnqueueError(err)
		h.writeError(w, status, message, err)
		return
	}

	h.writeSuccess(w, http.StatusCreated, transfer, "Transfer queued successfully")
}

func classifyEnqueueError(err error) (int, string) {
	switch {
	case errors.Is(err, sanitizer.ErrEmptyPath),
		errors.Is(err, sanitizer.ErrAbsolutePath),
		errors.Is(err, sanitizer.ErrEscapesRoot):
		return http.StatusBadRequest, "Invalid filename"
	case errors.Is(err, controller.ErrNotOnRemote):
		return http.StatusNotFound, "File not found on remote"
	case errors.Is(err, controller.ErrInsufficientDisk):
		return http.StatusInsufficientStorage, "Not enough free space on destination"
	case errors.Is(err, session.ErrSessionFailed),
		errors.Is(err, session.ErrSessionClosed),
		errors.Is(err, session.ErrNotStarted),
		errors.Is(err, session.ErrSessionRecovering),
		errors.Is(err, session.ErrCommandTimeout):
		return http.StatusServiceUnavailable, "Transfer session unavailable"
	default:
		return http.StatusInternalServerError, "Failed to queue transfer"
	}
}

func (h *Handlers) GetJobSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.controller.Summary()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to get job summary", err)
		return
	}

	h.writeSuccess(w, http.StatusOK, summary, "")
}

func (h *Handlers) GetTransfers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := models.TransferFilter{Limit: 50}

	if statusStr := query.Get("status"); statusStr != "" {
		filter.Status = []models.TransferStatus{models.TransferStatus(statusStr)}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 1000 {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	filter.SortBy = query.Get("sort_by")
	filter.SortOrder = query.Get("sort_order")

	transfers, err := h.controller.Transfers(filter)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to get transfers", err)
		return
	}
	if transfers == nil {
		transfers = []*models.Transfer{}
	}

	h.writeSuccess(w, http.StatusOK, transfers, "")
}
