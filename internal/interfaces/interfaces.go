package interfaces

import (
	"context"
	"time"

	"seedpull/internal/jobstatus"
	"seedpull/internal/models"
	"seedpull/internal/session"
)

// Session is the part of the lftp supervisor the controller drives
type Session interface {
	Plan(relativePath string) (*session.Plan, error)
	EnqueuePlan(ctx context.Context, plan *session.Plan) error
	StatusReport(ctx context.Context) (jobstatus.Report, error)
	State() session.State
	Err() error
	SessionID() string
}

// TransferRepository provides database access for transfer history
type TransferRepository interface {
	RecordEnqueued(transfer *models.Transfer) error
	HasTransfer(name string) (bool, error)
	GetTransfer(name string) (*models.Transfer, error)
	MarkCompleted(name string) (bool, error)
	ListTransfers(filter models.TransferFilter) ([]*models.Transfer, error)
	GetTransferSummary() (*models.TransferSummary, error)
}

// Notifier sends operator alerts
type Notifier interface {
	NotifySessionFailed(host string, cause error) error
	NotifyHostKeyRecovery(host string) error
	NotifyTransferCompleted(transfer *models.Transfer, size int64) error
	NotifySystemAlert(title, message string, priority int) error
}

// ResourceChecker checks the destination before transfers are queued
type ResourceChecker interface {
	CanScheduleTransfer() bool
	GetResourceStatus() ResourceStatus
}

// ResourceStatus represents free space on the download destination
type ResourceStatus struct {
	Path               string    `json:"path"`
	DiskFreeBytes      int64     `json:"disk_free_bytes"`
	DiskTotalBytes     int64     `json:"disk_total_bytes"`
	MinFreeBytes       int64     `json:"min_free_bytes"`
	DiskSpaceAvailable bool      `json:"disk_space_available"`
	CheckError         string    `json:"check_error,omitempty"`
	LastChecked        time.Time `json:"last_checked"`
}
