package models

import (
	"time"
)

type TransferStatus string

const (
	TransferStatusQueued    TransferStatus = "queued"
	TransferStatusCompleted TransferStatus = "completed"
)

// Transfer records a name that was handed to lftp, so a rescan does not queue it twice
type Transfer struct {
	ID          int64          `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Type        JobType        `json:"type" db:"kind"`
	RemotePath  string         `json:"remote_path" db:"remote_path"`
	LocalPath   string         `json:"local_path" db:"local_path"`
	Status      TransferStatus `json:"status" db:"status"`
	EnqueuedAt  time.Time      `json:"enqueued_at" db:"enqueued_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}

// Helper methods
func (t *Transfer) IsCompleted() bool {
	return t.Status == TransferStatusCompleted
}

func (t *Transfer) MarkCompleted() {
	now := time.Now()
	t.Status = TransferStatusCompleted
	t.CompletedAt = &now
}

// TransferFilter represents filtering options for transfer queries
type TransferFilter struct {
	Status    []TransferStatus `json:"status,omitempty"`
	Limit     int              `json:"limit,omitempty"`
	Offset    int              `json:"offset,omitempty"`
	SortBy    string           `json:"sort_by,omitempty"`
	SortOrder string           `json:"sort_order,omitempty"`
}

// TransferSummary represents aggregated transfer history statistics
type TransferSummary struct {
	TotalTransfers     int `json:"total_transfers"`
	QueuedTransfers    int `json:"queued_transfers"`
	CompletedTransfers int `json:"completed_transfers"`
}
