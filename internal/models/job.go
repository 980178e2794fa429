package models

import (
	"fmt"
)

type JobType string

const (
	// JobTypePointTransfer is a single file download (lftp pget)
	JobTypePointTransfer JobType = "pget"
	// JobTypeTreeMirror is a recursive directory download (lftp mirror)
	JobTypeTreeMirror JobType = "mirror"
)

func (t JobType) String() string {
	return string(t)
}

// ParseJobType maps an lftp command word onto a JobType
func ParseJobType(s string) (JobType, error) {
	switch JobType(s) {
	case JobTypePointTransfer, JobTypeTreeMirror:
		return JobType(s), nil
	default:
		return "", fmt.Errorf("unknown job type %q", s)
	}
}

// TransferState is a progress snapshot for one job. Nil fields were not reported.
type TransferState struct {
	LocalSize  *int64  `json:"local_size"`
	RemoteSize *int64  `json:"remote_size"`
	Percent    *int    `json:"percent"`
	Speed      *string `json:"speed"`
	ETA        *int64  `json:"eta"`
}

// Job is one entry of a `jobs -v` report
type Job struct {
	ID            int            `json:"id"`
	Type          JobType        `json:"type"`
	Filename      string         `json:"filename"`
	Flags         string         `json:"flags"`
	TransferState *TransferState `json:"transfer_state"`
	IsRunning     bool           `json:"is_running"`
}

// QueueEntry is a command waiting in lftp's command queue
type QueueEntry struct {
	Position int      `json:"position"`
	Command  string   `json:"command"`
	Type     *JobType `json:"type,omitempty"`
}

// Helper methods
func (j Job) HasProgress() bool {
	return j.TransferState != nil && j.TransferState.LocalSize != nil && j.TransferState.RemoteSize != nil
}

// Remaining returns the bytes still to transfer, or -1 when sizes are unknown
func (j Job) Remaining() int64 {
	if !j.HasProgress() {
		return -1
	}
	return *j.TransferState.RemoteSize - *j.TransferState.LocalSize
}

// Clone returns a deep copy so snapshots handed out never share pointers
func (j Job) Clone() Job {
	if j.TransferState == nil {
		return j
	}
	ts := *j.TransferState
	ts.LocalSize = cloneInt64(ts.LocalSize)
	ts.RemoteSize = cloneInt64(ts.RemoteSize)
	ts.ETA = cloneInt64(ts.ETA)
	if ts.Percent != nil {
		p := *ts.Percent
		ts.Percent = &p
	}
	if ts.Speed != nil {
		s := *ts.Speed
		ts.Speed = &s
	}
	j.TransferState = &ts
	return j
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// JobSummary represents aggregated counts for the dashboard cards
type JobSummary struct {
	InProgress     int   `json:"in_progress"`
	Queued         int   `json:"queued"`
	Completed      int   `json:"completed"`
	BytesRemaining int64 `json:"bytes_remaining"`
	PointTransfers int   `json:"point_transfers"`
	TreeMirrors    int   `json:"tree_mirrors"`
}
