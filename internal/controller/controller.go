// Package controller decides what to download and keeps the latest view of
// lftp's jobs. It turns new entries on the remote mount into queued transfers
// and marks them completed once they land in the local directory.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"seedpull/internal/config"
	"seedpull/internal/interfaces"
	"seedpull/internal/metrics"
	"seedpull/internal/models"
	"seedpull/internal/repository"
	"seedpull/internal/scanner"
	"seedpull/internal/session"
)

var (
	ErrNotOnRemote      = errors.New("path not found on remote mount")
	ErrInsufficientDisk = errors.New("not enough free space on destination")
)

// Snapshot is the latest status report together with the session state
type Snapshot struct {
	Jobs      []models.Job        `json:"jobs"`
	Queue     []models.QueueEntry `json:"queue"`
	Skipped   int                 `json:"skipped"`
	State     string              `json:"state"`
	SessionID string              `json:"session_id,omitempty"`
	Error     string              `json:"error,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func (s Snapshot) clone() Snapshot {
	jobs := make([]models.Job, len(s.Jobs))
	for i, job := range s.Jobs {
		jobs[i] = job.Clone()
	}
	s.Jobs = jobs
	s.Queue = append([]models.QueueEntry(nil), s.Queue...)
	return s
}

type Option func(*Controller)

func WithNotifier(notifier interfaces.Notifier) Option {
	return func(c *Controller) { c.notifier = notifier }
}

func WithResourceChecker(checker interfaces.ResourceChecker) Option {
	return func(c *Controller) { c.resources = checker }
}

// WithWatchers replaces the remote mount and local directory watchers
func WithWatchers(remote, local scanner.Watcher) Option {
	return func(c *Controller) {
		c.remote = remote
		c.local = local
	}
}

type Controller struct {
	cfg       *config.Config
	session   interfaces.Session
	repo      interfaces.TransferRepository
	logger    *slog.Logger
	notifier  interfaces.Notifier
	resources interfaces.ResourceChecker

	remote scanner.Watcher
	local  scanner.Watcher

	// shared by the poll loop and live requests so lftp is never asked
	// for status more often than the configured interval
	limiter *rate.Limiter

	mu       sync.RWMutex
	snapshot Snapshot
	// when the last successful status request was issued; a transfer
	// enqueued after it may already exist locally while still running
	reportedAt  time.Time
	lastRemote  []string
	localNames  map[string]struct{}
	subscribers map[chan Snapshot]struct{}

	enqueueMu sync.Mutex
	wg        sync.WaitGroup
}

func New(cfg *config.Config, sess interfaces.Session, repo interfaces.TransferRepository, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "controller")

	sessionCfg := cfg.GetSession()
	scannerCfg := cfg.GetScanner()
	interval := cfg.GetController().StatusInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	c := &Controller{
		cfg:         cfg,
		session:     sess,
		repo:        repo,
		logger:      logger,
		remote:      scanner.NewPollingWatcher(filepath.Join(sessionCfg.MirrorPath, sessionCfg.RemoteSubdir), scannerCfg.PollInterval, logger),
		limiter:     rate.NewLimiter(rate.Every(interval), 1),
		localNames:  make(map[string]struct{}),
		subscribers: make(map[chan Snapshot]struct{}),
		snapshot:    Snapshot{State: sess.State().String(), Jobs: []models.Job{}, Queue: []models.QueueEntry{}},
	}
	if scannerCfg.WatchLocal {
		c.local = scanner.NewFSNotifyWatcher(sessionCfg.LocalDir, logger)
	} else {
		c.local = scanner.NewPollingWatcher(sessionCfg.LocalDir, scannerCfg.PollInterval, logger)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run watches both directories and polls lftp until ctx is done
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("Controller started",
		"auto_enqueue", c.cfg.GetController().AutoEnqueue,
		"status_interval", c.cfg.GetController().StatusInterval)

	c.wg.Add(3)
	go func() {
		defer c.wg.Done()
		c.watch(ctx, "local", c.local, c.handleLocalChange)
	}()
	go func() {
		defer c.wg.Done()
		c.watch(ctx, "remote", c.remote, func(names []string) { c.handleRemoteChange(ctx, names) })
	}()
	go func() {
		defer c.wg.Done()
		c.pollLoop(ctx)
	}()

	c.wg.Wait()
	c.logger.Info("Controller stopped")
	return nil
}

func (c *Controller) watch(ctx context.Context, name string, watcher scanner.Watcher, onChange func([]string)) {
	for {
		err := watcher.Watch(ctx, onChange)
		if ctx.Err() != nil {
			return
		}
		c.logger.Error("Watcher stopped, restarting", "watcher", name, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (c *Controller) pollLoop(ctx context.Context) {
	interval := c.cfg.GetController().StatusInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.limiter.Allow() {
				c.refresh(ctx)
			}
		}
	}
}

// Refresh asks lftp for a fresh report when the rate limit allows and
// returns the latest snapshot either way.
func (c *Controller) Refresh(ctx context.Context) Snapshot {
	if c.limiter.Allow() {
		c.refresh(ctx)
	}
	return c.Snapshot()
}

func (c *Controller) refresh(ctx context.Context) {
	state := c.session.State()
	if state != session.StateReady {
		c.mu.Lock()
		c.snapshot.State = state.String()
		if err := c.session.Err(); err != nil {
			c.snapshot.Error = err.Error()
		}
		snap := c.snapshot.clone()
		c.mu.Unlock()
		c.publish(snap)
		return
	}

	requested := time.Now().UTC()
	report, err := c.session.StatusReport(ctx)

	c.mu.Lock()
	c.snapshot.State = c.session.State().String()
	c.snapshot.SessionID = c.session.SessionID()
	c.snapshot.UpdatedAt = time.Now().UTC()
	if err != nil {
		c.snapshot.Error = err.Error()
	} else {
		c.reportedAt = requested
		c.snapshot.Error = ""
		c.snapshot.Jobs = report.Jobs
		c.snapshot.Queue = report.Queue
		c.snapshot.Skipped = report.Skipped
		if c.snapshot.Jobs == nil {
			c.snapshot.Jobs = []models.Job{}
		}
		if c.snapshot.Queue == nil {
			c.snapshot.Queue = []models.QueueEntry{}
		}
	}
	snap := c.snapshot.clone()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("Failed to refresh job status", "error", err)
	} else {
		metrics.QueuedCommands.Set(float64(len(report.Queue)))
		c.reconcile()
	}
	c.publish(snap)
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.clone()
}

func (c *Controller) Jobs() []models.Job {
	return c.Snapshot().Jobs
}

func (c *Controller) Queue() []models.QueueEntry {
	return c.Snapshot().Queue
}

// Summary counts running jobs, queued commands and completed transfers
func (c *Controller) Summary() (*models.JobSummary, error) {
	snap := c.Snapshot()

	summary := &models.JobSummary{Queued: len(snap.Queue)}
	for _, job := range snap.Jobs {
		if !job.IsRunning {
			continue
		}
		summary.InProgress++
		switch job.Type {
		case models.JobTypePointTransfer:
			summary.PointTransfers++
		case models.JobTypeTreeMirror:
			summary.TreeMirrors++
		}
		if remaining := job.Remaining(); remaining > 0 {
			summary.BytesRemaining += remaining
		}
	}

	history, err := c.repo.GetTransferSummary()
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer summary: %w", err)
	}
	summary.Completed = history.CompletedTransfers

	return summary, nil
}

func (c *Controller) Transfers(filter models.TransferFilter) ([]*models.Transfer, error) {
	return c.repo.ListTransfers(filter)
}

// RequestTransfer queues name regardless of history. It fails with
// ErrNotOnRemote when the name is not on the remote mount.
func (c *Controller) RequestTransfer(ctx context.Context, name string) (*models.Transfer, error) {
	c.enqueueMu.Lock()
	defer c.enqueueMu.Unlock()
	return c.enqueue(ctx, name)
}

func (c *Controller) enqueue(ctx context.Context, name string) (*models.Transfer, error) {
	if c.resources != nil && !c.resources.CanScheduleTransfer() {
		return nil, ErrInsufficientDisk
	}

	plan, err := c.session.Plan(name)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNotOnRemote)
	}

	if err := c.session.EnqueuePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to queue %s: %w", plan.RelativePath, err)
	}
	metrics.TransfersEnqueuedTotal.Inc()

	transfer := &models.Transfer{
		Name:       plan.RelativePath,
		Type:       plan.Kind,
		RemotePath: plan.RemotePath,
		LocalPath:  c.cfg.GetSession().LocalDir,
	}
	if err := c.repo.RecordEnqueued(transfer); err != nil {
		return nil, fmt.Errorf("failed to record transfer: %w", err)
	}

	c.logger.Info("Transfer queued", "name", transfer.Name, "kind", transfer.Type)
	return transfer, nil
}

func (c *Controller) handleRemoteChange(ctx context.Context, names []string) {
	c.mu.Lock()
	added := scanner.Diff(c.lastRemote, names)
	c.lastRemote = names
	c.mu.Unlock()

	if len(added) > 0 {
		c.logger.Debug("Remote entries appeared", "names", added)
	}

	if !c.cfg.GetController().AutoEnqueue {
		return
	}

	c.enqueueMu.Lock()
	defer c.enqueueMu.Unlock()

	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		if c.isLocal(name) {
			continue
		}

		known, err := c.repo.HasTransfer(name)
		if err != nil {
			c.logger.Error("Failed to check transfer history", "name", name, "error", err)
			continue
		}
		if known {
			continue
		}

		if _, err := c.enqueue(ctx, name); err != nil {
			if errors.Is(err, ErrInsufficientDisk) {
				c.logger.Warn("Destination is low on space, holding new transfers", "name", name)
				return
			}
			c.logger.Error("Failed to queue transfer", "name", name, "error", err)
		}
	}
}

func (c *Controller) handleLocalChange(names []string) {
	local := make(map[string]struct{}, len(names))
	for _, name := range names {
		local[name] = struct{}{}
	}

	c.mu.Lock()
	c.localNames = local
	c.mu.Unlock()

	c.reconcile()
}

func (c *Controller) isLocal(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.localNames[name]
	return ok
}

// reconcile marks queued transfers completed once they are present locally
// and lftp no longer mentions them.
func (c *Controller) reconcile() {
	queued, err := c.repo.ListTransfers(models.TransferFilter{
		Status: []models.TransferStatus{models.TransferStatusQueued},
	})
	if err != nil {
		c.logger.Error("Failed to list queued transfers", "error", err)
		return
	}

	c.mu.RLock()
	var done []*models.Transfer
	for _, transfer := range queued {
		if _, ok := c.localNames[transfer.Name]; !ok {
			continue
		}
		if !c.reportedAt.After(transfer.EnqueuedAt) {
			continue
		}
		if c.activeLocked(transfer.Name) {
			continue
		}
		done = append(done, transfer)
	}
	c.mu.RUnlock()

	for _, transfer := range done {
		changed, err := c.repo.MarkCompleted(transfer.Name)
		if err != nil {
			c.logger.Error("Failed to mark transfer completed", "name", transfer.Name, "error", err)
			continue
		}
		if !changed {
			continue
		}
		transfer.MarkCompleted()
		c.logger.Info("Transfer completed", "name", transfer.Name)

		if c.notifier != nil {
			size := localSize(filepath.Join(c.cfg.GetSession().LocalDir, transfer.Name))
			if err := c.notifier.NotifyTransferCompleted(transfer, size); err != nil {
				c.logger.Warn("Failed to send completion notification", "name", transfer.Name, "error", err)
			}
		}
	}
}

// activeLocked reports whether the latest snapshot still has lftp working
// on name. The caller holds c.mu.
func (c *Controller) activeLocked(name string) bool {
	for _, job := range c.snapshot.Jobs {
		if job.IsRunning && path.Base(job.Filename) == name {
			return true
		}
	}
	for _, entry := range c.snapshot.Queue {
		if strings.Contains(entry.Command, name) {
			return true
		}
	}
	return false
}

// HandleSessionState is registered as the supervisor's state hook
func (c *Controller) HandleSessionState(state session.State, err error) {
	c.mu.Lock()
	c.snapshot.State = state.String()
	if err != nil {
		c.snapshot.Error = err.Error()
	} else if state == session.StateReady {
		c.snapshot.Error = ""
	}
	snap := c.snapshot.clone()
	c.mu.Unlock()
	c.publish(snap)

	if c.notifier == nil {
		return
	}

	host := c.cfg.GetSession().Hostname
	switch {
	case state == session.StateFailed && !errors.Is(err, session.ErrSessionClosed):
		go c.notify("session failed", func() error { return c.notifier.NotifySessionFailed(host, err) })
	case state == session.StateRecovering && errors.Is(err, session.ErrHostKeyRejected):
		go c.notify("host key recovery", func() error { return c.notifier.NotifyHostKeyRecovery(host) })
	}
}

func (c *Controller) notify(what string, send func() error) {
	if err := send(); err != nil {
		c.logger.Warn("Failed to send notification", "notification", what, "error", err)
	}
}

// Subscribe returns a channel that receives every new snapshot. Slow
// subscribers only ever see the most recent one.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, ch)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) publish(snap Snapshot) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func localSize(p string) int64 {
	var total int64
	_ = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}

var _ interfaces.TransferRepository = (*repository.Repository)(nil)
var _ interfaces.Session = (*session.Supervisor)(nil)
