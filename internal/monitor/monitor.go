package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"seedpull/internal/config"
	"seedpull/internal/interfaces"
	"seedpull/internal/units"
)

// Monitor tracks free space on the download destination
type Monitor struct {
	config *config.Config
	logger *slog.Logger

	mu                sync.RWMutex
	lastResourceCheck time.Time
	resourceStatus    interfaces.ResourceStatus

	statfs func(path string, stat *unix.Statfs_t) error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg *config.Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Monitor{
		config: cfg,
		logger: logger.With("component", "monitor"),
		statfs: unix.Statfs,
		ctx:    ctx,
		cancel: cancel,
	}

	m.updateResourceStatus()

	return m
}

func (m *Monitor) Start() error {
	m.wg.Add(1)
	go m.monitorLoop()
	m.logger.Info("resource monitor started")
	return nil
}

func (m *Monitor) Stop() error {
	m.cancel()
	m.wg.Wait()
	m.logger.Info("resource monitor stopped")
	return nil
}

func (m *Monitor) GetResourceStatus() interfaces.ResourceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resourceStatus
}

// CanScheduleTransfer reports whether the destination has room for more
func (m *Monitor) CanScheduleTransfer() bool {
	return m.GetResourceStatus().DiskSpaceAvailable
}

func (m *Monitor) monitorLoop() {
	defer m.wg.Done()

	interval := m.config.GetController().ResourceCheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.updateResourceStatus()
		}
	}
}

func (m *Monitor) updateResourceStatus() {
	path := m.config.GetSession().LocalDir
	minFree := m.minFreeBytes()

	status := interfaces.ResourceStatus{
		Path:               path,
		MinFreeBytes:       minFree,
		DiskSpaceAvailable: true,
	}

	var stat unix.Statfs_t
	if err := m.statfs(path, &stat); err != nil {
		// an unknown free space never blocks transfers
		m.logger.Error("failed to check disk space", "path", path, "error", err)
		status.CheckError = err.Error()
	} else {
		status.DiskFreeBytes = int64(stat.Bavail) * int64(stat.Bsize)
		status.DiskTotalBytes = int64(stat.Blocks) * int64(stat.Bsize)
		status.DiskSpaceAvailable = status.DiskFreeBytes >= minFree
	}

	m.mu.Lock()
	m.lastResourceCheck = time.Now()
	status.LastChecked = m.lastResourceCheck
	m.resourceStatus = status
	m.mu.Unlock()

	m.logger.Debug("resource status updated",
		"path", path,
		"free_bytes", status.DiskFreeBytes,
		"min_free_bytes", minFree,
		"disk_space_available", status.DiskSpaceAvailable,
	)
}

func (m *Monitor) minFreeBytes() int64 {
	raw := m.config.GetController().MinFreeSpace
	if raw == "" {
		return 0
	}
	size, err := units.SizeToBytes(raw)
	if err != nil {
		m.logger.Error("failed to parse min_free_space", "value", raw, "error", err)
		return 0
	}
	return size
}
