package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"

	"seedpull/internal/config"
)

func testConfig(minFree string) *config.Config {
	return &config.Config{
		Session: config.SessionConfig{LocalDir: "/data/incoming"},
		Controller: config.ControllerConfig{
			MinFreeSpace:          minFree,
			ResourceCheckInterval: time.Hour,
		},
	}
}

func fakeStatfs(freeBlocks uint64, err error) func(string, *unix.Statfs_t) error {
	return func(path string, stat *unix.Statfs_t) error {
		if err != nil {
			return err
		}
		stat.Bsize = 4096
		stat.Bavail = freeBlocks
		stat.Blocks = freeBlocks * 4
		return nil
	}
}

func TestMonitorDiskSpace(t *testing.T) {
	tests := []struct {
		name       string
		minFree    string
		freeBlocks uint64
		statErr    error
		available  bool
	}{
		{"no threshold", "", 10, nil, true},
		{"above threshold", "1 GiB", 512 * 1024, nil, true},
		{"below threshold", "10G", 512 * 1024, nil, false},
		{"unparsable threshold ignored", "plenty", 1, nil, true},
		{"statfs failure does not block", "10G", 0, errors.New("no such file"), true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := New(testConfig(test.minFree), nil)
			m.statfs = fakeStatfs(test.freeBlocks, test.statErr)
			m.updateResourceStatus()

			status := m.GetResourceStatus()
			assert.Equal(t, test.available, status.DiskSpaceAvailable)
			assert.Equal(t, test.available, m.CanScheduleTransfer())
			assert.Equal(t, "/data/incoming", status.Path)
			assert.False(t, status.LastChecked.IsZero())
			if test.statErr != nil {
				assert.NotEmpty(t, status.CheckError)
			} else {
				assert.Equal(t, int64(test.freeBlocks)*4096, status.DiskFreeBytes)
			}
		})
	}
}

func TestMonitorStartStop(t *testing.T) {
	m := New(testConfig(""), nil)
	m.statfs = fakeStatfs(1, nil)
	assert.NoError(t, m.Start())
	assert.NoError(t, m.Stop())
}
