package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedpull/internal/jobstatus"
	"seedpull/internal/models"
	"seedpull/internal/testutil"
)

func runParse(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"parse"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommand_StdinJSON(t *testing.T) {
	out, err := runParse(t, testutil.JobsVerboseDump)
	require.NoError(t, err)

	var report jobstatus.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	require.Len(t, report.Jobs, 2)
	assert.Equal(t, models.JobTypePointTransfer, report.Jobs[0].Type)
	assert.Equal(t, models.JobTypeTreeMirror, report.Jobs[1].Type)
	require.Len(t, report.Queue, 1)
	assert.Equal(t, 1, report.Queue[0].Position)
}

func TestParseCommand_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.txt")
	require.NoError(t, os.WriteFile(path, []byte(testutil.JobsVerboseDump), 0644))

	out, err := runParse(t, "", path, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"jobs"`)

	_, err = runParse(t, "", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestParseCommand_TooManyArgs(t *testing.T) {
	_, err := runParse(t, "", "a", "b")
	assert.Error(t, err)
}

func TestRenderReport(t *testing.T) {
	local, remote := int64(3163357184), int64(3947847680)
	percent := 80
	speed := "3.52M/s"
	eta := int64(19 * 60)

	report := jobstatus.Report{
		Jobs: []models.Job{{
			ID:        1,
			Type:      models.JobTypePointTransfer,
			Filename:  "/home/user/files/Movie.mkv",
			IsRunning: true,
			TransferState: &models.TransferState{
				LocalSize: &local, RemoteSize: &remote, Percent: &percent, Speed: &speed, ETA: &eta,
			},
		}},
		Queue:   []models.QueueEntry{{Position: 1, Command: "pget -c -O /data /home/user/files/Next.mkv"}},
		Skipped: 2,
	}

	out := renderReport(report)
	assert.Contains(t, out, "Movie.mkv")
	assert.Contains(t, out, "80%")
	assert.Contains(t, out, "2.9 GiB / 3.7 GiB")
	assert.Contains(t, out, "3.52M/s")
	assert.Contains(t, out, "19m0s")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "Next.mkv")
	assert.Contains(t, out, "2 unreadable block(s) skipped")

	assert.Contains(t, renderReport(jobstatus.Report{}), "No jobs.")
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/etc/seedpull.yaml", configPath("/etc/seedpull.yaml"))

	t.Setenv("SEEDPULL_CONFIG", "/tmp/from-env.yaml")
	assert.Equal(t, "/tmp/from-env.yaml", configPath(""))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warn").String())
	assert.Equal(t, "INFO", parseLevel("bogus").String())
}
