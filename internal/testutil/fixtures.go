package testutil

import (
	"time"

	"seedpull/internal/models"
)

// CreateTestTransfer creates a queued point transfer with default values
func CreateTestTransfer(overrides ...func(*models.Transfer)) *models.Transfer {
	transfer := &models.Transfer{
		Name:       "test-file.mkv",
		Type:       models.JobTypePointTransfer,
		RemotePath: "/home/user/files/test-file.mkv",
		LocalPath:  "/data/incoming",
		Status:     models.TransferStatusQueued,
		EnqueuedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(transfer)
	}

	return transfer
}

// JobsVerboseDump is a captured `jobs -v` output with a queue, a segmented
// pget and a mirror in progress.
const JobsVerboseDump = `[0] queue (sftp://user@seedbox.example.com)  -- 3.52 MiB/s
sftp://user@seedbox.example.com/home/user
Queue is stopped.
Commands queued:
 1. pget -c -O /data/incoming /home/user/files/Next.mkv
[1] pget -c /home/user/files/Movie.2016.1080p.mkv -o /data/incoming/Movie.2016.1080p.mkv  -- 3.52M/s
sftp://user@seedbox.example.com/home/user
` + "`Movie.2016.1080p.mkv', got 3163357184 of 3947847680 (80%) 3.52M/s eta:19m" + `
[2] mirror -c /home/user/files/Some.Show.S01 /data/incoming  -- 183.5M/9.0G (1%) 4.08 MiB/s
`
