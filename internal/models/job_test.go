package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobType(t *testing.T) {
	jt, err := ParseJobType("pget")
	require.NoError(t, err)
	assert.Equal(t, JobTypePointTransfer, jt)

	jt, err = ParseJobType("mirror")
	require.NoError(t, err)
	assert.Equal(t, JobTypeTreeMirror, jt)

	_, err = ParseJobType("get1")
	assert.Error(t, err)
}

func TestJob_NullFieldsSerializeAsNull(t *testing.T) {
	job := Job{
		ID:            3,
		Type:          JobTypePointTransfer,
		Filename:      "movie.mkv",
		Flags:         "-c",
		TransferState: &TransferState{},
		IsRunning:     true,
	}

	data, err := json.Marshal(job)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	state, ok := decoded["transfer_state"].(map[string]interface{})
	require.True(t, ok)
	for _, key := range []string{"local_size", "remote_size", "percent", "speed", "eta"} {
		value, present := state[key]
		assert.True(t, present, key)
		assert.Nil(t, value, key)
	}
	assert.Equal(t, "pget", decoded["type"])
}

func TestJob_Remaining(t *testing.T) {
	local, remote := int64(40), int64(100)
	job := Job{TransferState: &TransferState{LocalSize: &local, RemoteSize: &remote}}
	assert.True(t, job.HasProgress())
	assert.Equal(t, int64(60), job.Remaining())

	assert.Equal(t, int64(-1), Job{}.Remaining())
	assert.Equal(t, int64(-1), Job{TransferState: &TransferState{}}.Remaining())
}

func TestJob_CloneDoesNotSharePointers(t *testing.T) {
	local, remote, eta := int64(1), int64(2), int64(3)
	pct := 50
	speed := "1M/s"
	job := Job{ID: 1, TransferState: &TransferState{LocalSize: &local, RemoteSize: &remote, ETA: &eta, Percent: &pct, Speed: &speed}}

	clone := job.Clone()
	*clone.TransferState.LocalSize = 99
	*clone.TransferState.Percent = 99
	*clone.TransferState.Speed = "x"

	assert.Equal(t, int64(1), *job.TransferState.LocalSize)
	assert.Equal(t, 50, *job.TransferState.Percent)
	assert.Equal(t, "1M/s", *job.TransferState.Speed)

	bare := Job{ID: 2}.Clone()
	assert.Nil(t, bare.TransferState)
}

func TestTransfer_MarkCompleted(t *testing.T) {
	tr := &Transfer{Name: "show", Status: TransferStatusQueued}
	assert.False(t, tr.IsCompleted())

	tr.MarkCompleted()

	assert.True(t, tr.IsCompleted())
	require.NotNil(t, tr.CompletedAt)
}
