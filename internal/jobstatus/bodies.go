package jobstatus

import (
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"seedpull/internal/models"
	"seedpull/internal/units"
)

// parsePointTransfer decodes a pget block: header, endpoint line, data line
func parsePointTransfer(logger *slog.Logger, lines []string) (models.Job, error) {
	header := namedGroups(pgetHeaderRe, lines[0])
	if header == nil {
		return models.Job{}, fmt.Errorf("pget header did not match: %q", lines[0])
	}

	id, err := strconv.Atoi(header["id"])
	if err != nil {
		return models.Job{}, fmt.Errorf("invalid job id %q: %w", header["id"], err)
	}

	args := parsePgetArgs(header["args"])
	if args.remote == "" {
		return models.Job{}, fmt.Errorf("pget header for job %d has no remote path", id)
	}

	job := models.Job{
		ID:            id,
		Type:          models.JobTypePointTransfer,
		Filename:      args.remote,
		Flags:         args.flagString(),
		TransferState: &models.TransferState{},
		IsRunning:     true,
	}

	body := lines[1:]
	if len(body) > 0 {
		if endpointRe.MatchString(body[0]) {
			body = body[1:]
		} else {
			logger.Warn("pget block missing endpoint line",
				"job_id", id,
				"line", body[0])
		}
	}

	if len(body) == 0 {
		return job, nil
	}

	state, name, err := parseDataLine(body[0])
	if err != nil {
		logger.Warn("Unparsable pget progress line",
			"job_id", id,
			"line", body[0],
			"error", err)
		return job, nil
	}
	if name != "" && path.Base(name) != path.Base(args.remote) {
		logger.Warn("pget progress line names a different file",
			"job_id", id,
			"header_path", args.remote,
			"progress_name", name)
	}
	job.TransferState = state
	return job, nil
}

// parseDataLine handles both the "got L of R" and the "at OFFSET" forms
func parseDataLine(line string) (*models.TransferState, string, error) {
	if g := namedGroups(gotLineRe, line); g != nil {
		state := &models.TransferState{}

		local, err := strconv.ParseInt(g["local"], 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("local size %q: %w", g["local"], err)
		}
		remote, err := strconv.ParseInt(g["remote"], 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("remote size %q: %w", g["remote"], err)
		}
		state.LocalSize = &local
		state.RemoteSize = &remote

		if err := fillCommon(state, g); err != nil {
			return nil, "", err
		}
		return state, g["name"], nil
	}

	if g := namedGroups(atLineRe, line); g != nil {
		state := &models.TransferState{}
		if err := fillCommon(state, g); err != nil {
			return nil, "", err
		}
		return state, g["name"], nil
	}

	return nil, "", fmt.Errorf("no progress grammar matched")
}

// fillCommon sets percent, speed and eta from a data line match
func fillCommon(state *models.TransferState, g map[string]string) error {
	if g["pct"] != "" {
		pct, err := strconv.Atoi(g["pct"])
		if err != nil {
			return fmt.Errorf("percent %q: %w", g["pct"], err)
		}
		state.Percent = &pct
	}
	if g["speed"] != "" {
		speed := g["speed"]
		state.Speed = &speed
	}
	eta, err := units.EtaComponentsToSeconds(g["eta_d"], g["eta_h"], g["eta_m"], g["eta_s"])
	if err != nil {
		return err
	}
	state.ETA = eta
	return nil
}

// parseMirror decodes a mirror progress header. No body line is consumed.
func parseMirror(logger *slog.Logger, lines []string) (models.Job, error) {
	header := namedGroups(mirrorHeaderRe, lines[0])
	if header == nil {
		return models.Job{}, fmt.Errorf("mirror header did not match: %q", lines[0])
	}

	job, err := mirrorJob(header["id"], header["args"])
	if err != nil {
		return models.Job{}, err
	}

	local, err := units.SizeToBytes(header["szlocal"])
	if err != nil {
		return models.Job{}, fmt.Errorf("mirror job %d local size: %w", job.ID, err)
	}
	remote, err := units.SizeToBytes(header["szremote"])
	if err != nil {
		return models.Job{}, fmt.Errorf("mirror job %d remote size: %w", job.ID, err)
	}
	pct, err := strconv.Atoi(header["pct"])
	if err != nil {
		return models.Job{}, fmt.Errorf("mirror job %d percent: %w", job.ID, err)
	}

	state := &models.TransferState{
		LocalSize:  &local,
		RemoteSize: &remote,
		Percent:    &pct,
	}

	if header["speed"] != "" {
		speed := header["speed"] + "/s"
		state.Speed = &speed

		eta, err := units.EstimateMirrorEta(local, remote, speed)
		if err != nil {
			logger.Warn("Could not estimate mirror eta",
				"job_id", job.ID,
				"speed", speed,
				"error", err)
		}
		state.ETA = eta
	}

	job.TransferState = state
	return job, nil
}

// parseMirrorInitial decodes a mirror header printed before sizes are known
func parseMirrorInitial(lines []string) (models.Job, error) {
	header := namedGroups(mirrorInitialHeaderRe, lines[0])
	if header == nil {
		return models.Job{}, fmt.Errorf("mirror header did not match: %q", lines[0])
	}
	return mirrorJob(header["id"], header["args"])
}

func mirrorJob(rawID, rawArgs string) (models.Job, error) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return models.Job{}, fmt.Errorf("invalid job id %q: %w", rawID, err)
	}
	args := parseMirrorArgs(rawArgs)
	if args.remote == "" {
		return models.Job{}, fmt.Errorf("mirror header for job %d has no remote path", id)
	}
	return models.Job{
		ID:        id,
		Type:      models.JobTypeTreeMirror,
		Filename:  args.remote,
		Flags:     args.flagString(),
		IsRunning: true,
	}, nil
}

// parseDone decodes "[n] Done (pget ...)" lines for jobs lftp already finished
func parseDone(lines []string) (models.Job, error) {
	header := namedGroups(doneHeaderRe, lines[0])
	if header == nil {
		return models.Job{}, fmt.Errorf("done header did not match: %q", lines[0])
	}

	id, err := strconv.Atoi(header["id"])
	if err != nil {
		return models.Job{}, fmt.Errorf("invalid job id %q: %w", header["id"], err)
	}
	kind, err := models.ParseJobType(header["kind"])
	if err != nil {
		return models.Job{}, err
	}

	var args commandArgs
	if kind == models.JobTypePointTransfer {
		args = parsePgetArgs(header["args"])
	} else {
		args = parseMirrorArgs(header["args"])
	}
	if args.remote == "" {
		return models.Job{}, fmt.Errorf("done header for job %d has no remote path", id)
	}

	return models.Job{
		ID:        id,
		Type:      kind,
		Filename:  args.remote,
		Flags:     args.flagString(),
		IsRunning: false,
	}, nil
}

// parseQueue collects "N. command" entries; anything else in the block is ignored
func parseQueue(lines []string) []models.QueueEntry {
	var entries []models.QueueEntry
	for _, line := range lines[1:] {
		g := namedGroups(queueEntryRe, line)
		if g == nil {
			continue
		}
		pos, err := strconv.Atoi(g["pos"])
		if err != nil {
			continue
		}
		entry := models.QueueEntry{Position: pos, Command: g["cmd"]}

		word, _ := cutToken(strings.TrimPrefix(g["cmd"], "queue "))
		if kind, err := models.ParseJobType(word); err == nil {
			entry.Type = &kind
		}
		entries = append(entries, entry)
	}
	return entries
}
