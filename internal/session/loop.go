package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"seedpull/internal/jobstatus"
	"seedpull/internal/metrics"
)

const sentinelPrefix = "seedpull-sync-"

type commandResult struct {
	report jobstatus.Report
	err    error
}

type command struct {
	kind   commandKind
	text   string
	ctx    context.Context
	result chan commandResult

	seq     uint64
	written time.Time

	lines  []string
	parser *jobstatus.Parser

	// set once the begin and end markers have been read
	opened bool
	closed bool
	// set when a host key failure makes the response meaningless
	invalidated bool
	delivered   bool
}

func newCommand(ctx context.Context, kind commandKind, text string) *command {
	if ctx == nil {
		ctx = context.Background()
	}
	return &command{
		kind:   kind,
		text:   text,
		ctx:    ctx,
		result: make(chan commandResult, 1),
	}
}

func (c *command) finish(res commandResult) {
	if c.delivered {
		return
	}
	c.delivered = true
	c.result <- res
}

// eventLoop holds the state only the loop goroutine may touch
type eventLoop struct {
	s      *Supervisor
	engine Engine
	logger *slog.Logger
	tag    string

	seq     uint64
	pending []*command
	active  *command

	timer  *time.Timer
	timerC <-chan time.Time
	grace  *time.Timer
	graceC <-chan time.Time

	needVerify  bool
	seeding     bool
	remediated  bool
	seeded      chan error
	writeBroken bool

	ctx    context.Context
	cancel context.CancelFunc
	stop   bool
}

func newEventLoop(s *Supervisor, engine Engine, tag string) *eventLoop {
	ctx, cancel := context.WithCancel(context.Background())
	return &eventLoop{
		s:          s,
		engine:     engine,
		logger:     s.logger,
		tag:        tag,
		needVerify: true,
		seeded:     make(chan error, 1),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (l *eventLoop) run(stdout, stderr <-chan string, exited <-chan error) {
	defer close(l.s.done)
	defer l.cancel()

	l.pump()

	for !l.stop {
		select {
		case line, ok := <-stdout:
			if !ok {
				stdout = nil
				continue
			}
			l.handleStdout(line)

		case line, ok := <-stderr:
			if !ok {
				stderr = nil
				continue
			}
			l.handleStderr(line)

		case cmd := <-l.s.submit:
			l.pending = append(l.pending, cmd)
			l.pump()

		case <-l.timerC:
			l.handleTimeout()

		case <-l.graceC:
			l.finishVerification()

		case err := <-l.seeded:
			l.handleSeeded(err)

		case err := <-exited:
			l.handleExit(err)
			return

		case <-l.s.closeCh:
			l.logger.Info("Closing lftp session")
			l.shutdown(ErrSessionClosed, ErrSessionClosed)
			select {
			case <-exited:
			case <-time.After(5 * time.Second):
				l.logger.Warn("lftp did not exit after stop")
			}
			return
		}
	}
}

// pump writes the next command if nothing is in flight
func (l *eventLoop) pump() {
	if l.active != nil || l.seeding || l.writeBroken || l.stop {
		return
	}

	if l.needVerify {
		l.write(newCommand(l.ctx, kindVerify, listCommand))
		return
	}

	if l.s.State() != StateReady {
		return
	}

	for len(l.pending) > 0 {
		cmd := l.pending[0]
		l.pending = l.pending[1:]

		if err := cmd.ctx.Err(); err != nil {
			l.logger.Debug("Dropping cancelled command", "kind", cmd.kind, "command", cmd.text)
			cmd.finish(commandResult{err: err})
			continue
		}
		l.write(cmd)
		return
	}
}

func (l *eventLoop) write(cmd *command) {
	l.seq++
	cmd.seq = l.seq

	timeout := l.s.commandTimeout
	switch cmd.kind {
	case kindVerify:
		timeout = l.s.verifyTimeout
		l.s.setState(StateAwaitingVerification, nil)
	case kindStatus:
		cmd.parser = jobstatus.NewParser(l.logger)
	}

	payload := "echo " + l.marker(cmd.seq, markBegin) + "\n" +
		cmd.text + "\n" +
		"echo " + l.marker(cmd.seq, markEnd) + "\n"
	if _, err := io.WriteString(l.engine.Stdin(), payload); err != nil {
		l.writeBroken = true
		l.logger.Error("Failed to write to lftp", "command", cmd.text, "error", err)
		cmd.finish(commandResult{err: fmt.Errorf("%w: write failed: %v", ErrSessionClosed, err)})
		return
	}

	cmd.written = time.Now()
	l.active = cmd
	l.startTimer(timeout)
	metrics.CommandsTotal.WithLabelValues(string(cmd.kind)).Inc()

	l.logger.Debug("Command written",
		"kind", cmd.kind,
		"command", cmd.text,
		"seq", cmd.seq)
}

func (l *eventLoop) handleStdout(line string) {
	trimmed := strings.TrimSpace(line)

	if seq, mark, ok := l.parseMarker(trimmed); ok {
		cmd := l.active
		if cmd == nil || cmd.closed || seq != cmd.seq {
			l.logger.Debug("Ignoring stale marker", "seq", seq, "mark", mark)
			return
		}
		if mark == markBegin {
			cmd.opened = true
			return
		}
		l.complete()
		return
	}

	if l.active == nil || !l.active.opened || l.active.closed {
		if trimmed != "" {
			l.logger.Debug("Unattributed lftp output", "line", line)
		}
		return
	}

	switch l.active.kind {
	case kindVerify:
		l.active.lines = append(l.active.lines, line)
	case kindStatus:
		l.active.parser.Feed(line)
	default:
		if trimmed != "" {
			l.logger.Info("lftp output", "command", l.active.text, "line", trimmed)
		}
	}
}

const (
	markBegin = "begin"
	markEnd   = "end"
)

// marker is the text echoed around command seq
func (l *eventLoop) marker(seq uint64, mark string) string {
	return fmt.Sprintf("%s%s-%d-%s", sentinelPrefix, l.tag, seq, mark)
}

func (l *eventLoop) parseMarker(line string) (uint64, string, bool) {
	prefix := sentinelPrefix + l.tag + "-"
	if !strings.HasPrefix(line, prefix) {
		return 0, "", false
	}
	rawSeq, mark, ok := strings.Cut(strings.TrimPrefix(line, prefix), "-")
	if !ok || (mark != markBegin && mark != markEnd) {
		return 0, "", false
	}
	seq, err := strconv.ParseUint(rawSeq, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return seq, mark, true
}

// complete closes the response window of the active command
func (l *eventLoop) complete() {
	cmd := l.active
	cmd.closed = true
	l.stopTimer()
	metrics.CommandDuration.WithLabelValues(string(cmd.kind)).Observe(time.Since(cmd.written).Seconds())

	switch cmd.kind {
	case kindVerify:
		if cmd.invalidated {
			l.active = nil
			l.pump()
			return
		}
		// stderr is read independently; give it a moment to report a
		// host key failure before the listing is trusted
		l.grace = time.NewTimer(l.s.stderrGrace)
		l.graceC = l.grace.C
		return

	case kindStatus:
		report := cmd.parser.Finish()
		metrics.ParsedJobsTotal.Add(float64(len(report.Jobs)))
		metrics.SkippedBlocksTotal.Add(float64(report.Skipped))
		active := 0
		for _, job := range report.Jobs {
			if job.IsRunning {
				active++
			}
		}
		metrics.ActiveJobs.Set(float64(active))
		metrics.QueuedCommands.Set(float64(len(report.Queue)))
		cmd.finish(commandResult{report: report})

	default:
		cmd.finish(commandResult{})
	}

	l.active = nil
	l.pump()
}

func (l *eventLoop) finishVerification() {
	l.grace = nil
	l.graceC = nil

	cmd := l.active
	l.active = nil
	if cmd == nil || cmd.invalidated {
		l.pump()
		return
	}

	remote := listingNames(cmd.lines)
	local, err := l.s.lister.List(l.ctx)
	if err != nil {
		l.fatal(fmt.Errorf("failed to list local mirror: %w", err))
		return
	}

	missingLocally, missingRemotely := compareListings(remote, local)
	if len(missingLocally) > 0 || len(missingRemotely) > 0 {
		l.logger.Error("Remote listing does not match local mirror",
			"only_remote", missingLocally,
			"only_local", missingRemotely)
		l.fatal(&MismatchError{MissingLocally: missingLocally, MissingRemotely: missingRemotely})
		return
	}

	l.logger.Info("Session verified", "entries", len(remote))
	l.needVerify = false
	l.s.setState(StateReady, nil)
	l.pump()
}

func (l *eventLoop) handleStderr(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	if strings.Contains(trimmed, hostKeyFailureText) {
		l.hostKeyRejected(trimmed)
		return
	}
	l.logger.Warn("lftp stderr", "line", trimmed)
}

func (l *eventLoop) hostKeyRejected(line string) {
	if l.seeding {
		return
	}
	if l.remediated {
		l.logger.Error("Host key rejected again after seeding known hosts", "line", line)
		l.fail(ErrHostKeyRejected)
		return
	}

	l.logger.Warn("Host key rejected, seeding known hosts", "host", l.s.cfg.Hostname)
	metrics.RecoveriesTotal.WithLabelValues("host_key").Inc()
	l.remediated = true
	l.seeding = true
	l.needVerify = true
	l.s.setState(StateRecovering, ErrHostKeyRejected)

	if l.active != nil {
		l.active.invalidated = true
		if l.active.kind != kindVerify {
			l.active.finish(commandResult{err: ErrSessionRecovering})
		}
	}

	seeder := l.s.seeder
	host := l.s.cfg.Hostname
	go func() {
		l.seeded <- seeder.Seed(l.ctx, host)
	}()
}

func (l *eventLoop) handleSeeded(err error) {
	l.seeding = false
	if err != nil {
		l.logger.Error("Failed to seed known hosts", "error", err)
		l.fail(fmt.Errorf("seed known hosts: %w", err))
		return
	}
	l.logger.Info("Known hosts seeded, verifying again")
	l.pump()
}

func (l *eventLoop) handleTimeout() {
	l.timer = nil
	l.timerC = nil

	cmd := l.active
	if cmd == nil {
		return
	}
	metrics.CommandTimeoutsTotal.WithLabelValues(string(cmd.kind)).Inc()
	l.logger.Warn("lftp command timed out",
		"kind", cmd.kind,
		"command", cmd.text,
		"seq", cmd.seq)

	if cmd.kind == kindVerify && !cmd.invalidated {
		l.fail(fmt.Errorf("%w: verification", ErrCommandTimeout))
		return
	}

	cmd.finish(commandResult{err: ErrCommandTimeout})
	l.active = nil

	if !cmd.invalidated {
		metrics.RecoveriesTotal.WithLabelValues("timeout").Inc()
		l.needVerify = true
		l.s.setState(StateRecovering, ErrCommandTimeout)
	}
	l.pump()
}

func (l *eventLoop) handleExit(err error) {
	l.stopTimer()
	cause := ErrSessionClosed
	if err != nil {
		cause = fmt.Errorf("%w: lftp exited: %v", ErrSessionClosed, err)
	}
	l.logger.Error("lftp exited", "error", err)
	l.s.setErr(cause)
	l.failAll(cause)
	l.s.setState(StateFailed, cause)
	l.stop = true
}

// fail marks the session failed without invoking the fatal handler
func (l *eventLoop) fail(cause error) {
	err := fmt.Errorf("%w: %w", ErrSessionFailed, cause)
	l.shutdown(err, err)
}

// fatal marks the session failed and hands the error to the fatal handler
func (l *eventLoop) fatal(cause error) {
	err := fmt.Errorf("%w: %w", ErrSessionFailed, cause)
	l.shutdown(err, err)
	l.s.fatal(cause)
}

func (l *eventLoop) shutdown(sessionErr, commandErr error) {
	l.stopTimer()
	if l.grace != nil {
		l.grace.Stop()
		l.grace = nil
		l.graceC = nil
	}
	l.s.setErr(sessionErr)
	l.failAll(commandErr)
	l.s.setState(StateFailed, sessionErr)
	if err := l.engine.Stop(); err != nil {
		l.logger.Warn("Failed to stop lftp", "error", err)
	}
	l.stop = true
}

func (l *eventLoop) failAll(err error) {
	if l.active != nil {
		l.active.finish(commandResult{err: err})
		l.active = nil
	}
	for _, cmd := range l.pending {
		cmd.finish(commandResult{err: err})
	}
	l.pending = nil
}

func (l *eventLoop) startTimer(d time.Duration) {
	l.stopTimer()
	l.timer = time.NewTimer(d)
	l.timerC = l.timer.C
}

func (l *eventLoop) stopTimer() {
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = nil
	l.timerC = nil
}

// readLines forwards each line of r to out until EOF or until done closes
func readLines(r io.Reader, out chan<- string, done <-chan struct{}, wg *sync.WaitGroup, logger *slog.Logger, stream string) {
	defer wg.Done()
	defer close(out)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(jobstatus.ScanLines)

	for scanner.Scan() {
		select {
		case out <- scanner.Text():
		case <-done:
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
		logger.Warn("Stopped reading lftp output", "stream", stream, "error", err)
	}
}
