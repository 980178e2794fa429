// Package session supervises a long-running lftp process.
//
// All output of the process is read by one goroutine per pipe and handed to a
// single event loop, which owns every piece of mutable state. Commands are
// queued FIFO and written one at a time, wrapped in a pair of `echo` markers
// so the loop knows exactly which output lines belong to it.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"seedpull/internal/config"
	"seedpull/internal/jobstatus"
	"seedpull/internal/metrics"
	"seedpull/internal/models"
	"seedpull/internal/sanitizer"
)

type State int32

const (
	StateStarting State = iota
	StateAwaitingVerification
	StateReady
	StateRecovering
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateAwaitingVerification:
		return "awaiting_verification"
	case StateReady:
		return "ready"
	case StateRecovering:
		return "recovering"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	ErrSessionClosed     = errors.New("lftp session closed")
	ErrSessionFailed     = errors.New("lftp session failed")
	ErrCommandTimeout    = errors.New("lftp command timed out")
	ErrSessionRecovering = errors.New("lftp session is recovering")
	ErrHostKeyRejected   = errors.New("host key verification failed")
	ErrAlreadyStarted    = errors.New("session already started")
	ErrNotStarted        = errors.New("lftp session not started")
)

// MismatchError reports a remote listing that differs from the local mirror
type MismatchError struct {
	MissingLocally  []string
	MissingRemotely []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("remote listing does not match local mirror: %d only remote, %d only local",
		len(e.MissingLocally), len(e.MissingRemotely))
}

const hostKeyFailureText = "Host key verification failed"

type Option func(*Supervisor)

// WithSpawner overrides how the lftp process is started.
func WithSpawner(spawner Spawner) Option {
	return func(s *Supervisor) {
		if spawner != nil {
			s.spawner = spawner
		}
	}
}

func WithMirrorLister(lister MirrorLister) Option {
	return func(s *Supervisor) {
		if lister != nil {
			s.lister = lister
		}
	}
}

func WithHostKeySeeder(seeder HostKeySeeder) Option {
	return func(s *Supervisor) {
		if seeder != nil {
			s.seeder = seeder
		}
	}
}

func WithPathInspector(inspector PathInspector) Option {
	return func(s *Supervisor) {
		if inspector != nil {
			s.inspector = inspector
		}
	}
}

// WithFatalHandler replaces the default handler, which exits the program.
func WithFatalHandler(handler FatalHandler) Option {
	return func(s *Supervisor) {
		if handler != nil {
			s.fatal = handler
		}
	}
}

// WithTimeouts sets the per-command and verification bounds and the time
// stderr is given to catch up after a verification listing ends.
func WithTimeouts(command, verify, stderrGrace time.Duration) Option {
	return func(s *Supervisor) {
		if command > 0 {
			s.commandTimeout = command
		}
		if verify > 0 {
			s.verifyTimeout = verify
		}
		if stderrGrace > 0 {
			s.stderrGrace = stderrGrace
		}
	}
}

// WithStateHook registers a callback run on every state change. It is called
// from the event loop and must not block.
func WithStateHook(hook func(state State, err error)) Option {
	return func(s *Supervisor) {
		s.stateHook = hook
	}
}

// Supervisor owns one lftp process and serialises every command sent to it
type Supervisor struct {
	cfg    config.SessionConfig
	logger *slog.Logger

	spawner   Spawner
	lister    MirrorLister
	seeder    HostKeySeeder
	inspector PathInspector
	fatal     FatalHandler
	stateHook func(State, error)

	commandTimeout time.Duration
	verifyTimeout  time.Duration
	stderrGrace    time.Duration

	state     atomic.Int32
	started   atomic.Bool
	sessionID string

	submit    chan *command
	closeCh   chan struct{}
	closeOnce sync.Once
	done      chan struct{}

	errMu sync.Mutex
	err   error
}

func New(cfg config.SessionConfig, logger *slog.Logger, opts ...Option) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "session")

	s := &Supervisor{
		cfg:            cfg,
		logger:         logger,
		spawner:        NewLftpSpawner(cfg, logger),
		lister:         DirLister{Path: cfg.MirrorPath},
		seeder:         KeyscanSeeder{KnownHostsFile: cfg.KnownHostsFile},
		inspector:      osInspector{},
		fatal:          exitOnFatal(logger),
		commandTimeout: 30 * time.Second,
		verifyTimeout:  time.Minute,
		stderrGrace:    250 * time.Millisecond,
		submit:         make(chan *command),
		closeCh:        make(chan struct{}),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start spawns lftp and begins verification. It returns once the process is
// running; use State or Done to follow the session afterwards.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	s.sessionID = uuid.NewString()
	s.logger = s.logger.With("session_id", s.sessionID)
	s.setState(StateStarting, nil)

	engine, err := s.spawner.Spawn(ctx)
	if err != nil {
		err = fmt.Errorf("failed to spawn lftp: %w", err)
		s.setErr(err)
		s.setState(StateFailed, err)
		close(s.done)
		return err
	}

	stdout := make(chan string)
	stderr := make(chan string)
	exited := make(chan error, 1)

	var readers sync.WaitGroup
	readers.Add(2)
	go readLines(engine.Stdout(), stdout, s.done, &readers, s.logger, "stdout")
	go readLines(engine.Stderr(), stderr, s.done, &readers, s.logger, "stderr")
	go func() {
		// pipes must be drained before Wait closes them
		readers.Wait()
		exited <- engine.Wait()
	}()

	loop := newEventLoop(s, engine, strings.SplitN(s.sessionID, "-", 2)[0])
	go loop.run(stdout, stderr, exited)
	return nil
}

// Close stops lftp and fails anything still queued with ErrSessionClosed
func (s *Supervisor) Close() error {
	s.closeOnce.Do(func() {
		if s.started.CompareAndSwap(false, true) {
			s.setErr(ErrSessionClosed)
			s.setState(StateFailed, ErrSessionClosed)
			close(s.done)
			return
		}
		close(s.closeCh)
	})
	<-s.done
	return nil
}

// Done is closed when the event loop has stopped
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends and returns why it ended
func (s *Supervisor) Wait() error {
	<-s.done
	return s.Err()
}

func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Err returns the error that ended the session, if any
func (s *Supervisor) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Supervisor) SessionID() string {
	return s.sessionID
}

// Plan describes what Enqueue would send for a relative path
type Plan struct {
	RelativePath string
	Kind         models.JobType
	MirrorPath   string
	RemotePath   string
	Command      string
}

// Plan resolves relativePath against the local mirror. A nil plan with a nil
// error means the path does not exist there.
func (s *Supervisor) Plan(relativePath string) (*Plan, error) {
	rel, err := sanitizer.CleanRelativePath(relativePath)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", relativePath, err)
	}

	mirrorPath := filepath.Join(s.cfg.MirrorPath, s.cfg.RemoteSubdir, rel)
	info, err := s.inspector.Stat(mirrorPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", mirrorPath, err)
	}

	kind := models.JobTypePointTransfer
	if info.IsDir() {
		kind = models.JobTypeTreeMirror
	}
	remotePath := RemotePath(s.cfg.RemoteHome, s.cfg.RemoteSubdir, rel)

	return &Plan{
		RelativePath: rel,
		Kind:         kind,
		MirrorPath:   mirrorPath,
		RemotePath:   remotePath,
		Command:      QueueCommand(kind, s.cfg.LocalDir, remotePath),
	}, nil
}

// Enqueue queues a download of relativePath. A path missing from the local
// mirror is logged and ignored.
func (s *Supervisor) Enqueue(ctx context.Context, relativePath string) error {
	plan, err := s.Plan(relativePath)
	if err != nil {
		return err
	}
	if plan == nil {
		s.logger.Warn("Path not found in local mirror, nothing queued",
			"path", relativePath,
			"mirror", s.cfg.MirrorPath)
		return nil
	}
	return s.EnqueuePlan(ctx, plan)
}

// EnqueuePlan sends a plan produced by Plan
func (s *Supervisor) EnqueuePlan(ctx context.Context, plan *Plan) error {
	s.logger.Info("Queueing transfer",
		"path", plan.RelativePath,
		"kind", plan.Kind,
		"remote_path", plan.RemotePath)

	res := s.do(ctx, kindEnqueue, plan.Command)
	return res.err
}

// StatusReport runs `jobs -v` and parses its output
func (s *Supervisor) StatusReport(ctx context.Context) (jobstatus.Report, error) {
	res := s.do(ctx, kindStatus, statusCommand)
	if res.err != nil {
		return jobstatus.Report{}, res.err
	}
	return res.report, nil
}

// Status returns the jobs lftp is currently running
func (s *Supervisor) Status(ctx context.Context) ([]models.Job, error) {
	report, err := s.StatusReport(ctx)
	if err != nil {
		return nil, err
	}
	return report.Jobs, nil
}

func (s *Supervisor) do(ctx context.Context, kind commandKind, text string) commandResult {
	if s.State() == StateFailed {
		return commandResult{err: s.terminalErr()}
	}
	if !s.started.Load() {
		return commandResult{err: ErrNotStarted}
	}

	cmd := newCommand(ctx, kind, text)
	select {
	case s.submit <- cmd:
	case <-ctx.Done():
		return commandResult{err: ctx.Err()}
	case <-s.done:
		return commandResult{err: s.terminalErr()}
	}

	select {
	case res := <-cmd.result:
		return res
	case <-ctx.Done():
		return commandResult{err: ctx.Err()}
	case <-s.done:
		select {
		case res := <-cmd.result:
			return res
		default:
			return commandResult{err: s.terminalErr()}
		}
	}
}

func (s *Supervisor) terminalErr() error {
	if err := s.Err(); err != nil {
		return err
	}
	return ErrSessionClosed
}

func (s *Supervisor) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Supervisor) setState(state State, err error) {
	prev := State(s.state.Swap(int32(state)))
	metrics.SessionState.Set(float64(state))
	if prev == state && state != StateStarting {
		return
	}

	attrs := []any{"from", prev.String(), "to", state.String()}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	s.logger.Info("Session state changed", attrs...)

	if s.stateHook != nil {
		s.stateHook(state, err)
	}
}
