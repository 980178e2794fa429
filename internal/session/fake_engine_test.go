package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"
	"time"
)

// response is what the fake engine prints for one command
type response struct {
	stdout []string
	stderr []string
	// swallowEcho drops the end marker that follows this command
	swallowEcho bool
}

// fakeEngine behaves like lftp on the other end of three pipes
type fakeEngine struct {
	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	handler func(cmd string) response

	mu       sync.Mutex
	received []string
	swallow  int

	exitOnce sync.Once
	exited   chan struct{}
	exitErr  error
}

func newFakeEngine(handler func(cmd string) response) *fakeEngine {
	f := &fakeEngine{handler: handler, exited: make(chan struct{})}
	f.stdinR, f.stdinW = io.Pipe()
	f.stdoutR, f.stdoutW = io.Pipe()
	f.stderrR, f.stderrW = io.Pipe()

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(f.stdinR)
		for scanner.Scan() {
			line := scanner.Text()
			f.mu.Lock()
			f.received = append(f.received, line)
			f.mu.Unlock()
			lines <- line
		}
	}()
	go f.respond(lines)
	return f
}

func (f *fakeEngine) respond(lines <-chan string) {
	for line := range lines {
		if strings.HasPrefix(line, "echo ") {
			f.mu.Lock()
			skip := f.swallow > 0 && strings.HasSuffix(line, "-end")
			if skip {
				f.swallow--
			}
			f.mu.Unlock()
			if !skip {
				f.writeOut(strings.TrimPrefix(line, "echo "))
			}
			continue
		}

		resp := f.handler(line)
		if resp.swallowEcho {
			f.mu.Lock()
			f.swallow++
			f.mu.Unlock()
		}
		for _, l := range resp.stderr {
			if _, err := fmt.Fprintln(f.stderrW, l); err != nil {
				return
			}
		}
		for _, l := range resp.stdout {
			f.writeOut(l)
		}
	}
}

func (f *fakeEngine) writeOut(line string) {
	_, _ = fmt.Fprintln(f.stdoutW, line)
}

// commands returns everything written to stdin except markers
func (f *fakeEngine) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, line := range f.received {
		if !strings.HasPrefix(line, "echo ") {
			out = append(out, line)
		}
	}
	return out
}

func (f *fakeEngine) exit(err error) {
	f.exitOnce.Do(func() {
		f.exitErr = err
		_ = f.stdoutW.Close()
		_ = f.stderrW.Close()
		_ = f.stdinR.Close()
		close(f.exited)
	})
}

func (f *fakeEngine) Stdin() io.WriteCloser { return f.stdinW }
func (f *fakeEngine) Stdout() io.Reader     { return f.stdoutR }
func (f *fakeEngine) Stderr() io.Reader     { return f.stderrR }

func (f *fakeEngine) Wait() error {
	<-f.exited
	return f.exitErr
}

func (f *fakeEngine) Stop() error {
	f.exit(nil)
	return nil
}

type fakeSpawner struct {
	engine *fakeEngine
	err    error
}

func (s *fakeSpawner) Spawn(ctx context.Context) (Engine, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.engine, nil
}

type staticLister struct {
	names []string
	err   error
}

func (s staticLister) List(ctx context.Context) ([]string, error) {
	return s.names, s.err
}

type recordingSeeder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingSeeder) Seed(ctx context.Context, hostname string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, hostname)
	return r.err
}

func (r *recordingSeeder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fatalRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (f *fatalRecorder) handle(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
}

func (f *fatalRecorder) get() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.errs...)
}

// mapInspector answers Stat from a fixed set of paths
type mapInspector map[string]bool

func (m mapInspector) Stat(name string) (fs.FileInfo, error) {
	isDir, ok := m[name]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return fakeInfo{name: name, dir: isDir}, nil
}

type fakeInfo struct {
	name string
	dir  bool
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return 0 }
func (f fakeInfo) Mode() fs.FileMode  { return 0644 }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return f.dir }
func (f fakeInfo) Sys() any           { return nil }

var errPermission = errors.New("permission denied")

type errInspector struct{}

func (errInspector) Stat(name string) (fs.FileInfo, error) {
	return nil, errPermission
}
