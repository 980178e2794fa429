package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// Engine is a running lftp process as seen by the supervisor
type Engine interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until the process exits
	Wait() error
	// Stop terminates the process
	Stop() error
}

// Spawner starts a new engine process
type Spawner interface {
	Spawn(ctx context.Context) (Engine, error)
}

// MirrorLister lists the top level of the locally mounted view of the remote home
type MirrorLister interface {
	List(ctx context.Context) ([]string, error)
}

// HostKeySeeder adds the host's key to the known hosts file
type HostKeySeeder interface {
	Seed(ctx context.Context, hostname string) error
}

// PathInspector stats paths under the local mirror
type PathInspector interface {
	Stat(name string) (fs.FileInfo, error)
}

// FatalHandler is called once when the session can no longer be trusted
type FatalHandler func(err error)

// DirLister reads a directory with os.ReadDir
type DirLister struct {
	Path string
}

func (d DirLister) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mirror %s: %w", d.Path, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

type osInspector struct{}

func (osInspector) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

var commandContext = exec.CommandContext

// KeyscanSeeder runs ssh-keyscan and appends the result to a known_hosts file
type KeyscanSeeder struct {
	Binary         string
	KnownHostsFile string
}

func (k KeyscanSeeder) Seed(ctx context.Context, hostname string) error {
	binary := k.Binary
	if binary == "" {
		binary = "ssh-keyscan"
	}

	knownHosts := k.KnownHostsFile
	if knownHosts == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		knownHosts = filepath.Join(home, ".ssh", "known_hosts")
	}

	var stdout, stderr bytes.Buffer
	cmd := commandContext(ctx, binary, "-H", hostname)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ssh-keyscan %s failed: %w: %s", hostname, err, bytes.TrimSpace(stderr.Bytes()))
	}
	if stdout.Len() == 0 {
		return fmt.Errorf("ssh-keyscan returned no keys for %s", hostname)
	}

	if err := os.MkdirAll(filepath.Dir(knownHosts), 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(knownHosts), err)
	}
	f, err := os.OpenFile(knownHosts, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open known hosts file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(stdout.Bytes()); err != nil {
		return fmt.Errorf("failed to append host key: %w", err)
	}
	return nil
}

func exitOnFatal(logger *slog.Logger) FatalHandler {
	return func(err error) {
		logger.Error("lftp session is out of sync with the local mirror, exiting", "error", err)
		os.Exit(1)
	}
}
