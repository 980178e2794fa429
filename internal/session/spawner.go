package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"seedpull/internal/config"
)

// LftpSpawner starts lftp connected to the seedbox over sftp
type LftpSpawner struct {
	cfg    config.SessionConfig
	logger *slog.Logger
}

func NewLftpSpawner(cfg config.SessionConfig, logger *slog.Logger) *LftpSpawner {
	if logger == nil {
		logger = slog.Default()
	}
	return &LftpSpawner{cfg: cfg, logger: logger}
}

// Args returns the lftp command line without the binary. The password slot is
// a placeholder: authentication is by key only.
func (s *LftpSpawner) Args() []string {
	connect := fmt.Sprintf(`set sftp:connect-program "ssh -a -x -i %s"`, s.cfg.KeyFile)
	return []string{
		"-u", s.cfg.Username + ",xxx",
		"sftp://" + s.cfg.Hostname,
		"-e", connect,
	}
}

// Spawn starts lftp in its own process group so it outlives signals aimed at
// the supervisor's group. ctx only bounds startup.
func (s *LftpSpawner) Spawn(ctx context.Context) (Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	binary := s.cfg.Binary
	if binary == "" {
		binary = "lftp"
	}

	cmd := exec.Command(binary, s.Args()...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start lftp: %w", err)
	}

	s.logger.Info("lftp started",
		"pid", cmd.Process.Pid,
		"host", s.cfg.Hostname,
		"user", s.cfg.Username)

	return &processEngine{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

type processEngine struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader
}

func (p *processEngine) Stdin() io.WriteCloser { return p.stdin }
func (p *processEngine) Stdout() io.Reader     { return p.stdout }
func (p *processEngine) Stderr() io.Reader     { return p.stderr }

func (p *processEngine) Wait() error {
	return p.cmd.Wait()
}

// Stop closes stdin (lftp exits on EOF) and signals the whole process group
// so the ssh child goes too.
func (p *processEngine) Stop() error {
	_ = p.stdin.Close()
	if p.cmd.Process == nil {
		return nil
	}
	err := unix.Kill(-p.cmd.Process.Pid, unix.SIGTERM)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("failed to signal lftp process group: %w", err)
	}
	return nil
}
