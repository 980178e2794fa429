package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-yaml"

	"seedpull/internal/units"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Session       SessionConfig       `yaml:"session"`
	Supervisor    SupervisorConfig    `yaml:"supervisor"`
	Scanner       ScannerConfig       `yaml:"scanner"`
	Controller    ControllerConfig    `yaml:"controller"`
	API           APIConfig           `yaml:"api"`
	Database      DatabaseConfig      `yaml:"database"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`

	mu       sync.RWMutex
	watchers []chan<- struct{}
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	Host            string        `yaml:"host"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SessionConfig describes the lftp session. It is read once at startup and
// never replaced by a reload.
type SessionConfig struct {
	Binary         string `yaml:"binary"`
	Hostname       string `yaml:"hostname"`
	Username       string `yaml:"username"`
	KeyFile        string `yaml:"key_file"`
	RemoteHome     string `yaml:"remote_home"`
	RemoteSubdir   string `yaml:"remote_subdir"`
	LocalDir       string `yaml:"local_dir"`
	MirrorPath     string `yaml:"mirror_path"`
	KnownHostsFile string `yaml:"known_hosts_file"`
}

type SupervisorConfig struct {
	CommandTimeout time.Duration `yaml:"command_timeout"`
	VerifyTimeout  time.Duration `yaml:"verify_timeout"`
	StderrGrace    time.Duration `yaml:"stderr_grace"`
	LockFile       string        `yaml:"lock_file"`
}

type ScannerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	WatchLocal   bool          `yaml:"watch_local"`
}

type ControllerConfig struct {
	StatusInterval        time.Duration `yaml:"status_interval"`
	AutoEnqueue           bool          `yaml:"auto_enqueue"`
	MinFreeSpace          string        `yaml:"min_free_space"`
	ResourceCheckInterval time.Duration `yaml:"resource_check_interval"`
}

type APIConfig struct {
	EnqueueRatePerSecond float64  `yaml:"enqueue_rate_per_second"`
	EnqueueBurst         int      `yaml:"enqueue_burst"`
	AllowedOrigins       []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
	// Retention drops completed transfers older than this. Zero keeps them.
	Retention time.Duration `yaml:"retention"`
}

type NotificationsConfig struct {
	Pushover PushoverConfig `yaml:"pushover"`
}

type PushoverConfig struct {
	Token         string        `yaml:"token"`
	User          string        `yaml:"user"`
	Enabled       bool          `yaml:"enabled"`
	Priority      int           `yaml:"priority"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	ExpireTime    time.Duration `yaml:"expire_time"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// Load loads configuration from file with environment variable expansion
func Load(configPath string) (*Config, error) {
	var err error
	configOnce.Do(func() {
		globalConfig, err = loadConfig(configPath)
		if err == nil && globalConfig != nil {
			go globalConfig.watchConfig(configPath)
		}
	})
	return globalConfig, err
}

// Get returns the global configuration instance
func Get() *Config {
	if globalConfig == nil {
		panic("configuration not loaded - call Load() first")
	}
	return globalConfig
}

func loadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables
	content := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := config.ensureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Session.Binary == "" {
		c.Session.Binary = "lftp"
	}
	if c.Supervisor.CommandTimeout == 0 {
		c.Supervisor.CommandTimeout = 30 * time.Second
	}
	if c.Supervisor.VerifyTimeout == 0 {
		c.Supervisor.VerifyTimeout = time.Minute
	}
	if c.Supervisor.StderrGrace == 0 {
		c.Supervisor.StderrGrace = 250 * time.Millisecond
	}
	if c.Supervisor.LockFile == "" && c.Database.Path != "" {
		c.Supervisor.LockFile = filepath.Join(filepath.Dir(c.Database.Path), "seedpull.lock")
	}
	if c.Scanner.PollInterval == 0 {
		c.Scanner.PollInterval = 30 * time.Second
	}
	if c.Controller.StatusInterval == 0 {
		c.Controller.StatusInterval = 5 * time.Second
	}
	if c.Controller.ResourceCheckInterval == 0 {
		c.Controller.ResourceCheckInterval = time.Minute
	}
	if c.API.EnqueueRatePerSecond == 0 {
		c.API.EnqueueRatePerSecond = 1
	}
	if c.API.EnqueueBurst == 0 {
		c.API.EnqueueBurst = 5
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if err := c.Session.Validate(); err != nil {
		return err
	}

	if c.Supervisor.CommandTimeout < 0 || c.Supervisor.VerifyTimeout < 0 {
		return fmt.Errorf("supervisor timeouts cannot be negative")
	}

	if c.Scanner.PollInterval < time.Second {
		return fmt.Errorf("scanner poll_interval must be at least 1s")
	}

	if c.Controller.MinFreeSpace != "" {
		if _, err := units.SizeToBytes(c.Controller.MinFreeSpace); err != nil {
			return fmt.Errorf("invalid controller min_free_space: %w", err)
		}
	}

	if c.API.EnqueueRatePerSecond < 0 || c.API.EnqueueBurst < 0 {
		return fmt.Errorf("api rate limits cannot be negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Database.Retention < 0 {
		return fmt.Errorf("database retention cannot be negative")
	}

	if c.Notifications.Pushover.Enabled {
		if c.Notifications.Pushover.Token == "" || strings.HasPrefix(c.Notifications.Pushover.Token, "${") {
			return fmt.Errorf("pushover token is required when notifications are enabled")
		}
		if c.Notifications.Pushover.User == "" || strings.HasPrefix(c.Notifications.Pushover.User, "${") {
			return fmt.Errorf("pushover user is required when notifications are enabled")
		}
	}

	return nil
}

// Validate checks the fields the lftp session cannot start without
func (s SessionConfig) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"session.hostname", s.Hostname},
		{"session.username", s.Username},
		{"session.key_file", s.KeyFile},
		{"session.remote_home", s.RemoteHome},
		{"session.local_dir", s.LocalDir},
		{"session.mirror_path", s.MirrorPath},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" || strings.HasPrefix(field.value, "${") {
			return fmt.Errorf("%s is required", field.name)
		}
	}
	if !filepath.IsAbs(s.LocalDir) {
		return fmt.Errorf("session.local_dir must be absolute: %s", s.LocalDir)
	}
	if strings.Contains(s.RemoteSubdir, "..") {
		return fmt.Errorf("session.remote_subdir cannot contain '..'")
	}
	return nil
}

func (c *Config) ensureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Database.Path),
		c.Session.LocalDir,
	}

	if c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}
	if c.Supervisor.LockFile != "" {
		dirs = append(dirs, filepath.Dir(c.Supervisor.LockFile))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// WatchForChanges registers a channel to receive notifications when config changes
func (c *Config) WatchForChanges() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan struct{}, 1)
	c.watchers = append(c.watchers, ch)
	return ch
}

func (c *Config) watchConfig(configPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("failed to create config watcher", "error", err)
		return
	}
	defer watcher.Close()

	configDir := filepath.Dir(configPath)
	if err := watcher.Add(configDir); err != nil {
		slog.Error("failed to watch config directory", "error", err, "path", configDir)
		return
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) == filepath.Base(configPath) &&
				(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				slog.Info("config file changed, reloading", "file", configPath)

				// Small delay to ensure file write is complete
				time.Sleep(100 * time.Millisecond)

				if err := c.reload(configPath); err != nil {
					slog.Error("failed to reload config", "error", err)
				} else {
					c.notifyWatchers()
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("config watcher error", "error", err)
		}
	}
}

// reload swaps in the sections that can change at runtime. Session,
// supervisor and database settings stay as they were at startup.
func (c *Config) reload(configPath string) error {
	newConfig, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.Server = newConfig.Server
	c.Scanner = newConfig.Scanner
	c.Controller = newConfig.Controller
	c.API = newConfig.API
	c.Notifications = newConfig.Notifications
	c.Logging = newConfig.Logging

	slog.Info("configuration reloaded successfully")
	return nil
}

func (c *Config) notifyWatchers() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, watcher := range c.watchers {
		select {
		case watcher <- struct{}{}:
		default:
			// Non-blocking send - if buffer is full, skip
		}
	}
}

// GetServer returns a copy of the server configuration
func (c *Config) GetServer() ServerConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Server
}

// GetSession returns a copy of the session configuration
func (c *Config) GetSession() SessionConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Session
}

func (c *Config) GetSupervisor() SupervisorConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Supervisor
}

// GetScanner returns a copy of the scanner configuration
func (c *Config) GetScanner() ScannerConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Scanner
}

// GetController returns a copy of the controller configuration
func (c *Config) GetController() ControllerConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Controller
}

func (c *Config) GetAPI() APIConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.API
}

// GetDatabase returns a copy of the database configuration
func (c *Config) GetDatabase() DatabaseConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Database
}

// GetNotifications returns a copy of the notifications configuration
func (c *Config) GetNotifications() NotificationsConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Notifications
}

// GetLogging returns a copy of the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Logging
}
