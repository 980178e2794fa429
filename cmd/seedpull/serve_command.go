package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"seedpull/internal/api"
	"seedpull/internal/config"
	"seedpull/internal/controller"
	"seedpull/internal/metrics"
	"seedpull/internal/monitor"
	"seedpull/internal/notifications"
	"seedpull/internal/repository"
	"seedpull/internal/session"
)

const lastSessionKey = "last_session_id"

func newServeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the transfer daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configPath(*configFlag))
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, releaseLog, err := setupLogging(cfg.GetLogging())
	if err != nil {
		return err
	}
	defer releaseLog()

	logger.Info("configuration loaded", "config_path", configPath)

	supervisorCfg := cfg.GetSupervisor()
	lock, err := session.AcquireLock(supervisorCfg.LockFile)
	if err != nil {
		return err
	}
	defer lock.Release()

	repo, err := repository.New(cfg.GetDatabase().Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer repo.Close()

	logger.Info("database initialized", "path", cfg.GetDatabase().Path)

	resources := monitor.New(cfg, logger)
	if err := resources.Start(); err != nil {
		return fmt.Errorf("failed to start resource monitor: %w", err)
	}
	defer resources.Stop()

	notifier := notifications.NewPushoverNotifier(cfg, logger)

	metrics.Register(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var ctrl *controller.Controller
	sessionCfg := cfg.GetSession()
	sess := session.New(sessionCfg, logger,
		session.WithTimeouts(supervisorCfg.CommandTimeout, supervisorCfg.VerifyTimeout, supervisorCfg.StderrGrace),
		session.WithStateHook(func(state session.State, err error) {
			ctrl.HandleSessionState(state, err)
		}),
		session.WithFatalHandler(func(err error) {
			logger.Error("lftp session is out of sync with the local mirror, shutting down", "error", err)
			cancel(err)
		}),
	)

	opts := []controller.Option{controller.WithResourceChecker(resources)}
	if notifier.IsEnabled() {
		opts = append(opts, controller.WithNotifier(notifier))
	}
	ctrl = controller.New(cfg, sess, repo, logger, opts...)

	if previous, err := repo.GetConfig(lastSessionKey); err == nil {
		logger.Info("previous session", "session_id", previous)
	}

	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("failed to start lftp session: %w", err)
	}
	defer sess.Close()

	if err := repo.SetConfig(lastSessionKey, sess.SessionID()); err != nil {
		logger.Warn("failed to record session id", "error", err)
	}

	go func() {
		select {
		case <-sess.Done():
			cancel(fmt.Errorf("lftp session ended: %w", sess.Err()))
		case <-ctx.Done():
		}
	}()

	go func() {
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			cancel(fmt.Errorf("controller stopped: %w", err))
		}
	}()

	handlers := api.NewHandlers(ctrl, resources, cfg, logger)
	go handlers.Run(ctx)

	if retention := cfg.GetDatabase().Retention; retention > 0 {
		go pruneTransfers(ctx, repo, retention, logger)
	}

	serverConfig := cfg.GetServer()
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
		Handler:      handlers.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cancel(fmt.Errorf("HTTP server error: %w", err))
		}
	}()

	go func() {
		configChanges := cfg.WatchForChanges()
		for {
			select {
			case <-ctx.Done():
				return
			case <-configChanges:
				level := cfg.GetLogging().Level
				logger.Info("configuration changed, updating log level", "level", level)
				logLevel.Set(parseLevel(level))
			}
		}
	}()

	<-ctx.Done()
	cause := context.Cause(ctx)
	if errors.Is(cause, context.Canceled) {
		cause = nil
		logger.Info("shutdown signal received, initiating graceful shutdown")
	} else {
		logger.Error("shutting down", "error", cause)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	snap := ctrl.Snapshot()
	if pending := len(snap.Jobs) + len(snap.Queue); pending > 0 && notifier.IsEnabled() {
		message := fmt.Sprintf("Seedpull is shutting down. %d transfer(s) were still running or queued in lftp.", pending)
		if err := notifier.NotifySystemAlert("Service Shutdown", message, 1); err != nil {
			logger.Warn("failed to send shutdown notification", "error", err)
		}
	}

	logger.Info("shutdown completed")
	return cause
}

func pruneTransfers(ctx context.Context, repo *repository.Repository, retention time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		if _, err := repo.CleanupCompleted(time.Now().Add(-retention)); err != nil {
			logger.Warn("failed to prune transfer history", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func configPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv("SEEDPULL_CONFIG"); path != "" {
		return path
	}

	candidates := []string{
		"/config/config.yaml",
		"./config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "config.yaml"
}
