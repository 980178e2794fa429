package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"seedpull/internal/config"
	"seedpull/internal/controller"
	"seedpull/internal/interfaces"
	"seedpull/internal/models"
)

// JobController is what the HTTP surface needs from the controller
type JobController interface {
	Snapshot() controller.Snapshot
	Refresh(ctx context.Context) controller.Snapshot
	Summary() (*models.JobSummary, error)
	Transfers(filter models.TransferFilter) ([]*models.Transfer, error)
	RequestTransfer(ctx context.Context, name string) (*models.Transfer, error)
	Subscribe() (<-chan controller.Snapshot, func())
}

type Handlers struct {
	controller JobController
	resources  interfaces.ResourceChecker
	config     *config.Config
	logger     *slog.Logger
	gatherer   prometheus.Gatherer

	enqueueLimiter *rate.Limiter
	hub            *wsHub
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func NewHandlers(ctrl JobController, resources interfaces.ResourceChecker, cfg *config.Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")
	apiCfg := cfg.GetAPI()
	limit := rate.Limit(apiCfg.EnqueueRatePerSecond)
	if apiCfg.EnqueueRatePerSecond <= 0 {
		limit = rate.Inf
	}

	return &Handlers{
		controller:     ctrl,
		resources:      resources,
		config:         cfg,
		logger:         logger,
		gatherer:       prometheus.DefaultGatherer,
		enqueueLimiter: rate.NewLimiter(limit, max(apiCfg.EnqueueBurst, 1)),
		hub:            newWSHub(logger),
	}
}

// WithGatherer serves /metrics from gatherer instead of the default registry
func (h *Handlers) WithGatherer(gatherer prometheus.Gatherer) *Handlers {
	h.gatherer = gatherer
	return h
}

// Run feeds controller snapshots to websocket clients until ctx is done
func (h *Handlers) Run(ctx context.Context) {
	go h.hub.run()
	defer h.hub.Close()

	updates, unsubscribe := h.controller.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-updates:
			h.hub.Broadcast("snapshot", snap)
		}
	}
}

func (h *Handlers) RegisterRoutes(r *mux.Router) {
	h.registerWebRoutes(r)

	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/jobs", h.CreateJob).Methods("POST")
	api.HandleFunc("/jobs", h.GetJobs).Methods("GET")
	api.HandleFunc("/jobs/live", h.GetLiveJobs).Methods("GET")
	api.HandleFunc("/jobs/queue", h.GetQueue).Methods("GET")
	api.HandleFunc("/jobs/summary", h.GetJobSummary).Methods("GET")

	api.HandleFunc("/transfers", h.GetTransfers).Methods("GET")

	api.HandleFunc("/health", h.HealthCheck).Methods("GET")
	api.HandleFunc("/status", h.GetStatus).Methods("GET")

	api.HandleFunc("/ws", h.ServeWS).Methods("GET")

	api.Use(h.loggingMiddleware)
	api.Use(jsonContentTypeMiddleware)
}

// Handler wraps the router with CORS handling for the configured origins
func (h *Handlers) Handler() http.Handler {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return newCORS(h.config.GetAPI().AllowedOrigins).Handler(r)
}

func (h *Handlers) writeSuccess(w http.ResponseWriter, statusCode int, data interface{}, message string) {
	w.WriteHeader(statusCode)
	response := APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, statusCode int, message string, err error) {
	w.WriteHeader(statusCode)
	response := APIResponse{
		Success: false,
		Error:   message,
	}

	if err != nil {
		h.logger.Error("API error", "message", message, "error", err)
	} else {
		h.logger.Warn("API error", "message", message)
	}

	if jsonErr := json.NewEncoder(w).Encode(response); jsonErr != nil {
		h.logger.Error("failed to encode error response", "error", jsonErr)
	}
}
