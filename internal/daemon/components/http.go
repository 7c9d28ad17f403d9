package components

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/daemon"
)

const (
	healthReadTimeout  = 5 * time.Second
	healthWriteTimeout = 10 * time.Second
	healthIdleTimeout  = 60 * time.Second
)

// HealthReporter is the part of the daemon the health endpoint reads.
type HealthReporter interface {
	ComponentHealth() map[string]*daemon.ComponentHealth
}

// HTTPServerComponent serves GET /health on server.health_addr. An empty
// address leaves the component idle.
type HTTPServerComponent struct {
	reporter    HealthReporter
	cfg         *config.ServerConfig
	deps        []string
	server      *http.Server
	shutdownTTL time.Duration
	initialized bool
	started     bool
	mu          sync.RWMutex
	startTime   time.Time
}

func NewHTTPServerComponent(reporter HealthReporter, cfg *config.ServerConfig) *HTTPServerComponent {
	return NewHTTPServerComponentWithDependencies(reporter, cfg, []string{"Workers"})
}

func NewHTTPServerComponentWithDependencies(reporter HealthReporter, cfg *config.ServerConfig, deps []string) *HTTPServerComponent {
	return &HTTPServerComponent{
		reporter:    reporter,
		cfg:         cfg,
		deps:        append([]string(nil), deps...),
		initialized: false,
		started:     false,
	}
}

func (h *HTTPServerComponent) Name() string {
	return "HTTPServer"
}

func (h *HTTPServerComponent) Dependencies() []string {
	return append([]string(nil), h.deps...)
}

func (h *HTTPServerComponent) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cfg == nil {
		return fmt.Errorf("server config not provided")
	}

	shutdownTimeout, err := config.DurationOrDefault(h.cfg.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse server shutdown timeout: %w", err)
	}
	h.shutdownTTL = shutdownTimeout

	addr := strings.TrimSpace(h.cfg.HealthAddr)
	if addr != "" {
		h.server = &http.Server{
			Addr:         addr,
			Handler:      h.Handler(),
			ReadTimeout:  healthReadTimeout,
			WriteTimeout: healthWriteTimeout,
			IdleTimeout:  healthIdleTimeout,
		}
	}

	h.initialized = true
	slog.Info("HTTPServer initialized", "component", h.Name(), "addr", addr, "enabled", addr != "")
	return nil
}

// Handler exposes the mux for tests and embedding.
func (h *HTTPServerComponent) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	return mux
}

func (h *HTTPServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return fmt.Errorf("HTTPServer not initialized")
	}

	if h.server != nil {
		server := h.server
		go func() {
			slog.Info("HTTP server listening", "component", h.Name(), "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("HTTP server failed", "component", h.Name(), "error", err)
			}
		}()
	}

	h.started = true
	h.startTime = time.Now()
	slog.Info("HTTPServer started", "component", h.Name())
	return nil
}

func (h *HTTPServerComponent) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		slog.Info("HTTPServer not started, skipping stop", "component", h.Name())
		return nil
	}

	h.started = false
	if h.server == nil {
		return nil
	}

	slog.Info("Stopping HTTPServer...", "component", h.Name())
	shutdownCtx, cancel := context.WithTimeout(ctx, h.shutdownTTL)
	defer cancel()

	if err := h.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTPServer shutdown error", "component", h.Name(), "error", err)
		return err
	}

	slog.Info("HTTPServer stopped", "component", h.Name())
	return nil
}

func (h *HTTPServerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.initialized {
		return &daemon.ComponentHealth{
			Name:    h.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if !h.started {
		return &daemon.ComponentHealth{
			Name:    h.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not started"),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    h.Name(),
		Healthy: true,
		Error:   nil,
	}, nil
}

type componentStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
	Unhealthy  []string                   `json:"unhealthy,omitempty"`
}

func (h *HTTPServerComponent) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := healthResponse{Status: "ok", Components: map[string]componentStatus{}}
	if h.reporter != nil {
		for name, ch := range h.reporter.ComponentHealth() {
			status := componentStatus{Healthy: ch.Healthy}
			if ch.Error != nil {
				status.Error = ch.Error.Error()
			}
			if !ch.Healthy {
				resp.Unhealthy = append(resp.Unhealthy, name)
			}
			resp.Components[name] = status
		}
	}
	sort.Strings(resp.Unhealthy)

	code := http.StatusOK
	if len(resp.Unhealthy) > 0 {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("Failed to encode health response", "error", err)
	}
}
