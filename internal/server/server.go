// Package server hosts the composition engine over HTTP. The host is
// deliberately thin: it translates requests into pipeline input, runs
// the composer, and maps engine errors to status codes. In development
// it also watches the pages directory and pushes reload events over a
// websocket.
package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/pageforge/pageforge/internal/config"
	"github.com/pageforge/pageforge/internal/logging"
	"github.com/pageforge/pageforge/internal/pagestore"
	"github.com/pageforge/pageforge/internal/registry"
	"github.com/pageforge/pageforge/internal/watcher"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	watchDebounce     = 300 * time.Millisecond
)

// Server is the HTTP host for page composition and rendering.
type Server struct {
	config   *config.Config
	logger   logging.Logger
	composer *Composer
	pages    pagestore.PageRepository
	registry *registry.PluginRegistry
	hub      *reloadHub
	httpSrv  *http.Server
}

// New assembles the host from its collaborators.
func New(cfg *config.Config, logger logging.Logger, pages pagestore.PageRepository, reg *registry.PluginRegistry) *Server {
	s := &Server{
		config:   cfg,
		logger:   logger.WithComponent("server"),
		composer: NewComposer(cfg, pages, reg),
		pages:    pages,
		registry: reg,
		hub:      newReloadHub(logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /pages/{slug}", s.handlePageJSON)
	mux.HandleFunc("GET /pages/{slug}/html", s.handlePageHTML)
	mux.HandleFunc("GET /pages", s.handlePageList)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.hub.handleWebSocket)

	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.withRequestLogging(mux),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Composer exposes the underlying composer for non-HTTP hosts.
func (s *Server) Composer() *Composer {
	return s.composer
}

// Start serves until ctx is canceled, then shuts down gracefully. When
// page watching is enabled it also broadcasts reload events on page
// document changes.
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.hub.run(ctx)

	if s.config.Pages.Watch {
		if err := s.startWatcher(ctx); err != nil {
			s.logger.Warn(ctx, err, "page watching disabled", "dir", s.config.Pages.Dir)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "listening", "addr", s.httpSrv.Addr, "environment", s.config.Server.Environment)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return s.httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) startWatcher(ctx context.Context) error {
	w, err := watcher.NewPageWatcher(watchDebounce, s.logger)
	if err != nil {
		return err
	}

	w.AddFilter(watcher.PageFileFilter)
	w.AddFilter(watcher.NoHiddenFilter)
	w.AddHandler(func(events []watcher.ChangeEvent) error {
		pageEvents := events[:0:0]
		for _, event := range events {
			if s.isManifest(event.Path) {
				s.reloadAllowlist(ctx)
				continue
			}
			pageEvents = append(pageEvents, event)
		}
		if len(pageEvents) > 0 {
			s.logger.Debug(ctx, "page documents changed", "count", len(pageEvents))
			s.hub.broadcastReload(pageEvents)
		}
		return nil
	})

	if err := w.AddRecursive(s.config.Pages.Dir); err != nil {
		return err
	}
	if s.config.Plugins.Manifest != "" {
		if err := w.AddPath(s.config.Plugins.Manifest); err != nil {
			s.logger.Warn(ctx, err, "manifest watching disabled", "path", s.config.Plugins.Manifest)
		}
	}

	w.Start(ctx)
	go func() {
		<-ctx.Done()
		if err := w.Stop(); err != nil {
			s.logger.Warn(context.Background(), err, "stopping watcher")
		}
	}()
	return nil
}

func (s *Server) isManifest(path string) bool {
	manifest := s.config.Plugins.Manifest
	return manifest != "" && filepath.Clean(path) == filepath.Clean(manifest)
}

// reloadAllowlist reapplies the manifest-driven allowlist. Failures
// keep the previous allowlist in place.
func (s *Server) reloadAllowlist(ctx context.Context) {
	if err := s.registry.LoadAllowlistFromRepo(ctx); err != nil {
		s.logger.Warn(ctx, err, "allowlist reload failed")
		return
	}
	s.logger.Info(ctx, "allowlist reloaded", "allowed", len(s.registry.Allowlist()))
}

func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration", time.Since(start).String(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
