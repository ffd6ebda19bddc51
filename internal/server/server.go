// Package server exposes the pipeline as a JSON API over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/datapro-cli/internal/metrics"
	"github.com/KaramelBytes/datapro-cli/internal/modeling"
	"github.com/KaramelBytes/datapro-cli/internal/session"
	"github.com/KaramelBytes/datapro-cli/internal/viz"
)

// Options tunes request handling.
type Options struct {
	PreviewRows    int
	MaxRows        int
	MaxUploadBytes int64
	Model          modeling.Params
	Renderer       viz.Renderer
}

func DefaultOptions() Options {
	return Options{
		PreviewRows:    10,
		MaxUploadBytes: 100 << 20,
		Renderer:       viz.NewPNGRenderer(0, 0),
	}
}

type Server struct {
	store   *session.Store
	metrics *metrics.Metrics
	opts    Options
	router  chi.Router
}

func New(store *session.Store, m *metrics.Metrics, opts Options) *Server {
	d := DefaultOptions()
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = d.PreviewRows
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = d.MaxUploadBytes
	}
	if opts.Renderer == nil {
		opts.Renderer = d.Renderer
	}
	if m == nil {
		m = metrics.New()
	}
	s := &Server{store: store, metrics: m, opts: opts}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handle("upload", s.upload))
		r.Get("/data-preview", s.handle("preview", s.dataPreview))
		r.Get("/columns", s.handle("columns", s.columns))
		r.Post("/clean-data", s.handle("clean", s.cleanData))
		r.Post("/eda", s.handle("analyze", s.eda))
		r.Post("/model", s.handle("model", s.model))
		r.Post("/visualize", s.handle("visualize", s.visualize))
		r.Get("/export-data", s.handle("export", s.exportData))
		r.Post("/export-visualization", s.handle("export_chart", s.exportVisualization))
		r.Post("/clear", s.handle("clear", s.clear))
	})
	return r
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// requestLogger logs one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
