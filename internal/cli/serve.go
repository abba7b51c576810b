package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yubzen/tripweaver/internal/config"
	"github.com/yubzen/tripweaver/internal/llm"
	"github.com/yubzen/tripweaver/internal/metrics"
	"github.com/yubzen/tripweaver/internal/plan"
	"github.com/yubzen/tripweaver/internal/planner"
	"github.com/yubzen/tripweaver/internal/render"
	"github.com/yubzen/tripweaver/internal/workflow"
)

// maxRequestBody bounds a POST /plan body.
const maxRequestBody = 64 << 10

// PlanRunner runs one trip.
type PlanRunner interface {
	Plan(ctx context.Context, rec plan.Record, observers ...workflow.Observer) (planner.Result, error)
}

// PlanResponse is the body returned by POST /plan.
type PlanResponse struct {
	RunID    string            `json:"run_id"`
	Visited  []workflow.NodeID `json:"visited"`
	Document render.Document   `json:"document"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP front end. The runner can be swapped while requests
// are in flight; each request keeps the runner it started with.
type Server struct {
	mu       sync.RWMutex
	runner   PlanRunner
	metrics  *metrics.Metrics
	logger   *slog.Logger
	renderer *render.Renderer
}

func NewServer(runner PlanRunner, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{runner: runner, metrics: m, logger: logger, renderer: render.New()}
}

// Swap replaces the runner used by later requests.
func (s *Server) Swap(runner PlanRunner) {
	s.mu.Lock()
	s.runner = runner
	s.mu.Unlock()
}

func (s *Server) current() PlanRunner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runner
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /plan", s.handlePlan)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	rec, err := req.Record()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	res, err := s.current().Plan(r.Context(), rec)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, plan.ErrInvalidInputs):
			status = http.StatusBadRequest
		case errors.Is(err, llm.ErrNoUsableBackend):
			status = http.StatusServiceUnavailable
		case errors.Is(err, context.Canceled):
			// client went away
			return
		}
		s.logger.Warn("Plan request failed", "destination", rec.Destination, "status", status, "error", err)
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, PlanResponse{
		RunID:    res.Trace.RunID,
		Visited:  res.Trace.Visited,
		Document: s.renderer.Document(res.Record),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func NewServeCmd(app *App) *cobra.Command {
	var (
		addr      string
		noWatch   bool
		noArchive bool
	)
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /plan, /metrics and /healthz over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Serve.Addr
			}
			logger := app.logger(cmd.ErrOrStderr())

			archive, err := openArchive(cfg, noArchive)
			if err != nil {
				return err
			}
			var opts []planner.Option
			if archive != nil {
				defer archive.Close()
				opts = append(opts, planner.WithArchive(archive))
			}

			m := metrics.New()
			p, err := planner.FromConfig(cfg, logger, m, opts...)
			if err != nil {
				return err
			}
			srv := NewServer(p, m, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !noWatch {
				w := &config.Watcher{
					Path:   app.configPath(),
					Logger: logger,
					OnChange: func(next *config.Config) {
						np, err := planner.FromConfig(next, logger, m, opts...)
						if err != nil {
							logger.Warn("Ignoring reloaded config", "error", err)
							return
						}
						srv.Swap(np)
						logger.Info("Model candidates updated", "candidates", len(next.LLM.Candidates), "fallback_provider", next.LLM.FallbackProvider)
					},
				}
				go func() {
					if err := w.Run(ctx); err != nil {
						logger.Warn("Config watcher stopped", "error", err)
					}
				}()
			}

			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Info("Serving", "addr", addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("serve %s: %w", addr, err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			logger.Info("Shutting down")
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:8080)")
	serveCmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the config file when it changes")
	serveCmd.Flags().BoolVar(&noArchive, "no-archive", false, "Do not save plans to the history archive")
	return serveCmd
}
