package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/invoice-cli/internal/config"
	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/pipeline"
	"github.com/sells-group/invoice-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the status API and trigger runs over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate(config.ModeServe); err != nil {
			return err
		}
		if err := cfg.Validate(config.ModeRun); err != nil {
			return err
		}

		env, err := newStageEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := env.pipeline(ctx)
		if err != nil {
			return err
		}

		api := newAPIServer(ctx, env.store, p)
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.routes(cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := srv.Shutdown(shutdownCtx)
			api.wait()
			return err
		})
		return g.Wait()
	},
}

// pipelineRunner is the part of the pipeline the API triggers.
type pipelineRunner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// runRecord describes the latest run triggered over HTTP.
type runRecord struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at,omitzero"`
	Result     *pipeline.Result `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// apiServer serves the status API. At most one run is active per process.
type apiServer struct {
	baseCtx context.Context
	store   store.Store
	runner  pipelineRunner

	running atomic.Bool
	lastRun atomic.Pointer[runRecord]
	wg      sync.WaitGroup
}

func newAPIServer(ctx context.Context, st store.Store, r pipelineRunner) *apiServer {
	return &apiServer{baseCtx: ctx, store: st, runner: r}
}

func (s *apiServer) routes(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/invoices/raw", s.handleRawInvoices)
		r.Get("/invoices/processed", s.handleProcessedInvoices)
		r.Post("/runs", s.handleStartRun)
	})
	return r
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountByStatus(r.Context())
	if err != nil {
		zap.L().Error("api: count by status", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load counts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"running":  s.running.Load(),
		"counts":   counts,
		"last_run": s.lastRun.Load(),
	})
}

func (s *apiServer) handleRawInvoices(w http.ResponseWriter, r *http.Request) {
	var statuses []model.ProcessingStatus
	if q := r.URL.Query().Get("status"); q != "" {
		st, err := model.ParseProcessingStatus(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		statuses = append(statuses, st)
	}

	invs, err := s.store.ListRawInvoices(r.Context(), statuses...)
	if err != nil {
		zap.L().Error("api: list raw invoices", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list raw invoices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invs, "count": len(invs)})
}

func (s *apiServer) handleProcessedInvoices(w http.ResponseWriter, r *http.Request) {
	var statuses []model.SyncStatus
	if q := r.URL.Query().Get("sync_status"); q != "" {
		st, err := model.ParseSyncStatus(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		statuses = append(statuses, st)
	}

	invs, err := s.store.ListProcessedInvoices(r.Context(), statuses...)
	if err != nil {
		zap.L().Error("api: list processed invoices", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list processed invoices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invs, "count": len(invs)})
}

func (s *apiServer) handleStartRun(w http.ResponseWriter, _ *http.Request) {
	if !s.running.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, "a run is already in progress")
		return
	}

	rec := &runRecord{StartedAt: time.Now().UTC()}
	s.lastRun.Store(rec)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		res, err := s.runner.Run(s.baseCtx)
		done := &runRecord{StartedAt: rec.StartedAt, FinishedAt: time.Now().UTC(), Result: res}
		if err != nil {
			done.Error = err.Error()
			zap.L().Error("api: run failed", zap.Error(err))
		}
		s.lastRun.Store(done)
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted", "started_at": rec.StartedAt})
}

// wait blocks until a background run finishes.
func (s *apiServer) wait() {
	s.wg.Wait()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
