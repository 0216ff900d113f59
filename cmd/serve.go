package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d4tools/loothound/internal/model"
	"github.com/d4tools/loothound/internal/pipeline"
	"github.com/d4tools/loothound/internal/registry"
	"github.com/d4tools/loothound/internal/snapshot"
	"github.com/d4tools/loothound/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP compare server",
	Long: `Serves scoring and comparison over HTTP. Build profiles are loaded
from the configured builds directory at startup and referenced by name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		p, err := newPipeline(ctx, st)
		if err != nil {
			return err
		}

		builds, err := registry.LoadDir(cfg.Server.BuildsDir)
		if err != nil {
			return err
		}
		zap.L().Info("serve: loaded build profiles", zap.Strings("builds", builds.Names()))

		srv := &server{pipeline: p, builds: builds, store: st}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("serve: shutting down")
			httpSrv.Shutdown(ctx)
		}()

		zap.L().Info("serve: listening", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type server struct {
	pipeline *pipeline.Pipeline
	builds   *registry.Registry
	store    store.Store
}

func (s *server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/score", s.handleScore)
		r.Post("/compare", s.handleCompare)
		r.Get("/builds", s.handleBuilds)
		r.Get("/comparisons", s.handleComparisons)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scoreRequest struct {
	Build  string           `json:"build"`
	Tokens []model.RawToken `json:"tokens"`
	Source string           `json:"source,omitempty"`
}

func (s *server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	build := s.builds.ByName(req.Build)
	if build == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown build %q", req.Build))
		return
	}
	if len(req.Tokens) == 0 {
		writeError(w, http.StatusBadRequest, "tokens are required")
		return
	}

	snap, result, err := s.pipeline.ScoreTokens(req.Tokens, build, snapshot.Source{Ref: req.Source, Kind: "api"})
	if err != nil {
		zap.L().Warn("serve: score failed", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, eris.ToString(err, false))
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Snapshot *model.ItemSnapshot `json:"snapshot"`
		Score    model.ScoreResult   `json:"score"`
	}{snap, result})
}

type compareRequest struct {
	Build   string           `json:"build"`
	TokensA []model.RawToken `json:"tokens_a"`
	TokensB []model.RawToken `json:"tokens_b"`
	SourceA string           `json:"source_a,omitempty"`
	SourceB string           `json:"source_b,omitempty"`
	Save    bool             `json:"save,omitempty"`
}

func (s *server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	build := s.builds.ByName(req.Build)
	if build == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown build %q", req.Build))
		return
	}
	if len(req.TokensA) == 0 || len(req.TokensB) == 0 {
		writeError(w, http.StatusBadRequest, "tokens_a and tokens_b are required")
		return
	}

	res, err := s.pipeline.Compare(req.TokensA, req.TokensB, build,
		snapshot.Source{Ref: req.SourceA, Kind: "api"},
		snapshot.Source{Ref: req.SourceB, Kind: "api"},
	)
	if err != nil {
		zap.L().Warn("serve: compare failed", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, eris.ToString(err, false))
		return
	}

	if req.Save {
		if err := s.store.SaveComparison(r.Context(), res); err != nil {
			zap.L().Warn("serve: failed to save comparison", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleBuilds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"builds": s.builds.Names()})
}

func (s *server) handleComparisons(w http.ResponseWriter, r *http.Request) {
	filter := store.ComparisonFilter{
		BuildName: r.URL.Query().Get("build"),
		Limit:     50,
	}
	results, err := s.store.ListComparisons(r.Context(), filter)
	if err != nil {
		zap.L().Error("serve: list comparisons failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list comparisons")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comparisons": results})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
