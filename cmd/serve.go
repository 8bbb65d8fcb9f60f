package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/card-ingest/internal/config"
	"github.com/sells-group/card-ingest/internal/crm"
	"github.com/sells-group/card-ingest/internal/metrics"
	"github.com/sells-group/card-ingest/internal/model"
	"github.com/sells-group/card-ingest/internal/pipeline"
	"github.com/sells-group/card-ingest/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ingestion and CRM receiver HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyServePort(cfg, servePort)

		env, err := initIngest(ctx, cfg, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(env.Pipeline, env.Store, cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// applyServePort overrides the configured port when --port is set. Derived
// defaults such as sync.endpoint are resolved later by initIngest.
func applyServePort(c *config.Config, port int) {
	if port != 0 {
		c.Server.Port = port
	}
}

// runner is the part of the pipeline the HTTP handlers depend on.
type runner interface {
	Run(ctx context.Context, imageRef string) (*model.IngestResult, error)
}

var _ runner = (*pipeline.Pipeline)(nil)

// newRouter builds the HTTP API.
func newRouter(p runner, st store.LeadStore, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	ingest := ingestHandler(p)
	r.Post("/ingest", ingest)
	r.Post("/ingest-local", ingest)
	r.Method(http.MethodPost, "/crm-sync", &crm.Receiver{})

	r.Get("/leads", listLeadsHandler(st))
	r.Get("/leads/{id}", getLeadHandler(st))

	return r
}

// ingestRequest accepts image_path, or imagePath as sent by older clients
// of /ingest-local.
type ingestRequest struct {
	ImagePath      string `json:"image_path"`
	ImagePathCamel string `json:"imagePath"`
}

func (r ingestRequest) path() string {
	if r.ImagePath != "" {
		return r.ImagePath
	}
	return r.ImagePathCamel
}

func ingestHandler(p runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		imagePath := req.path()
		if imagePath == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image_path is required"})
			return
		}

		result, err := p.Run(r.Context(), imagePath)
		if err != nil {
			status := http.StatusInternalServerError
			stage := ""
			var se *pipeline.StageError
			if errors.As(err, &se) {
				stage = se.Stage
				if se.Stage == pipeline.StageOCR {
					status = http.StatusBadGateway
				}
			}
			zap.L().Error("ingest failed",
				zap.String("image", imagePath),
				zap.String("stage", stage),
				zap.Error(err),
			)
			writeJSON(w, status, map[string]string{"error": err.Error(), "stage": stage})
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func listLeadsHandler(st store.LeadStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.LeadFilter{Email: q.Get("email")}
		for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
			raw := q.Get(name)
			if raw == "" {
				continue
			}
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
				return
			}
			*dst = n
		}

		leads, err := st.ListLeads(r.Context(), filter)
		if err != nil {
			zap.L().Error("list leads failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if leads == nil {
			leads = []model.StoredLead{}
		}
		writeJSON(w, http.StatusOK, leads)
	}
}

func getLeadHandler(st store.LeadStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lead, err := st.GetLead(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "lead not found"})
				return
			}
			zap.L().Error("get lead failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, lead)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
