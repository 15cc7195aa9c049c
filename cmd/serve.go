package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/leadline/crm-cli/internal/config"
	"github.com/leadline/crm-cli/internal/importer"
	"github.com/leadline/crm-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for the import UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		imp, err := importer.New(st, cfg.Import)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(imp, st, cfg.Server),
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
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
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

// newRouter wires the import API. Upload endpoints share one rate limiter;
// a burst of preview retries is fine, a sustained flood is not.
func newRouter(imp *importer.Importer, st store.Store, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))

	uploadsPerMin := cfg.UploadsPerMin
	if uploadsPerMin <= 0 {
		uploadsPerMin = 30
	}
	limiter := rate.NewLimiter(rate.Limit(float64(uploadsPerMin)/60.0), uploadsPerMin)

	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/statuses", func(w http.ResponseWriter, req *http.Request) {
		statuses, err := st.ListStatuses(req.Context())
		if err != nil {
			zap.L().Error("list statuses failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load statuses")
			return
		}
		writeJSON(w, http.StatusOK, statuses)
	})

	r.Post("/api/import/preview", func(w http.ResponseWriter, req *http.Request) {
		if !limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "too many uploads")
			return
		}

		req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)
		if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart upload")
			return
		}
		file, header, err := req.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file field is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read upload")
			return
		}

		mediaType := header.Header.Get("Content-Type")
		if mediaType == "" || mediaType == "application/octet-stream" {
			mediaType = header.Filename
		}

		preview, err := imp.Preview(req.Context(), data, mediaType)
		if err != nil {
			if errors.Is(err, importer.ErrMalformedFile) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			zap.L().Error("import preview failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "preview failed")
			return
		}
		writeJSON(w, http.StatusOK, preview)
	})

	r.Post("/api/import/commit", func(w http.ResponseWriter, req *http.Request) {
		var rows []importer.Candidate
		if err := json.NewDecoder(req.Body).Decode(&rows); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		report, err := imp.Commit(req.Context(), rows)
		if err != nil {
			zap.L().Error("import commit failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "commit failed")
			return
		}
		writeJSON(w, http.StatusOK, report)
	})

	return r
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
