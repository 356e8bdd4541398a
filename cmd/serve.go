package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the query API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg, err := initRegistry(ctx, "query")
		if err != nil {
			return err
		}
		defer reg.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/v1", func(r chi.Router) {
			r.Post("/query", handleQuery(reg))
			r.Post("/classify", handleClassify(reg))
			r.Get("/documents", handleDocuments(reg))
			r.Get("/market/quote/{symbol}", handleQuote(reg))
			r.Get("/market/summary", handleMarketSummary(reg))
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func handleQuery(reg *registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Question          string   `json:"question"`
			SelectedDocuments []string `json:"selected_documents"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		// Empty questions never enter the pipeline.
		if strings.TrimSpace(body.Question) == "" {
			writeError(w, http.StatusBadRequest, "question is required")
			return
		}

		result := reg.Router.Route(req.Context(), body.Question, body.SelectedDocuments)
		writeJSON(w, http.StatusOK, result)
	}
}

func handleClassify(reg *registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Question string `json:"question"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(body.Question) == "" {
			writeError(w, http.StatusBadRequest, "question is required")
			return
		}

		writeJSON(w, http.StatusOK, reg.RAG.Classify(req.Context(), body.Question))
	}
}

func handleDocuments(reg *registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		docs, err := reg.Index.Recent(req.Context(), 100)
		if err != nil {
			zap.L().Error("serve: list documents failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list documents")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "total": len(docs)})
	}
}

func handleQuote(reg *registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		symbol := chi.URLParam(req, "symbol")
		quote, err := reg.Market.GetQuote(req.Context(), symbol)
		if err != nil {
			zap.L().Warn("serve: quote fetch failed", zap.String("symbol", symbol), zap.Error(err))
			writeError(w, http.StatusBadGateway, "quote unavailable")
			return
		}
		writeJSON(w, http.StatusOK, quote)
	}
}

func handleMarketSummary(reg *registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		summary, err := reg.Market.MarketSummary(req.Context())
		if err != nil {
			zap.L().Warn("serve: market summary failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "market data unavailable")
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
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
