package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/randunun/bom-pricer/internal/ingest"
	"github.com/randunun/bom-pricer/internal/model"
	"github.com/randunun/bom-pricer/internal/pricer"
	"github.com/randunun/bom-pricer/internal/sign"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pricing and crawl ingestion API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p := newPricer(st)
		ing := ingest.New(st, newConverter(), ingest.Options{
			Source:      cfg.Ingest.Source,
			Concurrency: cfg.Ingest.Concurrency,
		})

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Signature"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Post("/api/bom", handleBOM(p))
		r.Post("/api/select", handleSelect(p))

		// The crawler webhook is throttled independently of CORS-facing
		// endpoints.
		limiter := rate.NewLimiter(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst)
		r.Post("/api/crawl/result", handleCrawlResult(ing, limiter, cfg.Ingest.Secret))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func handleBOM(p *pricer.Pricer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
			User string `json:"user,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.Text == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
			return
		}

		result, err := p.PriceBOM(r.Context(), req.User, req.Text)
		if err != nil {
			zap.L().Error("pricing failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "pricing failed"})
			return
		}

		format := r.URL.Query().Get("format")
		switch format {
		case "csv", "legacy-csv":
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", `attachment; filename="bom-pricing.csv"`)
		case "xlsx":
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", `attachment; filename="bom-pricing.xlsx"`)
		default:
			format = "json"
			w.Header().Set("Content-Type", "application/json")
		}
		if err := writeResult(w, result, format); err != nil {
			zap.L().Error("write response failed", zap.Error(err))
		}
	}
}

func handleSelect(p *pricer.Pricer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			User   string `json:"user"`
			Brand  string `json:"brand"`
			Seller string `json:"seller"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.User == "" || req.Brand == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user and brand are required"})
			return
		}

		entry, err := p.Select(r.Context(), req.User, req.Brand, req.Seller)
		if err != nil {
			zap.L().Error("selection failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "selection failed"})
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func handleCrawlResult(ing *ingest.Ingestor, limiter *rate.Limiter, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
			return
		}

		if !sign.Verify(body, r.Header.Get("X-Signature"), secret) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
			return
		}

		var payload model.CrawlResult
		if err := json.Unmarshal(body, &payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}

		report, err := ing.Ingest(r.Context(), payload)
		if err != nil {
			zap.L().Error("ingest failed",
				zap.String("keyword", payload.Keyword),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "ingest failed"})
			return
		}

		zap.L().Info("crawl result ingested",
			zap.String("keyword", payload.Keyword),
			zap.Int("variants", report.Variants),
			zap.Int("samples", report.SamplesAppended),
		)
		writeJSON(w, http.StatusOK, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
