package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/credobot/credo/internal/api/handlers"
	mw "github.com/credobot/credo/internal/api/middleware"
	"github.com/credobot/credo/internal/config"
	"github.com/credobot/credo/internal/domain"
	"github.com/credobot/credo/internal/embedding"
	"github.com/credobot/credo/internal/service"
	"github.com/credobot/credo/internal/store"
	"github.com/credobot/credo/internal/tokenizer"
	"github.com/credobot/credo/internal/vecindex"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router plus basic runtime metrics.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, index *vecindex.Manager, logger *zap.Logger) *App {
	// Stores
	personaStore := store.NewPersonaStore(db)
	beliefStore := store.NewBeliefStore(db)
	stanceStore := store.NewStanceStore(db)
	evidenceStore := store.NewEvidenceStore(db)
	interactionStore := store.NewInteractionStore(db)

	// External clients via provider factory
	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
	if err != nil {
		logger.Warn("embedding client initialization failed",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
	} else {
		logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
	}

	// Services
	graphSvc := service.NewGraphService(beliefStore, personaStore, logger)
	stanceSvc := service.NewStanceService(stanceStore, beliefStore, logger)
	confidenceSvc := service.NewConfidenceService(stanceStore, beliefStore, logger)
	evidenceSvc := service.NewEvidenceService(evidenceStore, beliefStore, logger)
	memorySvc := service.NewMemoryService(interactionStore, personaStore, index, embeddingClient, logger)
	contextSvc := service.NewContextService(beliefStore, evidenceStore, memorySvc, tokenizer.NewApprox(), config.TokenBudget(), logger)

	// Handlers
	personaHandler := handlers.NewPersonaHandler(personaStore, index, logger)
	graphHandler := handlers.NewGraphHandler(graphSvc)
	stanceHandler := handlers.NewStanceHandler(stanceSvc, confidenceSvc)
	evidenceHandler := handlers.NewEvidenceHandler(evidenceSvc)
	memoryHandler := handlers.NewMemoryHandler(memorySvc)
	contextHandler := handlers.NewContextHandler(contextSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/personas", personaHandler.Create)

		r.Route("/personas/{personaID}", func(r chi.Router) {
			r.Get("/", personaHandler.GetByID)
			r.Delete("/", personaHandler.Delete)

			// Belief graph
			r.Route("/graph", func(r chi.Router) {
				r.Get("/", graphHandler.Query)
				r.Post("/nodes", graphHandler.CreateNode)
				r.Route("/nodes/{nodeID}", func(r chi.Router) {
					r.Get("/", graphHandler.GetNode)
					r.Delete("/", graphHandler.DeleteNode)

					// Stance lifecycle
					r.Route("/stance", func(r chi.Router) {
						r.Put("/", stanceHandler.Update)
						r.Post("/lock", stanceHandler.Lock)
						r.Post("/unlock", stanceHandler.Unlock)
						r.Get("/history", stanceHandler.History)
						r.Get("/audit", stanceHandler.AuditLog)
					})

					// Confidence updates
					r.Route("/confidence", func(r chi.Router) {
						r.Post("/evidence", stanceHandler.UpdateFromEvidence)
						r.Post("/conflict", stanceHandler.UpdateFromConflict)
						r.Post("/nudge", stanceHandler.Nudge)
						r.Post("/manual", stanceHandler.ManualUpdate)
					})

					// Evidence trail
					r.Route("/evidence", func(r chi.Router) {
						r.Post("/", evidenceHandler.Append)
						r.Get("/", evidenceHandler.List)
					})
				})
				r.Post("/edges", graphHandler.CreateEdge)
				r.Delete("/edges/{edgeID}", graphHandler.DeleteEdge)
			})

			// Interaction memory
			r.Route("/interactions", func(r chi.Router) {
				r.Post("/", memoryHandler.Log)
				r.Get("/search", memoryHandler.Search)
				r.Post("/rebuild-index", memoryHandler.Rebuild)
			})

			// Context assembly
			r.Post("/context", contextHandler.Assemble)
			r.Post("/prompt", contextHandler.Prompt)
		})
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(db *pgxpool.Pool, index *vecindex.Manager, logger *zap.Logger) *chi.Mux {
	return NewApp(db, index, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.PersonaStore     = (*store.PersonaStore)(nil)
	_ domain.BeliefStore      = (*store.BeliefStore)(nil)
	_ domain.StanceStore      = (*store.StanceStore)(nil)
	_ domain.EvidenceStore    = (*store.EvidenceStore)(nil)
	_ domain.InteractionStore = (*store.InteractionStore)(nil)
	_ domain.VectorIndex      = (*vecindex.Manager)(nil)
	_ domain.EmbeddingClient  = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient  = (*embedding.MockClient)(nil)
	_ domain.Tokenizer        = (*tokenizer.Approx)(nil)
)
