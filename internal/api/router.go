package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/credohq/credo/internal/api/handlers"
	mw "github.com/credohq/credo/internal/api/middleware"
	"github.com/credohq/credo/internal/config"
	"github.com/credohq/credo/internal/domain"
	"github.com/credohq/credo/internal/embedding"
	"github.com/credohq/credo/internal/extraction"
	"github.com/credohq/credo/internal/service"
	"github.com/credohq/credo/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Stores bundles the persistence contracts so the app can be backed by
// Postgres or the in-memory implementation interchangeably.
type Stores struct {
	Beliefs       domain.BeliefStore
	Conflicts     domain.ConflictStore
	Relationships domain.RelationshipStore
	Memories      domain.MemoryRecordStore
}

// App holds the router and background services for lifecycle management.
type App struct {
	Router     *chi.Mux
	Forgetting *service.ForgettingService

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// NewApp wires the Postgres-backed application.
func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	st := Stores{
		Beliefs:       store.NewBeliefStore(db),
		Conflicts:     store.NewConflictStore(db),
		Relationships: store.NewRelationshipStore(db),
		Memories:      store.NewMemoryRecordStore(db),
	}
	return NewAppWithStores(st, db, logger)
}

// NewAppWithStores wires the application over any store backend. db may be
// nil; health then reports without a database ping.
func NewAppWithStores(st Stores, db *pgxpool.Pool, logger *zap.Logger) *App {
	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
	if err != nil {
		logger.Warn("embedding client initialization failed",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
	} else if embeddingClient != nil {
		logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
	}

	extractor := extraction.Extractor(extraction.NewPatternExtractor())
	if embeddingClient != nil {
		extractor = extraction.NewVectorExtractor(extractor, embeddingClient, logger)
	}

	beliefSvc := service.NewBeliefService(
		st.Beliefs, st.Conflicts, st.Relationships, extractor, embeddingClient,
		service.BeliefConfig{
			SimilarityThreshold:    config.SimilarityThreshold(),
			ContradictionThreshold: config.ContradictionThreshold(),
			DefaultStrategy:        config.DefaultResolutionStrategy(),
			StrategyByCategory:     config.ResolutionStrategies(),
		},
		logger,
	)
	graphSvc := service.NewGraphService(st.Beliefs, st.Relationships, config.TraversalMaxDepth(), logger)

	recency, frequency, importance, beliefSupport := config.RelevanceWeights()
	forgettingSvc := service.NewForgettingService(
		st.Beliefs, st.Memories, st.Relationships,
		service.ForgettingConfig{
			Strategy: service.ForgettingStrategy(config.ForgettingStrategy()),
			Weights: service.RelevanceWeights{
				Recency:       recency,
				Frequency:     frequency,
				Importance:    importance,
				BeliefSupport: beliefSupport,
			},
			RelevanceThreshold: config.RelevanceThreshold(),
			GracePeriod:        config.EvictionGracePeriod(),
			RecencyHalfLife:    config.RecencyHalfLife(),
			ProtectionStrength: config.ProtectionStrength(),
			Interval:           config.ForgettingInterval(),
		},
		logger,
	)

	beliefHandler := handlers.NewBeliefHandler(beliefSvc, st.Beliefs, st.Memories)
	conflictHandler := handlers.NewConflictHandler(beliefSvc, st.Conflicts)
	graphHandler := handlers.NewGraphHandler(graphSvc)
	forgettingHandler := handlers.NewForgettingHandler(forgettingSvc, st.Memories)

	r := chi.NewRouter()

	app := &App{
		Router:     r,
		Forgetting: forgettingSvc,
		startTime:  time.Now(),
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
		r.Post("/ingest", beliefHandler.Ingest)

		r.Route("/agents/{agentID}", func(r chi.Router) {
			r.Get("/beliefs", beliefHandler.ListByAgent)
			r.Get("/beliefs/search", beliefHandler.Search)
			r.Get("/beliefs/stats", beliefHandler.Stats)
			r.Post("/review", beliefHandler.Review)
			r.Get("/conflicts", conflictHandler.ListUnresolved)
			r.Get("/deprecated", graphHandler.ListDeprecated)
			r.Post("/graph/validate", graphHandler.ValidateIntegrity)
		})

		r.Route("/beliefs/{id}", func(r chi.Router) {
			r.Get("/", beliefHandler.GetByID)
			r.Patch("/confidence", beliefHandler.UpdateConfidence)
			r.Post("/deactivate", beliefHandler.Deactivate)
			r.Post("/restore", forgettingHandler.RestoreBelief)
			r.Get("/related", beliefHandler.Related)
			r.Get("/relationships", graphHandler.GetForBelief)
			r.Get("/traverse", graphHandler.Traverse)
			r.Post("/deprecate", graphHandler.Deprecate)
		})
		r.Get("/beliefs/{fromID}/path/{toID}", graphHandler.ShortestPath)

		r.Route("/conflicts/{id}", func(r chi.Router) {
			r.Get("/", conflictHandler.GetByID)
			r.Post("/resolve", conflictHandler.Resolve)
		})

		r.Route("/relationships", func(r chi.Router) {
			r.Post("/", graphHandler.Create)
			r.Post("/{id}/deactivate", graphHandler.Deactivate)
		})

		r.Route("/memories/{id}", func(r chi.Router) {
			r.Get("/", forgettingHandler.GetMemory)
			r.Post("/access", forgettingHandler.RecordAccess)
			r.Post("/restore", forgettingHandler.RestoreMemory)
		})

		r.Post("/forgetting/run", forgettingHandler.Run)
	})

	return app
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
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
	_ domain.BeliefStore       = (*store.BeliefStore)(nil)
	_ domain.ConflictStore     = (*store.ConflictStore)(nil)
	_ domain.RelationshipStore = (*store.RelationshipStore)(nil)
	_ domain.MemoryRecordStore = (*store.MemoryRecordStore)(nil)
	_ domain.EmbeddingClient   = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient   = (*embedding.MockClient)(nil)
	_ extraction.Extractor     = (*extraction.PatternExtractor)(nil)
	_ extraction.Extractor     = (*extraction.VectorExtractor)(nil)
)
