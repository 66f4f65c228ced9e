package wire

import (
	"context"
	"net/http"
	"time"

	"reelvote/internal/adaptor"
	"reelvote/internal/data/cache"
	"reelvote/internal/data/repository"
	"reelvote/internal/usecase"
	"reelvote/pkg/database"
	"reelvote/pkg/metrics"
	"reelvote/pkg/middleware"
	"reelvote/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App holds the wired router and the services behind it.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services, handlers and routes. reviewCache may be disabled.
func Wiring(db database.PgxIface, repo *repository.Repository, reviewCache *cache.ReviewCache, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, reviewCache, config, logger)
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, db, repo, reviewCache, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	db database.PgxIface,
	repo *repository.Repository,
	reviewCache *cache.ReviewCache,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(config.App.CORSOrigin))

	wireAuth(r, handler.Auth, repo, logger)
	wireUser(r, handler.User, repo, logger)
	wireReview(r, handler.Review, repo, logger)
	wireVote(r, handler.Vote, repo, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(registry)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Get("/health", healthHandler(db, reviewCache, logger))

	return r
}

// healthHandler reports 503 when postgres is down. A redis failure only
// degrades the report since the cache is optional.
func healthHandler(db database.PgxIface, reviewCache *cache.ReviewCache, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"database": "ok", "cache": "disabled"}

		if reviewCache.Enabled() {
			status["cache"] = "ok"
			if err := reviewCache.Ping(ctx); err != nil {
				logger.Warn("Health check: cache unreachable", zap.Error(err))
				status["cache"] = "unreachable"
			}
		}

		if err := db.Ping(ctx); err != nil {
			logger.Error("Health check: database unreachable", zap.Error(err))
			status["database"] = "unreachable"
			utils.ResponseJSON(w, http.StatusServiceUnavailable, false, "Unhealthy", status, nil)
			return
		}

		utils.ResponseSuccess(w, "OK", status)
	}
}
