package api

import (
	"net/http"
	"time"

	_ "github.com/athebyme/gomarket-platform/catalog-sync/docs"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/api/handlers"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/api/middleware"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/domain/services"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/auth"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Роли, которые проверяются на маршрутах
const (
	RoleSync    = "catalog:sync"
	RoleIndexer = "catalog:indexer"
)

// RouterOptions параметры маршрутизатора
type RouterOptions struct {
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	// HealthCheck опциональная проверка зависимостей для /health
	HealthCheck func(r *http.Request) error
}

// SetupRouter настраивает маршрутизатор
func SetupRouter(
	syncService services.CatalogSyncServiceInterface,
	verifier interfaces.AuthPort,
	logger interfaces.LoggerPort,
	opts RouterOptions,
) *chi.Mux {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Tracing)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.CORS(opts.CORSAllowedOrigins))
	r.Use(middleware.SecurityHeaders)

	health := func(w http.ResponseWriter, r *http.Request) {
		if opts.HealthCheck != nil {
			if err := opts.HealthCheck(r); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, _ = w.Write([]byte("OK"))
		}
	}
	r.Get("/health", health)
	r.Head("/health", health)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimiter(opts.RateLimitPerMinute, time.Minute))
		r.Use(auth.AuthMiddleware(verifier, logger))

		syncHandler := handlers.NewSyncHandler(syncService, logger)

		r.Route("/products", func(r chi.Router) {
			// Синхронизация всего каталога
			r.With(auth.RequireRole(RoleSync)).Post("/sync", syncHandler.SyncAllProducts)

			r.Route("/{id}", func(r chi.Router) {
				// Синхронизация одного товара
				r.With(auth.RequireRole(RoleSync)).Post("/sync", syncHandler.SyncProduct)

				// Подтверждение индексатора
				r.With(auth.RequireRole(RoleIndexer)).Put("/index-ref", syncHandler.UpdateIndexRef)
			})
		})
	})

	return r
}
