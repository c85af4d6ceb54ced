/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, carried into log lines
  2. Logger:     One zap line per request
  3. Metrics:    Prometheus request counter and latency histogram
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the operator UI

ROUTE GROUPS:
  /api/pharmacies/*     Pharmacies, periods, months, daily logs
  /api/periods/*        Status, metrics, weekly window, simulator
  /api/compare          Period comparison
  /api/calendar/*       Calendar conversion
  /api/scenarios/*      Demo scenarios
  /metrics              Prometheus
  /healthz              Store connectivity

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries the wiring choices of NewRouter.
type RouterConfig struct {
	AllowedOrigins []string
	// Registry receives the HTTP metrics and is served on /metrics.
	// A fresh registry is used when nil.
	Registry *prometheus.Registry
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	// Credentials are never shared with a wildcard origin.
	allowCredentials := !slices.Contains(origins, "*")
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	metrics := newHTTPMetrics(registry, h.Simulations)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.log))
	r.Use(metrics.instrument)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", SessionHeader},
		ExposedHeaders:   []string{SessionHeader},
		AllowCredentials: allowCredentials,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", h.Healthz)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/pharmacies", func(r chi.Router) {
			r.Get("/", h.ListPharmacies)
			r.Post("/", h.CreatePharmacy)

			r.Route("/{pharmacyID}", func(r chi.Router) {
				r.Get("/", h.GetPharmacy)
				r.Get("/periods", h.ListPeriods)
				r.Post("/periods", h.CreatePeriod)

				r.Route("/months/{year}/{month}", func(r chi.Router) {
					r.Get("/", h.FindMonthPeriod)
					r.Post("/", h.GetOrCreateMonthPeriod)
					r.Get("/summary", h.MonthlySummary)
					r.Get("/compare-previous", h.CompareWithPreviousMonth)
				})

				r.Get("/daily-logs", h.ListDailyLogs)
				r.Get("/daily-logs/latest", h.LatestDailyLog)
				r.Get("/daily-logs/{date}", h.GetDailyLog)
				r.Put("/daily-logs/{date}", h.UpsertDailyLog)
			})
		})

		r.Route("/periods/{periodID}", func(r chi.Router) {
			r.Get("/", h.GetPeriod)
			r.Put("/status", h.SetPeriodStatus)
			r.Post("/reopen", h.ReopenPeriod)

			r.Get("/metrics", h.GetMetrics)
			r.Put("/metrics", h.RecomputeMetrics)
			r.Post("/metrics/from-daily-logs", h.RecomputeFromDailyLogs)
			r.Get("/weekly", h.WeeklyWindow)

			r.Route("/simulation", func(r chi.Router) {
				r.Post("/", h.StartSimulation)
				r.Get("/", h.GetSimulation)
				r.Delete("/", h.EndSimulation)
				r.Post("/adjust", h.AdjustSimulation)
				r.Post("/reset", h.ResetSimulation)
			})
		})

		r.Get("/compare", h.ComparePeriods)

		r.Route("/calendar", func(r chi.Router) {
			r.Get("/today", h.Today)
			r.Get("/convert", h.ConvertDate)
			r.Get("/months/{year}/{month}", h.MonthBounds)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
